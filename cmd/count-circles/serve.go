package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ironsheep/count-circles/internal/config"
	"github.com/ironsheep/count-circles/internal/imaging"
	"github.com/ironsheep/count-circles/internal/logging"
	"github.com/ironsheep/count-circles/internal/metrics"
	"github.com/ironsheep/count-circles/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Serve speaks the Model Context Protocol (JSON-RPC 2.0, one message per
line) on stdin and stdout. Configure it as a stdio server in an MCP client.
Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("metrics-listen", a.v.GetString("metrics.listen"), "Serve Prometheus metrics on this address (empty disables)")
	if err := a.v.BindPFlag("metrics.listen", cmd.Flags().Lookup("metrics-listen")); err != nil {
		panic(err)
	}
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	s := a.settings
	log := logging.Component(a.log, "server")

	opts, err := s.DetectionOptions()
	if err != nil {
		return err
	}
	opts.Annotate = false

	registry := prometheus.NewRegistry()
	prom, err := metrics.NewPrometheus(registry)
	if err != nil {
		return err
	}
	rec := metrics.NewRecorder().WithObserver(prom)

	srvOpts := []server.Option{
		server.WithLogger(log),
		server.WithRecorder(rec),
		server.WithDefaults(opts),
		server.WithExecution(string(s.Mode), s.Threads),
		server.WithImageCache(imaging.NewImageCacheTTL(s.Server.CacheTTL)),
		server.WithVersion(Version),
	}

	// The cluster is only started when the default mode needs it.
	if s.Mode == config.ModeDistributed {
		exec, release, err := a.executor(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := release(); err != nil {
				log.Warn().Err(err).Msg("failed to release cluster")
			}
		}()
		srvOpts = append(srvOpts, server.WithCluster(exec))
	}

	if s.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		httpSrv := &http.Server{
			Addr:              s.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", s.Metrics.Listen).Msg("serving metrics")
	}

	log.Info().Str("version", Version).Str("mode", string(s.Mode)).Msg("MCP server started")
	return server.New(srvOpts...).Run(ctx)
}
