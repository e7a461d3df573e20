package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/count-circles/internal/config"
	"github.com/ironsheep/count-circles/internal/detection"
	"github.com/ironsheep/count-circles/internal/hough"
	"github.com/ironsheep/count-circles/internal/imaging"
	"github.com/ironsheep/count-circles/internal/logging"
	"github.com/ironsheep/count-circles/internal/metrics"
)

func (a *app) benchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench <image>",
		Short: "Time repeated circle detections on an image",
		Long: `Bench preprocesses the image once, then runs the circle Hough transform
--times times and prints the average total, hough and local durations. The
averages are appended to the averages file as mode;total;compute;local in
milliseconds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.bench(cmd, args[0])
		},
	}

	flags := cmd.Flags()
	flags.IntP("times", "n", a.v.GetInt("eval.times"), "Number of timed runs")
	flags.String("averages-file", a.v.GetString("eval.averages_file"), "Append averages to this file (empty disables)")
	flags.String("metrics-textfile", a.v.GetString("metrics.textfile"), "Write Prometheus metrics in text format to this file")
	for name, key := range map[string]string{
		"times":            "eval.times",
		"averages-file":    "eval.averages_file",
		"metrics-textfile": "metrics.textfile",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func (a *app) bench(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	s := a.settings
	log := logging.Component(a.log, "bench")

	opts, err := s.DetectionOptions()
	if err != nil {
		return err
	}
	img, err := imaging.NewImageCache().Load(path)
	if err != nil {
		return err
	}
	edges := detection.Edges(img, opts)

	registry := prometheus.NewRegistry()
	prom, err := metrics.NewPrometheus(registry)
	if err != nil {
		return err
	}
	rec := metrics.NewRecorder().WithObserver(prom)

	exec, release, err := a.executor(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn().Err(err).Msg("failed to release executor")
		}
	}()

	for i := 0; i < s.Eval.Times; i++ {
		res, err := hough.Run(ctx, exec, edges, opts.Params, hough.Options{Recorder: rec, Logger: &log})
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		log.Info().
			Int("run", i+1).
			Int("circles", res.Count).
			Dur("total", res.Timings.Total).
			Dur("compute", res.Timings.Compute).
			Dur("local", res.Timings.Local).
			Msg("run finished")
	}

	avg := rec.Average()
	fmt.Fprintf(a.stdout, "circles found: %d\n", avg.Circles)
	fmt.Fprintf(a.stdout, "time elapsed avg (total): %.3f ms\n", ms(avg.Total))
	fmt.Fprintf(a.stdout, "time elapsed avg (hough): %.3f ms\n", ms(avg.Compute))
	fmt.Fprintf(a.stdout, "time elapsed avg (local): %.3f ms\n", ms(avg.Local))
	if s.Eval.Times > 1 {
		sd := rec.StdDev()
		fmt.Fprintf(a.stdout, "time elapsed stddev (total|hough|local): %.3f|%.3f|%.3f ms\n", ms(sd.Total), ms(sd.Compute), ms(sd.Local))
	}

	if s.Eval.AveragesFile != "" {
		if err := appendAverages(s.Eval.AveragesFile, s.Mode, avg); err != nil {
			return err
		}
	}
	if s.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(s.Metrics.Textfile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// appendAverages appends one mode;total;compute;local line, in milliseconds.
func appendAverages(path string, mode config.Mode, avg metrics.Timings) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open averages file: %w", err)
	}
	if err := writeAverages(f, mode, avg); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeAverages(w io.Writer, mode config.Mode, avg metrics.Timings) error {
	_, err := fmt.Fprintf(w, "%s;%.3f;%.3f;%.3f\n", mode, ms(avg.Total), ms(avg.Compute), ms(avg.Local))
	return err
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
