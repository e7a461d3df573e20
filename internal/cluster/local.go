package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StartLocal starts n in-process workers, each connected to the returned
// coordinator through a synchronous pipe. The workers stop when the coordinator
// is closed or ctx is done; Close waits for them.
func StartLocal(ctx context.Context, n, threads int, transfer Transfer, logger zerolog.Logger) (*Coordinator, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: need at least one worker, got %d", ErrWorker, n)
	}

	conns := make([]io.ReadWriteCloser, n)
	g := new(errgroup.Group)
	for i := range n {
		local, remote := net.Pipe()
		conns[i] = local
		w := NewWorker(threads, logger.With().Int("worker", i).Logger())
		g.Go(func() error {
			err := w.Serve(ctx, remote)
			_ = remote.Close()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		})
	}

	c := NewCoordinator(conns, transfer, logger)
	c.wait = g.Wait
	return c, nil
}

// Dial connects to one worker per address and returns a coordinator for them.
// On failure every connection made so far is closed.
func Dial(ctx context.Context, addrs []string, transfer Transfer, logger zerolog.Logger) (*Coordinator, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no worker addresses", ErrWorker)
	}

	var d net.Dialer
	conns := make([]io.ReadWriteCloser, 0, len(addrs))
	for _, addr := range addrs {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return nil, fmt.Errorf("%w: failed to dial %s: %w", ErrWorker, addr, err)
		}
		conns = append(conns, conn)
		logger.Debug().Str("addr", addr).Msg("worker connected")
	}
	return NewCoordinator(conns, transfer, logger), nil
}

// ListenAndServe accepts coordinator connections on addr and serves each with w
// until ctx is done. It returns nil after a clean shutdown.
func ListenAndServe(ctx context.Context, addr string, w *Worker) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, ln, w)
}

// Serve accepts connections on ln until ctx is done and serves each on its own
// goroutine. ln is closed on return.
func Serve(ctx context.Context, ln net.Listener, w *Worker) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	w.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			log := w.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
			log.Info().Msg("coordinator connected")
			if err := w.Serve(ctx, conn); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("connection failed")
				return
			}
			log.Info().Msg("coordinator disconnected")
		}()
	}
}
