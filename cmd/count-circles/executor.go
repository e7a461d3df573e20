package main

import (
	"context"
	"fmt"

	"github.com/ironsheep/count-circles/internal/cluster"
	"github.com/ironsheep/count-circles/internal/config"
	"github.com/ironsheep/count-circles/internal/hough"
	"github.com/ironsheep/count-circles/internal/logging"
)

// executor returns the executor for the configured mode and a function that
// releases it. In distributed mode it dials WorkerAddrs, or starts Workers
// in-process workers when no address is configured.
func (a *app) executor(ctx context.Context) (hough.Executor, func() error, error) {
	s := a.settings
	noop := func() error { return nil }

	switch s.Mode {
	case config.ModeSequential:
		return hough.Sequential{}, noop, nil
	case config.ModeParallel:
		return hough.Parallel{Threads: s.Threads}, noop, nil
	case config.ModeDistributed:
	default:
		return nil, nil, fmt.Errorf("unknown mode %q", s.Mode)
	}

	transfer, err := s.TransferMode()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Component(a.log, "coordinator")

	var coord *cluster.Coordinator
	if len(s.WorkerAddrs) > 0 {
		coord, err = cluster.Dial(ctx, s.WorkerAddrs, transfer, logger)
	} else {
		coord, err = cluster.StartLocal(ctx, s.Workers, s.Threads, transfer, logger)
	}
	if err != nil {
		return nil, nil, err
	}

	// Wait for every worker before the first timed run.
	if err := coord.Barrier(ctx); err != nil {
		_ = coord.Close()
		return nil, nil, err
	}
	a.log.Info().
		Int("workers", coord.Workers()).
		Stringer("transfer", coord.Transfer()).
		Msg("workers ready")
	return coord, coord.Close, nil
}
