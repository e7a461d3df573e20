package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/count-circles/internal/hough"
)

// Coordinator distributes accumulation over connected workers. It implements
// hough.Executor.
//
// Runs are serialized. After a failed run the coordinator is broken and every
// later run fails with the same error.
type Coordinator struct {
	conns    []io.ReadWriteCloser
	transfer Transfer
	log      zerolog.Logger

	mu     sync.Mutex
	ready  bool
	broken error

	closeOnce sync.Once
	closeErr  error

	// wait, if set, blocks until in-process workers have stopped.
	wait func() error
}

var _ hough.Executor = (*Coordinator)(nil)

// NewCoordinator returns a coordinator owning one connection per worker.
func NewCoordinator(conns []io.ReadWriteCloser, transfer Transfer, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		conns:    conns,
		transfer: transfer,
		log:      logger.With().Str("component", "coordinator").Logger(),
	}
}

// Workers returns the number of connected workers.
func (c *Coordinator) Workers() int {
	return len(c.conns)
}

// Transfer returns the coordinator's transfer mode.
func (c *Coordinator) Transfer() Transfer {
	return c.transfer
}

// Barrier waits until every worker has announced readiness. Later calls return
// immediately.
func (c *Coordinator) Barrier(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.barrier(ctx)
}

func (c *Coordinator) barrier(ctx context.Context) error {
	if c.broken != nil {
		return c.broken
	}
	if c.ready {
		return nil
	}
	if len(c.conns) == 0 {
		return fmt.Errorf("%w: no workers", ErrWorker)
	}

	stop := context.AfterFunc(ctx, c.abort)
	defer stop()

	g := new(errgroup.Group)
	for i, conn := range c.conns {
		g.Go(func() error {
			if _, err := expectFrame(conn, frameReady); err != nil {
				return c.workerErr(i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return c.fail(ctx, err)
	}
	if !stop() {
		return c.fail(ctx, ctx.Err())
	}

	c.ready = true
	c.log.Info().Int("workers", len(c.conns)).Msg("all workers ready")
	return nil
}

type reply struct {
	acc   *hough.Accumulator
	local time.Duration
}

// Accumulate implements hough.Executor. It splits the edge map columns into one
// partition per worker, sends each worker its task and gathers the partial
// accumulators. edges must start at image column 0.
//
// If the image is narrower than the worker count only the first width workers
// get a task.
func (c *Coordinator) Accumulate(ctx context.Context, edges *hough.EdgeMap, p hough.Params) (*hough.Accumulator, hough.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.barrier(ctx); err != nil {
		return nil, hough.Stats{}, err
	}
	if edges.Origin != 0 {
		return nil, hough.Stats{}, fmt.Errorf("%w: edge map starts at column %d", hough.ErrGeometry, edges.Origin)
	}

	pad := 0
	if c.transfer == TransferCrop {
		pad = p.MaxRadius
	}
	parts := hough.Split(edges.Width, len(c.conns), pad)
	params := encodeParams(p)

	stop := context.AfterFunc(ctx, c.abort)
	defer stop()

	replies := make([]reply, len(parts))
	g := new(errgroup.Group)
	for i, part := range parts {
		conn := c.conns[i]
		g.Go(func() error {
			r, err := c.exchange(conn, edges, part, p, params)
			if err != nil {
				c.abort()
				return c.workerErr(i, err)
			}
			replies[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, hough.Stats{}, c.fail(ctx, err)
	}
	if !stop() {
		return nil, hough.Stats{}, c.fail(ctx, ctx.Err())
	}

	var global *hough.Accumulator
	if c.transfer == TransferCrop {
		global = hough.NewPaddedAccumulator(edges.Width, edges.Height, p, pad)
	} else {
		global = hough.NewAccumulator(0, edges.Width, edges.Height, p.MinRadius, p.MaxRadius)
	}

	var stats hough.Stats
	for _, r := range replies {
		if err := hough.Merge(global, r.acc); err != nil {
			return nil, hough.Stats{}, c.fail(ctx, err)
		}
		stats.Local = max(stats.Local, r.local)
	}

	c.log.Debug().
		Int("partitions", len(parts)).
		Stringer("transfer", c.transfer).
		Dur("local", stats.Local).
		Msg("partitions merged")
	return global, stats, nil
}

// exchange runs one task on one worker.
func (c *Coordinator) exchange(conn io.ReadWriter, edges *hough.EdgeMap, part hough.Partition, p hough.Params, params []byte) (reply, error) {
	t := task{
		Partition:  int32(part.Index),
		XStart:     int32(part.XStart),
		Width:      int32(part.Width),
		Pad:        int32(part.Pad),
		ImageWidth: int32(edges.Width),
		Height:     int32(edges.Height),
		Transfer:   c.transfer,
	}

	slice := edges.Pix
	acc := hough.NewAccumulator(0, edges.Width, edges.Height, p.MinRadius, p.MaxRadius)
	if c.transfer == TransferCrop {
		slice = edges.Columns(part.XStart, part.Width).Pix
		acc = hough.NewAccumulator(part.AccumulatorOrigin(), part.AccumulatorWidth(), edges.Height, p.MinRadius, p.MaxRadius)
	}

	if err := writeFrame(conn, frameParams, params); err != nil {
		return reply{}, err
	}
	if err := writeFrame(conn, frameTask, t.encode()); err != nil {
		return reply{}, err
	}
	if err := writeFrame(conn, frameSlice, slice); err != nil {
		return reply{}, err
	}

	payload, err := expectFrame(conn, frameVotes)
	if err != nil {
		return reply{}, err
	}
	if err := decodeVotes(payload, acc.Votes()); err != nil {
		return reply{}, err
	}
	payload, err = expectFrame(conn, frameTiming)
	if err != nil {
		return reply{}, err
	}
	ns, err := decodeTiming(payload)
	if err != nil {
		return reply{}, err
	}
	return reply{acc: acc, local: time.Duration(ns)}, nil
}

// workerErr tags err with the worker it came from. Lost connections become
// ErrWorker; protocol and worker-reported errors keep their sentinel.
func (c *Coordinator) workerErr(i int, err error) error {
	if errors.Is(err, ErrWorker) || errors.Is(err, ErrProtocol) {
		return fmt.Errorf("worker %d: %w", i, err)
	}
	return fmt.Errorf("%w: worker %d: %w", ErrWorker, i, err)
}

// fail marks the coordinator broken. A cancelled context takes precedence over
// the connection errors it caused.
func (c *Coordinator) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	c.broken = err
	c.log.Error().Err(err).Msg("run failed")
	return err
}

// abort closes every connection, unblocking all pending exchanges.
func (c *Coordinator) abort() {
	for _, conn := range c.conns {
		_ = conn.Close()
	}
}

// Close asks idle workers to stop and closes every connection. In-process
// workers started by StartLocal are waited for.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		polite := c.ready && c.broken == nil
		c.broken = errors.Join(c.broken, fmt.Errorf("%w: coordinator closed", ErrWorker))
		c.mu.Unlock()

		var errs []error
		for i, conn := range c.conns {
			if polite {
				if err := writeFrame(conn, frameShutdown, nil); err != nil && !isClosed(err) {
					errs = append(errs, fmt.Errorf("worker %d: %w", i, err))
				}
			}
			if err := conn.Close(); err != nil && !isClosed(err) {
				errs = append(errs, fmt.Errorf("worker %d: %w", i, err))
			}
		}
		if c.wait != nil {
			if err := c.wait(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
		c.log.Debug().Msg("closed")
	})
	return c.closeErr
}
