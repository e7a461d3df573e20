package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/count-circles/internal/hough"
)

// Worker votes over the partitions a coordinator assigns to it.
type Worker struct {
	// Threads is the number of voting goroutines per task.
	Threads int

	log zerolog.Logger
}

// NewWorker returns a worker voting on threads goroutines.
func NewWorker(threads int, logger zerolog.Logger) *Worker {
	return &Worker{
		Threads: max(1, threads),
		log:     logger.With().Str("component", "worker").Logger(),
	}
}

// Serve announces readiness on conn and answers tasks until the coordinator
// sends shutdown or closes the stream.
//
// A failure after a task's slice arrived is reported to the coordinator in an
// error frame. Earlier failures leave the coordinator mid-write, so the worker
// only drops the stream. Either way Serve stops and returns the error.
//
// If conn is an io.Closer it is closed when ctx is done, which unblocks any
// pending read; Serve then returns ctx.Err(). A stream closed by the peer is a
// normal end and yields nil.
func (w *Worker) Serve(ctx context.Context, conn io.ReadWriter) error {
	closer, _ := conn.(io.Closer)
	if closer != nil {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}

	err := w.serve(ctx, conn)
	if err != nil && closer != nil {
		_ = closer.Close()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if isClosed(err) {
		return nil
	}
	return err
}

func (w *Worker) serve(ctx context.Context, conn io.ReadWriter) error {
	if err := writeFrame(conn, frameReady, nil); err != nil {
		return err
	}
	w.log.Debug().Msg("ready")

	var (
		params    hough.Params
		hasParams bool
	)
	for {
		kind, payload, err := readFrame(conn)
		if err != nil {
			return err
		}

		switch kind {
		case frameShutdown:
			w.log.Debug().Msg("shutdown requested")
			return nil

		case frameParams:
			p, err := decodeParams(payload)
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			params, hasParams = p, true

		case frameTask:
			if !hasParams {
				return fmt.Errorf("%w: task before params", ErrProtocol)
			}
			t, err := decodeTask(payload)
			if err != nil {
				return err
			}
			if err := w.runTask(ctx, conn, t, params); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unexpected %s frame", ErrProtocol, kind)
		}
	}
}

// runTask receives the task's slice, votes and sends the accumulator and
// timing back.
func (w *Worker) runTask(ctx context.Context, conn io.ReadWriter, t task, p hough.Params) error {
	slice, err := expectFrame(conn, frameSlice)
	if err != nil {
		return err
	}
	if len(slice) != t.sliceSize() {
		return w.fail(conn, fmt.Errorf("%w: slice of %d bytes, want %d", ErrProtocol, len(slice), t.sliceSize()))
	}

	var (
		edges *hough.EdgeMap
		acc   *hough.Accumulator
		cols  hough.Span
	)
	xStart, width, pad := int(t.XStart), int(t.Width), int(t.Pad)
	switch t.Transfer {
	case TransferCrop:
		edges, err = hough.EdgeMapFromBytes(xStart, width, int(t.Height), slice)
		if err != nil {
			return w.fail(conn, err)
		}
		acc = hough.NewAccumulator(xStart-pad, width+2*pad, int(t.Height), p.MinRadius, p.MaxRadius)
		cols = edges.Span()
	default:
		edges, err = hough.EdgeMapFromBytes(0, int(t.ImageWidth), int(t.Height), slice)
		if err != nil {
			return w.fail(conn, err)
		}
		acc = hough.NewAccumulator(0, int(t.ImageWidth), int(t.Height), p.MinRadius, p.MaxRadius)
		cols = hough.Span{From: xStart, To: xStart + width}
	}

	start := time.Now()
	if err := hough.Accumulate(ctx, edges, cols, acc, w.Threads); err != nil {
		return w.fail(conn, err)
	}
	local := time.Since(start)

	w.log.Debug().
		Int32("partition", t.Partition).
		Int("from", cols.From).
		Int("to", cols.To).
		Stringer("transfer", t.Transfer).
		Dur("local", local).
		Msg("task done")

	if err := writeFrame(conn, frameVotes, encodeVotes(acc.Votes())); err != nil {
		return err
	}
	return writeFrame(conn, frameTiming, encodeTiming(local.Nanoseconds()))
}

// fail reports err to the coordinator and returns it. The stream is left in an
// unknown state, so the caller stops serving.
func (w *Worker) fail(conn io.Writer, err error) error {
	w.log.Error().Err(err).Msg("task failed")
	if werr := writeFrame(conn, frameError, []byte(err.Error())); werr != nil {
		w.log.Debug().Err(werr).Msg("failed to report error")
	}
	return err
}

// isClosed reports whether err means the peer went away.
func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
