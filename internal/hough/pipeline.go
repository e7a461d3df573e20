package hough

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/count-circles/internal/metrics"
)

// Stats describes how an Executor produced its accumulator.
type Stats struct {
	// Local is voting time excluding any transfer to or from workers.
	Local time.Duration
}

// Executor produces the global accumulator for an edge map.
//
// The returned accumulator must cover at least the image columns
// edges.Span(), every row and every radius of p. It is owned by the caller.
type Executor interface {
	Accumulate(ctx context.Context, edges *EdgeMap, p Params) (*Accumulator, Stats, error)
}

// Sequential votes on the calling goroutine.
type Sequential struct{}

// Accumulate implements Executor.
func (Sequential) Accumulate(ctx context.Context, edges *EdgeMap, p Params) (*Accumulator, Stats, error) {
	return Parallel{Threads: 1}.Accumulate(ctx, edges, p)
}

// Parallel votes on Threads goroutines with private accumulators.
type Parallel struct {
	Threads int
}

// Accumulate implements Executor.
func (e Parallel) Accumulate(ctx context.Context, edges *EdgeMap, p Params) (*Accumulator, Stats, error) {
	acc := NewAccumulator(edges.Origin, edges.Width, edges.Height, p.MinRadius, p.MaxRadius)
	start := time.Now()
	if err := Accumulate(ctx, edges, edges.Span(), acc, e.Threads); err != nil {
		return nil, Stats{}, err
	}
	return acc, Stats{Local: time.Since(start)}, nil
}

// Options carries the collaborators of Run.
type Options struct {
	// Recorder, if set, receives the run's timings.
	Recorder *metrics.Recorder

	// Logger, if set, receives a debug line per phase.
	Logger *zerolog.Logger
}

// Result is the outcome of one run.
type Result struct {
	// Candidates holds every extracted candidate with its final Keep flag.
	Candidates []Candidate `json:"candidates"`

	// Circles holds the kept candidates.
	Circles []Candidate `json:"circles"`

	// Count is len(Circles).
	Count int `json:"count"`

	Timings metrics.Timings `json:"timings"`
}

// Run detects circles in edges.
//
// It validates p, lets exec build the global accumulator, extracts peaks over
// the edge map's own columns and applies spacing when p.Spacing is set. Either a
// complete result or an error is returned, never both.
func Run(ctx context.Context, exec Executor, edges *EdgeMap, p Params, opts Options) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if edges == nil || edges.Width < 1 || edges.Height < 1 {
		return nil, fmt.Errorf("%w: empty edge map", ErrGeometry)
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "hough").Logger()
	}

	start := time.Now()
	acc, stats, err := exec.Accumulate(ctx, edges, p)
	if err != nil {
		return nil, fmt.Errorf("accumulation failed: %w", err)
	}
	computed := time.Since(start)
	log.Debug().
		Dur("compute", computed).
		Dur("local", stats.Local).
		Uint64("votes", acc.Total()).
		Msg("accumulator ready")

	cands := ExtractPeaks(acc, edges.Span(), edges.Height, p)
	if p.Spacing {
		ApplySpacing(cands, p.SpacingSize)
	}
	circles := Kept(cands)

	timings := metrics.Timings{
		Total:   time.Since(start),
		Compute: computed,
		Local:   stats.Local,
		Circles: len(circles),
	}
	log.Debug().
		Int("candidates", len(cands)).
		Int("circles", len(circles)).
		Dur("total", timings.Total).
		Msg("peaks extracted")

	if opts.Recorder != nil {
		opts.Recorder.Record(timings)
	}

	return &Result{
		Candidates: cands,
		Circles:    circles,
		Count:      len(circles),
		Timings:    timings,
	}, nil
}
