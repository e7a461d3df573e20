package hough

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

type angle struct {
	cos, sin float64
}

// angles holds cos and sin for 0°..360° in 1° steps. Both ends are sampled,
// so 0° votes twice per pixel and radius.
var angles = func() [AngleSamples]angle {
	var t [AngleSamples]angle
	for deg := range t {
		rad := float64(deg) * math.Pi / 180.0
		t[deg] = angle{cos: math.Cos(rad), sin: math.Sin(rad)}
	}
	return t
}()

// center returns the accumulator cell an edge pixel at (x, y) votes for at
// radius r and angle sample deg.
func center(x, y, r, deg int) (int, int) {
	a := angles[deg]
	cx := math.Floor(float64(x) - float64(r)*a.cos)
	cy := math.Floor(float64(y) - float64(r)*a.sin)
	return int(cx), int(cy)
}

// Accumulate casts the votes of every edge pixel of edges whose image column
// lies in cols into acc.
//
// For each edge pixel, each radius of acc and each of the AngleSamples angles,
// the candidate center (x - r·cos θ, y - r·sin θ) is floored to a cell and
// gets one vote if acc contains it.
//
// With threads > 1 the rows are split into bands voted concurrently, each into a
// private accumulator with acc's geometry; the private accumulators are summed
// into acc once every band is done. The result is identical to threads == 1.
//
// Cancellation is checked between rows. On error acc holds no new votes from the
// parallel bands but may hold partial votes from a sequential scan.
func Accumulate(ctx context.Context, edges *EdgeMap, cols Span, acc *Accumulator, threads int) error {
	cols = cols.Intersect(edges.Span())
	if cols.Width() == 0 || edges.Height == 0 {
		return nil
	}

	threads = max(1, min(threads, edges.Height))
	if threads == 1 {
		return voteRows(ctx, edges, cols, 0, edges.Height, acc)
	}

	private := make([]*Accumulator, threads)
	band := (edges.Height + threads - 1) / threads

	g, gctx := errgroup.WithContext(ctx)
	for t := range threads {
		y0 := t * band
		y1 := min(edges.Height, y0+band)
		if y0 >= y1 {
			continue
		}
		local := NewAccumulator(acc.Origin, acc.Width, acc.Height, acc.MinRadius, acc.MaxRadius)
		private[t] = local
		g.Go(func() error {
			return voteRows(gctx, edges, cols, y0, y1, local)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, local := range private {
		if local == nil {
			continue
		}
		if err := Merge(acc, local); err != nil {
			return err
		}
	}
	return nil
}

// voteRows votes rows [y0, y1) of edges restricted to cols into acc.
func voteRows(ctx context.Context, edges *EdgeMap, cols Span, y0, y1 int, acc *Accumulator) error {
	for y := y0; y < y1; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := edges.Pix[y*edges.Width : (y+1)*edges.Width]
		for x := cols.From; x < cols.To; x++ {
			if row[x-edges.Origin] != Edge {
				continue
			}
			for r := acc.MinRadius; r <= acc.MaxRadius; r++ {
				for deg := range AngleSamples {
					cx, cy := center(x, y, r, deg)
					acc.Inc(cx, cy, r)
				}
			}
		}
	}
	return nil
}
