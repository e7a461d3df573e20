package hough

import (
	"context"
	"errors"
	"testing"
)

func TestMerge_FullModeEquivalence(t *testing.T) {
	const width, height = 61, 33
	p := Params{MinRadius: 3, MaxRadius: 7}
	edges := noiseEdges(width, height, 0.06, 11)
	ctx := context.Background()

	single := NewAccumulator(0, width, height, p.MinRadius, p.MaxRadius)
	if err := Accumulate(ctx, edges, edges.Span(), single, 1); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}

	for _, workers := range []int{1, 2, 3, 5} {
		var parts []*Accumulator
		for _, part := range Split(width, workers, 0) {
			local := NewAccumulator(0, width, height, p.MinRadius, p.MaxRadius)
			if err := Accumulate(ctx, edges, part.Span(), local, 1); err != nil {
				t.Fatalf("worker %d: Accumulate failed: %v", part.Index, err)
			}
			parts = append(parts, local)
		}

		merged := NewAccumulator(0, width, height, p.MinRadius, p.MaxRadius)
		if err := Merge(merged, parts...); err != nil {
			t.Fatalf("workers=%d: Merge failed: %v", workers, err)
		}
		if i, ok := equalVotes(single.Votes(), merged.Votes()); !ok {
			t.Errorf("workers=%d: merged cell %d differs from single accumulator", workers, i)
		}
	}
}

func TestMerge_CropModeEquivalence(t *testing.T) {
	const width, height = 57, 29
	p := Params{MinRadius: 2, MaxRadius: 6}
	edges := noiseEdges(width, height, 0.07, 5)
	ctx := context.Background()

	single := NewAccumulator(0, width, height, p.MinRadius, p.MaxRadius)
	if err := Accumulate(ctx, edges, edges.Span(), single, 1); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}

	for _, workers := range []int{1, 2, 4} {
		global := NewPaddedAccumulator(width, height, p, p.MaxRadius)
		for _, part := range Split(width, workers, p.MaxRadius) {
			slice := edges.Columns(part.XStart, part.Width)
			local := NewAccumulator(part.AccumulatorOrigin(), part.AccumulatorWidth(), height, p.MinRadius, p.MaxRadius)
			if err := Accumulate(ctx, slice, slice.Span(), local, 1); err != nil {
				t.Fatalf("worker %d: Accumulate failed: %v", part.Index, err)
			}
			if err := Merge(global, local); err != nil {
				t.Fatalf("worker %d: Merge failed: %v", part.Index, err)
			}
		}

		for r := p.MinRadius; r <= p.MaxRadius; r++ {
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					if got, want := global.At(x, y, r), single.At(x, y, r); got != want {
						t.Fatalf("workers=%d: cell (%d,%d,%d) got %d, want %d", workers, x, y, r, got, want)
					}
				}
			}
		}
	}
}

func TestMerge_OrderIndependent(t *testing.T) {
	a := NewAccumulator(0, 5, 5, 1, 2)
	b := NewAccumulator(-2, 9, 5, 1, 2)
	c := NewAccumulator(3, 4, 5, 1, 2)
	a.Set(1, 1, 1, 4)
	b.Set(1, 1, 1, 6)
	b.Set(-2, 0, 2, 3)
	c.Set(4, 4, 2, 9)

	first := NewAccumulator(-2, 9, 5, 1, 2)
	second := NewAccumulator(-2, 9, 5, 1, 2)
	if err := Merge(first, a, b, c); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := Merge(second, c, b, a); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if i, ok := equalVotes(first.Votes(), second.Votes()); !ok {
		t.Errorf("merge order changed cell %d", i)
	}
	if first.At(1, 1, 1) != 10 || first.At(-2, 0, 2) != 3 || first.At(4, 4, 2) != 9 {
		t.Errorf("unexpected merged values: %d %d %d", first.At(1, 1, 1), first.At(-2, 0, 2), first.At(4, 4, 2))
	}
}

func TestMerge_DropsCellsOutsideDestination(t *testing.T) {
	dst := NewAccumulator(0, 4, 2, 1, 1)
	part := NewAccumulator(-3, 10, 2, 1, 1)
	part.Set(-1, 0, 1, 5)
	part.Set(2, 1, 1, 7)
	part.Set(6, 1, 1, 8)

	if err := Merge(dst, part); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if dst.Total() != 7 || dst.At(2, 1, 1) != 7 {
		t.Errorf("got total %d, want only the in-range cell (7)", dst.Total())
	}
}

func TestMerge_Wraps(t *testing.T) {
	dst := NewAccumulator(0, 1, 1, 1, 1)
	part := NewAccumulator(0, 1, 1, 1, 1)
	dst.Set(0, 0, 1, 65000)
	part.Set(0, 0, 1, 600)

	if err := Merge(dst, part); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if got := dst.At(0, 0, 1); got != 64 {
		t.Errorf("65000+600: got %d, want 64 after 16-bit wrap", got)
	}
}

func TestMerge_GeometryMismatch(t *testing.T) {
	dst := NewAccumulator(0, 4, 4, 1, 3)

	tests := []struct {
		name string
		part *Accumulator
	}{
		{"height", NewAccumulator(0, 4, 5, 1, 3)},
		{"min radius", NewAccumulator(0, 4, 4, 2, 3)},
		{"max radius", NewAccumulator(0, 4, 4, 1, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Merge(dst, tt.part)
			if !errors.Is(err, ErrGeometry) {
				t.Errorf("got %v, want ErrGeometry", err)
			}
		})
	}
}
