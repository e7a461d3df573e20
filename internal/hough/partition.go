package hough

// Partition is the column range one worker votes over.
//
// [XStart, XStart+Width) is the worker's own range. Pad extra columns on each
// side of its accumulator catch votes for centers just outside that range,
// which the merge step hands to the neighboring partitions.
type Partition struct {
	Index  int
	XStart int
	Width  int
	Pad    int
}

// End returns the first column after the partition.
func (p Partition) End() int {
	return p.XStart + p.Width
}

// Span returns the partition's own columns.
func (p Partition) Span() Span {
	return Span{From: p.XStart, To: p.End()}
}

// AccumulatorOrigin returns the image column of the padded accumulator's first column.
func (p Partition) AccumulatorOrigin() int {
	return p.XStart - p.Pad
}

// AccumulatorWidth returns the padded accumulator width.
func (p Partition) AccumulatorWidth() int {
	return p.Width + 2*p.Pad
}

// Split divides width columns into n contiguous partitions of width/n columns.
// The last partition absorbs the remainder, so the widths always sum to width.
// n is clamped to [1, width] so no partition is empty. pad is copied into every
// partition and does not affect the column ranges.
func Split(width, n, pad int) []Partition {
	if width < 1 {
		return nil
	}
	n = max(1, min(n, width))
	step := width / n

	parts := make([]Partition, n)
	for i := range parts {
		w := step
		if i == n-1 {
			w = width - step*i
		}
		parts[i] = Partition{Index: i, XStart: step * i, Width: w, Pad: pad}
	}
	return parts
}
