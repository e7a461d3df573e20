package hough

import "fmt"

// Accumulator is the (x, y, radius) vote histogram.
//
// Cells are stored in a flat buffer of 16-bit counters. The cell for image
// column x, row y and radius r lives at
//
//	(x-Origin) + Width*(y + Height*(r-MinRadius))
//
// and exists for Origin <= x < Origin+Width, 0 <= y < Height and
// MinRadius <= r <= MaxRadius. Geometry is fixed at construction.
type Accumulator struct {
	Origin    int
	Width     int
	Height    int
	MinRadius int
	MaxRadius int

	votes []uint16
}

// NewAccumulator returns a zeroed accumulator covering the image columns
// [origin, origin+width), rows [0, height) and radii [minRadius, maxRadius].
func NewAccumulator(origin, width, height, minRadius, maxRadius int) *Accumulator {
	depth := maxRadius - minRadius + 1
	if width < 0 || height < 0 || depth < 1 {
		panic(fmt.Sprintf("hough: invalid accumulator geometry %dx%dx%d", width, height, depth))
	}
	return &Accumulator{
		Origin:    origin,
		Width:     width,
		Height:    height,
		MinRadius: minRadius,
		MaxRadius: maxRadius,
		votes:     make([]uint16, width*height*depth),
	}
}

// NewPaddedAccumulator returns an accumulator for an image of the given size
// extended by pad columns on both sides, so Origin is -pad.
func NewPaddedAccumulator(width, height int, p Params, pad int) *Accumulator {
	return NewAccumulator(-pad, width+2*pad, height, p.MinRadius, p.MaxRadius)
}

// Depth returns the number of radii.
func (a *Accumulator) Depth() int {
	return a.MaxRadius - a.MinRadius + 1
}

// Len returns the number of cells.
func (a *Accumulator) Len() int {
	return len(a.votes)
}

// Span returns the image columns covered by the accumulator.
func (a *Accumulator) Span() Span {
	return Span{From: a.Origin, To: a.Origin + a.Width}
}

// Contains reports whether (x, y, r) is a cell of the accumulator.
func (a *Accumulator) Contains(x, y, r int) bool {
	return x >= a.Origin && x < a.Origin+a.Width &&
		y >= 0 && y < a.Height &&
		r >= a.MinRadius && r <= a.MaxRadius
}

// Index returns the buffer offset of (x, y, r). The cell must exist.
func (a *Accumulator) Index(x, y, r int) int {
	return (x - a.Origin) + a.Width*(y+a.Height*(r-a.MinRadius))
}

// Coords is the inverse of Index.
func (a *Accumulator) Coords(i int) (x, y, r int) {
	plane := a.Width * a.Height
	r = i / plane
	i -= r * plane
	y = i / a.Width
	x = i % a.Width
	return x + a.Origin, y, r + a.MinRadius
}

// At returns the vote count of (x, y, r), or 0 for cells outside the accumulator.
func (a *Accumulator) At(x, y, r int) uint16 {
	if !a.Contains(x, y, r) {
		return 0
	}
	return a.votes[a.Index(x, y, r)]
}

// Inc adds one vote to (x, y, r) and reports whether the cell exists.
// A full counter wraps around to zero.
func (a *Accumulator) Inc(x, y, r int) bool {
	if !a.Contains(x, y, r) {
		return false
	}
	a.votes[a.Index(x, y, r)]++
	return true
}

// Set overwrites the vote count of (x, y, r). Cells outside are ignored.
func (a *Accumulator) Set(x, y, r int, v uint16) {
	if a.Contains(x, y, r) {
		a.votes[a.Index(x, y, r)] = v
	}
}

// Votes returns the underlying buffer in index order. The slice aliases the
// accumulator.
func (a *Accumulator) Votes() []uint16 {
	return a.votes
}

// LoadVotes replaces the buffer contents with buf, which must have Len elements.
func (a *Accumulator) LoadVotes(buf []uint16) error {
	if len(buf) != len(a.votes) {
		return fmt.Errorf("%w: got %d votes, want %d", ErrGeometry, len(buf), len(a.votes))
	}
	copy(a.votes, buf)
	return nil
}

// Total returns the sum of all cells.
func (a *Accumulator) Total() uint64 {
	var sum uint64
	for _, v := range a.votes {
		sum += uint64(v)
	}
	return sum
}

// Reset zeroes every cell.
func (a *Accumulator) Reset() {
	clear(a.votes)
}

// SameGeometry reports whether a and b index identical cells.
func (a *Accumulator) SameGeometry(b *Accumulator) bool {
	return a.Origin == b.Origin && a.Width == b.Width && a.Height == b.Height &&
		a.MinRadius == b.MinRadius && a.MaxRadius == b.MaxRadius
}
