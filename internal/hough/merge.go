package hough

import "fmt"

// Merge adds every part into dst.
//
// Parts with dst's geometry are summed element-wise. Other parts must share
// dst's height and radius range; each of their cells is moved to its image
// column (part.Origin + local column) and added there, and cells that fall
// outside dst are dropped. Sums wrap at 16 bits like votes do.
//
// Addition is commutative, so the order of parts does not change the result.
func Merge(dst *Accumulator, parts ...*Accumulator) error {
	for i, part := range parts {
		if part.Height != dst.Height || part.MinRadius != dst.MinRadius || part.MaxRadius != dst.MaxRadius {
			return fmt.Errorf("%w: part %d is %dx%d r[%d,%d], destination is %dx%d r[%d,%d]",
				ErrGeometry, i,
				part.Width, part.Height, part.MinRadius, part.MaxRadius,
				dst.Width, dst.Height, dst.MinRadius, dst.MaxRadius)
		}

		if dst.SameGeometry(part) {
			for c, v := range part.votes {
				dst.votes[c] += v
			}
			continue
		}
		mergeShifted(dst, part)
	}
	return nil
}

// mergeShifted adds part into dst row by row, translating columns through the
// image coordinate system.
func mergeShifted(dst, part *Accumulator) {
	cols := part.Span().Intersect(dst.Span())
	if cols.Width() == 0 {
		return
	}
	for r := part.MinRadius; r <= part.MaxRadius; r++ {
		for y := 0; y < part.Height; y++ {
			src := part.votes[part.Index(cols.From, y, r):][:cols.Width()]
			out := dst.votes[dst.Index(cols.From, y, r):][:cols.Width()]
			for i, v := range src {
				out[i] += v
			}
		}
	}
}
