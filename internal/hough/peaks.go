package hough

// Candidate is a possible circle found in the accumulator.
type Candidate struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	R     int    `json:"r"`
	Votes uint16 `json:"votes"`

	// Keep marks the candidate as a reported circle. ExtractPeaks sets it when
	// spacing is disabled; otherwise only ApplySpacing sets it.
	Keep bool `json:"keep"`
}

// ExtractPeaks turns the accumulator cells over the image columns cols and
// rows [0, height) into candidates.
//
// Without binning, every cell with at least p.PeakThreshold votes becomes a
// candidate, scanned row by row (y, then x, then r).
//
// With binning, the x-y plane is tiled into p.BinSize squares, clipped at the
// right and bottom borders, visited in the same row-major order. Each bin yields
// at most one candidate: its first cell (scanning y, x, r) with the strictly
// greatest vote count, if that count reaches p.PeakThreshold.
//
// Cells outside acc count as zero votes.
func ExtractPeaks(acc *Accumulator, cols Span, height int, p Params) []Candidate {
	if p.Binning {
		return extractBinned(acc, cols, height, p)
	}

	var out []Candidate
	for y := 0; y < height; y++ {
		for x := cols.From; x < cols.To; x++ {
			for r := p.MinRadius; r <= p.MaxRadius; r++ {
				v := acc.At(x, y, r)
				if int(v) >= p.PeakThreshold {
					out = append(out, Candidate{X: x, Y: y, R: r, Votes: v, Keep: !p.Spacing})
				}
			}
		}
	}
	return out
}

func extractBinned(acc *Accumulator, cols Span, height int, p Params) []Candidate {
	size := max(1, p.BinSize)

	var out []Candidate
	for by := 0; by < height; by += size {
		yEnd := min(by+size, height)
		for bx := cols.From; bx < cols.To; bx += size {
			xEnd := min(bx+size, cols.To)

			best := Candidate{X: bx, Y: by, R: p.MinRadius, Votes: acc.At(bx, by, p.MinRadius)}
			for y := by; y < yEnd; y++ {
				for x := bx; x < xEnd; x++ {
					for r := p.MinRadius; r <= p.MaxRadius; r++ {
						if v := acc.At(x, y, r); v > best.Votes {
							best = Candidate{X: x, Y: y, R: r, Votes: v}
						}
					}
				}
			}

			if int(best.Votes) >= p.PeakThreshold {
				best.Keep = !p.Spacing
				out = append(out, best)
			}
		}
	}
	return out
}
