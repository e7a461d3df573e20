package hough

// ApplySpacing marks candidates as kept unless they crowd an already kept one.
//
// Candidates are visited in slice order. Candidate i is compared with every
// other candidate j; if j is kept at that moment and the centers are at most
// size pixels apart (Euclidean), i is left as it is and the scan for i stops.
// Otherwise i is kept. Flags are updated in place as the scan goes, so earlier
// candidates win over later ones and the result depends only on the order of
// cands. Kept flags are never cleared.
func ApplySpacing(cands []Candidate, size int) {
	limit := size * size
	for i := range cands {
		spaced := true
		for j := range cands {
			if j == i || !cands[j].Keep {
				continue
			}
			dx := cands[j].X - cands[i].X
			dy := cands[j].Y - cands[i].Y
			if dx*dx+dy*dy <= limit {
				spaced = false
				break
			}
		}
		if spaced {
			cands[i].Keep = true
		}
	}
}

// Kept returns the kept candidates in their original order.
func Kept(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Keep {
			out = append(out, c)
		}
	}
	return out
}
