package hough

import (
	"math/rand/v2"
	"testing"
)

// digitalCircle returns an edge map holding, for every angle sample, the one
// pixel whose vote at that angle lands exactly on (cx, cy) at radius r.
func digitalCircle(t *testing.T, width, height, cx, cy, r int) *EdgeMap {
	t.Helper()
	m := NewEdgeMap(width, height)
	for deg := range AngleSamples {
		a := angles[deg]
		bx := cx + int(float64(r)*a.cos)
		by := cy + int(float64(r)*a.sin)

		found := false
		for dy := -2; dy <= 2 && !found; dy++ {
			for dx := -2; dx <= 2 && !found; dx++ {
				x, y := bx+dx, by+dy
				if gx, gy := center(x, y, r, deg); gx == cx && gy == cy {
					m.Set(x, y, true)
					found = true
				}
			}
		}
		if !found {
			t.Fatalf("no pixel votes for (%d,%d) at %d°", cx, cy, deg)
		}
	}
	return m
}

// noiseEdges returns a deterministic sparse random edge map.
func noiseEdges(width, height int, density float64, seed uint64) *EdgeMap {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	m := NewEdgeMap(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if rng.Float64() < density {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

func equalVotes(a, b []uint16) (int, bool) {
	if len(a) != len(b) {
		return -1, false
	}
	for i := range a {
		if a[i] != b[i] {
			return i, false
		}
	}
	return 0, true
}
