package hough

import "testing"

func TestApplySpacing(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		cands []Candidate
		want  []bool
	}{
		{
			"close pair keeps the first, far candidate independent",
			5,
			[]Candidate{{X: 10, Y: 10}, {X: 13, Y: 14}, {X: 40, Y: 40}},
			[]bool{true, false, true},
		},
		{
			"distance equal to spacing suppresses",
			5,
			[]Candidate{{X: 0, Y: 0}, {X: 3, Y: 4}},
			[]bool{true, false},
		},
		{
			"distance just above spacing keeps both",
			4,
			[]Candidate{{X: 0, Y: 0}, {X: 3, Y: 4}},
			[]bool{true, true},
		},
		{
			"zero spacing suppresses identical centers only",
			0,
			[]Candidate{{X: 5, Y: 5, R: 3}, {X: 5, Y: 5, R: 4}, {X: 6, Y: 5}},
			[]bool{true, false, true},
		},
		{
			"chain keeps alternate members",
			3,
			[]Candidate{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 6, Y: 0}, {X: 9, Y: 0}},
			[]bool{true, false, true, false},
		},
		{
			"empty input",
			10,
			nil,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ApplySpacing(tt.cands, tt.size)
			for i, c := range tt.cands {
				if c.Keep != tt.want[i] {
					t.Errorf("candidate %d (%d,%d): keep %v, want %v", i, c.X, c.Y, c.Keep, tt.want[i])
				}
			}
		})
	}
}

func TestApplySpacing_OrderDecidesWinner(t *testing.T) {
	a := Candidate{X: 0, Y: 0, R: 1}
	b := Candidate{X: 1, Y: 1, R: 2}

	forward := []Candidate{a, b}
	ApplySpacing(forward, 2)
	backward := []Candidate{b, a}
	ApplySpacing(backward, 2)

	if !forward[0].Keep || forward[1].Keep {
		t.Errorf("forward order: got %v %v, want first kept", forward[0].Keep, forward[1].Keep)
	}
	if !backward[0].Keep || backward[1].Keep {
		t.Errorf("backward order: got %v %v, want first kept", backward[0].Keep, backward[1].Keep)
	}
}

func TestKept(t *testing.T) {
	cands := []Candidate{{X: 1, Keep: true}, {X: 2}, {X: 3, Keep: true}}
	got := Kept(cands)
	if len(got) != 2 || got[0].X != 1 || got[1].X != 3 {
		t.Errorf("Kept: got %+v", got)
	}
}
