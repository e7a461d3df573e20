package metrics

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Timings holds the phase durations of one run.
type Timings struct {
	// Total spans the whole run, from the start of accumulation through spacing.
	Total time.Duration `json:"total"`

	// Compute spans accumulation and merging, including any transfer to and
	// from workers.
	Compute time.Duration `json:"compute"`

	// Local is pure voting time, without transfers. For distributed runs it is
	// the slowest worker's voting time.
	Local time.Duration `json:"local"`

	// Circles is the number of kept circles.
	Circles int `json:"circles"`
}

// Observer receives every run recorded by a Recorder.
type Observer interface {
	Observe(Timings)
}

// Recorder is a concurrency-safe ordered log of run timings.
type Recorder struct {
	mu        sync.Mutex
	runs      []Timings
	observers []Observer
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// WithObserver registers o to be called for every subsequent run and returns r.
func (r *Recorder) WithObserver(o Observer) *Recorder {
	r.mu.Lock()
	r.observers = append(r.observers, o)
	r.mu.Unlock()
	return r
}

// Record appends t to the log.
func (r *Recorder) Record(t Timings) {
	r.mu.Lock()
	r.runs = append(r.runs, t)
	observers := r.observers
	r.mu.Unlock()

	for _, o := range observers {
		o.Observe(t)
	}
}

// Runs returns a copy of the log in recording order.
func (r *Recorder) Runs() []Timings {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Timings, len(r.runs))
	copy(out, r.runs)
	return out
}

// Len returns the number of recorded runs.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// Average returns the mean of every field over all runs. Circles is the
// integer mean. An empty log averages to zero.
func (r *Recorder) Average() Timings {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.runs)
	if n == 0 {
		return Timings{}
	}
	var sum Timings
	for _, t := range r.runs {
		sum.Total += t.Total
		sum.Compute += t.Compute
		sum.Local += t.Local
		sum.Circles += t.Circles
	}
	d := time.Duration(n)
	return Timings{
		Total:   sum.Total / d,
		Compute: sum.Compute / d,
		Local:   sum.Local / d,
		Circles: sum.Circles / n,
	}
}

// StdDev returns the sample standard deviation of the durations over all
// runs. Circles is left zero. Fewer than two runs have no spread.
func (r *Recorder) StdDev() Timings {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.runs)
	if n < 2 {
		return Timings{}
	}
	total := make([]float64, n)
	compute := make([]float64, n)
	local := make([]float64, n)
	for i, t := range r.runs {
		total[i] = float64(t.Total)
		compute[i] = float64(t.Compute)
		local[i] = float64(t.Local)
	}
	return Timings{
		Total:   time.Duration(stat.StdDev(total, nil)),
		Compute: time.Duration(stat.StdDev(compute, nil)),
		Local:   time.Duration(stat.StdDev(local, nil)),
	}
}

// Reset empties the log. Observers stay registered.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.runs = nil
	r.mu.Unlock()
}
