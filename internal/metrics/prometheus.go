package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports run timings as Prometheus metrics.
type Prometheus struct {
	TotalDuration   prometheus.Histogram
	ComputeDuration prometheus.Histogram
	LocalDuration   prometheus.Histogram
	CirclesFound    prometheus.Counter
	Runs            prometheus.Counter
}

// NewPrometheus creates the run metrics and registers them with registry.
// It returns an error if registration fails.
func NewPrometheus(registry prometheus.Registerer) (*Prometheus, error) {
	buckets := prometheus.ExponentialBuckets(0.001, 2, 16)

	m := &Prometheus{
		TotalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hough_run_total_seconds",
			Help:    "Duration of a whole circle detection run in seconds.",
			Buckets: buckets,
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hough_run_compute_seconds",
			Help:    "Duration of accumulation and merge, including worker transfers, in seconds.",
			Buckets: buckets,
		}),
		LocalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hough_run_local_seconds",
			Help:    "Duration of voting alone, excluding transfers, in seconds.",
			Buckets: buckets,
		}),
		CirclesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hough_circles_found_total",
			Help: "Total number of circles kept across all runs.",
		}),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hough_runs_total",
			Help: "Total number of completed detection runs.",
		}),
	}

	for _, c := range []prometheus.Collector{m.TotalDuration, m.ComputeDuration, m.LocalDuration, m.CirclesFound, m.Runs} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register hough metrics: %w", err)
		}
	}
	return m, nil
}

// Observe implements Observer.
func (m *Prometheus) Observe(t Timings) {
	m.TotalDuration.Observe(t.Total.Seconds())
	m.ComputeDuration.Observe(t.Compute.Seconds())
	m.LocalDuration.Observe(t.Local.Seconds())
	m.CirclesFound.Add(float64(t.Circles))
	m.Runs.Inc()
}
