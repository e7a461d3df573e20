// Package metrics records how long each circle detection run takes.
//
// A Recorder is an append-only, ordered log of per-run Timings. It is created by
// the caller and handed to the pipeline, never stored in a package variable, so
// benchmarks can average over exactly the runs they made. A Recorder can forward
// every run to an Observer such as the Prometheus collector in this package.
package metrics
