// Package hough implements a circle-detecting Hough transform over binary edge maps.
//
// Every edge pixel votes, for every radius in the configured range and for 361
// angle samples (0° to 360° inclusive, 1° apart), for the circle centers it could
// lie on. Votes land in a three-dimensional (x, y, radius) accumulator. Peaks in
// the accumulator are circle candidates, which are then thinned by binning and by
// a minimum center spacing.
//
// # Pipeline
//
//  1. Split: the edge map's columns are divided into partitions (Split)
//  2. Accumulate: each partition votes into its own accumulator (Accumulate)
//  3. Merge: partial accumulators are summed into one global accumulator (Merge)
//  4. Extract: the global accumulator is thresholded or binned (ExtractPeaks)
//  5. Space: candidates too close to an already kept one are dropped (ApplySpacing)
//
// Run drives the whole pipeline through an Executor. Sequential and Parallel
// executors are provided here; the distributed executor lives in the cluster
// package and plugs into the same interface.
//
// # Coordinate System
//
// All coordinates are image coordinates:
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward, Y increases downward
//   - Radii are whole pixels
//
// EdgeMap and Accumulator both carry an Origin: the image column of their local
// column 0. A cropped partition slice starting at column 120 has Origin 120, and
// its accumulator, padded by maxRadius columns on each side, has Origin
// 120-maxRadius. Callers never translate coordinates by hand.
//
// # Vote Counters
//
// Accumulator cells are 16-bit. A cell that receives more than 65535 votes wraps
// around to zero; the same holds for merged sums. Large radius ranges over dense
// edge maps can reach this limit.
//
// # Thread Safety
//
// EdgeMap is read-only once built and may be shared. An Accumulator is owned by a
// single goroutine at a time. The Parallel executor gives every goroutine a private
// accumulator and reduces them afterwards, so no counter is ever incremented
// concurrently.
package hough
