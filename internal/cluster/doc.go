// Package cluster runs the Hough accumulation across cooperating workers.
//
// One Coordinator talks to N Workers over plain byte streams: in-process pipes
// (StartLocal) or TCP connections (Dial and ListenAndServe). Workers never talk
// to each other.
//
// # Protocol
//
// Every message is a frame: one kind byte, a little-endian uint32 payload
// length, then the payload.
//
//	ready     worker → coordinator   once per connection, no payload
//	params    coordinator → worker   min radius, max radius, peak threshold,
//	                                 bin size, spacing size (int32 each),
//	                                 then binning and spacing flag bytes
//	task      coordinator → worker   partition index, column start, width, pad,
//	                                 image width, image height, transfer mode
//	slice     coordinator → worker   edge pixels, one byte each, row-major
//	votes     worker → coordinator   accumulator cells, uint16 each
//	timing    worker → coordinator   local voting time in nanoseconds (int64)
//	error     worker → coordinator   UTF-8 failure message
//	shutdown  coordinator → worker   no payload
//
// # Runs
//
// The coordinator waits for every worker's ready frame once (the barrier), then
// for each run sends params, task and slice to every worker, gathers every votes
// and timing reply, and merges the partial accumulators in partition order.
// A run succeeds only if every reply arrives intact; any missing or malformed
// reply fails the run and breaks the coordinator, since the stream position of
// the failed worker is unknown.
//
// # Transfer Modes
//
// In full mode every worker receives the whole edge map, votes only for the edge
// pixels of its own columns, and returns a full-size accumulator. In crop mode a
// worker receives only its columns and returns an accumulator padded by the
// maximum radius on both sides, which the coordinator shifts into place.
package cluster
