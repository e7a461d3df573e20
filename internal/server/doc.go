// Package server implements the MCP (Model Context Protocol) server for circle
// counting.
//
// This package provides a JSON-RPC 2.0 server that exposes the circle Hough
// transform through the MCP protocol, so MCP clients can count circles in an
// image and tune the detection parameters interactively.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Load image and get metadata
//   - hough_detect_circles: Find and count circles, optionally returning an
//     annotated image
//   - hough_edge_detect: Return the edge map the transform votes on
//   - hough_run_stats: Average phase timings of the detections run so far
//
// Arguments left out of a tool call take the server defaults set with
// WithDefaults and WithExecution. The distributed mode runs on the executor
// given to WithCluster.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
// The server is typically started by an MCP client through the serve command:
//
//	srv := server.New(server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
package server
