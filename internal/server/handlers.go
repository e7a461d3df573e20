package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ironsheep/count-circles/internal/detection"
	"github.com/ironsheep/count-circles/internal/hough"
	"github.com/ironsheep/count-circles/internal/imaging"
	"github.com/ironsheep/count-circles/internal/metrics"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "hough_detect_circles").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies the server defaults for omitted parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/detection function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "hough_detect_circles":
		return s.handleDetectCircles(ctx, args)
	case "hough_edge_detect":
		return s.handleEdgeDetect(args)
	case "hough_run_stats":
		return s.handleRunStats(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// preprocessArgs are shared by the detection and edge tools. Zero values and
// empty strings select the server defaults.
type preprocessArgs struct {
	Blur           string `json:"blur"`
	BlurKSize      int    `json:"blur_ksize"`
	Edges          string `json:"edges"`
	EdgesKSize     int    `json:"edges_ksize"`
	CannyLow       int    `json:"canny_low"`
	CannyHigh      int    `json:"canny_high"`
	SobelThreshold int    `json:"sobel_threshold"`
}

func (a preprocessArgs) apply(opts *detection.Options) error {
	if a.Blur != "" {
		m, err := imaging.ParseBlurMethod(a.Blur)
		if err != nil {
			return err
		}
		opts.Blur = m
	}
	if a.Edges != "" {
		m, err := imaging.ParseEdgeMethod(a.Edges)
		if err != nil {
			return err
		}
		opts.Edges.Method = m
	}
	if a.BlurKSize != 0 {
		opts.BlurKSize = imaging.OddKernel(a.BlurKSize, imaging.MinBlurKSize, imaging.MaxBlurKSize)
	}
	if a.EdgesKSize != 0 {
		opts.Edges.KSize = imaging.OddKernel(a.EdgesKSize, imaging.MinEdgeKSize, imaging.MaxEdgeKSize)
	}
	if a.CannyLow != 0 {
		opts.Edges.Low = a.CannyLow
	}
	if a.CannyHigh != 0 {
		opts.Edges.High = a.CannyHigh
	}
	if a.SobelThreshold != 0 {
		opts.Edges.SobelThreshold = a.SobelThreshold
	}
	return nil
}

type detectCirclesArgs struct {
	Path string `json:"path"`
	preprocessArgs

	MinRadius     int   `json:"min_radius"`
	MaxRadius     int   `json:"max_radius"`
	PeakThreshold int   `json:"peak_threshold"`
	Binning       *bool `json:"binning"`
	BinSize       int   `json:"bin_size"`
	Spacing       *bool `json:"spacing"`
	SpacingSize   int   `json:"spacing_size"`

	Mode     string `json:"mode"`
	Threads  int    `json:"threads"`
	Annotate bool   `json:"annotate"`
	Color    string `json:"color"`
}

// detectCirclesResponse is the hough_detect_circles result.
type detectCirclesResponse struct {
	*detection.CirclesResult
	Mode            string       `json:"mode"`
	Params          hough.Params `json:"params"`
	AnnotatedBase64 string       `json:"annotated_base64,omitempty"`
	MimeType        string       `json:"mime_type,omitempty"`
}

func (s *Server) handleDetectCircles(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectCirclesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	opts := s.defaults
	if err := a.preprocessArgs.apply(&opts); err != nil {
		return nil, err
	}

	p := &opts.Params
	if a.MinRadius != 0 {
		p.MinRadius = a.MinRadius
	}
	if a.MaxRadius != 0 {
		p.MaxRadius = a.MaxRadius
	}
	if a.PeakThreshold != 0 {
		p.PeakThreshold = a.PeakThreshold
	}
	if a.Binning != nil {
		p.Binning = *a.Binning
	}
	if a.BinSize != 0 {
		p.BinSize = max(5, a.BinSize)
	}
	if a.Spacing != nil {
		p.Spacing = *a.Spacing
	}
	if a.SpacingSize != 0 {
		p.SpacingSize = a.SpacingSize
	}
	opts.Annotate = a.Annotate
	if a.Color != "" {
		opts.Color = a.Color
	}

	mode, exec, err := s.executor(a.Mode, a.Threads)
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	logger := s.log
	res, err := detection.DetectCircles(ctx, img, exec, opts, hough.Options{Recorder: s.recorder, Logger: &logger})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("path", a.Path).
		Str("mode", mode).
		Int("circles", res.Count).
		Dur("total", res.Timings.Total).
		Msg("circles detected")

	out := &detectCirclesResponse{CirclesResult: res, Mode: mode, Params: opts.Params}
	if res.Annotated != nil {
		out.AnnotatedBase64, err = imaging.EncodePNGBase64(res.Annotated)
		if err != nil {
			return nil, err
		}
		out.MimeType = "image/png"
	}
	return out, nil
}

// executor resolves the requested mode, falling back to the server default.
func (s *Server) executor(mode string, threads int) (string, hough.Executor, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = s.mode
	}
	if threads <= 0 {
		threads = s.threads
	}

	switch mode {
	case "sequential":
		return mode, hough.Sequential{}, nil
	case "parallel":
		return mode, hough.Parallel{Threads: threads}, nil
	case "distributed":
		if s.cluster == nil {
			return "", nil, fmt.Errorf("distributed mode is not configured on this server")
		}
		return mode, s.cluster, nil
	}
	return "", nil, fmt.Errorf("unknown mode: %s", mode)
}

type edgeDetectArgs struct {
	Path string `json:"path"`
	preprocessArgs
}

func (s *Server) handleEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a edgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	opts := s.defaults
	if err := a.preprocessArgs.apply(&opts); err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeEdges(detection.Edges(img, opts))
}

// runStatsResponse is the hough_run_stats result.
type runStatsResponse struct {
	Runs    int              `json:"runs"`
	Average metrics.Timings  `json:"average"`
	Last    *metrics.Timings `json:"last,omitempty"`
}

type runStatsArgs struct {
	Reset bool `json:"reset"`
}

func (s *Server) handleRunStats(args json.RawMessage) (interface{}, error) {
	var a runStatsArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}

	runs := s.recorder.Runs()
	out := &runStatsResponse{Runs: len(runs), Average: s.recorder.Average()}
	if len(runs) > 0 {
		last := runs[len(runs)-1]
		out.Last = &last
	}
	if a.Reset {
		s.recorder.Reset()
	}
	return out, nil
}
