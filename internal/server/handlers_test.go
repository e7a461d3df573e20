package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/count-circles/internal/cluster"
	"github.com/ironsheep/count-circles/internal/detection"
	"github.com/ironsheep/count-circles/internal/imaging"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writeTestPNG(t, img)
}

// createDiscImageFile writes a 100x100 white PNG with a black disc of radius
// 20 centered at (48, 48).
func createDiscImageFile(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			c := color.White
			if (x-48)*(x-48)+(y-48)*(y-48) <= 20*20 {
				c = color.Black
			}
			img.Set(x, y, c)
		}
	}
	return writeTestPNG(t, img)
}

func writeTestPNG(t *testing.T, img image.Image) string {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return f.Name()
}

// discServer returns a server whose defaults fit createDiscImageFile.
func discServer(opts ...Option) *Server {
	d := detection.DefaultOptions()
	d.Params.MinRadius = 15
	d.Params.MaxRadius = 25
	d.Params.PeakThreshold = 100
	return New(append([]Option{WithDefaults(d)}, opts...)...)
}

// callTool sends a tools/call request through handleRequest.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeContent unmarshals the text content of a successful tool response.
func decodeContent(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v (%v)", resp.Error.Message, resp.Error.Data)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("content is not JSON: %v", err)
	}
}

type circlesContent struct {
	Count      int                `json:"count"`
	Candidates int                `json:"candidates"`
	EdgePixels int                `json:"edge_pixels"`
	Circles    []detection.Circle `json:"circles"`
	Mode       string             `json:"mode"`
	Params     struct {
		MinRadius int `json:"min_radius"`
		BinSize   int `json:"bin_size"`
	} `json:"params"`
	Timings         map[string]interface{} `json:"timings"`
	AnnotatedBase64 string                 `json:"annotated_base64"`
	MimeType        string                 `json:"mime_type"`
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	decodeContent(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()

	for _, tool := range []string{"image_load", "hough_detect_circles", "hough_edge_detect"} {
		t.Run(tool, func(t *testing.T) {
			resp := callTool(t, s, tool, map[string]interface{}{"path": "/nonexistent/file.png"})
			if resp.Error == nil {
				t.Fatal("Expected error for non-existent file")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	resp := callTool(t, New(), "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid tool")
	}
	if !strings.Contains(resp.Error.Data.(string), "unknown tool") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	resp := callTool(t, New(), "hough_detect_circles", map[string]interface{}{})

	if resp.Error == nil {
		t.Error("Expected error for missing path")
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	resp := New().handleToolsCall(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`"not an object"`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_DetectCircles(t *testing.T) {
	s := discServer()
	imgPath := createDiscImageFile(t)

	var got circlesContent
	decodeContent(t, callTool(t, s, "hough_detect_circles", map[string]interface{}{"path": imgPath}), &got)

	if got.Count != 1 || len(got.Circles) != 1 {
		t.Fatalf("expected 1 circle, got %d: %+v", got.Count, got.Circles)
	}
	c := got.Circles[0]
	if c.Center.X < 46 || c.Center.X > 50 || c.Center.Y < 46 || c.Center.Y > 50 {
		t.Errorf("center: got %+v, want near (48, 48)", c.Center)
	}
	if c.Radius < 18 || c.Radius > 22 {
		t.Errorf("radius: got %d, want near 20", c.Radius)
	}
	if got.Mode != "sequential" {
		t.Errorf("mode: got %s, want sequential", got.Mode)
	}
	if got.Timings == nil {
		t.Error("timings missing")
	}
	if got.AnnotatedBase64 != "" {
		t.Error("annotated image returned without annotate")
	}
}

func TestHandleToolsCall_DetectCircles_WithParams(t *testing.T) {
	s := discServer()
	imgPath := createDiscImageFile(t)

	var got circlesContent
	decodeContent(t, callTool(t, s, "hough_detect_circles", map[string]interface{}{
		"path":       imgPath,
		"min_radius": 18,
		"bin_size":   2,
		"spacing":    false,
		"mode":       "parallel",
		"threads":    3,
		"annotate":   true,
		"color":      "#00FF00",
	}), &got)

	if got.Params.MinRadius != 18 {
		t.Errorf("min_radius: got %d, want 18", got.Params.MinRadius)
	}
	if got.Params.BinSize != 5 {
		t.Errorf("bin_size: got %d, want clamped to 5", got.Params.BinSize)
	}
	if got.Mode != "parallel" {
		t.Errorf("mode: got %s, want parallel", got.Mode)
	}
	if got.Count < 1 {
		t.Error("expected at least one circle")
	}
	if got.AnnotatedBase64 == "" || got.MimeType != "image/png" {
		t.Error("annotated image missing")
	}
}

func TestHandleToolsCall_DetectCircles_Distributed(t *testing.T) {
	coord, err := cluster.StartLocal(context.Background(), 2, 1, cluster.TransferCrop, zerolog.Nop())
	if err != nil {
		t.Fatalf("StartLocal: %v", err)
	}
	t.Cleanup(func() { _ = coord.Close() })

	s := discServer(WithCluster(coord))
	imgPath := createDiscImageFile(t)

	var want, got circlesContent
	decodeContent(t, callTool(t, s, "hough_detect_circles", map[string]interface{}{"path": imgPath}), &want)
	decodeContent(t, callTool(t, s, "hough_detect_circles", map[string]interface{}{"path": imgPath, "mode": "distributed"}), &got)

	if got.Mode != "distributed" {
		t.Errorf("mode: got %s", got.Mode)
	}
	if got.Count != want.Count || len(got.Circles) != len(want.Circles) {
		t.Fatalf("distributed found %d circles, sequential %d", got.Count, want.Count)
	}
	for i := range want.Circles {
		if got.Circles[i] != want.Circles[i] {
			t.Errorf("circle %d: got %+v, want %+v", i, got.Circles[i], want.Circles[i])
		}
	}
}

func TestHandleToolsCall_DetectCircles_BadArguments(t *testing.T) {
	s := discServer()
	imgPath := createDiscImageFile(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"distributed without cluster", map[string]interface{}{"path": imgPath, "mode": "distributed"}},
		{"unknown mode", map[string]interface{}{"path": imgPath, "mode": "mpi"}},
		{"unknown blur", map[string]interface{}{"path": imgPath, "blur": "box"}},
		{"unknown edges", map[string]interface{}{"path": imgPath, "edges": "laplace"}},
		{"inverted radii", map[string]interface{}{"path": imgPath, "min_radius": 30, "max_radius": 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := callTool(t, s, "hough_detect_circles", tt.args); resp.Error == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHandleToolsCall_EdgeDetect(t *testing.T) {
	s := New()
	imgPath := createDiscImageFile(t)

	for _, method := range []string{"canny", "sobel"} {
		t.Run(method, func(t *testing.T) {
			var got imaging.EdgeDetectResult
			decodeContent(t, callTool(t, s, "hough_edge_detect", map[string]interface{}{
				"path":  imgPath,
				"edges": method,
			}), &got)

			if got.Width != 100 || got.Height != 100 {
				t.Errorf("size: got %dx%d", got.Width, got.Height)
			}
			if got.EdgePixels == 0 {
				t.Error("expected edge pixels around the disc")
			}
			if got.ImageBase64 == "" || got.MimeType != "image/png" {
				t.Error("edge image missing")
			}
		})
	}
}

func TestHandleToolsCall_EdgeDetect_Uniform(t *testing.T) {
	imgPath := createTestImageFile(t, 100, 100, color.RGBA{100, 100, 100, 255})

	var got imaging.EdgeDetectResult
	decodeContent(t, callTool(t, New(), "hough_edge_detect", map[string]interface{}{"path": imgPath}), &got)
	if got.EdgePixels != 0 {
		t.Errorf("uniform image: got %d edge pixels", got.EdgePixels)
	}
}

func TestHandleToolsCall_RunStats(t *testing.T) {
	s := discServer()
	imgPath := createDiscImageFile(t)

	for i := 0; i < 2; i++ {
		if resp := callTool(t, s, "hough_detect_circles", map[string]interface{}{"path": imgPath}); resp.Error != nil {
			t.Fatalf("detect: %v", resp.Error)
		}
	}

	var stats struct {
		Runs    int `json:"runs"`
		Average struct {
			Circles int `json:"circles"`
		} `json:"average"`
		Last *struct{} `json:"last"`
	}
	decodeContent(t, callTool(t, s, "hough_run_stats", map[string]interface{}{"reset": true}), &stats)
	if stats.Runs != 2 {
		t.Errorf("runs: got %d, want 2", stats.Runs)
	}
	if stats.Average.Circles != 1 {
		t.Errorf("average circles: got %d, want 1", stats.Average.Circles)
	}
	if stats.Last == nil {
		t.Error("last run missing")
	}

	stats.Runs, stats.Last = -1, nil
	decodeContent(t, callTool(t, s, "hough_run_stats", map[string]interface{}{}), &stats)
	if stats.Runs != 0 {
		t.Errorf("after reset: got %d runs", stats.Runs)
	}
	if stats.Last != nil {
		t.Error("after reset: last run still reported")
	}
}

func TestPreprocessArgs_Apply(t *testing.T) {
	opts := detection.DefaultOptions()
	a := preprocessArgs{
		Blur:           "gaussian",
		BlurKSize:      8,
		Edges:          "sobel",
		EdgesKSize:     9,
		SobelThreshold: 64,
	}
	if err := a.apply(&opts); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if opts.Blur != imaging.BlurGaussian || opts.BlurKSize != 9 {
		t.Errorf("blur: got %v/%d, want gaussian/9", opts.Blur, opts.BlurKSize)
	}
	if opts.Edges.Method != imaging.EdgeSobel || opts.Edges.KSize != 7 || opts.Edges.SobelThreshold != 64 {
		t.Errorf("edges: got %+v", opts.Edges)
	}
	if opts.Edges.Low != 100 || opts.Edges.High != 200 {
		t.Errorf("unset canny thresholds changed: %+v", opts.Edges)
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	if _, err := New().executeTool(context.Background(), "unknown_tool", json.RawMessage(`{}`)); err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()
	for _, tool := range []string{"image_load", "hough_detect_circles", "hough_edge_detect", "hough_run_stats"} {
		if _, err := s.executeTool(context.Background(), tool, json.RawMessage(`{invalid`)); err == nil {
			t.Errorf("%s should fail for invalid JSON", tool)
		}
	}
}

func TestExecuteTool_CacheReuse(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 20, 20, color.White)

	for _, tool := range []string{"image_load", "hough_edge_detect"} {
		if _, err := s.executeTool(context.Background(), tool, json.RawMessage(`{"path":"`+filepath.ToSlash(imgPath)+`"}`)); err != nil {
			t.Fatalf("%s: %v", tool, err)
		}
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache holds %d images, want 1", s.cache.Len())
	}
}
