package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// preprocessProperties describes the blur and edge detection arguments shared
// by hough_detect_circles and hough_edge_detect.
func preprocessProperties() map[string]interface{} {
	return map[string]interface{}{
		"blur": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"median", "gaussian"},
			"description": "Blur filter applied before edge detection (default median)",
			"default":     "median",
		},
		"blur_ksize": map[string]interface{}{
			"type":        "integer",
			"description": "Blur kernel size, odd from 1 to 21; 1 disables blurring (default 5)",
			"default":     5,
		},
		"edges": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"canny", "sobel"},
			"description": "Edge detector (default canny)",
			"default":     "canny",
		},
		"edges_ksize": map[string]interface{}{
			"type":        "integer",
			"description": "Canny gradient aperture: 3, 5 or 7 (default 3)",
			"default":     3,
		},
		"canny_low": map[string]interface{}{
			"type":        "integer",
			"description": "Low hysteresis threshold for Canny (default 100)",
			"default":     100,
		},
		"canny_high": map[string]interface{}{
			"type":        "integer",
			"description": "High hysteresis threshold for Canny (default 200)",
			"default":     200,
		},
		"sobel_threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Gradient magnitude (0-255) at which a Sobel pixel becomes an edge (default 128)",
			"default":     128,
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	detectProps := preprocessProperties()
	detectProps["path"] = pathProperty()
	for name, prop := range map[string]map[string]interface{}{
		"min_radius": {
			"type":        "integer",
			"description": "Minimum circle radius in pixels (default 15)",
			"default":     15,
		},
		"max_radius": {
			"type":        "integer",
			"description": "Maximum circle radius in pixels (default 30)",
			"default":     30,
		},
		"peak_threshold": {
			"type":        "integer",
			"description": "Minimum accumulator votes for a circle; a perfect circle collects about 361 (default 125)",
			"default":     125,
		},
		"binning": {
			"type":        "boolean",
			"description": "Keep only the strongest candidate per bin (default true)",
			"default":     true,
		},
		"bin_size": {
			"type":        "integer",
			"description": "Bin edge length in pixels, at least 5 (default 32)",
			"default":     32,
		},
		"spacing": {
			"type":        "boolean",
			"description": "Drop candidates crowding an already kept circle (default true)",
			"default":     true,
		},
		"spacing_size": {
			"type":        "integer",
			"description": "Minimum distance between kept circle centers in pixels (default 40)",
			"default":     40,
		},
		"mode": {
			"type":        "string",
			"enum":        []string{"sequential", "parallel", "distributed"},
			"description": "How votes are accumulated (default set by the server)",
		},
		"threads": {
			"type":        "integer",
			"description": "Voting goroutines in parallel mode (default set by the server)",
		},
		"annotate": {
			"type":        "boolean",
			"description": "Return the image with the circles drawn as base64-encoded PNG (default false)",
			"default":     false,
		},
		"color": {
			"type":        "string",
			"description": "Outline color of annotated circles as #RRGGBB (default #FF0000)",
			"default":     "#FF0000",
		},
	} {
		detectProps[name] = prop
	}

	edgeProps := preprocessProperties()
	edgeProps["path"] = pathProperty()

	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The image stays cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "hough_detect_circles",
			Description: "Find and count circles with a circle Hough transform. Returns each circle's center, radius, vote count, confidence and fill color, plus phase timings.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "hough_edge_detect",
			Description: "Return the binary edge map the circle transform votes on, as base64-encoded PNG. Useful for tuning blur and edge parameters.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": edgeProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "hough_run_stats",
			Description: "Return the number of detections run by this server and their average phase timings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"reset": map[string]interface{}{
						"type":        "boolean",
						"description": "Clear the recorded runs after reporting them (default false)",
						"default":     false,
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
