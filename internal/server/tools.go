package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// CropPresets are the named regions accepted by crop_select.
var CropPresets = []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center", "full"}

func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Capture modal
		{
			Name:        "capture_open",
			Description: "Open the capture modal. Acquires the camera; fails without opening when the camera is unavailable.",
			InputSchema: noArgs(),
		},
		{
			Name:        "capture_snap",
			Description: "Copy the current camera frame at native resolution, release the camera and move to the save state.",
			InputSchema: noArgs(),
		},
		{
			Name:        "crop_start",
			Description: "Start cropping a copy of the captured frame.",
			InputSchema: noArgs(),
		},
		{
			Name:        "crop_rotate",
			Description: "Rotate the crop image by one degree.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"direction": map[string]interface{}{
						"type":        "integer",
						"enum":        []int{-1, 1},
						"description": "-1 for counter-clockwise, 1 for clockwise",
					},
				},
				"required": []string{"direction"},
			},
		},
		{
			Name:        "crop_select",
			Description: "Move the crop box, either to a named preset or to explicit coordinates. The box is clamped to the frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"preset": map[string]interface{}{
						"type":        "string",
						"enum":        CropPresets,
						"description": "Named region; takes precedence over coordinates",
					},
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
				},
			},
		},
		{
			Name:        "crop_apply",
			Description: "Replace the frame with the selected region and return to the save state.",
			InputSchema: noArgs(),
		},
		{
			Name:        "crop_cancel",
			Description: "Discard the crop and return to the save state with the frame unchanged.",
			InputSchema: noArgs(),
		},
		{
			Name:        "capture_upload",
			Description: "Upload the frame as JPEG. Oversized images are scaled down once to fit the byte budget. On success the modal closes and the page reloads.",
			InputSchema: noArgs(),
		},
		{
			Name:        "capture_preview",
			Description: "Return the current frame as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
			},
		},
		{
			Name:        "capture_close",
			Description: "Close the capture modal, releasing the camera and any crop session.",
			InputSchema: noArgs(),
		},

		// Scan modal
		{
			Name:        "scan_open",
			Description: "Open the scanner. Acquires the camera and starts recognizing labels in the background.",
			InputSchema: noArgs(),
		},
		{
			Name:        "scan_status",
			Description: "Report the scanner state, current candidate and last recognized text.",
			InputSchema: noArgs(),
		},
		{
			Name:        "scan_close",
			Description: "Stop the scanner. Navigates to the label search when a label was confirmed.",
			InputSchema: noArgs(),
		},

		// Helpers
		{
			Name:        "fit_scale",
			Description: "Compute the one-pass scale factor that fits an encoded image of the given size into a byte budget.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Current encoded size in bytes",
					},
					"budget": map[string]interface{}{
						"type":        "integer",
						"description": "Target size in bytes. Default upload.max_bytes",
					},
					"beta": map[string]interface{}{
						"type":        "number",
						"description": "Fitter exponent. Default upload.beta",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Optional width to scale",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Optional height to scale",
					},
				},
				"required": []string{"size"},
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
