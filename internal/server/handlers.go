package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/batcapture/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "capture_open", "crop_rotate").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Capture modal
	case "capture_open":
		return s.captureStep(s.capture.Open(context.Background()))
	case "capture_snap":
		return s.captureStep(s.capture.CaptureFrame())
	case "crop_start":
		return s.captureStep(s.capture.StartCropping())
	case "crop_rotate":
		return s.handleCropRotate(args)
	case "crop_select":
		return s.handleCropSelect(args)
	case "crop_apply":
		return s.captureStep(s.capture.ApplyCrop())
	case "crop_cancel":
		return s.captureStep(s.capture.CancelCropping())
	case "capture_upload":
		return s.captureStep(s.capture.Upload(context.Background()))
	case "capture_preview":
		return s.handleCapturePreview(args)
	case "capture_close":
		s.capture.Close()
		return s.captureStatus(), nil

	// Scan modal
	case "scan_open":
		if err := s.scan.Open(context.Background()); err != nil {
			return nil, err
		}
		return s.scan.Status(), nil
	case "scan_status":
		return s.scan.Status(), nil
	case "scan_close":
		s.scan.Close()
		return s.scan.Status(), nil

	// Helpers
	case "fit_scale":
		return s.handleFitScale(args)

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

// decodeArgs unmarshals optional tool arguments; empty input leaves v as is.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Capture Handlers ===

// CaptureStatus describes the capture modal after a tool call.
type CaptureStatus struct {
	Session  string `json:"session,omitempty"`
	State    string `json:"state"`
	Cropping bool   `json:"cropping"`
	Camera   bool   `json:"camera"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

func (s *Server) captureStatus() CaptureStatus {
	st := CaptureStatus{
		Session:  s.capture.SessionID(),
		State:    string(s.capture.State()),
		Cropping: s.capture.Cropping(),
		Camera:   s.capture.CameraActive(),
	}
	if frame := s.capture.Frame(); frame != nil {
		st.Width = frame.Bounds().Dx()
		st.Height = frame.Bounds().Dy()
	}
	return st
}

func (s *Server) captureStep(err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return s.captureStatus(), nil
}

type cropRotateArgs struct {
	Direction *int `json:"direction"`
}

func (s *Server) handleCropRotate(args json.RawMessage) (interface{}, error) {
	var a cropRotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Direction == nil {
		return nil, errors.New("crop_rotate needs direction (-1 or 1)")
	}
	return s.captureStep(s.capture.Rotate(*a.Direction))
}

type cropSelectArgs struct {
	Preset string `json:"preset"`
	X1     *int   `json:"x1"`
	Y1     *int   `json:"y1"`
	X2     *int   `json:"x2"`
	Y2     *int   `json:"y2"`
}

func (s *Server) handleCropSelect(args json.RawMessage) (interface{}, error) {
	var a cropSelectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Preset != "" {
		return s.captureStep(s.capture.SelectPreset(a.Preset))
	}
	if a.X1 == nil || a.Y1 == nil || a.X2 == nil || a.Y2 == nil {
		return nil, errors.New("crop_select needs a preset or x1, y1, x2 and y2")
	}
	return s.captureStep(s.capture.Select(image.Rect(*a.X1, *a.Y1, *a.X2, *a.Y2)))
}

type capturePreviewArgs struct {
	Scale float64 `json:"scale"`
}

func (s *Server) handleCapturePreview(args json.RawMessage) (interface{}, error) {
	var a capturePreviewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	frame := s.capture.Frame()
	if frame == nil {
		return nil, errors.New("no frame captured")
	}
	return imaging.Preview(frame, a.Scale)
}

// === Helper Handlers ===

type fitScaleArgs struct {
	Size   int64   `json:"size"`
	Budget int64   `json:"budget"`
	Beta   float64 `json:"beta"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// FitScaleResult is the outcome of fit_scale.
type FitScaleResult struct {
	Scale  float64 `json:"scale"`
	Resize bool    `json:"resize"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

func (s *Server) handleFitScale(args json.RawMessage) (interface{}, error) {
	var a fitScaleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Size <= 0 {
		return nil, fmt.Errorf("fit_scale needs a positive size, got %d", a.Size)
	}
	if a.Budget == 0 {
		a.Budget = s.cfg.Upload.MaxBytes
	}
	if a.Beta == 0 {
		a.Beta = s.cfg.Upload.Beta
	}

	scale := imaging.ScaleFactor(a.Size, a.Budget, a.Beta)
	res := FitScaleResult{Scale: scale, Resize: scale < 1}
	if a.Width > 0 && a.Height > 0 {
		res.Width, res.Height = imaging.FitDimensions(a.Width, a.Height, scale)
	}
	return res, nil
}
