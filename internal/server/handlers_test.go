package server

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/batcapture/internal/capture"
	"github.com/ironsheep/batcapture/internal/imaging"
	"github.com/ironsheep/batcapture/internal/pipeline"
	"github.com/ironsheep/batcapture/internal/scan"
)

// callTool sends a tools/call request through handleRequest.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
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

// decodeResult unmarshals the text content of a successful tool call.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
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
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
}

// mustCall runs a tool and decodes its capture status.
func mustCall(t *testing.T, s *Server, name string, args interface{}) CaptureStatus {
	t.Helper()
	var st CaptureStatus
	decodeResult(t, callTool(t, s, name, args), &st)
	return st
}

func buttonsOf(t *testing.T, m message) []string {
	t.Helper()
	raw, ok := m.Params["buttons"].([]interface{})
	if !ok {
		t.Fatalf("buttons params: %v", m.Params)
	}
	out := make([]string, len(raw))
	for i, b := range raw {
		out[i], _ = b.(string)
	}
	return out
}

func wantButtons(s capture.State) []string {
	var out []string
	for _, b := range capture.Buttons(s) {
		out = append(out, string(b))
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHandleToolsCall_CaptureFlow(t *testing.T) {
	up := &fakeUploader{}
	s, out := newTestServer(t, Deps{Uploader: up})

	st := mustCall(t, s, "capture_open", nil)
	if st.State != "capture" || !st.Camera || st.Session == "" {
		t.Fatalf("after open: %+v", st)
	}
	note, _ := lastNotification(out.notifications(t), "host/buttons")
	if got := buttonsOf(t, note); !sameStrings(got, wantButtons(capture.StateCapture)) {
		t.Errorf("capture buttons: got %v", got)
	}

	st = mustCall(t, s, "capture_snap", nil)
	if st.State != "save" || st.Camera || st.Width != 80 || st.Height != 60 {
		t.Fatalf("after snap: %+v", st)
	}

	st = mustCall(t, s, "crop_start", nil)
	if st.State != "cropping" || !st.Cropping {
		t.Fatalf("after crop_start: %+v", st)
	}
	note, _ = lastNotification(out.notifications(t), "host/buttons")
	if got := buttonsOf(t, note); !sameStrings(got, wantButtons(capture.StateCropping)) {
		t.Errorf("cropping buttons: got %v", got)
	}

	mustCall(t, s, "crop_select", map[string]interface{}{"preset": "top-half"})
	st = mustCall(t, s, "crop_apply", nil)
	if st.State != "save" || st.Cropping || st.Width != 80 || st.Height != 30 {
		t.Fatalf("after crop_apply: %+v", st)
	}

	st = mustCall(t, s, "capture_upload", nil)
	if st.State != "closed" || st.Width != 0 {
		t.Fatalf("after upload: %+v", st)
	}
	if b := up.last().Bounds(); b.Dx() != 80 || b.Dy() != 30 {
		t.Errorf("uploaded %v, want 80x30", b)
	}

	got := methods(out.notifications(t))
	if n := len(got); n < 2 || got[n-2] != "host/close" || got[n-1] != "host/reload" {
		t.Errorf("upload should close then reload, got %v", got)
	}
}

func TestHandleToolsCall_UploadFailureShowsError(t *testing.T) {
	up := &fakeUploader{err: &pipeline.UploadError{Status: 413, Detail: "too large"}}
	s, out := newTestServer(t, Deps{Uploader: up})

	mustCall(t, s, "capture_open", nil)
	mustCall(t, s, "capture_snap", nil)

	resp := callTool(t, s, "capture_upload", nil)
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("expected tool error, got %+v", resp)
	}
	if !strings.Contains(resp.Error.Data.(string), "413") {
		t.Errorf("error data: %v", resp.Error.Data)
	}
	if s.capture.State() != capture.StateSave {
		t.Errorf("state: got %s, want save", s.capture.State())
	}

	errNote, ok := lastNotification(out.notifications(t), "host/error")
	if !ok || errNote.Params["message"] != "Upload failed (HTTP 413): too large" {
		t.Errorf("error notification: %+v", errNote)
	}
	if errNote.Params["dismiss_after_ms"] != float64(50) {
		t.Errorf("dismiss_after_ms: got %v, want 50", errNote.Params["dismiss_after_ms"])
	}

	// testConfig dismisses after 50ms
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, ok := lastNotification(out.notifications(t), "host/error_cleared"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("error was never cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandleToolsCall_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args interface{}
	}{
		{"snap while closed", "capture_snap", nil},
		{"crop while closed", "crop_start", nil},
		{"rotate while closed", "crop_rotate", map[string]interface{}{"direction": 1}},
		{"apply while closed", "crop_apply", nil},
		{"cancel while closed", "crop_cancel", nil},
		{"upload while closed", "capture_upload", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, Deps{})
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_CropSelect(t *testing.T) {
	tests := []struct {
		name    string
		args    interface{}
		wantErr bool
		wantW   int
		wantH   int
	}{
		{"preset", map[string]interface{}{"preset": "bottom-right"}, false, 40, 30},
		{"coordinates", map[string]interface{}{"x1": 10, "y1": 5, "x2": 30, "y2": 25}, false, 20, 20},
		{"clamped", map[string]interface{}{"x1": 60, "y1": 40, "x2": 200, "y2": 200}, false, 20, 20},
		{"missing coordinates", map[string]interface{}{"x1": 1}, true, 0, 0},
		{"unknown preset", map[string]interface{}{"preset": "nowhere"}, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, Deps{})
			mustCall(t, s, "capture_open", nil)
			mustCall(t, s, "capture_snap", nil)
			mustCall(t, s, "crop_start", nil)

			resp := callTool(t, s, "crop_select", tt.args)
			if tt.wantErr {
				if resp.Error == nil {
					t.Fatal("expected error")
				}
				if !s.capture.Cropping() {
					t.Error("a rejected selection must keep the crop session")
				}
				return
			}
			if resp.Error != nil {
				t.Fatalf("Unexpected error: %v", resp.Error.Data)
			}

			st := mustCall(t, s, "crop_apply", nil)
			if st.Width != tt.wantW || st.Height != tt.wantH {
				t.Errorf("cropped to %dx%d, want %dx%d", st.Width, st.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestHandleToolsCall_CropRotate(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	mustCall(t, s, "capture_open", nil)
	mustCall(t, s, "capture_snap", nil)
	mustCall(t, s, "crop_start", nil)

	if resp := callTool(t, s, "crop_rotate", map[string]interface{}{"direction": -1}); resp.Error != nil {
		t.Fatalf("rotate -1: %v", resp.Error.Data)
	}
	if resp := callTool(t, s, "crop_rotate", map[string]interface{}{"direction": 5}); resp.Error == nil {
		t.Error("direction 5 should be rejected")
	}

	st := mustCall(t, s, "crop_cancel", nil)
	if st.State != "save" || st.Width != 80 || st.Height != 60 {
		t.Errorf("cancel should keep the frame: %+v", st)
	}
}

func TestHandleToolsCall_CapturePreview(t *testing.T) {
	s, _ := newTestServer(t, Deps{})

	if resp := callTool(t, s, "capture_preview", nil); resp.Error == nil {
		t.Fatal("preview without a frame should fail")
	}

	mustCall(t, s, "capture_open", nil)
	mustCall(t, s, "capture_snap", nil)

	var res imaging.PreviewResult
	decodeResult(t, callTool(t, s, "capture_preview", map[string]interface{}{"scale": 0.5}), &res)
	if res.Width != 40 || res.Height != 30 {
		t.Errorf("preview: got %dx%d, want 40x30", res.Width, res.Height)
	}
	if res.MimeType != "image/png" {
		t.Errorf("mime: got %s", res.MimeType)
	}
	if _, err := base64.StdEncoding.DecodeString(res.ImageBase64); err != nil {
		t.Errorf("image_base64: %v", err)
	}
}

func TestHandleToolsCall_CaptureClose(t *testing.T) {
	s, out := newTestServer(t, Deps{})
	mustCall(t, s, "capture_open", nil)
	mustCall(t, s, "capture_snap", nil)
	mustCall(t, s, "crop_start", nil)

	st := mustCall(t, s, "capture_close", nil)
	if st.State != "closed" || st.Cropping || st.Camera || st.Width != 0 {
		t.Errorf("after close: %+v", st)
	}

	// Closing twice is harmless and silent
	before := len(out.notifications(t))
	mustCall(t, s, "capture_close", nil)
	if after := len(out.notifications(t)); after != before {
		t.Errorf("second close emitted %d notifications", after-before)
	}
}

func TestHandleToolsCall_ScanLifecycle(t *testing.T) {
	s, out := newTestServer(t, Deps{Engine: recognizerReading("nothing to see")})

	var st scan.Status
	decodeResult(t, callTool(t, s, "scan_open", nil), &st)
	if st.State != scan.StateScanning || st.ID == "" {
		t.Fatalf("after open: %+v", st)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		decodeResult(t, callTool(t, s, "scan_status", nil), &st)
		if st.Iterations >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scanner made no progress: %+v", st)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if st.LastText != "nothing to see" {
		t.Errorf("last text: got %q", st.LastText)
	}

	decodeResult(t, callTool(t, s, "scan_close", nil), &st)
	if st.State != scan.StateCancelled {
		t.Errorf("after close: %+v", st)
	}
	if _, ok := lastNotification(out.notifications(t), "host/navigate"); ok {
		t.Error("no label, no navigation")
	}
	fb, ok := lastNotification(out.notifications(t), "host/feedback")
	if !ok || fb.Params["text"] != "nothing to see" {
		t.Errorf("feedback: %+v", fb)
	}
}

func TestHandleToolsCall_FitScale(t *testing.T) {
	s, _ := newTestServer(t, Deps{})

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantScale  float64
		wantResize bool
		wantW      int
		wantH      int
	}{
		{"within budget", map[string]interface{}{"size": 1000, "budget": 2000}, 1, false, 0, 0},
		{"five times over", map[string]interface{}{"size": 1000, "budget": 200, "beta": 0.6, "width": 1000, "height": 500}, math.Pow(0.2, 0.6), true, 380, 190},
		{"beta one", map[string]interface{}{"size": 400, "budget": 100, "beta": 1.0}, 0.25, true, 0, 0},
		{"config budget", map[string]interface{}{"size": 200 * 1024}, 1, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res FitScaleResult
			decodeResult(t, callTool(t, s, "fit_scale", tt.args), &res)
			if math.Abs(res.Scale-tt.wantScale) > 1e-9 {
				t.Errorf("scale: got %v, want %v", res.Scale, tt.wantScale)
			}
			if res.Resize != tt.wantResize {
				t.Errorf("resize: got %v", res.Resize)
			}
			if res.Width != tt.wantW || res.Height != tt.wantH {
				t.Errorf("dims: got %dx%d, want %dx%d", res.Width, res.Height, tt.wantW, tt.wantH)
			}
		})
	}

	if resp := callTool(t, s, "fit_scale", map[string]interface{}{"size": 0}); resp.Error == nil {
		t.Error("size 0 should be rejected")
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s, _ := newTestServer(t, Deps{})

	t.Run("unknown tool", func(t *testing.T) {
		resp := callTool(t, s, "image_load", nil)
		if resp.Error == nil || resp.Error.Code != -32000 {
			t.Fatalf("got %+v", resp.Error)
		}
		if !strings.Contains(resp.Error.Data.(string), "unknown tool") {
			t.Errorf("data: %v", resp.Error.Data)
		}
	})

	t.Run("invalid params", func(t *testing.T) {
		resp := s.handleRequest(&MCPRequest{
			JSONRPC: "2.0",
			ID:      1,
			Method:  "tools/call",
			Params:  json.RawMessage(`"not an object"`),
		})
		if resp.Error == nil || resp.Error.Code != -32602 {
			t.Fatalf("got %+v", resp.Error)
		}
	})

	t.Run("bad arguments", func(t *testing.T) {
		resp := callTool(t, s, "fit_scale", map[string]interface{}{"size": "big"})
		if resp.Error == nil {
			t.Fatal("expected error")
		}
		if data, _ := resp.Error.Data.(string); !strings.HasPrefix(data, "invalid arguments") {
			t.Errorf("data: %q", data)
		}
	})
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	tests := []struct {
		tool string
		want string
	}{
		{"crop_rotate", "crop_rotate needs direction"},
		{"crop_select", "crop_select needs a preset"},
		{"fit_scale", "fit_scale needs a positive size"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			s, _ := newTestServer(t, Deps{})
			mustCall(t, s, "capture_open", nil)
			mustCall(t, s, "capture_snap", nil)
			mustCall(t, s, "crop_start", nil)

			// No "arguments" member at all
			resp := callTool(t, s, tt.tool, nil)
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			data, _ := resp.Error.Data.(string)
			if !strings.Contains(data, tt.want) {
				t.Errorf("error: got %q, want it to contain %q", data, tt.want)
			}
			if strings.Contains(data, "unexpected end of JSON input") {
				t.Errorf("raw decoder error leaked: %q", data)
			}
		})
	}
}
