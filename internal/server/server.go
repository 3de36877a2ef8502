package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/ironsheep/batcapture/internal/camera"
	"github.com/ironsheep/batcapture/internal/capture"
	"github.com/ironsheep/batcapture/internal/config"
	"github.com/ironsheep/batcapture/internal/crop"
	"github.com/ironsheep/batcapture/internal/imaging"
	"github.com/ironsheep/batcapture/internal/scan"
	"github.com/ironsheep/batcapture/internal/upload"
)

// Name and Version identify the server in the initialize handshake.
const (
	Name    = "batcapture"
	Version = "0.1.0"
)

// Deps overrides the collaborators built from the configuration.
type Deps struct {
	Device   camera.Device      // nil = file device over camera.frames
	Engine   scan.EngineFactory // recognition engine for the scanner
	Uploader capture.Uploader   // nil = upload client for the configured endpoint
	Debug    bool
}

// Server handles JSON-RPC communication and hosts both modals.
type Server struct {
	cfg     *config.Config
	cache   *imaging.ImageCache
	capture *capture.Machine
	scan    *scan.Machine

	outMu sync.Mutex
	out   io.Writer
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a server for cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, deps Deps) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:   cfg,
		cache: imaging.NewImageCache(),
		out:   os.Stdout,
	}

	device := deps.Device
	if device == nil {
		device = camera.NewFileDevice(s.cache, cfg.Camera.Frames...)
	}

	uploader := deps.Uploader
	if uploader == nil {
		endpoint, err := cfg.Endpoint()
		if err != nil {
			log.Printf("upload disabled: %v", err)
		} else {
			uploader = upload.New(upload.Config{
				URL:      endpoint,
				MaxBytes: cfg.Upload.MaxBytes,
				Quality:  cfg.Upload.Quality,
				Beta:     cfg.Upload.Beta,
				Timeout:  cfg.UploadTimeout(),
			}, nil)
		}
	}

	var cropFactory crop.WidgetFactory
	if bg, err := crop.ParseBackground(cfg.Crop.Background); err == nil {
		cropFactory = crop.NewRegionFactory(bg)
	} else {
		log.Printf("crop background %q ignored: %v", cfg.Crop.Background, err)
	}

	s.capture = capture.New(capture.Options{
		Device:       device,
		Sink:         camera.NewViewSink("capture-video"),
		Host:         s,
		Uploader:     uploader,
		CropFactory:  cropFactory,
		ErrorDismiss: cfg.ErrorDismiss(),
	})
	s.scan = scan.New(scan.Options{
		Device:         device,
		Sink:           camera.NewViewSink("scan-video"),
		Host:           s,
		Engine:         deps.Engine,
		LabelLength:    cfg.Scan.LabelLength,
		Threshold:      cfg.Scan.Threshold,
		IterationDelay: cfg.IterationDelay(),
		FailureBackoff: cfg.FailureBackoff(),
		SearchPath:     cfg.Scan.SearchPath,
		Debug:          deps.Debug,
	})
	return s
}

// Run serves requests from stdin and writes to stdout.
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from in until EOF. Responses
// and host notifications share out; writes are serialized. Both modals are
// closed before Serve returns.
func (s *Server) Serve(in io.Reader, out io.Writer) error {
	s.outMu.Lock()
	s.out = out
	s.outMu.Unlock()
	defer s.Shutdown()

	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			continue
		}

		if resp := s.handleRequest(&req); resp != nil {
			s.write(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// Shutdown closes both modals, releasing any camera and engine they hold.
func (s *Server) Shutdown() {
	s.scan.Close()
	s.capture.Close()
}

func (s *Server) write(v interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := json.NewEncoder(s.out).Encode(v); err != nil {
		log.Printf("Failed to encode message: %v", err)
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": Version,
			},
		},
	}
}
