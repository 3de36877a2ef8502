// Package server exposes the capture and scan modals over MCP (Model Context
// Protocol).
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and host notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Capture modal:
//   - capture_open, capture_snap, capture_upload, capture_close
//   - crop_start, crop_rotate, crop_select, crop_apply, crop_cancel
//   - capture_preview: current frame as base64 PNG
//
// Scan modal:
//   - scan_open, scan_status, scan_close
//
// Helpers:
//   - fit_scale: one-pass upload scale factor
//
// # Host Notifications
//
// The Server is the page both modals report to. Each host call is written
// as a JSON-RPC notification without an ID:
//
//	host/buttons        {"modal", "buttons"}
//	host/feedback       {"modal", "text"}
//	host/error          {"modal", "message", "dismiss_after_ms"}
//	host/error_cleared  {"modal"}
//	host/close          {"modal"}
//	host/reload
//	host/navigate       {"url"}
//
// The scanner runs in its own goroutine, so notifications can arrive between
// responses. All writes to stdout are serialized.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC errors with code -32000. Invalid
// request parameters return -32602. Unknown methods return -32601.
package server
