package server

import (
	"time"

	"github.com/ironsheep/batcapture/internal/host"
)

// The Server is the host of both modals: every host call becomes a
// notification on the output stream.

// ShowButtons emits host/buttons.
func (s *Server) ShowButtons(m host.Modal, buttons []host.Button) {
	if buttons == nil {
		buttons = []host.Button{}
	}
	s.notify("host/buttons", map[string]interface{}{
		"modal":   m,
		"buttons": buttons,
	})
}

// SetFeedback emits host/feedback.
func (s *Server) SetFeedback(m host.Modal, text string) {
	s.notify("host/feedback", map[string]interface{}{
		"modal": m,
		"text":  text,
	})
}

// ShowError emits host/error for a message that stays until cleared.
func (s *Server) ShowError(m host.Modal, msg string) {
	s.notify("host/error", map[string]interface{}{
		"modal":   m,
		"message": msg,
	})
}

// ShowTransientError emits host/error with the delay after which
// host/error_cleared follows.
func (s *Server) ShowTransientError(m host.Modal, msg string, after time.Duration) {
	s.notify("host/error", map[string]interface{}{
		"modal":            m,
		"message":          msg,
		"dismiss_after_ms": after.Milliseconds(),
	})
}

// ClearError emits host/error_cleared.
func (s *Server) ClearError(m host.Modal) {
	s.notify("host/error_cleared", map[string]interface{}{"modal": m})
}

// CloseModal emits host/close.
func (s *Server) CloseModal(m host.Modal) {
	s.notify("host/close", map[string]interface{}{"modal": m})
}

// Reload emits host/reload.
func (s *Server) Reload() {
	s.notify("host/reload", nil)
}

// Navigate emits host/navigate.
func (s *Server) Navigate(target string) {
	s.notify("host/navigate", map[string]interface{}{"url": target})
}

func (s *Server) notify(method string, params interface{}) {
	s.write(&MCPNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}
