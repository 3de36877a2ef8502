// Package host defines the contract between the capture/scan state machines
// and the page that displays them.
//
// The state machines never touch a UI directly. They tell the host which
// buttons are visible, what feedback text to show, when to display or clear
// an error, and when to close a modal, reload or navigate.
package host

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Modal identifies one of the two dialogs.
type Modal string

const (
	ModalCapture Modal = "capture"
	ModalScan    Modal = "scan"
)

// Button is a control in a modal's button row.
type Button string

const (
	ButtonSnap        Button = "snap"
	ButtonCrop        Button = "crop"
	ButtonUpload      Button = "upload"
	ButtonRotateLeft  Button = "rotate-left"
	ButtonRotateRight Button = "rotate-right"
	ButtonApply       Button = "apply"
	ButtonCancel      Button = "cancel"
	ButtonClose       Button = "close"
)

// Host is the page-side collaborator.
type Host interface {
	// ShowButtons makes exactly the given buttons visible in modal.
	ShowButtons(m Modal, buttons []Button)

	// SetFeedback replaces the live feedback text of modal.
	SetFeedback(m Modal, text string)

	// ShowError displays msg in the modal's error region until cleared.
	ShowError(m Modal, msg string)

	// ShowTransientError displays msg and announces that ClearError will
	// follow after the given delay.
	ShowTransientError(m Modal, msg string, after time.Duration)

	// ClearError empties the modal's error region.
	ClearError(m Modal)

	// CloseModal hides the modal.
	CloseModal(m Modal)

	// Reload reloads the host page.
	Reload()

	// Navigate sends the page to target.
	Navigate(target string)
}

// SearchURL builds the label hand-off target, e.g. "/bat/?search=1234567890".
func SearchURL(base, label string) string {
	if base == "" {
		base = "/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%s?search=%s", base, url.QueryEscape(label))
}
