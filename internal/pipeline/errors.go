// Package pipeline holds the error taxonomy shared by the capture, scan and
// upload flows.
//
// Each error class maps to one recovery policy:
//   - ErrCameraUnavailable: blocks the modal from opening, surfaced immediately.
//   - ErrEngineSetup: aborts a scan session, camera released, surfaced.
//   - ErrRecognition: one failed frame, recovered locally as a non-match.
//   - ErrUpload: recovered locally, surfaced as a dismissible message.
//   - ErrInvalidTransition: logged only, never shown to the user.
package pipeline

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrCameraUnavailable reports camera permission denial or hardware failure.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrEngineSetup reports that the recognition engine could not be initialized.
	ErrEngineSetup = errors.New("recognition engine setup failed")

	// ErrRecognition reports a single-frame recognition failure.
	ErrRecognition = errors.New("recognition failed")

	// ErrUpload is matched by every *UploadError via errors.Is.
	ErrUpload = errors.New("upload failed")

	// ErrInvalidTransition reports an action requested in an incompatible state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// MaxDetailLength is the number of characters of a failed upload response
// body that are kept for display.
const MaxDetailLength = 300

// UploadError describes a failed upload. Status is 0 when the request never
// produced an HTTP response.
type UploadError struct {
	Status int
	Detail string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("upload failed: %v", e.Err)
		}
		return "upload failed: " + e.Detail
	}
	if e.Detail == "" {
		return fmt.Sprintf("upload failed: HTTP %d", e.Status)
	}
	return fmt.Sprintf("upload failed: HTTP %d: %s", e.Status, e.Detail)
}

// Is makes errors.Is(err, ErrUpload) true for any *UploadError.
func (e *UploadError) Is(target error) bool {
	return target == ErrUpload
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Truncate shortens s to at most max characters (runes, not bytes).
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
