// Package crop implements the crop/rotate editing step of the capture flow.
//
// A Session wraps a lossless snapshot of the current frame and a Widget that
// provides the actual crop/rotate capability. Any Widget implementation can
// be plugged in through a WidgetFactory; RegionWidget is the built-in one.
package crop

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/batcapture/internal/imaging"
)

var (
	// ErrDestroyed is returned by operations on a destroyed session or widget.
	ErrDestroyed = errors.New("crop session destroyed")

	// ErrInvalidDirection is returned by Rotate for anything but -1 or +1.
	ErrInvalidDirection = errors.New("rotation direction must be -1 or +1")

	// ErrEmptySelection is returned when a selection does not overlap the canvas.
	ErrEmptySelection = errors.New("selection is empty")
)

// Widget is the crop/rotate capability.
type Widget interface {
	// Rotate turns the image by deg degrees, clockwise positive.
	Rotate(deg float64)

	// Select moves the crop box. The box is clamped to the canvas bounds.
	Select(r image.Rectangle) error

	// Bounds returns the canvas bounds the crop box is restricted to.
	Bounds() image.Rectangle

	// Selection renders the selected region as a new bitmap.
	Selection() (image.Image, error)

	// Destroy releases the widget. It must be safe to call more than once.
	Destroy()
}

// WidgetFactory builds a widget over img, restricted to bounds.
type WidgetFactory func(img image.Image, bounds image.Rectangle) (Widget, error)

// Session is the transient state of one cropping pass.
type Session struct {
	snapshot image.Image
	widget   Widget
}

// Start duplicates frame and instantiates a widget over the copy. An empty
// bounds rectangle means the frame's own bounds. A nil factory uses
// RegionWidget with a black background.
func Start(frame image.Image, bounds image.Rectangle, factory WidgetFactory) (*Session, error) {
	if frame == nil {
		return nil, errors.New("no frame to crop")
	}

	snapshot := imaging.Clone(frame)
	if bounds.Empty() {
		bounds = snapshot.Bounds()
	}
	if factory == nil {
		factory = NewRegionFactory(nil)
	}

	w, err := factory(snapshot, bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to create crop widget: %w", err)
	}
	return &Session{snapshot: snapshot, widget: w}, nil
}

// Rotate forwards a one-degree rotation to the widget. direction is -1
// (counter-clockwise) or +1 (clockwise).
func (s *Session) Rotate(direction int) error {
	if s.widget == nil {
		return ErrDestroyed
	}
	if direction != -1 && direction != 1 {
		return ErrInvalidDirection
	}
	s.widget.Rotate(float64(direction))
	return nil
}

// Select moves the crop box to r.
func (s *Session) Select(r image.Rectangle) error {
	if s.widget == nil {
		return ErrDestroyed
	}
	return s.widget.Select(r)
}

// SelectPreset moves the crop box to a named region of the canvas.
func (s *Session) SelectPreset(name string) error {
	if s.widget == nil {
		return ErrDestroyed
	}
	r, err := PresetRect(s.widget.Bounds(), name)
	if err != nil {
		return err
	}
	return s.widget.Select(r)
}

// Selection returns the widget's selected region.
func (s *Session) Selection() (image.Image, error) {
	if s.widget == nil {
		return nil, ErrDestroyed
	}
	return s.widget.Selection()
}

// Snapshot returns the duplicated frame the session edits.
func (s *Session) Snapshot() image.Image {
	return s.snapshot
}

// Destroy tears down the widget and drops the snapshot. Idempotent.
func (s *Session) Destroy() {
	if s.widget != nil {
		s.widget.Destroy()
	}
	s.widget = nil
	s.snapshot = nil
}

// Destroyed reports whether Destroy has been called.
func (s *Session) Destroyed() bool {
	return s.widget == nil
}

// PresetRect returns a named region of bounds.
//
// Names: top-left, top-right, bottom-left, bottom-right, top-half,
// bottom-half, left-half, right-half, center (middle 50%) and full.
func PresetRect(bounds image.Rectangle, name string) (image.Rectangle, error) {
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	var x1, y1, x2, y2 int

	switch name {
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, w, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, h
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, w, h
	case "top-half":
		x1, y1, x2, y2 = 0, 0, w, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, w, h
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, h
	case "right-half":
		x1, y1, x2, y2 = midX, 0, w, h
	case "center":
		qW := w / 4
		qH := h / 4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	case "full":
		x1, y1, x2, y2 = 0, 0, w, h
	default:
		return image.Rectangle{}, fmt.Errorf("unknown region: %s", name)
	}

	return image.Rect(x1, y1, x2, y2).Add(bounds.Min), nil
}
