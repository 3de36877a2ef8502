package crop

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// ParseBackground parses a hex colour such as "#202020" for the area a
// rotation exposes.
func ParseBackground(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid background colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// NewRegionFactory returns a WidgetFactory producing RegionWidgets. A nil
// background means opaque black.
func NewRegionFactory(bg color.Color) WidgetFactory {
	if bg == nil {
		bg = color.Black
	}
	return func(img image.Image, bounds image.Rectangle) (Widget, error) {
		return NewRegionWidget(img, bounds, bg)
	}
}

// RegionWidget is a crop/rotate widget backed by disintegration/imaging.
//
// The rotated image is rendered centred on the canvas, so the crop box
// always lives in canvas coordinates no matter the angle.
type RegionWidget struct {
	src      image.Image
	canvas   image.Rectangle
	box      image.Rectangle
	angle    float64
	bg       color.Color
	rendered *image.NRGBA
}

// NewRegionWidget creates a widget over img with the crop box initially
// covering the whole canvas.
func NewRegionWidget(img image.Image, canvas image.Rectangle, bg color.Color) (*RegionWidget, error) {
	if img == nil {
		return nil, fmt.Errorf("no image")
	}
	if canvas.Empty() {
		return nil, fmt.Errorf("empty canvas bounds")
	}
	return &RegionWidget{
		src:    img,
		canvas: canvas,
		box:    canvas,
		bg:     bg,
	}, nil
}

// Rotate adds deg degrees (clockwise) to the current rotation.
func (w *RegionWidget) Rotate(deg float64) {
	if w.src == nil {
		return
	}
	w.angle = math.Mod(w.angle+deg, 360)
	if w.angle < 0 {
		w.angle += 360
	}
	w.rendered = nil
}

// Angle returns the current clockwise rotation in degrees, in [0, 360).
func (w *RegionWidget) Angle() float64 {
	return w.angle
}

// Select moves the crop box, clamped to the canvas.
func (w *RegionWidget) Select(r image.Rectangle) error {
	if w.src == nil {
		return ErrDestroyed
	}
	r = r.Canon().Intersect(w.canvas)
	if r.Empty() {
		return ErrEmptySelection
	}
	w.box = r
	return nil
}

// Box returns the current crop box.
func (w *RegionWidget) Box() image.Rectangle {
	return w.box
}

// Bounds returns the canvas the crop box is restricted to.
func (w *RegionWidget) Bounds() image.Rectangle {
	return w.canvas
}

// Selection renders the rotated image and cuts out the crop box.
func (w *RegionWidget) Selection() (image.Image, error) {
	if w.src == nil {
		return nil, ErrDestroyed
	}

	rendered := w.render()
	rb := rendered.Bounds()

	// Offset that centres the rendered image on the canvas.
	offX := (rb.Dx() - w.canvas.Dx()) / 2
	offY := (rb.Dy() - w.canvas.Dy()) / 2

	r := w.box.Sub(w.canvas.Min).Add(image.Pt(offX, offY)).Intersect(rb)
	if r.Empty() {
		return nil, ErrEmptySelection
	}
	return imaging.Crop(rendered, r), nil
}

// Destroy drops the source image and any rendering.
func (w *RegionWidget) Destroy() {
	w.src = nil
	w.rendered = nil
}

func (w *RegionWidget) render() *image.NRGBA {
	if w.rendered != nil {
		return w.rendered
	}
	if w.angle == 0 {
		w.rendered = imaging.Clone(w.src)
	} else {
		// imaging rotates counter-clockwise for positive angles.
		w.rendered = imaging.Rotate(w.src, -w.angle, w.bg)
	}
	return w.rendered
}
