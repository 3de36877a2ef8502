package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// Clone returns a lossless, independent copy of img.
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// EncodeJPEG compresses img as JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Scale resizes img by factor s using Lanczos resampling. Dimensions are
// floored and never drop below 1 pixel.
func Scale(img image.Image, s float64) *image.NRGBA {
	b := img.Bounds()
	w, h := FitDimensions(b.Dx(), b.Dy(), s)
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// PreviewResult contains an image encoded for display.
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Preview encodes img as a base64 PNG, optionally rescaled by scale.
func Preview(img image.Image, scale float64) (*PreviewResult, error) {
	out := img
	if scale != 1.0 && scale > 0 {
		out = Scale(img, scale)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &PreviewResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
