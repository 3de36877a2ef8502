package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

// createInMemoryImage creates a solid colour image.
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createNoiseImage creates an image that compresses badly, so JPEG sizes
// track pixel counts.
func createNoiseImage(width, height int) image.Image {
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func TestClone_Independent(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(1, 1, color.RGBA{255, 0, 0, 255})

	dup := Clone(src)
	src.Set(1, 1, color.RGBA{0, 0, 255, 255})

	r, g, b, _ := dup.At(1, 1).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 {
		t.Errorf("clone changed with source: got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestEncodeJPEG(t *testing.T) {
	img := createInMemoryImage(64, 48, color.RGBA{10, 200, 30, 255})

	data, err := EncodeJPEG(img, 85)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
		t.Errorf("decoded size: got %v", decoded.Bounds())
	}
}

func TestEncodeJPEG_QualityAffectsSize(t *testing.T) {
	img := createNoiseImage(120, 120)

	low, err := EncodeJPEG(img, 20)
	if err != nil {
		t.Fatal(err)
	}
	high, err := EncodeJPEG(img, 95)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(high) {
		t.Errorf("quality 20 (%d bytes) should be smaller than quality 95 (%d bytes)", len(low), len(high))
	}
}

func TestScale(t *testing.T) {
	img := createInMemoryImage(200, 100, color.White)

	out := Scale(img, 0.25)
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 25 {
		t.Errorf("Scale: got %v, want 50x25", out.Bounds())
	}

	tiny := Scale(img, 1e-6)
	if tiny.Bounds().Dx() != 1 || tiny.Bounds().Dy() != 1 {
		t.Errorf("Scale clamp: got %v, want 1x1", tiny.Bounds())
	}
}

func TestPreview(t *testing.T) {
	img := createInMemoryImage(100, 60, color.RGBA{255, 0, 0, 255})

	result, err := Preview(img, 1.0)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if result.Width != 100 || result.Height != 60 {
		t.Errorf("dimensions: got %dx%d, want 100x60", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	raw, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Errorf("preview is not a PNG: %v", err)
	}
}

func TestPreview_Scaled(t *testing.T) {
	img := createInMemoryImage(100, 60, color.Black)

	result, err := Preview(img, 0.5)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if result.Width != 50 || result.Height != 30 {
		t.Errorf("dimensions: got %dx%d, want 50x30", result.Width, result.Height)
	}
}
