package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/batcapture/internal/pipeline"
)

// DefaultWhitelist restricts recognition to decimal digits.
const DefaultWhitelist = "0123456789"

// ErrClosed is returned by Recognize after Close.
var ErrClosed = errors.New("engine closed")

// Config configures an Engine.
type Config struct {
	Language       string  // Tesseract language code, default "eng"
	TessdataPrefix string  // optional tessdata directory
	Whitelist      string  // default DefaultWhitelist
	Contrast       float64 // contrast boost in percent, 0 = none
}

// Engine recognizes text in frames.
type Engine struct {
	mu       sync.Mutex
	client   *gosseract.Client
	contrast float64
	closed   bool
}

// NewEngine creates and initializes a Tesseract client. Tesseract loads its
// language data lazily, so the client is warmed up on a blank page to
// surface setup problems here rather than on the first frame.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Whitelist == "" {
		cfg.Whitelist = DefaultWhitelist
	}

	if cfg.TessdataPrefix != "" {
		info, err := os.Stat(cfg.TessdataPrefix)
		if err != nil {
			return nil, fmt.Errorf("%w: tessdata: %v", pipeline.ErrEngineSetup, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: tessdata %s is not a directory", pipeline.ErrEngineSetup, cfg.TessdataPrefix)
		}
	}

	client := gosseract.NewClient()

	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: failed to set tessdata path: %v", pipeline.ErrEngineSetup, err)
		}
	}
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set language: %v", pipeline.ErrEngineSetup, err)
	}
	if err := client.SetWhitelist(cfg.Whitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set whitelist: %v", pipeline.ErrEngineSetup, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set page segmentation mode: %v", pipeline.ErrEngineSetup, err)
	}

	e := &Engine{client: client, contrast: cfg.Contrast}
	if _, err := e.recognize(blankPage()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", pipeline.ErrEngineSetup, err)
	}
	return e, nil
}

// Recognize returns the raw text Tesseract reads in img.
func (e *Engine) Recognize(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: no frame", pipeline.ErrRecognition)
	}

	text, err := e.recognize(Preprocess(img, e.contrast))
	if err != nil {
		return "", fmt.Errorf("%w: %v", pipeline.ErrRecognition, err)
	}
	return text, nil
}

func (e *Engine) recognize(img image.Image) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", ErrClosed
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Close releases the Tesseract client. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.client.Close()
}

// Preprocess boosts contrast by percent and converts to grayscale.
func Preprocess(img image.Image, percent float64) *image.Gray {
	if percent != 0 {
		img = adjust.Contrast(img, percent/100)
	}
	return effect.Grayscale(img)
}

func blankPage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

// Info describes the OCR subsystem.
type Info struct {
	Available      bool   `json:"available"`
	Version        string `json:"version,omitempty"`
	Backend        string `json:"backend"`
	Language       string `json:"language"`
	TessdataPrefix string `json:"tessdata_prefix,omitempty"`
	Error          string `json:"error,omitempty"`
}

// GetInfo reports whether an engine can be built with cfg.
func GetInfo(cfg Config) Info {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	info := Info{
		Backend:        "gosseract",
		Language:       cfg.Language,
		TessdataPrefix: cfg.TessdataPrefix,
	}

	e, err := NewEngine(cfg)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer e.Close()

	info.Available = true
	info.Version = e.client.Version()
	return info
}
