package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// UploadConfig describes the image upload endpoint and size budget.
type UploadConfig struct {
	BaseURL        string  `yaml:"base_url"`         // page the modal lives on, e.g. "http://localhost:8080/bat/1234/"
	URL            string  `yaml:"url"`              // endpoint, resolved against BaseURL when relative
	MaxBytes       int64   `yaml:"max_bytes"`        // byte budget for the encoded image
	Quality        int     `yaml:"quality"`          // JPEG quality (1-100)
	Beta           float64 `yaml:"beta"`             // size fitter exponent
	TimeoutMs      int     `yaml:"timeout_ms"`       // HTTP timeout, 0 = none
	ErrorDismissMs int     `yaml:"error_dismiss_ms"` // how long a failed upload message stays up
}

// ScanConfig holds the label recognition tunables.
type ScanConfig struct {
	LabelLength      int    `yaml:"label_length"`       // digits in a label
	Threshold        int    `yaml:"threshold"`          // consecutive identical reads to confirm
	Whitelist        string `yaml:"whitelist"`          // recognition symbol set
	IterationDelayMs int    `yaml:"iteration_delay_ms"` // pause between frames
	FailureBackoffMs int    `yaml:"failure_backoff_ms"` // pause after a recognition failure
	SearchPath       string `yaml:"search_path"`        // navigation target for a confirmed label
}

// OCRConfig configures the Tesseract engine.
type OCRConfig struct {
	Language       string   `yaml:"language"`
	TessdataPrefix string   `yaml:"tessdata_prefix"` // optional, empty = system default
	Contrast       *float64 `yaml:"contrast"`        // contrast boost in percent; 0 = off, unset = 20
}

// CameraConfig lists the still frames served by the file-backed camera.
type CameraConfig struct {
	Frames []string `yaml:"frames"`
}

// CropConfig configures the crop/rotate widget.
type CropConfig struct {
	Background string `yaml:"background"` // hex colour for areas exposed by rotation
}

// Config aggregates all application configuration.
type Config struct {
	Upload UploadConfig `yaml:"upload"`
	Scan   ScanConfig   `yaml:"scan"`
	OCR    OCRConfig    `yaml:"ocr"`
	Camera CameraConfig `yaml:"camera"`
	Crop   CropConfig   `yaml:"crop"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file, applies environment overrides and returns the
// validated configuration. An empty path skips the file and uses defaults
// plus environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: could not load .env: %v", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Upload.URL == "" {
		c.Upload.URL = "img"
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 200 * 1024
	}
	if c.Upload.Quality == 0 {
		c.Upload.Quality = 85
	}
	if c.Upload.Beta == 0 {
		c.Upload.Beta = 0.6
	}
	if c.Upload.ErrorDismissMs == 0 {
		c.Upload.ErrorDismissMs = 10000
	}

	if c.Scan.LabelLength == 0 {
		c.Scan.LabelLength = 10
	}
	if c.Scan.Threshold == 0 {
		c.Scan.Threshold = 3
	}
	if c.Scan.Whitelist == "" {
		c.Scan.Whitelist = "0123456789"
	}
	if c.Scan.IterationDelayMs == 0 {
		c.Scan.IterationDelayMs = 50
	}
	if c.Scan.FailureBackoffMs == 0 {
		c.Scan.FailureBackoffMs = 500
	}
	if c.Scan.SearchPath == "" {
		c.Scan.SearchPath = "/bat/"
	}

	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	if c.OCR.Contrast == nil {
		contrast := 20.0
		c.OCR.Contrast = &contrast
	}

	if c.Crop.Background == "" {
		c.Crop.Background = "#000000"
	}
}

// applyEnv overrides file values with BATCAPTURE_* environment variables.
func (c *Config) applyEnv() error {
	if v, ok := getEnv("BATCAPTURE_UPLOAD_BASE_URL"); ok {
		c.Upload.BaseURL = v
	}
	if v, ok := getEnv("BATCAPTURE_UPLOAD_URL"); ok {
		c.Upload.URL = v
	}
	if v, ok := getEnv("BATCAPTURE_MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BATCAPTURE_MAX_UPLOAD_BYTES: %w", err)
		}
		c.Upload.MaxBytes = n
	}
	if v, ok := getEnv("BATCAPTURE_LABEL_LENGTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCAPTURE_LABEL_LENGTH: %w", err)
		}
		c.Scan.LabelLength = n
	}
	if v, ok := getEnv("BATCAPTURE_SCAN_THRESHOLD"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCAPTURE_SCAN_THRESHOLD: %w", err)
		}
		c.Scan.Threshold = n
	}
	if v, ok := getEnv("BATCAPTURE_TESSDATA_PREFIX"); ok {
		c.OCR.TessdataPrefix = v
	}
	if v, ok := getEnv("BATCAPTURE_CAMERA_FRAMES"); ok {
		c.Camera.Frames = splitList(v)
	}
	return nil
}

// Validate checks ranges that defaults cannot repair. Defaults only fill
// zero values, so a negative setting reaches Validate as written.
func (c *Config) Validate() error {
	if c.Upload.MaxBytes < 1 {
		return fmt.Errorf("upload.max_bytes must be >= 1, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.Quality < 1 || c.Upload.Quality > 100 {
		return fmt.Errorf("upload.quality must be between 1 and 100, got %d", c.Upload.Quality)
	}
	if c.Upload.Beta <= 0 || c.Upload.Beta > 1 {
		return fmt.Errorf("upload.beta must be in (0, 1], got %.2f", c.Upload.Beta)
	}
	if c.Upload.TimeoutMs < 0 {
		return fmt.Errorf("upload.timeout_ms must be >= 0, got %d", c.Upload.TimeoutMs)
	}
	if c.Upload.ErrorDismissMs < 1 {
		return fmt.Errorf("upload.error_dismiss_ms must be >= 1, got %d", c.Upload.ErrorDismissMs)
	}
	if c.Scan.LabelLength < 1 {
		return fmt.Errorf("scan.label_length must be >= 1, got %d", c.Scan.LabelLength)
	}
	if c.Scan.Threshold < 1 {
		return fmt.Errorf("scan.threshold must be >= 1, got %d", c.Scan.Threshold)
	}
	if c.Scan.IterationDelayMs < 1 || c.Scan.FailureBackoffMs < 1 {
		return fmt.Errorf("scan delays must be >= 1ms, got %d and %d", c.Scan.IterationDelayMs, c.Scan.FailureBackoffMs)
	}
	if v := c.ContrastPercent(); v < -100 || v > 100 {
		return fmt.Errorf("ocr.contrast must be between -100 and 100, got %.1f", v)
	}
	if strings.Trim(c.Scan.Whitelist, "0123456789") != "" {
		return fmt.Errorf("scan.whitelist must contain digits only, got %q", c.Scan.Whitelist)
	}
	if _, err := colorful.Hex(c.Crop.Background); err != nil {
		return fmt.Errorf("crop.background: %w", err)
	}
	return nil
}

// Endpoint resolves the upload URL against the base URL.
func (c *Config) Endpoint() (string, error) {
	ref, err := url.Parse(c.Upload.URL)
	if err != nil {
		return "", fmt.Errorf("upload.url: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if c.Upload.BaseURL == "" {
		return "", fmt.Errorf("upload.url %q is relative and upload.base_url is not set", c.Upload.URL)
	}
	base, err := url.Parse(c.Upload.BaseURL)
	if err != nil {
		return "", fmt.Errorf("upload.base_url: %w", err)
	}
	if !base.IsAbs() {
		return "", fmt.Errorf("upload.base_url must be absolute, got %q", c.Upload.BaseURL)
	}
	return base.ResolveReference(ref).String(), nil
}

// ContrastPercent returns the OCR contrast boost; 0 disables it.
func (c *Config) ContrastPercent() float64 {
	if c.OCR.Contrast == nil {
		return 0
	}
	return *c.OCR.Contrast
}

// UploadTimeout returns the HTTP timeout for uploads (0 = none).
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutMs) * time.Millisecond
}

// ErrorDismiss returns how long an upload failure message stays visible.
func (c *Config) ErrorDismiss() time.Duration {
	return time.Duration(c.Upload.ErrorDismissMs) * time.Millisecond
}

// IterationDelay returns the pause between two recognition iterations.
func (c *Config) IterationDelay() time.Duration {
	return time.Duration(c.Scan.IterationDelayMs) * time.Millisecond
}

// FailureBackoff returns the pause after a failed recognition call.
func (c *Config) FailureBackoff() time.Duration {
	return time.Duration(c.Scan.FailureBackoffMs) * time.Millisecond
}

func getEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return "", false
	}
	return value, true
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
