// Package upload turns the final captured frame into a size-constrained JPEG
// and posts it to the image endpoint.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ironsheep/batcapture/internal/imaging"
	"github.com/ironsheep/batcapture/internal/pipeline"
)

// FieldName is the multipart field carrying the image.
const FieldName = "image"

// maxErrorBody bounds how much of a failed response is read before truncation.
const maxErrorBody = 64 * 1024

// Config configures a Client.
type Config struct {
	URL      string        // absolute endpoint URL
	MaxBytes int64         // byte budget for the encoded image
	Quality  int           // JPEG quality
	Beta     float64       // size fitter exponent
	Timeout  time.Duration // 0 = no timeout
}

// Payload is the encoded image built right before transmission.
type Payload struct {
	Format  string  `json:"format"`
	Size    int     `json:"size"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Resized bool    `json:"resized"`
	Scale   float64 `json:"scale"`
	Data    []byte  `json:"-"`
}

// Client uploads frames to one endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Quality <= 0 {
		cfg.Quality = 85
	}
	if cfg.Beta <= 0 {
		cfg.Beta = imaging.DefaultBeta
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.cfg.URL
}

// Prepare encodes img as JPEG. When the result exceeds the byte budget the
// image is scaled once by imaging.ScaleFactor and re-encoded; there is no
// second attempt even if the re-encode still overshoots.
func (c *Client) Prepare(img image.Image) (*Payload, error) {
	if img == nil {
		return nil, fmt.Errorf("no image to upload")
	}

	data, err := imaging.EncodeJPEG(img, c.cfg.Quality)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	p := &Payload{
		Format: "jpeg",
		Size:   len(data),
		Width:  b.Dx(),
		Height: b.Dy(),
		Scale:  1,
		Data:   data,
	}

	if c.cfg.MaxBytes <= 0 || int64(len(data)) <= c.cfg.MaxBytes {
		return p, nil
	}

	s := imaging.ScaleFactor(int64(len(data)), c.cfg.MaxBytes, c.cfg.Beta)
	resized := imaging.Scale(img, s)
	data, err = imaging.EncodeJPEG(resized, c.cfg.Quality)
	if err != nil {
		return nil, err
	}

	log.Printf("upload: %dx%d %d bytes over budget %d, scaled by %.4f to %dx%d %d bytes",
		p.Width, p.Height, p.Size, c.cfg.MaxBytes, s,
		resized.Bounds().Dx(), resized.Bounds().Dy(), len(data))

	p.Data = data
	p.Size = len(data)
	p.Width = resized.Bounds().Dx()
	p.Height = resized.Bounds().Dy()
	p.Resized = true
	p.Scale = s
	return p, nil
}

// Send prepares img and posts it as a single-field multipart request.
//
// Any 2xx status is success. Otherwise the returned error is a
// *pipeline.UploadError whose Detail is the response body, truncated to
// pipeline.MaxDetailLength characters.
func (c *Client) Send(ctx context.Context, img image.Image) (*Payload, error) {
	p, err := c.Prepare(img)
	if err != nil {
		return nil, &pipeline.UploadError{Err: err}
	}

	body, contentType, err := multipartBody(p)
	if err != nil {
		return p, &pipeline.UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return p, &pipeline.UploadError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return p, &pipeline.UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return p, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := pipeline.Truncate(strings.TrimSpace(string(raw)), pipeline.MaxDetailLength)
	return p, &pipeline.UploadError{Status: resp.StatusCode, Detail: detail}
}

func multipartBody(p *Payload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s.jpg"`, FieldName, FieldName))
	h.Set("Content-Type", "image/jpeg")

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(p.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
