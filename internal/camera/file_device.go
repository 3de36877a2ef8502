package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ironsheep/batcapture/internal/imaging"
	"github.com/ironsheep/batcapture/internal/pipeline"
)

// ErrStreamStopped is returned by Frame after the stream's track was stopped.
var ErrStreamStopped = errors.New("stream stopped")

// FileDevice is a camera backed by still image files. Each Frame call on an
// open stream returns the next file in order, wrapping around at the end.
type FileDevice struct {
	cache *imaging.ImageCache
	paths []string
}

// NewFileDevice creates a device serving the given frames. A nil cache gets
// a private one.
func NewFileDevice(cache *imaging.ImageCache, paths ...string) *FileDevice {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	return &FileDevice{cache: cache, paths: paths}
}

// Open decodes all frames up front. A missing or undecodable file means the
// camera is unavailable.
func (d *FileDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrCameraUnavailable, err)
	}
	if len(d.paths) == 0 {
		return nil, fmt.Errorf("%w: no frames configured", pipeline.ErrCameraUnavailable)
	}

	frames := make([]image.Image, 0, len(d.paths))
	for _, p := range d.paths {
		img, err := d.cache.Load(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", pipeline.ErrCameraUnavailable, p, err)
		}
		frames = append(frames, img)
	}

	return newStillStream(frames), nil
}

// StillDevice is a camera serving in-memory frames, cycled like FileDevice.
type StillDevice struct {
	frames []image.Image
}

// NewStillDevice creates a device over frames.
func NewStillDevice(frames ...image.Image) *StillDevice {
	return &StillDevice{frames: frames}
}

// Open returns a new stream over the device's frames.
func (d *StillDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrCameraUnavailable, err)
	}
	if len(d.frames) == 0 {
		return nil, fmt.Errorf("%w: no frames configured", pipeline.ErrCameraUnavailable)
	}
	return newStillStream(d.frames), nil
}

func newStillStream(frames []image.Image) *stillStream {
	return &stillStream{frames: frames, track: &videoTrack{live: true}}
}

type stillStream struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	track  *videoTrack
}

func (s *stillStream) Frame() (image.Image, error) {
	if !s.track.Live() {
		return nil, ErrStreamStopped
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	img := s.frames[s.next%len(s.frames)]
	s.next++
	return img, nil
}

func (s *stillStream) Tracks() []Track {
	return []Track{s.track}
}

type videoTrack struct {
	mu   sync.Mutex
	live bool
}

func (t *videoTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

func (t *videoTrack) Stop() {
	t.mu.Lock()
	t.live = false
	t.mu.Unlock()
}
