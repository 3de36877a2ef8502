package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/ironsheep/batcapture/internal/pipeline"
)

var (
	// ErrAlreadyAcquired is returned by Acquire while a stream is held.
	ErrAlreadyAcquired = errors.New("camera already acquired")

	// ErrNotAcquired is returned by Frame when no stream is held.
	ErrNotAcquired = errors.New("camera not acquired")
)

// Guard holds exclusive ownership of one camera stream for one modal.
//
// The zero value is not usable; create guards with NewGuard.
type Guard struct {
	mu     sync.Mutex
	device Device
	stream Stream
	sink   Sink
}

// NewGuard creates a guard over device.
func NewGuard(device Device) *Guard {
	return &Guard{device: device}
}

// Acquire requests camera access and binds the resulting stream to sink.
//
// Any failure to open the device is returned wrapped in
// pipeline.ErrCameraUnavailable; the caller must not open its modal.
func (g *Guard) Acquire(ctx context.Context, sink Sink) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stream != nil {
		return ErrAlreadyAcquired
	}
	if g.device == nil {
		return fmt.Errorf("%w: no camera device configured", pipeline.ErrCameraUnavailable)
	}

	stream, err := g.device.Open(ctx)
	if err != nil {
		if errors.Is(err, pipeline.ErrCameraUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", pipeline.ErrCameraUnavailable, err)
	}

	g.stream = stream
	g.sink = sink
	if sink != nil {
		sink.Attach(stream)
	}
	return nil
}

// Release stops all tracks and unbinds the sink. Calling Release when
// nothing is acquired is a no-op.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stream == nil {
		return
	}
	for _, t := range g.stream.Tracks() {
		t.Stop()
	}
	if g.sink != nil {
		g.sink.Detach()
	}
	g.stream = nil
	g.sink = nil
}

// Active reports whether a stream is currently held.
func (g *Guard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stream != nil
}

// Frame returns the current frame of the held stream.
func (g *Guard) Frame() (image.Image, error) {
	g.mu.Lock()
	stream := g.stream
	g.mu.Unlock()

	if stream == nil {
		return nil, ErrNotAcquired
	}
	return stream.Frame()
}

// ViewSink is an in-memory Sink that remembers the bound stream.
type ViewSink struct {
	mu     sync.Mutex
	stream Stream
	name   string
}

// NewViewSink creates a sink; name only appears in logs.
func NewViewSink(name string) *ViewSink {
	return &ViewSink{name: name}
}

// Attach binds s to the sink, replacing any previous stream.
func (v *ViewSink) Attach(s Stream) {
	v.mu.Lock()
	v.stream = s
	v.mu.Unlock()
	log.Printf("camera: stream bound to %s", v.name)
}

// Detach drops the stream reference.
func (v *ViewSink) Detach() {
	v.mu.Lock()
	v.stream = nil
	v.mu.Unlock()
}

// Attached returns the bound stream or nil.
func (v *ViewSink) Attached() Stream {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stream
}
