// Package camera manages the lifecycle of a single camera stream per modal.
//
// A Device produces a Stream; a Guard owns at most one Stream at a time and
// binds it to a display Sink. Releasing the Guard stops every track of the
// stream and detaches the sink, so the sink never keeps a live track around
// after the modal is done with the camera.
package camera

import (
	"context"
	"image"
)

// Track is one media track of a stream (a camera exposes a single video track).
type Track interface {
	// Live reports whether the track still delivers frames.
	Live() bool

	// Stop ends the track. Stopping a stopped track is a no-op.
	Stop()
}

// Stream is an open camera stream.
type Stream interface {
	// Frame returns the current video frame at the camera's native resolution.
	Frame() (image.Image, error)

	// Tracks returns the underlying tracks.
	Tracks() []Track
}

// Device opens camera streams. Open blocks until access is granted or denied.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Sink is a display surface a stream can be bound to.
type Sink interface {
	Attach(s Stream)
	Detach()
	Attached() Stream
}
