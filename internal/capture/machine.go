// Package capture drives the manual photograph, crop and upload flow.
//
// A Machine moves through capture -> save -> cropping -> save and may be
// closed from any state. Operations requested in the wrong state are logged
// and return pipeline.ErrInvalidTransition; the user never sees them.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/batcapture/internal/camera"
	"github.com/ironsheep/batcapture/internal/crop"
	"github.com/ironsheep/batcapture/internal/host"
	"github.com/ironsheep/batcapture/internal/imaging"
	"github.com/ironsheep/batcapture/internal/pipeline"
	"github.com/ironsheep/batcapture/internal/upload"
)

// State is a capture modal state.
type State string

const (
	StateClosed   State = "closed"
	StateCapture  State = "capture"
	StateSave     State = "save"
	StateCropping State = "cropping"
)

// DefaultErrorDismiss is how long an upload failure stays on screen.
const DefaultErrorDismiss = 10 * time.Second

// buttons lists the visible controls per state.
var buttons = map[State][]host.Button{
	StateCapture:  {host.ButtonSnap, host.ButtonClose},
	StateSave:     {host.ButtonCrop, host.ButtonUpload, host.ButtonClose},
	StateCropping: {host.ButtonRotateLeft, host.ButtonRotateRight, host.ButtonApply, host.ButtonCancel},
}

// Buttons returns the controls visible in state s.
func Buttons(s State) []host.Button {
	return append([]host.Button(nil), buttons[s]...)
}

// Uploader sends the final frame. *upload.Client satisfies it.
type Uploader interface {
	Send(ctx context.Context, img image.Image) (*upload.Payload, error)
}

// Options wires a Machine to its collaborators.
type Options struct {
	Device       camera.Device
	Sink         camera.Sink // nil = in-memory view sink
	Host         host.Host
	Uploader     Uploader
	CropFactory  crop.WidgetFactory // nil = RegionWidget on black
	ErrorDismiss time.Duration      // 0 = DefaultErrorDismiss
}

// Machine is one capture modal.
type Machine struct {
	mu sync.Mutex

	guard        *camera.Guard
	sink         camera.Sink
	host         host.Host
	uploader     Uploader
	cropFactory  crop.WidgetFactory
	errorDismiss time.Duration

	state     State
	frame     *image.NRGBA
	session   *crop.Session
	uploading bool
	dismiss   *time.Timer
	id        string
	gen       uint64 // bumped by every Open
}

// New creates a closed capture machine.
func New(opts Options) *Machine {
	sink := opts.Sink
	if sink == nil {
		sink = camera.NewViewSink("capture-video")
	}
	dismiss := opts.ErrorDismiss
	if dismiss <= 0 {
		dismiss = DefaultErrorDismiss
	}
	return &Machine{
		guard:        camera.NewGuard(opts.Device),
		sink:         sink,
		host:         opts.Host,
		uploader:     opts.Uploader,
		cropFactory:  opts.CropFactory,
		errorDismiss: dismiss,
		state:        StateClosed,
	}
}

// Open acquires the camera and shows the modal in the capture state. If the
// camera is unavailable the message is shown and the modal stays closed.
func (m *Machine) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateClosed {
		return m.invalid("open")
	}

	m.gen++
	m.id = uuid.NewString()[:8]
	if err := m.guard.Acquire(ctx, m.sink); err != nil {
		m.logf("camera unavailable: %v", err)
		m.host.ShowError(host.ModalCapture, userMessage(err))
		return err
	}

	m.logf("opened")
	m.enter(StateCapture)
	return nil
}

// CaptureFrame copies the live frame at native resolution, releases the
// camera and moves to save.
func (m *Machine) CaptureFrame() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCapture {
		return m.invalid("capture frame")
	}

	frame, err := m.guard.Frame()
	if err != nil {
		m.logf("could not read frame: %v", err)
		return fmt.Errorf("failed to read camera frame: %w", err)
	}

	m.frame = imaging.Clone(frame)
	m.guard.Release()
	m.logf("captured %dx%d frame", m.frame.Bounds().Dx(), m.frame.Bounds().Dy())
	m.enter(StateSave)
	return nil
}

// StartCropping opens a crop session over a copy of the frame.
func (m *Machine) StartCropping() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateSave || m.uploading {
		return m.invalid("start cropping")
	}

	s, err := crop.Start(m.frame, m.frame.Bounds(), m.cropFactory)
	if err != nil {
		m.logf("crop start failed: %v", err)
		return err
	}
	m.session = s
	m.enter(StateCropping)
	return nil
}

// Rotate turns the crop image one degree; direction is -1 or +1.
func (m *Machine) Rotate(direction int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCropping {
		return m.invalid("rotate")
	}
	return m.session.Rotate(direction)
}

// Select moves the crop box.
func (m *Machine) Select(r image.Rectangle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCropping {
		return m.invalid("select")
	}
	return m.session.Select(r)
}

// SelectPreset moves the crop box to a named region.
func (m *Machine) SelectPreset(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCropping {
		return m.invalid("select preset")
	}
	return m.session.SelectPreset(name)
}

// ApplyCrop replaces the frame with the selected region and ends cropping.
// On error the session is kept so the user can adjust and retry.
func (m *Machine) ApplyCrop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCropping {
		return m.invalid("apply crop")
	}

	sel, err := m.session.Selection()
	if err != nil {
		m.logf("crop selection failed: %v", err)
		return err
	}

	m.frame = imaging.Clone(sel)
	m.destroySession()
	m.logf("crop applied, frame now %dx%d", m.frame.Bounds().Dx(), m.frame.Bounds().Dy())
	m.enter(StateSave)
	return nil
}

// CancelCropping drops the crop session and keeps the frame as it was.
func (m *Machine) CancelCropping() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCropping {
		return m.invalid("cancel cropping")
	}

	m.destroySession()
	m.enter(StateSave)
	return nil
}

// Upload sends the frame. On success the modal closes and the page reloads.
// On failure a self-dismissing error is shown and the modal stays in save so
// the user can retry.
//
// The lock is not held during the transfer. If the modal is closed and
// reopened meanwhile, the result belongs to a session that no longer exists
// and leaves the new one alone; a stale success does not reload the page
// under it.
func (m *Machine) Upload(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateSave || m.uploading {
		err := m.invalid("upload")
		m.mu.Unlock()
		return err
	}
	if m.uploader == nil {
		m.mu.Unlock()
		return &pipeline.UploadError{Err: errors.New("no upload endpoint configured")}
	}
	frame := m.frame
	gen, id := m.gen, m.id
	m.uploading = true
	m.mu.Unlock()

	p, err := m.uploader.Send(ctx, frame)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		log.Printf("[capture %s] upload finished after the session ended (err=%v)", id, err)
		return err
	}
	m.uploading = false

	if err != nil {
		m.logf("upload failed: %v", err)
		if m.state == StateSave {
			m.host.ShowTransientError(host.ModalCapture, userMessage(err), m.errorDismiss)
			m.armDismiss()
		}
		return err
	}

	if p != nil {
		m.logf("uploaded %s %dx%d, %d bytes (resized=%t)", p.Format, p.Width, p.Height, p.Size, p.Resized)
	}
	if m.state != StateClosed {
		m.teardown()
		m.host.CloseModal(host.ModalCapture)
	}
	m.host.Reload()
	return nil
}

// Close releases the camera, destroys any crop session, clears the frame and
// hides the modal. It is valid from every state and safe to repeat.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasOpen := m.state != StateClosed
	m.teardown()
	if wasOpen {
		m.logf("closed")
		m.host.CloseModal(host.ModalCapture)
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Frame returns the working frame, or nil when none is held.
func (m *Machine) Frame() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame == nil {
		return nil
	}
	return m.frame
}

// Cropping reports whether a crop session is alive.
func (m *Machine) Cropping() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// CameraActive reports whether the camera is held.
func (m *Machine) CameraActive() bool {
	return m.guard.Active()
}

// SessionID returns the id of the current or last modal session.
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// teardown must be called with mu held.
func (m *Machine) teardown() {
	m.guard.Release()
	m.destroySession()
	m.frame = nil
	m.uploading = false
	if m.dismiss != nil {
		m.dismiss.Stop()
		m.dismiss = nil
	}
	m.state = StateClosed
}

func (m *Machine) destroySession() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}

func (m *Machine) enter(s State) {
	m.state = s
	m.host.ShowButtons(host.ModalCapture, Buttons(s))
}

func (m *Machine) armDismiss() {
	if m.dismiss != nil {
		m.dismiss.Stop()
	}
	h := m.host
	m.dismiss = time.AfterFunc(m.errorDismiss, func() {
		h.ClearError(host.ModalCapture)
	})
}

func (m *Machine) invalid(op string) error {
	m.logf("%s ignored in state %s", op, m.state)
	return fmt.Errorf("%w: %s in state %s", pipeline.ErrInvalidTransition, op, m.state)
}

func (m *Machine) logf(format string, args ...any) {
	log.Printf("[capture %s] "+format, append([]any{m.id}, args...)...)
}

func userMessage(err error) string {
	var ue *pipeline.UploadError
	if errors.As(err, &ue) {
		switch {
		case ue.Status != 0 && ue.Detail != "":
			return fmt.Sprintf("Upload failed (HTTP %d): %s", ue.Status, ue.Detail)
		case ue.Status != 0:
			return fmt.Sprintf("Upload failed (HTTP %d)", ue.Status)
		case ue.Err != nil:
			return fmt.Sprintf("Upload failed: %v", ue.Err)
		}
		return "Upload failed"
	}
	return err.Error()
}
