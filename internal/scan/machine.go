// Package scan drives automatic label recognition.
//
// A Machine owns a camera stream and a recognition engine. Its loop reads
// one frame at a time, extracts a fixed-length digit run and confirms it
// once the same run was read Threshold times in a row. A confirmed label
// closes the modal and navigates the host to the search view.
//
// Cancellation is cooperative: Close is observed at the top of an
// iteration and during the inter-iteration delay. A recognition call in
// flight is never interrupted, so Close returns only once it has.
package scan

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
	"github.com/ironsheep/batcapture/internal/host"
	"github.com/ironsheep/batcapture/internal/imaging"
	"github.com/ironsheep/batcapture/internal/pipeline"
)

// State is a scan modal state.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateMatched   State = "matched"
	StateCancelled State = "cancelled"
)

const (
	DefaultIterationDelay = 50 * time.Millisecond
	DefaultFailureBackoff = 500 * time.Millisecond
	DefaultSearchPath     = "/bat/"
)

// Recognizer reads text from a frame.
type Recognizer interface {
	Recognize(img image.Image) (string, error)
	Close() error
}

// EngineFactory builds the recognition engine for one scan session.
type EngineFactory func(ctx context.Context) (Recognizer, error)

// Options wires a Machine to its collaborators.
type Options struct {
	Device         camera.Device
	Sink           camera.Sink // nil = in-memory view sink
	Host           host.Host
	Engine         EngineFactory
	LabelLength    int
	Threshold      int
	IterationDelay time.Duration
	FailureBackoff time.Duration
	SearchPath     string
	Debug          bool // log every iteration
}

// Status is a snapshot of a scan session.
type Status struct {
	ID         string `json:"id"`
	State      State  `json:"state"`
	Label      string `json:"label,omitempty"`
	Candidate  string `json:"candidate,omitempty"`
	Count      int    `json:"count"`
	Iterations int    `json:"iterations"`
	Failures   int    `json:"failures"`
	LastText   string `json:"last_text"`
	Error      string `json:"error,omitempty"`
}

// Machine is one scan modal.
type Machine struct {
	mu sync.Mutex

	guard     *camera.Guard
	sink      camera.Sink
	host      host.Host
	factory   EngineFactory
	extractor *Extractor
	consensus *Consensus
	delay     time.Duration
	backoff   time.Duration
	search    string
	debug     bool

	state      State
	open       bool
	id         string
	label      string
	err        error
	engine     Recognizer
	canvas     *image.NRGBA
	cancel     context.CancelFunc
	done       chan struct{}
	iterations int
	failures   int
	lastText   string
}

// New creates an idle scan machine.
func New(opts Options) *Machine {
	sink := opts.Sink
	if sink == nil {
		sink = camera.NewViewSink("scan-video")
	}
	delay := opts.IterationDelay
	if delay <= 0 {
		delay = DefaultIterationDelay
	}
	backoff := opts.FailureBackoff
	if backoff <= 0 {
		backoff = DefaultFailureBackoff
	}
	search := opts.SearchPath
	if search == "" {
		search = DefaultSearchPath
	}
	return &Machine{
		guard:     camera.NewGuard(opts.Device),
		sink:      sink,
		host:      opts.Host,
		factory:   opts.Engine,
		extractor: NewExtractor(opts.LabelLength),
		consensus: NewConsensus(opts.Threshold),
		delay:     delay,
		backoff:   backoff,
		search:    search,
		debug:     opts.Debug,
		state:     StateIdle,
	}
}

// Open acquires the camera and starts the recognition loop. The loop is
// not tied to ctx; it runs until a label is confirmed or Close is called.
func (m *Machine) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		m.logf("open ignored in state %s", m.state)
		return fmt.Errorf("%w: open in state %s", pipeline.ErrInvalidTransition, m.state)
	}
	if m.factory == nil {
		return fmt.Errorf("%w: no recognition engine configured", pipeline.ErrEngineSetup)
	}

	m.id = uuid.NewString()[:8]
	if err := m.guard.Acquire(ctx, m.sink); err != nil {
		m.logf("camera unavailable: %v", err)
		m.state = StateIdle
		m.host.ShowError(host.ModalScan, err.Error())
		return err
	}

	m.open = true
	m.state = StateScanning
	m.label = ""
	m.err = nil
	m.iterations = 0
	m.failures = 0
	m.lastText = ""
	m.consensus.Reset()

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	m.host.ShowButtons(host.ModalScan, []host.Button{host.ButtonClose})
	m.host.SetFeedback(host.ModalScan, "")
	m.logf("scanning for %d-digit labels, threshold %d", m.extractor.Length(), m.consensus.Threshold())

	go m.run(loopCtx, m.done)
	return nil
}

// Close cancels the loop, waits for it to reach a suspension point and
// tears the session down. If a label was confirmed the host navigates to
// its search view. Safe to call at any time and more than once.
func (m *Machine) Close() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return
	}
	if m.state == StateScanning {
		m.state = StateCancelled
	}
	m.finish()
}

// Wait blocks until the loop has exited.
func (m *Machine) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Label returns the confirmed label, or "" when none.
func (m *Machine) Label() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.label
}

// Err returns the error that aborted the session, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// CameraActive reports whether the camera is held.
func (m *Machine) CameraActive() bool {
	return m.guard.Active()
}

// Status returns a snapshot of the session.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate, count := m.consensus.Candidate()
	st := Status{
		ID:         m.id,
		State:      m.state,
		Label:      m.label,
		Candidate:  candidate,
		Count:      count,
		Iterations: m.iterations,
		Failures:   m.failures,
		LastText:   m.lastText,
	}
	if m.err != nil {
		st.Error = m.err.Error()
	}
	return st
}

func (m *Machine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			m.logf("scan loop panic: %v", r)
			m.abort(fmt.Errorf("scan loop panic: %v", r))
		}
	}()

	engine, err := m.factory(ctx)
	if err == nil && engine == nil {
		err = errors.New("factory returned no engine")
	}
	if err != nil {
		if ctx.Err() != nil {
			// Closed while the engine was starting; Close tears down.
			return
		}
		if !errors.Is(err, pipeline.ErrEngineSetup) {
			err = fmt.Errorf("%w: %v", pipeline.ErrEngineSetup, err)
		}
		m.logf("engine setup failed: %v", err)
		m.abort(err)
		return
	}

	m.mu.Lock()
	m.engine = engine
	m.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}

		wait, matched := m.iterate(engine)
		if matched {
			m.mu.Lock()
			m.finish()
			m.mu.Unlock()
			return
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// iterate runs one recognition pass and returns the delay before the next.
func (m *Machine) iterate(engine Recognizer) (time.Duration, bool) {
	frame, err := m.guard.Frame()
	if err != nil {
		m.recordFailure(fmt.Errorf("%w: %v", pipeline.ErrRecognition, err))
		return m.backoff, false
	}

	canvas := imaging.Clone(frame)
	m.mu.Lock()
	m.canvas = canvas
	m.iterations++
	m.mu.Unlock()

	text, err := recognize(engine, canvas)
	if err != nil {
		m.recordFailure(err)
		return m.backoff, false
	}

	feedback := Sanitize(text)
	m.host.SetFeedback(host.ModalScan, feedback)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastText = feedback
	v, ok := m.extractor.Extract(text)
	if !ok {
		if m.debug {
			m.logf("no label in %q", feedback)
		}
		return m.delay, false
	}

	if m.consensus.Observe(v) {
		m.label = v
		m.state = StateMatched
		m.logf("label %s confirmed after %d iterations", v, m.iterations)
		return 0, true
	}
	if m.debug {
		c, n := m.consensus.Candidate()
		m.logf("read %s, candidate %q count %d", v, c, n)
	}
	return m.delay, false
}

// recognize calls the engine and turns a panic into a recognition error.
func recognize(engine Recognizer, img image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", pipeline.ErrRecognition, r)
		}
	}()

	text, err = engine.Recognize(img)
	if err != nil && !errors.Is(err, pipeline.ErrRecognition) {
		err = fmt.Errorf("%w: %v", pipeline.ErrRecognition, err)
	}
	return text, err
}

func (m *Machine) recordFailure(err error) {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
	m.logf("%v", err)
}

// abort ends the session after an unrecoverable loop error. The camera is
// released and the message stays visible until the user closes the modal.
func (m *Machine) abort(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
	m.state = StateCancelled
	m.releaseResources()
	m.host.ShowError(host.ModalScan, err.Error())
}

// finish must be called with mu held.
func (m *Machine) finish() {
	m.releaseResources()
	m.open = false
	m.host.CloseModal(host.ModalScan)
	if m.label != "" {
		target := host.SearchURL(m.search, m.label)
		m.logf("navigating to %s", target)
		m.host.Navigate(target)
	}
	m.logf("closed in state %s", m.state)
}

// releaseResources must be called with mu held.
func (m *Machine) releaseResources() {
	m.guard.Release()
	if m.engine != nil {
		if err := m.engine.Close(); err != nil {
			m.logf("engine close: %v", err)
		}
		m.engine = nil
	}
	m.canvas = nil
}

func (m *Machine) logf(format string, args ...any) {
	log.Printf("[scan %s] "+format, append([]any{m.id}, args...)...)
}
