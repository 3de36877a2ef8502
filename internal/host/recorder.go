package host

import (
	"strings"
	"sync"
	"time"
)

// Event is one call made on a Recorder.
type Event struct {
	Kind    string
	Modal   Modal
	Text    string
	Buttons []Button
	Dismiss time.Duration // transient errors only
}

// Recorder is a Host that keeps every call in order. It is safe for
// concurrent use, which matters once a scan loop reports feedback from its
// own goroutine.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) ShowButtons(m Modal, buttons []Button) {
	cp := append([]Button(nil), buttons...)
	r.add(Event{Kind: "buttons", Modal: m, Buttons: cp})
}

func (r *Recorder) SetFeedback(m Modal, text string) {
	r.add(Event{Kind: "feedback", Modal: m, Text: text})
}

func (r *Recorder) ShowError(m Modal, msg string) {
	r.add(Event{Kind: "error", Modal: m, Text: msg})
}

func (r *Recorder) ShowTransientError(m Modal, msg string, after time.Duration) {
	r.add(Event{Kind: "error", Modal: m, Text: msg, Dismiss: after})
}

func (r *Recorder) ClearError(m Modal) {
	r.add(Event{Kind: "error_cleared", Modal: m})
}

func (r *Recorder) CloseModal(m Modal) {
	r.add(Event{Kind: "close", Modal: m})
}

func (r *Recorder) Reload() {
	r.add(Event{Kind: "reload"})
}

func (r *Recorder) Navigate(target string) {
	r.add(Event{Kind: "navigate", Text: target})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded event kinds, in order.
func (r *Recorder) Kinds() []string {
	events := r.Events()
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Last returns the most recent event of the given kind.
func (r *Recorder) Last(kind string) (Event, bool) {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == kind {
			return events[i], true
		}
	}
	return Event{}, false
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// String renders the kinds, useful in test failure messages.
func (r *Recorder) String() string {
	return strings.Join(r.Kinds(), ",")
}
