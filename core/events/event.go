package events

import (
	"sync"

	"agora/core/types"
)

// Event represents a structured state change emitted by a native module.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (audit log, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into every engine until a real sink is attached.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder is an append-only in-memory audit log. Emission is decoupled from
// the transaction path: a recorded event is advisory and never feeds back into
// state transitions.
type Recorder struct {
	mu     sync.Mutex
	events []*types.Event
}

// NewRecorder constructs an empty audit recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends the event payload to the log.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, payload)
}

// Events returns a snapshot of the recorded payloads in emission order.
func (r *Recorder) Events() []*types.Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Event, len(r.events))
	copy(out, r.events)
	return out
}
