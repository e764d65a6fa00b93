package orchestrator

import (
	"time"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventWaveStart indicates a wave is about to run.
	EventWaveStart EventType = "wave-start"
	// EventWPStart indicates an attempt of a work package has started.
	EventWPStart EventType = "wp-start"
	// EventWPDone indicates a work package was merged.
	EventWPDone EventType = "wp-done"
	// EventWPFailed indicates a work package failed for good.
	EventWPFailed EventType = "wp-failed"
	// EventWaveDone indicates every package of a wave has settled.
	EventWaveDone EventType = "wave-done"
	// EventAllDone indicates the run is complete.
	EventAllDone EventType = "all-done"
)

// Event represents a progress notification emitted during a run.
type Event struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// RunID identifies the run that emitted the event.
	RunID string `json:"runId"`
	// Wave is the wave number, when applicable.
	Wave int `json:"wave,omitempty"`
	// WP is a snapshot of the related work package, when applicable.
	WP *models.WorkPackage `json:"wp,omitempty"`
	// Attempt is the attempt number for wp-start events.
	Attempt int `json:"attempt,omitempty"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives run events. Implementations must be safe for
// concurrent use and must not block for long.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to an EventSink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

// Emit forwards e to every non-nil sink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// NopSink discards every event.
type NopSink struct{}

// Emit does nothing.
func (NopSink) Emit(Event) {}
