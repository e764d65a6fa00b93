package orchestrator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dante-alpha-assistant/swarm-code/internal/logging"
)

// emitTimeout is how long Emit waits on a full channel before dropping.
const emitTimeout = 100 * time.Millisecond

// EventEmitter is an EventSink that buffers events on a channel for a
// single consumer, such as a progress printer.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	logger       *logging.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int, logger *logging.Logger) *EventEmitter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &EventEmitter{
		events: make(chan Event, bufferSize),
		logger: logger,
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
// Events emitted after Close are dropped.
func (e *EventEmitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.events <- event:
		return
	default:
	}

	timer := time.NewTimer(emitTimeout)
	defer timer.Stop()
	select {
	case e.events <- event:
	case <-timer.C:
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // every 10th drop
			e.logger.Warn("event channel full, dropped event", "dropped", count, "type", string(event.Type))
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. It is safe to call more than once.
func (e *EventEmitter) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.events)
		e.mu.Unlock()
	})
}
