package telemetry

import (
	"log"
	"sync/atomic"
	"time"
)

// Emitter wraps a Sink and additionally fans events out to subscribers
// over a buffered channel. The sink write is authoritative; the channel
// is best-effort and drops events under sustained backpressure.
type Emitter struct {
	sink         Sink
	events       chan Event
	droppedCount atomic.Uint64
}

var _ Sink = (*Emitter)(nil)

// NewEmitter creates an Emitter forwarding to the given sink with the
// given subscriber buffer size.
func NewEmitter(sink Sink, bufferSize int) *Emitter {
	return &Emitter{
		sink:   sink,
		events: make(chan Event, bufferSize),
	}
}

// Emit records the event in the sink, then offers it to subscribers.
// If the channel is full it retries briefly before dropping the event.
func (e *Emitter) Emit(ev Event) string {
	id := e.sink.Emit(ev)

	select {
	case e.events <- ev:
		return id
	default:
		// Channel full, try with timeout
	}

	select {
	case e.events <- ev:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[telemetry] WARNING: subscriber channel full, dropped event (total dropped: %d): name=%s", count, ev.Name)
		}
	}
	return id
}

// Events returns the read-only subscriber channel.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// DroppedCount returns the total number of events dropped from the
// subscriber channel. Dropped events are still present in the sink.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Close closes the subscriber channel and the underlying sink.
func (e *Emitter) Close() error {
	close(e.events)
	return e.sink.Close()
}
