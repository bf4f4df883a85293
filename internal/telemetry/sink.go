package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends events as JSON lines to an event log file.
// The log is append-only; one line per event, ordered by emission time.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// Verify sink implementations at compile time.
var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*MemorySink)(nil)
	_ Sink = (*NopSink)(nil)
)

// NewFileSink opens (or creates) the event log at the given path,
// creating parent directories as needed.
func NewFileSink(path string) (*FileSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	return &FileSink{file: f}, nil
}

// Emit appends the event to the log. Marshal or write failures are
// swallowed: telemetry must never fail the operation being recorded.
func (s *FileSink) Emit(e Event) string {
	line, err := json.Marshal(e)
	if err != nil {
		return e.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.file, "%s\n", line)
	return e.ID
}

// Close closes the underlying log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// MemorySink records events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit records the event.
func (s *MemorySink) Emit(e Event) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return e.ID
}

// Close is a no-op.
func (s *MemorySink) Close() error { return nil }

// Events returns a copy of all recorded events in emission order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Named returns the recorded events with the given name.
func (s *MemorySink) Named(name string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of recorded events.
func (s *MemorySink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// CountNamed returns the number of recorded events with the given name.
func (s *MemorySink) CountNamed(name string) int {
	return len(s.Named(name))
}

// NopSink discards all events.
type NopSink struct{}

// Emit discards the event.
func (NopSink) Emit(e Event) string { return e.ID }

// Close is a no-op.
func (NopSink) Close() error { return nil }
