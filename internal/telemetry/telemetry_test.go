package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewEventGeneratesIdentity(t *testing.T) {
	e := NewEvent("feature_assigned", "", map[string]string{AttrAgentID: "a1"})

	if e.ID == "" {
		t.Error("expected non-empty event id")
	}
	if e.TraceID == "" {
		t.Error("expected generated trace id")
	}
	if e.Timestamp <= 0 {
		t.Error("expected positive timestamp")
	}
	if e.Attributes[AttrAgentID] != "a1" {
		t.Errorf("attribute agent_id = %q, want a1", e.Attributes[AttrAgentID])
	}
}

func TestNewEventKeepsSuppliedTraceID(t *testing.T) {
	e := NewEvent("work_started", "trace-42", nil)
	if e.TraceID != "trace-42" {
		t.Errorf("TraceID = %q, want trace-42", e.TraceID)
	}
}

func TestFileSinkAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}

	sink.Emit(NewEvent("agent_registered", "", map[string]string{AttrAgentID: "a1"}))
	sink.Emit(NewEvent("feature_enqueued", "", map[string]string{AttrFeatureID: "f1"}))
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		names = append(names, e.Name)
	}

	if len(names) != 2 {
		t.Fatalf("expected 2 events, got %d", len(names))
	}
	if names[0] != "agent_registered" || names[1] != "feature_enqueued" {
		t.Errorf("event order = %v", names)
	}
}

func TestMemorySinkNamed(t *testing.T) {
	sink := NewMemorySink()
	sink.Emit(NewEvent("work_started", "", nil))
	sink.Emit(NewEvent("work_submitted", "", nil))
	sink.Emit(NewEvent("work_started", "", nil))

	if got := len(sink.Named("work_started")); got != 2 {
		t.Errorf("Named(work_started) = %d events, want 2", got)
	}
	if sink.Count() != 3 {
		t.Errorf("Count() = %d, want 3", sink.Count())
	}
}

func TestEmitterForwardsToSinkAndSubscribers(t *testing.T) {
	mem := NewMemorySink()
	em := NewEmitter(mem, 4)

	ev := NewEvent("coordination_cycle", "", nil)
	em.Emit(ev)

	if mem.Count() != 1 {
		t.Fatalf("sink received %d events, want 1", mem.Count())
	}

	select {
	case got := <-em.Events():
		if got.Name != "coordination_cycle" {
			t.Errorf("subscriber event = %q, want coordination_cycle", got.Name)
		}
	default:
		t.Fatal("expected event on subscriber channel")
	}
}

func TestEmitterDropsWhenSubscriberStalls(t *testing.T) {
	mem := NewMemorySink()
	em := NewEmitter(mem, 1)

	em.Emit(NewEvent("e1", "", nil))
	em.Emit(NewEvent("e2", "", nil)) // channel full, dropped after timeout

	if em.DroppedCount() != 1 {
		t.Errorf("DroppedCount() = %d, want 1", em.DroppedCount())
	}
	// The sink still holds everything
	if mem.Count() != 2 {
		t.Errorf("sink received %d events, want 2", mem.Count())
	}
}
