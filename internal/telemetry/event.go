// Package telemetry provides the structured event sink used as the audit
// trail for every coordination state transition and operation outcome.
package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// Standard attribute keys attached to coordination events.
const (
	AttrAgentID      = "agent_id"
	AttrFeatureID    = "feature_id"
	AttrWorktreePath = "worktree_path"
	AttrBranch       = "branch"
	AttrOutcome      = "outcome"
	AttrReason       = "reason"
)

// Event is an immutable, timestamped record of a state transition or
// operation outcome, correlated by a trace identifier. Events are
// append-only and are never mutated or removed once emitted.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`
	// Name is the event name (e.g. "feature_assigned").
	Name string `json:"event_name"`
	// TraceID correlates events belonging to one logical flow.
	TraceID string `json:"trace_id"`
	// Timestamp is the emission time in Unix seconds.
	Timestamp float64 `json:"timestamp"`
	// Attributes carries string context (agent id, feature id, outcome, ...).
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewEvent constructs an event with a fresh id and the current timestamp.
// A trace id is generated when none is supplied.
func NewEvent(name, traceID string, attrs map[string]string) Event {
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return Event{
		ID:         uuid.New().String(),
		Name:       name,
		TraceID:    traceID,
		Timestamp:  float64(time.Now().UnixNano()) / float64(time.Second),
		Attributes: attrs,
	}
}

// Sink receives coordination events. Implementations must be safe for
// concurrent use; Emit returns the stored event's id.
type Sink interface {
	Emit(e Event) string
	Close() error
}
