package coordinator

import "errors"

// Error taxonomy for coordination failures. Every failure is local to the
// operation that raised it; no error here ever corrupts the in-memory model
// or terminates the coordinator.
var (
	// ErrInvalidTransition is returned when an operation is attempted from
	// a state not listed for that event. No state is mutated.
	ErrInvalidTransition = errors.New("agent not in expected state")

	// ErrUnknownAgent is returned for operations on unregistered agents.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrWorkspace wraps worktree create/remove failures from the
	// version-control collaborator. The affected feature is returned to
	// the queue; the failure is a warning, not fatal.
	ErrWorkspace = errors.New("workspace operation failed")

	// ErrConfiguration is returned when an agent profile or feature spec
	// is rejected before entering any collection.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrQueueLimit is returned when the pending queue soft limit is reached.
	ErrQueueLimit = errors.New("feature queue limit reached")
)
