package models

// AgentState represents the current lifecycle state of an agent.
type AgentState string

const (
	// AgentIdle indicates the agent holds no feature and can be matched.
	AgentIdle AgentState = "idle"
	// AgentClaiming indicates a feature was matched and its worktree is being bound.
	AgentClaiming AgentState = "claiming"
	// AgentWorking indicates development is underway in the worktree.
	AgentWorking AgentState = "working"
	// AgentValidating indicates submitted work is being checked.
	AgentValidating AgentState = "validating"
	// AgentSubmitting indicates validation passed and the feature awaits finalization.
	AgentSubmitting AgentState = "submitting"
	// AgentFinished indicates the feature completed; the agent cycles back to idle.
	AgentFinished AgentState = "finished"
	// AgentError indicates a timeout or failure; the agent is forcibly reset to idle.
	AgentError AgentState = "error"
)

// Valid returns true if the state is a known value.
func (s AgentState) Valid() bool {
	switch s {
	case AgentIdle, AgentClaiming, AgentWorking, AgentValidating,
		AgentSubmitting, AgentFinished, AgentError:
		return true
	default:
		return false
	}
}

// Active returns true for states in which the agent is expected to show
// activity and is therefore subject to timeout reaping.
func (s AgentState) Active() bool {
	return s == AgentWorking || s == AgentValidating
}

// Complexity is an agent's preferred complexity tier for matched features.
type Complexity string

const (
	// ComplexityLow prefers features with estimated effort <= 3.
	ComplexityLow Complexity = "low"
	// ComplexityMedium prefers features with estimated effort between 3 and 8.
	ComplexityMedium Complexity = "medium"
	// ComplexityHigh prefers features with estimated effort >= 8.
	ComplexityHigh Complexity = "high"
)

// Valid returns true if the complexity is a known value.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	default:
		return false
	}
}

// FitsEffort reports whether an estimated effort falls in the band matching
// this complexity preference. The bands overlap at their boundaries: an
// effort of 3 satisfies both low and medium, 8 satisfies medium and high.
func (c Complexity) FitsEffort(effort int) bool {
	switch c {
	case ComplexityLow:
		return effort <= 3
	case ComplexityMedium:
		return effort >= 3 && effort <= 8
	case ComplexityHigh:
		return effort >= 8
	default:
		return false
	}
}

// AgentProfile describes an agent's capabilities and preferences.
// Profiles are immutable after registration; only runtime state changes.
type AgentProfile struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Tags lists the task categories this agent supports.
	Tags []string `json:"tags,omitempty"`
	// PreferredComplexity is the effort band this agent matches best.
	PreferredComplexity Complexity `json:"preferred_complexity"`
	// MaxConcurrent is the maximum number of features held at once.
	// The coordinator currently enforces a limit of one.
	MaxConcurrent int `json:"max_concurrent"`
}
