package coordinator

import (
	"fmt"

	"github.com/swarmtree/swarmtree/pkg/models"
)

// TransitionEvent names a legal state-machine event.
type TransitionEvent string

const (
	// EventMatched binds a feature and worktree to an idle agent.
	EventMatched TransitionEvent = "matched"
	// EventStartWork begins development in the claimed worktree.
	EventStartWork TransitionEvent = "start_work"
	// EventSubmit hands work to the validation pipeline.
	EventSubmit TransitionEvent = "submit"
	// EventValidationPass moves validated work toward completion.
	EventValidationPass TransitionEvent = "validation_pass"
	// EventValidationFail sends the agent back to work for fixes.
	EventValidationFail TransitionEvent = "validation_fail"
	// EventComplete finalizes the feature and frees the agent.
	EventComplete TransitionEvent = "complete"
	// EventTimeout forcibly reclaims a stale agent.
	EventTimeout TransitionEvent = "timeout"
)

// transitions is the legal transition table. Any (state, event) pair not
// present is rejected with ErrInvalidTransition and causes no side effect;
// this guards the exclusivity invariants.
var transitions = map[models.AgentState]map[TransitionEvent]models.AgentState{
	models.AgentIdle: {
		EventMatched: models.AgentClaiming,
	},
	models.AgentClaiming: {
		EventStartWork: models.AgentWorking,
	},
	models.AgentWorking: {
		EventSubmit:  models.AgentValidating,
		EventTimeout: models.AgentError,
	},
	models.AgentValidating: {
		EventValidationPass: models.AgentSubmitting,
		EventValidationFail: models.AgentWorking,
		EventTimeout:        models.AgentError,
	},
	models.AgentSubmitting: {
		EventComplete: models.AgentFinished,
	},
}

// nextState returns the state reached by applying event in from, or
// ErrInvalidTransition when the pair is not in the table.
func nextState(from models.AgentState, event TransitionEvent) (models.AgentState, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, event, from)
}
