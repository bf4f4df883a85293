package coordinator

import (
	"sort"
	"time"

	"github.com/swarmtree/swarmtree/pkg/models"
)

// AgentRuntime holds the mutable per-agent state alongside its immutable
// profile. Instances are mutated only by the coordinator's transition
// operations, under the coordinator lock.
type AgentRuntime struct {
	// Profile is the agent's registered capability profile.
	Profile models.AgentProfile `json:"profile"`
	// State is the current lifecycle state.
	State models.AgentState `json:"state"`
	// CurrentFeature is the id of the held feature, or empty.
	CurrentFeature string `json:"current_feature,omitempty"`
	// Worktree is the bound worktree handle, or nil.
	Worktree *models.Worktree `json:"worktree,omitempty"`
	// LastActivity is the timestamp the reaper checks for staleness.
	LastActivity time.Time `json:"last_activity"`
	// CompletedFeatures accumulates the ids of features this agent finished.
	CompletedFeatures []string `json:"completed_features,omitempty"`
	// TraceID correlates all telemetry emitted for this agent.
	TraceID string `json:"trace_id"`
}

// clone returns a copy safe to hand to callers outside the lock.
func (a *AgentRuntime) clone() AgentRuntime {
	cp := *a
	if a.Worktree != nil {
		wt := *a.Worktree
		cp.Worktree = &wt
	}
	cp.CompletedFeatures = append([]string(nil), a.CompletedFeatures...)
	return cp
}

// registry stores registered agents. It has no locking of its own: the
// coordinator lock guards all access.
type registry struct {
	agents map[string]*AgentRuntime
}

func newRegistry() *registry {
	return &registry{agents: make(map[string]*AgentRuntime)}
}

// register adds an agent to the registry.
func (r *registry) register(a *AgentRuntime) {
	r.agents[a.Profile.ID] = a
}

// get retrieves an agent by id. Returns nil if not registered.
func (r *registry) get(id string) *AgentRuntime {
	return r.agents[id]
}

// count returns the number of registered agents.
func (r *registry) count() int {
	return len(r.agents)
}

// all returns all agents ordered by id for deterministic iteration.
func (r *registry) all() []*AgentRuntime {
	out := make([]*AgentRuntime, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Profile.ID < out[j].Profile.ID
	})
	return out
}

// idle returns all idle agents ordered by id.
func (r *registry) idle() []*AgentRuntime {
	var out []*AgentRuntime
	for _, a := range r.all() {
		if a.State == models.AgentIdle {
			out = append(out, a)
		}
	}
	return out
}

// countActive returns the number of agents in working or validating state.
func (r *registry) countActive() int {
	n := 0
	for _, a := range r.agents {
		if a.State.Active() {
			n++
		}
	}
	return n
}
