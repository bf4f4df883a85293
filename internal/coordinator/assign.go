package coordinator

import (
	"fmt"

	"github.com/swarmtree/swarmtree/internal/telemetry"
	"github.com/swarmtree/swarmtree/pkg/models"
)

// Assign matches the agent against the pending queue and, on a match,
// creates an isolated worktree and binds agent, feature, and worktree
// together. Returns (nil, nil) when the agent is not idle or nothing is
// queued; the caller treats that as "try again later".
//
// Worktree creation shells out to git and can be slow, so it runs outside
// the coordinator lock under a reservation: the feature is removed from
// the queue and the agent parked in claiming first, then either committed
// or rolled back once creation resolves. No other agent can claim the
// reserved feature in between.
func (c *Coordinator) Assign(agentID string) (*models.Feature, error) {
	c.mu.Lock()

	agent := c.registry.get(agentID)
	if agent == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	if agent.State != models.AgentIdle || len(c.pending) == 0 {
		c.mu.Unlock()
		return nil, nil
	}

	idx := bestMatch(c.strategy, agent.Profile, c.pending)
	if idx < 0 {
		c.mu.Unlock()
		return nil, nil
	}

	// Reserve: pull the feature out of the queue and park the agent in
	// claiming so concurrent Assign calls cannot double-book either.
	feature := c.pending[idx]
	c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
	agent.State = models.AgentClaiming
	agent.LastActivity = c.now()
	traceID := agent.TraceID
	c.mu.Unlock()

	wt, err := c.worktrees.Create(agentID, feature.ID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// Roll back: reinsert the feature at its original position and
		// return the agent to idle. The queue ordering invariant holds.
		if idx > len(c.pending) {
			idx = len(c.pending)
		}
		c.pending = append(c.pending[:idx], append([]*models.Feature{feature}, c.pending[idx:]...)...)
		agent.State = models.AgentIdle

		werr := fmt.Errorf("%w: %v", ErrWorkspace, err)
		c.emit("feature_assigned", traceID, map[string]string{
			telemetry.AttrAgentID:   agentID,
			telemetry.AttrFeatureID: feature.ID,
			telemetry.AttrOutcome:   "workspace_failed",
			telemetry.AttrReason:    werr.Error(),
		})
		c.logger.Log("[assign] %s/%s: %v", agentID, feature.ID, werr)
		return nil, nil
	}

	// Commit the reservation.
	feature.Status = models.FeatureAssigned
	feature.Progress = 10
	feature.AssignedAgent = agentID
	feature.WorktreePath = wt.Path
	feature.BranchName = wt.Branch
	c.active[feature.ID] = feature

	agent.CurrentFeature = feature.ID
	agent.Worktree = wt
	agent.LastActivity = c.now()

	c.emit("feature_assigned", traceID, map[string]string{
		telemetry.AttrAgentID:      agentID,
		telemetry.AttrFeatureID:    feature.ID,
		telemetry.AttrWorktreePath: wt.Path,
		telemetry.AttrBranch:       wt.Branch,
		telemetry.AttrOutcome:      "ok",
	})
	c.logger.Log("[assign] feature %s -> agent %s (worktree %s)", feature.ID, agentID, wt.Path)

	out := *feature
	return &out, nil
}
