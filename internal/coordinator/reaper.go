package coordinator

import (
	"context"
	"time"

	"github.com/swarmtree/swarmtree/internal/telemetry"
	"github.com/swarmtree/swarmtree/pkg/models"
)

// Reap scans for agents in working or validating whose last activity is
// older than the stale threshold. Each stale agent passes through error
// and is forcibly reset to idle, its feature is returned to the back of
// the queue with assignment fields cleared, and its worktree is marked
// abandoned (the directory is left for the cleanup command to remove).
// Returns the number of agents reclaimed. A second call inside the same
// threshold window reclaims nothing.
func (c *Coordinator) Reap(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	reclaimed := 0
	for _, agent := range c.registry.all() {
		if !agent.State.Active() {
			continue
		}
		if now.Sub(agent.LastActivity) < c.staleThreshold {
			continue
		}

		featureID := agent.CurrentFeature
		agent.State, _ = nextState(agent.State, EventTimeout)

		if feature := c.active[featureID]; feature != nil {
			delete(c.active, featureID)
			feature.Status = models.FeatureQueued
			feature.Progress = 0
			feature.AssignedAgent = ""
			feature.WorktreePath = ""
			feature.BranchName = ""
			feature.StartedAt = time.Time{}
			c.pending = append(c.pending, feature)
		}
		if agent.Worktree != nil {
			agent.Worktree.Status = models.WorktreeAbandoned
		}

		c.emit("agent_timeout", agent.TraceID, map[string]string{
			telemetry.AttrAgentID:   agent.Profile.ID,
			telemetry.AttrFeatureID: featureID,
			telemetry.AttrOutcome:   "reclaimed",
			telemetry.AttrReason:    "stale",
		})
		c.logger.Log("[reaper] agent %s reclaimed (idle since %s), feature %s requeued",
			agent.Profile.ID, agent.LastActivity.Format(time.RFC3339), featureID)

		// Forced reset: the agent rejoins the pool.
		agent.State = models.AgentIdle
		agent.CurrentFeature = ""
		agent.Worktree = nil
		agent.LastActivity = now
		reclaimed++
	}

	return reclaimed
}

// RunReaper runs Reap on a fixed interval until the context is cancelled.
// Intended to be launched as a goroutine by the run command.
func (c *Coordinator) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Reap(c.now()); n > 0 {
				c.logger.Log("[reaper] reclaimed %d stale agent(s)", n)
			}
		}
	}
}
