package coordinator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/swarmtree/swarmtree/internal/telemetry"
	"github.com/swarmtree/swarmtree/pkg/models"
)

// StartWork transitions a claiming agent into working and marks its
// feature and worktree as in progress.
func (c *Coordinator) StartWork(agentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	agent := c.registry.get(agentID)
	if agent == nil {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	next, err := nextState(agent.State, EventStartWork)
	if err != nil {
		return err
	}

	feature := c.active[agent.CurrentFeature]
	if feature == nil {
		return fmt.Errorf("%w: agent %s has no active feature", ErrInvalidTransition, agentID)
	}

	agent.State = next
	agent.LastActivity = c.now()
	feature.Status = models.FeatureInProgress
	feature.Progress = 25
	feature.StartedAt = c.now()
	if agent.Worktree != nil {
		agent.Worktree.Status = models.WorktreeInProgress
	}

	c.emit("work_started", agent.TraceID, map[string]string{
		telemetry.AttrAgentID:   agentID,
		telemetry.AttrFeatureID: feature.ID,
		telemetry.AttrOutcome:   "ok",
	})
	c.logger.Log("[pipeline] agent %s started work on %s", agentID, feature.ID)

	return nil
}

// SubmitWork runs the validation pipeline for a working agent. The
// structural check inspects the worktree (dirty files or commits past the
// base ref) and the functional signal comes from the caller; both must
// hold for the work to pass. On pass the feature completes and the agent
// returns to idle; on fail the agent drops back to working for fixes.
//
// The worktree inspection shells out to git, so the lock is released for
// that phase and the agent's state re-verified afterwards: the reaper may
// have reclaimed the agent in the meantime.
func (c *Coordinator) SubmitWork(agentID string, testsPassed bool) (bool, error) {
	c.mu.Lock()

	agent := c.registry.get(agentID)
	if agent == nil {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	next, err := nextState(agent.State, EventSubmit)
	if err != nil {
		c.mu.Unlock()
		return false, err
	}

	feature := c.active[agent.CurrentFeature]
	if feature == nil {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: agent %s has no active feature", ErrInvalidTransition, agentID)
	}

	agent.State = next
	agent.LastActivity = c.now()
	feature.Status = models.FeatureValidating
	feature.Progress = 75
	if agent.Worktree != nil {
		agent.Worktree.Status = models.WorktreeValidating
	}
	featureID := feature.ID
	wtPath := ""
	if agent.Worktree != nil {
		wtPath = agent.Worktree.Path
	}
	traceID := agent.TraceID

	c.emit("work_submitted", traceID, map[string]string{
		telemetry.AttrAgentID:   agentID,
		telemetry.AttrFeatureID: featureID,
		telemetry.AttrOutcome:   "validating",
	})
	c.mu.Unlock()

	hasWork := false
	var changed []string
	if wtPath != "" {
		hasWork, err = c.worktrees.HasWork(wtPath)
		if err != nil {
			c.logger.Log("[pipeline] structural check failed for %s: %v", wtPath, err)
			hasWork = false
		}
		if hasWork {
			changed, err = c.worktrees.ChangedFiles(wtPath)
			if err != nil {
				c.logger.Log("[pipeline] changed-files listing failed for %s: %v", wtPath, err)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The reaper may have reclaimed the agent while the lock was released.
	if agent.State != models.AgentValidating || agent.CurrentFeature != featureID {
		return false, fmt.Errorf("%w: agent %s was reclaimed during validation", ErrInvalidTransition, agentID)
	}

	passed := hasWork && testsPassed
	if !passed {
		reason := "tests_failed"
		if !hasWork {
			reason = "no_changes"
		}
		agent.State, _ = nextState(agent.State, EventValidationFail)
		agent.LastActivity = c.now()
		feature.Status = models.FeatureInProgress
		feature.Progress = 25
		if agent.Worktree != nil {
			agent.Worktree.Status = models.WorktreeInProgress
		}

		c.emit("validation_failed", traceID, map[string]string{
			telemetry.AttrAgentID:   agentID,
			telemetry.AttrFeatureID: featureID,
			telemetry.AttrOutcome:   "fail",
			telemetry.AttrReason:    reason,
		})
		c.logger.Log("[pipeline] validation failed for %s/%s: %s", agentID, featureID, reason)
		return false, nil
	}

	agent.State, _ = nextState(agent.State, EventValidationPass)
	agent.LastActivity = c.now()
	feature.Progress = 90
	if agent.Worktree != nil {
		agent.Worktree.Status = models.WorktreeReadyToMerge
	}

	c.completeLocked(agent, feature, changed)
	return true, nil
}

// completeLocked finalizes a submitting agent's feature: the feature moves
// to completed, the agent passes through finished and is returned to the
// idle pool. Caller holds the lock.
func (c *Coordinator) completeLocked(agent *AgentRuntime, feature *models.Feature, changed []string) {
	now := c.now()

	agent.State, _ = nextState(agent.State, EventComplete)

	feature.Status = models.FeatureCompleted
	feature.Progress = 100
	feature.CompletedAt = now
	if !feature.StartedAt.IsZero() {
		feature.DurationSeconds = now.Sub(feature.StartedAt).Seconds()
	}
	feature.ChangedFiles = changed
	if agent.Worktree != nil {
		agent.Worktree.Status = models.WorktreeMerged
	}

	delete(c.active, feature.ID)
	c.completed = append(c.completed, feature)
	agent.CompletedFeatures = append(agent.CompletedFeatures, feature.ID)

	c.emit("feature_completed", agent.TraceID, map[string]string{
		telemetry.AttrAgentID:   agent.Profile.ID,
		telemetry.AttrFeatureID: feature.ID,
		telemetry.AttrOutcome:   "ok",
		"duration_seconds":      strconv.FormatFloat(feature.DurationSeconds, 'f', 1, 64),
		"changed_files":         strings.Join(changed, ","),
	})
	c.logger.Log("[pipeline] feature %s completed by %s (%d files, %.1fs)",
		feature.ID, agent.Profile.ID, len(changed), feature.DurationSeconds)

	// Recycle the agent for the next assignment.
	agent.State = models.AgentIdle
	agent.CurrentFeature = ""
	agent.Worktree = nil
	agent.LastActivity = now
}
