package models

import "time"

// WorktreeStatus represents the coordination status of a worktree.
type WorktreeStatus string

const (
	// WorktreeAvailable indicates the worktree is not bound to any feature.
	WorktreeAvailable WorktreeStatus = "available"
	// WorktreeClaimed indicates an agent has claimed the worktree.
	WorktreeClaimed WorktreeStatus = "claimed"
	// WorktreeInProgress indicates development is underway inside it.
	WorktreeInProgress WorktreeStatus = "in_progress"
	// WorktreeValidating indicates submitted work is being checked.
	WorktreeValidating WorktreeStatus = "validating"
	// WorktreeReadyToMerge indicates validation passed.
	WorktreeReadyToMerge WorktreeStatus = "ready_to_merge"
	// WorktreeMerged indicates the feature branch was merged.
	WorktreeMerged WorktreeStatus = "merged"
	// WorktreeAbandoned indicates the worktree was reclaimed after a timeout.
	// The directory is left on disk for later cleanup.
	WorktreeAbandoned WorktreeStatus = "abandoned"
)

// Valid returns true if the status is a known value.
func (s WorktreeStatus) Valid() bool {
	switch s {
	case WorktreeAvailable, WorktreeClaimed, WorktreeInProgress,
		WorktreeValidating, WorktreeReadyToMerge, WorktreeMerged, WorktreeAbandoned:
		return true
	default:
		return false
	}
}

// Worktree is a handle to an isolated, branch-scoped workspace bound to
// exactly one in-progress feature.
type Worktree struct {
	// Path is the absolute path to the worktree directory.
	Path string `json:"path"`
	// Branch is the branch associated with this worktree.
	Branch string `json:"branch"`
	// Status is the coordination status of the worktree.
	Status WorktreeStatus `json:"status"`
	// AgentID is the agent that owns this worktree.
	AgentID string `json:"agent_id,omitempty"`
	// FeatureID is the feature this worktree was created for.
	FeatureID string `json:"feature_id,omitempty"`
	// CreatedAt is when the worktree was created.
	CreatedAt time.Time `json:"created_at"`
}
