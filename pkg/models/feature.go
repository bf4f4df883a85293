package models

import "time"

// Priority represents the urgency tier of a feature.
type Priority string

const (
	// PriorityHigh marks features that should be assigned first.
	PriorityHigh Priority = "high"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityLow marks features assigned only when nothing else queues.
	PriorityLow Priority = "low"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Weight returns the additive matching weight for this priority.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 1
	}
}

// FeatureStatus represents the current state of a feature.
type FeatureStatus string

const (
	// FeatureQueued indicates the feature awaits assignment.
	FeatureQueued FeatureStatus = "queued"
	// FeatureAssigned indicates an agent has claimed the feature.
	FeatureAssigned FeatureStatus = "assigned"
	// FeatureInProgress indicates development is underway.
	FeatureInProgress FeatureStatus = "in_progress"
	// FeatureTesting indicates the feature is under test.
	FeatureTesting FeatureStatus = "testing"
	// FeatureValidating indicates submitted work is being checked.
	FeatureValidating FeatureStatus = "validating"
	// FeatureCompleted indicates the feature finished successfully.
	FeatureCompleted FeatureStatus = "completed"
	// FeatureFailed indicates the feature failed terminally.
	FeatureFailed FeatureStatus = "failed"
	// FeatureAbandoned indicates the feature was reclaimed from a stale agent.
	FeatureAbandoned FeatureStatus = "abandoned"
)

// Valid returns true if the status is a known value.
func (s FeatureStatus) Valid() bool {
	switch s {
	case FeatureQueued, FeatureAssigned, FeatureInProgress, FeatureTesting,
		FeatureValidating, FeatureCompleted, FeatureFailed, FeatureAbandoned:
		return true
	default:
		return false
	}
}

// Feature represents one unit of work moving through the coordinator.
// A feature lives in exactly one of the pending queue, the active map,
// or the completed list at any instant.
type Feature struct {
	// ID is the unique identifier for this feature.
	ID string `json:"id"`
	// Name is the short human-readable name.
	Name string `json:"name"`
	// Description provides detailed information about the feature.
	Description string `json:"description,omitempty"`
	// Requirements lists the requirement strings for this feature.
	Requirements []string `json:"requirements,omitempty"`
	// Priority is the urgency tier used by the matching engine.
	Priority Priority `json:"priority"`
	// EstimatedEffort is the effort scalar (story points).
	EstimatedEffort int `json:"estimated_effort"`

	// AssignedAgent is the ID of the agent holding this feature, if any.
	AssignedAgent string `json:"assigned_agent,omitempty"`
	// WorktreePath is the path of the bound worktree, if any.
	WorktreePath string `json:"worktree_path,omitempty"`
	// BranchName is the branch of the bound worktree, if any.
	BranchName string `json:"branch_name,omitempty"`
	// Status is the current state of the feature.
	Status FeatureStatus `json:"status"`
	// Progress is the completion percentage (0-100).
	Progress int `json:"progress"`

	// EnqueuedAt is when the feature entered the queue.
	EnqueuedAt time.Time `json:"enqueued_at"`
	// StartedAt is when work began; zero until StartWork.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the feature completed; zero until then.
	CompletedAt time.Time `json:"completed_at"`
	// DurationSeconds is the completion time minus the start time.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	// ChangedFiles lists the files touched on the feature branch.
	ChangedFiles []string `json:"changed_files,omitempty"`
}
