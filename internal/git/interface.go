// Package git provides a narrow interface over the git CLI for the
// coordination core. The core treats every operation here as fallible
// external I/O and never inspects history beyond the status checks below.
package git

// BranchOperations defines the interface for git branch operations.
type BranchOperations interface {
	// CurrentBranch returns the name of the current branch.
	CurrentBranch() (string, error)
	// BranchExists returns true if the branch exists.
	BranchExists(name string) (bool, error)
	// DeleteBranch deletes the specified branch (force delete).
	DeleteBranch(name string) error
}

// WorktreeOperations defines the interface for git worktree operations.
type WorktreeOperations interface {
	// WorktreeAddNewBranchFrom creates a new worktree with a new branch
	// starting at the given base ref (git worktree add -b <branch> <path> <base>).
	WorktreeAddNewBranchFrom(path, branch, baseRef string) error
	// WorktreeRemove removes the worktree at the given path (force).
	WorktreeRemove(path string) error
	// WorktreeRemoveOptionalForce removes the worktree, optionally with force.
	WorktreeRemoveOptionalForce(path string, force bool) error
	// WorktreeUnlock unlocks a locked worktree.
	WorktreeUnlock(path string) error
	// WorktreeListPorcelain returns the raw porcelain output for parsing.
	WorktreeListPorcelain() (string, error)
	// WorktreePruneExpireNow prunes stale worktree entries with --expire now.
	WorktreePruneExpireNow() error
}

// StatusOperations defines the interface for change inspection inside a
// specific worktree directory.
type StatusOperations interface {
	// StatusIn returns git status --porcelain output for the given worktree.
	StatusIn(path string) (string, error)
	// HasChangesIn returns true if the worktree has uncommitted changes.
	HasChangesIn(path string) (bool, error)
	// ChangedFilesIn returns the files changed in the worktree since baseRef,
	// including committed and uncommitted changes.
	ChangedFilesIn(path, baseRef string) ([]string, error)
	// HasCommitsSince returns true if the worktree's branch has commits
	// that baseRef does not.
	HasCommitsSince(path, baseRef string) (bool, error)
}

// Runner defines the complete interface for git operations used by the
// coordinator. Consumers should prefer the focused interfaces when possible.
type Runner interface {
	BranchOperations
	WorktreeOperations
	StatusOperations
	// Run executes an arbitrary git command with the given arguments.
	Run(args ...string) (string, error)
}
