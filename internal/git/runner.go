package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// ExecRunner implements Runner using exec.Command.
type ExecRunner struct {
	repoPath string
}

// NewRunner creates a new git runner for the repository at the given path.
func NewRunner(repoPath string) *ExecRunner {
	return &ExecRunner{repoPath: repoPath}
}

// run executes a git command in the given directory and returns its output.
func (r *ExecRunner) runIn(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// run executes a git command in the repository root.
func (r *ExecRunner) run(args ...string) (string, error) {
	return r.runIn(r.repoPath, args...)
}

// runSilent executes a git command in the repository root and ignores output.
func (r *ExecRunner) runSilent(args ...string) error {
	_, err := r.run(args...)
	return err
}

// Run executes an arbitrary git command with the given arguments.
func (r *ExecRunner) Run(args ...string) (string, error) {
	return r.run(args...)
}

// CurrentBranch returns the name of the current branch.
func (r *ExecRunner) CurrentBranch() (string, error) {
	return r.run("rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists returns true if the branch exists.
func (r *ExecRunner) BranchExists(name string) (bool, error) {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	cmd.Dir = r.repoPath
	err := cmd.Run()
	if err != nil {
		// Exit code 1 means branch doesn't exist (not an error)
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("check branch exists: %w", err)
	}
	return true, nil
}

// DeleteBranch deletes the specified branch.
func (r *ExecRunner) DeleteBranch(name string) error {
	return r.runSilent("branch", "-D", name)
}

// WorktreeAddNewBranchFrom creates a new worktree with a new branch from a base ref.
func (r *ExecRunner) WorktreeAddNewBranchFrom(path, branch, baseRef string) error {
	return r.runSilent("worktree", "add", "-b", branch, path, baseRef)
}

// WorktreeRemove removes the worktree at the given path.
func (r *ExecRunner) WorktreeRemove(path string) error {
	return r.runSilent("worktree", "remove", "--force", path)
}

// WorktreeRemoveOptionalForce removes the worktree, optionally with force.
func (r *ExecRunner) WorktreeRemoveOptionalForce(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, path)
	return r.runSilent(args...)
}

// WorktreeUnlock unlocks a locked worktree.
func (r *ExecRunner) WorktreeUnlock(path string) error {
	return r.runSilent("worktree", "unlock", path)
}

// WorktreeListPorcelain returns the raw porcelain output for detailed parsing.
func (r *ExecRunner) WorktreeListPorcelain() (string, error) {
	return r.run("worktree", "list", "--porcelain")
}

// WorktreePruneExpireNow prunes worktrees with --expire now.
func (r *ExecRunner) WorktreePruneExpireNow() error {
	return r.runSilent("worktree", "prune", "--expire", "now")
}

// StatusIn returns git status --porcelain output for the given worktree.
func (r *ExecRunner) StatusIn(path string) (string, error) {
	return r.runIn(path, "status", "--porcelain")
}

// HasChangesIn returns true if the worktree has uncommitted changes.
func (r *ExecRunner) HasChangesIn(path string) (bool, error) {
	status, err := r.StatusIn(path)
	if err != nil {
		return false, err
	}
	return len(status) > 0, nil
}

// ChangedFilesIn returns files changed in the worktree since baseRef,
// merging committed changes (diff against the merge base) with any
// uncommitted ones from status.
func (r *ExecRunner) ChangedFilesIn(path, baseRef string) ([]string, error) {
	out, err := r.runIn(path, "diff", "--name-only", baseRef+"...HEAD")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	for _, f := range strings.Split(out, "\n") {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		files = append(files, f)
	}

	status, err := r.StatusIn(path)
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(status, "\n") {
		if len(line) < 4 {
			continue
		}
		f := strings.TrimSpace(line[3:])
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		files = append(files, f)
	}

	return files, nil
}

// HasCommitsSince returns true if the worktree's branch has commits beyond baseRef.
func (r *ExecRunner) HasCommitsSince(path, baseRef string) (bool, error) {
	out, err := r.runIn(path, "rev-list", "--count", baseRef+"..HEAD")
	if err != nil {
		return false, err
	}
	return out != "" && out != "0", nil
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
