// Package worktree manages isolated git worktrees bound to features.
package worktree

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/swarmtree/swarmtree/internal/git"
	"github.com/swarmtree/swarmtree/pkg/models"
)

// branchPrefix is the prefix for all coordinator-managed feature branches.
const branchPrefix = "feature/"

// Provider defines the interface for worktree lifecycle management.
// This interface allows mocking worktree operations in tests.
type Provider interface {
	// Create creates a new worktree bound to the given agent/feature pair.
	Create(agentID, featureID string) (*models.Worktree, error)
	// Remove removes a worktree at the given path.
	Remove(path string, force bool) error
	// HasChanges returns true if the worktree has uncommitted changes.
	HasChanges(path string) (bool, error)
	// ChangedFiles returns files touched in the worktree since branch creation.
	ChangedFiles(path string) ([]string, error)
	// HasWork returns true if the worktree contains committed or
	// uncommitted changes since branch creation.
	HasWork(path string) (bool, error)
	// List returns all worktrees known to the repository.
	List() ([]*models.Worktree, error)
	// Prune removes references to worktrees that no longer exist on disk.
	Prune() error
	// ListOrphans returns coordinator-managed worktrees whose feature is
	// not in the active set.
	ListOrphans(activeFeatures []string) ([]*models.Worktree, error)
	// CleanupOrphans removes orphaned worktrees, returning the removed count.
	CleanupOrphans(activeFeatures []string, verbose func(path string)) (int, error)
	// BaseDir returns the base directory where worktrees are created.
	BaseDir() string
}

// Verify Manager implements Provider at compile time.
var _ Provider = (*Manager)(nil)

// Manager handles git worktree operations for feature isolation.
// Exactly one worktree exists per active feature; the manager derives a
// deterministic path and branch from the agent and feature identities.
type Manager struct {
	baseDir  string // Base directory for worktrees
	repoPath string // Path to the main git repository
	baseRef  string // Stable ref new branches start from (e.g. main)
	git      git.Runner
	mu       sync.Mutex
}

// NewManager creates a new Manager. baseDir defaults to
// <repo>/../swarmtree-worktrees when empty; baseRef defaults to main.
func NewManager(baseDir, repoPath, baseRef string) (*Manager, error) {
	return newManager(baseDir, repoPath, baseRef, git.NewRunner(repoPath))
}

// NewManagerWithRunner creates a Manager with a custom git runner (for testing).
func NewManagerWithRunner(baseDir, repoPath, baseRef string, runner git.Runner) (*Manager, error) {
	return newManager(baseDir, repoPath, baseRef, runner)
}

func newManager(baseDir, repoPath, baseRef string, runner git.Runner) (*Manager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(filepath.Dir(repoPath), "swarmtree-worktrees")
	}
	if baseRef == "" {
		baseRef = "main"
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create worktree base directory: %w", err)
	}

	return &Manager{
		baseDir:  baseDir,
		repoPath: repoPath,
		baseRef:  baseRef,
		git:      runner,
	}, nil
}

// PathFor returns the deterministic worktree path for an agent/feature pair.
func (m *Manager) PathFor(agentID, featureID string) string {
	return filepath.Join(m.baseDir, fmt.Sprintf("wt-%s-%s", agentID, featureID))
}

// BranchFor returns the deterministic branch name for an agent/feature pair.
func (m *Manager) BranchFor(agentID, featureID string) string {
	return fmt.Sprintf("%s%s-%s", branchPrefix, featureID, agentID)
}

// Create creates a new worktree on a fresh branch from the base ref.
// The branch must not already exist. On failure no partial state is left
// behind and the caller must not register the handle.
func (m *Manager) Create(agentID, featureID string) (*models.Worktree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if agentID == "" || featureID == "" {
		return nil, fmt.Errorf("create worktree: agent and feature ids are required")
	}

	branch := m.BranchFor(agentID, featureID)
	path := m.PathFor(agentID, featureID)

	exists, err := m.git.BranchExists(branch)
	if err != nil {
		return nil, fmt.Errorf("check branch %s: %w", branch, err)
	}
	if exists {
		return nil, fmt.Errorf("create worktree: branch %s already exists", branch)
	}

	if err := m.git.WorktreeAddNewBranchFrom(path, branch, m.baseRef); err != nil {
		return nil, fmt.Errorf("create worktree: %w", err)
	}

	return &models.Worktree{
		Path:      path,
		Branch:    branch,
		Status:    models.WorktreeClaimed,
		AgentID:   agentID,
		FeatureID: featureID,
		CreatedAt: time.Now(),
	}, nil
}

// Remove removes a worktree at the given path.
// If force is true, removes the worktree even with uncommitted changes.
func (m *Manager) Remove(path string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.git.WorktreeRemoveOptionalForce(path, force); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	return nil
}

// HasChanges returns true if the worktree has uncommitted changes.
func (m *Manager) HasChanges(path string) (bool, error) {
	return m.git.HasChangesIn(path)
}

// ChangedFiles returns files touched in the worktree since branch creation.
func (m *Manager) ChangedFiles(path string) ([]string, error) {
	return m.git.ChangedFilesIn(path, m.baseRef)
}

// HasWork returns true if the worktree contains committed or uncommitted
// changes since branch creation. Used as the structural validation check.
func (m *Manager) HasWork(path string) (bool, error) {
	dirty, err := m.git.HasChangesIn(path)
	if err != nil {
		return false, err
	}
	if dirty {
		return true, nil
	}
	return m.git.HasCommitsSince(path, m.baseRef)
}

// List returns all worktrees known to the repository.
func (m *Manager) List() ([]*models.Worktree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	output, err := m.git.WorktreeListPorcelain()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	return parseWorktreeList(output)
}

// parseWorktreeList parses the output of 'git worktree list --porcelain'.
func parseWorktreeList(output string) ([]*models.Worktree, error) {
	var worktrees []*models.Worktree
	var current *models.Worktree

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if current != nil {
				worktrees = append(worktrees, current)
				current = nil
			}
			continue
		}

		if strings.HasPrefix(line, "worktree ") {
			current = &models.Worktree{
				Path:   strings.TrimPrefix(line, "worktree "),
				Status: models.WorktreeAvailable,
			}
		} else if strings.HasPrefix(line, "branch ") && current != nil {
			// Format: branch refs/heads/<name>
			branchRef := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(branchRef, "refs/heads/")

			// Recover agent/feature identity from managed branch names
			if featureID, agentID, ok := splitManagedBranch(current.Branch); ok {
				current.FeatureID = featureID
				current.AgentID = agentID
			}
		}
	}

	// Last worktree if output doesn't end with a blank line
	if current != nil {
		worktrees = append(worktrees, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse worktree list: %w", err)
	}

	return worktrees, nil
}

// splitManagedBranch extracts the feature and agent ids from a managed
// branch name of the form feature/<featureID>-<agentID>. Feature ids
// never contain dashes; agent ids may.
func splitManagedBranch(branch string) (featureID, agentID string, ok bool) {
	if !strings.HasPrefix(branch, branchPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(branch, branchPrefix)
	idx := strings.Index(rest, "-")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// Prune removes references to worktrees that no longer exist on disk.
func (m *Manager) Prune() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.git.WorktreePruneExpireNow(); err != nil {
		return fmt.Errorf("prune worktrees: %w", err)
	}
	return nil
}

// ListOrphans returns coordinator-managed worktrees whose feature id is
// not in the active set. These are left over from reaped agents or crashes.
func (m *Manager) ListOrphans(activeFeatures []string) ([]*models.Worktree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	output, err := m.git.WorktreeListPorcelain()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	worktrees, err := parseWorktreeList(output)
	if err != nil {
		return nil, err
	}

	activeSet := make(map[string]bool)
	for _, id := range activeFeatures {
		activeSet[id] = true
	}

	var orphans []*models.Worktree
	for _, wt := range worktrees {
		// Skip the main repo and worktrees we don't manage
		if wt.Path == m.repoPath || wt.FeatureID == "" {
			continue
		}
		if activeSet[wt.FeatureID] {
			continue
		}
		orphans = append(orphans, wt)
	}

	return orphans, nil
}

// CleanupOrphans removes orphaned worktrees and their branches, returning
// the count of removed worktrees. If verbose is provided, it is called for
// each removed worktree path.
func (m *Manager) CleanupOrphans(activeFeatures []string, verbose func(path string)) (int, error) {
	orphans, err := m.ListOrphans(activeFeatures)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, wt := range orphans {
		_ = m.git.WorktreeUnlock(wt.Path) // Ignore errors, it may not be locked

		if err := m.git.WorktreeRemove(wt.Path); err != nil {
			// If git worktree remove fails, try removing the directory directly
			if err := os.RemoveAll(wt.Path); err != nil {
				continue // Skip if we can't remove it
			}
		}
		_ = m.git.DeleteBranch(wt.Branch) // Branch may already be gone

		if verbose != nil {
			verbose(wt.Path)
		}
		removed++
	}

	// Final prune to clean up any dangling references
	_ = m.git.WorktreePruneExpireNow()

	return removed, nil
}

// BaseDir returns the base directory where worktrees are created.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// RepoPath returns the path to the main git repository.
func (m *Manager) RepoPath() string {
	return m.repoPath
}

// BaseRef returns the stable ref new feature branches start from.
func (m *Manager) BaseRef() string {
	return m.baseRef
}
