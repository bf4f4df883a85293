package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swarmtree/swarmtree/internal/config"
	"github.com/swarmtree/swarmtree/internal/coordinator"
	"github.com/swarmtree/swarmtree/internal/state"
	"github.com/swarmtree/swarmtree/internal/telemetry"
	"github.com/swarmtree/swarmtree/internal/worktree"
)

// app bundles the wired-up collaborators a command needs. Each command
// runs in its own process, so the coordinator is rehydrated from the
// latest snapshot on startup and persisted again after mutations.
type app struct {
	cfg         *config.Config
	coord       *coordinator.Coordinator
	db          *state.DB
	emitter     *telemetry.Emitter
	worktrees   worktree.Provider
	debugLogger *coordinator.DebugLogger
}

// newApp loads configuration, opens the state database, and restores the
// coordinator from the most recent snapshot if one exists.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	repoPath, err := findGitRoot(cfg.Repo.Path)
	if err != nil {
		return nil, fmt.Errorf("find git repository: %w", err)
	}

	manager, err := worktree.NewManager(cfg.Repo.WorktreeDir, repoPath, cfg.Repo.BaseRef)
	if err != nil {
		return nil, fmt.Errorf("create worktree manager: %w", err)
	}

	var sink telemetry.Sink = telemetry.NopSink{}
	if cfg.Telemetry.LogPath != "" {
		fileSink, err := telemetry.NewFileSink(cfg.Telemetry.LogPath)
		if err != nil {
			return nil, fmt.Errorf("open telemetry log: %w", err)
		}
		sink = fileSink
	}
	emitter := telemetry.NewEmitter(sink, cfg.Telemetry.BufferSize)

	debugLogger, err := coordinator.NewDebugLogger(cfg.Telemetry.DebugLogPath)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}

	dbPath := cfg.State.DBPath
	if dbPath == "" {
		dbPath = state.ProjectDBPath(repoPath)
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}

	coord, err := coordinator.New(coordinator.Config{
		Worktrees:      manager,
		Sink:           emitter,
		Logger:         debugLogger,
		StaleThreshold: cfg.Coordinator.StaleThreshold,
		QueueLimit:     cfg.Coordinator.QueueLimit,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	snap, err := db.LoadLatestSnapshot()
	if err != nil && !errors.Is(err, state.ErrNoSnapshot) {
		db.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if err == nil {
		coord.Restore(snap)
	}

	return &app{
		cfg:         cfg,
		coord:       coord,
		db:          db,
		emitter:     emitter,
		worktrees:   manager,
		debugLogger: debugLogger,
	}, nil
}

// persist saves the coordinator's current state as a new snapshot.
func (a *app) persist() error {
	if err := a.db.SaveSnapshot(a.coord.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// close releases the app's resources.
func (a *app) close() {
	a.db.Close()
	a.emitter.Close()
	a.debugLogger.Close()
}

// findGitRoot finds the root of the git repository starting from the given directory.
func findGitRoot(startDir string) (string, error) {
	dir := startDir
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a git repository")
		}
		dir = parent
	}
}
