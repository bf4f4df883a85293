// Package config handles configuration loading and management for swarmtree.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for swarmtree.
type Config struct {
	Repo        RepoConfig        `mapstructure:"repo"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	State       StateConfig       `mapstructure:"state"`
}

// RepoConfig holds repository and worktree settings.
type RepoConfig struct {
	// Path is the main repository checkout. Defaults to the current directory.
	Path string `mapstructure:"path"`
	// BaseRef is the stable ref feature branches start from.
	BaseRef string `mapstructure:"base_ref"`
	// WorktreeDir is the base directory for agent worktrees.
	// Defaults to <repo>/../swarmtree-worktrees.
	WorktreeDir string `mapstructure:"worktree_dir"`
}

// CoordinatorConfig holds coordination loop settings.
type CoordinatorConfig struct {
	// ReapInterval is how often the reaper scans for stale agents.
	ReapInterval time.Duration `mapstructure:"reap_interval"`
	// StaleThreshold is the inactivity cutoff before an agent is reclaimed.
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
	// CycleInterval is the pause between coordination cycles in run mode.
	CycleInterval time.Duration `mapstructure:"cycle_interval"`
	// QueueLimit caps the pending feature queue; 0 means unlimited.
	QueueLimit int `mapstructure:"queue_limit"`
}

// TelemetryConfig holds event log settings.
type TelemetryConfig struct {
	// LogPath is the JSONL event log. Empty disables file telemetry.
	LogPath string `mapstructure:"log_path"`
	// DebugLogPath is the coordinator debug log. Empty disables it.
	DebugLogPath string `mapstructure:"debug_log_path"`
	// BufferSize is the emitter's subscriber channel capacity.
	BufferSize int `mapstructure:"buffer_size"`
}

// StateConfig holds persistence settings.
type StateConfig struct {
	// DBPath overrides the project-local database location.
	DBPath string `mapstructure:"db_path"`
	// SnapshotInterval is how often run mode persists a snapshot.
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	// RetainSnapshots is how long old snapshots are kept before purging.
	RetainSnapshots time.Duration `mapstructure:"retain_snapshots"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SWARMTREE_*)
// 2. Project config (.swarmtree.yaml in current directory or parent)
// 3. User config (~/.config/swarmtree/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("SWARMTREE")
	v.AutomaticEnv()
	v.BindEnv("repo.base_ref", "SWARMTREE_BASE_REF")
	v.BindEnv("telemetry.log_path", "SWARMTREE_TELEMETRY_LOG")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyFallbacks(cfg)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyFallbacks(cfg)
	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("repo.path", cfg.Repo.Path)
	v.Set("repo.base_ref", cfg.Repo.BaseRef)
	v.Set("repo.worktree_dir", cfg.Repo.WorktreeDir)
	v.Set("coordinator.reap_interval", cfg.Coordinator.ReapInterval.String())
	v.Set("coordinator.stale_threshold", cfg.Coordinator.StaleThreshold.String())
	v.Set("coordinator.cycle_interval", cfg.Coordinator.CycleInterval.String())
	v.Set("coordinator.queue_limit", cfg.Coordinator.QueueLimit)
	v.Set("telemetry.log_path", cfg.Telemetry.LogPath)
	v.Set("telemetry.debug_log_path", cfg.Telemetry.DebugLogPath)
	v.Set("telemetry.buffer_size", cfg.Telemetry.BufferSize)
	v.Set("state.db_path", cfg.State.DBPath)
	v.Set("state.snapshot_interval", cfg.State.SnapshotInterval.String())
	v.Set("state.retain_snapshots", cfg.State.RetainSnapshots.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("repo.path", "")
	v.SetDefault("repo.base_ref", "main")
	v.SetDefault("repo.worktree_dir", "")

	v.SetDefault("coordinator.reap_interval", "30s")
	v.SetDefault("coordinator.stale_threshold", "1h")
	v.SetDefault("coordinator.cycle_interval", "5s")
	v.SetDefault("coordinator.queue_limit", 0)

	v.SetDefault("telemetry.log_path", "")
	v.SetDefault("telemetry.debug_log_path", "")
	v.SetDefault("telemetry.buffer_size", 100)

	v.SetDefault("state.db_path", "")
	v.SetDefault("state.snapshot_interval", "1m")
	v.SetDefault("state.retain_snapshots", "168h")
}

// applyFallbacks fills in values that cannot be expressed as static defaults.
func applyFallbacks(cfg *Config) {
	if cfg.Repo.Path == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.Repo.Path = cwd
		}
	}
	if cfg.Repo.BaseRef == "" {
		cfg.Repo.BaseRef = "main"
	}
	if cfg.Coordinator.ReapInterval <= 0 {
		cfg.Coordinator.ReapInterval = 30 * time.Second
	}
	if cfg.Coordinator.StaleThreshold <= 0 {
		cfg.Coordinator.StaleThreshold = time.Hour
	}
	if cfg.Coordinator.CycleInterval <= 0 {
		cfg.Coordinator.CycleInterval = 5 * time.Second
	}
	if cfg.Telemetry.BufferSize <= 0 {
		cfg.Telemetry.BufferSize = 100
	}
	if cfg.State.SnapshotInterval <= 0 {
		cfg.State.SnapshotInterval = time.Minute
	}
	if cfg.State.RetainSnapshots <= 0 {
		cfg.State.RetainSnapshots = 7 * 24 * time.Hour
	}
}

// getUserConfigDir returns the XDG config directory for swarmtree.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarmtree")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarmtree")
	}
	return filepath.Join(home, ".config", "swarmtree")
}

// findProjectConfig searches for .swarmtree.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".swarmtree.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{
		Repo: RepoConfig{
			BaseRef: "main",
		},
		Coordinator: CoordinatorConfig{
			ReapInterval:   30 * time.Second,
			StaleThreshold: time.Hour,
			CycleInterval:  5 * time.Second,
		},
		Telemetry: TelemetryConfig{
			BufferSize: 100,
		},
		State: StateConfig{
			SnapshotInterval: time.Minute,
			RetainSnapshots:  7 * 24 * time.Hour,
		},
	}
	applyFallbacks(cfg)
	return cfg
}
