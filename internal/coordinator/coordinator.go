// Package coordinator implements the coordination core: agent registry,
// feature queue, matching engine, validation pipeline, timeout reaper, and
// health scoring, all behind a single mutual-exclusion boundary.
package coordinator

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmtree/swarmtree/internal/telemetry"
	"github.com/swarmtree/swarmtree/internal/worktree"
	"github.com/swarmtree/swarmtree/pkg/models"
)

// Config contains the collaborators and tunables for a Coordinator.
type Config struct {
	// Worktrees manages workspace lifecycle. Required.
	Worktrees worktree.Provider
	// Sink receives all coordination events. Defaults to NopSink.
	Sink telemetry.Sink
	// Strategy scores features against agents. Defaults to AdditiveStrategy.
	Strategy MatchStrategy
	// Logger receives debug lines. Defaults to a no-op logger.
	Logger *DebugLogger
	// StaleThreshold is the reaper's inactivity cutoff. Defaults to 1 hour.
	StaleThreshold time.Duration
	// QueueLimit caps the pending queue; zero means unlimited.
	QueueLimit int
	// Clock supplies the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Coordinator owns the shared coordination state: the agent registry, the
// pending feature queue, the active feature map, and the completed list.
// A feature is present in exactly one of the three collections at any
// instant. All mutations are serialized behind one mutex; workspace
// creation runs outside the lock under a reservation (see Assign).
type Coordinator struct {
	mu sync.Mutex

	registry  *registry
	pending   []*models.Feature
	active    map[string]*models.Feature
	completed []*models.Feature

	worktrees worktree.Provider
	sink      telemetry.Sink
	strategy  MatchStrategy
	logger    *DebugLogger

	staleThreshold time.Duration
	queueLimit     int
	now            func() time.Time
}

// New creates a Coordinator from the given config.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Worktrees == nil {
		return nil, fmt.Errorf("%w: worktree provider is required", ErrConfiguration)
	}
	if cfg.Sink == nil {
		cfg.Sink = telemetry.NopSink{}
	}
	if cfg.Strategy == nil {
		cfg.Strategy = AdditiveStrategy{}
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Coordinator{
		registry:       newRegistry(),
		active:         make(map[string]*models.Feature),
		worktrees:      cfg.Worktrees,
		sink:           cfg.Sink,
		strategy:       cfg.Strategy,
		logger:         cfg.Logger,
		staleThreshold: cfg.StaleThreshold,
		queueLimit:     cfg.QueueLimit,
		now:            cfg.Clock,
	}, nil
}

// shortID returns a compact unique identifier.
func shortID() string {
	return uuid.New().String()[:8]
}

// emit sends a coordination event to the sink.
func (c *Coordinator) emit(name, traceID string, attrs map[string]string) {
	c.sink.Emit(telemetry.NewEvent(name, traceID, attrs))
}

// RegisterAgent validates and registers an agent profile, returning the
// agent id. A missing id is generated; the profile is immutable afterwards.
func (c *Coordinator) RegisterAgent(profile models.AgentProfile) (string, error) {
	if profile.ID == "" {
		profile.ID = "agent-" + shortID()
	}
	if strings.ContainsAny(profile.ID, "/ \t\n") {
		return "", fmt.Errorf("%w: agent id %q contains illegal characters", ErrConfiguration, profile.ID)
	}
	if profile.PreferredComplexity == "" {
		profile.PreferredComplexity = models.ComplexityMedium
	}
	if !profile.PreferredComplexity.Valid() {
		return "", fmt.Errorf("%w: unknown complexity %q", ErrConfiguration, profile.PreferredComplexity)
	}
	if profile.MaxConcurrent <= 0 {
		profile.MaxConcurrent = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry.get(profile.ID) != nil {
		return "", fmt.Errorf("%w: agent %s already registered", ErrConfiguration, profile.ID)
	}

	agent := &AgentRuntime{
		Profile:      profile,
		State:        models.AgentIdle,
		LastActivity: c.now(),
		TraceID:      uuid.New().String(),
	}
	c.registry.register(agent)

	c.emit("agent_registered", agent.TraceID, map[string]string{
		telemetry.AttrAgentID: profile.ID,
		telemetry.AttrOutcome: "ok",
		"preferred_complexity": string(profile.PreferredComplexity),
	})
	c.logger.Log("[registry] agent %s registered (complexity=%s, tags=%v)",
		profile.ID, profile.PreferredComplexity, profile.Tags)

	return profile.ID, nil
}

// EnqueueFeature validates a feature spec and appends it to the pending
// queue, returning the feature id.
func (c *Coordinator) EnqueueFeature(f models.Feature) (string, error) {
	if f.Name == "" {
		return "", fmt.Errorf("%w: feature name is required", ErrConfiguration)
	}
	if f.EstimatedEffort <= 0 {
		return "", fmt.Errorf("%w: estimated effort must be positive", ErrConfiguration)
	}
	if f.Priority == "" {
		f.Priority = models.PriorityMedium
	}
	if !f.Priority.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrConfiguration, f.Priority)
	}

	f.ID = shortID()
	f.Status = models.FeatureQueued
	f.Progress = 0
	f.EnqueuedAt = c.now()
	f.AssignedAgent = ""
	f.WorktreePath = ""
	f.BranchName = ""

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queueLimit > 0 && len(c.pending) >= c.queueLimit {
		return "", fmt.Errorf("%w: %d features pending", ErrQueueLimit, len(c.pending))
	}

	c.pending = append(c.pending, &f)

	c.emit("feature_enqueued", "", map[string]string{
		telemetry.AttrFeatureID: f.ID,
		telemetry.AttrOutcome:   "ok",
		"feature_name":          f.Name,
		"priority":              string(f.Priority),
	})
	c.logger.Log("[queue] feature %s (%s) enqueued, priority=%s effort=%d",
		f.ID, f.Name, f.Priority, f.EstimatedEffort)

	return f.ID, nil
}

// AgentStatus returns a copy of the agent's runtime state.
func (c *Coordinator) AgentStatus(agentID string) (AgentRuntime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	agent := c.registry.get(agentID)
	if agent == nil {
		return AgentRuntime{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return agent.clone(), nil
}

// Status summarizes coordination state for operators.
type Status struct {
	TotalAgents    int                   `json:"total_agents"`
	ActiveAgents   int                   `json:"active_agents"`
	IdleAgents     int                   `json:"idle_agents"`
	AgentsByState  map[string]int        `json:"agents_by_state"`
	QueuedFeatures int                   `json:"queued_features"`
	ActiveFeatures int                   `json:"active_features"`
	Completed      int                   `json:"completed_features"`
	Health         float64               `json:"health"`
	Agents         []AgentRuntime        `json:"agents,omitempty"`
	Queue          []models.Feature      `json:"queue,omitempty"`
}

// Status returns a point-in-time summary of agents, features, and health.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		TotalAgents:    c.registry.count(),
		ActiveAgents:   c.registry.countActive(),
		AgentsByState:  make(map[string]int),
		QueuedFeatures: len(c.pending),
		ActiveFeatures: len(c.active),
		Completed:      len(c.completed),
		Health:         c.healthLocked(),
	}
	st.IdleAgents = len(c.registry.idle())

	for _, a := range c.registry.all() {
		st.AgentsByState[string(a.State)]++
		st.Agents = append(st.Agents, a.clone())
	}
	for _, f := range c.pending {
		st.Queue = append(st.Queue, *f)
	}

	return st
}
