package coordinator

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/swarmtree/swarmtree/internal/telemetry"
	"github.com/swarmtree/swarmtree/pkg/models"
)

// fakeProvider implements worktree.Provider without touching git.
type fakeProvider struct {
	mu        sync.Mutex
	created   []string
	removed   []string
	createErr error
	hasWork   map[string]bool     // nil entry means "has work"
	changed   map[string][]string // nil entry means a default file list
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		hasWork: make(map[string]bool),
		changed: make(map[string][]string),
	}
}

func (p *fakeProvider) Create(agentID, featureID string) (*models.Worktree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.createErr != nil {
		return nil, p.createErr
	}
	path := fmt.Sprintf("/tmp/worktrees/wt-%s-%s", agentID, featureID)
	p.created = append(p.created, path)
	return &models.Worktree{
		Path:      path,
		Branch:    fmt.Sprintf("feature/%s-%s", featureID, agentID),
		Status:    models.WorktreeClaimed,
		AgentID:   agentID,
		FeatureID: featureID,
		CreatedAt: time.Now(),
	}, nil
}

func (p *fakeProvider) Remove(path string, force bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, path)
	return nil
}

func (p *fakeProvider) HasChanges(path string) (bool, error) { return p.HasWork(path) }

func (p *fakeProvider) HasWork(path string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.hasWork[path]; ok {
		return v, nil
	}
	return true, nil
}

func (p *fakeProvider) ChangedFiles(path string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if files, ok := p.changed[path]; ok {
		return files, nil
	}
	return []string{"main.go"}, nil
}

func (p *fakeProvider) List() ([]*models.Worktree, error) { return nil, nil }
func (p *fakeProvider) Prune() error                      { return nil }

func (p *fakeProvider) ListOrphans(activeFeatures []string) ([]*models.Worktree, error) {
	return nil, nil
}

func (p *fakeProvider) CleanupOrphans(activeFeatures []string, verbose func(string)) (int, error) {
	return 0, nil
}

func (p *fakeProvider) BaseDir() string { return "/tmp/worktrees" }

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeProvider, *telemetry.MemorySink, *fakeClock) {
	t.Helper()

	provider := newFakeProvider()
	sink := telemetry.NewMemorySink()
	clock := newFakeClock()

	c, err := New(Config{
		Worktrees: provider,
		Sink:      sink,
		Clock:     clock.Now,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c, provider, sink, clock
}

func mustRegister(t *testing.T, c *Coordinator, profile models.AgentProfile) string {
	t.Helper()
	id, err := c.RegisterAgent(profile)
	if err != nil {
		t.Fatalf("RegisterAgent(%s) error: %v", profile.ID, err)
	}
	return id
}

func mustEnqueue(t *testing.T, c *Coordinator, f models.Feature) string {
	t.Helper()
	id, err := c.EnqueueFeature(f)
	if err != nil {
		t.Fatalf("EnqueueFeature(%s) error: %v", f.Name, err)
	}
	return id
}

func TestRegisterAgent(t *testing.T) {
	c, _, sink, _ := newTestCoordinator(t)

	id := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	if id != "agent-1" {
		t.Errorf("id = %q, want agent-1", id)
	}

	rt, err := c.AgentStatus("agent-1")
	if err != nil {
		t.Fatalf("AgentStatus() error: %v", err)
	}
	if rt.State != models.AgentIdle {
		t.Errorf("state = %s, want idle", rt.State)
	}
	if rt.Profile.PreferredComplexity != models.ComplexityMedium {
		t.Errorf("complexity = %s, want medium default", rt.Profile.PreferredComplexity)
	}

	if sink.CountNamed("agent_registered") != 1 {
		t.Errorf("agent_registered events = %d, want 1", sink.CountNamed("agent_registered"))
	}
}

func TestRegisterAgentGeneratesID(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	id := mustRegister(t, c, models.AgentProfile{})
	if id == "" {
		t.Fatal("expected generated agent id")
	}
	if _, err := c.AgentStatus(id); err != nil {
		t.Errorf("AgentStatus(%s) error: %v", id, err)
	}
}

func TestRegisterAgentRejectsDuplicate(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	if _, err := c.RegisterAgent(models.AgentProfile{ID: "agent-1"}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("duplicate register error = %v, want ErrConfiguration", err)
	}
}

func TestRegisterAgentRejectsBadProfile(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	tests := []struct {
		name    string
		profile models.AgentProfile
	}{
		{"slash in id", models.AgentProfile{ID: "agent/1"}},
		{"space in id", models.AgentProfile{ID: "agent 1"}},
		{"bad complexity", models.AgentProfile{ID: "a1", PreferredComplexity: "extreme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.RegisterAgent(tt.profile); !errors.Is(err, ErrConfiguration) {
				t.Errorf("error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestEnqueueFeatureValidation(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	if _, err := c.EnqueueFeature(models.Feature{EstimatedEffort: 3}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing name error = %v, want ErrConfiguration", err)
	}
	if _, err := c.EnqueueFeature(models.Feature{Name: "x"}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("zero effort error = %v, want ErrConfiguration", err)
	}
	if _, err := c.EnqueueFeature(models.Feature{Name: "x", EstimatedEffort: 3, Priority: "urgent"}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("bad priority error = %v, want ErrConfiguration", err)
	}

	id := mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})
	if id == "" {
		t.Fatal("expected feature id")
	}
	queue := c.Pending()
	if len(queue) != 1 || queue[0].Priority != models.PriorityMedium {
		t.Errorf("queue = %+v, want one medium-priority feature", queue)
	}
}

func TestEnqueueFeatureQueueLimit(t *testing.T) {
	provider := newFakeProvider()
	c, err := New(Config{Worktrees: provider, QueueLimit: 1})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	mustEnqueue(t, c, models.Feature{Name: "a", EstimatedEffort: 1})
	if _, err := c.EnqueueFeature(models.Feature{Name: "b", EstimatedEffort: 1}); !errors.Is(err, ErrQueueLimit) {
		t.Errorf("error = %v, want ErrQueueLimit", err)
	}
}

// A medium-complexity agent must prefer a high-priority feature whose
// effort fits its band over a low-priority trivial one.
func TestAssignPrefersScoredMatch(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{
		ID:                  "agent-1",
		PreferredComplexity: models.ComplexityMedium,
	})

	f1 := mustEnqueue(t, c, models.Feature{Name: "payments", Priority: models.PriorityHigh, EstimatedEffort: 5})
	mustEnqueue(t, c, models.Feature{Name: "typo-fix", Priority: models.PriorityLow, EstimatedEffort: 2})

	got, err := c.Assign(agentID)
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if got == nil || got.ID != f1 {
		t.Fatalf("assigned = %+v, want feature %s", got, f1)
	}
	if got.Status != models.FeatureAssigned || got.Progress != 10 {
		t.Errorf("feature status/progress = %s/%d, want assigned/10", got.Status, got.Progress)
	}
	if got.AssignedAgent != agentID {
		t.Errorf("assigned agent = %s, want %s", got.AssignedAgent, agentID)
	}

	rt, _ := c.AgentStatus(agentID)
	if rt.State != models.AgentClaiming {
		t.Errorf("agent state = %s, want claiming", rt.State)
	}
	if rt.Worktree == nil || rt.Worktree.Status != models.WorktreeClaimed {
		t.Errorf("worktree = %+v, want claimed handle", rt.Worktree)
	}
}

func TestAssignTieBreaksByQueueOrder(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1", PreferredComplexity: models.ComplexityLow})

	first := mustEnqueue(t, c, models.Feature{Name: "a", Priority: models.PriorityMedium, EstimatedEffort: 2})
	mustEnqueue(t, c, models.Feature{Name: "b", Priority: models.PriorityMedium, EstimatedEffort: 2})

	got, err := c.Assign(agentID)
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if got == nil || got.ID != first {
		t.Fatalf("assigned %+v, want earliest-enqueued %s", got, first)
	}
}

func TestAssignUnknownAgent(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	if _, err := c.Assign("ghost"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("error = %v, want ErrUnknownAgent", err)
	}
}

func TestAssignNoWorkAvailable(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	got, err := c.Assign(agentID)
	if err != nil || got != nil {
		t.Errorf("Assign() = (%+v, %v), want (nil, nil) on empty queue", got, err)
	}
}

func TestAssignNonIdleAgentGetsNothing(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	mustEnqueue(t, c, models.Feature{Name: "a", EstimatedEffort: 2})
	mustEnqueue(t, c, models.Feature{Name: "b", EstimatedEffort: 2})

	if got, _ := c.Assign(agentID); got == nil {
		t.Fatal("first Assign() returned nothing")
	}
	got, err := c.Assign(agentID)
	if err != nil || got != nil {
		t.Errorf("second Assign() = (%+v, %v), want (nil, nil) while claiming", got, err)
	}
}

// Exclusivity: a feature reaches exactly one agent even when several
// idle agents compete for it.
func TestAssignExclusivity(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	featureID := mustEnqueue(t, c, models.Feature{Name: "only", EstimatedEffort: 2})

	var agentIDs []string
	for i := 0; i < 4; i++ {
		agentIDs = append(agentIDs, mustRegister(t, c, models.AgentProfile{ID: fmt.Sprintf("agent-%d", i)}))
	}

	results := make(chan *models.Feature, len(agentIDs))
	var wg sync.WaitGroup
	for _, id := range agentIDs {
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()
			f, err := c.Assign(agentID)
			if err != nil {
				t.Errorf("Assign(%s) error: %v", agentID, err)
				return
			}
			results <- f
		}(id)
	}
	wg.Wait()
	close(results)

	winners := 0
	for f := range results {
		if f != nil {
			winners++
			if f.ID != featureID {
				t.Errorf("assigned %s, want %s", f.ID, featureID)
			}
		}
	}
	if winners != 1 {
		t.Errorf("feature assigned to %d agents, want exactly 1", winners)
	}
}

// A failed worktree creation must roll the reservation back: feature
// returned to its original queue position, agent back to idle.
func TestAssignWorkspaceFailureRollsBack(t *testing.T) {
	c, provider, sink, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1", PreferredComplexity: models.ComplexityLow})
	mustEnqueue(t, c, models.Feature{Name: "first", Priority: models.PriorityLow, EstimatedEffort: 9})
	target := mustEnqueue(t, c, models.Feature{Name: "second", Priority: models.PriorityHigh, EstimatedEffort: 2})
	mustEnqueue(t, c, models.Feature{Name: "third", Priority: models.PriorityLow, EstimatedEffort: 9})

	provider.createErr = errors.New("disk full")

	got, err := c.Assign(agentID)
	if err != nil || got != nil {
		t.Fatalf("Assign() = (%+v, %v), want (nil, nil) on workspace failure", got, err)
	}

	rt, _ := c.AgentStatus(agentID)
	if rt.State != models.AgentIdle {
		t.Errorf("agent state = %s, want idle after rollback", rt.State)
	}

	queue := c.Pending()
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}
	if queue[1].ID != target {
		t.Errorf("queue[1] = %s, want %s restored to original position", queue[1].ID, target)
	}

	var failed bool
	for _, ev := range sink.Named("feature_assigned") {
		if ev.Attributes[telemetry.AttrOutcome] == "workspace_failed" {
			failed = true
		}
	}
	if !failed {
		t.Error("expected a workspace_failed assignment event")
	}
}

func TestStartWork(t *testing.T) {
	c, _, sink, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})

	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}

	rt, _ := c.AgentStatus(agentID)
	if rt.State != models.AgentWorking {
		t.Errorf("agent state = %s, want working", rt.State)
	}
	if rt.Worktree.Status != models.WorktreeInProgress {
		t.Errorf("worktree status = %s, want in_progress", rt.Worktree.Status)
	}
	if sink.CountNamed("work_started") != 1 {
		t.Errorf("work_started events = %d, want 1", sink.CountNamed("work_started"))
	}
}

func TestStartWorkRequiresClaiming(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	if err := c.StartWork(agentID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition from idle", err)
	}
	if err := c.StartWork("ghost"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("error = %v, want ErrUnknownAgent", err)
	}
}

// Full happy path: register, enqueue, assign, start, submit with passing
// tests. The feature ends completed and the agent returns to the pool.
func TestSubmitWorkCompletes(t *testing.T) {
	c, _, sink, clock := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	featureID := mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})

	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}

	clock.Advance(10 * time.Minute)

	passed, err := c.SubmitWork(agentID, true)
	if err != nil {
		t.Fatalf("SubmitWork() error: %v", err)
	}
	if !passed {
		t.Fatal("SubmitWork() = false, want pass")
	}

	rt, _ := c.AgentStatus(agentID)
	if rt.State != models.AgentIdle {
		t.Errorf("agent state = %s, want idle after completion", rt.State)
	}
	if rt.CurrentFeature != "" || rt.Worktree != nil {
		t.Errorf("agent still bound: feature=%q worktree=%v", rt.CurrentFeature, rt.Worktree)
	}
	if len(rt.CompletedFeatures) != 1 || rt.CompletedFeatures[0] != featureID {
		t.Errorf("completed features = %v, want [%s]", rt.CompletedFeatures, featureID)
	}

	done := c.Completed()
	if len(done) != 1 {
		t.Fatalf("completed list length = %d, want 1", len(done))
	}
	f := done[0]
	if f.Status != models.FeatureCompleted || f.Progress != 100 {
		t.Errorf("feature status/progress = %s/%d, want completed/100", f.Status, f.Progress)
	}
	if f.DurationSeconds != 600 {
		t.Errorf("duration = %.1f, want 600", f.DurationSeconds)
	}
	if len(f.ChangedFiles) == 0 {
		t.Error("expected changed files recorded on completion")
	}

	if sink.CountNamed("feature_completed") != 1 {
		t.Errorf("feature_completed events = %d, want 1", sink.CountNamed("feature_completed"))
	}
}

// Failed validation sends the agent back to working with the worktree
// intact, and a later passing submission still completes the feature.
func TestSubmitWorkValidationFailure(t *testing.T) {
	c, _, sink, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})

	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}

	passed, err := c.SubmitWork(agentID, false)
	if err != nil {
		t.Fatalf("SubmitWork() error: %v", err)
	}
	if passed {
		t.Fatal("SubmitWork() = true, want fail on failing tests")
	}

	rt, _ := c.AgentStatus(agentID)
	if rt.State != models.AgentWorking {
		t.Errorf("agent state = %s, want working after failed validation", rt.State)
	}
	if rt.Worktree == nil || rt.Worktree.Status != models.WorktreeInProgress {
		t.Errorf("worktree = %+v, want in_progress handle retained", rt.Worktree)
	}
	if sink.CountNamed("validation_failed") != 1 {
		t.Errorf("validation_failed events = %d, want 1", sink.CountNamed("validation_failed"))
	}

	// Fix applied, second submission passes.
	passed, err = c.SubmitWork(agentID, true)
	if err != nil || !passed {
		t.Fatalf("second SubmitWork() = (%v, %v), want pass", passed, err)
	}
	if len(c.Completed()) != 1 {
		t.Errorf("completed = %d, want 1", len(c.Completed()))
	}
}

func TestSubmitWorkRejectsEmptyWorktree(t *testing.T) {
	c, provider, _, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})

	f, err := c.Assign(agentID)
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}

	provider.mu.Lock()
	provider.hasWork[f.WorktreePath] = false
	provider.mu.Unlock()

	passed, err := c.SubmitWork(agentID, true)
	if err != nil {
		t.Fatalf("SubmitWork() error: %v", err)
	}
	if passed {
		t.Error("SubmitWork() = true, want structural rejection for empty worktree")
	}

	rt, _ := c.AgentStatus(agentID)
	if rt.State != models.AgentWorking {
		t.Errorf("agent state = %s, want working", rt.State)
	}
}

func TestSubmitWorkRequiresWorking(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	if _, err := c.SubmitWork(agentID, true); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition from idle", err)
	}
}

// An agent stale past the threshold is reclaimed: agent forcibly reset to
// idle, feature requeued with assignment cleared, worktree abandoned. A
// second reap in the same window is a no-op.
func TestReapStaleAgent(t *testing.T) {
	c, _, sink, clock := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	featureID := mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})

	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}

	clock.Advance(2 * time.Hour)

	if n := c.Reap(clock.Now()); n != 1 {
		t.Fatalf("Reap() = %d, want 1", n)
	}

	rt, _ := c.AgentStatus(agentID)
	if rt.State != models.AgentIdle {
		t.Errorf("agent state = %s, want idle after forced reset", rt.State)
	}
	if rt.CurrentFeature != "" {
		t.Errorf("agent still holds feature %q", rt.CurrentFeature)
	}

	queue := c.Pending()
	if len(queue) != 1 || queue[0].ID != featureID {
		t.Fatalf("queue = %+v, want requeued feature %s", queue, featureID)
	}
	f := queue[0]
	if f.Status != models.FeatureQueued || f.Progress != 0 {
		t.Errorf("requeued status/progress = %s/%d, want queued/0", f.Status, f.Progress)
	}
	if f.AssignedAgent != "" || f.WorktreePath != "" || f.BranchName != "" {
		t.Errorf("assignment fields not cleared: %+v", f)
	}

	if sink.CountNamed("agent_timeout") != 1 {
		t.Errorf("agent_timeout events = %d, want 1", sink.CountNamed("agent_timeout"))
	}

	// Idempotent within the window.
	if n := c.Reap(clock.Now()); n != 0 {
		t.Errorf("second Reap() = %d, want 0", n)
	}
}

func TestReapIgnoresFreshAgents(t *testing.T) {
	c, _, _, clock := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})

	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}

	clock.Advance(30 * time.Minute)
	if n := c.Reap(clock.Now()); n != 0 {
		t.Errorf("Reap() = %d, want 0 inside threshold", n)
	}
}

// Conservation: every enqueued feature is always in exactly one of
// pending, active, or completed, through the full lifecycle.
func TestFeatureConservation(t *testing.T) {
	c, _, _, clock := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	for i := 0; i < 3; i++ {
		mustEnqueue(t, c, models.Feature{Name: fmt.Sprintf("f%d", i), EstimatedEffort: 2})
	}

	check := func(stage string) {
		st := c.Status()
		total := st.QueuedFeatures + st.ActiveFeatures + st.Completed
		if total != 3 {
			t.Errorf("%s: pending+active+completed = %d, want 3", stage, total)
		}
	}

	check("enqueued")
	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	check("assigned")
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}
	check("working")
	if _, err := c.SubmitWork(agentID, true); err != nil {
		t.Fatalf("SubmitWork() error: %v", err)
	}
	check("completed")

	// Reap path conserves too.
	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if n := c.Reap(clock.Now()); n != 1 {
		t.Fatalf("Reap() = %d, want 1", n)
	}
	check("reaped")
}

func TestHealth(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	if got := c.Health(); got != 0 {
		t.Errorf("Health() with no agents = %v, want 0", got)
	}

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})

	// One idle agent, empty queue, nothing attempted: only the queue
	// term contributes.
	if got := c.Health(); got != 0.3 {
		t.Errorf("Health() idle = %v, want 0.3", got)
	}

	mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})
	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}

	got := c.Health()
	if got < 0 || got > 1 {
		t.Errorf("Health() = %v, out of [0, 1]", got)
	}

	if _, err := c.SubmitWork(agentID, true); err != nil {
		t.Fatalf("SubmitWork() error: %v", err)
	}
	// Idle agent, empty queue, everything attempted has completed.
	if got := c.Health(); got != 0.6 {
		t.Errorf("Health() after completion = %v, want 0.6", got)
	}
}

func TestRunCycle(t *testing.T) {
	c, _, sink, _ := newTestCoordinator(t)

	for i := 0; i < 2; i++ {
		mustRegister(t, c, models.AgentProfile{ID: fmt.Sprintf("agent-%d", i)})
	}
	for i := 0; i < 3; i++ {
		mustEnqueue(t, c, models.Feature{Name: fmt.Sprintf("f%d", i), EstimatedEffort: 2})
	}

	result := c.RunCycle()
	if result.AssignmentsMade != 2 {
		t.Errorf("assignments = %d, want 2 (one per idle agent)", result.AssignmentsMade)
	}
	if result.TimeoutsReclaimed != 0 {
		t.Errorf("timeouts = %d, want 0", result.TimeoutsReclaimed)
	}

	st := c.Status()
	if st.QueuedFeatures != 1 || st.ActiveFeatures != 2 {
		t.Errorf("queued/active = %d/%d, want 1/2", st.QueuedFeatures, st.ActiveFeatures)
	}
	if sink.CountNamed("coordination_cycle") != 1 {
		t.Errorf("coordination_cycle events = %d, want 1", sink.CountNamed("coordination_cycle"))
	}
}

func TestRunCycleReapsStale(t *testing.T) {
	c, _, _, clock := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})

	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}
	clock.Advance(2 * time.Hour)

	result := c.RunCycle()
	if result.TimeoutsReclaimed != 1 {
		t.Errorf("timeouts = %d, want 1", result.TimeoutsReclaimed)
	}
}

func TestStatusSummarizesState(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	mustRegister(t, c, models.AgentProfile{ID: "agent-2"})
	mustEnqueue(t, c, models.Feature{Name: "auth", EstimatedEffort: 5})

	st := c.Status()
	if st.TotalAgents != 2 || st.IdleAgents != 2 || st.ActiveAgents != 0 {
		t.Errorf("agents total/idle/active = %d/%d/%d, want 2/2/0",
			st.TotalAgents, st.IdleAgents, st.ActiveAgents)
	}
	if st.AgentsByState["idle"] != 2 {
		t.Errorf("agents_by_state[idle] = %d, want 2", st.AgentsByState["idle"])
	}
	if st.QueuedFeatures != 1 {
		t.Errorf("queued = %d, want 1", st.QueuedFeatures)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	agentID := mustRegister(t, c, models.AgentProfile{ID: "agent-1"})
	mustEnqueue(t, c, models.Feature{Name: "queued", EstimatedEffort: 2})
	activeID := mustEnqueue(t, c, models.Feature{Name: "active", Priority: models.PriorityHigh, EstimatedEffort: 5})

	if _, err := c.Assign(agentID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if err := c.StartWork(agentID); err != nil {
		t.Fatalf("StartWork() error: %v", err)
	}

	snap := c.Snapshot()

	restored, _, _, _ := newTestCoordinator(t)
	restored.Restore(snap)

	before, after := c.Status(), restored.Status()
	if after.TotalAgents != before.TotalAgents ||
		after.QueuedFeatures != before.QueuedFeatures ||
		after.ActiveFeatures != before.ActiveFeatures ||
		after.Completed != before.Completed {
		t.Errorf("restored status = %+v, want %+v", after, before)
	}

	rt, err := restored.AgentStatus(agentID)
	if err != nil {
		t.Fatalf("AgentStatus() after restore: %v", err)
	}
	if rt.State != models.AgentWorking || rt.CurrentFeature != activeID {
		t.Errorf("restored agent = %s/%s, want working/%s", rt.State, rt.CurrentFeature, activeID)
	}

	// Transitions keep working against restored state.
	if _, err := restored.SubmitWork(agentID, true); err != nil {
		t.Fatalf("SubmitWork() after restore: %v", err)
	}
	if len(restored.Completed()) != 1 {
		t.Errorf("completed after restore = %d, want 1", len(restored.Completed()))
	}
}

func TestNextStateTable(t *testing.T) {
	tests := []struct {
		from  models.AgentState
		event TransitionEvent
		to    models.AgentState
		ok    bool
	}{
		{models.AgentIdle, EventMatched, models.AgentClaiming, true},
		{models.AgentClaiming, EventStartWork, models.AgentWorking, true},
		{models.AgentWorking, EventSubmit, models.AgentValidating, true},
		{models.AgentWorking, EventTimeout, models.AgentError, true},
		{models.AgentValidating, EventValidationPass, models.AgentSubmitting, true},
		{models.AgentValidating, EventValidationFail, models.AgentWorking, true},
		{models.AgentValidating, EventTimeout, models.AgentError, true},
		{models.AgentSubmitting, EventComplete, models.AgentFinished, true},
		{models.AgentIdle, EventSubmit, models.AgentIdle, false},
		{models.AgentFinished, EventStartWork, models.AgentFinished, false},
		{models.AgentError, EventMatched, models.AgentError, false},
	}

	for _, tt := range tests {
		got, err := nextState(tt.from, tt.event)
		if tt.ok {
			if err != nil {
				t.Errorf("nextState(%s, %s) error: %v", tt.from, tt.event, err)
			}
			if got != tt.to {
				t.Errorf("nextState(%s, %s) = %s, want %s", tt.from, tt.event, got, tt.to)
			}
		} else if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("nextState(%s, %s) error = %v, want ErrInvalidTransition", tt.from, tt.event, err)
		}
	}
}

func TestAdditiveStrategyScore(t *testing.T) {
	strategy := AdditiveStrategy{}
	medium := models.AgentProfile{PreferredComplexity: models.ComplexityMedium}

	tests := []struct {
		name    string
		feature models.Feature
		want    int
	}{
		{"high priority in band", models.Feature{Priority: models.PriorityHigh, EstimatedEffort: 5}, 5},
		{"low priority out of band", models.Feature{Priority: models.PriorityLow, EstimatedEffort: 1}, 1},
		{"medium priority at band edge", models.Feature{Priority: models.PriorityMedium, EstimatedEffort: 8}, 4},
		{"unknown priority defaults to 1", models.Feature{Priority: "critical", EstimatedEffort: 5}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strategy.Score(medium, &tt.feature); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}
