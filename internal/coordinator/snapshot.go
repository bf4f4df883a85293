package coordinator

import (
	"sort"
	"time"

	"github.com/swarmtree/swarmtree/pkg/models"
)

// Snapshot is a serializable point-in-time copy of coordination state,
// suitable for persisting and restoring across process restarts.
type Snapshot struct {
	TakenAt   time.Time        `json:"taken_at"`
	Agents    []AgentRuntime   `json:"agents"`
	Pending   []models.Feature `json:"pending"`
	Active    []models.Feature `json:"active"`
	Completed []models.Feature `json:"completed"`
}

// Snapshot captures the current coordination state. Active features are
// ordered by feature id for deterministic output.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{TakenAt: c.now()}

	for _, a := range c.registry.all() {
		snap.Agents = append(snap.Agents, a.clone())
	}
	for _, f := range c.pending {
		snap.Pending = append(snap.Pending, *f)
	}
	for _, id := range sortedKeys(c.active) {
		snap.Active = append(snap.Active, *c.active[id])
	}
	for _, f := range c.completed {
		snap.Completed = append(snap.Completed, *f)
	}

	return snap
}

// Restore replaces all coordination state with the snapshot's contents.
// Feature pointers held by restored agents are re-linked to the restored
// active set so transitions keep mutating one shared record.
func (c *Coordinator) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry = newRegistry()
	c.pending = nil
	c.active = make(map[string]*models.Feature)
	c.completed = nil

	for i := range snap.Agents {
		a := snap.Agents[i].clone()
		c.registry.register(&a)
	}
	for i := range snap.Pending {
		f := snap.Pending[i]
		c.pending = append(c.pending, &f)
	}
	for i := range snap.Active {
		f := snap.Active[i]
		c.active[f.ID] = &f
	}
	for i := range snap.Completed {
		f := snap.Completed[i]
		c.completed = append(c.completed, &f)
	}

	c.logger.Log("[state] restored snapshot from %s: %d agents, %d pending, %d active, %d completed",
		snap.TakenAt.Format(time.RFC3339), len(snap.Agents), len(snap.Pending), len(snap.Active), len(snap.Completed))
}

func sortedKeys(m map[string]*models.Feature) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
