package coordinator

import (
	"strconv"
	"time"

	"github.com/swarmtree/swarmtree/pkg/models"
)

// CycleResult summarizes one coordination cycle.
type CycleResult struct {
	AssignmentsMade   int           `json:"assignments_made"`
	TimeoutsReclaimed int           `json:"timeouts_reclaimed"`
	Duration          time.Duration `json:"duration"`
	Timestamp         time.Time     `json:"timestamp"`
}

// RunCycle performs one coordination pass: every idle agent gets one
// assignment attempt against the queue, then stale agents are reaped.
// Agents are visited in id order so cycles are deterministic.
func (c *Coordinator) RunCycle() CycleResult {
	start := c.now()
	result := CycleResult{Timestamp: start}

	c.mu.Lock()
	var idle []string
	for _, a := range c.registry.idle() {
		idle = append(idle, a.Profile.ID)
	}
	c.mu.Unlock()

	for _, id := range idle {
		feature, err := c.Assign(id)
		if err != nil {
			c.logger.Log("[cycle] assign %s: %v", id, err)
			continue
		}
		if feature != nil {
			result.AssignmentsMade++
		}
	}

	result.TimeoutsReclaimed = c.Reap(c.now())
	result.Duration = c.now().Sub(start)

	c.emit("coordination_cycle", "", map[string]string{
		"assignments_made":   strconv.Itoa(result.AssignmentsMade),
		"timeouts_reclaimed": strconv.Itoa(result.TimeoutsReclaimed),
		"duration_ms":        strconv.FormatInt(result.Duration.Milliseconds(), 10),
	})
	c.logger.Log("[cycle] %d assignment(s), %d timeout(s), %s",
		result.AssignmentsMade, result.TimeoutsReclaimed, result.Duration)

	return result
}

// Completed returns copies of all completed features in completion order.
func (c *Coordinator) Completed() []models.Feature {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Feature, 0, len(c.completed))
	for _, f := range c.completed {
		out = append(out, *f)
	}
	return out
}

// Pending returns copies of the queued features in queue order.
func (c *Coordinator) Pending() []models.Feature {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Feature, 0, len(c.pending))
	for _, f := range c.pending {
		out = append(out, *f)
	}
	return out
}
