package coordinator

// Health weights. Active utilization dominates; queue drain and lifetime
// completion share the rest.
const (
	healthActiveWeight     = 0.4
	healthQueueWeight      = 0.3
	healthCompletionWeight = 0.3
)

// Health returns the coordination health score in [0.0, 1.0].
func (c *Coordinator) Health() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.healthLocked()
}

// healthLocked computes the weighted health score. With no agents
// registered the system cannot make progress, so the score is 0.
// Caller holds the lock.
func (c *Coordinator) healthLocked() float64 {
	total := c.registry.count()
	if total == 0 {
		return 0
	}

	activeRatio := float64(c.registry.countActive()) / float64(total)

	// A backlog deeper than twice the agent pool counts as fully clogged.
	queueEfficiency := 1.0 - float64(len(c.pending))/float64(total*2)
	if queueEfficiency < 0 {
		queueEfficiency = 0
	}

	completionRate := 0.0
	finished := len(c.completed)
	attempted := finished + len(c.active)
	if attempted > 0 {
		completionRate = float64(finished) / float64(attempted)
	}

	score := healthActiveWeight*activeRatio +
		healthQueueWeight*queueEfficiency +
		healthCompletionWeight*completionRate

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
