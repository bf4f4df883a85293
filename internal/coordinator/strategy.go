package coordinator

import "github.com/swarmtree/swarmtree/pkg/models"

// complexityFitBonus is added when a feature's effort falls in the band
// matching the agent's preferred complexity.
const complexityFitBonus = 2

// MatchStrategy scores a queued feature against an agent profile. Higher
// scores win; ties are broken by queue order (earliest enqueued wins).
// The scoring function is pluggable, not a fixed law.
type MatchStrategy interface {
	Score(profile models.AgentProfile, feature *models.Feature) int
}

// AdditiveStrategy is the default heuristic: priority weight plus a fixed
// bonus when the feature's estimated effort fits the agent's preferred
// complexity band.
type AdditiveStrategy struct{}

var _ MatchStrategy = AdditiveStrategy{}

// Score computes priorityWeight + complexityFitBonus.
func (AdditiveStrategy) Score(profile models.AgentProfile, feature *models.Feature) int {
	score := feature.Priority.Weight()
	if profile.PreferredComplexity.FitsEffort(feature.EstimatedEffort) {
		score += complexityFitBonus
	}
	return score
}

// bestMatch returns the index of the maximum-scoring feature in queue
// order, or -1 for an empty queue. Earlier entries win ties.
func bestMatch(strategy MatchStrategy, profile models.AgentProfile, queue []*models.Feature) int {
	best := -1
	bestScore := 0
	for i, f := range queue {
		score := strategy.Score(profile, f)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}
