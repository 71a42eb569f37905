package domain

import "github.com/google/uuid"

// PatternCounts tracks how often a hypothesis pattern has been tried and
// how often it saturated across the entities of one cluster. Trials is the
// raw per-iteration counter driving novelty scoring; exhaustion is judged
// on the entity sets, so one entity's long run cannot skew the rate.
type PatternCounts struct {
	Trials      int `json:"trials"`
	Saturations int `json:"saturations"`
	// TriedBy and SaturatedBy are the distinct entities the pattern was
	// tested on and the subset it saturated for.
	TriedBy     map[uuid.UUID]struct{} `json:"-"`
	SaturatedBy map[uuid.UUID]struct{} `json:"-"`
}

// DistinctEntities returns the saturation sample size.
func (p PatternCounts) DistinctEntities() int {
	return len(p.SaturatedBy)
}

// SaturationRate returns the fraction of tried entities the pattern
// saturated for, or zero when the pattern has never been tried.
func (p PatternCounts) SaturationRate() float64 {
	if len(p.TriedBy) == 0 {
		return 0
	}
	return float64(len(p.SaturatedBy)) / float64(len(p.TriedBy))
}

// ClusterState is shared across all entities assigned to one behavioral
// cluster. It persists for the life of the cluster definition and is only
// reset by explicit administrative action.
type ClusterState struct {
	ClusterID uuid.UUID                `json:"cluster_id"`
	Patterns  map[string]PatternCounts `json:"patterns"`
}

// ClusterSnapshot is a read-only view handed to the EIG calculator:
// observed pattern frequencies plus the currently exhausted set.
type ClusterSnapshot struct {
	ClusterID   uuid.UUID
	Frequencies map[string]int
	MaxTrials   int
	Exhausted   map[string]struct{}
}

// IsExhausted reports whether the pattern is in the exhausted set.
func (s *ClusterSnapshot) IsExhausted(pattern string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Exhausted[pattern]
	return ok
}
