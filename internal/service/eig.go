package service

import (
	"sort"

	"github.com/Harshitk-cp/prospector/internal/domain"
)

// EIGCalculator ranks hypotheses by expected information gain. It holds no
// mutable state of its own; scores are pure functions of the hypothesis
// and the cluster snapshot it is given.
type EIGCalculator struct {
	cfg domain.TuningConfig
}

func NewEIGCalculator(cfg domain.TuningConfig) *EIGCalculator {
	return &EIGCalculator{cfg: cfg}
}

// CalculateEIG combines the uncertainty factor, the category information
// value and the cluster novelty factor into one score. An exhausted
// pattern scores zero regardless of the other factors.
func (c *EIGCalculator) CalculateEIG(h *domain.Hypothesis, snap *domain.ClusterSnapshot) float64 {
	if snap.IsExhausted(h.PatternKey) {
		return 0
	}
	return c.uncertainty(h.Confidence) *
		c.cfg.CategoryMultiplier(h.Category) *
		c.novelty(h.PatternKey, snap)
}

// uncertainty peaks at the decision boundary and shrinks toward 0 as
// confidence approaches either extreme. The quadratic 4c(1-c) is recentered
// on the actionable threshold so near-decided hypotheses still rank high.
func (c *EIGCalculator) uncertainty(confidence float64) float64 {
	boundary := c.cfg.ActionableThreshold / 2
	if boundary <= 0 || boundary >= 1 {
		boundary = 0.5
	}

	var scaled float64
	if confidence <= boundary {
		scaled = confidence / (2 * boundary)
	} else {
		scaled = 0.5 + (confidence-boundary)/(2*(1-boundary))
	}
	return 4 * scaled * (1 - scaled)
}

// novelty is 1.0 for a pattern the cluster has never seen and approaches 0
// as its observed frequency approaches the cluster maximum.
func (c *EIGCalculator) novelty(patternKey string, snap *domain.ClusterSnapshot) float64 {
	if snap == nil || snap.MaxTrials == 0 {
		return 1.0
	}
	freq, ok := snap.Frequencies[patternKey]
	if !ok || freq == 0 {
		return 1.0
	}
	return 1.0 - float64(freq)/float64(snap.MaxTrials+1)
}

// Rank scores and sorts hypotheses by descending EIG, mutating each
// hypothesis's EIGScore. Terminal hypotheses are excluded. Ties break by
// creation order then id, for determinism.
func (c *EIGCalculator) Rank(hs []domain.Hypothesis, snap *domain.ClusterSnapshot) []domain.Hypothesis {
	ranked := make([]domain.Hypothesis, 0, len(hs))
	for _, h := range hs {
		if h.Status.Terminal() {
			continue
		}
		h.EIGScore = c.CalculateEIG(&h, snap)
		ranked = append(ranked, h)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].EIGScore != ranked[j].EIGScore {
			return ranked[i].EIGScore > ranked[j].EIGScore
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].ID.String() < ranked[j].ID.String()
	})

	return ranked
}
