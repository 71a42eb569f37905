package service

import (
	"math"
	"testing"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
)

func emptySnapshot() *domain.ClusterSnapshot {
	return &domain.ClusterSnapshot{
		Frequencies: make(map[string]int),
		Exhausted:   make(map[string]struct{}),
	}
}

func TestCalculateEIG_UncertaintyPeaksAtBoundary(t *testing.T) {
	cfg := domain.DefaultTuningConfig()
	calc := NewEIGCalculator(cfg)

	boundary := cfg.ActionableThreshold / 2
	peak := calc.CalculateEIG(&domain.Hypothesis{Confidence: boundary, PatternKey: "k"}, emptySnapshot())
	if math.Abs(peak-1.0) > 1e-9 {
		t.Errorf("EIG at boundary = %f, want 1.0", peak)
	}

	low := calc.CalculateEIG(&domain.Hypothesis{Confidence: 0.01, PatternKey: "k"}, emptySnapshot())
	high := calc.CalculateEIG(&domain.Hypothesis{Confidence: 0.99, PatternKey: "k"}, emptySnapshot())
	if low >= peak || high >= peak {
		t.Errorf("extremes should score below the boundary: low=%f high=%f peak=%f", low, high, peak)
	}
}

func TestCalculateEIG_ExhaustedPatternScoresZero(t *testing.T) {
	calc := NewEIGCalculator(domain.DefaultTuningConfig())
	snap := emptySnapshot()
	snap.Exhausted["dead-pattern"] = struct{}{}

	got := calc.CalculateEIG(&domain.Hypothesis{Confidence: 0.4, PatternKey: "dead-pattern"}, snap)
	if got != 0 {
		t.Errorf("exhausted pattern EIG = %f, want 0", got)
	}
}

func TestCalculateEIG_CategoryMultiplier(t *testing.T) {
	cfg := domain.DefaultTuningConfig()
	cfg.CategoryMultipliers = map[string]float64{"hot": 2.0}
	calc := NewEIGCalculator(cfg)

	hot := calc.CalculateEIG(&domain.Hypothesis{Confidence: 0.4, Category: "hot", PatternKey: "a"}, emptySnapshot())
	unknown := calc.CalculateEIG(&domain.Hypothesis{Confidence: 0.4, Category: "unmapped", PatternKey: "b"}, emptySnapshot())

	if math.Abs(hot-2*unknown) > 1e-9 {
		t.Errorf("hot=%f unknown=%f, want hot = 2*unknown", hot, unknown)
	}
	if math.Abs(unknown-1.0) > 1e-9 {
		t.Errorf("unknown category multiplier should default to 1.0, EIG=%f", unknown)
	}
}

func TestCalculateEIG_NoveltyDiscountsFrequentPatterns(t *testing.T) {
	calc := NewEIGCalculator(domain.DefaultTuningConfig())
	snap := emptySnapshot()
	snap.Frequencies["common"] = 9
	snap.MaxTrials = 9

	fresh := calc.CalculateEIG(&domain.Hypothesis{Confidence: 0.4, PatternKey: "never-seen"}, snap)
	worn := calc.CalculateEIG(&domain.Hypothesis{Confidence: 0.4, PatternKey: "common"}, snap)

	if math.Abs(fresh-1.0) > 1e-9 {
		t.Errorf("unseen pattern novelty should be full: EIG=%f", fresh)
	}
	wantWorn := 1.0 - 9.0/10.0
	if math.Abs(worn-wantWorn) > 1e-9 {
		t.Errorf("worn pattern EIG = %f, want %f", worn, wantWorn)
	}
}

func TestRank_ExcludesTerminalAndOrdersByScore(t *testing.T) {
	calc := NewEIGCalculator(domain.DefaultTuningConfig())
	entityID := uuid.New()

	hs := []domain.Hypothesis{
		{ID: uuid.New(), EntityID: entityID, Confidence: 0.95, Status: domain.StatusActive, PatternKey: "a"},
		{ID: uuid.New(), EntityID: entityID, Confidence: 0.40, Status: domain.StatusActive, PatternKey: "b"},
		{ID: uuid.New(), EntityID: entityID, Confidence: 0.40, Status: domain.StatusRejected, PatternKey: "c"},
		{ID: uuid.New(), EntityID: entityID, Confidence: 0.40, Status: domain.StatusSaturated, PatternKey: "d"},
	}

	ranked := calc.Rank(hs, emptySnapshot())
	if len(ranked) != 2 {
		t.Fatalf("ranked count = %d, want 2", len(ranked))
	}
	if ranked[0].PatternKey != "b" {
		t.Errorf("top ranked = %q, want the boundary hypothesis", ranked[0].PatternKey)
	}
	if ranked[0].EIGScore < ranked[1].EIGScore {
		t.Errorf("ranking is not descending: %f < %f", ranked[0].EIGScore, ranked[1].EIGScore)
	}
}

func TestRank_TieBreaksByCreationOrder(t *testing.T) {
	calc := NewEIGCalculator(domain.DefaultTuningConfig())
	entityID := uuid.New()
	early := time.Now().Add(-time.Hour)
	late := time.Now()

	hs := []domain.Hypothesis{
		{ID: uuid.New(), EntityID: entityID, Confidence: 0.40, Status: domain.StatusActive, PatternKey: "late", CreatedAt: late},
		{ID: uuid.New(), EntityID: entityID, Confidence: 0.40, Status: domain.StatusActive, PatternKey: "early", CreatedAt: early},
	}

	ranked := calc.Rank(hs, emptySnapshot())
	if ranked[0].PatternKey != "early" {
		t.Errorf("tie should break by creation order, got %q first", ranked[0].PatternKey)
	}
}
