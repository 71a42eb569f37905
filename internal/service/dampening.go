package service

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DampeningTracker is the cross-entity frequency table used to stop
// re-testing hypothesis patterns already proven exhausted elsewhere in a
// cluster. Reads are lock-free-cheap (RLock); writes hold the lock only to
// bump counters, then write through to the store outside the critical
// section.
type DampeningTracker struct {
	store  domain.ClusterStore
	logger *zap.Logger

	// exhaustionRate and minSample must both be met before a pattern is
	// declared exhausted; the sample minimum guards against false
	// exhaustion on small clusters.
	exhaustionRate float64
	minSample      int

	mu       sync.RWMutex
	clusters map[uuid.UUID]*domain.ClusterState
}

func NewDampeningTracker(store domain.ClusterStore, cfg domain.TuningConfig, logger *zap.Logger) *DampeningTracker {
	return &DampeningTracker{
		store:          store,
		logger:         logger,
		exhaustionRate: cfg.ExhaustionRate,
		minSample:      cfg.ExhaustionMinSample,
		clusters:       make(map[uuid.UUID]*domain.ClusterState),
	}
}

// Load hydrates one cluster's state from the store. Unknown clusters start
// empty.
func (t *DampeningTracker) Load(ctx context.Context, clusterID uuid.UUID) error {
	state, err := t.store.Get(ctx, clusterID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.clusters[clusterID] = state
	t.mu.Unlock()
	return nil
}

// RecordTrial notes that a pattern was tested on an entity of the cluster.
// Trials counts every iteration for novelty; the tried-entity set only
// grows on the first trial per entity.
func (t *DampeningTracker) RecordTrial(ctx context.Context, clusterID uuid.UUID, patternKey string, entityID uuid.UUID) {
	t.mu.Lock()
	counts := t.patternLocked(clusterID, patternKey)
	counts.Trials++
	if counts.TriedBy == nil {
		counts.TriedBy = make(map[uuid.UUID]struct{})
	}
	counts.TriedBy[entityID] = struct{}{}
	t.setPatternLocked(clusterID, patternKey, counts)
	state := t.snapshotStateLocked(clusterID)
	t.mu.Unlock()

	t.persist(ctx, state)
}

// RecordSaturation notes that a pattern saturated for one entity. The
// distinct-entity sample only grows on the first saturation per entity,
// and a saturated entity always counts as tried.
func (t *DampeningTracker) RecordSaturation(ctx context.Context, clusterID uuid.UUID, patternKey string, entityID uuid.UUID) {
	t.mu.Lock()
	counts := t.patternLocked(clusterID, patternKey)
	counts.Saturations++
	if counts.TriedBy == nil {
		counts.TriedBy = make(map[uuid.UUID]struct{})
	}
	counts.TriedBy[entityID] = struct{}{}
	if counts.SaturatedBy == nil {
		counts.SaturatedBy = make(map[uuid.UUID]struct{})
	}
	counts.SaturatedBy[entityID] = struct{}{}
	t.setPatternLocked(clusterID, patternKey, counts)
	state := t.snapshotStateLocked(clusterID)
	t.mu.Unlock()

	t.logger.Debug("pattern saturation recorded",
		zap.String("cluster_id", clusterID.String()),
		zap.String("pattern", patternKey),
		zap.String("entity_id", entityID.String()))

	t.persist(ctx, state)
}

// IsHypothesisExhausted reports whether a pattern has proven unproductive
// often enough across enough distinct entities.
func (t *DampeningTracker) IsHypothesisExhausted(clusterID uuid.UUID, patternKey string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.clusters[clusterID]
	if !ok {
		return false
	}
	counts, ok := state.Patterns[patternKey]
	if !ok {
		return false
	}
	return t.exhaustedLocked(counts)
}

// GetExhaustedHypotheses lists every currently exhausted pattern for a
// cluster.
func (t *DampeningTracker) GetExhaustedHypotheses(clusterID uuid.UUID) map[string]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exhausted := make(map[string]struct{})
	state, ok := t.clusters[clusterID]
	if !ok {
		return exhausted
	}
	for key, counts := range state.Patterns {
		if t.exhaustedLocked(counts) {
			exhausted[key] = struct{}{}
		}
	}
	return exhausted
}

// Snapshot produces the read-only view the EIG calculator consumes.
func (t *DampeningTracker) Snapshot(clusterID uuid.UUID) *domain.ClusterSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := &domain.ClusterSnapshot{
		ClusterID:   clusterID,
		Frequencies: make(map[string]int),
		Exhausted:   make(map[string]struct{}),
	}

	state, ok := t.clusters[clusterID]
	if !ok {
		return snap
	}
	for key, counts := range state.Patterns {
		snap.Frequencies[key] = counts.Trials
		if counts.Trials > snap.MaxTrials {
			snap.MaxTrials = counts.Trials
		}
		if t.exhaustedLocked(counts) {
			snap.Exhausted[key] = struct{}{}
		}
	}
	return snap
}

// Reset clears a cluster's dampening state. Administrative action only.
func (t *DampeningTracker) Reset(ctx context.Context, clusterID uuid.UUID) error {
	t.mu.Lock()
	state := &domain.ClusterState{
		ClusterID: clusterID,
		Patterns:  make(map[string]domain.PatternCounts),
	}
	t.clusters[clusterID] = state
	t.mu.Unlock()

	t.logger.Warn("cluster dampening state reset", zap.String("cluster_id", clusterID.String()))
	return t.store.Upsert(ctx, state)
}

func (t *DampeningTracker) exhaustedLocked(counts domain.PatternCounts) bool {
	return counts.DistinctEntities() >= t.minSample &&
		counts.SaturationRate() >= t.exhaustionRate
}

func (t *DampeningTracker) patternLocked(clusterID uuid.UUID, patternKey string) domain.PatternCounts {
	state, ok := t.clusters[clusterID]
	if !ok {
		state = &domain.ClusterState{
			ClusterID: clusterID,
			Patterns:  make(map[string]domain.PatternCounts),
		}
		t.clusters[clusterID] = state
	}
	return state.Patterns[patternKey]
}

func (t *DampeningTracker) setPatternLocked(clusterID uuid.UUID, patternKey string, counts domain.PatternCounts) {
	t.clusters[clusterID].Patterns[patternKey] = counts
}

func (t *DampeningTracker) snapshotStateLocked(clusterID uuid.UUID) *domain.ClusterState {
	src := t.clusters[clusterID]
	cp := &domain.ClusterState{
		ClusterID: src.ClusterID,
		Patterns:  make(map[string]domain.PatternCounts, len(src.Patterns)),
	}
	for key, counts := range src.Patterns {
		counts.TriedBy = copyEntitySet(counts.TriedBy)
		counts.SaturatedBy = copyEntitySet(counts.SaturatedBy)
		cp.Patterns[key] = counts
	}
	return cp
}

func copyEntitySet(src map[uuid.UUID]struct{}) map[uuid.UUID]struct{} {
	cp := make(map[uuid.UUID]struct{}, len(src))
	for id := range src {
		cp[id] = struct{}{}
	}
	return cp
}

func (t *DampeningTracker) persist(ctx context.Context, state *domain.ClusterState) {
	if t.store == nil {
		return
	}
	if err := t.store.Upsert(ctx, state); err != nil {
		t.logger.Warn("failed to persist cluster state",
			zap.String("cluster_id", state.ClusterID.String()),
			zap.Error(err))
	}
}
