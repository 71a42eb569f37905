package store

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
)

// In-memory store implementations. The parameter tuner replays labeled
// outcomes through an isolated engine built on these; they also back
// tests. They implement the same interfaces as the Postgres adapters.

type InMemoryHypothesisStore struct {
	mu         sync.RWMutex
	hypotheses map[uuid.UUID]*domain.Hypothesis
}

func NewInMemoryHypothesisStore() *InMemoryHypothesisStore {
	return &InMemoryHypothesisStore{hypotheses: make(map[uuid.UUID]*domain.Hypothesis)}
}

func (s *InMemoryHypothesisStore) Create(ctx context.Context, h *domain.Hypothesis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	now := time.Now()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	if h.Status == "" {
		h.Status = domain.StatusActive
	}
	cp := *h
	s.hypotheses[h.ID] = &cp
	return nil
}

func (s *InMemoryHypothesisStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Hypothesis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hypotheses[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *InMemoryHypothesisStore) GetByEntity(ctx context.Context, entityID uuid.UUID) ([]domain.Hypothesis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Hypothesis
	for _, h := range s.hypotheses {
		if h.EntityID == entityID {
			result = append(result, *h)
		}
	}
	return result, nil
}

func (s *InMemoryHypothesisStore) Update(ctx context.Context, h *domain.Hypothesis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hypotheses[h.ID]; !ok {
		return ErrNotFound
	}
	h.UpdatedAt = time.Now()
	cp := *h
	s.hypotheses[h.ID] = &cp
	return nil
}

func (s *InMemoryHypothesisStore) ListDistinctEntityIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, h := range s.hypotheses {
		if _, ok := seen[h.EntityID]; !ok {
			seen[h.EntityID] = struct{}{}
			ids = append(ids, h.EntityID)
		}
	}
	return ids, nil
}

type statsKey struct {
	entityID uuid.UUID
	category string
}

type InMemoryCategoryStatsStore struct {
	mu    sync.RWMutex
	stats map[statsKey]*domain.CategoryStats
}

func NewInMemoryCategoryStatsStore() *InMemoryCategoryStatsStore {
	return &InMemoryCategoryStatsStore{stats: make(map[statsKey]*domain.CategoryStats)}
}

func (s *InMemoryCategoryStatsStore) Upsert(ctx context.Context, cs *domain.CategoryStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cs
	s.stats[statsKey{cs.EntityID, cs.Category}] = &cp
	return nil
}

func (s *InMemoryCategoryStatsStore) Get(ctx context.Context, entityID uuid.UUID, category string) (*domain.CategoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.stats[statsKey{entityID, category}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cs
	return &cp, nil
}

func (s *InMemoryCategoryStatsStore) GetByEntity(ctx context.Context, entityID uuid.UUID) ([]domain.CategoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.CategoryStats
	for key, cs := range s.stats {
		if key.entityID == entityID {
			result = append(result, *cs)
		}
	}
	return result, nil
}

type evidenceKey struct {
	hypothesisID uuid.UUID
	ref          string
}

// InMemoryLedgerStore keeps chains as append-only slices. Useful for tuner
// replays and for tamper tests, which mutate entries through TamperEntry.
type InMemoryLedgerStore struct {
	mu       sync.RWMutex
	chains   map[uuid.UUID][]domain.LedgerEntry
	evidence map[evidenceKey]struct{}
}

func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		chains:   make(map[uuid.UUID][]domain.LedgerEntry),
		evidence: make(map[evidenceKey]struct{}),
	}
}

func (s *InMemoryLedgerStore) Append(ctx context.Context, e *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[e.EntityID] = append(s.chains[e.EntityID], *e)
	s.evidence[evidenceKey{e.HypothesisID, e.EvidenceRef}] = struct{}{}
	return nil
}

func (s *InMemoryLedgerStore) GetChain(ctx context.Context, entityID uuid.UUID) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.chains[entityID]
	cp := make([]domain.LedgerEntry, len(chain))
	copy(cp, chain)
	return cp, nil
}

func (s *InMemoryLedgerStore) LastEntry(ctx context.Context, entityID uuid.UUID) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.chains[entityID]
	if len(chain) == 0 {
		return nil, ErrNotFound
	}
	cp := chain[len(chain)-1]
	return &cp, nil
}

func (s *InMemoryLedgerStore) HasEvidenceRef(ctx context.Context, hypothesisID uuid.UUID, ref string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.evidence[evidenceKey{hypothesisID, ref}]
	return ok, nil
}

// TamperEntry mutates a stored entry in place, bypassing the append-only
// contract. Test hook for integrity verification; never used in
// production paths.
func (s *InMemoryLedgerStore) TamperEntry(entityID uuid.UUID, index int, mutate func(*domain.LedgerEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.chains[entityID]
	if index >= 0 && index < len(chain) {
		mutate(&chain[index])
	}
}

type InMemoryClusterStore struct {
	mu     sync.RWMutex
	states map[uuid.UUID]*domain.ClusterState
}

func NewInMemoryClusterStore() *InMemoryClusterStore {
	return &InMemoryClusterStore{states: make(map[uuid.UUID]*domain.ClusterState)}
}

func (s *InMemoryClusterStore) Upsert(ctx context.Context, state *domain.ClusterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ClusterID] = state
	return nil
}

func (s *InMemoryClusterStore) Get(ctx context.Context, clusterID uuid.UUID) (*domain.ClusterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[clusterID]
	if !ok {
		return &domain.ClusterState{
			ClusterID: clusterID,
			Patterns:  make(map[string]domain.PatternCounts),
		}, nil
	}
	return state, nil
}
