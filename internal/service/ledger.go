package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/metrics"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrIntegrityViolation means hash-chain verification failed. The
	// affected chain is halted for writes until administratively resolved;
	// it is never silently repaired.
	ErrIntegrityViolation = errors.New("belief ledger integrity violation")

	// ErrChainHalted is returned for appends to a chain that previously
	// failed verification.
	ErrChainHalted = errors.New("belief ledger chain halted after integrity violation")
)

// VerifyResult reports the outcome of a chain walk. BrokenAt is the index
// of the first entry whose hash does not match, -1 when the chain is
// valid.
type VerifyResult struct {
	EntityID uuid.UUID `json:"entity_id"`
	Valid    bool      `json:"valid"`
	BrokenAt int       `json:"broken_at"`
	Entries  int       `json:"entries"`
}

// BeliefLedger is the tamper-evident record of every confidence mutation.
// Appends are serialized per ledger instance so the hash chain never
// interleaves; the storage backend is injected and only needs to be
// append-only.
type BeliefLedger struct {
	store  domain.LedgerStore
	logger *zap.Logger

	mu     sync.Mutex
	halted map[uuid.UUID]bool
}

func NewBeliefLedger(ls domain.LedgerStore, logger *zap.Logger) *BeliefLedger {
	return &BeliefLedger{
		store:  ls,
		logger: logger,
		halted: make(map[uuid.UUID]bool),
	}
}

// Append computes the entry's chain hash from the previous entry and
// persists it. Fails only on storage errors or a halted chain, never
// silently.
func (l *BeliefLedger) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.halted[entry.EntityID] {
		return ErrChainHalted
	}

	prevHash := ""
	last, err := l.store.LastEntry(ctx, entry.EntityID)
	switch {
	case err == nil:
		prevHash = last.Hash
	case errors.Is(err, store.ErrNotFound):
		// first entry in the chain
	default:
		return fmt.Errorf("read chain head: %w", err)
	}

	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	// Hash and store the same value a microsecond-precision backend will
	// return, so a round trip never breaks verification.
	entry.RecordedAt = entry.RecordedAt.Truncate(time.Microsecond)
	entry.PrevHash = prevHash
	entry.Hash = entry.ComputeHash(prevHash)

	if err := l.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	metrics.LedgerAppends.Inc()
	l.logger.Debug("ledger entry appended",
		zap.String("entity_id", entry.EntityID.String()),
		zap.String("hypothesis_id", entry.HypothesisID.String()),
		zap.String("kind", string(entry.Kind)),
		zap.Float64("impact", entry.Impact),
		zap.Int("iteration", entry.Iteration))
	return nil
}

// HasEvidenceRef reports whether the evidence reference already appears in
// the ledger for a hypothesis.
func (l *BeliefLedger) HasEvidenceRef(ctx context.Context, hypothesisID uuid.UUID, ref string) (bool, error) {
	return l.store.HasEvidenceRef(ctx, hypothesisID, ref)
}

// VerifyChain recomputes every hash in an entity's chain. On the first
// mismatch the chain is halted for writes and the violation escalated; the
// stored entries are left untouched.
func (l *BeliefLedger) VerifyChain(ctx context.Context, entityID uuid.UUID) (*VerifyResult, error) {
	entries, err := l.store.GetChain(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}

	result := &VerifyResult{EntityID: entityID, Valid: true, BrokenAt: -1, Entries: len(entries)}

	prevHash := ""
	for i, entry := range entries {
		if entry.PrevHash != prevHash || entry.ComputeHash(prevHash) != entry.Hash {
			result.Valid = false
			result.BrokenAt = i
			break
		}
		prevHash = entry.Hash
	}

	if !result.Valid {
		l.mu.Lock()
		l.halted[entityID] = true
		l.mu.Unlock()

		metrics.IntegrityViolations.Inc()
		l.logger.Error("belief ledger integrity violation, chain halted",
			zap.String("entity_id", entityID.String()),
			zap.Int("broken_at", result.BrokenAt))
		return result, ErrIntegrityViolation
	}

	return result, nil
}

// GetChain returns an entity's full chain in append order, for audit
// tooling. It is not the hot-path state query.
func (l *BeliefLedger) GetChain(ctx context.Context, entityID uuid.UUID) ([]domain.LedgerEntry, error) {
	return l.store.GetChain(ctx, entityID)
}

// ResetHalt clears the halt flag after manual resolution.
func (l *BeliefLedger) ResetHalt(entityID uuid.UUID) {
	l.mu.Lock()
	delete(l.halted, entityID)
	l.mu.Unlock()
	l.logger.Warn("ledger chain halt cleared", zap.String("entity_id", entityID.String()))
}
