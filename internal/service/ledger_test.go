package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func appendEntries(t *testing.T, ledger *BeliefLedger, entityID uuid.UUID, n int) {
	t.Helper()
	hypothesisID := uuid.New()
	for i := 1; i <= n; i++ {
		err := ledger.Append(context.Background(), &domain.LedgerEntry{
			EntityID:     entityID,
			Iteration:    i,
			HypothesisID: hypothesisID,
			Kind:         domain.ChangeReinforce,
			Impact:       0.15,
			EvidenceRef:  uuid.NewString(),
			Category:     "budget",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
}

func TestLedger_AppendBuildsChain(t *testing.T) {
	ledger := NewBeliefLedger(store.NewInMemoryLedgerStore(), zap.NewNop())
	entityID := uuid.New()

	appendEntries(t, ledger, entityID, 3)

	chain, err := ledger.GetChain(context.Background(), entityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	if chain[0].PrevHash != "" {
		t.Errorf("first entry prev hash = %q, want empty", chain[0].PrevHash)
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].PrevHash != chain[i-1].Hash {
			t.Errorf("entry %d prev hash does not link to entry %d", i, i-1)
		}
	}
}

func TestLedger_VerifyValidChain(t *testing.T) {
	ledger := NewBeliefLedger(store.NewInMemoryLedgerStore(), zap.NewNop())
	entityID := uuid.New()

	appendEntries(t, ledger, entityID, 5)

	result, err := ledger.VerifyChain(context.Background(), entityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Error("untouched chain reported invalid")
	}
	if result.BrokenAt != -1 {
		t.Errorf("broken at = %d, want -1", result.BrokenAt)
	}
	if result.Entries != 5 {
		t.Errorf("entries = %d, want 5", result.Entries)
	}
}

func TestLedger_VerifySurvivesMicrosecondStorage(t *testing.T) {
	ledgerStore := store.NewInMemoryLedgerStore()
	ledger := NewBeliefLedger(ledgerStore, zap.NewNop())
	entityID := uuid.New()

	appendEntries(t, ledger, entityID, 4)

	// Postgres timestamptz keeps microseconds; a round trip through it must
	// not look like tampering.
	for i := 0; i < 4; i++ {
		ledgerStore.TamperEntry(entityID, i, func(e *domain.LedgerEntry) {
			e.RecordedAt = e.RecordedAt.Truncate(time.Microsecond)
		})
	}

	result, err := ledger.VerifyChain(context.Background(), entityID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("stored-precision round trip reported broken at %d", result.BrokenAt)
	}

	// The chain stays writable afterwards.
	appendEntries(t, ledger, entityID, 1)
}

func TestLedger_VerifyEmptyChain(t *testing.T) {
	ledger := NewBeliefLedger(store.NewInMemoryLedgerStore(), zap.NewNop())

	result, err := ledger.VerifyChain(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid || result.Entries != 0 {
		t.Errorf("empty chain: valid=%v entries=%d, want valid with 0 entries", result.Valid, result.Entries)
	}
}

func TestLedger_DetectsTamperedEntry(t *testing.T) {
	ledgerStore := store.NewInMemoryLedgerStore()
	ledger := NewBeliefLedger(ledgerStore, zap.NewNop())
	entityID := uuid.New()

	appendEntries(t, ledger, entityID, 5)

	ledgerStore.TamperEntry(entityID, 2, func(e *domain.LedgerEntry) {
		e.Impact = 0.99
	})

	result, err := ledger.VerifyChain(context.Background(), entityID)
	if !errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("error = %v, want ErrIntegrityViolation", err)
	}
	if result.Valid {
		t.Error("tampered chain reported valid")
	}
	if result.BrokenAt != 2 {
		t.Errorf("broken at = %d, want 2", result.BrokenAt)
	}
}

func TestLedger_HaltsAppendsAfterViolation(t *testing.T) {
	ledgerStore := store.NewInMemoryLedgerStore()
	ledger := NewBeliefLedger(ledgerStore, zap.NewNop())
	entityID := uuid.New()

	appendEntries(t, ledger, entityID, 2)
	ledgerStore.TamperEntry(entityID, 0, func(e *domain.LedgerEntry) {
		e.EvidenceRef = "forged"
	})
	_, _ = ledger.VerifyChain(context.Background(), entityID)

	err := ledger.Append(context.Background(), &domain.LedgerEntry{
		EntityID:     entityID,
		HypothesisID: uuid.New(),
		Kind:         domain.ChangeNeutral,
		EvidenceRef:  uuid.NewString(),
	})
	if !errors.Is(err, ErrChainHalted) {
		t.Fatalf("error = %v, want ErrChainHalted", err)
	}

	// Other entities keep appending.
	otherEntity := uuid.New()
	appendEntries(t, ledger, otherEntity, 1)
}

func TestLedger_ResetHaltRestoresAppends(t *testing.T) {
	ledgerStore := store.NewInMemoryLedgerStore()
	ledger := NewBeliefLedger(ledgerStore, zap.NewNop())
	entityID := uuid.New()

	appendEntries(t, ledger, entityID, 1)
	ledgerStore.TamperEntry(entityID, 0, func(e *domain.LedgerEntry) {
		e.Impact = -1
	})
	_, _ = ledger.VerifyChain(context.Background(), entityID)

	ledger.ResetHalt(entityID)

	err := ledger.Append(context.Background(), &domain.LedgerEntry{
		EntityID:     entityID,
		HypothesisID: uuid.New(),
		Kind:         domain.ChangeNeutral,
		EvidenceRef:  uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("append after reset: %v", err)
	}
}

func TestLedger_HasEvidenceRef(t *testing.T) {
	ledger := NewBeliefLedger(store.NewInMemoryLedgerStore(), zap.NewNop())
	entityID := uuid.New()
	hypothesisID := uuid.New()

	err := ledger.Append(context.Background(), &domain.LedgerEntry{
		EntityID:     entityID,
		HypothesisID: hypothesisID,
		Kind:         domain.ChangeReinforce,
		EvidenceRef:  "news://article-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen, err := ledger.HasEvidenceRef(context.Background(), hypothesisID, "news://article-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seen {
		t.Error("applied evidence ref not found")
	}

	seen, _ = ledger.HasEvidenceRef(context.Background(), hypothesisID, "news://article-2")
	if seen {
		t.Error("unseen evidence ref reported as applied")
	}
}
