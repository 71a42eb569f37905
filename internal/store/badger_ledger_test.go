package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/google/uuid"
)

func openTestLedger(t *testing.T) *BadgerLedgerStore {
	t.Helper()
	s, err := OpenBadgerLedger("")
	if err != nil {
		t.Fatalf("open badger ledger: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close badger ledger: %v", err)
		}
	})
	return s
}

func badgerEntry(entityID uuid.UUID, iteration int) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		EntityID:     entityID,
		Iteration:    iteration,
		HypothesisID: uuid.New(),
		Kind:         domain.ChangeReinforce,
		Impact:       0.15,
		EvidenceRef:  fmt.Sprintf("news://article/%d", iteration),
		Category:     "budget",
		RecordedAt:   time.Now().UTC(),
	}
}

func TestBadgerLedger_AppendAndGetChain(t *testing.T) {
	s := openTestLedger(t)
	ctx := context.Background()
	entityID := uuid.New()

	for i := 1; i <= 12; i++ {
		if err := s.Append(ctx, badgerEntry(entityID, i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	chain, err := s.GetChain(ctx, entityID)
	if err != nil {
		t.Fatalf("get chain: %v", err)
	}
	if len(chain) != 12 {
		t.Fatalf("chain length = %d, want 12", len(chain))
	}
	// Big-endian sequence keys make iteration order append order, including
	// past the single-digit boundary.
	for i, e := range chain {
		if e.Iteration != i+1 {
			t.Fatalf("entry %d has iteration %d, want append order", i, e.Iteration)
		}
	}
}

func TestBadgerLedger_ChainsAreIsolated(t *testing.T) {
	s := openTestLedger(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	if err := s.Append(ctx, badgerEntry(a, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, badgerEntry(b, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	chain, err := s.GetChain(ctx, a)
	if err != nil {
		t.Fatalf("get chain: %v", err)
	}
	if len(chain) != 1 || chain[0].EntityID != a {
		t.Errorf("chain for %s leaked entries: %+v", a, chain)
	}
}

func TestBadgerLedger_LastEntry(t *testing.T) {
	s := openTestLedger(t)
	ctx := context.Background()
	entityID := uuid.New()

	if _, err := s.LastEntry(ctx, entityID); err != ErrNotFound {
		t.Fatalf("empty chain error = %v, want ErrNotFound", err)
	}

	for i := 1; i <= 3; i++ {
		if err := s.Append(ctx, badgerEntry(entityID, i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	last, err := s.LastEntry(ctx, entityID)
	if err != nil {
		t.Fatalf("last entry: %v", err)
	}
	if last.Iteration != 3 {
		t.Errorf("last iteration = %d, want 3", last.Iteration)
	}
}

func TestBadgerLedger_HasEvidenceRef(t *testing.T) {
	s := openTestLedger(t)
	ctx := context.Background()

	e := badgerEntry(uuid.New(), 1)
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}

	seen, err := s.HasEvidenceRef(ctx, e.HypothesisID, e.EvidenceRef)
	if err != nil {
		t.Fatalf("has evidence ref: %v", err)
	}
	if !seen {
		t.Error("appended evidence ref not found")
	}

	seen, err = s.HasEvidenceRef(ctx, e.HypothesisID, "news://other")
	if err != nil {
		t.Fatalf("has evidence ref: %v", err)
	}
	if seen {
		t.Error("unknown evidence ref reported as seen")
	}
}
