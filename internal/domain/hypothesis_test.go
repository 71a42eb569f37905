package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStatusTerminal(t *testing.T) {
	if StatusActive.Terminal() {
		t.Error("active reported terminal")
	}
	for _, s := range []HypothesisStatus{StatusPromoted, StatusSaturated, StatusRejected} {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
}

func TestExternalSignal(t *testing.T) {
	cases := map[Decision]Signal{
		DecisionAccept:     SignalProcurement,
		DecisionWeakAccept: SignalCapability,
		DecisionReject:     SignalNone,
		DecisionNoProgress: SignalNone,
	}
	for decision, want := range cases {
		if got := ExternalSignal(decision); got != want {
			t.Errorf("ExternalSignal(%q) = %q, want %q", decision, got, want)
		}
	}
}

func TestChangeKindFor(t *testing.T) {
	if ChangeKindFor(DecisionAccept) != ChangeReinforce || ChangeKindFor(DecisionWeakAccept) != ChangeReinforce {
		t.Error("accepts should reinforce")
	}
	if ChangeKindFor(DecisionReject) != ChangeWeaken {
		t.Error("reject should weaken")
	}
	if ChangeKindFor(DecisionNoProgress) != ChangeNeutral {
		t.Error("no progress should be neutral")
	}
}

func TestLedgerEntryComputeHash(t *testing.T) {
	e := LedgerEntry{
		EntityID:     uuid.New(),
		Iteration:    3,
		HypothesisID: uuid.New(),
		Kind:         ChangeReinforce,
		Impact:       0.15,
		EvidenceRef:  "news://article/3",
		Category:     "budget",
		RecordedAt:   time.Now(),
	}

	first := e.ComputeHash("prev")
	if first != e.ComputeHash("prev") {
		t.Error("hash is not deterministic")
	}
	if first == e.ComputeHash("other") {
		t.Error("hash ignores the previous hash")
	}

	tampered := e
	tampered.Impact += 0.0001
	if first == tampered.ComputeHash("prev") {
		t.Error("hash ignores the impact")
	}

	// Backends that store microseconds must not change the hash.
	rounded := e
	rounded.RecordedAt = e.RecordedAt.Truncate(time.Microsecond)
	if first != rounded.ComputeHash("prev") {
		t.Error("hash is sensitive to sub-microsecond timestamp precision")
	}
}
