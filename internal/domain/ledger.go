package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeKind classifies the direction of a confidence change.
type ChangeKind string

const (
	ChangeReinforce ChangeKind = "REINFORCE"
	ChangeWeaken    ChangeKind = "WEAKEN"
	ChangeNeutral   ChangeKind = "NEUTRAL"
)

// ChangeKindFor maps a decision to the ledger change kind.
func ChangeKindFor(d Decision) ChangeKind {
	switch d {
	case DecisionAccept, DecisionWeakAccept:
		return ChangeReinforce
	case DecisionReject:
		return ChangeWeaken
	default:
		return ChangeNeutral
	}
}

// LedgerEntry is one immutable record in an entity's belief ledger. The
// chain invariant is Hash == H(fields || PrevHash) for every entry after
// the first.
type LedgerEntry struct {
	EntityID     uuid.UUID  `json:"entity_id"`
	Iteration    int        `json:"iteration"`
	HypothesisID uuid.UUID  `json:"hypothesis_id"`
	Kind         ChangeKind `json:"kind"`
	// Impact is the signed confidence change actually applied, after
	// guardrails.
	Impact      float64   `json:"impact"`
	EvidenceRef string    `json:"evidence_ref"`
	Category    string    `json:"category"`
	RecordedAt  time.Time `json:"recorded_at"`
	PrevHash    string    `json:"prev_hash"`
	Hash        string    `json:"hash"`
}

// ComputeHash returns the chain hash for this entry given the previous
// entry's hash. The canonical serialization is fixed; changing it breaks
// every existing chain. RecordedAt enters the hash at microsecond
// precision, the finest resolution every storage backend round-trips
// (Postgres timestamptz stores microseconds).
func (e LedgerEntry) ComputeHash(prevHash string) string {
	payload := fmt.Sprintf("%s|%d|%s|%s|%.10f|%s|%s|%d|%s",
		e.EntityID, e.Iteration, e.HypothesisID, e.Kind, e.Impact,
		e.EvidenceRef, e.Category, e.RecordedAt.UnixMicro(), prevHash)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
