package domain

import (
	"time"

	"github.com/google/uuid"
)

// SignalClass categorizes what kind of behavior a piece of evidence speaks
// to. Classes tune how textual strength is scored.
type SignalClass string

const (
	SignalClassCapability  SignalClass = "capability"
	SignalClassProcurement SignalClass = "procurement"
	SignalClassGeneric     SignalClass = "generic"
)

// Evidence is a typed record produced by an external collection process.
// The engine never fetches evidence itself.
type Evidence struct {
	HypothesisID uuid.UUID   `json:"hypothesis_id"`
	EntityID     uuid.UUID   `json:"entity_id"`
	RawText      string      `json:"raw_text"`
	Source       string      `json:"source"`
	SignalClass  SignalClass `json:"signal_class"`
	// CredibilityScore in [0,1] as assessed by the collector.
	CredibilityScore float64 `json:"credibility_score"`
	// CollectedAt may be zero when the collector could not parse a
	// timestamp; such evidence decays to the minimum weight.
	CollectedAt time.Time `json:"collected_at"`
}

// Ref returns the deduplication key for this evidence. Two submissions with
// the same source are the same evidence and must not be double counted.
func (e Evidence) Ref() string {
	return e.Source
}

// Verdict is the classification of a piece of evidence against a
// hypothesis, produced by an external judge.
type Verdict struct {
	Decision        Decision `json:"decision"`
	ConfidenceDelta float64  `json:"confidence_delta"`
	Rationale       string   `json:"rationale"`
}

// IterationReport is emitted per discovery iteration for downstream
// alerting and reporting. It carries only the external vocabulary.
type IterationReport struct {
	EntityID     uuid.UUID      `json:"entity_id"`
	Iteration    int            `json:"iteration"`
	HypothesisID uuid.UUID      `json:"hypothesis_id"`
	Category     string         `json:"category"`
	Signal       Signal         `json:"signal"`
	Band         ConfidenceBand `json:"band"`
	Confidence   float64        `json:"confidence"`
	ReportedAt   time.Time      `json:"reported_at"`
}
