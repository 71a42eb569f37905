package domain

import (
	"time"

	"github.com/google/uuid"
)

// HypothesisStatus is the lifecycle status of a hypothesis.
// Hypotheses are never deleted; they only transition to a terminal status.
type HypothesisStatus string

const (
	StatusActive    HypothesisStatus = "active"
	StatusPromoted  HypothesisStatus = "promoted"
	StatusSaturated HypothesisStatus = "saturated"
	StatusRejected  HypothesisStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s HypothesisStatus) Terminal() bool {
	return s == StatusPromoted || s == StatusSaturated || s == StatusRejected
}

// Decision is the internal verdict vocabulary applied to a hypothesis.
type Decision string

const (
	DecisionAccept     Decision = "ACCEPT"
	DecisionWeakAccept Decision = "WEAK_ACCEPT"
	DecisionReject     Decision = "REJECT"
	DecisionNoProgress Decision = "NO_PROGRESS"
)

// Signal is the externally reported vocabulary. Downstream consumers only
// ever see signals, never raw decisions.
type Signal string

const (
	SignalProcurement Signal = "PROCUREMENT_SIGNAL"
	SignalCapability  Signal = "CAPABILITY_SIGNAL"
	SignalNone        Signal = "NO_SIGNAL"
	SignalSaturated   Signal = "SATURATED"
)

// ExternalSignal maps an internal decision to the reporting vocabulary.
func ExternalSignal(d Decision) Signal {
	switch d {
	case DecisionAccept:
		return SignalProcurement
	case DecisionWeakAccept:
		return SignalCapability
	default:
		return SignalNone
	}
}

// ConfidenceBand is a coarse classification of an entity's aggregate
// confidence. ACTIONABLE additionally requires the accept gate, so a band
// is never derived from confidence alone.
type ConfidenceBand string

const (
	BandExploratory ConfidenceBand = "EXPLORATORY"
	BandInformed    ConfidenceBand = "INFORMED"
	BandConfident   ConfidenceBand = "CONFIDENT"
	BandActionable  ConfidenceBand = "ACTIONABLE"
)

// OutcomeCounts tracks how often each decision has been applied.
type OutcomeCounts struct {
	Accepts     int `json:"accepts"`
	WeakAccepts int `json:"weak_accepts"`
	Rejects     int `json:"rejects"`
	NoProgress  int `json:"no_progress"`
}

// Total returns the number of decisions applied.
func (o OutcomeCounts) Total() int {
	return o.Accepts + o.WeakAccepts + o.Rejects + o.NoProgress
}

// Hypothesis is a single testable claim about one entity, tracked with its
// own confidence and outcome history. Owned exclusively by the hypothesis
// manager and mutated only through its update operation.
type Hypothesis struct {
	ID         uuid.UUID        `json:"id"`
	EntityID   uuid.UUID        `json:"entity_id"`
	Category   string           `json:"category"`
	Statement  string           `json:"statement"`
	Prior      float64          `json:"prior"`
	Confidence float64          `json:"confidence"`
	Outcomes   OutcomeCounts    `json:"outcomes"`
	LastDelta  float64          `json:"last_delta"`
	EIGScore   float64          `json:"eig_score"`
	Status     HypothesisStatus `json:"status"`
	// PatternKey identifies the reusable hypothesis pattern this instance
	// was seeded from, shared across entities in the same cluster.
	PatternKey string    `json:"pattern_key"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryStats is the per-entity, per-category rollup. Created lazily on
// first update, mutated only by the hypothesis manager.
type CategoryStats struct {
	EntityID        uuid.UUID     `json:"entity_id"`
	Category        string        `json:"category"`
	Outcomes        OutcomeCounts `json:"outcomes"`
	TotalIterations int           `json:"total_iterations"`
	// WeakAcceptStreak counts consecutive weak accepts in this category,
	// driving the diminishing delta multiplier.
	WeakAcceptStreak     int     `json:"weak_accept_streak"`
	SaturationMultiplier float64 `json:"saturation_multiplier"`
}
