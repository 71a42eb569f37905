package domain

import (
	"context"

	"github.com/google/uuid"
)

type HypothesisStore interface {
	Create(ctx context.Context, h *Hypothesis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hypothesis, error)
	GetByEntity(ctx context.Context, entityID uuid.UUID) ([]Hypothesis, error)
	// Update persists a full hypothesis record. Implementations must never
	// delete rows; terminal hypotheses stay queryable.
	Update(ctx context.Context, h *Hypothesis) error
	ListDistinctEntityIDs(ctx context.Context) ([]uuid.UUID, error)
}

type CategoryStatsStore interface {
	Upsert(ctx context.Context, s *CategoryStats) error
	Get(ctx context.Context, entityID uuid.UUID, category string) (*CategoryStats, error)
	GetByEntity(ctx context.Context, entityID uuid.UUID) ([]CategoryStats, error)
}

// LedgerStore persists belief ledger entries. The contract is strictly
// append-only: implementations must reject overwrite and delete operations
// on existing entries.
type LedgerStore interface {
	Append(ctx context.Context, e *LedgerEntry) error
	// GetChain returns all entries for an entity in append order.
	GetChain(ctx context.Context, entityID uuid.UUID) ([]LedgerEntry, error)
	// LastEntry returns the newest entry, or store.ErrNotFound on an empty
	// chain.
	LastEntry(ctx context.Context, entityID uuid.UUID) (*LedgerEntry, error)
	// HasEvidenceRef reports whether an evidence reference was already
	// applied to a hypothesis, for duplicate rejection.
	HasEvidenceRef(ctx context.Context, hypothesisID uuid.UUID, evidenceRef string) (bool, error)
}

type ClusterStore interface {
	Upsert(ctx context.Context, s *ClusterState) error
	Get(ctx context.Context, clusterID uuid.UUID) (*ClusterState, error)
}

// EvidenceProvider supplies evidence for a hypothesis. Implementations are
// external collectors; calls are long-latency and must honor ctx.
type EvidenceProvider interface {
	Collect(ctx context.Context, h *Hypothesis) ([]Evidence, error)
}

// VerdictClient classifies evidence against a hypothesis. Implementations
// are external judges (LLM-backed or equivalent); calls must honor ctx.
type VerdictClient interface {
	Judge(ctx context.Context, h *Hypothesis, evidence []Evidence) (*Verdict, error)
}

// TemplateSource resolves a template identifier to its hypothesis seeds.
type TemplateSource interface {
	Get(ctx context.Context, templateID string) (*TemplateSet, error)
}

// ReportSink receives per-iteration decision output in the external
// vocabulary. Implementations forward to alerting or reporting systems.
type ReportSink interface {
	Emit(ctx context.Context, report IterationReport) error
}
