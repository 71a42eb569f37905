package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/metrics"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// rejectionFloor and rejectionMinCount gate the terminal rejected
	// transition: repeated contradiction plus collapsed confidence.
	rejectionFloor    = 0.05
	rejectionMinCount = 2

	// hypothesisSaturationLimit is how many NO_PROGRESS outcomes a single
	// hypothesis absorbs before it is considered saturated.
	hypothesisSaturationLimit = 5
)

// UpdateInput carries one verdict application through the manager's single
// mutation path.
type UpdateInput struct {
	HypothesisID uuid.UUID
	EntityID     uuid.UUID
	Iteration    int
	Decision     domain.Decision
	// ConfidenceDelta is the judge-proposed magnitude. Zero means use the
	// configured default for the decision.
	ConfidenceDelta float64
	EvidenceRef     string
}

// HypothesisManager is the sole owner of hypothesis and per-category
// statistics mutation. Every confidence change flows through
// UpdateHypothesis and lands in the belief ledger.
type HypothesisManager struct {
	hypotheses domain.HypothesisStore
	stats      domain.CategoryStatsStore
	templates  domain.TemplateSource
	ledger     *BeliefLedger
	cache      *HypothesisCache
	cfg        domain.TuningConfig
	logger     *zap.Logger
}

func NewHypothesisManager(
	hs domain.HypothesisStore,
	cs domain.CategoryStatsStore,
	ts domain.TemplateSource,
	ledger *BeliefLedger,
	cache *HypothesisCache,
	cfg domain.TuningConfig,
	logger *zap.Logger,
) *HypothesisManager {
	return &HypothesisManager{
		hypotheses: hs,
		stats:      cs,
		templates:  ts,
		ledger:     ledger,
		cache:      cache,
		cfg:        cfg,
		logger:     logger,
	}
}

// InitializeHypotheses seeds a fresh hypothesis set for an entity from a
// configured template.
func (m *HypothesisManager) InitializeHypotheses(ctx context.Context, templateID string, entityID uuid.UUID, entityName string) ([]domain.Hypothesis, error) {
	set, err := m.templates.Get(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("resolve template %q: %w", templateID, err)
	}

	created := make([]domain.Hypothesis, 0, len(set.Seeds))
	for _, seed := range set.Seeds {
		h := domain.Hypothesis{
			EntityID:   entityID,
			Category:   seed.Category,
			Statement:  strings.ReplaceAll(seed.Statement, "{entity}", entityName),
			Prior:      seed.Prior,
			Confidence: seed.Prior,
			Status:     domain.StatusActive,
			PatternKey: seed.PatternKey,
		}
		if err := m.hypotheses.Create(ctx, &h); err != nil {
			return nil, fmt.Errorf("create hypothesis: %w", err)
		}
		created = append(created, h)
	}

	m.logger.Info("hypotheses initialized",
		zap.String("entity_id", entityID.String()),
		zap.String("template_id", templateID),
		zap.Int("count", len(created)))
	return created, nil
}

// GetHypothesis reads through the cache.
func (m *HypothesisManager) GetHypothesis(ctx context.Context, id uuid.UUID) (*domain.Hypothesis, error) {
	if h := m.cache.Get(id); h != nil {
		return h, nil
	}
	h, err := m.hypotheses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(id, h); err != nil {
		m.logger.Debug("hypothesis not cached", zap.String("id", id.String()), zap.Error(err))
	}
	return h, nil
}

// GetByEntity returns the entity's full hypothesis set.
func (m *HypothesisManager) GetByEntity(ctx context.Context, entityID uuid.UUID) ([]domain.Hypothesis, error) {
	return m.hypotheses.GetByEntity(ctx, entityID)
}

// UpdateHypothesis applies one verdict. It appends the ledger entry,
// updates the category's counters, applies the delta under the ceiling
// guardrail, and recomputes lifecycle status. Unknown ids and duplicate
// evidence references fail before any mutation.
func (m *HypothesisManager) UpdateHypothesis(ctx context.Context, input UpdateInput) (*domain.Hypothesis, error) {
	h, err := m.hypotheses.GetByID(ctx, input.HypothesisID)
	if err != nil {
		return nil, err
	}
	if h.EntityID != input.EntityID {
		return nil, store.ErrNotFound
	}

	dup, err := m.ledger.HasEvidenceRef(ctx, h.ID, input.EvidenceRef)
	if err != nil {
		return nil, fmt.Errorf("check evidence ref: %w", err)
	}
	if dup {
		return nil, store.ErrDuplicateEvidence
	}

	cs, err := m.stats.Get(ctx, h.EntityID, h.Category)
	if err != nil {
		if err != store.ErrNotFound {
			return nil, err
		}
		cs = &domain.CategoryStats{
			EntityID:             h.EntityID,
			Category:             h.Category,
			SaturationMultiplier: 1.0,
		}
	}

	applied := m.appliedDelta(h, cs, input)

	// The ledger append is the commit point. If state persistence fails
	// afterwards, the entry is the recovery point for replay.
	entry := &domain.LedgerEntry{
		EntityID:     h.EntityID,
		Iteration:    input.Iteration,
		HypothesisID: h.ID,
		Kind:         domain.ChangeKindFor(input.Decision),
		Impact:       applied,
		EvidenceRef:  input.EvidenceRef,
		Category:     h.Category,
		RecordedAt:   time.Now(),
	}
	if err := m.ledger.Append(ctx, entry); err != nil {
		return nil, err
	}

	h.Confidence += applied
	h.LastDelta = applied
	applyOutcome(&h.Outcomes, input.Decision)
	applyOutcome(&cs.Outcomes, input.Decision)
	cs.TotalIterations++
	if input.Decision == domain.DecisionWeakAccept {
		cs.WeakAcceptStreak++
	} else {
		cs.WeakAcceptStreak = 0
	}
	m.recomputeStatus(h)

	if err := m.stats.Upsert(ctx, cs); err != nil {
		return nil, fmt.Errorf("persist category stats: %w", err)
	}
	if err := m.hypotheses.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("persist hypothesis: %w", err)
	}

	m.cache.Invalidate(h.ID)
	metrics.DecisionsTotal.WithLabelValues(string(input.Decision)).Inc()

	m.logger.Debug("hypothesis updated",
		zap.String("hypothesis_id", h.ID.String()),
		zap.String("decision", string(input.Decision)),
		zap.Float64("applied_delta", applied),
		zap.Float64("confidence", h.Confidence),
		zap.String("status", string(h.Status)))
	return h, nil
}

// appliedDelta resolves the raw delta for the decision, shrinks repeated
// weak accepts, and clamps the result so confidence stays inside [0,1] and
// under the zero-accept ceiling.
func (m *HypothesisManager) appliedDelta(h *domain.Hypothesis, cs *domain.CategoryStats, input UpdateInput) float64 {
	var raw float64
	switch input.Decision {
	case domain.DecisionAccept:
		raw = m.cfg.AcceptDelta
	case domain.DecisionWeakAccept:
		raw = m.cfg.WeakAcceptDelta
	case domain.DecisionReject:
		raw = -m.cfg.RejectDelta
	default:
		return 0
	}

	if input.ConfidenceDelta > 0 && input.ConfidenceDelta <= 1 {
		if raw < 0 {
			raw = -input.ConfidenceDelta
		} else {
			raw = input.ConfidenceDelta
		}
	}

	// A run of weak accepts in one category is one saturating signal type,
	// not accumulating strong evidence.
	if input.Decision == domain.DecisionWeakAccept && cs.WeakAcceptStreak > 0 {
		raw *= math.Pow(m.cfg.WeakAcceptDecay, float64(cs.WeakAcceptStreak))
	}

	target := h.Confidence + raw
	if input.Decision != domain.DecisionAccept && cs.Outcomes.Accepts == 0 && target > m.cfg.NoAcceptCeiling {
		target = m.cfg.NoAcceptCeiling
		if h.Confidence > target {
			target = h.Confidence
		}
	}
	if target > 1 {
		target = 1
	}
	if target < 0 {
		target = 0
	}
	return target - h.Confidence
}

func (m *HypothesisManager) recomputeStatus(h *domain.Hypothesis) {
	if h.Status.Terminal() {
		return
	}
	switch {
	case h.Outcomes.Rejects >= rejectionMinCount && h.Confidence <= rejectionFloor:
		h.Status = domain.StatusRejected
	case h.Outcomes.NoProgress >= hypothesisSaturationLimit:
		h.Status = domain.StatusSaturated
	}
}

// MarkSaturated transitions a hypothesis to its saturated terminal status,
// used by the coordinator when the cluster has exhausted its pattern.
func (m *HypothesisManager) MarkSaturated(ctx context.Context, id uuid.UUID) error {
	return m.transition(ctx, id, domain.StatusSaturated)
}

// MarkPromoted transitions a hypothesis to promoted, on explicit external
// promotion.
func (m *HypothesisManager) MarkPromoted(ctx context.Context, id uuid.UUID) error {
	return m.transition(ctx, id, domain.StatusPromoted)
}

func (m *HypothesisManager) transition(ctx context.Context, id uuid.UUID, status domain.HypothesisStatus) error {
	h, err := m.hypotheses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if h.Status.Terminal() {
		return nil
	}
	h.Status = status
	if err := m.hypotheses.Update(ctx, h); err != nil {
		return err
	}
	m.cache.Invalidate(id)
	return nil
}

// EntityBandResult is the aggregate confidence view for one entity.
type EntityBandResult struct {
	EntityID         uuid.UUID             `json:"entity_id"`
	Band             domain.ConfidenceBand `json:"band"`
	Confidence       float64               `json:"confidence"`
	Accepts          int                   `json:"accepts"`
	AcceptCategories int                   `json:"accept_categories"`
}

// EntityBand computes the entity's confidence band. The aggregate
// confidence is the entity's strongest current belief; the ACTIONABLE band
// additionally requires the accept gate, so confidence alone never reports
// as actionable.
func (m *HypothesisManager) EntityBand(ctx context.Context, entityID uuid.UUID) (*EntityBandResult, error) {
	hs, err := m.hypotheses.GetByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, store.ErrNotFound
	}

	confidence := 0.0
	for _, h := range hs {
		if h.Status == domain.StatusRejected {
			continue
		}
		if h.Confidence > confidence {
			confidence = h.Confidence
		}
	}

	stats, err := m.stats.GetByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	accepts, acceptCategories := 0, 0
	for _, cs := range stats {
		accepts += cs.Outcomes.Accepts
		if cs.Outcomes.Accepts > 0 {
			acceptCategories++
		}
	}

	result := &EntityBandResult{
		EntityID:         entityID,
		Confidence:       confidence,
		Accepts:          accepts,
		AcceptCategories: acceptCategories,
	}

	switch {
	case confidence >= m.cfg.ActionableThreshold &&
		accepts >= m.cfg.MinAccepts &&
		acceptCategories >= m.cfg.MinAcceptCategories:
		result.Band = domain.BandActionable
	case confidence >= 0.60:
		result.Band = domain.BandConfident
	case confidence >= 0.30:
		result.Band = domain.BandInformed
	default:
		result.Band = domain.BandExploratory
	}
	return result, nil
}

func applyOutcome(o *domain.OutcomeCounts, d domain.Decision) {
	switch d {
	case domain.DecisionAccept:
		o.Accepts++
	case domain.DecisionWeakAccept:
		o.WeakAccepts++
	case domain.DecisionReject:
		o.Rejects++
	case domain.DecisionNoProgress:
		o.NoProgress++
	}
}
