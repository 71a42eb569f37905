package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/metrics"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunState is the coordinator's per-entity protocol state.
type RunState string

const (
	StateExploring  RunState = "EXPLORING"
	StateActionable RunState = "ACTIONABLE"
	StateSaturated  RunState = "SATURATED"
	StatePromoted   RunState = "PROMOTED"
)

const defaultJudgeTimeout = 30 * time.Second

// RunResult summarizes one entity's completed discovery run.
type RunResult struct {
	EntityID   uuid.UUID             `json:"entity_id"`
	State      RunState              `json:"state"`
	Band       domain.ConfidenceBand `json:"band"`
	Confidence float64               `json:"confidence"`
	Iterations int                   `json:"iterations"`
	Reports    []domain.IterationReport `json:"reports"`
}

// Coordinator drives the iterative discovery protocol for entities. One
// run serves one entity; runs for different entities are independent and
// may execute concurrently, sharing the ledger, cache and dampening
// tracker underneath.
type Coordinator struct {
	manager   *HypothesisManager
	eig       *EIGCalculator
	dampening *DampeningTracker
	evidence  domain.EvidenceProvider
	judge     domain.VerdictClient
	sink      domain.ReportSink
	cfg       domain.TuningConfig
	logger    *zap.Logger

	judgeTimeout time.Duration
}

func NewCoordinator(
	manager *HypothesisManager,
	eig *EIGCalculator,
	dampening *DampeningTracker,
	evidence domain.EvidenceProvider,
	judge domain.VerdictClient,
	sink domain.ReportSink,
	cfg domain.TuningConfig,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		manager:      manager,
		eig:          eig,
		dampening:    dampening,
		evidence:     evidence,
		judge:        judge,
		sink:         sink,
		cfg:          cfg,
		logger:       logger,
		judgeTimeout: defaultJudgeTimeout,
	}
}

func (c *Coordinator) SetJudgeTimeout(d time.Duration) {
	c.judgeTimeout = d
}

// Run executes the discovery loop for one entity until the iteration cap,
// saturation, or the actionable band. Iterations are strictly sequential:
// each verdict is committed before the next ranking is computed. Cancelling
// ctx abandons any in-flight external call without applying a partial
// update; the last committed ledger entry is the recovery point.
func (c *Coordinator) Run(ctx context.Context, entityID, clusterID uuid.UUID) (*RunResult, error) {
	result := &RunResult{EntityID: entityID, State: StateExploring}

	for iteration := 1; iteration <= c.cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		hs, err := c.manager.GetByEntity(ctx, entityID)
		if err != nil {
			return result, err
		}

		snap := c.dampening.Snapshot(clusterID)
		ranked := c.eig.Rank(hs, snap)

		if len(ranked) == 0 || ranked[0].EIGScore < c.cfg.EIGFloor {
			if band := c.saturate(ctx, entityID, clusterID, ranked); band != nil {
				result.Band = band.Band
				result.Confidence = band.Confidence
			}
			result.State = StateSaturated
			break
		}
		top := ranked[0]

		c.dampening.RecordTrial(ctx, clusterID, top.PatternKey, entityID)

		decision, delta, ref := c.classify(ctx, &top)
		if ref == "" {
			ref = evidenceRefFor(&top, iteration)
		}

		result.Iterations = iteration
		metrics.IterationsTotal.Inc()

		updated, err := c.manager.UpdateHypothesis(ctx, UpdateInput{
			HypothesisID:    top.ID,
			EntityID:        entityID,
			Iteration:       iteration,
			Decision:        decision,
			ConfidenceDelta: delta,
			EvidenceRef:     ref,
		})
		if errors.Is(err, store.ErrDuplicateEvidence) {
			// A collector replaying an already-applied source carries no new
			// information. The iteration still counts as an outcome so the
			// hypothesis keeps moving toward saturation instead of being
			// re-selected forever.
			updated, err = c.manager.UpdateHypothesis(ctx, UpdateInput{
				HypothesisID: top.ID,
				EntityID:     entityID,
				Iteration:    iteration,
				Decision:     domain.DecisionNoProgress,
				EvidenceRef:  evidenceRefFor(&top, iteration) + "/" + uuid.NewString(),
			})
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			c.logger.Warn("iteration update failed",
				zap.String("entity_id", entityID.String()),
				zap.String("hypothesis_id", top.ID.String()),
				zap.Error(err))
			continue
		}

		if updated.Status == domain.StatusSaturated {
			c.dampening.RecordSaturation(ctx, clusterID, updated.PatternKey, entityID)
		}

		band, err := c.manager.EntityBand(ctx, entityID)
		if err != nil {
			return result, err
		}
		result.Band = band.Band
		result.Confidence = band.Confidence

		report := domain.IterationReport{
			EntityID:     entityID,
			Iteration:    iteration,
			HypothesisID: updated.ID,
			Category:     updated.Category,
			Signal:       domain.ExternalSignal(decision),
			Band:         band.Band,
			Confidence:   band.Confidence,
			ReportedAt:   time.Now(),
		}
		result.Reports = append(result.Reports, report)
		c.emit(ctx, report)

		if band.Band == domain.BandActionable {
			result.State = StateActionable
			if !c.cfg.ContinuePastActionable {
				break
			}
		}
	}

	metrics.RunsTotal.WithLabelValues(string(result.State)).Inc()
	c.logger.Info("discovery run complete",
		zap.String("entity_id", entityID.String()),
		zap.String("state", string(result.State)),
		zap.String("band", string(result.Band)),
		zap.Int("iterations", result.Iterations))
	return result, nil
}

// classify fetches evidence and asks the external judge for a verdict
// under a per-call timeout. Timeouts, cancellations and judge failures all
// resolve to NO_PROGRESS; they never abort the run.
func (c *Coordinator) classify(ctx context.Context, h *domain.Hypothesis) (domain.Decision, float64, string) {
	callCtx, cancel := context.WithTimeout(ctx, c.judgeTimeout)
	defer cancel()

	evidence, err := c.evidence.Collect(callCtx, h)
	if err != nil {
		c.absorb(err, h, "evidence collection failed")
		return domain.DecisionNoProgress, 0, ""
	}
	if len(evidence) == 0 {
		return domain.DecisionNoProgress, 0, ""
	}

	verdict, err := c.judge.Judge(callCtx, h, evidence)
	if err != nil {
		c.absorb(err, h, "verdict call failed")
		return domain.DecisionNoProgress, 0, evidence[0].Ref()
	}

	// Weight the judge's delta by the strongest piece of evidence so stale
	// or weak language cannot move belief at full strength.
	weight := 0.0
	now := time.Now()
	for _, ev := range evidence {
		if w := EvidenceWeight(ev, now); w > weight {
			weight = w
		}
	}
	return verdict.Decision, verdict.ConfidenceDelta * weight, evidence[0].Ref()
}

func (c *Coordinator) absorb(err error, h *domain.Hypothesis, msg string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		metrics.JudgeTimeouts.Inc()
	}
	c.logger.Warn(msg,
		zap.String("hypothesis_id", h.ID.String()),
		zap.Error(err))
}

// saturate records the terminal saturation: each still-rankable hypothesis
// is marked saturated and its pattern reported to the cluster tracker. The
// closing report carries the entity's actual band at the point of
// saturation.
func (c *Coordinator) saturate(ctx context.Context, entityID, clusterID uuid.UUID, remaining []domain.Hypothesis) *EntityBandResult {
	for _, h := range remaining {
		if err := c.manager.MarkSaturated(ctx, h.ID); err != nil {
			c.logger.Warn("failed to mark hypothesis saturated",
				zap.String("hypothesis_id", h.ID.String()), zap.Error(err))
			continue
		}
		c.dampening.RecordSaturation(ctx, clusterID, h.PatternKey, entityID)
	}

	report := domain.IterationReport{
		EntityID:   entityID,
		Signal:     domain.SignalSaturated,
		ReportedAt: time.Now(),
	}
	band, err := c.manager.EntityBand(ctx, entityID)
	if err != nil {
		c.logger.Warn("failed to resolve band at saturation",
			zap.String("entity_id", entityID.String()), zap.Error(err))
		band = nil
	} else {
		report.Band = band.Band
		report.Confidence = band.Confidence
	}
	c.emit(ctx, report)
	return band
}

// Promote is the explicit external promotion: every active hypothesis of
// the entity transitions to promoted and the run state is terminal.
func (c *Coordinator) Promote(ctx context.Context, entityID uuid.UUID) (*RunResult, error) {
	hs, err := c.manager.GetByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	for _, h := range hs {
		if h.Status == domain.StatusActive {
			if err := c.manager.MarkPromoted(ctx, h.ID); err != nil {
				return nil, err
			}
		}
	}

	band, err := c.manager.EntityBand(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		EntityID:   entityID,
		State:      StatePromoted,
		Band:       band.Band,
		Confidence: band.Confidence,
	}, nil
}

func (c *Coordinator) emit(ctx context.Context, report domain.IterationReport) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Emit(ctx, report); err != nil {
		c.logger.Warn("report emission failed",
			zap.String("entity_id", report.EntityID.String()),
			zap.Error(err))
	}
}

// evidenceRefFor derives the deduplication reference for an iteration when
// the collector does not supply one.
func evidenceRefFor(h *domain.Hypothesis, iteration int) string {
	return h.ID.String() + "#" + strconv.Itoa(iteration)
}
