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

type coordinatorFixture struct {
	coordinator *Coordinator
	manager     *HypothesisManager
	dampening   *DampeningTracker
	hypotheses  *store.InMemoryHypothesisStore
	entityID    uuid.UUID
	clusterID   uuid.UUID
}

// discoverySeeds spans two categories so runs can clear the category gate.
var discoverySeeds = []domain.HypothesisSeed{
	{Category: "budget", Statement: "{entity} approved budget", Prior: 0.50, PatternKey: "budget/approved"},
	{Category: "hiring", Statement: "{entity} hires engineers", Prior: 0.45, PatternKey: "hiring/engineers"},
}

func newCoordinatorFixture(t *testing.T, judge domain.VerdictClient) *coordinatorFixture {
	t.Helper()
	logger := zap.NewNop()
	cfg := domain.DefaultTuningConfig()

	hs := store.NewInMemoryHypothesisStore()
	manager := NewHypothesisManager(
		hs,
		store.NewInMemoryCategoryStatsStore(),
		staticTemplates{seeds: discoverySeeds},
		NewBeliefLedger(store.NewInMemoryLedgerStore(), logger),
		NewHypothesisCache(cfg, logger),
		cfg, logger,
	)
	dampening := NewDampeningTracker(store.NewInMemoryClusterStore(), cfg, logger)
	coordinator := NewCoordinator(
		manager, NewEIGCalculator(cfg), dampening,
		&syntheticEvidence{}, judge, nil, cfg, logger,
	)

	f := &coordinatorFixture{
		coordinator: coordinator,
		manager:     manager,
		dampening:   dampening,
		hypotheses:  hs,
		entityID:    uuid.New(),
		clusterID:   uuid.New(),
	}
	if _, err := manager.InitializeHypotheses(context.Background(), "discovery", f.entityID, "Acme"); err != nil {
		t.Fatalf("initialize hypotheses: %v", err)
	}
	return f
}

type failingJudge struct{}

func (failingJudge) Judge(ctx context.Context, h *domain.Hypothesis, evidence []domain.Evidence) (*domain.Verdict, error) {
	return nil, errors.New("judge unavailable")
}

type steadyJudge struct {
	verdict domain.Verdict
}

func (j steadyJudge) Judge(ctx context.Context, h *domain.Hypothesis, evidence []domain.Evidence) (*domain.Verdict, error) {
	v := j.verdict
	return &v, nil
}

// fixedSourceCollector always returns the same source, the way a feed
// collector does between publications.
type fixedSourceCollector struct{}

func (fixedSourceCollector) Collect(ctx context.Context, h *domain.Hypothesis) ([]domain.Evidence, error) {
	return []domain.Evidence{{
		HypothesisID:     h.ID,
		EntityID:         h.EntityID,
		RawText:          "vendor selected",
		Source:           "news://recycled",
		SignalClass:      domain.SignalClassProcurement,
		CredibilityScore: 1,
		CollectedAt:      time.Now(),
	}}, nil
}

type captureSink struct {
	reports []domain.IterationReport
}

func (s *captureSink) Emit(ctx context.Context, r domain.IterationReport) error {
	s.reports = append(s.reports, r)
	return nil
}

func TestCoordinator_RunStopsAtActionable(t *testing.T) {
	// Two strong accepts land in different categories because ranking moves
	// to the untried pattern after the first trial.
	judge := &scriptedJudge{script: []ScriptedVerdict{
		{Decision: domain.DecisionAccept, Delta: 0.4},
		{Decision: domain.DecisionAccept, Delta: 0.4},
	}}
	f := newCoordinatorFixture(t, judge)

	result, err := f.coordinator.Run(context.Background(), f.entityID, f.clusterID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateActionable {
		t.Fatalf("state = %q, want %q", result.State, StateActionable)
	}
	if result.Band != domain.BandActionable {
		t.Errorf("band = %q, want ACTIONABLE", result.Band)
	}
	if result.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", result.Iterations)
	}
	if len(result.Reports) != 2 {
		t.Errorf("reports = %d, want one per iteration", len(result.Reports))
	}
	if got := result.Reports[0].Signal; got != domain.SignalProcurement {
		t.Errorf("report signal = %q, want %q", got, domain.SignalProcurement)
	}
}

func TestCoordinator_RunSaturatesOnNoProgress(t *testing.T) {
	// An empty script means every verdict is NO_PROGRESS. Each hypothesis
	// absorbs its limit and self-saturates; the run then has no candidates.
	f := newCoordinatorFixture(t, &scriptedJudge{})

	result, err := f.coordinator.Run(context.Background(), f.entityID, f.clusterID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateSaturated {
		t.Fatalf("state = %q, want %q", result.State, StateSaturated)
	}

	hs, _ := f.manager.GetByEntity(context.Background(), f.entityID)
	for _, h := range hs {
		if h.Status != domain.StatusSaturated {
			t.Errorf("hypothesis %s status = %q, want saturated", h.ID, h.Status)
		}
		if h.Confidence != h.Prior {
			t.Errorf("no-progress run moved confidence from %f to %f", h.Prior, h.Confidence)
		}
	}
}

func TestCoordinator_JudgeFailureDoesNotAbortRun(t *testing.T) {
	f := newCoordinatorFixture(t, failingJudge{})

	result, err := f.coordinator.Run(context.Background(), f.entityID, f.clusterID)
	if err != nil {
		t.Fatalf("run should absorb judge failures, got %v", err)
	}
	if result.State != StateSaturated {
		t.Errorf("state = %q, want %q after absorbed failures", result.State, StateSaturated)
	}
	if result.Iterations == 0 {
		t.Error("runs with a failing judge should still iterate")
	}
}

func TestCoordinator_ExhaustedClusterSaturatesImmediately(t *testing.T) {
	f := newCoordinatorFixture(t, &scriptedJudge{script: []ScriptedVerdict{
		{Decision: domain.DecisionAccept, Delta: 0.4},
	}})

	// Both seed patterns are already exhausted across the cluster, so every
	// ranked score is zero and the run ends before its first verdict.
	for _, seed := range discoverySeeds {
		saturatePattern(f.dampening, f.clusterID, seed.PatternKey, 10)
	}

	result, err := f.coordinator.Run(context.Background(), f.entityID, f.clusterID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateSaturated {
		t.Fatalf("state = %q, want %q", result.State, StateSaturated)
	}
	if result.Iterations != 0 {
		t.Errorf("iterations = %d, want 0 before any verdict", result.Iterations)
	}

	hs, _ := f.manager.GetByEntity(context.Background(), f.entityID)
	for _, h := range hs {
		if h.Status != domain.StatusSaturated {
			t.Errorf("hypothesis %s status = %q, want saturated", h.ID, h.Status)
		}
	}
}

func TestCoordinator_SaturatedRunsExhaustClusterPatterns(t *testing.T) {
	logger := zap.NewNop()
	cfg := domain.DefaultTuningConfig()
	manager := NewHypothesisManager(
		store.NewInMemoryHypothesisStore(),
		store.NewInMemoryCategoryStatsStore(),
		staticTemplates{seeds: discoverySeeds},
		NewBeliefLedger(store.NewInMemoryLedgerStore(), logger),
		NewHypothesisCache(cfg, logger),
		cfg, logger,
	)
	dampening := NewDampeningTracker(store.NewInMemoryClusterStore(), cfg, logger)
	coordinator := NewCoordinator(
		manager, NewEIGCalculator(cfg), dampening,
		&syntheticEvidence{}, &scriptedJudge{}, nil, cfg, logger,
	)
	clusterID := uuid.New()

	// Every entity dead-ends on the same patterns; the cluster has to learn
	// that and stop spending iterations on later entities.
	var last *RunResult
	for i := 0; i < 7; i++ {
		entityID := uuid.New()
		if _, err := manager.InitializeHypotheses(context.Background(), "discovery", entityID, "entity"); err != nil {
			t.Fatalf("initialize hypotheses: %v", err)
		}
		result, err := coordinator.Run(context.Background(), entityID, clusterID)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if result.State != StateSaturated {
			t.Fatalf("run %d state = %q, want %q", i, result.State, StateSaturated)
		}
		last = result
	}

	for _, seed := range discoverySeeds {
		if !dampening.IsHypothesisExhausted(clusterID, seed.PatternKey) {
			t.Errorf("pattern %q not exhausted after 7 saturated entities", seed.PatternKey)
		}
	}
	if last.Iterations != 0 {
		t.Errorf("final entity ran %d iterations, want 0 once the cluster is exhausted", last.Iterations)
	}
}

func TestCoordinator_RecycledEvidenceCountsAsNoProgress(t *testing.T) {
	logger := zap.NewNop()
	cfg := domain.DefaultTuningConfig()
	hs := store.NewInMemoryHypothesisStore()
	manager := NewHypothesisManager(
		hs,
		store.NewInMemoryCategoryStatsStore(),
		staticTemplates{seeds: discoverySeeds},
		NewBeliefLedger(store.NewInMemoryLedgerStore(), logger),
		NewHypothesisCache(cfg, logger),
		cfg, logger,
	)
	dampening := NewDampeningTracker(store.NewInMemoryClusterStore(), cfg, logger)
	coordinator := NewCoordinator(
		manager, NewEIGCalculator(cfg), dampening,
		fixedSourceCollector{},
		steadyJudge{verdict: domain.Verdict{Decision: domain.DecisionAccept, ConfidenceDelta: 0.05}},
		nil, cfg, logger,
	)
	entityID := uuid.New()
	if _, err := manager.InitializeHypotheses(context.Background(), "discovery", entityID, "entity"); err != nil {
		t.Fatalf("initialize hypotheses: %v", err)
	}

	result, err := coordinator.Run(context.Background(), entityID, uuid.New())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Each hypothesis absorbs the source once; every replay after that is
	// no progress, so the run saturates instead of burning the cap.
	if result.State != StateSaturated {
		t.Fatalf("state = %q, want %q", result.State, StateSaturated)
	}
	if result.Iterations >= cfg.MaxIterations {
		t.Errorf("iterations = %d, recycled evidence burned the whole cap", result.Iterations)
	}

	hypotheses, _ := manager.GetByEntity(context.Background(), entityID)
	for _, h := range hypotheses {
		if h.Outcomes.Accepts != 1 {
			t.Errorf("hypothesis %s accepts = %d, want the source applied once", h.ID, h.Outcomes.Accepts)
		}
		if h.Status != domain.StatusSaturated {
			t.Errorf("hypothesis %s status = %q, want saturated", h.ID, h.Status)
		}
	}
}

func TestCoordinator_SaturationReportCarriesActualBand(t *testing.T) {
	logger := zap.NewNop()
	cfg := domain.DefaultTuningConfig()
	manager := NewHypothesisManager(
		store.NewInMemoryHypothesisStore(),
		store.NewInMemoryCategoryStatsStore(),
		staticTemplates{seeds: []domain.HypothesisSeed{
			{Category: "budget", Statement: "{entity} approved budget", Prior: 0.50, PatternKey: "budget/approved"},
		}},
		NewBeliefLedger(store.NewInMemoryLedgerStore(), logger),
		NewHypothesisCache(cfg, logger),
		cfg, logger,
	)
	sink := &captureSink{}
	coordinator := NewCoordinator(
		manager, NewEIGCalculator(cfg),
		NewDampeningTracker(store.NewInMemoryClusterStore(), cfg, logger),
		&syntheticEvidence{},
		&scriptedJudge{script: []ScriptedVerdict{{Decision: domain.DecisionAccept, Delta: 0.4}}},
		sink, cfg, logger,
	)
	entityID := uuid.New()
	if _, err := manager.InitializeHypotheses(context.Background(), "discovery", entityID, "entity"); err != nil {
		t.Fatalf("initialize hypotheses: %v", err)
	}

	// One strong accept lifts the single belief into CONFIDENT, then no
	// progress saturates it there.
	result, err := coordinator.Run(context.Background(), entityID, uuid.New())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.State != StateSaturated {
		t.Fatalf("state = %q, want %q", result.State, StateSaturated)
	}
	if result.Band != domain.BandConfident {
		t.Errorf("result band = %q, want CONFIDENT at saturation", result.Band)
	}

	if len(sink.reports) == 0 {
		t.Fatal("no reports emitted")
	}
	final := sink.reports[len(sink.reports)-1]
	if final.Signal != domain.SignalSaturated {
		t.Fatalf("final report signal = %q, want SATURATED", final.Signal)
	}
	if final.Band != domain.BandConfident {
		t.Errorf("final report band = %q, want the entity's actual band", final.Band)
	}
}

func TestCoordinator_RunHonorsCancellation(t *testing.T) {
	f := newCoordinatorFixture(t, &scriptedJudge{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.coordinator.Run(ctx, f.entityID, f.clusterID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestCoordinator_Promote(t *testing.T) {
	f := newCoordinatorFixture(t, &scriptedJudge{})

	result, err := f.coordinator.Promote(context.Background(), f.entityID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if result.State != StatePromoted {
		t.Errorf("state = %q, want %q", result.State, StatePromoted)
	}

	hs, _ := f.manager.GetByEntity(context.Background(), f.entityID)
	for _, h := range hs {
		if h.Status != domain.StatusPromoted {
			t.Errorf("hypothesis %s status = %q, want promoted", h.ID, h.Status)
		}
	}
}
