package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/Harshitk-cp/prospector/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// iterationCostWeight penalizes configurations that burn the iteration
	// budget to reach the same classification.
	iterationCostWeight = 0.1

	// bayesWarmupFraction of the trial budget is spent on random samples
	// before the sequential proposals start.
	bayesWarmupFraction = 3
)

// ParamRange describes the search space for one named parameter.
type ParamRange struct {
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Steps int     `json:"steps"`
}

// ScriptedVerdict is one pre-labeled judge response in a replay sample.
type ScriptedVerdict struct {
	Decision domain.Decision `json:"decision"`
	Delta    float64         `json:"delta"`
}

// LabeledSample is one past discovery outcome: the hypothesis seeds the
// entity started from, the verdict sequence observed, and whether the
// entity ultimately proved actionable.
type LabeledSample struct {
	Seeds      []domain.HypothesisSeed `json:"seeds"`
	Script     []ScriptedVerdict       `json:"script"`
	Actionable bool                    `json:"actionable"`
}

// Trial records one evaluated configuration.
type Trial struct {
	Config domain.TuningConfig `json:"config"`
	Score  float64             `json:"score"`
}

// TuningResult is the tuner's output artifact plus its full history.
type TuningResult struct {
	Best      domain.TuningConfig `json:"best"`
	BestScore float64             `json:"best_score"`
	Trials    []Trial             `json:"trials"`
}

// ParameterTuner searches protocol constants offline against labeled
// discovery outcomes. It never mutates production state: every candidate
// is scored on an isolated in-memory engine, driving the coordinator as a
// black box.
type ParameterTuner struct {
	base    domain.TuningConfig
	samples []LabeledSample
	logger  *zap.Logger
	rng     *rand.Rand
}

func NewParameterTuner(base domain.TuningConfig, samples []LabeledSample, logger *zap.Logger) *ParameterTuner {
	return &ParameterTuner{
		base:    base,
		samples: samples,
		logger:  logger,
		rng:     rand.New(rand.NewSource(1)),
	}
}

// SetSeed fixes the random source, for reproducible searches.
func (t *ParameterTuner) SetSeed(seed int64) {
	t.rng = rand.New(rand.NewSource(seed))
}

// GridSearch samples the parameter space on a regular grid, falling back
// to random draws when the full grid exceeds nSamples. validationSplit is
// the fraction of samples held out for scoring.
func (t *ParameterTuner) GridSearch(ctx context.Context, ranges []ParamRange, nSamples int, validationSplit float64) (*TuningResult, error) {
	if err := validateRanges(ranges); err != nil {
		return nil, err
	}
	validation := t.validationSet(validationSplit)

	grid := expandGrid(ranges)
	if len(grid) > nSamples {
		t.rng.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
		grid = grid[:nSamples]
	}

	result := &TuningResult{BestScore: math.Inf(-1)}
	for _, point := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg, err := t.configFor(point)
		if err != nil {
			continue
		}
		score := t.score(ctx, cfg, validation)
		result.Trials = append(result.Trials, Trial{Config: cfg, Score: score})
		if score > result.BestScore {
			result.BestScore = score
			result.Best = cfg
		}
	}

	t.logger.Info("grid search complete",
		zap.Int("trials", len(result.Trials)),
		zap.Float64("best_score", result.BestScore))
	return result, nil
}

// BayesianOptimization runs a sequential search: random warmup, then
// Gaussian proposals around the incumbent with a shrinking step. Ranges
// too degenerate to perturb fall back to grid search.
func (t *ParameterTuner) BayesianOptimization(ctx context.Context, ranges []ParamRange, nIterations int, validationSplit float64) (*TuningResult, error) {
	if err := validateRanges(ranges); err != nil {
		return nil, err
	}
	for _, r := range ranges {
		if r.Max-r.Min < 1e-9 {
			t.logger.Warn("degenerate parameter range, falling back to grid search",
				zap.String("param", r.Name))
			return t.GridSearch(ctx, ranges, nIterations, validationSplit)
		}
	}
	validation := t.validationSet(validationSplit)

	result := &TuningResult{BestScore: math.Inf(-1)}
	var bestPoint map[string]float64

	warmup := nIterations / bayesWarmupFraction
	if warmup < 1 {
		warmup = 1
	}

	for i := 0; i < nIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var point map[string]float64
		if i < warmup || bestPoint == nil {
			point = t.randomPoint(ranges)
		} else {
			// step shrinks as the budget is spent
			scale := 0.3 * (1 - float64(i)/float64(nIterations))
			point = t.perturb(bestPoint, ranges, scale)
		}

		cfg, err := t.configFor(point)
		if err != nil {
			continue
		}
		score := t.score(ctx, cfg, validation)
		result.Trials = append(result.Trials, Trial{Config: cfg, Score: score})
		if score > result.BestScore {
			result.BestScore = score
			result.Best = cfg
			bestPoint = point
		}
	}

	t.logger.Info("sequential optimization complete",
		zap.Int("trials", len(result.Trials)),
		zap.Float64("best_score", result.BestScore))
	return result, nil
}

// score replays every validation sample through an isolated engine built
// on the candidate configuration and returns classification accuracy minus
// the iteration cost penalty.
func (t *ParameterTuner) score(ctx context.Context, cfg domain.TuningConfig, validation []LabeledSample) float64 {
	if len(validation) == 0 {
		return 0
	}

	correct := 0
	totalIterations := 0
	for _, sample := range validation {
		predicted, iterations := t.replay(ctx, cfg, sample)
		if predicted == sample.Actionable {
			correct++
		}
		totalIterations += iterations
	}

	accuracy := float64(correct) / float64(len(validation))
	cost := float64(totalIterations) / float64(len(validation)*cfg.MaxIterations)
	return accuracy - iterationCostWeight*cost
}

// replay runs one labeled sample through a fresh in-memory engine. The
// scripted judge makes the run deterministic.
func (t *ParameterTuner) replay(ctx context.Context, cfg domain.TuningConfig, sample LabeledSample) (actionable bool, iterations int) {
	logger := zap.NewNop()
	entityID := uuid.New()
	clusterID := uuid.New()

	ledger := NewBeliefLedger(store.NewInMemoryLedgerStore(), logger)
	cache := NewHypothesisCache(cfg, logger)
	manager := NewHypothesisManager(
		store.NewInMemoryHypothesisStore(),
		store.NewInMemoryCategoryStatsStore(),
		staticTemplates{seeds: sample.Seeds},
		ledger, cache, cfg, logger,
	)
	dampening := NewDampeningTracker(store.NewInMemoryClusterStore(), cfg, logger)
	judge := &scriptedJudge{script: sample.Script}

	coordinator := NewCoordinator(
		manager, NewEIGCalculator(cfg), dampening,
		&syntheticEvidence{}, judge, nil, cfg, logger,
	)

	if _, err := manager.InitializeHypotheses(ctx, "replay", entityID, "entity"); err != nil {
		return false, 0
	}

	run, err := coordinator.Run(ctx, entityID, clusterID)
	if err != nil {
		return false, 0
	}
	return run.Band == domain.BandActionable, run.Iterations
}

func (t *ParameterTuner) validationSet(split float64) []LabeledSample {
	if split <= 0 || split > 1 {
		split = 1
	}
	n := int(math.Ceil(float64(len(t.samples)) * split))
	if n > len(t.samples) {
		n = len(t.samples)
	}
	return t.samples[len(t.samples)-n:]
}

func (t *ParameterTuner) configFor(point map[string]float64) (domain.TuningConfig, error) {
	cfg := t.base
	for name, value := range point {
		switch name {
		case "accept_delta":
			cfg.AcceptDelta = value
		case "weak_accept_delta":
			cfg.WeakAcceptDelta = value
		case "reject_delta":
			cfg.RejectDelta = value
		case "weak_accept_decay":
			cfg.WeakAcceptDecay = value
		case "no_accept_ceiling":
			cfg.NoAcceptCeiling = value
		case "actionable_threshold":
			cfg.ActionableThreshold = value
		case "eig_floor":
			cfg.EIGFloor = value
		case "max_iterations":
			cfg.MaxIterations = int(math.Round(value))
		case "cache_ttl_minutes":
			cfg.CacheTTLMinutes = int(math.Round(value))
		default:
			return cfg, fmt.Errorf("%w: unknown parameter %q", domain.ErrInvalidConfig, name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (t *ParameterTuner) randomPoint(ranges []ParamRange) map[string]float64 {
	point := make(map[string]float64, len(ranges))
	for _, r := range ranges {
		point[r.Name] = r.Min + t.rng.Float64()*(r.Max-r.Min)
	}
	return point
}

func (t *ParameterTuner) perturb(center map[string]float64, ranges []ParamRange, scale float64) map[string]float64 {
	point := make(map[string]float64, len(ranges))
	for _, r := range ranges {
		width := r.Max - r.Min
		v := center[r.Name] + t.rng.NormFloat64()*scale*width
		if v < r.Min {
			v = r.Min
		}
		if v > r.Max {
			v = r.Max
		}
		point[r.Name] = v
	}
	return point
}

func validateRanges(ranges []ParamRange) error {
	if len(ranges) == 0 {
		return fmt.Errorf("%w: no parameter ranges", domain.ErrInvalidConfig)
	}
	for _, r := range ranges {
		if r.Min > r.Max {
			return fmt.Errorf("%w: range %q has min > max", domain.ErrInvalidConfig, r.Name)
		}
	}
	return nil
}

func expandGrid(ranges []ParamRange) []map[string]float64 {
	points := []map[string]float64{{}}
	for _, r := range ranges {
		steps := r.Steps
		if steps < 2 {
			steps = 2
		}
		var next []map[string]float64
		for _, base := range points {
			for s := 0; s < steps; s++ {
				point := make(map[string]float64, len(base)+1)
				for k, v := range base {
					point[k] = v
				}
				point[r.Name] = r.Min + (r.Max-r.Min)*float64(s)/float64(steps-1)
				next = append(next, point)
			}
		}
		points = next
	}
	return points
}

// staticTemplates serves a fixed seed list regardless of template id.
type staticTemplates struct {
	seeds []domain.HypothesisSeed
}

func (s staticTemplates) Get(ctx context.Context, templateID string) (*domain.TemplateSet, error) {
	return &domain.TemplateSet{ID: templateID, Seeds: s.seeds}, nil
}

// scriptedJudge replays a fixed verdict sequence, then reports no
// progress.
type scriptedJudge struct {
	script []ScriptedVerdict
	pos    int
}

func (j *scriptedJudge) Judge(ctx context.Context, h *domain.Hypothesis, evidence []domain.Evidence) (*domain.Verdict, error) {
	if j.pos >= len(j.script) {
		return &domain.Verdict{Decision: domain.DecisionNoProgress}, nil
	}
	v := j.script[j.pos]
	j.pos++
	return &domain.Verdict{Decision: v.Decision, ConfidenceDelta: v.Delta}, nil
}

// syntheticEvidence supplies one fresh, fully credible record per call so
// replay deltas are weighted consistently. Sources are numbered to keep
// every record unique under duplicate-evidence rejection.
type syntheticEvidence struct {
	n int
}

func (s *syntheticEvidence) Collect(ctx context.Context, h *domain.Hypothesis) ([]domain.Evidence, error) {
	s.n++
	return []domain.Evidence{{
		HypothesisID:     h.ID,
		EntityID:         h.EntityID,
		RawText:          "vendor selected",
		Source:           fmt.Sprintf("replay://%s/%d", h.ID, s.n),
		SignalClass:      domain.SignalClassProcurement,
		CredibilityScore: 1,
		CollectedAt:      time.Now(),
	}}, nil
}
