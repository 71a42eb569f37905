package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when a tuning configuration fails
// validation. Nothing is partially applied.
var ErrInvalidConfig = errors.New("invalid tuning configuration")

// TuningConfig is the artifact produced by the parameter tuner and loaded
// by the coordinator and manager at startup. All fields are validated as a
// unit before any of them take effect.
type TuningConfig struct {
	// Confidence deltas applied per decision, before guardrails.
	AcceptDelta     float64 `json:"accept_delta" yaml:"accept_delta" validate:"gt=0,lte=1"`
	WeakAcceptDelta float64 `json:"weak_accept_delta" yaml:"weak_accept_delta" validate:"gt=0,lte=1"`
	RejectDelta     float64 `json:"reject_delta" yaml:"reject_delta" validate:"gt=0,lte=1"`

	// WeakAcceptDecay shrinks repeated weak-accept deltas within one
	// category: the nth consecutive weak accept is scaled by decay^(n-1).
	WeakAcceptDecay float64 `json:"weak_accept_decay" yaml:"weak_accept_decay" validate:"gt=0,lt=1"`

	// NoAcceptCeiling caps confidence while the owning category has zero
	// ACCEPT outcomes.
	NoAcceptCeiling float64 `json:"no_accept_ceiling" yaml:"no_accept_ceiling" validate:"gt=0,lte=1"`

	// ActionableThreshold is the confidence part of the actionable gate.
	ActionableThreshold float64 `json:"actionable_threshold" yaml:"actionable_threshold" validate:"gt=0,lte=1"`
	// MinAccepts and MinAcceptCategories are the count part of the gate.
	MinAccepts          int `json:"min_accepts" yaml:"min_accepts" validate:"gte=1"`
	MinAcceptCategories int `json:"min_accept_categories" yaml:"min_accept_categories" validate:"gte=1"`

	// MaxIterations caps one entity's discovery run.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" validate:"gte=1"`
	// EIGFloor is the minimum expected information gain worth pursuing;
	// below it the run saturates.
	EIGFloor float64 `json:"eig_floor" yaml:"eig_floor" validate:"gte=0,lte=1"`
	// ContinuePastActionable keeps iterating after the actionable band is
	// first reached.
	ContinuePastActionable bool `json:"continue_past_actionable" yaml:"continue_past_actionable"`

	// CategoryMultipliers weight the information value of each category in
	// EIG scoring. Unknown categories fall back to 1.0.
	CategoryMultipliers map[string]float64 `json:"category_multipliers" yaml:"category_multipliers" validate:"dive,gte=0,lte=10"`

	// Cluster dampening thresholds.
	ExhaustionRate      float64 `json:"exhaustion_rate" yaml:"exhaustion_rate" validate:"gt=0,lte=1"`
	ExhaustionMinSample int     `json:"exhaustion_min_sample" yaml:"exhaustion_min_sample" validate:"gte=1"`

	// Cache sizing.
	CacheBudgetBytes int64 `json:"cache_budget_bytes" yaml:"cache_budget_bytes" validate:"gte=0"`
	CacheTTLMinutes  int   `json:"cache_ttl_minutes" yaml:"cache_ttl_minutes" validate:"gte=1"`
}

// DefaultTuningConfig returns the constants the engine ships with, used
// until a tuner artifact replaces them.
func DefaultTuningConfig() TuningConfig {
	return TuningConfig{
		AcceptDelta:            0.15,
		WeakAcceptDelta:        0.05,
		RejectDelta:            0.10,
		WeakAcceptDecay:        0.6,
		NoAcceptCeiling:        0.70,
		ActionableThreshold:    0.80,
		MinAccepts:             2,
		MinAcceptCategories:    2,
		MaxIterations:          25,
		EIGFloor:               0.05,
		ContinuePastActionable: false,
		CategoryMultipliers: map[string]float64{
			"executive_hiring":      1.5,
			"procurement_activity":  1.4,
			"capability_investment": 1.2,
			"market_expansion":      1.1,
		},
		ExhaustionRate:      0.70,
		ExhaustionMinSample: 5,
		CacheBudgetBytes:    64 << 20,
		CacheTTLMinutes:     30,
	}
}

var tuningValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects out-of-range parameters at load time.
func (c TuningConfig) Validate() error {
	if err := tuningValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.WeakAcceptDelta > c.AcceptDelta {
		return fmt.Errorf("%w: weak_accept_delta %.3f exceeds accept_delta %.3f",
			ErrInvalidConfig, c.WeakAcceptDelta, c.AcceptDelta)
	}
	return nil
}

// CategoryMultiplier returns the configured information-value weight for a
// category, defaulting to 1.0 for unknown categories.
func (c TuningConfig) CategoryMultiplier(category string) float64 {
	if m, ok := c.CategoryMultipliers[category]; ok {
		return m
	}
	return 1.0
}
