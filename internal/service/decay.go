package service

import (
	"math"
	"strings"
	"time"

	"github.com/Harshitk-cp/prospector/internal/domain"
)

const (
	// TemporalDecayRate is per-day: ~0.90 at 7 days, ~0.64 at 30 days,
	// below 0.01 at a year.
	TemporalDecayRate = 0.015

	MinEvidenceWeight = 0.01
	MaxEvidenceWeight = 1.0

	// Strength tiers for content-sensitive scoring.
	StrongProcurementStrength      = 0.85
	ExploratoryProcurementStrength = 0.40
	SeniorCapabilityStrength       = 0.70
	JuniorCapabilityStrength       = 0.45
	NeutralStrength                = 0.30
)

// Language tiers consulted by SignalStrength. Matching is case-insensitive
// substring search; the first tier that matches wins.
var (
	strongProcurementTerms = []string{
		"rfp issued", "rfp released", "vendor selected", "contract awarded",
		"purchase order", "tender issued", "signed agreement",
	}
	exploratoryProcurementTerms = []string{
		"considering", "researching", "evaluating", "exploring",
		"looking into", "early discussions",
	}
	seniorCapabilityTerms = []string{
		"chief", "director", "vp ", "vice president", "head of",
	}
	juniorCapabilityTerms = []string{
		"manager", "lead", "specialist", "analyst",
	}
)

// Decay converts evidence age in days into a weight in [0,1]. Negative
// ages (clock skew) count as fresh.
func Decay(ageDays float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	w := math.Exp(-TemporalDecayRate * ageDays)
	if w < MinEvidenceWeight {
		return MinEvidenceWeight
	}
	return w
}

// SignalStrength scores how strong the language of a piece of evidence is
// for its signal class. Pure and deterministic.
func SignalStrength(text string, class domain.SignalClass) float64 {
	lower := strings.ToLower(text)

	switch class {
	case domain.SignalClassProcurement:
		if containsAny(lower, strongProcurementTerms) {
			return StrongProcurementStrength
		}
		if containsAny(lower, exploratoryProcurementTerms) {
			return ExploratoryProcurementStrength
		}
	case domain.SignalClassCapability:
		if containsAny(lower, seniorCapabilityTerms) {
			return SeniorCapabilityStrength
		}
		if containsAny(lower, juniorCapabilityTerms) {
			return JuniorCapabilityStrength
		}
	}

	return NeutralStrength
}

// EvidenceWeight combines temporal decay, textual strength and collector
// credibility into a single weight in [MinEvidenceWeight, 1]. Missing or
// unparseable timestamps decay to the minimum weight rather than erroring.
func EvidenceWeight(ev domain.Evidence, now time.Time) float64 {
	if ev.CollectedAt.IsZero() {
		return MinEvidenceWeight
	}

	ageDays := now.Sub(ev.CollectedAt).Hours() / 24

	cred := ev.CredibilityScore
	if cred <= 0 {
		cred = MinEvidenceWeight
	} else if cred > 1 {
		cred = 1
	}

	w := Decay(ageDays) * SignalStrength(ev.RawText, ev.SignalClass) * cred
	if w < MinEvidenceWeight {
		return MinEvidenceWeight
	}
	if w > MaxEvidenceWeight {
		return MaxEvidenceWeight
	}
	return w
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
