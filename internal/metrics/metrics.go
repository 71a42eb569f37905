// Package metrics defines the engine's prometheus collectors. Collectors
// are package-level and registered with the default registry so every
// component can count without plumbing a registry through constructors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prospector_iterations_total",
		Help: "Discovery iterations executed across all entities.",
	})

	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prospector_decisions_total",
		Help: "Verdict decisions applied, by internal decision kind.",
	}, []string{"decision"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prospector_discovery_runs_total",
		Help: "Completed discovery runs, by terminal state.",
	}, []string{"state"})

	LedgerAppends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prospector_ledger_appends_total",
		Help: "Belief ledger entries appended.",
	})

	IntegrityViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prospector_ledger_integrity_violations_total",
		Help: "Hash-chain verification failures. Any increase is an alert.",
	})

	JudgeTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prospector_judge_timeouts_total",
		Help: "External verdict calls that timed out and were absorbed as NO_PROGRESS.",
	})
)
