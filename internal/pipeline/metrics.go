package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathan/quote-repost/internal/types"
)

// Metrics holds Prometheus collectors for pipeline runs
type Metrics struct {
	outcomes           *prometheus.CounterVec
	generationAttempts *prometheus.CounterVec
	draftScores        prometheus.Histogram
	gateDecisions      *prometheus.CounterVec
	duration           prometheus.Histogram
}

// NewMetrics creates and registers pipeline collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_repost_invocations_total",
				Help: "Pipeline invocations by final state",
			},
			[]string{"state"},
		),
		generationAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_repost_generation_attempts_total",
				Help: "Generation attempts by result",
			},
			[]string{"result"},
		),
		draftScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quote_repost_draft_total_score",
				Help:    "Final total score of each validated draft",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		gateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_repost_gate_decisions_total",
				Help: "Drafts accepted or rejected by the gate",
			},
			[]string{"decision"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quote_repost_invocation_duration_seconds",
				Help:    "Wall time of one pipeline invocation",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
	}

	reg.MustRegister(m.outcomes, m.generationAttempts, m.draftScores, m.gateDecisions, m.duration)
	return m
}

// nil-safe recorders, so a Runner without metrics needs no checks

func (m *Metrics) observeOutcome(state types.State, seconds float64) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(state)).Inc()
	m.duration.Observe(seconds)
}

// observeAttempts records n attempts; only the last one can have succeeded
func (m *Metrics) observeAttempts(n int, succeeded bool) {
	if m == nil || n <= 0 {
		return
	}
	failures := n
	if succeeded {
		failures--
		m.generationAttempts.WithLabelValues("success").Inc()
	}
	m.generationAttempts.WithLabelValues("failure").Add(float64(failures))
}

func (m *Metrics) observeGate(accepted, rejected []types.ValidatedDraft) {
	if m == nil {
		return
	}
	for _, d := range accepted {
		m.draftScores.Observe(d.TotalScore)
	}
	for _, d := range rejected {
		m.draftScores.Observe(d.TotalScore)
	}
	m.gateDecisions.WithLabelValues("accepted").Add(float64(len(accepted)))
	m.gateDecisions.WithLabelValues("rejected").Add(float64(len(rejected)))
}
