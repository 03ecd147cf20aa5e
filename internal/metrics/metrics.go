// Package metrics exposes rule execution as Prometheus metrics.
//
// RuleMetrics is an audit.Sink: attach it to an engine.Context with
// engine.WithAuditSink (alone or inside an audit.MultiSink) and every
// evaluated unit is counted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/match"
)

const namespace = "ruling"

// RuleMetrics tracks unit evaluations.
//
// Metrics:
//   - ruling_unit_evaluations_total: evaluations by kind, unit and outcome
//   - ruling_unit_duration_seconds: evaluation duration by kind
//   - ruling_resolution_failures_total: parameter resolution failures by code
type RuleMetrics struct {
	evaluationsTotal *prometheus.CounterVec

	duration *prometheus.HistogramVec

	// Counted once, at the condition or action that failed to resolve.
	resolutionFailures *prometheus.CounterVec
}

var _ audit.Sink = (*RuleMetrics)(nil)

// NewRuleMetrics creates and registers rule metrics. A nil registerer
// uses a fresh registry that nothing scrapes, which is useful in tests.
func NewRuleMetrics(registerer prometheus.Registerer) *RuleMetrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	m := &RuleMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unit_evaluations_total",
				Help:      "Total number of evaluated conditions, actions, rules and rule sets",
			},
			[]string{"kind", "unit", "outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "unit_duration_seconds",
				Help:      "Duration of unit evaluation in seconds",
				// Native units are sub-millisecond; scripts and nested sets reach seconds.
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			},
			[]string{"kind"},
		),

		resolutionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_failures_total",
				Help:      "Total number of parameter resolution failures",
			},
			[]string{"code"},
		),
	}

	registerer.MustRegister(
		m.evaluationsTotal,
		m.duration,
		m.resolutionFailures,
	)

	return m
}

// Emit implements audit.Sink.
func (m *RuleMetrics) Emit(rec audit.Record) {
	kind := string(rec.Kind)
	m.evaluationsTotal.WithLabelValues(kind, rec.Unit, rec.Outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(rec.Duration.Seconds())

	// Rules and rule sets repeat the code of the unit that failed.
	if rec.Kind != audit.KindCondition && rec.Kind != audit.KindAction {
		return
	}
	if isResolutionCode(rec.Code) {
		m.resolutionFailures.WithLabelValues(rec.Code).Inc()
	}
}

func isResolutionCode(code string) bool {
	switch match.ResolutionErrorCode(code) {
	case match.ErrCodeUnresolved, match.ErrCodeAmbiguous, match.ErrCodeConversion:
		return true
	}
	return false
}
