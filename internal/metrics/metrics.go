// SPDX-License-Identifier: Apache-2.0

// Package metrics records validation outcomes for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gemaraproj/extractval/internal/extraction"
)

// Recorder owns a private registry so that tests and embedders do not collide
// with the global default registry.
type Recorder struct {
	registry   *prometheus.Registry
	outcomes   *prometheus.CounterVec
	violations *prometheus.CounterVec
	duration   prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extractval_outcomes_total",
			Help: "Processed extraction candidates by outcome.",
		}, []string{"outcome"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extractval_violations_total",
			Help: "Reported violations by rule.",
		}, []string{"rule"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "extractval_process_duration_seconds",
			Help:    "Time spent decoding and validating one candidate.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
	r.registry.MustRegister(r.outcomes, r.violations, r.duration)
	return r
}

// Observe records one outcome and how long it took to produce.
func (r *Recorder) Observe(outcome extraction.Outcome, elapsed time.Duration) {
	label := "invalid"
	if outcome.Valid {
		label = "valid"
	}
	r.outcomes.WithLabelValues(label).Inc()
	for _, v := range outcome.Violations {
		r.violations.WithLabelValues(string(v.Rule)).Inc()
	}
	r.duration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Outcomes exposes the outcome counter for tests.
func (r *Recorder) Outcomes() *prometheus.CounterVec {
	return r.outcomes
}

// Violations exposes the violation counter for tests.
func (r *Recorder) Violations() *prometheus.CounterVec {
	return r.violations
}
