// Package metrics provides observability for eligibility checks.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "hyperswitch"
	subsystem = "eligibility"
)

// Metrics instruments the eligibility service. All methods are safe on a nil
// receiver, so wiring metrics stays optional.
type Metrics struct {
	checks    *prometheus.CounterVec
	latency   prometheus.Histogram
	batchSize prometheus.Histogram
}

// New registers the eligibility metrics with the given registerer; nil uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checks_total",
			Help:      "Eligibility checks by outcome",
		}, []string{"outcome"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "check_duration_seconds",
			Help:      "Duration of one eligibility check including configuration lookup",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batch_size",
			Help:      "Candidates per CheckAll call",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// ObserveCheck records one check outcome and its latency.
func (m *Metrics) ObserveCheck(outcome string, d time.Duration) {
	if m != nil {
		m.checks.WithLabelValues(outcome).Inc()
		m.latency.Observe(d.Seconds())
	}
}

// ObserveBatch records the size of one batch evaluation.
func (m *Metrics) ObserveBatch(n int) {
	if m != nil {
		m.batchSize.Observe(float64(n))
	}
}
