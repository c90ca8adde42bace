// Package metrics exposes Prometheus instrumentation for the graph cache.
// All methods are safe on a nil receiver, so the cache can run unmetered.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "hyperswitch"
	subsystem = "graph_cache"
)

// Metrics holds the graph cache collectors.
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	compiles      prometheus.Counter
	failures      prometheus.Counter
	evictions     prometheus.Counter
	invalidations prometheus.Counter
	entries       prometheus.Gauge
}

// New registers the cache collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "hits_total",
			Help: "Graph lookups served from the cache.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "misses_total",
			Help: "Graph lookups that required compilation, including stale fingerprints.",
		}),
		compiles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "compiles_total",
			Help: "Compilations executed on behalf of the cache.",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "compile_failures_total",
			Help: "Compilations that ended in an error.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "evictions_total",
			Help: "Entries evicted to stay within the size bound.",
		}),
		invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "invalidations_total",
			Help: "Entries dropped by explicit invalidation.",
		}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "entries",
			Help: "Entries currently cached.",
		}),
	}
}

func (m *Metrics) Hit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

func (m *Metrics) Miss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

func (m *Metrics) Compile() {
	if m == nil {
		return
	}
	m.compiles.Inc()
}

func (m *Metrics) Failure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) Eviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *Metrics) Invalidation(n int) {
	if m == nil {
		return
	}
	m.invalidations.Add(float64(n))
}

func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}
