package profillog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the dispatcher and reader
type Metrics struct {
	entriesTotal     *prometheus.CounterVec
	failuresTotal    *prometheus.CounterVec
	filteredTotal    prometheus.Counter
	queriesTotal     *prometheus.CounterVec
	entriesRetrieved prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "profillogger"
	}

	m := &Metrics{
		entriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "entries_total",
				Help:      "Total number of entries persisted, per handler",
			},
			[]string{"handler"},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "failures_total",
				Help:      "Total number of failed persist calls, per handler",
			},
			[]string{"handler"},
		),
		filteredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "filtered_total",
				Help:      "Total number of log calls dropped by the level threshold",
			},
		),
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reader",
				Name:      "queries_total",
				Help:      "Total number of reader queries, per operation",
			},
			[]string{"operation"},
		),
		entriesRetrieved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reader",
				Name:      "entries_retrieved_total",
				Help:      "Total number of entries loaded from handlers by reader queries",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.entriesTotal,
			m.failuresTotal,
			m.filteredTotal,
			m.queriesTotal,
			m.entriesRetrieved,
		)
	}

	return m
}

// The recording helpers accept a nil receiver so callers need no checks.

func (m *Metrics) persisted(handler string) {
	if m == nil {
		return
	}
	m.entriesTotal.WithLabelValues(handler).Inc()
}

func (m *Metrics) failed(handler string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(handler).Inc()
}

func (m *Metrics) filtered() {
	if m == nil {
		return
	}
	m.filteredTotal.Inc()
}

func (m *Metrics) query(operation string, retrieved int) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(operation).Inc()
	m.entriesRetrieved.Add(float64(retrieved))
}
