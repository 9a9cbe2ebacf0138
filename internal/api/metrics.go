package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"plantscan/internal/session"
)

// Metrics counts identification outcomes.
type Metrics struct {
	identifications *prometheus.CounterVec
	duration        prometheus.Histogram
	discards        prometheus.Counter
	suggestions     prometheus.Histogram
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		identifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plantscan_identifications_total",
			Help: "Finished plant identifications by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plantscan_identification_duration_seconds",
			Help:    "Round trip time of plant.id identify calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		discards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plantscan_discards_total",
			Help: "Captures discarded by the user.",
		}),
		suggestions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plantscan_suggestions_per_identification",
			Help:    "Number of suggestions returned per successful identification.",
			Buckets: prometheus.LinearBuckets(0, 2, 6),
		}),
	}
	reg.MustRegister(m.identifications, m.duration, m.discards, m.suggestions)
	return m
}

// Observe records a session transition. It satisfies session.Observer.
func (m *Metrics) Observe(event session.Event) {
	switch event.State {
	case session.StateReady:
		m.identifications.WithLabelValues("ready").Inc()
		m.duration.Observe(event.Duration.Seconds())
		m.suggestions.Observe(float64(event.Suggestions))
	case session.StateFailed:
		m.identifications.WithLabelValues("failed").Inc()
		m.duration.Observe(event.Duration.Seconds())
	case session.StateIdle:
		if event.Discarded {
			m.discards.Inc()
		}
	}
}
