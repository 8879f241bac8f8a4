package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics namespace for all client metrics.
const metricsNamespace = "stockflow_client"

// Request outcomes.
const (
	outcomeSuccess      = "success"
	outcomeError        = "error"
	outcomeAuthExpired  = "auth_expired"
	outcomeAuthRequired = "auth_required"
)

// Metrics holds the collectors updated by Client.
type Metrics struct {
	// RequestsTotal counts resolved calls by HTTP method and outcome.
	RequestsTotal *prometheus.CounterVec

	// RefreshTotal counts refresh attempts by outcome.
	RefreshTotal *prometheus.CounterVec

	// SessionTerminations counts sessions torn down after a failed refresh.
	SessionTerminations prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total API calls resolved by the client",
			},
			[]string{"method", "outcome"},
		),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "refresh_total",
				Help:      "Total session refresh attempts",
			},
			[]string{"outcome"},
		),
		SessionTerminations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "session_terminations_total",
				Help:      "Sessions torn down after a failed refresh",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RefreshTotal, m.SessionTerminations)
	}

	return m
}

func (m *Metrics) request(method, outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) refresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) terminated() {
	if m == nil {
		return
	}
	m.SessionTerminations.Inc()
}
