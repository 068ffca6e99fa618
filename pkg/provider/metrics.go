package provider

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks credential lifecycle activity per provider.
type Metrics struct {
	refreshes     *prometheus.CounterVec
	joins         *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewMetrics creates and registers the token lifecycle collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_token_refresh_total",
				Help: "Credential refresh attempts per provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		joins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_token_refresh_joins_total",
				Help: "Callers that joined an already in-flight refresh",
			},
			[]string{"provider"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_token_invalidations_total",
				Help: "Forced credential invalidations per provider",
			},
			[]string{"provider"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.refreshes, m.joins, m.invalidations)
	}
	return m
}

func (m *Metrics) observeRefresh(provider string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.refreshes.WithLabelValues(provider, outcome).Inc()
}
