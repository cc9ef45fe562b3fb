package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "authdash"

// metrics holds the Prometheus metrics for the auth API
type metrics struct {
	gateOutcomes *prometheus.CounterVec
	ssoLogins    prometheus.Counter
	usersCreated prometheus.Counter
	rateLimited  prometheus.Counter
}

// newMetrics registers the auth metrics and the runtime collectors on reg
func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &metrics{
		gateOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "identity_gate_requests_total",
			Help:      "Requests seen by the identity gate, by outcome",
		}, []string{"outcome"}),

		ssoLogins: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sso_logins_total",
			Help:      "Successful SSO logins",
		}),

		usersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "users_created_total",
			Help:      "User records created on first SSO login",
		}),

		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_requests_total",
			Help:      "Auth requests rejected by the rate limiter",
		}),
	}
}

func (m *metrics) observeGate(outcome string) {
	m.gateOutcomes.WithLabelValues(outcome).Inc()
}

func (m *metrics) observeLogin(created bool) {
	m.ssoLogins.Inc()
	if created {
		m.usersCreated.Inc()
	}
}
