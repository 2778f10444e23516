package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts login flow outcomes.
type Metrics struct {
	flowsTotal     *prometheus.CounterVec
	guardRedirects prometheus.Counter
}

// NewMetrics registers the flow collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		flowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth_gateway",
			Subsystem: "auth",
			Name:      "flows_total",
			Help:      "Login, callback and logout attempts by outcome",
		}, []string{"flow", "outcome"}),
		guardRedirects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "auth_gateway",
			Subsystem: "auth",
			Name:      "guard_redirects_total",
			Help:      "Requests to guarded routes redirected to login",
		}),
	}
}

func (m *Metrics) observe(flow string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.flowsTotal.WithLabelValues(flow, outcome).Inc()
}

// GuardRedirect is meant for auth.GuardConfig.OnRedirect.
func (m *Metrics) GuardRedirect() {
	if m == nil {
		return
	}
	m.guardRedirects.Inc()
}
