package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus collectors exposed on /metrics.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	loginFailures   prometheus.Counter
}

// NewMetrics registers the service collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "account",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		loginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "login_failures_total",
			Help:      "Total number of failed login attempts",
		}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	m.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// IncLoginFailure counts one rejected login attempt.
func (m *Metrics) IncLoginFailure() {
	m.loginFailures.Inc()
}
