// Package metrics holds the HTTP-level Prometheus collectors. Domain-specific
// collectors live next to their packages (verify, ledger, redis).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the transport-layer Prometheus metrics.
type Metrics struct {
	EndpointLatency   *prometheus.HistogramVec
	WebhookDeliveries *prometheus.CounterVec
	AuthFailures      prometheus.Counter
}

// New creates and registers the transport metrics.
func New() *Metrics {
	return &Metrics{
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veritok_endpoint_latency_seconds",
			Help:    "Latency of HTTP endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "method"}),
		WebhookDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritok_webhook_deliveries_total",
			Help: "Webhook deliveries received, labeled by response status class",
		}, []string{"status"}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritok_auth_failures_total",
			Help: "Webhook deliveries rejected for missing or invalid bearer tokens",
		}),
	}
}

// ObserveEndpointLatency records the latency for a given endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint, method string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EndpointLatency.WithLabelValues(endpoint, method).Observe(durationSeconds)
}

// CountWebhookDelivery increments the delivery counter for a status class
// such as "2xx" or "4xx".
func (m *Metrics) CountWebhookDelivery(statusClass string) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(statusClass).Inc()
}

// CountAuthFailure increments the auth failure counter.
func (m *Metrics) CountAuthFailure() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}
