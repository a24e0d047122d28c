package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "veritok_ledger_call_latency_seconds",
		Help:    "Latency of ledger contract calls in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})
	callFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veritok_ledger_call_failures_total",
		Help: "Total number of failed ledger contract calls",
	}, []string{"method"})
)

func observeCall(method string, elapsed time.Duration, err error) {
	callLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		callFailures.WithLabelValues(method).Inc()
	}
}
