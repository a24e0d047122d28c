package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for verification runs.
type Metrics struct {
	VerificationsStarted  prometheus.Counter
	VerificationsFinished *prometheus.CounterVec
	VerificationDuration  prometheus.Histogram
	AttributeChecks       *prometheus.CounterVec
	TrustLevels           *prometheus.CounterVec
	OwnerMatches          *prometheus.CounterVec
}

// New registers and returns verification metrics collectors.
func New() *Metrics {
	return &Metrics{
		VerificationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veritok_verifications_started_total",
			Help: "Total number of verification runs started",
		}),
		VerificationsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritok_verifications_finished_total",
			Help: "Total number of verification runs finished, labeled by outcome",
		}, []string{"outcome"}),
		VerificationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veritok_verification_duration_seconds",
			Help:    "Duration of full verification runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		AttributeChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritok_attribute_checks_total",
			Help: "Attribute check outcomes, labeled by check kind and result",
		}, []string{"check", "result"}),
		TrustLevels: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritok_trust_levels_total",
			Help: "Trust levels reported by the ledger, labeled by level",
		}, []string{"level"}),
		OwnerMatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veritok_owner_matches_total",
			Help: "Owner address comparison outcomes",
		}, []string{"result"}),
	}
}

// ObserveCheck records one boolean check outcome.
func (m *Metrics) ObserveCheck(check string, matched bool) {
	if m == nil {
		return
	}
	m.AttributeChecks.WithLabelValues(check, matchResult(matched)).Inc()
}

// ObserveOwnerMatch records the owner comparison outcome.
func (m *Metrics) ObserveOwnerMatch(matched bool) {
	if m == nil {
		return
	}
	m.OwnerMatches.WithLabelValues(matchResult(matched)).Inc()
}

func matchResult(matched bool) string {
	if matched {
		return "match"
	}
	return "mismatch"
}
