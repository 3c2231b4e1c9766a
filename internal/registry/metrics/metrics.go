package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for registry client calls.
type Metrics struct {
	// Request latency by endpoint and status class
	RequestLatency *prometheus.HistogramVec

	// Token fetches by outcome
	TokenFetches *prometheus.CounterVec
}

// New creates a Metrics instance with all registry client metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gtind_registry_request_duration_seconds",
			Help:    "Duration of registry HTTP requests by endpoint and status",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint", "status"}),

		TokenFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gtind_registry_token_fetches_total",
			Help: "OAuth2 token acquisitions by outcome",
		}, []string{"outcome"}), // outcome: "ok", "failed"
	}
}

// ObserveRequest records one registry call.
func (m *Metrics) ObserveRequest(endpoint, status string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(endpoint, status).Observe(d.Seconds())
	}
}

// IncrementTokenFetch records a token acquisition attempt.
func (m *Metrics) IncrementTokenFetch(outcome string) {
	if m != nil {
		m.TokenFetches.WithLabelValues(outcome).Inc()
	}
}
