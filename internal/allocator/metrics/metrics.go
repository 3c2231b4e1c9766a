package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the allocator module.
type Metrics struct {
	// Allocation attempts by contract and outcome
	Allocations *prometheus.CounterVec

	// Remaining capacity per contract, refreshed on sync and allocation
	Remaining *prometheus.GaugeVec

	// Collisions caught by the duplicate check during allocation
	Collisions prometheus.Counter
}

// New creates a Metrics instance with all allocator metrics registered.
func New() *Metrics {
	return &Metrics{
		Allocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gtind_allocator_allocations_total",
			Help: "Total GTIN allocation attempts by contract and outcome",
		}, []string{"contract", "outcome"}), // outcome: "issued", "exhausted", "error"

		Remaining: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gtind_allocator_range_remaining",
			Help: "Unissued values remaining in each contract range",
		}, []string{"contract"}),

		Collisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gtind_allocator_collisions_total",
			Help: "Allocations that hit an already-assigned GTIN and retried",
		}),
	}
}

// IncrementAllocation records an allocation attempt.
func (m *Metrics) IncrementAllocation(contract, outcome string) {
	if m != nil {
		m.Allocations.WithLabelValues(contract, outcome).Inc()
	}
}

// SetRemaining records the unissued capacity of a contract range.
func (m *Metrics) SetRemaining(contract string, remaining float64) {
	if m != nil {
		m.Remaining.WithLabelValues(contract).Set(remaining)
	}
}

// IncrementCollision records a duplicate-check hit during allocation.
func (m *Metrics) IncrementCollision() {
	if m != nil {
		m.Collisions.Inc()
	}
}
