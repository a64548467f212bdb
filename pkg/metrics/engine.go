package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records outcomes of transaction engine operations and
// individual stock reservations.
type EngineMetrics struct {
	opDuration        *prometheus.HistogramVec
	reserveAttempts   *prometheus.CounterVec
	insufficientStock *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transaction_op_duration_seconds",
		Help:    "Duration of transaction engine operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reserveAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reserve_attempts",
		Help: "Stock reservation attempts against the inventory ledger.",
	}, []string{"outcome"})
	insufficientStock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_insufficient_stock",
		Help: "Reservations rejected because the lot had too little stock.",
	}, []string{"sku"})
	reg.MustRegister(opDuration, reserveAttempts, insufficientStock)
	return &EngineMetrics{
		opDuration:        opDuration,
		reserveAttempts:   reserveAttempts,
		insufficientStock: insufficientStock,
	}
}

// ObserveOp records the duration of a named engine operation.
func (m *EngineMetrics) ObserveOp(op string, duration time.Duration) {
	if m == nil || m.opDuration == nil {
		return
	}
	m.opDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncReserve counts a reservation attempt by outcome ("ok" or "rejected").
func (m *EngineMetrics) IncReserve(outcome string) {
	if m == nil || m.reserveAttempts == nil {
		return
	}
	m.reserveAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncInsufficientStock counts a rejection for the given SKU.
func (m *EngineMetrics) IncInsufficientStock(sku string) {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.WithLabelValues(normalizeLabel(sku)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
