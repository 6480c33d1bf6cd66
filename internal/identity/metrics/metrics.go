package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for persistent id allocation.
type Metrics struct {
	IDsIssued       *prometheus.CounterVec
	BatchesReserved *prometheus.CounterVec
	ReserveFailures *prometheus.CounterVec
	ReserveDuration prometheus.Histogram
}

// New registers the identity metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		IDsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_identity_ids_issued_total",
			Help: "Persistent identifiers handed out, by oid type",
		}, []string{"type"}),
		BatchesReserved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_identity_batches_reserved_total",
			Help: "Identifier batches reserved from the backing allocator, by oid type",
		}, []string{"type"}),
		ReserveFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "causeway_identity_reserve_failures_total",
			Help: "Failed batch reservations, by oid type",
		}, []string{"type"}),
		ReserveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "causeway_identity_reserve_duration_seconds",
			Help:    "Latency of batch reservations against the allocator",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementIssued(typeName string) {
	m.IDsIssued.WithLabelValues(typeName).Inc()
}

// ObserveReserve records one reservation attempt started at start.
func (m *Metrics) ObserveReserve(typeName string, start time.Time, err error) {
	m.ReserveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.ReserveFailures.WithLabelValues(typeName).Inc()
		return
	}
	m.BatchesReserved.WithLabelValues(typeName).Inc()
}
