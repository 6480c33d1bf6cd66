package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the object cache's Prometheus collectors. One instance is
// shared by every session cache in the process.
type Metrics struct {
	AdaptersRegistered    *prometheus.CounterVec
	AdaptersRemoved       prometheus.Counter
	Promotions            prometheus.Counter
	PromotionDuration     prometheus.Histogram
	UpdateRemaps          prometheus.Counter
	PartialRemaps         *prometheus.CounterVec
	ConsistencyViolations *prometheus.CounterVec
}

// New registers the cache metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AdaptersRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "objectcache_adapters_registered_total",
			Help: "Adapters registered in a session cache, by initial resolve state",
		}, []string{"state"}),
		AdaptersRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "objectcache_adapters_removed_total",
			Help: "Adapters removed from a session cache",
		}),
		Promotions: factory.NewCounter(prometheus.CounterOpts{
			Name: "objectcache_promotions_total",
			Help: "Root adapters promoted from transient to persistent identity",
		}),
		PromotionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "objectcache_promotion_duration_seconds",
			Help:    "Time to promote an aggregate group, including id allocation",
			Buckets: prometheus.DefBuckets,
		}),
		UpdateRemaps: factory.NewCounter(prometheus.CounterOpts{
			Name: "objectcache_update_remaps_total",
			Help: "Adapters moved to a superseding persistent identity",
		}),
		PartialRemaps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "objectcache_partial_remaps_total",
			Help: "Remaps that found an expected identity entry missing, by operation",
		}, []string{"operation"}),
		ConsistencyViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "objectcache_consistency_violations_total",
			Help: "Disagreements between the object and identity lookups, by operation",
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementRegistered(state string) {
	m.AdaptersRegistered.WithLabelValues(state).Inc()
}

func (m *Metrics) AddRemoved(n int) {
	m.AdaptersRemoved.Add(float64(n))
}

func (m *Metrics) ObservePromotion(start time.Time) {
	m.Promotions.Inc()
	m.PromotionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementUpdateRemap() {
	m.UpdateRemaps.Inc()
}

func (m *Metrics) IncrementPartialRemap(operation string) {
	m.PartialRemaps.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementConsistencyViolation(operation string) {
	m.ConsistencyViolations.WithLabelValues(operation).Inc()
}
