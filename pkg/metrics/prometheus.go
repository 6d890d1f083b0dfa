package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusSink exports the core measurements as prometheus collectors.
type PrometheusSink struct {
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheEvictions   prometheus.Counter
	cacheEntries     prometheus.Gauge
	predictorLatency *prometheus.HistogramVec
	predictorErrors  *prometheus.CounterVec
	enumerationTime  prometheus.Histogram
	enumeratedRoutes prometheus.Histogram
}

// NewPrometheusSink registers the collectors on reg. use prometheus.NewRegistry() in tests.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridgeroute_prediction_cache_hits_total",
			Help: "Total bridge prediction cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridgeroute_prediction_cache_misses_total",
			Help: "Total bridge prediction cache misses",
		}),
		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridgeroute_prediction_cache_evictions_total",
			Help: "Total bridge prediction cache evictions (capacity, expiry or clear)",
		}),
		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridgeroute_prediction_cache_entries",
			Help: "Current number of cached bridge predictions",
		}),
		predictorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridgeroute_predictor_call_duration_seconds",
			Help:    "Bridge open predictor call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
		}, []string{"mode"}),
		predictorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgeroute_predictor_errors_total",
			Help: "Bridge open predictor errors by kind",
		}, []string{"kind"}),
		enumerationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridgeroute_path_enumeration_duration_seconds",
			Help:    "Candidate path enumeration duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		enumeratedRoutes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridgeroute_path_enumeration_routes",
			Help:    "Number of candidate routes returned per enumeration",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
	}
}

func (s *PrometheusSink) CacheHit() {
	s.cacheHits.Inc()
}

func (s *PrometheusSink) CacheMiss() {
	s.cacheMisses.Inc()
}

func (s *PrometheusSink) CacheEviction() {
	s.cacheEvictions.Inc()
}

func (s *PrometheusSink) SetCacheEntries(n int) {
	s.cacheEntries.Set(float64(n))
}

func (s *PrometheusSink) ObservePredictorLatency(mode string, d time.Duration) {
	s.predictorLatency.WithLabelValues(mode).Observe(d.Seconds())
}

func (s *PrometheusSink) PredictorError(kind string) {
	s.predictorErrors.WithLabelValues(kind).Inc()
}

func (s *PrometheusSink) ObserveEnumeration(paths int, d time.Duration) {
	s.enumerationTime.Observe(d.Seconds())
	s.enumeratedRoutes.Observe(float64(paths))
}
