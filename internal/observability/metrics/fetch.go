package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FetchMetrics tracks track downloads and the fetch cache.
type FetchMetrics struct {
	Cache    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Errors   *prometheus.CounterVec
	Bytes    prometheus.Counter
}

// NewFetchMetrics creates and registers fetch metrics on registry.
func NewFetchMetrics(registry prometheus.Registerer) (*FetchMetrics, error) {
	m := &FetchMetrics{
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_cache_total",
			Help:      "Fetch cache lookups by result",
		}, []string{"result"}),

		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of uncached fetches by scheme",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"scheme"}),

		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed fetches by scheme",
		}, []string{"scheme"}),

		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_bytes_total",
			Help:      "Bytes downloaded by uncached fetches",
		}),
	}

	for _, c := range []prometheus.Collector{m.Cache, m.Duration, m.Errors, m.Bytes} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register fetch metrics: %w", err)
		}
	}
	return m, nil
}

// RecordCacheHit counts a cache hit.
func (m *FetchMetrics) RecordCacheHit() {
	m.Cache.WithLabelValues(ResultHit).Inc()
}

// RecordCacheMiss counts a cache miss.
func (m *FetchMetrics) RecordCacheMiss() {
	m.Cache.WithLabelValues(ResultMiss).Inc()
}

// RecordFetch observes one uncached fetch.
func (m *FetchMetrics) RecordFetch(scheme string, d time.Duration, size int, err error) {
	if err != nil {
		m.Errors.WithLabelValues(scheme).Inc()
		return
	}
	m.Duration.WithLabelValues(scheme).Observe(d.Seconds())
	m.Bytes.Add(float64(size))
}
