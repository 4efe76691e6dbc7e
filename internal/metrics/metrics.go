// Package metrics provides Prometheus metrics for the analysis service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Pipeline metrics - one batch run per refresh
	pipelineRuns        prometheus.Counter
	pipelineDuration    prometheus.Histogram
	institutionsRanked  prometheus.Gauge
	sweetSpotCount      prometheus.Gauge
	recordsDropped      *prometheus.CounterVec
	invalidMetricValues *prometheus.CounterVec

	// Upstream fetch metrics
	fetchPages   prometheus.Counter
	fetchRecords prometheus.Counter
	fetchErrors  prometheus.Counter

	// HTTP serving metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	rateLimited         prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry()

func init() {
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "uvom",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.pipelineRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total number of completed pipeline runs",
	})

	m.pipelineDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Histogram of full pipeline run duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.institutionsRanked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "institutions_ranked",
		Help:      "Number of institutions in the current ranking",
	})

	m.sweetSpotCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "sweet_spot_institutions",
		Help:      "Number of institutions flagged sweet-spot in the current ranking",
	})

	m.recordsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "records_dropped_total",
		Help:      "Records excluded from ranking, by reason",
	}, []string{"reason"})

	m.invalidMetricValues = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pipeline",
		Name:      "invalid_metric_values_total",
		Help:      "Raw indicator values dropped for failing their sanity domain, by indicator",
	}, []string{"indicator"})

	m.fetchPages = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scorecard",
		Name:      "pages_fetched_total",
		Help:      "Total upstream pages fetched",
	})

	m.fetchRecords = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scorecard",
		Name:      "records_fetched_total",
		Help:      "Total raw institution records fetched",
	})

	m.fetchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scorecard",
		Name:      "fetch_errors_total",
		Help:      "Total upstream fetch failures after retries",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests served",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "cache_hits_total",
		Help:      "Responses served from the response cache",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "cache_misses_total",
		Help:      "Cacheable requests that missed the response cache",
	})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-IP rate limiter",
	})
}

// RecordPipelineRun records one completed run and its duration.
func RecordPipelineRun(durationSeconds float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.pipelineRuns.Inc()
		globalManager.pipelineDuration.Observe(durationSeconds)
	}
}

// UpdateInstitutionsRanked sets the size of the current ranking.
func UpdateInstitutionsRanked(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.institutionsRanked.Set(float64(count))
	}
}

// UpdateSweetSpotCount sets the size of the current sweet-spot set.
func UpdateSweetSpotCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.sweetSpotCount.Set(float64(count))
	}
}

// RecordRecordDropped counts one record excluded from ranking.
func RecordRecordDropped(reason string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.recordsDropped.WithLabelValues(reason).Inc()
	}
}

// RecordInvalidMetricValue counts one sanity-domain drop.
func RecordInvalidMetricValue(indicator string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.invalidMetricValues.WithLabelValues(indicator).Inc()
	}
}

// RecordPageFetched counts one upstream page.
func RecordPageFetched() {
	if globalManager != nil && globalManager.enabled {
		globalManager.fetchPages.Inc()
	}
}

// RecordRecordsFetched counts raw records received from upstream.
func RecordRecordsFetched(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.fetchRecords.Add(float64(count))
	}
}

// RecordFetchError counts one upstream failure after retries.
func RecordFetchError() {
	if globalManager != nil && globalManager.enabled {
		globalManager.fetchErrors.Inc()
	}
}

// RecordHTTPRequest records one served request with its duration.
func RecordHTTPRequest(endpoint, method, status string, durationSeconds float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationSeconds)
	}
}

// RecordCacheHit counts a response served from cache.
func RecordCacheHit() {
	if globalManager != nil && globalManager.enabled {
		globalManager.cacheHits.Inc()
	}
}

// RecordCacheMiss counts a cacheable request that missed.
func RecordCacheMiss() {
	if globalManager != nil && globalManager.enabled {
		globalManager.cacheMisses.Inc()
	}
}

// RecordRateLimited counts a rejected request.
func RecordRateLimited() {
	if globalManager != nil && globalManager.enabled {
		globalManager.rateLimited.Inc()
	}
}

// GetRegistry returns the custom registry for exposition.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
