// Package metrics provides Prometheus metrics for the modelrank service.
package metrics

import (
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// DefaultLatencyBucketsMS are the latency histogram buckets, in milliseconds.
var DefaultLatencyBucketsMS = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only defaults

// Rank request outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Manager manages all Prometheus metrics for the modelrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ranking Metrics
	rankRequests          *prometheus.CounterVec
	validationErrors      *prometheus.CounterVec
	engineLatency         prometheus.Histogram
	alternativesPerRank   prometheus.Histogram
	estimationErrors      prometheus.Counter
	rateLimitedRequests   *prometheus.CounterVec
	availableModelQueries prometheus.Counter

	// Catalog Metrics
	catalogSize           prometheus.Gauge
	catalogRefreshes      *prometheus.CounterVec
	catalogRefreshLatency prometheus.Histogram
	catalogLastRefresh    prometheus.Gauge
	catalogQueryLatency   prometheus.Histogram
	hubRequests           *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry, which GetRegistry then returns. Call it once at startup, before
// any handler reads the registry.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(slices.Clone(opts), WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "modelrank",
		subsystem:        "selector",
		histogramBuckets: slices.Clone(DefaultLatencyBucketsMS),
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.constLabels)

	// Ranking Metrics
	m.rankRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "rank_requests_total",
			Help:        "Total number of ranking requests by kind and outcome",
			ConstLabels: constLabels,
		},
		[]string{"kind", "outcome"},
	)

	m.validationErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "validation_errors_total",
			Help:        "Total number of rejected ranking inputs by error kind",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	m.engineLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "engine_latency_milliseconds",
		Help:        "Histogram of TOPSIS engine latency in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: constLabels,
	})

	m.alternativesPerRank = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "alternatives_per_request",
		Help:        "Number of alternatives ranked per request",
		Buckets:     []float64{1, 2, 3, 4, 5, 10, 25, 50, 100},
		ConstLabels: constLabels,
	})

	m.estimationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "estimation_errors_total",
		Help:        "Total number of failed criterion value estimations",
		ConstLabels: constLabels,
	})

	m.rateLimitedRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "rate_limited_requests_total",
			Help:        "Total number of requests rejected by the rate limiter",
			ConstLabels: constLabels,
		},
		[]string{"endpoint"},
	)

	m.availableModelQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "available_model_queries_total",
		Help:        "Total number of available model listings served",
		ConstLabels: constLabels,
	})

	// Catalog Metrics
	m.catalogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "catalog_size",
		Help:        "Number of models in the catalog",
		ConstLabels: constLabels,
	})

	m.catalogRefreshes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "catalog_refreshes_total",
			Help:        "Total number of catalog refreshes by result",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)

	m.catalogRefreshLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "catalog_refresh_latency_milliseconds",
		Help:        "Catalog refresh latency in milliseconds",
		Buckets:     []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		ConstLabels: constLabels,
	})

	m.catalogLastRefresh = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "catalog_last_refresh_unix",
		Help:        "Unix timestamp of the last successful catalog refresh",
		ConstLabels: constLabels,
	})

	m.catalogQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "catalog_query_latency_milliseconds",
		Help:        "Catalog store query latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.hubRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "hub_requests_total",
			Help:        "Total number of model hub requests by status code",
			ConstLabels: constLabels,
		},
		[]string{"status_code"},
	)

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds (user experience)",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_type_total",
			Help:        "Total number of errors by type",
			ConstLabels: constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Total number of errors by endpoint",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "error_latency_milliseconds",
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})
}

// Ranking Metrics Functions.

// RecordRankRequest counts a ranking request; kind is "models" or "matrix".
func RecordRankRequest(kind, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankRequests.WithLabelValues(kind, outcome).Inc()
}

// RecordValidationError counts a rejected input by error kind.
func RecordValidationError(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.validationErrors.WithLabelValues(kind).Inc()
}

// RecordEngineLatency records TOPSIS engine latency in milliseconds.
func RecordEngineLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.engineLatency.Observe(latencyMs)
}

// RecordAlternatives records how many alternatives a request ranked.
func RecordAlternatives(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.alternativesPerRank.Observe(float64(count))
}

// RecordEstimationError increments the estimation error counter.
func RecordEstimationError() {
	if !globalManager.enabled {
		return
	}
	globalManager.estimationErrors.Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(endpoint string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rateLimitedRequests.WithLabelValues(endpoint).Inc()
}

// RecordAvailableModelsQuery counts an available model listing.
func RecordAvailableModelsQuery() {
	if !globalManager.enabled {
		return
	}
	globalManager.availableModelQueries.Inc()
}

// Catalog Metrics Functions.

// UpdateCatalogSize sets the number of models in the catalog.
func UpdateCatalogSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.catalogSize.Set(float64(size))
}

// RecordCatalogRefresh records a catalog refresh result ("ok" or "error") and its latency.
func RecordCatalogRefresh(result string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.catalogRefreshes.WithLabelValues(result).Inc()
	globalManager.catalogRefreshLatency.Observe(latencyMs)
	if result == OutcomeOK {
		globalManager.catalogLastRefresh.SetToCurrentTime()
	}
}

// RecordCatalogQueryLatency records catalog store query latency.
func RecordCatalogQueryLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.catalogQueryLatency.Observe(latencyMs)
}

// RecordHubRequest counts a model hub request by status code ("error" for transport failures).
func RecordHubRequest(statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.hubRequests.WithLabelValues(statusCode).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often gauge-style metrics should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// SinceMs returns the milliseconds elapsed since start as a float.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
