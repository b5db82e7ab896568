// Package metrics provides Prometheus metrics for the bodymetrics service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Engine metrics
	estimatesComputed *prometheus.CounterVec
	estimateLatency   prometheus.Histogram
	scoresComputed    prometheus.Counter
	scoresIncomplete  prometheus.Counter
	scoringLatency    prometheus.Histogram
	chartPoints       prometheus.Counter

	// Estimation cache metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheErrors        *prometheus.CounterVec
	cacheEvictions     prometheus.Counter
	cacheInvalidations prometheus.Counter
	cacheEntries       prometheus.Gauge

	// Store metrics
	samplesRecorded prometheus.Counter
	samplesDeleted  prometheus.Counter
	trackedUsers    prometheus.Gauge

	// Prewarm queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	prewarmJobsProcessed    prometheus.Counter
	prewarmJobsFailed       prometheus.Counter
	prewarmEstimatesWarmed  prometheus.Counter
	workerProcessingLatency prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var (
	globalManager  *Manager                   //nolint:gochecknoglobals // intentional global for singleton metrics manager
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // custom registry to avoid default Go metrics
	globalMu       sync.RWMutex               //nolint:gochecknoglobals // guards globalManager
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bodymetrics",
		subsystem:        "engine",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric family
	m.estimatesComputed = m.counterVec("estimates_computed_total",
		"Estimates computed on a cache miss, by metric kind and mode", "kind", "mode")
	m.estimateLatency = m.histogram("estimate_latency_milliseconds",
		"Latency of computing one estimate on a cache miss")
	m.scoresComputed = m.counter("scores_computed_total", "Body scores computed")
	m.scoresIncomplete = m.counter("scores_incomplete_total",
		"Body score requests rejected because the input was incomplete")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Latency of computing one body score")
	m.chartPoints = m.counter("chart_points_total", "Chart points resolved")

	m.cacheHits = m.counter("cache_hits_total", "Estimation cache hits")
	m.cacheMisses = m.counter("cache_misses_total", "Estimation cache misses")
	m.cacheErrors = m.counterVec("cache_errors_total", "Estimation cache backend failures", "op")
	m.cacheEvictions = m.counter("cache_evictions_total", "Entries evicted from the estimation cache")
	m.cacheInvalidations = m.counter("cache_invalidations_total", "Series fingerprints invalidated")
	m.cacheEntries = m.gauge("cache_entries", "Entries currently held by the in-memory cache")

	m.samplesRecorded = m.counter("samples_recorded_total", "Samples recorded or replaced")
	m.samplesDeleted = m.counter("samples_deleted_total", "Samples deleted")
	m.trackedUsers = m.gauge("tracked_users", "Users with at least one sample or a profile")

	m.queueSize = m.gauge("queue_size", "Prewarm jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the prewarm queue")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Prewarm jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Prewarm jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total",
		"Prewarm jobs rejected because the queue was full or closed")

	m.workerCount = m.gauge("worker_count", "Prewarm workers running")
	m.prewarmJobsProcessed = m.counter("prewarm_jobs_processed_total", "Prewarm jobs completed")
	m.prewarmJobsFailed = m.counter("prewarm_jobs_failed_total", "Prewarm jobs that failed")
	m.prewarmEstimatesWarmed = m.counter("prewarm_estimates_warmed_total", "Estimates stored by prewarm jobs")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Latency of processing one prewarm job")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time")
}

func current() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalManager == nil || !globalManager.enabled {
		return nil
	}
	return globalManager
}

// SetEnabled toggles recording through the package functions.
func SetEnabled(enabled bool) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager.enabled = enabled
}

// RecordEstimateComputed records one estimate computed on a cache miss.
func RecordEstimateComputed(kind, mode string, latencyMs float64) {
	if m := current(); m != nil {
		m.estimatesComputed.WithLabelValues(kind, mode).Inc()
		m.estimateLatency.Observe(latencyMs)
	}
}

// RecordScoreComputed records one body score computation.
func RecordScoreComputed(latencyMs float64) {
	if m := current(); m != nil {
		m.scoresComputed.Inc()
		m.scoringLatency.Observe(latencyMs)
	}
}

// RecordScoreIncomplete records a score rejected for missing input.
func RecordScoreIncomplete() {
	if m := current(); m != nil {
		m.scoresIncomplete.Inc()
	}
}

// RecordChartPoints records resolved chart points.
func RecordChartPoints(n int) {
	if m := current(); m != nil {
		m.chartPoints.Add(float64(n))
	}
}

// RecordCacheHit records a cache hit.
func RecordCacheHit() {
	if m := current(); m != nil {
		m.cacheHits.Inc()
	}
}

// RecordCacheMiss records a cache miss.
func RecordCacheMiss() {
	if m := current(); m != nil {
		m.cacheMisses.Inc()
	}
}

// RecordCacheError records a failed cache operation.
func RecordCacheError(op string) {
	if m := current(); m != nil {
		m.cacheErrors.WithLabelValues(op).Inc()
	}
}

// RecordCacheEvictions records entries evicted from the cache.
func RecordCacheEvictions(n int) {
	if m := current(); m != nil {
		m.cacheEvictions.Add(float64(n))
	}
}

// RecordCacheInvalidation records one invalidated fingerprint.
func RecordCacheInvalidation() {
	if m := current(); m != nil {
		m.cacheInvalidations.Inc()
	}
}

// UpdateCacheEntries sets the in-memory cache size.
func UpdateCacheEntries(n int64) {
	if m := current(); m != nil {
		m.cacheEntries.Set(float64(n))
	}
}

// RecordSampleRecorded records a stored sample.
func RecordSampleRecorded() {
	if m := current(); m != nil {
		m.samplesRecorded.Inc()
	}
}

// RecordSampleDeleted records a deleted sample.
func RecordSampleDeleted() {
	if m := current(); m != nil {
		m.samplesDeleted.Inc()
	}
}

// UpdateTrackedUsers sets the number of users known to the store.
func UpdateTrackedUsers(n int) {
	if m := current(); m != nil {
		m.trackedUsers.Set(float64(n))
	}
}

// UpdateQueueSize sets the prewarm queue depth.
func UpdateQueueSize(size int) {
	if m := current(); m != nil {
		m.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the prewarm queue capacity.
func UpdateQueueCapacity(capacity int) {
	if m := current(); m != nil {
		m.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue records an enqueued job.
func RecordQueueEnqueue() {
	if m := current(); m != nil {
		m.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue records a dequeued job.
func RecordQueueDequeue() {
	if m := current(); m != nil {
		m.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError records a rejected job.
func RecordQueueEnqueueError() {
	if m := current(); m != nil {
		m.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	if m := current(); m != nil {
		m.workerCount.Set(float64(count))
	}
}

// RecordPrewarmJob records a finished prewarm job.
func RecordPrewarmJob(warmed int, latencyMs float64, err error) {
	m := current()
	if m == nil {
		return
	}
	m.workerProcessingLatency.Observe(latencyMs)
	m.prewarmEstimatesWarmed.Add(float64(warmed))
	if err != nil {
		m.prewarmJobsFailed.Inc()
		return
	}
	m.prewarmJobsProcessed.Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := current(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := current(); m != nil {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	if m := current(); m != nil {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := current(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if m := current(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := current(); m != nil {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
