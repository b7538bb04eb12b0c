// Package metrics provides Prometheus metrics for the hoopiq analysis service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	stageBuckets   []float64
	registry       prometheus.Registerer

	// Analysis jobs
	jobsSubmitted  prometheus.Counter
	jobsDuplicate  prometheus.Counter
	jobsCompleted  prometheus.Counter
	jobsFailed     prometheus.Counter
	jobDuration    prometheus.Histogram
	jobProgress    *prometheus.GaugeVec
	framesAnalyzed prometheus.Counter

	// Pipeline internals
	stageDuration  *prometheus.HistogramVec
	moduleFailures *prometheus.CounterVec
	shotsDetected  *prometheus.CounterVec
	clipsExtracted prometheus.Counter
	clipsFailed    prometheus.Counter
	progressDrops  prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount  prometheus.Gauge
	workerActive prometheus.Gauge
	workerErrors prometheus.Counter

	// Reports
	reportsStored prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "hoopiq",
		subsystem:      "analysis",
		latencyBuckets: prometheus.DefBuckets,
		stageBuckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.jobsSubmitted = m.counter("jobs_submitted_total", "Analysis jobs accepted into the queue")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Submissions answered from an existing job via idempotency key")
	m.jobsCompleted = m.counter("jobs_completed_total", "Analysis jobs that produced a completed report")
	m.jobsFailed = m.counter("jobs_failed_total", "Analysis jobs that produced a failed report")
	m.framesAnalyzed = m.counter("frames_analyzed_total", "Video frames consumed by the pipeline")
	m.jobDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_duration_seconds",
		Help:      "Wall time of a full analysis run",
		Buckets:   m.stageBuckets,
	})
	m.jobProgress = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_progress_percent",
		Help:      "Last reported progress per running job",
	}, []string{"job_id"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage",
		Buckets:   m.stageBuckets,
	}, []string{"stage"})
	m.moduleFailures = m.counterVec("analytics_module_failures_total", "Analytics modules that failed and were isolated", "module")
	m.shotsDetected = m.counterVec("shots_detected_total", "Shots detected by outcome", "outcome")
	m.clipsExtracted = m.counter("clips_extracted_total", "Highlight clips written by the extraction tool")
	m.clipsFailed = m.counter("clips_failed_total", "Highlight clips the extraction tool could not produce")
	m.progressDrops = m.counter("progress_dropped_total", "Progress updates dropped because the sink buffer was full")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by the queue")

	m.workerCount = m.gauge("worker_count", "Workers in the analysis pool")
	m.workerActive = m.gauge("worker_active_count", "Workers currently running a job")
	m.workerErrors = m.counter("worker_errors_total", "Worker-level errors (panics, store failures)")

	m.reportsStored = m.gauge("reports_stored", "Jobs held in the report store")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordJobSubmitted increments the submitted jobs counter.
func RecordJobSubmitted() { globalManager.jobsSubmitted.Inc() }

// RecordJobDuplicate increments the idempotent resubmission counter.
func RecordJobDuplicate() { globalManager.jobsDuplicate.Inc() }

// RecordJobCompleted records a completed run and its duration.
func RecordJobCompleted(seconds float64, frames int) {
	globalManager.jobsCompleted.Inc()
	globalManager.jobDuration.Observe(seconds)
	globalManager.framesAnalyzed.Add(float64(frames))
}

// RecordJobFailed records a failed run and its duration.
func RecordJobFailed(seconds float64) {
	globalManager.jobsFailed.Inc()
	globalManager.jobDuration.Observe(seconds)
}

// UpdateJobProgress sets the progress gauge for a job.
func UpdateJobProgress(jobID string, percent int) {
	globalManager.jobProgress.WithLabelValues(jobID).Set(float64(percent))
}

// ClearJobProgress drops the progress series of a finished job.
func ClearJobProgress(jobID string) {
	globalManager.jobProgress.DeleteLabelValues(jobID)
}

// RecordStageDuration observes the duration of a pipeline stage.
func RecordStageDuration(stage string, seconds float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordModuleFailure counts an isolated analytics module failure.
func RecordModuleFailure(module string) {
	globalManager.moduleFailures.WithLabelValues(module).Inc()
}

// RecordShot counts a detected shot by outcome.
func RecordShot(outcome string) {
	globalManager.shotsDetected.WithLabelValues(outcome).Inc()
}

// RecordClipExtracted counts a written clip.
func RecordClipExtracted() { globalManager.clipsExtracted.Inc() }

// RecordClipFailed counts a clip the extraction tool could not produce.
func RecordClipFailed() { globalManager.clipsFailed.Inc() }

// RecordProgressDropped counts a dropped progress update.
func RecordProgressDropped() { globalManager.progressDrops.Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }

// RecordQueueEnqueueError increments the rejected enqueue counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// IncWorkerActive marks a worker busy.
func IncWorkerActive() { globalManager.workerActive.Inc() }

// DecWorkerActive marks a worker idle.
func DecWorkerActive() { globalManager.workerActive.Dec() }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateReportsStored sets the number of jobs held in the store.
func UpdateReportsStored(count int) { globalManager.reportsStored.Set(float64(count)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent increments the per-component error counter.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint increments the per-endpoint error counter.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
