// Package metrics provides Prometheus metrics for the garden signal engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Signal intake
	signalsEmitted   *prometheus.CounterVec
	signalsDropped   *prometheus.CounterVec
	signalsPersisted prometheus.Counter
	signalRetries    prometheus.Counter

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Sessions
	sessionsStarted   *prometheus.CounterVec
	sessionsCompleted *prometheus.CounterVec
	sessionsRejected  *prometheus.CounterVec
	moodEntries       prometheus.Counter

	// Aggregation
	aggregations       *prometheus.CounterVec
	aggregationLatency prometheus.Histogram
	narrativeFallbacks *prometheus.CounterVec
	narrativeLatency   prometheus.Histogram
	gardenWriteErrors  prometheus.Counter
	rarityTiers        *prometheus.CounterVec

	// Progress
	xpGranted     *prometheus.CounterVec
	levelUps      *prometheus.CounterVec
	itemsUnlocked *prometheus.CounterVec

	// Team rollup
	teamCells *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryQueryLatency *prometheus.HistogramVec
	repositoryErrors       *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "garden",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
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
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.signalsEmitted = m.counterVec("signals_emitted_total", "Implicit signals accepted for buffering", "instrument", "proxy")
	m.signalsDropped = m.counterVec("signals_dropped_total", "Implicit signals dropped before persistence", "reason")
	m.signalsPersisted = m.counter("signals_persisted_total", "Implicit signals written to the signal buffer")
	m.signalRetries = m.counter("signal_retries_total", "Signal writes re-enqueued after a storage failure")

	m.queueSize = m.gauge("queue_size", "Current size of the signal queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the signal queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Signal queue utilization (0-1)")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Signals enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Signals dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Signals rejected by the queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds")

	m.workerCount = m.gauge("worker_count", "Number of signal workers")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Signals persisted per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Signal persistence latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Signal worker errors")

	m.sessionsStarted = m.counterVec("sessions_started_total", "Assessment sessions started", "instrument")
	m.sessionsCompleted = m.counterVec("sessions_completed_total", "Assessment sessions completed", "badge_kind")
	m.sessionsRejected = m.counterVec("sessions_rejected_total", "Session submissions rejected", "reason")
	m.moodEntries = m.counter("mood_entries_total", "Mood check-ins recorded")

	m.aggregations = m.counterVec("aggregations_total", "Aggregation outcomes", "instrument", "outcome")
	m.aggregationLatency = m.histogram("aggregation_latency_milliseconds", "Aggregation latency in milliseconds")
	m.narrativeFallbacks = m.counterVec("narrative_fallbacks_total", "Phrase bank substitutions", "reason")
	m.narrativeLatency = m.histogram("narrative_latency_milliseconds", "Generative service latency in milliseconds")
	m.gardenWriteErrors = m.counter("garden_write_errors_total", "Best-effort weekly summary or garden write failures")
	m.rarityTiers = m.counterVec("rarity_tiers_total", "Rarity tiers assigned", "tier")

	m.xpGranted = m.counterVec("xp_granted_total", "Experience points granted", "module")
	m.levelUps = m.counterVec("level_ups_total", "Level transitions", "module")
	m.itemsUnlocked = m.counterVec("items_unlocked_total", "Items newly unlocked", "module")

	m.teamCells = m.counterVec("team_cells_total", "Team report cells by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.repositoryQueryLatency = m.histogramVec("repository_query_latency_milliseconds", "Repository operation latency in milliseconds", "operation")
	m.repositoryErrors = m.counterVec("repository_errors_total", "Repository operation errors", "operation")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of failed operations in milliseconds", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds")
}

// Signal intake.

func RecordSignalEmitted(instrument, proxy string) {
	globalManager.signalsEmitted.WithLabelValues(instrument, proxy).Inc()
}

func RecordSignalDropped(reason string) {
	globalManager.signalsDropped.WithLabelValues(reason).Inc()
}

func RecordSignalPersisted() { globalManager.signalsPersisted.Inc() }

func RecordSignalRetry() { globalManager.signalRetries.Inc() }

// Queue.

func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers.

func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

func UpdateWorkerMessagesPerSecond(rate float64) { globalManager.workerMessagesPerSecond.Set(rate) }

func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

func RecordWorkerError() { globalManager.workerErrors.Inc() }

// Sessions.

func RecordSessionStarted(instrument string) {
	globalManager.sessionsStarted.WithLabelValues(instrument).Inc()
}

func RecordSessionCompleted(badgeKind string) {
	globalManager.sessionsCompleted.WithLabelValues(badgeKind).Inc()
}

func RecordSessionRejected(reason string) {
	globalManager.sessionsRejected.WithLabelValues(reason).Inc()
}

func RecordMoodEntry() { globalManager.moodEntries.Inc() }

// Aggregation.

// RecordAggregation counts an aggregation outcome: shown, insufficient or failed.
func RecordAggregation(instrument, outcome string) {
	globalManager.aggregations.WithLabelValues(instrument, outcome).Inc()
}

func RecordAggregationLatency(latencyMs float64) {
	globalManager.aggregationLatency.Observe(latencyMs)
}

func RecordNarrativeFallback(reason string) {
	globalManager.narrativeFallbacks.WithLabelValues(reason).Inc()
}

func RecordNarrativeLatency(latencyMs float64) {
	globalManager.narrativeLatency.Observe(latencyMs)
}

func RecordGardenWriteError() { globalManager.gardenWriteErrors.Inc() }

func RecordRarityTier(tier string) {
	globalManager.rarityTiers.WithLabelValues(tier).Inc()
}

// Progress.

func RecordXPGranted(module string, amount int64) {
	globalManager.xpGranted.WithLabelValues(module).Add(float64(amount))
}

func RecordLevelUp(module string) { globalManager.levelUps.WithLabelValues(module).Inc() }

func RecordItemUnlocked(module string) { globalManager.itemsUnlocked.WithLabelValues(module).Inc() }

// Team rollup.

// RecordTeamCell counts a team report cell as reported or suppressed.
func RecordTeamCell(outcome string) { globalManager.teamCells.WithLabelValues(outcome).Inc() }

// HTTP.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Repository.

func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

func RecordRepositoryError(operation string) {
	globalManager.repositoryErrors.WithLabelValues(operation).Inc()
}

// Errors.

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// Runtime.

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Configure rebuilds the global manager on a fresh registry. Call it during
// startup, before metrics are recorded or the registry is served.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
}

// RefreshInterval reports how often runtime gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
