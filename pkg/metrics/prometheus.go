// Package metrics provides Prometheus metrics for the vigil proctoring
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Pipeline metrics.
	signalsObserved   prometheus.Counter
	signalsDropped    *prometheus.CounterVec
	eventsClassified  *prometheus.CounterVec
	eventsDuplicate   prometheus.Counter
	ingestRejected    *prometheus.CounterVec
	storeAppendErrors prometheus.Counter
	pendingTimers     prometheus.Gauge

	// Session metrics.
	sessionsActive prometheus.Gauge
	sessionsEnded  *prometheus.CounterVec
	integrityScore prometheus.Histogram

	// Broadcast metrics.
	broadcastTopics  prometheus.Gauge
	broadcastSent    prometheus.Gauge
	broadcastDropped prometheus.Gauge

	// Queue and worker metrics.
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	workerCount       prometheus.Gauge
	processingLatency prometheus.Histogram
	processingErrors  prometheus.Counter

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// GetRegistry returns the registry metrics are collected into.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vigil",
		subsystem:        "proctor",
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
	factory := promauto.With(m.registry)

	m.signalsObserved = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "signals_observed_total",
		Help: "Raw detector signals fed into the debounce filter.",
	})
	m.signalsDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "signals_dropped_total",
		Help: "Detector signals dropped before processing.",
	}, []string{"reason"})
	m.eventsClassified = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_classified_total",
		Help: "Stabilized events classified and recorded.",
	}, []string{"kind", "severity"})
	m.eventsDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_duplicate_total",
		Help: "Ingest requests rejected as duplicates.",
	})
	m.ingestRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_rejected_total",
		Help: "Ingest requests rejected at validation.",
	}, []string{"reason"})
	m.storeAppendErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "store_append_errors_total",
		Help: "Event store append failures.",
	})
	m.pendingTimers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "debounce_pending_timers",
		Help: "Armed stabilization timers across all sessions.",
	})

	m.sessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_active",
		Help: "Sessions currently being monitored.",
	})
	m.sessionsEnded = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_ended_total",
		Help: "Sessions moved to a terminal status.",
	}, []string{"status"})
	m.integrityScore = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "integrity_score",
		Help:    "Final integrity scores of ended sessions.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	m.broadcastTopics = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "broadcast_topics",
		Help: "Session topics with at least one subscriber.",
	})
	m.broadcastSent = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "broadcast_sent",
		Help: "Messages delivered to observers.",
	})
	m.broadcastDropped = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "broadcast_dropped",
		Help: "Messages dropped due to slow observers.",
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Signals waiting in the queue.",
	})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Configured queue capacity.",
	})
	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_count",
		Help: "Running pipeline workers.",
	})
	m.processingLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "processing_latency_ms",
		Help:    "Per-signal pipeline processing latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.processingErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "processing_errors_total",
		Help: "Signals whose processing failed.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// Package-level helpers against the global manager.

// RecordSignalObserved counts one raw detector signal.
func RecordSignalObserved() {
	if globalManager.enabled {
		globalManager.signalsObserved.Inc()
	}
}

// RecordSignalDropped counts a dropped signal by reason.
func RecordSignalDropped(reason string) {
	if globalManager.enabled {
		globalManager.signalsDropped.WithLabelValues(reason).Inc()
	}
}

// RecordEventClassified counts a classified event.
func RecordEventClassified(kind, severity string) {
	if globalManager.enabled {
		globalManager.eventsClassified.WithLabelValues(kind, severity).Inc()
	}
}

// RecordEventDuplicate counts a duplicate ingest.
func RecordEventDuplicate() {
	if globalManager.enabled {
		globalManager.eventsDuplicate.Inc()
	}
}

// RecordIngestRejected counts a validation rejection by reason.
func RecordIngestRejected(reason string) {
	if globalManager.enabled {
		globalManager.ingestRejected.WithLabelValues(reason).Inc()
	}
}

// RecordStoreAppendError counts a failed event store append.
func RecordStoreAppendError() {
	if globalManager.enabled {
		globalManager.storeAppendErrors.Inc()
	}
}

// UpdatePendingTimers sets the armed debounce timer gauge.
func UpdatePendingTimers(n int) {
	if globalManager.enabled {
		globalManager.pendingTimers.Set(float64(n))
	}
}

// UpdateSessionsActive sets the active session gauge.
func UpdateSessionsActive(n int) {
	if globalManager.enabled {
		globalManager.sessionsActive.Set(float64(n))
	}
}

// RecordSessionEnded counts a session reaching a terminal status.
func RecordSessionEnded(status string) {
	if globalManager.enabled {
		globalManager.sessionsEnded.WithLabelValues(status).Inc()
	}
}

// ObserveIntegrityScore records a final integrity score.
func ObserveIntegrityScore(score int) {
	if globalManager.enabled {
		globalManager.integrityScore.Observe(float64(score))
	}
}

// UpdateBroadcastStats sets the broadcast gauges from a hub snapshot.
func UpdateBroadcastStats(topics int, sent, dropped uint64) {
	if globalManager.enabled {
		globalManager.broadcastTopics.Set(float64(topics))
		globalManager.broadcastSent.Set(float64(sent))
		globalManager.broadcastDropped.Set(float64(dropped))
	}
}

// UpdateQueueSize sets the signal queue size gauge.
func UpdateQueueSize(n int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(n))
	}
}

// UpdateQueueCapacity sets the signal queue capacity gauge.
func UpdateQueueCapacity(n int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(n))
	}
}

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(n int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(n))
	}
}

// RecordProcessingLatency records one signal's pipeline latency.
func RecordProcessingLatency(ms float64) {
	if globalManager.enabled {
		globalManager.processingLatency.Observe(ms)
	}
}

// RecordProcessingError counts a failed signal.
func RecordProcessingError() {
	if globalManager.enabled {
		globalManager.processingErrors.Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
	}
}
