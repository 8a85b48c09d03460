// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// analysis runs and the collaborators they call.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
)

const namespace = "insights"

// Metrics contains all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Run metrics
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	runsActive    prometheus.Gauge
	queueDepth    prometheus.Gauge
	rowsAnalyzed  prometheus.Counter
	insightsTotal *prometheus.CounterVec

	// Collaborator metrics
	classifierCalls   *prometheus.CounterVec
	dbQueriesTotal    *prometheus.CounterVec
	dbQueryDuration   *prometheus.HistogramVec
	storageOperations *prometheus.CounterVec
	storageBytes      *prometheus.CounterVec

	// System metrics
	dependencyUp     *prometheus.GaugeVec
	goroutinesActive prometheus.Gauge
	memoryUsage      prometheus.Gauge

	logger *logger.Logger
}

// NewMetrics creates the metrics on a private registry so that several
// instances can coexist in one process.
func NewMetrics(log *logger.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logger:   log.WithService("metrics"),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Analysis runs by kind and terminal status",
			},
			[]string{"kind", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Analysis run duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"stage", "status"},
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_active",
				Help:      "Analysis runs currently executing",
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_queue_depth",
				Help:      "Analysis runs waiting for a worker",
			},
		),
		rowsAnalyzed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_analyzed_total",
				Help:      "Dataset rows read by analysis runs",
			},
		),
		insightsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insights_generated_total",
				Help:      "Insights generated by type",
			},
			[]string{"type"},
		),

		classifierCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifier_calls_total",
				Help:      "Semantic classifier calls by mode and status",
			},
			[]string{"mode", "status"},
		),
		dbQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_queries_total",
				Help:      "Total number of database operations",
			},
			[]string{"database", "operation", "status"},
		),
		dbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database operation duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"database", "operation"},
		),
		storageOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Dataset storage operations by provider and status",
			},
			[]string{"provider", "operation", "status"},
		),
		storageBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_bytes_total",
				Help:      "Bytes moved to and from dataset storage",
			},
			[]string{"provider", "operation"},
		),

		dependencyUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dependency_up",
				Help:      "Whether a backing dependency answered its last health check",
			},
			[]string{"dependency"},
		),
		goroutinesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutines_active",
				Help:      "Number of active goroutines",
			},
		),
		memoryUsage: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_usage_bytes",
				Help:      "Heap memory in use in bytes",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.runsTotal,
		m.runDuration,
		m.stageDuration,
		m.runsActive,
		m.queueDepth,
		m.rowsAnalyzed,
		m.insightsTotal,
		m.classifierCalls,
		m.dbQueriesTotal,
		m.dbQueryDuration,
		m.storageOperations,
		m.storageBytes,
		m.dependencyUp,
		m.goroutinesActive,
		m.memoryUsage,
	)

	m.logger.Info("Prometheus metrics initialized")
	return m
}

// Registry exposes the registry for tests and custom collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncHTTPRequestsInFlight increments the in-flight requests gauge
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight requests gauge
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// Run metrics. Every method tolerates a nil receiver so the pipeline can run
// without instrumentation.

// RunStarted marks a run as executing
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsActive.Inc()
}

// RunFinished records a run's terminal status and duration
func (m *Metrics) RunFinished(kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(kind, status).Inc()
	m.runDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// RunRejected counts a run that never reached a worker
func (m *Metrics) RunRejected(kind string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(kind, "rejected").Inc()
}

// RecordStage records one pipeline stage
func (m *Metrics) RecordStage(stage string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, statusOf(err)).Observe(duration.Seconds())
}

// SetQueueDepth sets the number of queued runs
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// AddRowsAnalyzed adds to the rows read counter
func (m *Metrics) AddRowsAnalyzed(rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.rowsAnalyzed.Add(float64(rows))
}

// IncInsights counts a generated insight
func (m *Metrics) IncInsights(insightType string) {
	if m == nil {
		return
	}
	m.insightsTotal.WithLabelValues(insightType).Inc()
}

// RecordClassifierCall counts a classifier invocation
func (m *Metrics) RecordClassifierCall(mode string, err error) {
	if m == nil {
		return
	}
	m.classifierCalls.WithLabelValues(mode, statusOf(err)).Inc()
}

// RecordDBQuery records a database operation metric
func (m *Metrics) RecordDBQuery(database, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueriesTotal.WithLabelValues(database, operation, status).Inc()
	m.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordStorageOperation records a dataset storage operation
func (m *Metrics) RecordStorageOperation(provider, operation string, err error, bytes int64) {
	if m == nil {
		return
	}
	m.storageOperations.WithLabelValues(provider, operation, statusOf(err)).Inc()
	if bytes > 0 {
		m.storageBytes.WithLabelValues(provider, operation).Add(float64(bytes))
	}
}

// SetDependencyUp records the outcome of a dependency health check
func (m *Metrics) SetDependencyUp(dependency string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.dependencyUp.WithLabelValues(dependency).Set(v)
}

// SetGoroutines sets the number of active goroutines
func (m *Metrics) SetGoroutines(count int) {
	m.goroutinesActive.Set(float64(count))
}

// SetMemoryUsage sets the memory usage in bytes
func (m *Metrics) SetMemoryUsage(bytes int64) {
	m.memoryUsage.Set(float64(bytes))
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinHandler returns a Gin handler for Prometheus metrics
func (m *Metrics) GinHandler() gin.HandlerFunc {
	return gin.WrapH(m.Handler())
}

// Shutdown gracefully shuts down the metrics system
func (m *Metrics) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down metrics system")
	return nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
