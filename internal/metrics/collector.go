package metrics

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
)

// QueueDepther reports how many runs are waiting for a worker
type QueueDepther interface {
	QueueDepth() int
}

// HealthChecker is a backing dependency that can be health checked
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SystemMetricsCollector periodically collects system metrics
type SystemMetricsCollector struct {
	metrics  *Metrics
	logger   *logger.Logger
	interval time.Duration
	done     chan struct{}
}

// QueueMetricsCollector samples the run queue depth
type QueueMetricsCollector struct {
	metrics  *Metrics
	logger   *logger.Logger
	queue    QueueDepther
	interval time.Duration
	done     chan struct{}
}

// ConnectionMetricsCollector checks the backing stores
type ConnectionMetricsCollector struct {
	metrics      *Metrics
	logger       *logger.Logger
	dependencies map[string]HealthChecker
	interval     time.Duration
	done         chan struct{}
}

// MetricsCollector manages all metric collection processes
type MetricsCollector struct {
	metrics             *Metrics
	logger              *logger.Logger
	systemCollector     *SystemMetricsCollector
	queueCollector      *QueueMetricsCollector
	connectionCollector *ConnectionMetricsCollector

	// Control channels
	done chan struct{}
}

// NewMetricsCollector creates a new metrics collector. queue may be nil and
// dependencies may be empty; the matching collectors are then skipped.
func NewMetricsCollector(
	metrics *Metrics,
	queue QueueDepther,
	dependencies map[string]HealthChecker,
	log *logger.Logger,
) *MetricsCollector {
	mc := &MetricsCollector{
		metrics:         metrics,
		logger:          log.WithService("metrics_collector"),
		done:            make(chan struct{}),
		systemCollector: NewSystemMetricsCollector(metrics, log),
	}
	if queue != nil {
		mc.queueCollector = NewQueueMetricsCollector(metrics, queue, log)
	}
	if len(dependencies) > 0 {
		mc.connectionCollector = NewConnectionMetricsCollector(metrics, dependencies, log)
	}
	return mc
}

// Start starts all metric collection processes
func (mc *MetricsCollector) Start(ctx context.Context) {
	mc.logger.Info("Starting metrics collection")

	go mc.systemCollector.Start(ctx)
	if mc.queueCollector != nil {
		go mc.queueCollector.Start(ctx)
	}
	if mc.connectionCollector != nil {
		go mc.connectionCollector.Start(ctx)
	}

	mc.logger.Info("All metrics collectors started")
}

// Stop stops all metric collection processes
func (mc *MetricsCollector) Stop() {
	mc.logger.Info("Stopping metrics collection")

	close(mc.systemCollector.done)
	if mc.queueCollector != nil {
		close(mc.queueCollector.done)
	}
	if mc.connectionCollector != nil {
		close(mc.connectionCollector.done)
	}

	close(mc.done)
	mc.logger.Info("All metrics collectors stopped")
}

// NewSystemMetricsCollector creates a new system metrics collector
func NewSystemMetricsCollector(metrics *Metrics, log *logger.Logger) *SystemMetricsCollector {
	return &SystemMetricsCollector{
		metrics:  metrics,
		logger:   log.WithService("system_metrics"),
		interval: 30 * time.Second,
		done:     make(chan struct{}),
	}
}

// Start starts the system metrics collection with context support
func (smc *SystemMetricsCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(smc.interval)
	defer ticker.Stop()

	smc.logger.Info("Starting system metrics collection")
	smc.collect()

	for {
		select {
		case <-ticker.C:
			smc.collect()
		case <-ctx.Done():
			smc.logger.Info("System metrics collection stopped by context")
			return
		case <-smc.done:
			smc.logger.Info("System metrics collection stopped")
			return
		}
	}
}

func (smc *SystemMetricsCollector) collect() {
	goroutines := runtime.NumGoroutine()
	smc.metrics.SetGoroutines(goroutines)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	smc.metrics.SetMemoryUsage(int64(memStats.Alloc))

	smc.logger.Debug("System metrics collected",
		zap.Int("goroutines", goroutines),
		zap.Uint64("memory_alloc", memStats.Alloc),
	)
}

// NewQueueMetricsCollector creates a collector for the run queue
func NewQueueMetricsCollector(metrics *Metrics, queue QueueDepther, log *logger.Logger) *QueueMetricsCollector {
	return &QueueMetricsCollector{
		metrics:  metrics,
		logger:   log.WithService("queue_metrics"),
		queue:    queue,
		interval: 5 * time.Second,
		done:     make(chan struct{}),
	}
}

// Start samples the queue until ctx ends or Stop is called
func (qmc *QueueMetricsCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(qmc.interval)
	defer ticker.Stop()

	qmc.logger.Info("Starting queue metrics collection")

	for {
		select {
		case <-ticker.C:
			qmc.metrics.SetQueueDepth(qmc.queue.QueueDepth())
		case <-ctx.Done():
			qmc.logger.Info("Queue metrics collection stopped by context")
			return
		case <-qmc.done:
			qmc.logger.Info("Queue metrics collection stopped")
			return
		}
	}
}

// NewConnectionMetricsCollector creates a new connection metrics collector
func NewConnectionMetricsCollector(
	metrics *Metrics,
	dependencies map[string]HealthChecker,
	log *logger.Logger,
) *ConnectionMetricsCollector {
	return &ConnectionMetricsCollector{
		metrics:      metrics,
		logger:       log.WithService("connection_metrics"),
		dependencies: dependencies,
		interval:     time.Minute,
		done:         make(chan struct{}),
	}
}

// Start starts the connection metrics collection
func (cmc *ConnectionMetricsCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(cmc.interval)
	defer ticker.Stop()

	cmc.logger.Info("Starting connection metrics collection")
	cmc.collect(ctx)

	for {
		select {
		case <-ticker.C:
			cmc.collect(ctx)
		case <-ctx.Done():
			cmc.logger.Info("Connection metrics collection stopped by context")
			return
		case <-cmc.done:
			cmc.logger.Info("Connection metrics collection stopped")
			return
		}
	}
}

func (cmc *ConnectionMetricsCollector) collect(ctx context.Context) {
	for name, dep := range cmc.dependencies {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := dep.HealthCheck(checkCtx)
		cancel()

		cmc.metrics.SetDependencyUp(name, err == nil)
		if err != nil {
			cmc.logger.Warn("Dependency health check failed",
				zap.String("dependency", name),
				zap.Error(err),
			)
		}
	}
	cmc.logger.Debug("Connection metrics collected")
}
