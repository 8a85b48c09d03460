package metrics

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
)

var uuidSegment = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// HTTPMetricsMiddleware creates middleware for recording HTTP metrics
func HTTPMetricsMiddleware(metrics *Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.IncHTTPRequestsInFlight()

		c.Next()

		duration := time.Since(start)
		metrics.DecHTTPRequestsInFlight()

		path := getCleanPath(c.FullPath(), c.Request.URL.Path)
		metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), duration)

		// Log slow requests
		if duration > 5*time.Second {
			log.Warn("Slow HTTP request",
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("duration", duration),
				zap.String("remote_addr", c.ClientIP()),
			)
		}
	}
}

// getCleanPath returns a clean path for metrics (removes IDs and other variable parts)
func getCleanPath(routePath, requestPath string) string {
	// Gin's route path already contains parameter placeholders
	if routePath != "" {
		return routePath
	}
	return cleanPathForMetrics(requestPath)
}

// cleanPathForMetrics replaces UUID path segments with a placeholder
func cleanPathForMetrics(path string) string {
	return uuidSegment.ReplaceAllString(path, "/:id")
}

// DatabaseMetricsWrapper wraps database operations to record metrics
type DatabaseMetricsWrapper struct {
	metrics  *Metrics
	database string // "neo4j" or "redis"
}

// NewDatabaseMetricsWrapper creates a new database metrics wrapper
func NewDatabaseMetricsWrapper(metrics *Metrics, database string) *DatabaseMetricsWrapper {
	return &DatabaseMetricsWrapper{
		metrics:  metrics,
		database: database,
	}
}

// RecordQuery records a database query with metrics. A nil wrapper just runs fn.
func (dmw *DatabaseMetricsWrapper) RecordQuery(operation string, fn func() error) error {
	if dmw == nil {
		return fn()
	}
	start := time.Now()
	err := fn()
	dmw.metrics.RecordDBQuery(dmw.database, operation, statusOf(err), time.Since(start))
	return err
}
