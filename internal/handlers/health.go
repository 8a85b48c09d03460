package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	checks  map[string]metrics.HealthChecker
	version string
	logger  *logger.Logger
}

// NewHealthHandler creates a new health handler. checks maps a dependency
// name to its checker and may be empty.
func NewHealthHandler(checks map[string]metrics.HealthChecker, version string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		version: version,
		logger:  log.WithService("health_handler"),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version,omitempty"`
	Services  map[string]ServiceHealth `json:"services"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status       string  `json:"status"`
	ResponseTime float64 `json:"response_time_ms"`
	Error        string  `json:"error,omitempty"`
}

// LivenessCheck handles the liveness endpoint
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// ReadinessCheck handles the readiness endpoint
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	response, healthy := h.checkAll(c.Request.Context())
	if healthy {
		response.Status = "ready"
		c.JSON(http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	c.JSON(http.StatusServiceUnavailable, response)
}

// HealthCheck handles comprehensive health check
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response, healthy := h.checkAll(c.Request.Context())
	response.Version = h.version
	if healthy {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
		return
	}
	response.Status = "degraded"
	c.JSON(http.StatusServiceUnavailable, response)
}

func (h *HealthHandler) checkAll(ctx context.Context) (HealthResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response := HealthResponse{
		Timestamp: time.Now(),
		Services:  make(map[string]ServiceHealth, len(h.checks)),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	allHealthy := true
	for _, name := range names {
		health := h.check(ctx, name, h.checks[name])
		response.Services[name] = health
		if health.Status != "healthy" {
			allHealthy = false
		}
	}
	return response, allHealthy
}

func (h *HealthHandler) check(ctx context.Context, name string, checker metrics.HealthChecker) ServiceHealth {
	start := time.Now()

	err := checker.HealthCheck(ctx)
	responseTime := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		h.logger.Error("Health check failed", zap.String("service", name), zap.Error(err))
		return ServiceHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
			Error:        err.Error(),
		}
	}

	return ServiceHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}
