package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/middleware"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// handleServiceError converts service errors to appropriate HTTP responses
func handleServiceError(c *gin.Context, log *logger.Logger, err error) {
	// Check if it's already an API error
	if apiErr, ok := errors.AsAPIError(err); ok {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			middleware.GetLogger(c, log).Error("Request failed",
				zap.String("code", apiErr.Code),
				zap.Error(err),
			)
		}
		c.JSON(apiErr.StatusCode, apiErr)
		return
	}

	middleware.GetLogger(c, log).Error("Unhandled service error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, errors.Internal("Internal server error"))
}

// isBodyTooLarge reports whether err came from an exhausted MaxBytesReader
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLoggingMiddleware logs HTTP requests, skipping health checks
func requestLoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	skip := map[string]bool{
		"/health/live":  true,
		"/health/ready": true,
		"/metrics":      true,
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if skip[c.Request.URL.Path] {
			return
		}
		middleware.GetLogger(c, log).LogHTTPRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Request.UserAgent(),
			c.ClientIP(),
			c.Writer.Status(),
			float64(time.Since(start).Microseconds())/1000,
		)
	}
}
