package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
)

// RequestIDMiddleware adds a unique request ID to each request and a logger
// carrying it to the context
func RequestIDMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Honour an ID set upstream, e.g. by a load balancer
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Set("logger", log.WithRequestID(requestID))
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}
