package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/auth"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// TokenVerifier verifies a raw bearer token
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.TokenClaims, error)
}

// AuthMiddleware requires a valid bearer token
func AuthMiddleware(verifier TokenVerifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			log.Warn("Missing or malformed authorization header",
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized("Bearer token is required"))
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			log.Warn("Token verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized("Invalid or expired token"))
			return
		}

		c.Set("user_id", claims.Sub)
		c.Set("username", claims.PreferredUsername)
		c.Set("user_claims", claims)
		c.Set("logger", GetLogger(c, log).WithSubject(claims.Sub))

		c.Next()
	}
}

// RequireRole rejects authenticated callers without the realm role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetUserClaims(c)
		if !ok || !claims.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, errors.Forbidden("Role "+role+" is required"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// GetUserID extracts user ID from Gin context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}

// GetUserClaims extracts user claims from Gin context
func GetUserClaims(c *gin.Context) (*auth.TokenClaims, bool) {
	claims, exists := c.Get("user_claims")
	if !exists {
		return nil, false
	}
	userClaims, ok := claims.(*auth.TokenClaims)
	return userClaims, ok
}

// GetRequestID extracts request ID from Gin context
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// GetLogger returns the request-scoped logger, or fallback when none is set
func GetLogger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if log, ok := c.Get("logger"); ok {
		if contextLogger, ok := log.(*logger.Logger); ok {
			return contextLogger
		}
	}
	return fallback
}
