package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Tributary-ai-services/aether-insights/internal/auth"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
)

// MockTokenVerifier is a mock implementation of TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(ctx context.Context, rawToken string) (*auth.TokenClaims, error) {
	args := m.Called(ctx, rawToken)
	if claims, ok := args.Get(0).(*auth.TokenClaims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(verifier TokenVerifier, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{RequestIDMiddleware(logger.NewNop()), AuthMiddleware(verifier, logger.NewNop())}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id)
	})
	r.GET("/secure", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	verifier := &MockTokenVerifier{}
	verifier.On("Verify", mock.Anything, "good").Return(&auth.TokenClaims{
		Sub:         "user-1",
		RealmAccess: auth.RealmAccess{Roles: []string{"analyst"}},
	}, nil)
	verifier.On("Verify", mock.Anything, "bad").Return(nil, assert.AnError)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer good", http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"rejected token", "Bearer bad", http.StatusUnauthorized, "Invalid or expired token"},
	}

	router := newAuthRouter(verifier)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequireRole(t *testing.T) {
	verifier := &MockTokenVerifier{}
	verifier.On("Verify", mock.Anything, "analyst").Return(&auth.TokenClaims{
		Sub:         "user-1",
		RealmAccess: auth.RealmAccess{Roles: []string{"analyst"}},
	}, nil)
	verifier.On("Verify", mock.Anything, "admin").Return(&auth.TokenClaims{
		Sub:         "user-2",
		RealmAccess: auth.RealmAccess{Roles: []string{"analyst", "insights-admin"}},
	}, nil)

	router := newAuthRouter(verifier, RequireRole("insights-admin"))

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer analyst")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer admin")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware(logger.NewNop()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "upstream-id", w.Body.String())
}

func TestRequestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.POST("/api/upload", RequestSizeLimit(8), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("this body is too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}
