package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	"github.com/Tributary-ai-services/aether-insights/internal/middleware"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/internal/pipeline"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// RunScheduler queues runs and reports their status
type RunScheduler interface {
	Trigger(ctx context.Context, datasetID string, kind models.RunKind, storageKey string) (*models.StatusRecord, error)
	Status(ctx context.Context, datasetID string, kind models.RunKind) (*models.StatusRecord, error)
	InFlight(datasetID string, kind models.RunKind) bool
}

// Dependencies are the collaborators the API server is built from
type Dependencies struct {
	Datasets pipeline.DatasetStore
	Results  pipeline.ResultStore
	Statuses pipeline.StatusStore
	Runs     RunScheduler

	// Verifier enables bearer authentication on /api/v1 when set
	Verifier middleware.TokenVerifier

	Health  map[string]metrics.HealthChecker
	Metrics *metrics.Metrics
}

// ServerOptions tune request handling
type ServerOptions struct {
	Version         string
	MaxUploadBytes  int64
	PreviewLimit    int
	TopCorrelations int
	// AdminRole, when set with a verifier, is required to delete datasets
	AdminRole string
}

// DefaultServerOptions returns the standard request limits
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		MaxUploadBytes:  100 << 20,
		PreviewLimit:    100,
		TopCorrelations: 10,
	}
}

// APIServer represents the API server with all dependencies
type APIServer struct {
	Router         *gin.Engine
	DatasetHandler *DatasetHandler
	RunHandler     *RunHandler
	ResultHandler  *ResultHandler
	HealthHandler  *HealthHandler
	Metrics        *metrics.Metrics
	verifier       middleware.TokenVerifier
	opt            ServerOptions
	logger         *logger.Logger
}

// NewAPIServer creates a new API server with all routes configured
func NewAPIServer(deps Dependencies, opt ServerOptions, log *logger.Logger) *APIServer {
	def := DefaultServerOptions()
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = def.MaxUploadBytes
	}
	if opt.PreviewLimit <= 0 {
		opt.PreviewLimit = def.PreviewLimit
	}
	if opt.TopCorrelations <= 0 {
		opt.TopCorrelations = def.TopCorrelations
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics(log)
	}

	router := gin.New()

	// Global middleware
	router.Use(customRecoveryMiddleware(log))
	router.Use(requestLoggingMiddleware(log))
	router.Use(corsMiddleware())
	router.Use(middleware.RequestIDMiddleware(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(metrics.HTTPMetricsMiddleware(deps.Metrics, log))

	server := &APIServer{
		Router:         router,
		DatasetHandler: NewDatasetHandler(deps.Datasets, deps.Results, deps.Statuses, deps.Runs, opt, log),
		RunHandler:     NewRunHandler(deps.Results, deps.Runs, log),
		ResultHandler:  NewResultHandler(deps.Results, opt.TopCorrelations, log),
		HealthHandler:  NewHealthHandler(deps.Health, opt.Version, log),
		Metrics:        deps.Metrics,
		verifier:       deps.Verifier,
		opt:            opt,
		logger:         log.WithService("api_server"),
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	// Health check routes (no auth required)
	s.Router.GET("/health", s.HealthHandler.HealthCheck)
	s.Router.GET("/health/live", s.HealthHandler.LivenessCheck)
	s.Router.GET("/health/ready", s.HealthHandler.ReadinessCheck)
	s.Router.GET("/metrics", s.Metrics.GinHandler())

	api := s.Router.Group("/api/v1")
	if s.verifier != nil {
		api.Use(middleware.AuthMiddleware(s.verifier, s.logger))
	} else {
		s.logger.Warn("Bearer authentication disabled")
	}

	deleteChain := []gin.HandlerFunc{s.DatasetHandler.DeleteDataset}
	if s.verifier != nil && s.opt.AdminRole != "" {
		deleteChain = append([]gin.HandlerFunc{middleware.RequireRole(s.opt.AdminRole)}, deleteChain...)
	}

	datasets := api.Group("/datasets")
	{
		datasets.POST("", middleware.RequestSizeLimit(s.opt.MaxUploadBytes), s.DatasetHandler.UploadDataset)
		datasets.GET("/:id", s.DatasetHandler.GetDataset)
		datasets.DELETE("/:id", deleteChain...)
		datasets.GET("/:id/preview", s.DatasetHandler.PreviewDataset)
		datasets.GET("/:id/export", s.DatasetHandler.ExportDataset)

		datasets.POST("/:id/runs/:kind", s.RunHandler.TriggerRun)
		datasets.GET("/:id/runs/:kind", s.RunHandler.GetRunStatus)

		datasets.GET("/:id/profile", s.ResultHandler.GetProfile)
		datasets.GET("/:id/insights", s.ResultHandler.GetInsights)
		datasets.GET("/:id/dashboard", s.ResultHandler.GetDashboard)
		datasets.GET("/:id/semantics", s.ResultHandler.GetSemantics)
	}

	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errors.NotFound("Route not found"))
	})
}

// customRecoveryMiddleware turns handler panics into a 500 response
func customRecoveryMiddleware(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("Panic recovered in handler",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errors.Internal("Internal server error"))
	})
}
