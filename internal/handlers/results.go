package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/pipeline"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// ResultHandler serves persisted run artifacts
type ResultHandler struct {
	results         pipeline.ResultStore
	topCorrelations int
	logger          *logger.Logger
}

// NewResultHandler creates a new result handler. topCorrelations caps the
// correlations returned unless the caller asks for all of them.
func NewResultHandler(results pipeline.ResultStore, topCorrelations int, log *logger.Logger) *ResultHandler {
	return &ResultHandler{
		results:         results,
		topCorrelations: topCorrelations,
		logger:          log.WithService("result_handler"),
	}
}

// GetProfile returns the latest dataset profile
// @Summary Get profile
// @Tags results
// @Produce json
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Success 200 {object} models.DatasetProfile
// @Failure 404 {object} errors.APIError
// @Router /api/v1/datasets/{id}/profile [get]
func (h *ResultHandler) GetProfile(c *gin.Context) {
	id, ok := datasetIDParam(c)
	if !ok {
		return
	}
	profile, err := h.results.GetProfile(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetInsights returns the latest insight report. Correlations are cut to the
// strongest few unless all=true.
// @Summary Get insights
// @Tags results
// @Produce json
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Param all query bool false "Return every correlation"
// @Success 200 {object} models.InsightReport
// @Failure 404 {object} errors.APIError
// @Router /api/v1/datasets/{id}/insights [get]
func (h *ResultHandler) GetInsights(c *gin.Context) {
	id, ok := datasetIDParam(c)
	if !ok {
		return
	}

	all := false
	if raw := c.Query("all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.Validation("all must be a boolean", err))
			return
		}
		all = v
	}

	report, err := h.results.GetInsights(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if !all {
		report.Correlations = report.TopCorrelations(h.topCorrelations)
	}
	c.JSON(http.StatusOK, report)
}

// GetDashboard returns the latest dashboard
// @Summary Get dashboard
// @Tags results
// @Produce json
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Success 200 {object} models.Dashboard
// @Failure 404 {object} errors.APIError
// @Router /api/v1/datasets/{id}/dashboard [get]
func (h *ResultHandler) GetDashboard(c *gin.Context) {
	id, ok := datasetIDParam(c)
	if !ok {
		return
	}
	dash, err := h.results.GetDashboard(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// GetSemantics returns the latest column classifications
// @Summary Get semantics
// @Tags results
// @Produce json
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Success 200 {object} models.SemanticReport
// @Failure 404 {object} errors.APIError
// @Router /api/v1/datasets/{id}/semantics [get]
func (h *ResultHandler) GetSemantics(c *gin.Context) {
	id, ok := datasetIDParam(c)
	if !ok {
		return
	}
	report, err := h.results.GetClassifications(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
