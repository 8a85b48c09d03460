package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/middleware"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/internal/pipeline"
	"github.com/Tributary-ai-services/aether-insights/internal/validation"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// RunHandler handles run trigger and status requests
type RunHandler struct {
	results pipeline.ResultStore
	runs    RunScheduler
	logger  *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(results pipeline.ResultStore, runs RunScheduler, log *logger.Logger) *RunHandler {
	return &RunHandler{
		results: results,
		runs:    runs,
		logger:  log.WithService("run_handler"),
	}
}

// TriggerRun schedules a run of one kind on a dataset
// @Summary Trigger run
// @Tags runs
// @Produce json
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Param kind path string true "Run kind"
// @Success 202 {object} models.StatusRecord
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Failure 429 {object} errors.APIError
// @Router /api/v1/datasets/{id}/runs/{kind} [post]
func (h *RunHandler) TriggerRun(c *gin.Context) {
	req, ok := bindRunRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ds, err := h.results.GetDataset(ctx, req.DatasetID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	record, err := h.runs.Trigger(ctx, ds.ID, models.RunKind(req.Kind), ds.StorageKey)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	middleware.GetLogger(c, h.logger).Info("Run triggered",
		zap.String("dataset_id", ds.ID),
		zap.String("run_kind", req.Kind),
		zap.String("run_id", record.RunID),
	)
	c.JSON(http.StatusAccepted, record)
}

// GetRunStatus returns the status record of a run kind on a dataset
// @Summary Get run status
// @Tags runs
// @Produce json
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Param kind path string true "Run kind"
// @Success 200 {object} models.StatusRecord
// @Failure 400 {object} errors.APIError
// @Router /api/v1/datasets/{id}/runs/{kind} [get]
func (h *RunHandler) GetRunStatus(c *gin.Context) {
	req, ok := bindRunRequest(c)
	if !ok {
		return
	}

	record, err := h.runs.Status(c.Request.Context(), req.DatasetID, models.RunKind(req.Kind))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func bindRunRequest(c *gin.Context) (models.RunRequest, bool) {
	var req models.RunRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.Validation("Invalid run path", err))
		return req, false
	}
	if err := validation.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, validation.ToAPIError(err))
		return req, false
	}
	return req, true
}
