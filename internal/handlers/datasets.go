package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/dataset"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/middleware"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/internal/pipeline"
	"github.com/Tributary-ai-services/aether-insights/internal/validation"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// DatasetHandler handles dataset upload and lifecycle requests
type DatasetHandler struct {
	datasets pipeline.DatasetStore
	results  pipeline.ResultStore
	statuses pipeline.StatusStore
	runs     RunScheduler
	opt      ServerOptions
	logger   *logger.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(
	datasets pipeline.DatasetStore,
	results pipeline.ResultStore,
	statuses pipeline.StatusStore,
	runs RunScheduler,
	opt ServerOptions,
	log *logger.Logger,
) *DatasetHandler {
	return &DatasetHandler{
		datasets: datasets,
		results:  results,
		statuses: statuses,
		runs:     runs,
		opt:      opt,
		logger:   log.WithService("dataset_handler"),
	}
}

// UploadDataset stores an uploaded CSV and schedules the default runs
// @Summary Upload dataset
// @Tags datasets
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param name formData string false "Dataset name (defaults to the file name)"
// @Param file formData file true "CSV file"
// @Success 202 {object} models.DatasetResponse
// @Failure 400 {object} errors.APIError
// @Failure 413 {object} errors.APIError
// @Router /api/v1/datasets [post]
func (h *DatasetHandler) UploadDataset(c *gin.Context) {
	log := middleware.GetLogger(c, h.logger)
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, errors.PayloadTooLarge("Dataset file is too large"))
			return
		}
		log.Warn("Failed to get uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, errors.Validation("File is required", err))
		return
	}
	defer file.Close()

	req := models.DatasetUploadRequest{
		Name:     validation.SanitizeName(c.PostForm("name")),
		FileName: validation.SanitizeFilename(header.Filename),
	}
	if req.Name == "" {
		req.Name = req.FileName
	}
	if err := validation.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, validation.ToAPIError(err))
		return
	}

	ds := models.NewDataset(req, header.Size)
	ds.ContentType = contentTypeFor(ds.FileName)

	if err := h.datasets.Upload(ctx, ds.StorageKey, file, header.Size, ds.ContentType); err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, errors.PayloadTooLarge("Dataset file is too large"))
			return
		}
		handleServiceError(c, h.logger, err)
		return
	}
	if err := h.results.SaveDataset(ctx, ds); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	log.Info("Dataset uploaded",
		zap.String("dataset_id", ds.ID),
		zap.String("file_name", ds.FileName),
		zap.Int64("size_bytes", ds.SizeBytes),
	)

	resp := ds.ToResponse()
	resp.Runs = make(map[models.RunKind]*models.StatusRecord, len(models.UploadRunKinds))
	for _, kind := range models.UploadRunKinds {
		record, err := h.runs.Trigger(ctx, ds.ID, kind, ds.StorageKey)
		if err != nil {
			// A refused trigger still leaves a status record to poll
			log.Warn("Failed to schedule run",
				zap.String("dataset_id", ds.ID),
				zap.String("run_kind", string(kind)),
				zap.Error(err),
			)
			record = h.status(c, ds.ID, kind)
		}
		resp.Runs[kind] = record
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetDataset returns dataset metadata with the status of every run kind
// @Summary Get dataset
// @Tags datasets
// @Produce json
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Success 200 {object} models.DatasetResponse
// @Failure 404 {object} errors.APIError
// @Router /api/v1/datasets/{id} [get]
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	id, ok := datasetIDParam(c)
	if !ok {
		return
	}

	ds, err := h.results.GetDataset(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	resp := ds.ToResponse()
	resp.Runs = make(map[models.RunKind]*models.StatusRecord, len(models.AllRunKinds))
	for _, kind := range models.AllRunKinds {
		resp.Runs[kind] = h.status(c, id, kind)
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewDataset returns the first rows of a dataset
// @Summary Preview dataset
// @Tags datasets
// @Produce json
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Param limit query int false "Row limit (default 100, max 1000)"
// @Success 200 {object} models.DatasetPreview
// @Failure 404 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /api/v1/datasets/{id}/preview [get]
func (h *DatasetHandler) PreviewDataset(c *gin.Context) {
	id, ok := datasetIDParam(c)
	if !ok {
		return
	}

	var query models.PreviewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errors.Validation("limit must be an integer", err))
		return
	}
	if err := validation.Validate(query); err != nil {
		c.JSON(http.StatusBadRequest, validation.ToAPIError(err))
		return
	}
	if query.Limit == 0 {
		query.Limit = h.opt.PreviewLimit
	}

	ctx := c.Request.Context()
	meta, err := h.results.GetDataset(ctx, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	rc, err := h.datasets.ReadDataset(ctx, meta.StorageKey)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	defer rc.Close()

	ds, err := dataset.Read(rc, dataset.DefaultOptions())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	ds.ID = meta.ID

	c.JSON(http.StatusOK, ds.Preview(query.Limit))
}

// ExportDataset streams the stored file back as an attachment
// @Summary Export dataset
// @Tags datasets
// @Produce octet-stream
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Success 200 {file} file
// @Failure 404 {object} errors.APIError
// @Router /api/v1/datasets/{id}/export [get]
func (h *DatasetHandler) ExportDataset(c *gin.Context) {
	id, ok := datasetIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	meta, err := h.results.GetDataset(ctx, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	rc, err := h.datasets.ReadDataset(ctx, meta.StorageKey)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	defer rc.Close()

	size := meta.SizeBytes
	if size <= 0 {
		size = -1
	}
	fileName := meta.FileName
	if fileName == "" {
		fileName = meta.ID + ".csv"
	}
	c.DataFromReader(http.StatusOK, size, "application/octet-stream", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, fileName),
	})
}

// DeleteDataset removes the stored file, every result and every run status
// @Summary Delete dataset
// @Tags datasets
// @Security Bearer
// @Param id path string true "Dataset ID"
// @Success 204
// @Failure 404 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /api/v1/datasets/{id} [delete]
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	id, ok := datasetIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	log := middleware.GetLogger(c, h.logger)

	ds, err := h.results.GetDataset(ctx, id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	// a worker finishing after the delete would write its status back
	for _, kind := range models.AllRunKinds {
		if h.runs.InFlight(id, kind) {
			handleServiceError(c, h.logger, errors.RunInProgress(id, string(kind)))
			return
		}
	}

	if err := h.datasets.Delete(ctx, ds.StorageKey); err != nil && !errors.IsNotFound(err) {
		handleServiceError(c, h.logger, err)
		return
	}
	if err := h.results.DeleteDataset(ctx, id); err != nil && !errors.IsNotFound(err) {
		handleServiceError(c, h.logger, err)
		return
	}
	if err := h.statuses.DeleteStatuses(ctx, id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	log.Info("Dataset deleted", zap.String("dataset_id", id))
	c.Status(http.StatusNoContent)
}

// status returns the current record for a key, falling back to not_started
func (h *DatasetHandler) status(c *gin.Context, datasetID string, kind models.RunKind) *models.StatusRecord {
	record, err := h.runs.Status(c.Request.Context(), datasetID, kind)
	if err != nil {
		middleware.GetLogger(c, h.logger).Warn("Failed to read run status",
			zap.String("dataset_id", datasetID),
			zap.String("run_kind", string(kind)),
			zap.Error(err),
		)
		return models.NotStarted(datasetID, kind)
	}
	return record
}

// datasetIDParam reads and validates the :id path parameter
func datasetIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := validation.ValidateVar(id, "required,uuid"); err != nil {
		c.JSON(http.StatusBadRequest, errors.Validation("Dataset ID must be a valid UUID", err))
		return "", false
	}
	return id, true
}

func contentTypeFor(fileName string) string {
	if strings.EqualFold(filepath.Ext(fileName), ".tsv") {
		return "text/tab-separated-values"
	}
	return "text/csv"
}
