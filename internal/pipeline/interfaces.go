// Package pipeline orchestrates analysis runs: it reads a stored dataset,
// profiles it, mines insights, synthesizes a dashboard or classifies columns,
// and persists the result while tracking run status.
package pipeline

import (
	"context"
	"io"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// DatasetSource opens the raw bytes of a stored dataset
type DatasetSource interface {
	ReadDataset(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// DatasetStore is a DatasetSource that also accepts uploads
type DatasetStore interface {
	DatasetSource
	Upload(ctx context.Context, storageKey string, body io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, storageKey string) (bool, error)
	Delete(ctx context.Context, storageKey string) error
}

// ResultStore persists dataset metadata and run artifacts. Persist calls
// replace any earlier artifact of the same kind for the dataset.
type ResultStore interface {
	SaveDataset(ctx context.Context, ds *models.Dataset) error
	GetDataset(ctx context.Context, datasetID string) (*models.Dataset, error)
	DeleteDataset(ctx context.Context, datasetID string) error

	PersistProfile(ctx context.Context, profile *models.DatasetProfile) error
	GetProfile(ctx context.Context, datasetID string) (*models.DatasetProfile, error)

	PersistInsights(ctx context.Context, report *models.InsightReport) error
	GetInsights(ctx context.Context, datasetID string) (*models.InsightReport, error)

	PersistDashboard(ctx context.Context, dashboard *models.Dashboard) error
	GetDashboard(ctx context.Context, datasetID string) (*models.Dashboard, error)

	PersistClassifications(ctx context.Context, report *models.SemanticReport) error
	GetClassifications(ctx context.Context, datasetID string) (*models.SemanticReport, error)
}

// StatusStore tracks one status record per (dataset, run kind). GetStatus
// returns a not_started record for keys without history.
type StatusStore interface {
	GetStatus(ctx context.Context, datasetID string, kind models.RunKind) (*models.StatusRecord, error)
	SetStatus(ctx context.Context, record *models.StatusRecord) error
	DeleteStatuses(ctx context.Context, datasetID string) error
}

// EventPublisher announces run lifecycle transitions
type EventPublisher interface {
	PublishRunEvent(ctx context.Context, event *models.RunEvent) error
}

// Executor performs one run synchronously
type Executor interface {
	Execute(ctx context.Context, run *models.Run) (*Outcome, error)
}

// Outcome reports how far a run got
type Outcome struct {
	CompletedStages []string
	FailedStage     string
}

// Partial reports whether stages past reading finished before a failure
func (o *Outcome) Partial() bool {
	for _, s := range o.CompletedStages {
		if s != models.StageRead {
			return true
		}
	}
	return false
}
