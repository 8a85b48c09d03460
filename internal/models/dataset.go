package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Row is one data record aligned with the dataset header
type Row []string

// Get returns the raw value at column index i, or "" when out of range
func (r Row) Get(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Dataset represents an uploaded tabular dataset
type Dataset struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=1,max=255"`
	FileName    string    `json:"file_name"`
	StorageKey  string    `json:"storage_key,omitempty"`
	SizeBytes   int64     `json:"size_bytes" validate:"min=0"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Materialized content, populated by the reader. Immutable once read.
	Header     []string `json:"header"`
	Rows       []Row    `json:"-"`
	RaggedRows int      `json:"ragged_rows"`
}

// DatasetUploadRequest represents the metadata sent with an upload
type DatasetUploadRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255,no_control"`
	FileName string `json:"file_name" validate:"required,filename,dataset_file"`
}

// RunRequest identifies a run from the URL path
type RunRequest struct {
	DatasetID string `uri:"id" json:"dataset_id" validate:"required,uuid"`
	Kind      string `uri:"kind" json:"run_kind" validate:"required,run_kind"`
}

// PreviewQuery holds the preview query parameters
type PreviewQuery struct {
	Limit int `form:"limit" validate:"gte=0,lte=1000"`
}

// DatasetResponse represents the upload response payload
type DatasetResponse struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name"`
	FileName   string                    `json:"file_name"`
	StorageKey string                    `json:"storage_key"`
	SizeBytes  int64                     `json:"size_bytes"`
	CreatedAt  time.Time                 `json:"created_at"`
	Runs       map[RunKind]*StatusRecord `json:"runs,omitempty"`
}

// DatasetPreview represents the first rows of a dataset
type DatasetPreview struct {
	DatasetID string              `json:"dataset_id"`
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	Total     int                 `json:"total_rows"`
	Limit     int                 `json:"limit"`
}

// NewDataset creates a new dataset record for an upload
func NewDataset(req DatasetUploadRequest, sizeBytes int64) *Dataset {
	id := uuid.New().String()
	return &Dataset{
		ID:          id,
		Name:        req.Name,
		FileName:    req.FileName,
		StorageKey:  BuildStorageKey(id, req.FileName),
		SizeBytes:   sizeBytes,
		ContentType: "text/csv",
		CreatedAt:   time.Now(),
	}
}

// BuildStorageKey returns the object key for a dataset file
func BuildStorageKey(datasetID, fileName string) string {
	name := strings.ReplaceAll(strings.TrimSpace(fileName), "/", "_")
	if name == "" {
		name = "data.csv"
	}
	return "datasets/" + datasetID + "/" + name
}

// ToResponse converts a dataset to its response form
func (d *Dataset) ToResponse() *DatasetResponse {
	return &DatasetResponse{
		ID:         d.ID,
		Name:       d.Name,
		FileName:   d.FileName,
		StorageKey: d.StorageKey,
		SizeBytes:  d.SizeBytes,
		CreatedAt:  d.CreatedAt,
	}
}

// RowCount returns the number of data rows
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// ColumnCount returns the number of header columns
func (d *Dataset) ColumnCount() int {
	return len(d.Header)
}

// IsEmpty reports whether the dataset has a header but no rows
func (d *Dataset) IsEmpty() bool {
	return len(d.Rows) == 0
}

// ColumnIndex returns the position of a column in the header, or -1
func (d *Dataset) ColumnIndex(name string) int {
	for i, h := range d.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns every raw value of the column at index i in row order
func (d *Dataset) Column(i int) []string {
	values := make([]string, len(d.Rows))
	for r, row := range d.Rows {
		values[r] = row.Get(i)
	}
	return values
}

// Value returns the raw value for a row index and column name
func (d *Dataset) Value(row int, column string) string {
	if row < 0 || row >= len(d.Rows) {
		return ""
	}
	return d.Rows[row].Get(d.ColumnIndex(column))
}

// Preview returns up to limit rows keyed by column name
func (d *Dataset) Preview(limit int) *DatasetPreview {
	if limit <= 0 || limit > len(d.Rows) {
		limit = len(d.Rows)
	}
	rows := make([]map[string]string, 0, limit)
	for _, row := range d.Rows[:limit] {
		record := make(map[string]string, len(d.Header))
		for i, h := range d.Header {
			record[h] = row.Get(i)
		}
		rows = append(rows, record)
	}
	return &DatasetPreview{
		DatasetID: d.ID,
		Columns:   d.Header,
		Rows:      rows,
		Total:     len(d.Rows),
		Limit:     limit,
	}
}
