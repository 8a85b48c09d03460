package models

import "time"

// SemanticType is a business-meaning classification of a column
type SemanticType string

const (
	SemanticIdentifier   SemanticType = "identifier"
	SemanticPersonalName SemanticType = "personal_name"
	SemanticEmail        SemanticType = "email"
	SemanticPhone        SemanticType = "phone"
	SemanticAddress      SemanticType = "address"
	SemanticDateTime     SemanticType = "date_time"
	SemanticCurrency     SemanticType = "currency"
	SemanticPercentage   SemanticType = "percentage"
	SemanticCategory     SemanticType = "category"
	SemanticQuantity     SemanticType = "quantity"
	SemanticCoordinates  SemanticType = "coordinates"
	SemanticURL          SemanticType = "url"
	SemanticDescription  SemanticType = "description"
	SemanticUnknown      SemanticType = "unknown"
)

// ClassificationColumn is the per-column payload sent to a classifier
type ClassificationColumn struct {
	Name         string   `json:"name" validate:"required"`
	Type         string   `json:"type"`
	SampleValues []string `json:"sample_values"`
}

// ClassificationRequest is the JSON payload sent to a classifier
type ClassificationRequest struct {
	DatasetID string                 `json:"dataset_id" validate:"required"`
	Columns   []ClassificationColumn `json:"columns" validate:"required,dive"`
}

// NewClassificationRequest builds a request from a dataset profile
func NewClassificationRequest(profile *DatasetProfile) ClassificationRequest {
	cols := make([]ClassificationColumn, 0, len(profile.Columns))
	for _, c := range profile.Columns {
		cols = append(cols, ClassificationColumn{
			Name:         c.Name,
			Type:         string(c.DetectedType),
			SampleValues: c.SampleValues,
		})
	}
	return ClassificationRequest{DatasetID: profile.DatasetID, Columns: cols}
}

// ColumnClassification is one classifier verdict
type ColumnClassification struct {
	ColumnName   string       `json:"column_name"`
	OriginalType string       `json:"original_type"`
	SemanticType SemanticType `json:"semantic_type"`
	Confidence   float64      `json:"confidence"`
	Method       string       `json:"method"`
}

// ClassificationResponse is the JSON payload returned by a classifier
type ClassificationResponse struct {
	DatasetID       string                 `json:"dataset_id"`
	Classifications []ColumnClassification `json:"classifications"`
	Error           string                 `json:"error,omitempty"`
}

// SemanticReport is the persisted output of a semantic analysis run
type SemanticReport struct {
	DatasetID       string                 `json:"dataset_id"`
	Classifier      string                 `json:"classifier"`
	Classifications []ColumnClassification `json:"classifications"`
	GeneratedAt     time.Time              `json:"generated_at"`
}
