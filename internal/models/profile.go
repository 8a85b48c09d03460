package models

import "time"

// DetectedType is the inferred semantic storage type of a column
type DetectedType string

const (
	TypeUnknown     DetectedType = "unknown"
	TypeInteger     DetectedType = "integer"
	TypeFloat       DetectedType = "float"
	TypeCurrency    DetectedType = "currency"
	TypePercentage  DetectedType = "percentage"
	TypeBoolean     DetectedType = "boolean"
	TypeDate        DetectedType = "date"
	TypeDateTime    DetectedType = "datetime"
	TypeTime        DetectedType = "time"
	TypeEmail       DetectedType = "email"
	TypeURL         DetectedType = "url"
	TypePhone       DetectedType = "phone"
	TypeZip         DetectedType = "zip"
	TypeIP          DetectedType = "ip"
	TypeUUID        DetectedType = "uuid"
	TypeCreditCard  DetectedType = "credit_card"
	TypeLatitude    DetectedType = "latitude"
	TypeLongitude   DetectedType = "longitude"
	TypeIdentifier  DetectedType = "identifier"
	TypeCategorical DetectedType = "categorical"
	TypeText        DetectedType = "text"
)

// IsNumeric reports whether values of this type carry numeric statistics
func (t DetectedType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeCurrency, TypePercentage, TypeLatitude, TypeLongitude:
		return true
	}
	return false
}

// IsTemporal reports whether the type orders rows in time
func (t DetectedType) IsTemporal() bool {
	return t == TypeDate || t == TypeDateTime
}

// IsCategorical reports whether the type groups rows into a small set of buckets
func (t DetectedType) IsCategorical() bool {
	return t == TypeCategorical || t == TypeBoolean
}

// IsCoordinate reports whether the type is a geographic coordinate
func (t DetectedType) IsCoordinate() bool {
	return t == TypeLatitude || t == TypeLongitude
}

// Storage types describe how a column would be held without semantic inference
const (
	StorageInt64   = "int64"
	StorageFloat64 = "float64"
	StorageBool    = "bool"
	StorageString  = "string"
)

// QualityLabel is the human readable band of a quality score
type QualityLabel string

const (
	QualityExcellent QualityLabel = "Excellent"
	QualityGood      QualityLabel = "Good"
	QualityFair      QualityLabel = "Fair"
	QualityPoor      QualityLabel = "Poor"
)

// LabelForScore maps a 0-100 score onto its quality band
func LabelForScore(score float64) QualityLabel {
	switch {
	case score >= 90:
		return QualityExcellent
	case score >= 75:
		return QualityGood
	case score >= 60:
		return QualityFair
	default:
		return QualityPoor
	}
}

// ValueCount is a value and its number of occurrences
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnStatistics holds numeric summary statistics
type ColumnStatistics struct {
	Count                  int     `json:"count"`
	Min                    float64 `json:"min"`
	Max                    float64 `json:"max"`
	Mean                   float64 `json:"mean"`
	Median                 float64 `json:"median"`
	StdDev                 float64 `json:"std_dev"`
	Q1                     float64 `json:"q1"`
	Q3                     float64 `json:"q3"`
	Sum                    float64 `json:"sum"`
	Skewness               float64 `json:"skewness"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
}

// ColumnProfile describes one column's inferred type, completeness and statistics
type ColumnProfile struct {
	Name                string            `json:"name"`
	Position            int               `json:"position"`
	DetectedType        DetectedType      `json:"detected_type"`
	Subtype             string            `json:"subtype,omitempty"`
	Confidence          float64           `json:"confidence"`
	Format              string            `json:"format,omitempty"`
	OriginalStorageType string            `json:"original_storage_type"`
	NullCount           int               `json:"null_count"`
	UniqueCount         int               `json:"unique_count"`
	Completeness        float64           `json:"completeness"`
	Uniqueness          float64           `json:"uniqueness"`
	SampleValues        []string          `json:"sample_values"`
	TopValues           []ValueCount      `json:"top_values,omitempty"`
	Statistics          *ColumnStatistics `json:"statistics,omitempty"`
	DateStatistics      *DateStatistics   `json:"date_statistics,omitempty"`
}

// DateStatistics summarizes the parsed values of a temporal column. Modes
// resolve ties to the smallest value.
type DateStatistics struct {
	Count           int       `json:"count"`
	MinDate         time.Time `json:"min_date"`
	MaxDate         time.Time `json:"max_date"`
	RangeDays       int       `json:"date_range_days"`
	YearRange       string    `json:"year_range"`
	MostCommonYear  int       `json:"most_common_year"`
	MostCommonMonth int       `json:"most_common_month"`
}

// DataQualityMetrics summarizes dataset-wide quality
type DataQualityMetrics struct {
	Score             float64      `json:"score"`
	Label             QualityLabel `json:"label"`
	Completeness      float64      `json:"completeness"`
	Uniqueness        float64      `json:"uniqueness"`
	Consistency       float64      `json:"consistency"`
	MissingValueCount int          `json:"missing_value_count"`
	DuplicateRowCount int          `json:"duplicate_row_count"`
	TotalCells        int          `json:"total_cells"`
}

// DatasetProfile is the persisted output of a profiling run
type DatasetProfile struct {
	DatasetID   string             `json:"dataset_id"`
	RowCount    int                `json:"row_count"`
	ColumnCount int                `json:"column_count"`
	RaggedRows  int                `json:"ragged_rows"`
	Columns     []ColumnProfile    `json:"columns"`
	Quality     DataQualityMetrics `json:"quality"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Column returns the profile with the given name
func (p *DatasetProfile) Column(name string) (ColumnProfile, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// ColumnsOfKind returns the profiles accepted by the predicate, in header order
func (p *DatasetProfile) ColumnsOfKind(accept func(DetectedType) bool) []ColumnProfile {
	var out []ColumnProfile
	for _, c := range p.Columns {
		if accept(c.DetectedType) {
			out = append(out, c)
		}
	}
	return out
}
