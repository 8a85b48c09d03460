package models

import "time"

// InsightType tags the variant of an insight
type InsightType string

const (
	InsightCorrelation       InsightType = "correlation"
	InsightOutlier           InsightType = "outlier"
	InsightTrend             InsightType = "trend"
	InsightFeatureImportance InsightType = "feature_importance"
	InsightSummary           InsightType = "summary"
	InsightDataQuality       InsightType = "data_quality"
	InsightMissingValues     InsightType = "missing_values"
	InsightVariability       InsightType = "variability"
	InsightDistribution      InsightType = "distribution"
	InsightUniqueIdentifier  InsightType = "unique_identifier"
	InsightCategorical       InsightType = "categorical"
)

// Priority ranks insights for display
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities, lower is more important
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Insight is a human readable finding about the dataset
type Insight struct {
	ID          string                 `json:"id"`
	Type        InsightType            `json:"type"`
	Priority    Priority               `json:"priority"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Actionable  string                 `json:"actionable"`
	Columns     []string               `json:"columns,omitempty"`
	Confidence  float64                `json:"confidence"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// CorrelationStrength bands the absolute correlation value
type CorrelationStrength string

const (
	StrengthModerate CorrelationStrength = "moderate"
	StrengthStrong   CorrelationStrength = "strong"
)

// Direction is the sign of a relationship
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// Correlation is a Pearson relationship between two numeric columns.
// ColumnX always precedes ColumnY in header order.
type Correlation struct {
	ColumnX    string              `json:"column_x"`
	ColumnY    string              `json:"column_y"`
	Value      float64             `json:"correlation_value"`
	Strength   CorrelationStrength `json:"strength"`
	Direction  Direction           `json:"direction"`
	// VeryStrong marks |r| >= 0.9 within the strong band.
	VeryStrong bool                `json:"very_strong,omitempty"`
	SampleSize int                 `json:"sample_size"`
}

// Outlier summarizes values outside Tukey's fences for one column
type Outlier struct {
	Column         string    `json:"column"`
	Count          int       `json:"count"`
	Percentage     float64   `json:"percentage"`
	LowerBound     float64   `json:"lower_bound"`
	UpperBound     float64   `json:"upper_bound"`
	Q1             float64   `json:"q1"`
	Q3             float64   `json:"q3"`
	IQR            float64   `json:"iqr"`
	ZScoreCount    int       `json:"z_score_count"`
	Values         []float64 `json:"values,omitempty"`
	Interpretation string    `json:"interpretation"`
}

// TrendDirection is the movement of a series over time
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Trend is a linear fit of a numeric column ordered by a date column.
// TrendStrength is |slope| weighted by R².
type Trend struct {
	DateColumn       string         `json:"date_column"`
	ValueColumn      string         `json:"value_column"`
	Direction        TrendDirection `json:"direction"`
	Slope            float64        `json:"slope"`
	ChangeRate       float64        `json:"change_rate"`
	RSquared         float64        `json:"r_squared"`
	PercentageChange float64        `json:"percentage_change"`
	DataPoints       int            `json:"data_points"`
	StartValue       float64        `json:"start_value"`
	EndValue         float64        `json:"end_value"`
	Forecast         []float64      `json:"forecast"`
	TrendStrength    float64        `json:"trend_strength"`
	PValue           float64        `json:"p_value"`
	IsSignificant    bool           `json:"is_significant"`
	Seasonality      *Seasonality   `json:"seasonality,omitempty"`
	Changepoints     []Changepoint  `json:"changepoints"`
}

// Seasonality is the dominant periodic component of a detrended series.
// Period counts observations.
type Seasonality struct {
	Detected bool    `json:"detected"`
	Period   int     `json:"period,omitempty"`
	Strength float64 `json:"strength,omitempty"`
}

// Changepoint is an index where the mean level of a series shifts
type Changepoint struct {
	Index            int       `json:"index"`
	At               time.Time `json:"at"`
	BeforeMean       float64   `json:"before_mean"`
	AfterMean        float64   `json:"after_mean"`
	ChangePercentage float64   `json:"change_percentage"`
	Significance     float64   `json:"significance"`
}

// InsightReport is the persisted output of an insight generation run
type InsightReport struct {
	DatasetID    string        `json:"dataset_id"`
	Insights     []Insight     `json:"insights"`
	Correlations []Correlation `json:"correlations"`
	Outliers     []Outlier     `json:"outliers"`
	Trends       []Trend       `json:"trends"`
	Summary      string        `json:"summary"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// TopCorrelations returns at most n correlations, strongest first
func (r *InsightReport) TopCorrelations(n int) []Correlation {
	if n < 0 || n >= len(r.Correlations) {
		return r.Correlations
	}
	return r.Correlations[:n]
}
