package models

import "time"

// ChartType is a supported visualization kind
type ChartType string

const (
	ChartLine      ChartType = "line"
	ChartArea      ChartType = "area"
	ChartBar       ChartType = "bar"
	ChartPie       ChartType = "pie"
	ChartScatter   ChartType = "scatter"
	ChartMap       ChartType = "map"
	ChartHistogram ChartType = "histogram"
	ChartBox       ChartType = "box"
	ChartHeatmap   ChartType = "heatmap"
	ChartKPI       ChartType = "kpi"
)

// ChartRecommendation is one ranked suggestion for a column pair
type ChartRecommendation struct {
	ChartType ChartType `json:"chart_type"`
	Priority  int       `json:"priority"`
	Reason    string    `json:"reason"`
}

// ChartFilter narrows the rows a chart renders
type ChartFilter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// ChartConfig describes a renderable chart. ID is derived from its inputs.
type ChartConfig struct {
	ID           string                 `json:"id"`
	Type         ChartType              `json:"type"`
	Title        string                 `json:"title"`
	XAxis        string                 `json:"x_axis"`
	YAxis        string                 `json:"y_axis,omitempty"`
	Aggregation  string                 `json:"aggregation,omitempty"`
	Filters      []ChartFilter          `json:"filters"`
	ChartOptions map[string]interface{} `json:"chart_options,omitempty"`
	Priority     int                    `json:"priority"`
	Reason       string                 `json:"reason,omitempty"`
}

// Placement is a chart rectangle on the grid
type Placement struct {
	ChartID string `json:"chart_id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	W       int    `json:"w"`
	H       int    `json:"h"`
}

// Overlaps reports whether two placements share any grid cell
func (p Placement) Overlaps(o Placement) bool {
	return p.X < o.X+o.W && o.X < p.X+p.W && p.Y < o.Y+o.H && o.Y < p.Y+p.H
}

// DashboardLayout is a non-overlapping grid placement of charts
type DashboardLayout struct {
	Cols       int         `json:"cols"`
	Rows       int         `json:"rows"`
	Placements []Placement `json:"placements"`
}

// Placement returns the rectangle assigned to a chart id
func (l *DashboardLayout) Placement(chartID string) (Placement, bool) {
	for _, p := range l.Placements {
		if p.ChartID == chartID {
			return p, true
		}
	}
	return Placement{}, false
}

// Dashboard is the persisted output of a dashboard generation run
type Dashboard struct {
	DatasetID   string          `json:"dataset_id"`
	Charts      []ChartConfig   `json:"charts"`
	Layout      DashboardLayout `json:"layout"`
	GeneratedAt time.Time       `json:"generated_at"`
}
