// Package dashboard places charts on a fixed-width grid.
package dashboard

import (
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// GridColumns is the width of the dashboard grid
const GridColumns = 12

// Size is a chart's footprint in grid cells
type Size struct {
	W int
	H int
}

var defaultSize = Size{W: 6, H: 6}

var sizes = map[models.ChartType]Size{
	models.ChartLine:      {W: 12, H: 6},
	models.ChartArea:      {W: 12, H: 6},
	models.ChartScatter:   {W: 8, H: 6},
	models.ChartPie:       {W: 4, H: 4},
	models.ChartHistogram: {W: 6, H: 5},
	models.ChartBox:       {W: 6, H: 5},
	models.ChartHeatmap:   {W: 8, H: 6},
	models.ChartMap:       {W: 12, H: 8},
	models.ChartKPI:       {W: 3, H: 2},
}

// SizeFor returns the default footprint of a chart type
func SizeFor(t models.ChartType) Size {
	if s, ok := sizes[t]; ok {
		return s
	}
	return defaultSize
}

// Layout places charts left to right in the given order, wrapping to a new
// row when a chart does not fit. A row is as tall as its tallest chart.
func Layout(charts []models.ChartConfig) models.DashboardLayout {
	layout := models.DashboardLayout{
		Cols:       GridColumns,
		Placements: make([]models.Placement, 0, len(charts)),
	}

	x, y, rowHeight := 0, 0, 0
	for _, c := range charts {
		size := SizeFor(c.Type)
		if size.W > GridColumns {
			size.W = GridColumns
		}
		if x+size.W > GridColumns {
			x = 0
			y += rowHeight
			rowHeight = 0
		}
		layout.Placements = append(layout.Placements, models.Placement{
			ChartID: c.ID,
			X:       x,
			Y:       y,
			W:       size.W,
			H:       size.H,
		})
		x += size.W
		if size.H > rowHeight {
			rowHeight = size.H
		}
	}
	layout.Rows = y + rowHeight
	return layout
}

// Validate reports whether every placement fits the grid and none overlap
func Validate(layout models.DashboardLayout) bool {
	for i, p := range layout.Placements {
		if p.X < 0 || p.Y < 0 || p.W <= 0 || p.H <= 0 || p.X+p.W > layout.Cols || p.Y+p.H > layout.Rows {
			return false
		}
		for _, o := range layout.Placements[i+1:] {
			if p.Overlaps(o) {
				return false
			}
		}
	}
	return true
}
