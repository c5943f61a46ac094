// Package charts renders chart images for the API layer.
package charts

import (
	"errors"
	"fmt"

	"github.com/vicanso/go-charts/v2"

	"github.com/reotam5/stock-visualizer/internal/portfolio"
)

// RenderGrowthChart renders the simulated portfolio value series as a PNG
// line chart. Date labels follow the window: month/day for short windows,
// month/year for anything beyond a month.
func RenderGrowthChart(series portfolio.ValueSeries, windowDays int) ([]byte, error) {
	if len(series) == 0 {
		return nil, errors.New("empty series")
	}

	xAxis := make([]string, 0, len(series))
	values := make([]float64, 0, len(series))
	for _, p := range series {
		if windowDays <= 30 {
			xAxis = append(xAxis, p.Date.Format("1/2"))
		} else {
			xAxis = append(xAxis, p.Date.Format("1/06"))
		}
		values = append(values, p.Value)
	}

	painter, err := charts.LineRender([][]float64{values},
		charts.TitleTextOptionFunc(fmt.Sprintf("Portfolio Growth • %dd", windowDays)),
		charts.XAxisDataOptionFunc(xAxis),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}
