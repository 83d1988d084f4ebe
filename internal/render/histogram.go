// Package render draws dashboard charts.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/collisions-dashboard/internal/views"
	chart "github.com/wcharczuk/go-chart/v2"
)

// Histogram chart dimensions in pixels.
const (
	HistogramWidth  = 960
	HistogramHeight = 400
	labelEvery      = 5
)

// HistogramSVG writes the per-minute histogram as an SVG bar chart.
func HistogramSVG(w io.Writer, h views.Histogram) error {
	bars := make([]chart.Value, 0, len(h.Minutes))
	for _, m := range h.Minutes {
		label := ""
		if m.Minute%labelEvery == 0 {
			label = strconv.Itoa(m.Minute)
		}
		bars = append(bars, chart.Value{Value: float64(m.Crashes), Label: label})
	}

	graph := chart.BarChart{
		Title:      h.Title,
		Width:      HistogramWidth,
		Height:     HistogramHeight,
		BarWidth:   10,
		BarSpacing: 4,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Name:  "crashes",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max(h.MaxCrashes(), 1))},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}
	return nil
}
