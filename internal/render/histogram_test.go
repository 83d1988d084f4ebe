package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/couchcryptid/collisions-dashboard/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramWith(counts map[int]int) views.Histogram {
	h := views.Histogram{
		Hour:    8,
		Title:   "Breakdown by minute between 8:00 and 9:00",
		Minutes: make([]views.MinuteCount, views.MinutesPerHour),
	}
	for i := range h.Minutes {
		h.Minutes[i] = views.MinuteCount{Minute: i, Crashes: counts[i]}
		h.Total += counts[i]
	}
	return h
}

func TestHistogramSVG(t *testing.T) {
	var buf bytes.Buffer
	err := HistogramSVG(&buf, histogramWith(map[int]int{0: 3, 17: 1, 59: 2}))
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<svg"), "output should be an SVG document")
	assert.Contains(t, out, "Breakdown by minute between 8:00 and 9:00")
	assert.Contains(t, out, ">55<")
}

func TestHistogramSVG_EmptyHour(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HistogramSVG(&buf, histogramWith(nil)))
	assert.Contains(t, buf.String(), "</svg>")
}
