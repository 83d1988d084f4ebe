package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/couchcryptid/collisions-dashboard/internal/dashboard"
	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/render"
	"github.com/couchcryptid/collisions-dashboard/internal/views"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type pageData struct {
	dashboard.Page
	MapStyle     string
	MapToken     string
	Categories   []string
	MaxInjured   int
	MaxHour      int
	HistogramSVG template.HTML
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	c, err := controlsFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.dash.Snapshot(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var svg bytes.Buffer
	if err := render.HistogramSVG(&svg, page.Hour.Histogram); err != nil {
		s.writeError(w, r, err)
		return
	}

	data := pageData{
		Page:         page,
		MapStyle:     s.maps.Style,
		MapToken:     s.maps.Token,
		MaxInjured:   views.MaxInjuryThreshold,
		MaxHour:      views.MaxHour,
		HistogramSVG: template.HTML(svg.String()), //nolint:gosec // rendered from counts and fixed labels
	}
	for _, cat := range domain.Categories() {
		data.Categories = append(data.Categories, cat.String())
	}

	var body bytes.Buffer
	if err := pageTemplate.Execute(&body, data); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

// controlsFromQuery reads the widget values: injured, hour, category, show_raw.
func controlsFromQuery(r *http.Request) (dashboard.Controls, error) {
	c := dashboard.DefaultControls()
	q := r.URL.Query()

	var err error
	if c.Injured, err = intParam(r, "injured", c.Injured); err != nil {
		return c, err
	}
	if c.Hour, err = intParam(r, "hour", c.Hour); err != nil {
		return c, err
	}
	if v := q.Get("category"); v != "" {
		c.Category = v
	}
	c.Metric = q.Get("metric")
	if v := q.Get("show_raw"); v != "" {
		show, perr := strconv.ParseBool(v)
		if perr != nil {
			return c, fmt.Errorf("%w: show_raw=%q", errBadParam, v)
		}
		c.ShowRaw = show
	}
	return c, nil
}
