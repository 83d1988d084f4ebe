// Package dashboard wires the dashboard controls to the views: one handler per
// control, each deriving a fresh view from the cached table.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/observability"
	"github.com/couchcryptid/collisions-dashboard/internal/views"
)

// TableProvider returns the loaded table for a row limit.
type TableProvider interface {
	Get(ctx context.Context, rowLimit int) (*domain.Table, error)
	Invalidate(ctx context.Context, rowLimit int)
	InvalidateAll(ctx context.Context)
}

// Controls are the dashboard's interactive inputs.
type Controls struct {
	Injured  int    `json:"injured"`
	Hour     int    `json:"hour"`
	Category string `json:"category"`
	Metric   string `json:"metric,omitempty"`
	ShowRaw  bool   `json:"show_raw"`
}

// DefaultControls mirrors the initial widget positions.
func DefaultControls() Controls {
	return Controls{Category: domain.Pedestrians.String()}
}

// TableInfo summarizes the table a page was derived from.
type TableInfo struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Rows        int       `json:"rows"`
	RowsDropped int       `json:"rows_dropped"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// HourViews are the two views driven by the hour slider.
type HourViews struct {
	Density   views.Density   `json:"density"`
	Histogram views.Histogram `json:"histogram"`
}

// Page holds every view for one render.
type Page struct {
	Controls Controls              `json:"controls"`
	Table    TableInfo             `json:"table"`
	Injuries views.InjuryMapResult `json:"injuries"`
	Hour     HourViews             `json:"hour"`
	Streets  views.StreetRanking   `json:"streets"`
	Raw      *views.RawTable       `json:"raw,omitempty"`
}

// ReadinessChecker is an optional backing service that must be reachable for
// the dashboard to report ready.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

type dependency struct {
	name    string
	checker ReadinessChecker
}

// Service serves the dashboard views over a cached table.
type Service struct {
	tables   TableProvider
	rowLimit int
	places   domain.PlaceResolver // nil disables midpoint labels
	logger   *slog.Logger
	metrics  *observability.Metrics
	deps     []dependency
	ready    atomic.Bool
}

// New creates a Service reading rowLimit rows through tables. places may be nil.
func New(tables TableProvider, rowLimit int, places domain.PlaceResolver, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		tables:   tables,
		rowLimit: rowLimit,
		places:   places,
		logger:   logger,
		metrics:  metrics,
	}
}

// Warm loads the table once so the first request is served from cache.
func (s *Service) Warm(ctx context.Context) error {
	t, err := s.table(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("dashboard ready", "table_id", t.ID, "rows", t.Len())
	return nil
}

// AddDependency makes readiness also require c. Call before serving.
func (s *Service) AddDependency(name string, c ReadinessChecker) {
	s.deps = append(s.deps, dependency{name: name, checker: c})
}

// CheckReadiness returns nil once a table has been loaded and every
// registered dependency answers.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if !s.ready.Load() {
		return errors.New("collisions table has not been loaded yet")
	}
	for _, d := range s.deps {
		if err := d.checker.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// OnInjuryThreshold handles the injured-persons slider.
func (s *Service) OnInjuryThreshold(ctx context.Context, threshold int) (views.InjuryMapResult, error) {
	if err := views.ValidateThreshold(threshold); err != nil {
		return views.InjuryMapResult{}, err
	}
	t, err := s.table(ctx)
	if err != nil {
		return views.InjuryMapResult{}, err
	}
	res, err := views.InjuryMap(t, threshold)
	if err != nil {
		return views.InjuryMapResult{}, err
	}
	s.observe("injuries", len(res.Points))
	return res, nil
}

// OnHour handles the hour slider: the density map and the per-minute histogram.
func (s *Service) OnHour(ctx context.Context, hour int) (HourViews, error) {
	if err := views.ValidateHour(hour); err != nil {
		return HourViews{}, err
	}
	t, err := s.table(ctx)
	if err != nil {
		return HourViews{}, err
	}

	density, err := views.HourDensity(t, hour)
	if err != nil {
		return HourViews{}, err
	}
	hist, err := views.MinuteHistogram(t, hour)
	if err != nil {
		return HourViews{}, err
	}
	density.Place = s.placeName(ctx, density)

	s.observe("density", len(density.Positions))
	s.observe("minutes", hist.Total)
	return HourViews{Density: density, Histogram: hist}, nil
}

// OnMinutes derives only the per-minute histogram for an hour. It skips the
// density view and the midpoint lookup.
func (s *Service) OnMinutes(ctx context.Context, hour int) (views.Histogram, error) {
	if err := views.ValidateHour(hour); err != nil {
		return views.Histogram{}, err
	}
	t, err := s.table(ctx)
	if err != nil {
		return views.Histogram{}, err
	}
	hist, err := views.MinuteHistogram(t, hour)
	if err != nil {
		return views.Histogram{}, err
	}
	s.observe("minutes", hist.Total)
	return hist, nil
}

// OnCategory handles the victim-category selector. metric may be empty.
func (s *Service) OnCategory(ctx context.Context, category, metric string) (views.StreetRanking, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return views.StreetRanking{}, err
	}
	m, err := views.ParseMetric(metric)
	if err != nil {
		return views.StreetRanking{}, err
	}
	t, err := s.table(ctx)
	if err != nil {
		return views.StreetRanking{}, err
	}
	res, err := views.TopStreetsBy(t, c, m)
	if err != nil {
		return views.StreetRanking{}, err
	}
	s.observe("streets", len(res.Rows))
	return res, nil
}

// OnRawToggle handles the raw-data checkbox. It returns nil when show is false.
func (s *Service) OnRawToggle(ctx context.Context, show bool, opts views.RawOptions) (*views.RawTable, error) {
	if !show {
		return nil, nil
	}
	t, err := s.table(ctx)
	if err != nil {
		return nil, err
	}
	res, err := views.RawData(t, opts)
	if err != nil {
		return nil, err
	}
	s.observe("raw", len(res.Rows))
	return &res, nil
}

// Snapshot derives every view for one page render. The raw dump follows the
// hour slider.
func (s *Service) Snapshot(ctx context.Context, c Controls) (Page, error) {
	t, err := s.table(ctx)
	if err != nil {
		return Page{}, err
	}
	page := Page{
		Controls: c,
		Table: TableInfo{
			ID:          t.ID,
			Source:      t.Source,
			Rows:        t.Len(),
			RowsDropped: t.RowsDropped,
			LoadedAt:    t.LoadedAt,
		},
	}

	if page.Injuries, err = s.OnInjuryThreshold(ctx, c.Injured); err != nil {
		return Page{}, err
	}
	if page.Hour, err = s.OnHour(ctx, c.Hour); err != nil {
		return Page{}, err
	}
	if page.Streets, err = s.OnCategory(ctx, c.Category, c.Metric); err != nil {
		return Page{}, err
	}
	hour := c.Hour
	if page.Raw, err = s.OnRawToggle(ctx, c.ShowRaw, views.RawOptions{Hour: &hour}); err != nil {
		return Page{}, err
	}
	return page, nil
}

// Invalidate drops every cached table; the next request reloads from source.
func (s *Service) Invalidate(ctx context.Context) {
	s.tables.InvalidateAll(ctx)
}

func (s *Service) table(ctx context.Context) (*domain.Table, error) {
	t, err := s.tables.Get(ctx, s.rowLimit)
	if err != nil {
		return nil, fmt.Errorf("load collisions: %w", err)
	}
	s.ready.Store(true)
	return t, nil
}

// placeName labels the density midpoint. Lookup failures only log.
func (s *Service) placeName(ctx context.Context, d views.Density) string {
	if s.places == nil || d.Empty {
		return ""
	}
	p, err := s.places.ReverseGeocode(ctx, d.Midpoint.Lat, d.Midpoint.Lon)
	if err != nil {
		s.logger.Warn("reverse geocode failed", "hour", d.Hour, "error", err)
		return ""
	}
	return p.Name
}

func (s *Service) observe(view string, rows int) {
	s.metrics.ViewRequests.WithLabelValues(view).Inc()
	s.metrics.ViewRows.WithLabelValues(view).Observe(float64(rows))
	s.logger.Debug("view derived", "view", view, "rows", rows)
}
