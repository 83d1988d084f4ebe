// Package http serves the collisions dashboard: the HTML page, the JSON,
// GeoJSON and SVG view endpoints, and the health and metrics routes.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/dashboard"
	"github.com/couchcryptid/collisions-dashboard/internal/views"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard is the view service behind the HTTP routes.
type Dashboard interface {
	CheckReadiness(ctx context.Context) error
	OnInjuryThreshold(ctx context.Context, threshold int) (views.InjuryMapResult, error)
	OnHour(ctx context.Context, hour int) (dashboard.HourViews, error)
	OnMinutes(ctx context.Context, hour int) (views.Histogram, error)
	OnCategory(ctx context.Context, category, metric string) (views.StreetRanking, error)
	OnRawToggle(ctx context.Context, show bool, opts views.RawOptions) (*views.RawTable, error)
	Snapshot(ctx context.Context, c dashboard.Controls) (dashboard.Page, error)
	Invalidate(ctx context.Context)
}

// MapOptions configure the page's deck.gl maps. An empty Token draws the
// layers without a Mapbox base map.
type MapOptions struct {
	Style string
	Token string
}

// Server exposes the dashboard, health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	maps       MapOptions
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the dashboard page, the /api/v1 view
// routes, /healthz, /readyz, and /metrics.
func NewServer(addr string, dash Dashboard, maps MapOptions, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dash:   dash,
		maps:   maps,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/v1/injuries", s.handleInjuries)
	mux.HandleFunc("GET /api/v1/density", s.handleDensity)
	mux.HandleFunc("GET /api/v1/minutes", s.handleMinutes)
	mux.HandleFunc("GET /api/v1/minutes.svg", s.handleMinutesSVG)
	mux.HandleFunc("GET /api/v1/streets", s.handleStreets)
	mux.HandleFunc("GET /api/v1/raw", s.handleRaw)
	mux.HandleFunc("POST /api/v1/cache/invalidate", s.handleInvalidate)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(dash))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
