package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/collisions-dashboard/internal/render"
	"github.com/couchcryptid/collisions-dashboard/internal/views"
	geojson "github.com/paulmach/go.geojson"
)

var errBadParam = errors.New("invalid query parameter")

func (s *Server) handleInjuries(w http.ResponseWriter, r *http.Request) {
	threshold, err := intParam(r, "min", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.dash.OnInjuryThreshold(r.Context(), threshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := injuryFeatures(res).MarshalJSON()
	if err != nil {
		s.writeError(w, r, fmt.Errorf("encode geojson: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDensity(w http.ResponseWriter, r *http.Request) {
	hour, err := intParam(r, "hour", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hv, err := s.dash.OnHour(r.Context(), hour)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hv.Density)
}

func (s *Server) handleMinutes(w http.ResponseWriter, r *http.Request) {
	hour, err := intParam(r, "hour", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hist, err := s.dash.OnMinutes(r.Context(), hour)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleMinutesSVG(w http.ResponseWriter, r *http.Request) {
	hour, err := intParam(r, "hour", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hist, err := s.dash.OnMinutes(r.Context(), hour)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.HistogramSVG(&buf, hist); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleStreets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.dash.OnCategory(r.Context(), q.Get("category"), q.Get("metric"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	opts := views.RawOptions{}
	if r.URL.Query().Has("hour") {
		hour, err := intParam(r, "hour", 0)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		opts.Hour = &hour
	}
	limit, err := intParam(r, "limit", views.DefaultRawLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Limit = limit

	raw, err := s.dash.OnRawToggle(r.Context(), true, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.dash.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// injuryFeatures encodes the injury map as point features with [lon, lat]
// coordinates.
func injuryFeatures(res views.InjuryMapResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range res.Points {
		f := geojson.NewPointFeature([]float64{p.Lon, p.Lat})
		f.SetProperty("id", p.ID)
		f.SetProperty("injured_persons", p.Injured)
		fc.AddFeature(f)
	}
	return fc
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, v)
	}
	return n, nil
}

// writeError maps input errors to 400 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if views.IsInputError(err) || errors.Is(err, errBadParam) {
		status = http.StatusBadRequest
	} else {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
