package views

import (
	"cmp"
	"slices"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/montanaflynn/stats"
)

// DefaultCenter is the map center used when an hour has no collisions.
var DefaultCenter = domain.Geo{Lat: 40.7128, Lon: -74.0060}

// BinPrecision is the geohash length used for server-side density bins
// (cells of roughly 150 m).
const BinPrecision = 7

// ViewState is the initial camera of the density map.
type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
	Pitch     int     `json:"pitch"`
}

// HexagonLayer carries the fixed rendering parameters of the 3D density layer.
type HexagonLayer struct {
	Radius         int    `json:"radius"`
	Extruded       bool   `json:"extruded"`
	Pickable       bool   `json:"pickable"`
	ElevationScale int    `json:"elevation_scale"`
	ElevationRange [2]int `json:"elevation_range"`
}

// DefaultHexagonLayer returns the density layer parameters.
func DefaultHexagonLayer() HexagonLayer {
	return HexagonLayer{
		Radius:         100,
		Extruded:       true,
		Pickable:       true,
		ElevationScale: 4,
		ElevationRange: [2]int{0, 1000},
	}
}

// DensityBin is one geohash cell with its collision count.
type DensityBin struct {
	Geohash string  `json:"geohash"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Count   int     `json:"count"`
}

// Density is the hour-of-day density map.
type Density struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`

	// Midpoint is the mean position of the hour's collisions. Empty marks an
	// hour without collisions; Midpoint is then zero and ViewState falls back
	// to DefaultCenter.
	Midpoint domain.Geo `json:"midpoint"`
	Empty    bool       `json:"empty"`

	// Place names the midpoint when reverse geocoding is enabled.
	Place string `json:"place,omitempty"`

	ViewState ViewState    `json:"view_state"`
	Layer     HexagonLayer `json:"layer"`

	// Positions are [lon, lat] pairs.
	Positions [][2]float64 `json:"positions"`
	Bins      []DensityBin `json:"bins"`
}

// HourDensity restricts the table to collisions within hour and computes the
// map center and density bins.
func HourDensity(t *domain.Table, hour int) (Density, error) {
	if err := ValidateHour(hour); err != nil {
		return Density{}, err
	}

	recs := recordsInHour(t, hour)
	d := Density{
		Hour:      hour,
		Label:     "Vehicle Collisions between " + hourWindow(hour),
		Layer:     DefaultHexagonLayer(),
		Positions: make([][2]float64, 0, len(recs)),
		Bins:      []DensityBin{},
		ViewState: ViewState{Zoom: 11, Pitch: 50},
	}

	if len(recs) == 0 {
		d.Empty = true
		d.ViewState.Latitude = DefaultCenter.Lat
		d.ViewState.Longitude = DefaultCenter.Lon
		return d, nil
	}

	lats := make(stats.Float64Data, 0, len(recs))
	lons := make(stats.Float64Data, 0, len(recs))
	counts := make(map[string]int)
	for _, r := range recs {
		lats = append(lats, r.Geo.Lat)
		lons = append(lons, r.Geo.Lon)
		d.Positions = append(d.Positions, [2]float64{r.Geo.Lon, r.Geo.Lat})
		counts[geohash.EncodeWithPrecision(r.Geo.Lat, r.Geo.Lon, BinPrecision)]++
	}

	meanLat, err := stats.Mean(lats)
	if err != nil {
		return Density{}, err
	}
	meanLon, err := stats.Mean(lons)
	if err != nil {
		return Density{}, err
	}
	d.Midpoint = domain.Geo{Lat: meanLat, Lon: meanLon}
	d.ViewState.Latitude = meanLat
	d.ViewState.Longitude = meanLon
	d.Bins = densityBins(counts)
	return d, nil
}

// densityBins orders cells by count descending, then by geohash.
func densityBins(counts map[string]int) []DensityBin {
	bins := make([]DensityBin, 0, len(counts))
	for gh, n := range counts {
		center := geohash.Decode(gh).Center()
		bins = append(bins, DensityBin{
			Geohash: gh,
			Lat:     center.Lat(),
			Lon:     center.Lng(),
			Count:   n,
		})
	}
	slices.SortFunc(bins, func(a, b DensityBin) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Geohash, b.Geohash)
	})
	return bins
}
