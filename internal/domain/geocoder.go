package domain

import "context"

// Place describes the area around a coordinate, as returned by a reverse geocoder.
type Place struct {
	Name             string  `json:"name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"` // 0.0–1.0 provider confidence score
}

// PlaceResolver labels map centers with a human-readable place.
type PlaceResolver interface {
	// ReverseGeocode converts coordinates to place details. A zero Place with a
	// nil error means the provider had no match.
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}
