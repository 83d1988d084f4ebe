package views

import "github.com/couchcryptid/collisions-dashboard/internal/domain"

// InjuryPoint is one collision location on the injury map.
type InjuryPoint struct {
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Injured int     `json:"injured"`
}

// InjuryMapResult lists collisions with at least Threshold injured persons.
type InjuryMapResult struct {
	Threshold int           `json:"threshold"`
	Points    []InjuryPoint `json:"points"`
}

// InjuryMap selects the locations of collisions whose injured-persons count is
// present and >= threshold. Records with a missing count never match.
func InjuryMap(t *domain.Table, threshold int) (InjuryMapResult, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return InjuryMapResult{}, err
	}

	res := InjuryMapResult{Threshold: threshold, Points: []InjuryPoint{}}
	if t == nil {
		return res, nil
	}
	for _, r := range t.Records {
		if !r.Persons.Injured.AtLeast(threshold) {
			continue
		}
		res.Points = append(res.Points, InjuryPoint{
			ID:      r.ID,
			Lat:     r.Geo.Lat,
			Lon:     r.Geo.Lon,
			Injured: r.Persons.Injured.N,
		})
	}
	return res, nil
}
