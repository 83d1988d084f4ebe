package views

import "github.com/couchcryptid/collisions-dashboard/internal/domain"

// MinutesPerHour is the number of histogram buckets.
const MinutesPerHour = 60

// MinuteCount is one histogram bucket.
type MinuteCount struct {
	Minute  int `json:"minute"`
	Crashes int `json:"crashes"`
}

// Histogram counts an hour's collisions per minute.
type Histogram struct {
	Hour    int           `json:"hour"`
	Title   string        `json:"title"`
	Total   int           `json:"total"`
	Minutes []MinuteCount `json:"minutes"`
}

// MinuteHistogram bins the minute of every collision with
// hour <= ts.Hour() < hour+1 into 60 uniform buckets over [0,60).
func MinuteHistogram(t *domain.Table, hour int) (Histogram, error) {
	if err := ValidateHour(hour); err != nil {
		return Histogram{}, err
	}

	h := Histogram{
		Hour:    hour,
		Title:   "Breakdown by minute between " + hourWindow(hour),
		Minutes: make([]MinuteCount, MinutesPerHour),
	}
	for m := range h.Minutes {
		h.Minutes[m].Minute = m
	}
	if t == nil {
		return h, nil
	}
	for _, r := range t.Records {
		if hr := r.DateTime.Hour(); hr < hour || hr >= hour+1 {
			continue
		}
		h.Minutes[r.DateTime.Minute()].Crashes++
		h.Total++
	}
	return h, nil
}

// MaxCrashes returns the largest bucket count.
func (h Histogram) MaxCrashes() int {
	maxCount := 0
	for _, m := range h.Minutes {
		maxCount = max(maxCount, m.Crashes)
	}
	return maxCount
}
