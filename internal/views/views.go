// Package views derives the dashboard's read-only views from a loaded
// collisions table. Every function is pure: it never mutates the table and
// returns a fresh result per call.
package views

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
)

// Control ranges exposed by the dashboard sliders.
const (
	MaxInjuryThreshold = 19
	MaxHour            = 23
)

var (
	ErrThresholdOutOfRange = errors.New("injury threshold out of range")
	ErrHourOutOfRange      = errors.New("hour out of range")
	ErrUnknownCategory     = domain.ErrUnknownCategory
	ErrUnknownMetric       = errors.New("unknown street metric")
)

// ValidateThreshold checks an injury threshold against [0,19].
func ValidateThreshold(threshold int) error {
	if threshold < 0 || threshold > MaxInjuryThreshold {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrThresholdOutOfRange, threshold, MaxInjuryThreshold)
	}
	return nil
}

// ValidateHour checks an hour of day against [0,23].
func ValidateHour(hour int) error {
	if hour < 0 || hour > MaxHour {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrHourOutOfRange, hour, MaxHour)
	}
	return nil
}

// IsInputError reports whether err was caused by an out-of-range or unknown
// control value rather than by loading.
func IsInputError(err error) bool {
	return errors.Is(err, ErrThresholdOutOfRange) ||
		errors.Is(err, ErrHourOutOfRange) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrUnknownMetric)
}

// hourWindow formats "H:00 and (H+1)%24:00".
func hourWindow(hour int) string {
	return fmt.Sprintf("%d:00 and %d:00", hour, (hour+1)%24)
}

// recordsInHour returns the records whose timestamp hour equals hour.
func recordsInHour(t *domain.Table, hour int) []domain.CollisionRecord {
	if t == nil {
		return nil
	}
	var out []domain.CollisionRecord
	for _, r := range t.Records {
		if r.DateTime.Hour() == hour {
			out = append(out, r)
		}
	}
	return out
}
