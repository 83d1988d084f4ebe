package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is how merged timestamps are rendered in the date/time column.
const DateTimeLayout = "2006-01-02 15:04:05"

var (
	dateLayouts = []string{"01/02/2006", "1/2/2006", "2006-01-02"}
	timeLayouts = []string{"15:04", "15:04:05"}
)

// NormalizeColumn lower-cases a header name and replaces spaces with underscores,
// e.g. "CRASH DATE" -> "crash_date".
func NormalizeColumn(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// ParseCrashTimestamp combines a CRASH_DATE and a CRASH_TIME cell into one UTC timestamp.
func ParseCrashTimestamp(date, timeOfDay string) (time.Time, error) {
	date = strings.TrimSpace(date)
	timeOfDay = strings.TrimSpace(timeOfDay)

	// OpenData exports sometimes carry a zeroed time part on the date column.
	if i := strings.IndexByte(date, 'T'); i > 0 {
		date = date[:i]
	}

	day, err := parseFirst(dateLayouts, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse crash date %q: %w", date, err)
	}
	tod, err := parseFirst(timeLayouts, timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse crash time %q: %w", timeOfDay, err)
	}

	return time.Date(
		day.Year(), day.Month(), day.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), 0, time.UTC,
	), nil
}

func parseFirst(layouts []string, value string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// ParseCount parses a casualty cell. Empty cells yield a missing count.
// Counts are sometimes exported as floats ("2.0").
func ParseCount(s string) (Count, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Count{}, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return CountOf(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Count{}, fmt.Errorf("parse count %q: %w", s, err)
	}
	return CountOf(int(f)), nil
}

// ParseCoordinate parses a latitude or longitude cell. ok is false when the cell is empty.
func ParseCoordinate(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse coordinate %q: %w", s, err)
	}
	return v, true, nil
}

// GenerateID produces a deterministic ID for records without a COLLISION_ID,
// so re-exporting the same file yields the same keys.
func GenerateID(ts time.Time, geo Geo, street string) string {
	input := fmt.Sprintf("%s|%.6f|%.6f|%s", ts.Format(DateTimeLayout), geo.Lat, geo.Lon, street)
	hash := sha256.Sum256([]byte(input))
	return "crash-" + hex.EncodeToString(hash[:8])
}
