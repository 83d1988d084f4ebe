package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjuryMap_Threshold(t *testing.T) {
	table := newTable(
		rec{at: "08:00", lat: 40.70, lon: -73.90, persons: n(0)},
		rec{at: "09:00", lat: 40.71, lon: -73.91, persons: n(1)},
		rec{at: "10:00", lat: 40.72, lon: -73.92, persons: n(3)},
		rec{at: "11:00", lat: 40.73, lon: -73.93, persons: nil},
		rec{at: "12:00", lat: 40.74, lon: -73.94, persons: n(19)},
	)

	tests := []struct {
		threshold int
		wantIDs   []string
	}{
		{0, []string{"1", "2", "3", "5"}},
		{1, []string{"2", "3", "5"}},
		{3, []string{"3", "5"}},
		{19, []string{"5"}},
	}
	for _, tt := range tests {
		res, err := InjuryMap(table, tt.threshold)
		require.NoError(t, err)
		assert.Equal(t, tt.threshold, res.Threshold)

		var ids []string
		for _, p := range res.Points {
			ids = append(ids, p.ID)
			assert.GreaterOrEqual(t, p.Injured, tt.threshold)
		}
		assert.Equal(t, tt.wantIDs, ids, "threshold %d", tt.threshold)
	}
}

func TestInjuryMap_MissingCountNeverMatches(t *testing.T) {
	table := newTable(rec{at: "08:00", lat: 40.7, lon: -73.9, persons: nil})

	res, err := InjuryMap(table, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Points)
}

func TestInjuryMap_NoMatchesIsEmptyNotError(t *testing.T) {
	table := newTable(rec{at: "08:00", lat: 40.7, lon: -73.9, persons: n(2)})

	res, err := InjuryMap(table, 10)
	require.NoError(t, err)
	assert.NotNil(t, res.Points)
	assert.Empty(t, res.Points)
}

func TestInjuryMap_PointCoordinates(t *testing.T) {
	table := newTable(rec{at: "08:00", lat: 40.667202, lon: -73.8665, persons: n(2)})

	res, err := InjuryMap(table, 2)
	require.NoError(t, err)
	require.Len(t, res.Points, 1)
	assert.InDelta(t, 40.667202, res.Points[0].Lat, 1e-9)
	assert.InDelta(t, -73.8665, res.Points[0].Lon, 1e-9)
}

func TestInjuryMap_OutOfRange(t *testing.T) {
	_, err := InjuryMap(newTable(), 20)
	assert.ErrorIs(t, err, ErrThresholdOutOfRange)

	_, err = InjuryMap(newTable(), -1)
	assert.ErrorIs(t, err, ErrThresholdOutOfRange)
}
