package views

import (
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
)

// --- fixtures ---

var testColumns = []string{
	"date/time", "borough", "latitude", "longitude", "on_street_name",
	"injured_persons", "injured_pedestrians", "injured_cyclists", "injured_motorists",
}

type rec struct {
	at          string // "15:04"
	lat, lon    float64
	street      string
	persons     *int
	pedestrians int
	cyclists    int
	motorists   int
}

func n(v int) *int { return &v }

func count(p *int) domain.Count {
	if p == nil {
		return domain.Count{}
	}
	return domain.CountOf(*p)
}

func newTable(rs ...rec) *domain.Table {
	t := &domain.Table{ID: "test", Columns: testColumns}
	for i, r := range rs {
		clock, err := time.Parse("15:04", r.at)
		if err != nil {
			panic(err)
		}
		ts := time.Date(2021, 9, 11, clock.Hour(), clock.Minute(), 0, 0, time.UTC)
		persons := ""
		if r.persons != nil {
			persons = strconv.Itoa(*r.persons)
		}
		t.Records = append(t.Records, domain.CollisionRecord{
			ID:           strconv.Itoa(i + 1),
			DateTime:     ts,
			Geo:          domain.Geo{Lat: r.lat, Lon: r.lon},
			Borough:      "BROOKLYN",
			OnStreetName: r.street,
			Persons:      domain.Casualties{Injured: count(r.persons), Killed: domain.CountOf(0)},
			Pedestrians:  domain.Casualties{Injured: domain.CountOf(r.pedestrians), Killed: domain.CountOf(0)},
			Cyclists:     domain.Casualties{Injured: domain.CountOf(r.cyclists), Killed: domain.CountOf(0)},
			Motorists:    domain.Casualties{Injured: domain.CountOf(r.motorists), Killed: domain.CountOf(0)},
			Values: []string{
				ts.Format(domain.DateTimeLayout), "BROOKLYN",
				strconv.FormatFloat(r.lat, 'f', -1, 64), strconv.FormatFloat(r.lon, 'f', -1, 64),
				r.street, persons,
				strconv.Itoa(r.pedestrians), strconv.Itoa(r.cyclists), strconv.Itoa(r.motorists),
			},
		})
	}
	return t
}

// --- validation ---

func TestValidateThreshold(t *testing.T) {
	assert.NoError(t, ValidateThreshold(0))
	assert.NoError(t, ValidateThreshold(19))
	assert.ErrorIs(t, ValidateThreshold(-1), ErrThresholdOutOfRange)
	assert.ErrorIs(t, ValidateThreshold(20), ErrThresholdOutOfRange)
}

func TestValidateHour(t *testing.T) {
	assert.NoError(t, ValidateHour(0))
	assert.NoError(t, ValidateHour(23))
	assert.ErrorIs(t, ValidateHour(-1), ErrHourOutOfRange)
	assert.ErrorIs(t, ValidateHour(24), ErrHourOutOfRange)
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(ValidateHour(99)))
	assert.True(t, IsInputError(ValidateThreshold(99)))
	_, err := domain.ParseCategory("Pedestrains")
	assert.True(t, IsInputError(err))
	_, err = ParseMetric("maimed")
	assert.True(t, IsInputError(err))
	assert.False(t, IsInputError(assert.AnError))
}
