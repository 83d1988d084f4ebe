package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeColumn is the name of the merged CRASH_DATE + CRASH_TIME column.
const DateTimeColumn = "date/time"

// ErrUnknownCategory is returned when a victim category label does not match
// one of the selectable options.
var ErrUnknownCategory = errors.New("unknown victim category")

// Category is a victim category with its own injury and fatality counters.
type Category int

const (
	Pedestrians Category = iota + 1
	Cyclists
	Motorists
)

var categoryLabels = map[Category]string{
	Pedestrians: "Pedestrians",
	Cyclists:    "Cyclists",
	Motorists:   "Motorists",
}

// Categories returns the selectable categories in display order.
func Categories() []Category {
	return []Category{Pedestrians, Cyclists, Motorists}
}

// ParseCategory maps a selector label to its Category. Matching ignores case
// and surrounding whitespace but not spelling.
func ParseCategory(label string) (Category, error) {
	label = strings.TrimSpace(label)
	for _, c := range Categories() {
		if strings.EqualFold(label, categoryLabels[c]) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, label)
}

// String returns the selector label, e.g. "Pedestrians".
func (c Category) String() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "Category(" + strconv.Itoa(int(c)) + ")"
}

// InjuredColumn returns the normalized column holding the category's injured count.
func (c Category) InjuredColumn() string {
	return "injured_" + strings.ToLower(c.String())
}

// KilledColumn returns the normalized column holding the category's killed count.
func (c Category) KilledColumn() string {
	return "killed_" + strings.ToLower(c.String())
}

// Count is a casualty counter that may be missing in the source.
type Count struct {
	N     int
	Valid bool
}

// CountOf returns a present count.
func CountOf(n int) Count {
	return Count{N: n, Valid: true}
}

// AtLeast reports whether the count is present and >= n.
func (c Count) AtLeast(n int) bool {
	return c.Valid && c.N >= n
}

func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.N)), nil
}

func (c *Count) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*c = Count{}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode count: %w", err)
	}
	*c = CountOf(n)
	return nil
}

// Casualties holds the injured and killed counters of one victim group.
type Casualties struct {
	Injured Count `json:"injured"`
	Killed  Count `json:"killed"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CollisionRecord is one reported crash after loading.
type CollisionRecord struct {
	ID           string     `json:"id"`
	DateTime     time.Time  `json:"date_time"`
	Geo          Geo        `json:"geo"`
	Borough      string     `json:"borough,omitempty"`
	OnStreetName string     `json:"on_street_name,omitempty"`
	Persons      Casualties `json:"persons"`
	Pedestrians  Casualties `json:"pedestrians"`
	Cyclists     Casualties `json:"cyclists"`
	Motorists    Casualties `json:"motorists"`

	// Values holds the cells as read, aligned with Table.Columns.
	Values []string `json:"values,omitempty"`
}

// Casualties returns the counters for a victim category.
func (r CollisionRecord) Casualties(c Category) Casualties {
	switch c {
	case Pedestrians:
		return r.Pedestrians
	case Cyclists:
		return r.Cyclists
	case Motorists:
		return r.Motorists
	default:
		return Casualties{}
	}
}

// Table is an immutable, in-memory load of the collisions CSV.
type Table struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	RowLimit    int               `json:"row_limit"`
	RowsRead    int               `json:"rows_read"`
	RowsDropped int               `json:"rows_dropped"`
	LoadedAt    time.Time         `json:"loaded_at"`
	Columns     []string          `json:"columns"`
	Records     []CollisionRecord `json:"records"`
}

// Len returns the number of retained records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// ColumnIndex returns the position of a normalized column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
