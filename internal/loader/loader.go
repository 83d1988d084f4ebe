// Package loader reads the collisions CSV into an in-memory domain.Table and
// memoizes loads per row limit.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/google/uuid"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

const (
	colCrashDate = "crash_date"
	colCrashTime = "crash_time"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colStreet    = "on_street_name"
	colBorough   = "borough"
	colID        = "collision_id"
)

var requiredColumns = []string{colCrashDate, colCrashTime, colLatitude, colLongitude}

// columnAliases maps the raw OpenData header spellings (after normalization)
// to the short names used throughout the dashboard.
var columnAliases = map[string]string{
	"number_of_persons_injured":     "injured_persons",
	"number_of_persons_killed":      "killed_persons",
	"number_of_pedestrians_injured": "injured_pedestrians",
	"number_of_pedestrians_killed":  "killed_pedestrians",
	"number_of_cyclist_injured":     "injured_cyclists",
	"number_of_cyclist_killed":      "killed_cyclists",
	"number_of_motorist_injured":    "injured_motorists",
	"number_of_motorist_killed":     "killed_motorists",
}

// Source produces a table holding at most rowLimit source rows.
type Source interface {
	Name() string
	Load(ctx context.Context, rowLimit int) (*domain.Table, error)
}

// FileSource loads the collisions CSV from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource creates a Source reading the CSV at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the CSV path.
func (s *FileSource) Name() string { return s.path }

// Load opens the CSV and reads at most rowLimit data rows. A missing or
// unparsable file is an error; there is no fallback.
func (s *FileSource) Load(ctx context.Context, rowLimit int) (*domain.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open collisions csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(ctx, f, s.path, rowLimit)
}

// ReadCSV reads at most rowLimit data rows (all rows when rowLimit <= 0),
// merges CRASH_DATE and CRASH_TIME into the "date/time" column, drops rows
// with a missing latitude or longitude, and lower-cases column names.
func ReadCSV(ctx context.Context, r io.Reader, source string, rowLimit int) (*domain.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read csv header: empty file")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	l, err := newLayout(header)
	if err != nil {
		return nil, err
	}

	table := &domain.Table{
		ID:       uuid.NewString(),
		Source:   source,
		RowLimit: rowLimit,
		Columns:  l.columns,
	}

	for rowLimit <= 0 || table.RowsRead < rowLimit {
		if table.RowsRead%4096 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		table.RowsRead++

		rec, ok, err := l.record(row)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%s line %d: %w", source, line, err)
		}
		if !ok {
			table.RowsDropped++
			continue
		}
		table.Records = append(table.Records, rec)
	}

	table.LoadedAt = domain.Now()
	return table, nil
}

// layout resolves header positions once per file.
type layout struct {
	index   map[string]int // normalized column -> source position
	columns []string       // output columns, "date/time" first
	order   []int          // source positions for columns[1:]
}

func newLayout(header []string) (*layout, error) {
	l := &layout{
		index:   make(map[string]int, len(header)),
		columns: []string{domain.DateTimeColumn},
	}

	for i, h := range header {
		name := domain.NormalizeColumn(h)
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, dup := l.index[name]; dup {
			continue
		}
		l.index[name] = i
		if name == colCrashDate || name == colCrashTime {
			continue
		}
		l.columns = append(l.columns, name)
		l.order = append(l.order, i)
	}

	for _, c := range requiredColumns {
		if _, ok := l.index[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return l, nil
}

func (l *layout) cell(row []string, name string) string {
	i, ok := l.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// record converts one CSV row. ok is false when the row lacks coordinates.
func (l *layout) record(row []string) (domain.CollisionRecord, bool, error) {
	lat, hasLat, err := domain.ParseCoordinate(l.cell(row, colLatitude))
	if err != nil {
		return domain.CollisionRecord{}, false, err
	}
	lon, hasLon, err := domain.ParseCoordinate(l.cell(row, colLongitude))
	if err != nil {
		return domain.CollisionRecord{}, false, err
	}
	if !hasLat || !hasLon {
		return domain.CollisionRecord{}, false, nil
	}

	ts, err := domain.ParseCrashTimestamp(l.cell(row, colCrashDate), l.cell(row, colCrashTime))
	if err != nil {
		return domain.CollisionRecord{}, false, err
	}

	rec := domain.CollisionRecord{
		DateTime:     ts,
		Geo:          domain.Geo{Lat: lat, Lon: lon},
		Borough:      l.cell(row, colBorough),
		OnStreetName: l.cell(row, colStreet),
		Values:       make([]string, 0, len(l.columns)),
	}

	groups := []struct {
		name string
		dst  *domain.Casualties
	}{
		{"persons", &rec.Persons},
		{"pedestrians", &rec.Pedestrians},
		{"cyclists", &rec.Cyclists},
		{"motorists", &rec.Motorists},
	}
	for _, g := range groups {
		if g.dst.Injured, err = domain.ParseCount(l.cell(row, "injured_"+g.name)); err != nil {
			return domain.CollisionRecord{}, false, err
		}
		if g.dst.Killed, err = domain.ParseCount(l.cell(row, "killed_"+g.name)); err != nil {
			return domain.CollisionRecord{}, false, err
		}
	}

	rec.ID = l.cell(row, colID)
	if rec.ID == "" {
		rec.ID = domain.GenerateID(ts, rec.Geo, rec.OnStreetName)
	}

	rec.Values = append(rec.Values, ts.Format(domain.DateTimeLayout))
	for _, i := range l.order {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		rec.Values = append(rec.Values, v)
	}
	return rec, true, nil
}
