package views

import (
	"fmt"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DefaultRawLimit bounds the raw dump when no limit is given.
const DefaultRawLimit = 1000

// RawOptions narrows the raw dump. A nil Hour keeps every hour.
type RawOptions struct {
	Hour  *int
	Limit int
}

// RawTable is the raw dump: normalized columns and cells as read.
type RawTable struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Total     int        `json:"total"`
	Truncated bool       `json:"truncated"`
}

// RawData returns the loaded rows verbatim, optionally restricted to one hour
// and bounded by opts.Limit (DefaultRawLimit when <= 0).
func RawData(t *domain.Table, opts RawOptions) (RawTable, error) {
	if opts.Hour != nil {
		if err := ValidateHour(*opts.Hour); err != nil {
			return RawTable{}, err
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRawLimit
	}

	res := RawTable{Rows: [][]string{}}
	if t == nil {
		return res, nil
	}
	res.Columns = t.Columns

	records := [][]string{t.Columns}
	for _, r := range t.Records {
		if opts.Hour != nil && r.DateTime.Hour() != *opts.Hour {
			continue
		}
		records = append(records, r.Values)
	}
	res.Total = len(records) - 1
	if res.Total == 0 {
		return res, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if res.Total > limit {
		df = df.Subset(firstN(limit))
		res.Truncated = true
	}
	if df.Err != nil {
		return RawTable{}, fmt.Errorf("build raw table: %w", df.Err)
	}

	rows := df.Records()
	res.Rows = rows[1:]
	return res, nil
}
