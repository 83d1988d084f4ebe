package views

import (
	"fmt"
	"slices"
	"strings"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// TopStreetsLimit is the number of ranked streets returned.
const TopStreetsLimit = 5

const streetColumn = "on_street_name"

// Metric selects which counter ranks the streets.
type Metric string

const (
	MetricInjured Metric = "injured"
	MetricKilled  Metric = "killed"
)

// ParseMetric maps a query value to a Metric; empty means MetricInjured.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricInjured:
		return MetricInjured, nil
	case MetricKilled:
		return MetricKilled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

// Column returns the normalized count column ranked for category c.
func (m Metric) Column(c domain.Category) string {
	if m == MetricKilled {
		return c.KilledColumn()
	}
	return c.InjuredColumn()
}

// StreetRow is one ranked street.
type StreetRow struct {
	Street string `json:"on_street_name"`
	Count  int    `json:"count"`
}

// StreetRanking is the top-5 streets for a victim category.
type StreetRanking struct {
	Category string      `json:"category"`
	Metric   Metric      `json:"metric"`
	Column   string      `json:"column"`
	Rows     []StreetRow `json:"rows"`
}

// TopStreets ranks streets by the category's injured count.
func TopStreets(t *domain.Table, category domain.Category) (StreetRanking, error) {
	return TopStreetsBy(t, category, MetricInjured)
}

// TopStreetsBy keeps collisions with at least one casualty of the category
// under metric, drops rows missing a street or count, sorts descending by the
// count and returns the first five.
func TopStreetsBy(t *domain.Table, category domain.Category, metric Metric) (StreetRanking, error) {
	if !slices.Contains(domain.Categories(), category) {
		return StreetRanking{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if metric != MetricInjured && metric != MetricKilled {
		return StreetRanking{}, fmt.Errorf("%w: %q", ErrUnknownMetric, string(metric))
	}

	col := metric.Column(category)
	res := StreetRanking{
		Category: category.String(),
		Metric:   metric,
		Column:   col,
		Rows:     []StreetRow{},
	}
	if t.Len() == 0 {
		return res, nil
	}

	df := casualtyFrame(t, category, metric, col)
	df = df.Filter(dataframe.F{Colname: col, Comparator: series.GreaterEq, Comparando: 1})
	df = df.Filter(dataframe.F{Colname: streetColumn, Comparator: series.CompFunc, Comparando: notMissing})
	if df.Err != nil {
		return StreetRanking{}, fmt.Errorf("filter %s: %w", col, df.Err)
	}
	if df.Nrow() == 0 {
		return res, nil
	}

	df = df.Arrange(dataframe.RevSort(col))
	if n := min(df.Nrow(), TopStreetsLimit); n < df.Nrow() {
		df = df.Subset(firstN(n))
	}
	if df.Err != nil {
		return StreetRanking{}, fmt.Errorf("rank %s: %w", col, df.Err)
	}

	counts, err := df.Col(col).Int()
	if err != nil {
		return StreetRanking{}, fmt.Errorf("read %s: %w", col, err)
	}
	for i, street := range df.Col(streetColumn).Records() {
		res.Rows = append(res.Rows, StreetRow{Street: street, Count: counts[i]})
	}
	return res, nil
}

// casualtyFrame builds the (on_street_name, <col>) frame. Missing values
// become NaN elements.
func casualtyFrame(t *domain.Table, category domain.Category, metric Metric, col string) dataframe.DataFrame {
	streets := make([]interface{}, len(t.Records))
	counts := make([]interface{}, len(t.Records))
	for i, r := range t.Records {
		if r.OnStreetName != "" {
			streets[i] = r.OnStreetName
		}
		cas := r.Casualties(category)
		n := cas.Injured
		if metric == MetricKilled {
			n = cas.Killed
		}
		if n.Valid {
			counts[i] = n.N
		}
	}
	return dataframe.New(
		series.New(streets, series.String, streetColumn),
		series.New(counts, series.Int, col),
	)
}

func notMissing(el series.Element) bool {
	return !el.IsNA()
}

func firstN(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
