// Command validate loads a collisions CSV through the real loader and checks
// that every dashboard view is consistent with a brute-force recount of the
// loaded records: load accounting, the injury filter, the hour partition,
// the street rankings, and the raw dump.
//
// Usage:
//
//	go run ./cmd/validate -csv data/mock/collisions.csv -limit 100000
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/loader"
	"github.com/couchcryptid/collisions-dashboard/internal/views"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the collisions CSV")
	limit := flag.Int("limit", 0, "row limit (0 reads every row)")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*csvPath, *limit))
}

func run(path string, limit int) int {
	fmt.Println("=== Collisions Data Validation ===")
	fmt.Println()

	table, err := loader.NewFileSource(path).Load(context.Background(), limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", path, err)
		return 1
	}

	phases := []*phase{
		validateLoad(table, limit),
		validateInjuryFilter(table),
		validateHourPartition(table),
		validateStreetRankings(table),
		validateRawDump(table),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d read, %d retained, %d dropped\n", table.RowsRead, table.Len(), table.RowsDropped)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Load ──
// Row accounting, column normalization, and per-record shape.

func validateLoad(t *domain.Table, limit int) *phase {
	p := &phase{name: "Phase 1: Load (rows and columns)"}

	if limit > 0 && t.RowsRead > limit {
		p.errorf("read %d rows with limit %d", t.RowsRead, limit)
	}
	if t.Len()+t.RowsDropped != t.RowsRead {
		p.errorf("retained %d + dropped %d != read %d", t.Len(), t.RowsDropped, t.RowsRead)
	}

	if len(t.Columns) == 0 || t.Columns[0] != domain.DateTimeColumn {
		p.errorf("first column is not %q: %v", domain.DateTimeColumn, t.Columns)
	}
	for _, c := range t.Columns {
		if c != strings.ToLower(c) {
			p.errorf("column %q is not lowercase", c)
		}
		if c == "crash_date" || c == "crash_time" {
			p.errorf("source column %q survived the merge", c)
		}
	}

	seen := make(map[string]bool, t.Len())
	for _, r := range t.Records {
		if r.Geo.Lat == 0 || r.Geo.Lon == 0 {
			p.errorf("record %s: missing coordinates", r.ID)
		}
		if len(r.Values) != len(t.Columns) {
			p.errorf("record %s: %d cells for %d columns", r.ID, len(r.Values), len(t.Columns))
		}
		if seen[r.ID] {
			p.errorf("record %s: duplicate id", r.ID)
		}
		seen[r.ID] = true
	}
	return p
}

// ── Phase 2: Injury filter ──
// Point counts match a recount and shrink as the threshold grows.

func validateInjuryFilter(t *domain.Table) *phase {
	p := &phase{name: "Phase 2: Injury Filter (thresholds 0-19)"}

	prev := -1
	for threshold := 0; threshold <= views.MaxInjuryThreshold; threshold++ {
		res, err := views.InjuryMap(t, threshold)
		if err != nil {
			p.errorf("threshold %d: %v", threshold, err)
			continue
		}

		want := 0
		for _, r := range t.Records {
			if r.Persons.Injured.AtLeast(threshold) {
				want++
			}
		}
		if len(res.Points) != want {
			p.errorf("threshold %d: %d points, recount %d", threshold, len(res.Points), want)
		}
		if prev >= 0 && len(res.Points) > prev {
			p.errorf("threshold %d: %d points exceeds %d at threshold %d", threshold, len(res.Points), prev, threshold-1)
		}
		prev = len(res.Points)
	}
	return p
}

// ── Phase 3: Hour partition ──
// Every record lands in exactly one hour and one minute bucket.

func validateHourPartition(t *domain.Table) *phase {
	p := &phase{name: "Phase 3: Hour Partition (density, minutes)"}

	total := 0
	for hour := 0; hour <= views.MaxHour; hour++ {
		d, err := views.HourDensity(t, hour)
		if err != nil {
			p.errorf("hour %d density: %v", hour, err)
			continue
		}
		h, err := views.MinuteHistogram(t, hour)
		if err != nil {
			p.errorf("hour %d histogram: %v", hour, err)
			continue
		}

		if len(d.Positions) != h.Total {
			p.errorf("hour %d: %d density points, %d histogram crashes", hour, len(d.Positions), h.Total)
		}
		if d.Empty != (h.Total == 0) {
			p.errorf("hour %d: empty=%v with %d crashes", hour, d.Empty, h.Total)
		}

		binned := 0
		for _, b := range d.Bins {
			binned += b.Count
		}
		if binned != len(d.Positions) {
			p.errorf("hour %d: bins hold %d of %d points", hour, binned, len(d.Positions))
		}

		minutes := 0
		for _, m := range h.Minutes {
			minutes += m.Crashes
		}
		if minutes != h.Total {
			p.errorf("hour %d: minute buckets sum to %d, total %d", hour, minutes, h.Total)
		}
		total += h.Total
	}

	if total != t.Len() {
		p.errorf("hours cover %d of %d records", total, t.Len())
	}
	return p
}

// ── Phase 4: Street rankings ──
// At most five named streets per category, ordered, each with a real count.

func validateStreetRankings(t *domain.Table) *phase {
	p := &phase{name: "Phase 4: Street Rankings (per category)"}

	for _, c := range domain.Categories() {
		for _, metric := range []views.Metric{views.MetricInjured, views.MetricKilled} {
			res, err := views.TopStreetsBy(t, c, metric)
			if err != nil {
				p.errorf("%s/%s: %v", c, metric, err)
				continue
			}
			if len(res.Rows) > views.TopStreetsLimit {
				p.errorf("%s/%s: %d rows", c, metric, len(res.Rows))
			}
			counts := make([]int, 0, len(res.Rows))
			for _, row := range res.Rows {
				if row.Street == "" {
					p.errorf("%s/%s: unnamed street ranked", c, metric)
				}
				if row.Count < 1 {
					p.errorf("%s/%s: %s ranked with count %d", c, metric, row.Street, row.Count)
				}
				counts = append(counts, row.Count)
			}
			if !slices.IsSortedFunc(counts, func(a, b int) int { return b - a }) {
				p.errorf("%s/%s: counts not descending: %v", c, metric, counts)
			}
			if len(res.Rows) > 0 {
				if top := maxCasualty(t, c, metric); res.Rows[0].Count != top {
					p.errorf("%s/%s: top row %d, recount max %d", c, metric, res.Rows[0].Count, top)
				}
			}
		}
	}
	return p
}

func maxCasualty(t *domain.Table, c domain.Category, metric views.Metric) int {
	top := 0
	for _, r := range t.Records {
		if r.OnStreetName == "" {
			continue
		}
		cas := r.Casualties(c)
		n := cas.Injured
		if metric == views.MetricKilled {
			n = cas.Killed
		}
		if n.Valid && n.N > top {
			top = n.N
		}
	}
	return top
}

// ── Phase 5: Raw dump ──

func validateRawDump(t *domain.Table) *phase {
	p := &phase{name: "Phase 5: Raw Dump (columns, totals)"}

	raw, err := views.RawData(t, views.RawOptions{Limit: t.Len() + 1})
	if err != nil {
		p.errorf("raw data: %v", err)
		return p
	}
	if raw.Total != t.Len() || len(raw.Rows) != t.Len() {
		p.errorf("raw dump has %d rows (total %d), table has %d", len(raw.Rows), raw.Total, t.Len())
	}
	if !slices.Equal(raw.Columns, t.Columns) {
		p.errorf("raw columns %v differ from table columns", raw.Columns)
	}
	for i, row := range raw.Rows {
		if i < t.Len() && !slices.Equal(row, t.Records[i].Values) {
			p.errorf("raw row %d differs from record %s", i, t.Records[i].ID)
			break
		}
	}
	return p
}
