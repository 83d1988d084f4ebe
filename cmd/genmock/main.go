// Command genmock writes a deterministic synthetic collisions CSV in the
// open-data export layout, then loads it back through the real loader and
// views to print the figures test assertions are written against.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/collisions.csv -rows 5000 -seed 42
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/loader"
	"github.com/couchcryptid/collisions-dashboard/internal/views"
	"github.com/jonboulle/clockwork"
)

var header = []string{
	"CRASH_DATE", "CRASH_TIME", "BOROUGH", "ZIP_CODE", "LATITUDE", "LONGITUDE", "ON_STREET_NAME",
	"INJURED_PERSONS", "KILLED_PERSONS",
	"INJURED_PEDESTRIANS", "KILLED_PEDESTRIANS",
	"INJURED_CYCLISTS", "KILLED_CYCLISTS",
	"INJURED_MOTORISTS", "KILLED_MOTORISTS",
	"COLLISION_ID",
}

type borough struct {
	name     string
	zip      int
	lat, lon float64
	streets  []string
}

var boroughs = []borough{
	{"MANHATTAN", 10001, 40.7831, -73.9712, []string{"BROADWAY", "2 AVENUE", "3 AVENUE", "FDR DRIVE", "WEST 42 STREET"}},
	{"BROOKLYN", 11201, 40.6782, -73.9442, []string{"ATLANTIC AVENUE", "FLATBUSH AVENUE", "BELT PARKWAY", "EASTERN PARKWAY"}},
	{"QUEENS", 11354, 40.7282, -73.7949, []string{"NORTHERN BOULEVARD", "QUEENS BOULEVARD", "WHITESTONE EXPRESSWAY", "LONG ISLAND EXPRESSWAY"}},
	{"BRONX", 10451, 40.8448, -73.8648, []string{"GRAND CONCOURSE", "BRUCKNER BOULEVARD", "MAJOR DEEGAN EXPRESSWAY"}},
	{"STATEN ISLAND", 10301, 40.5795, -74.1502, []string{"HYLAN BOULEVARD", "RICHMOND AVENUE"}},
}

var baseDate = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the synthetic CSV")
	rows := flag.Int("rows", 5000, "number of data rows to write")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	if err := writeCSV(*out, *rows, *seed); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	log.Printf("wrote %d rows: %s", *rows, *out)

	// Fixed clock so the printed load timestamp is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate))
	defer domain.SetClock(nil)

	table, err := loader.NewFileSource(*out).Load(context.Background(), 0)
	if err != nil {
		return fmt.Errorf("reloading %s: %w", *out, err)
	}
	return printStats(table)
}

func writeCSV(path string, rows int, seed uint64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range rows {
		if err := w.Write(row(rng, i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// row builds one crash. Roughly 5% lack coordinates, 20% lack a street name,
// and 1% leave the persons counters blank.
func row(rng *rand.Rand, i int) []string {
	b := boroughs[rng.IntN(len(boroughs))]
	ts := baseDate.AddDate(0, 0, rng.IntN(365)).Add(time.Duration(rushHour(rng))*time.Hour + time.Duration(rng.IntN(60))*time.Minute)

	lat := strconv.FormatFloat(b.lat+rng.NormFloat64()*0.02, 'f', 6, 64)
	lon := strconv.FormatFloat(b.lon+rng.NormFloat64()*0.02, 'f', 6, 64)
	if rng.Float64() < 0.05 {
		lat, lon = "", ""
	}

	street := b.streets[rng.IntN(len(b.streets))]
	if rng.Float64() < 0.2 {
		street = ""
	}

	ped, cyc, mot := injuries(rng), injuries(rng), injuries(rng)
	killed := 0
	if rng.Float64() < 0.01 {
		killed = 1
	}
	injured := strconv.Itoa(ped + cyc + mot)
	killedPersons := strconv.Itoa(killed)
	if rng.Float64() < 0.01 {
		injured, killedPersons = "", ""
	}

	return []string{
		ts.Format("01/02/2006"),
		fmt.Sprintf("%d:%02d", ts.Hour(), ts.Minute()),
		b.name,
		strconv.Itoa(b.zip + rng.IntN(40)),
		lat,
		lon,
		street,
		injured, killedPersons,
		strconv.Itoa(ped), "0",
		strconv.Itoa(cyc), "0",
		strconv.Itoa(mot), strconv.Itoa(killed),
		strconv.Itoa(4400000 + i),
	}
}

// rushHour skews crash times toward the morning and evening peaks.
func rushHour(rng *rand.Rand) int {
	switch r := rng.Float64(); {
	case r < 0.25:
		return 7 + rng.IntN(3)
	case r < 0.55:
		return 15 + rng.IntN(4)
	default:
		return rng.IntN(24)
	}
}

func injuries(rng *rand.Rand) int {
	switch r := rng.Float64(); {
	case r < 0.8:
		return 0
	case r < 0.95:
		return 1
	default:
		return 2 + rng.IntN(4)
	}
}

func printStats(t *domain.Table) error {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows read: %d, retained: %d, dropped: %d\n", t.RowsRead, t.Len(), t.RowsDropped)

	for _, threshold := range []int{0, 1, 3, 5} {
		res, err := views.InjuryMap(t, threshold)
		if err != nil {
			return err
		}
		fmt.Printf("Injured >= %d: %d\n", threshold, len(res.Points))
	}

	busiest, busiestCount := 0, 0
	for hour := 0; hour <= views.MaxHour; hour++ {
		h, err := views.MinuteHistogram(t, hour)
		if err != nil {
			return err
		}
		if h.Total > busiestCount {
			busiest, busiestCount = hour, h.Total
		}
	}
	fmt.Printf("Busiest hour: %d (%d crashes)\n", busiest, busiestCount)

	for _, c := range domain.Categories() {
		ranking, err := views.TopStreets(t, c)
		if err != nil {
			return err
		}
		fmt.Printf("%s:", c)
		for _, r := range ranking.Rows {
			fmt.Printf(" %s=%d", r.Street, r.Count)
		}
		fmt.Println()
	}
	return nil
}
