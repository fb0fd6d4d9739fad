// Command genmock writes deterministic synthetic trip exports, one CSV per
// month, for local runs and the validate command. One month is written in
// latin-1 to exercise the loader's encoding fallback, and every file carries
// a handful of dirty rows covering each cleaning rule.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -year 2021 -trips 300
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/bikeshare-trends/internal/domain"
)

// latin1Month is written in ISO-8859-1 instead of UTF-8.
const latin1Month = time.March

var header = []string{
	domain.ColDeparture,
	domain.ColReturn,
	domain.ColBike,
	domain.ColElectricBike,
	domain.ColDepartureStation,
	domain.ColReturnStation,
	domain.ColMembershipType,
	domain.ColCoveredDistance,
	domain.ColDuration,
}

// stations are all representable in latin-1.
var stations = []string{
	"0001 10th & Cambie",
	"0002 Burrard Station",
	"0024 Stanley Park - Information Booth",
	"0136 David Lam Park - West",
	"0150 Alexander & Main",
	"0155 Arbutus & McNicoll",
	"0201 Shaw Tower",
	"0237 Glen & 6th",
	"0311 Café Terrace - Granville Island",
	"2143 War Memorial Gym",
}

var memberships = []string{"Annual", "Annual", "Annual", "Monthly", "24 Hour", "Single Trip", "Corporate"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock", "output directory")
	year := flag.Int("year", 2021, "year of the generated trips")
	trips := flag.Int("trips", 300, "clean trips per month")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *trips <= 0 {
		return fmt.Errorf("-trips must be positive")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	var all []domain.RawTrip
	for m := time.January; m <= time.December; m++ {
		rows := monthRows(rng, *year, m, *trips)
		all = append(all, rows...)

		path := filepath.Join(*out, fmt.Sprintf("%d-%02d.csv", *year, int(m)))
		enc := "utf-8"
		if m == latin1Month {
			enc = "latin-1"
		}
		if err := writeCSV(path, rows, enc); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("%s: %d rows (%s)", path, len(rows), enc)
	}

	printStats(all)
	return nil
}

// monthRows generates n clean trips plus one dirty row per cleaning rule.
func monthRows(rng *rand.Rand, year int, month time.Month, n int) []domain.RawTrip {
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	rows := make([]domain.RawTrip, 0, n+8)
	for range n {
		dep := time.Date(year, month, 1+rng.IntN(days), 6+rng.IntN(16), rng.IntN(60), 0, 0, time.UTC)
		// Summer months see longer rides.
		base := 600 + 400*seasonWeight(month)
		dur := int(base) + rng.IntN(1800)
		from := stations[rng.IntN(len(stations))]
		to := stations[rng.IntN(len(stations))]
		rows = append(rows, domain.RawTrip{
			Departure:        dep.Format("2006-01-02 15:04"),
			Return:           dep.Add(time.Duration(dur) * time.Second).Format("2006-01-02 15:04"),
			Bike:             strconv.Itoa(1000 + rng.IntN(4000)),
			ElectricBike:     strconv.FormatBool(rng.IntN(3) == 0),
			DepartureStation: from,
			ReturnStation:    to,
			MembershipType:   memberships[rng.IntN(len(memberships))],
			CoveredDistance:  strconv.Itoa(dur * (3 + rng.IntN(3))),
			Duration:         strconv.Itoa(dur),
		})
	}

	day := time.Date(year, month, 15, 12, 0, 0, 0, time.UTC).Format("2006-01-02 15:04")
	dirty := func(mut func(*domain.RawTrip)) domain.RawTrip {
		r := domain.RawTrip{
			Departure:        day,
			Return:           day,
			Bike:             "1234",
			ElectricBike:     "False",
			DepartureStation: stations[0],
			ReturnStation:    stations[1],
			MembershipType:   "Annual",
			CoveredDistance:  "1500",
			Duration:         "420",
		}
		mut(&r)
		return r
	}
	rows = append(rows,
		dirty(func(r *domain.RawTrip) { r.DepartureStation = "" }),
		dirty(func(r *domain.RawTrip) { r.MembershipType = "NA" }),
		dirty(func(r *domain.RawTrip) { r.Departure = "not-a-date" }),
		dirty(func(r *domain.RawTrip) { r.ElectricBike = "maybe" }),
		dirty(func(r *domain.RawTrip) { r.Duration = "-30" }),
		dirty(func(r *domain.RawTrip) { r.ReturnStation = "0991 HQ Workshop" }),
		// Kept: historical labels rewritten to their canonical names.
		dirty(func(r *domain.RawTrip) { r.DepartureStation = "0136 David Lam Park (West)" }),
		dirty(func(r *domain.RawTrip) { r.ReturnStation = "0154 Arbutus & 12th"; r.CoveredDistance = "1,250" }),
	)
	return rows
}

// seasonWeight is 0 in winter rising to 1 in summer.
func seasonWeight(m time.Month) float64 {
	switch domain.SeasonOf(int(m)) {
	case domain.Summer:
		return 1
	case domain.Spring, domain.Fall:
		return 0.5
	default:
		return 0
	}
}

func writeCSV(path string, rows []domain.RawTrip, enc string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Departure, r.Return, r.Bike, r.ElectricBike, r.DepartureStation,
			r.ReturnStation, r.MembershipType, r.CoveredDistance, r.Duration}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	data := buf.Bytes()
	if enc == "latin-1" {
		encoded, err := charmap.ISO8859_1.NewEncoder().Bytes(data)
		if err != nil {
			return fmt.Errorf("encode latin-1: %w", err)
		}
		data = encoded
	}
	return os.WriteFile(path, data, 0o644)
}

func printStats(raw []domain.RawTrip) {
	cleaner, err := domain.NewCleaner(domain.DefaultRules())
	if err != nil {
		log.Printf("stats unavailable: %v", err)
		return
	}
	table, report := cleaner.Clean(raw)

	fmt.Println("\n=== Summary ===")
	fmt.Printf("Raw rows:      %d\n", report.InputRows)
	fmt.Printf("Clean trips:   %d\n", report.KeptRows)
	for _, reason := range domain.DropReasons {
		fmt.Printf("  dropped %-20s %d\n", reason+":", report.Dropped[reason])
	}
	fmt.Printf("Alias rewrites: %d\n", report.AliasRewrites)
	fmt.Printf("Stations:       %d\n", report.DistinctStations)

	res, err := domain.Aggregate(table, domain.DefaultFilter())
	if err != nil {
		log.Printf("aggregation unavailable: %v", err)
		return
	}
	fmt.Println("\nTrips per month:")
	for _, p := range res.TripCounts {
		fmt.Printf("  %s (%s): %.0f\n", p.Month, p.Season, p.Value)
	}
}
