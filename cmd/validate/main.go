// Command validate loads and cleans a trip dataset the way the dashboard does
// and checks the cleaned table and its aggregates for integrity. It prints a
// per-phase report and exits 1 on any violation.
//
// Usage:
//
//	go run ./cmd/validate -data data/mock -encodings utf-8,latin-1
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/bikeshare-trends/internal/adapter/csvfile"
	"github.com/couchcryptid/bikeshare-trends/internal/config"
	"github.com/couchcryptid/bikeshare-trends/internal/domain"
	"github.com/couchcryptid/bikeshare-trends/internal/observability"
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

// maxErrorsPerPhase caps the detail printed for one phase.
const maxErrorsPerPhase = 20

func main() {
	data := flag.String("data", "data", "comma-separated CSV files or directories")
	encodings := flag.String("encodings", "utf-8,latin-1", "comma-separated encodings tried per file")
	rulesFile := flag.String("rules", "", "optional YAML cleaning rules file")
	flag.Parse()

	os.Exit(run(splitList(*data), splitList(*encodings), *rulesFile))
}

func run(paths, encodings []string, rulesFile string) int {
	// Fixed clock so the printed load time is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	fmt.Println("=== Bikeshare Trip Data Validation ===")
	fmt.Println()

	rules, err := config.LoadRules(rulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	cleaner, err := domain.NewCleaner(rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader, err := csvfile.NewLoader(csvfile.Options{Paths: paths, Encodings: encodings, Workers: 4},
		logger, observability.NewMetricsForTesting())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	loaded, err := loader.Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load trips: %v\n", err)
		return 1
	}
	table, report := cleaner.Clean(loaded.Rows)

	phases := []*phase{
		validateLoad(loaded),
		validateCleanReport(report, len(loaded.Rows), table),
		validateTripInvariants(table, cleaner),
		validateAggregates(table),
	}

	fmt.Println()
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
	fmt.Printf("Files: %d loaded, %d skipped\n", countLoaded(loaded.Files), len(loaded.Files)-countLoaded(loaded.Files))
	fmt.Printf("Rows: %d raw, %d kept", report.InputRows, report.KeptRows)
	for _, reason := range domain.DropReasons {
		if n := report.Dropped[reason]; n > 0 {
			fmt.Printf(", %d %s", n, reason)
		}
	}
	fmt.Printf("\nStations: %d distinct, %d alias rewrites\n", report.DistinctStations, report.AliasRewrites)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrorsPerPhase {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxErrorsPerPhase)
				break
			}
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

// ── Phases ──

func validateLoad(res csvfile.Result) *phase {
	p := &phase{name: "Phase 1: File loading"}
	fmt.Println("Phase 1: File loading")

	total := 0
	for _, f := range res.Files {
		if f.Skipped() {
			fmt.Printf("  skipped %s: %s\n", f.Path, f.Error)
			continue
		}
		fmt.Printf("  %s: %d rows (%s)\n", f.Path, f.Rows, f.Encoding)
		total += f.Rows
	}
	if total != len(res.Rows) {
		p.errorf("file reports sum to %d rows, loader returned %d", total, len(res.Rows))
	}
	// Rows of one file must be contiguous and in line order.
	seen := map[string]bool{}
	var prev domain.RawTrip
	for i, r := range res.Rows {
		if r.SourceFile != prev.SourceFile {
			if seen[r.SourceFile] {
				p.errorf("row %d: rows of %s are not contiguous", i, r.SourceFile)
				break
			}
			seen[r.SourceFile] = true
		} else if r.Line <= prev.Line {
			p.errorf("row %d: %s line %d follows line %d", i, r.SourceFile, r.Line, prev.Line)
			break
		}
		prev = r
	}
	return p
}

func validateCleanReport(r domain.CleanReport, rawRows int, table *domain.Table) *phase {
	p := &phase{name: "Phase 2: Cleaning accounting"}
	fmt.Println("Phase 2: Cleaning accounting")

	if r.InputRows != rawRows {
		p.errorf("report input rows %d != loaded rows %d", r.InputRows, rawRows)
	}
	if r.KeptRows != table.Len() {
		p.errorf("report kept rows %d != table rows %d", r.KeptRows, table.Len())
	}
	dropped := 0
	for reason, n := range r.Dropped {
		if !slices.Contains(domain.DropReasons, reason) {
			p.errorf("unknown drop reason %q", reason)
		}
		dropped += n
	}
	if r.KeptRows+dropped != r.InputRows {
		p.errorf("kept %d + dropped %d != input %d", r.KeptRows, dropped, r.InputRows)
	}
	return p
}

func validateTripInvariants(table *domain.Table, cleaner *domain.Cleaner) *phase {
	p := &phase{name: "Phase 3: Trip invariants"}
	fmt.Println("Phase 3: Trip invariants")

	for i, t := range table.Trips() {
		if t.ID == "" {
			p.errorf("trip %d: empty id", i)
		}
		if t.DurationSec < 0 {
			p.errorf("trip %s: negative duration %v", t.ID, t.DurationSec)
		}
		for _, station := range []string{t.DepartureStation, t.ReturnStation} {
			if station == "" {
				p.errorf("trip %s: empty station", t.ID)
				continue
			}
			if cleaner.IsPlaceholder(station) {
				p.errorf("trip %s: placeholder station %q", t.ID, station)
			}
			if canon := cleaner.Canonicalize(station); canon != station {
				p.errorf("trip %s: station %q is not canonical (want %q)", t.ID, station, canon)
			}
		}
		if t.MembershipType == "" {
			p.errorf("trip %s: empty membership type", t.ID)
		}
		if t.Departure.IsZero() {
			p.errorf("trip %s: zero departure time", t.ID)
			continue
		}
		m := int(t.Departure.Month())
		if t.MonthNum != m || t.Month != domain.MonthAbbr(m) {
			p.errorf("trip %s: month %d/%s does not match departure %s", t.ID, t.MonthNum, t.Month, t.Departure.Format(time.DateOnly))
		}
		if t.Season != domain.SeasonOf(m) {
			p.errorf("trip %s: season %s does not match month %s", t.ID, t.Season, t.Month)
		}
		if t.DayOfWeek != t.Departure.Weekday().String() {
			p.errorf("trip %s: day %s does not match departure %s", t.ID, t.DayOfWeek, t.Departure.Format(time.DateOnly))
		}
	}
	return p
}

func validateAggregates(table *domain.Table) *phase {
	p := &phase{name: "Phase 4: Aggregation consistency"}
	fmt.Println("Phase 4: Aggregation consistency")

	all, err := domain.Aggregate(table, domain.DefaultFilter())
	if err != nil {
		p.errorf("aggregate all trips: %v", err)
		return p
	}

	// Each month belongs to one season, so the per-month mean of group counts
	// is the month's trip count and the series must add up to the table.
	total := 0.0
	for _, pt := range all.TripCounts {
		total += pt.Value
	}
	if int(total) != table.Len() {
		p.errorf("trip counts sum to %v, table has %d trips", total, table.Len())
	}

	order := make([]int, 0, len(all.TripCounts))
	for _, pt := range all.TripCounts {
		order = append(order, slices.Index(domain.MonthOrder, pt.Month))
		if pt.Season != domain.SeasonOfAbbr(pt.Month) {
			p.errorf("point %s has season %s", pt.Month, pt.Season)
		}
	}
	if !slices.IsSorted(order) {
		p.errorf("series months are not in Dec..Nov order: %v", months(all.TripCounts))
	}
	if !slices.Equal(months(all.TripCounts), months(all.AvgDistance)) {
		p.errorf("count and distance series cover different months")
	}

	for _, s := range all.TripCountSlices {
		w := slices.IndexFunc(domain.QuarterWindows, func(q domain.QuarterWindow) bool { return q.Season == s.Season })
		if w < 0 {
			p.errorf("slice has unknown season %q", s.Season)
			continue
		}
		for _, pt := range s.Points {
			if !slices.Contains(domain.QuarterWindows[w].Months, pt.Month) {
				p.errorf("slice %s holds month %s outside its window", s.Season, pt.Month)
			}
		}
	}

	electric := domain.DefaultFilter()
	electric.Bike = domain.BikeElectric
	classic := domain.DefaultFilter()
	classic.Bike = domain.BikeClassic
	split := map[string]float64{}
	for _, f := range []domain.Filter{electric, classic} {
		res, err := domain.Aggregate(table, f)
		if err != nil {
			p.errorf("aggregate %s trips: %v", f.Bike, err)
			return p
		}
		for _, pt := range res.TripCounts {
			split[pt.Month] += pt.Value
		}
	}
	for _, pt := range all.TripCounts {
		if math.Abs(split[pt.Month]-pt.Value) > 1e-9 {
			p.errorf("month %s: electric+classic %v != both %v", pt.Month, split[pt.Month], pt.Value)
		}
	}
	return p
}

// ── Helpers ──

func months(points []domain.Point) []string {
	out := make([]string, len(points))
	for i, pt := range points {
		out[i] = pt.Month
	}
	return out
}

func countLoaded(files []csvfile.FileReport) int {
	n := 0
	for _, f := range files {
		if !f.Skipped() {
			n++
		}
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
