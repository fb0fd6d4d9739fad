package domain

import (
	"strconv"
	"strings"
	"time"
)

// Drop reasons reported by the Cleaner.
const (
	DropMissingField       = "missing_field"
	DropBadTimestamp       = "bad_timestamp"
	DropInvalidValue       = "invalid_value"
	DropNegativeDuration   = "negative_duration"
	DropPlaceholderStation = "placeholder_station"
)

// DropReasons lists every drop reason in cleaning-step order.
var DropReasons = []string{
	DropMissingField,
	DropBadTimestamp,
	DropInvalidValue,
	DropNegativeDuration,
	DropPlaceholderStation,
}

// missingTokens are the spellings of "no value" that trip exports use
// besides an empty cell.
var missingTokens = map[string]struct{}{
	"NA": {}, "NaN": {}, "nan": {}, "N/A": {}, "n/a": {}, "null": {}, "NULL": {},
	"None": {}, "#N/A": {}, "<NA>": {},
}

// timestampLayouts are tried in order when parsing departure and return times.
var timestampLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02",
}

// CleanReport summarises one cleaning run.
type CleanReport struct {
	InputRows        int            `json:"input_rows"`
	KeptRows         int            `json:"kept_rows"`
	Dropped          map[string]int `json:"dropped"`
	AliasRewrites    int            `json:"alias_rewrites"`
	DistinctStations int            `json:"distinct_stations"`
}

// Cleaner turns raw rows into a Table that satisfies the trip invariants.
type Cleaner struct {
	rules        Rules
	placeholders map[string]struct{}
}

// NewCleaner validates rules and returns a Cleaner applying them.
func NewCleaner(rules Rules) (*Cleaner, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	placeholders := make(map[string]struct{}, len(rules.Placeholders))
	for _, p := range rules.Placeholders {
		placeholders[p] = struct{}{}
	}
	return &Cleaner{rules: rules, placeholders: placeholders}, nil
}

// Clean runs the cleaning steps over raw in order and builds the Table.
// Rows are dropped silently; the report counts them per reason.
func (c *Cleaner) Clean(raw []RawTrip) (*Table, CleanReport) {
	report := CleanReport{InputRows: len(raw), Dropped: make(map[string]int, len(DropReasons))}
	for _, reason := range DropReasons {
		report.Dropped[reason] = 0
	}

	trips := make([]Trip, 0, len(raw))
	stations := make(map[string]struct{})
	for _, r := range raw {
		trip, rewrites, reason := c.cleanRow(r)
		if reason != "" {
			report.Dropped[reason]++
			continue
		}
		report.AliasRewrites += rewrites
		stations[trip.DepartureStation] = struct{}{}
		trips = append(trips, trip)
	}

	report.KeptRows = len(trips)
	report.DistinctStations = len(stations)
	return NewTable(trips), report
}

// cleanRow applies every step to one row. It returns the drop reason, or ""
// when the row survives, and the number of station labels rewritten.
func (c *Cleaner) cleanRow(r RawTrip) (Trip, int, string) {
	// The Bike equipment id is not carried over.
	if isMissing(r.DepartureStation) || isMissing(r.ReturnStation) || isMissing(r.Departure) ||
		isMissing(r.ElectricBike) || isMissing(r.MembershipType) ||
		isMissing(r.Duration) || isMissing(r.CoveredDistance) {
		return Trip{}, 0, DropMissingField
	}

	departure, ok := parseTimestamp(r.Departure)
	if !ok {
		return Trip{}, 0, DropBadTimestamp
	}

	electric, err := strconv.ParseBool(strings.TrimSpace(r.ElectricBike))
	if err != nil {
		return Trip{}, 0, DropInvalidValue
	}
	duration, err := parseNumber(r.Duration)
	if err != nil {
		return Trip{}, 0, DropInvalidValue
	}
	distance, err := parseNumber(r.CoveredDistance)
	if err != nil {
		return Trip{}, 0, DropInvalidValue
	}

	trip := Trip{
		DepartureStation: strings.TrimSpace(r.DepartureStation),
		ReturnStation:    strings.TrimSpace(r.ReturnStation),
		Departure:        departure,
		Electric:         electric,
		MembershipType:   strings.TrimSpace(r.MembershipType),
		DurationSec:      duration,
		DistanceM:        distance,
		MonthNum:         int(departure.Month()),
		Month:            MonthAbbr(int(departure.Month())),
		Season:           SeasonOf(int(departure.Month())),
		DayOfWeek:        departure.Weekday().String(),
	}
	if ret, ok := parseTimestamp(r.Return); ok {
		trip.Return = ret
	}

	if trip.DurationSec < 0 {
		return Trip{}, 0, DropNegativeDuration
	}

	rewrites := 0
	if s := c.rules.Canonicalize(trip.DepartureStation); s != trip.DepartureStation {
		trip.DepartureStation = s
		rewrites++
	}
	if s := c.rules.Canonicalize(trip.ReturnStation); s != trip.ReturnStation {
		trip.ReturnStation = s
		rewrites++
	}

	if c.IsPlaceholder(trip.DepartureStation) || c.IsPlaceholder(trip.ReturnStation) {
		return Trip{}, 0, DropPlaceholderStation
	}

	trip.ID = generateTripID(trip)
	return trip, rewrites, ""
}

// IsPlaceholder reports whether station is a non-physical operations station.
func (c *Cleaner) IsPlaceholder(station string) bool {
	_, ok := c.placeholders[station]
	return ok
}

// Canonicalize exposes the alias rewrite for a single station label.
func (c *Cleaner) Canonicalize(station string) string {
	return c.rules.Canonicalize(station)
}

func isMissing(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	_, ok := missingTokens[v]
	return ok
}

func parseTimestamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber accepts plain and thousands-separated numbers ("1,234.5").
func parseNumber(v string) (float64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	return strconv.ParseFloat(v, 64)
}
