package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"
)

// Column headers of the operator's monthly trip exports.
const (
	ColDeparture        = "Departure"
	ColReturn           = "Return"
	ColBike             = "Bike"
	ColElectricBike     = "Electric bike"
	ColDepartureStation = "Departure station"
	ColReturnStation    = "Return station"
	ColMembershipType   = "Membership type"
	ColCoveredDistance  = "Covered distance (m)"
	ColDuration         = "Duration (sec.)"
)

// RawTrip is one CSV row as read from disk, before any cleaning.
// Values are kept verbatim; a column absent from the file is an empty string.
type RawTrip struct {
	Departure        string
	Return           string
	Bike             string
	ElectricBike     string
	DepartureStation string
	ReturnStation    string
	MembershipType   string
	CoveredDistance  string
	Duration         string

	SourceFile string
	Line       int
}

// Trip is a cleaned trip record. Every Trip held by a Table satisfies the
// cleaning invariants: stations are canonical and physical, the departure
// time is valid, the duration is non-negative and Season agrees with Month.
type Trip struct {
	ID               string    `json:"id"`
	DepartureStation string    `json:"departure_station"`
	ReturnStation    string    `json:"return_station"`
	Departure        time.Time `json:"departure"`
	Return           time.Time `json:"return,omitzero"`
	Electric         bool      `json:"electric"`
	MembershipType   string    `json:"membership_type"`
	DurationSec      float64   `json:"duration_sec"`
	DistanceM        float64   `json:"distance_m"`
	MonthNum         int       `json:"month_num"`
	Month            string    `json:"month"`
	Season           string    `json:"season"`
	DayOfWeek        string    `json:"day_of_week"`
}

// Table is the cleaned trip set. It is built once and never mutated, so it
// may be read from any number of goroutines without locking.
type Table struct {
	trips    []Trip
	loadedAt time.Time
}

// NewTable takes ownership of trips and stamps the table with the current clock time.
func NewTable(trips []Trip) *Table {
	if trips == nil {
		trips = []Trip{}
	}
	return &Table{trips: trips, loadedAt: clock.Now()}
}

// Len returns the number of trips.
func (t *Table) Len() int { return len(t.trips) }

// At returns the i-th trip in load order.
func (t *Table) At(i int) Trip { return t.trips[i] }

// Trips returns a copy of all trips in load order.
func (t *Table) Trips() []Trip { return slices.Clone(t.trips) }

// LoadedAt reports when the table was built.
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// StationID returns the leading run of digits of a station label,
// e.g. "0099 Art Gallery" -> "0099". Labels without a numeric prefix yield "".
func StationID(station string) string {
	end := 0
	for end < len(station) && station[end] >= '0' && station[end] <= '9' {
		end++
	}
	return station[:end]
}

// generateTripID produces a deterministic ID from the trip's key fields so the
// same source row always maps to the same published key.
func generateTripID(t Trip) string {
	input := fmt.Sprintf("%s|%s|%s|%t|%s|%g|%g",
		t.Departure.Format(time.RFC3339), t.DepartureStation, t.ReturnStation,
		t.Electric, t.MembershipType, t.DurationSec, t.DistanceM)
	hash := sha256.Sum256([]byte(input))
	return "trip-" + hex.EncodeToString(hash[:8])
}
