package domain

import (
	"cmp"
	"slices"
	"time"
)

// DayCount is the number of trips departing on one weekday.
type DayCount struct {
	Day   string `json:"day"`
	Trips int    `json:"trips"`
}

// StationCount is the number of trips departing from one station.
type StationCount struct {
	Station string `json:"station"`
	Trips   int    `json:"trips"`
}

// Summary holds the headline figures of the overview page.
type Summary struct {
	StationCount int            `json:"station_count"`
	TotalTrips   int            `json:"total_trips"`
	TripsByDay   []DayCount     `json:"trips_by_day"`
	TopStations  []StationCount `json:"top_stations"`
	LoadedAt     string         `json:"loaded_at"`
}

// Summarize counts distinct departure stations and trips per weekday
// (Monday first, zero-filled). TopStations holds the topN busiest departure
// stations, ties broken by name.
func Summarize(table *Table, topN int) Summary {
	byDay := make(map[string]int, len(Weekdays))
	byStation := make(map[string]int)
	for _, t := range table.trips {
		byDay[t.DayOfWeek]++
		byStation[t.DepartureStation]++
	}

	s := Summary{
		StationCount: len(byStation),
		TotalTrips:   table.Len(),
		TripsByDay:   make([]DayCount, 0, len(Weekdays)),
		TopStations:  []StationCount{},
		LoadedAt:     table.loadedAt.UTC().Format(time.RFC3339),
	}
	for _, d := range Weekdays {
		s.TripsByDay = append(s.TripsByDay, DayCount{Day: d, Trips: byDay[d]})
	}

	for station, n := range byStation {
		s.TopStations = append(s.TopStations, StationCount{Station: station, Trips: n})
	}
	slices.SortFunc(s.TopStations, func(a, b StationCount) int {
		if c := cmp.Compare(b.Trips, a.Trips); c != 0 {
			return c
		}
		return cmp.Compare(a.Station, b.Station)
	})
	if topN >= 0 && len(s.TopStations) > topN {
		s.TopStations = s.TopStations[:topN]
	}
	return s
}

// Memberships returns the distinct membership types in the table, sorted.
func Memberships(table *Table) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, t := range table.trips {
		if _, ok := seen[t.MembershipType]; ok {
			continue
		}
		seen[t.MembershipType] = struct{}{}
		out = append(out, t.MembershipType)
	}
	slices.Sort(out)
	return out
}

// Stations returns the distinct canonical station labels seen as departure
// or return stations, sorted.
func Stations(table *Table) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, t := range table.trips {
		for _, s := range [2]string{t.DepartureStation, t.ReturnStation} {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}
