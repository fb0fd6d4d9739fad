package domain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// BikeType selects trips by the electric-bike flag.
type BikeType string

const (
	BikeElectric BikeType = "electric"
	BikeClassic  BikeType = "classic"
	BikeBoth     BikeType = "both"
)

// AllMemberships in Filter.Memberships disables the membership filter.
const AllMemberships = "all"

// Filter narrows the trip table before aggregation. Month bounds are
// inclusive month numbers; MonthFrom > MonthTo selects nothing.
type Filter struct {
	Bike        BikeType
	Memberships []string
	MonthFrom   int
	MonthTo     int
}

// DefaultFilter selects every trip.
func DefaultFilter() Filter {
	return Filter{Bike: BikeBoth, Memberships: []string{AllMemberships}, MonthFrom: 1, MonthTo: 12}
}

// Match reports whether t passes every filter.
func (f Filter) Match(t Trip) bool {
	switch f.Bike {
	case BikeElectric:
		if !t.Electric {
			return false
		}
	case BikeClassic:
		if t.Electric {
			return false
		}
	}
	if !slices.Contains(f.Memberships, AllMemberships) && !slices.Contains(f.Memberships, t.MembershipType) {
		return false
	}
	return t.MonthNum >= f.MonthFrom && t.MonthNum <= f.MonthTo
}

// Point is one month's value in a series.
type Point struct {
	Month  string  `json:"month"`
	Season string  `json:"season"`
	Value  float64 `json:"value"`
}

// Slice is the part of a series falling into one quarter window.
type Slice struct {
	Season string  `json:"season"`
	Points []Point `json:"points"`
}

// Results holds both chart series and their quarterly slices. All fields are
// non-nil, possibly empty.
type Results struct {
	TripCounts      []Point `json:"trip_counts"`
	AvgDistance     []Point `json:"avg_distance"`
	TripCountSlices []Slice `json:"trip_count_slices"`
	DistanceSlices  []Slice `json:"distance_slices"`
}

// ErrAggregation is returned when the grouping frame cannot be reduced.
var ErrAggregation = errors.New("trip aggregation failed")

const (
	colSeason   = "Season"
	colMonth    = "Month"
	colDistance = "Distance"
)

// Aggregate filters table and reduces it to per-month trip counts and mean
// distances, ordered Dec..Nov. Rows are first grouped by (Season, Month); the
// per-month value is then the mean over those groups. An empty selection
// yields empty series and no error.
func Aggregate(table *Table, f Filter) (Results, error) {
	var seasons, months []string
	var distances []float64
	if table != nil {
		for _, t := range table.trips {
			if !f.Match(t) {
				continue
			}
			seasons = append(seasons, t.Season)
			months = append(months, t.Month)
			distances = append(distances, t.DistanceM)
		}
	}
	if len(months) == 0 {
		return buildResults(nil, nil), nil
	}

	df := dataframe.New(
		series.New(seasons, series.String, colSeason),
		series.New(months, series.String, colMonth),
		series.New(distances, series.Float, colDistance),
	)
	counts, means, err := reduceByMonth(df)
	if err != nil {
		return buildResults(nil, nil), err
	}
	return buildResults(counts, means), nil
}

// reduceByMonth groups df by (Season, Month) into trip counts and mean
// distances, then averages those groups per Month.
func reduceByMonth(df dataframe.DataFrame) (counts, means map[string]float64, err error) {
	countCol := aggColumn(colDistance, dataframe.Aggregation_COUNT)
	meanCol := aggColumn(colDistance, dataframe.Aggregation_MEAN)
	bySeasonMonth := df.GroupBy(colSeason, colMonth).Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_COUNT, dataframe.Aggregation_MEAN},
		[]string{colDistance, colDistance},
	)
	if bySeasonMonth.Err != nil {
		return nil, nil, fmt.Errorf("%w: group by season and month: %v", ErrAggregation, bySeasonMonth.Err)
	}

	countMean := aggColumn(countCol, dataframe.Aggregation_MEAN)
	distMean := aggColumn(meanCol, dataframe.Aggregation_MEAN)
	byMonth := bySeasonMonth.GroupBy(colMonth).Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_MEAN, dataframe.Aggregation_MEAN},
		[]string{countCol, meanCol},
	)
	if byMonth.Err != nil {
		return nil, nil, fmt.Errorf("%w: group by month: %v", ErrAggregation, byMonth.Err)
	}

	counts = make(map[string]float64, byMonth.Nrow())
	means = make(map[string]float64, byMonth.Nrow())
	labels := byMonth.Col(colMonth).Records()
	countVals := byMonth.Col(countMean).Float()
	meanVals := byMonth.Col(distMean).Float()
	for i, m := range labels {
		counts[m] = countVals[i]
		means[m] = meanVals[i]
	}
	return counts, means, nil
}

// buildResults orders the per-month values Dec..Nov and slices them into
// quarters. Nil maps yield empty series.
func buildResults(counts, means map[string]float64) Results {
	res := Results{TripCounts: []Point{}, AvgDistance: []Point{}}
	for _, m := range MonthOrder {
		c, ok := counts[m]
		if !ok {
			continue
		}
		season := SeasonOfAbbr(m)
		res.TripCounts = append(res.TripCounts, Point{Month: m, Season: season, Value: c})
		res.AvgDistance = append(res.AvgDistance, Point{Month: m, Season: season, Value: means[m]})
	}
	res.TripCountSlices = sliceQuarters(res.TripCounts)
	res.DistanceSlices = sliceQuarters(res.AvgDistance)
	return res
}

// aggColumn names the output column gota produces for an aggregation.
func aggColumn(col string, typ dataframe.AggregationType) string {
	return fmt.Sprintf("%s_%s", col, typ)
}

// sliceQuarters splits an ordered series into the four quarter windows.
// Boundary months appear in both adjacent slices.
func sliceQuarters(points []Point) []Slice {
	out := make([]Slice, 0, len(QuarterWindows))
	for _, w := range QuarterWindows {
		s := Slice{Season: w.Season, Points: []Point{}}
		for _, p := range points {
			if slices.Contains(w.Months, p.Month) {
				s.Points = append(s.Points, p)
			}
		}
		out = append(out, s)
	}
	return out
}
