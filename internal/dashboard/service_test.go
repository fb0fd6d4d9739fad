package dashboard_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/bikeshare-trends/internal/dashboard"
	"github.com/couchcryptid/bikeshare-trends/internal/domain"
	"github.com/couchcryptid/bikeshare-trends/internal/observability"
)

type staticSource struct {
	table *domain.Table
}

func (s staticSource) Table() *domain.Table { return s.table }

type mockGeocoder struct {
	query  string
	result domain.GeocodingResult
	err    error
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	m.query = query
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func trip(month int, electric bool, membership, station string, distance float64) domain.Trip {
	dep := time.Date(2021, time.Month(month), 12, 9, 0, 0, 0, time.UTC)
	return domain.Trip{
		DepartureStation: station,
		ReturnStation:    "0002 Burrard Station",
		Departure:        dep,
		Electric:         electric,
		MembershipType:   membership,
		DurationSec:      600,
		DistanceM:        distance,
		MonthNum:         month,
		Month:            domain.MonthAbbr(month),
		Season:           domain.SeasonOf(month),
		DayOfWeek:        dep.Weekday().String(),
	}
}

func testTable() *domain.Table {
	return domain.NewTable([]domain.Trip{
		trip(12, false, "Annual", "0001 10th & Cambie", 1000),
		trip(1, true, "Monthly", "0001 10th & Cambie", 2000),
		trip(1, false, "Annual", "0136 David Lam Park - West", 3000),
		trip(7, false, "24 Hour", "0024 Stanley Park - Information Booth", 4000),
	})
}

func newService(table *domain.Table, geocoder domain.Geocoder) (*dashboard.Service, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	svc := dashboard.NewService(staticSource{table: table}, geocoder,
		dashboard.Options{City: "Vancouver, BC", TopStations: 2}, discardLogger(), metrics)
	return svc, metrics
}

func TestService_NotReady(t *testing.T) {
	svc, _ := newService(nil, nil)

	_, err := svc.Summary()
	require.ErrorIs(t, err, dashboard.ErrNotReady)
	_, err = svc.Memberships()
	require.ErrorIs(t, err, dashboard.ErrNotReady)
	_, err = svc.Trends(domain.DefaultFilter())
	require.ErrorIs(t, err, dashboard.ErrNotReady)
	_, err = svc.LocateStation(context.Background(), "0001")
	require.ErrorIs(t, err, dashboard.ErrNotReady)
}

func TestService_Summary(t *testing.T) {
	svc, _ := newService(testTable(), nil)

	s, err := svc.Summary()
	require.NoError(t, err)

	assert.Equal(t, 4, s.TotalTrips)
	assert.Equal(t, 3, s.StationCount)
	require.Len(t, s.TopStations, 2)
	assert.Equal(t, "0001 10th & Cambie", s.TopStations[0].Station)
	assert.Equal(t, 2, s.TopStations[0].Trips)
}

func TestService_Memberships(t *testing.T) {
	svc, _ := newService(testTable(), nil)

	m, err := svc.Memberships()
	require.NoError(t, err)
	assert.Equal(t, []string{"24 Hour", "Annual", "Monthly"}, m)
}

func TestService_Trends(t *testing.T) {
	svc, metrics := newService(testTable(), nil)

	res, err := svc.Trends(domain.Filter{Bike: domain.BikeClassic, Memberships: []string{domain.AllMemberships}, MonthFrom: 1, MonthTo: 12})
	require.NoError(t, err)

	require.Len(t, res.TripCounts, 3)
	assert.Equal(t, "Dec", res.TripCounts[0].Month)
	assert.Equal(t, "Jan", res.TripCounts[1].Month)
	assert.Equal(t, 1.0, res.TripCounts[1].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Aggregations.WithLabelValues("classic")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.AggregationDuration))
}

func TestService_LocateStation(t *testing.T) {
	geo := &mockGeocoder{result: domain.GeocodingResult{
		Lat: 49.2722, Lon: -123.1155, FormattedAddress: "David Lam Park, Vancouver, British Columbia, Canada", Confidence: 0.9,
	}}
	svc, _ := newService(testTable(), geo)

	loc, err := svc.LocateStation(context.Background(), "0136")
	require.NoError(t, err)

	assert.Equal(t, "David Lam Park - West, Vancouver, BC", geo.query)
	assert.True(t, loc.Found)
	assert.Equal(t, "0136", loc.StationID)
	assert.Equal(t, "0136 David Lam Park - West", loc.Station)
	assert.Equal(t, 49.2722, loc.Lat)
}

func TestService_LocateStation_Errors(t *testing.T) {
	upstream := errors.New("mapbox down")

	tests := []struct {
		name     string
		geocoder domain.Geocoder
		id       string
		wantErr  error
	}{
		{name: "unknown id", geocoder: &mockGeocoder{}, id: "9999", wantErr: dashboard.ErrStationNotFound},
		{name: "empty id", geocoder: &mockGeocoder{}, id: "", wantErr: dashboard.ErrStationNotFound},
		{name: "geocoding disabled", geocoder: nil, id: "0001", wantErr: dashboard.ErrGeocodingDisabled},
		{name: "provider failure", geocoder: &mockGeocoder{err: upstream}, id: "0001", wantErr: upstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(testTable(), tt.geocoder)
			_, err := svc.LocateStation(context.Background(), tt.id)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	svc, _ := newService(testTable(), nil)
	res, err := svc.Trends(domain.DefaultFilter())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dashboard.WriteCSV(&buf, res))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Month", "Season", "Trips", "AvgDistance"},
		{"Dec", domain.Winter, "1", "1000.00"},
		{"Jan", domain.Winter, "2", "2500.00"},
		{"Jul", domain.Summer, "1", "4000.00"},
	}, records)
}

func TestWriteCSV_Empty(t *testing.T) {
	svc, _ := newService(domain.NewTable(nil), nil)
	res, err := svc.Trends(domain.DefaultFilter())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dashboard.WriteCSV(&buf, res))
	assert.Equal(t, "Month,Season,Trips,AvgDistance\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	svc, _ := newService(testTable(), nil)
	res, err := svc.Trends(domain.DefaultFilter())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dashboard.WriteXLSX(&buf, res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Trends")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Month", "Season", "Trips", "AvgDistance"}, rows[0])
	assert.Equal(t, "Dec", rows[1][0])
	assert.Equal(t, "2", rows[2][2])
	assert.Equal(t, "Jul", rows[3][0])
}
