// Package dashboard answers the dashboard's read queries against the cleaned
// trip table.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/bikeshare-trends/internal/domain"
	"github.com/couchcryptid/bikeshare-trends/internal/observability"
)

var (
	// ErrNotReady is returned before the trip table has been built.
	ErrNotReady = errors.New("trip table not loaded")
	// ErrStationNotFound is returned for a station id absent from the table.
	ErrStationNotFound = errors.New("station not found")
	// ErrGeocodingDisabled is returned by LocateStation when no geocoder is configured.
	ErrGeocodingDisabled = errors.New("station geocoding disabled")
)

// TableSource provides the current cleaned table; nil until it is built.
type TableSource interface {
	Table() *domain.Table
}

// Options configures a Service.
type Options struct {
	City        string // appended to station names when geocoding
	TopStations int
}

// Service serves summary, trend and station queries. It never mutates the
// table and is safe for concurrent use.
type Service struct {
	source   TableSource
	geocoder domain.Geocoder
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService creates a Service. geocoder may be nil to disable station lookups.
func NewService(source TableSource, geocoder domain.Geocoder, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		source:   source,
		geocoder: geocoder,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

func (s *Service) table() (*domain.Table, error) {
	t := s.source.Table()
	if t == nil {
		return nil, ErrNotReady
	}
	return t, nil
}

// Summary returns the overview figures for the whole table.
func (s *Service) Summary() (domain.Summary, error) {
	t, err := s.table()
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(t, s.opts.TopStations), nil
}

// Memberships lists the distinct membership types for the filter dropdown.
func (s *Service) Memberships() ([]string, error) {
	t, err := s.table()
	if err != nil {
		return nil, err
	}
	return domain.Memberships(t), nil
}

// Trends aggregates the table under f.
func (s *Service) Trends(f domain.Filter) (domain.Results, error) {
	t, err := s.table()
	if err != nil {
		return domain.Results{}, err
	}
	start := time.Now()
	res, err := domain.Aggregate(t, f)
	s.metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("trend aggregation failed",
			"bike", f.Bike,
			"memberships", f.Memberships,
			"from", f.MonthFrom,
			"to", f.MonthTo,
			"error", err,
		)
		return domain.Results{}, err
	}
	s.metrics.Aggregations.WithLabelValues(string(f.Bike)).Inc()

	s.logger.Debug("trends aggregated",
		"bike", f.Bike,
		"memberships", f.Memberships,
		"from", f.MonthFrom,
		"to", f.MonthTo,
		"months", len(res.TripCounts),
	)
	return res, nil
}

// LocateStation geocodes the canonical station whose numeric id is id.
func (s *Service) LocateStation(ctx context.Context, id string) (domain.StationLocation, error) {
	t, err := s.table()
	if err != nil {
		return domain.StationLocation{}, err
	}
	station, ok := findStation(t, id)
	if !ok {
		return domain.StationLocation{}, fmt.Errorf("%w: %s", ErrStationNotFound, id)
	}
	if s.geocoder == nil {
		return domain.StationLocation{}, ErrGeocodingDisabled
	}
	return domain.LocateStation(ctx, station, s.opts.City, s.geocoder, s.logger)
}

// findStation returns the first canonical label, in sorted order, whose
// station id equals id.
func findStation(t *domain.Table, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	for _, station := range domain.Stations(t) {
		if domain.StationID(station) == id {
			return station, true
		}
	}
	return "", false
}
