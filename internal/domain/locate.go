package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// LocateStation forward-geocodes a canonical station label within city.
// A query without a match yields a StationLocation with Found=false.
func LocateStation(ctx context.Context, station, city string, geocoder Geocoder, logger *slog.Logger) (StationLocation, error) {
	query := StationQuery(station, city)
	result, err := geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		logger.Warn("station geocoding failed",
			"station", station,
			"query", query,
			"error", err,
		)
		return StationLocation{}, fmt.Errorf("geocode station %q: %w", StationID(station), err)
	}

	loc := NewStationLocation(station, query, result)
	if !loc.Found {
		logger.Debug("station not found by geocoder", "station", station, "query", query)
	}
	return loc, nil
}
