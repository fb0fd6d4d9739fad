package domain

import (
	"context"
	"strings"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves free-text place queries to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place query to coordinates. A query with no
	// match returns a zero result and a nil error.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)
}

// StationLocation is the geocoded position of a station.
type StationLocation struct {
	StationID  string  `json:"station_id"`
	Station    string  `json:"station"`
	Query      string  `json:"query"`
	Found      bool    `json:"found"`
	Lat        float64 `json:"lat,omitempty"`
	Lon        float64 `json:"lon,omitempty"`
	Address    string  `json:"address,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// StationQuery builds the geocoding query for a station label: the numeric
// id is dropped, " - " separated qualifiers are kept, and city is appended.
// "0136 David Lam Park - West" in "Vancouver, BC" yields
// "David Lam Park - West, Vancouver, BC".
func StationQuery(station, city string) string {
	name := strings.TrimSpace(strings.TrimPrefix(station, StationID(station)))
	if city == "" {
		return name
	}
	return name + ", " + city
}

// NewStationLocation combines a station label with a geocoding result.
func NewStationLocation(station, query string, r GeocodingResult) StationLocation {
	return StationLocation{
		StationID:  StationID(station),
		Station:    station,
		Query:      query,
		Found:      r.FormattedAddress != "",
		Lat:        r.Lat,
		Lon:        r.Lon,
		Address:    r.FormattedAddress,
		Confidence: r.Confidence,
	}
}
