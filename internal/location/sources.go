package location

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-now/internal/weather"
)

var (
	// ErrOutOfRange is returned for coordinates outside [-90,90] x [-180,180].
	ErrOutOfRange = errors.New("coordinate out of range")
	// ErrNoAddress is returned when a geocoder source has nothing to look up.
	ErrNoAddress = errors.New("city is required for geocoding")
)

// StaticSource always reports the same coordinate.
type StaticSource struct {
	Coordinate weather.Coordinate
}

func (s StaticSource) Locate(ctx context.Context) (weather.Coordinate, error) {
	return s.Coordinate, nil
}

// geocode is swapped in tests; the real one calls the Google geocoding API.
var geocode = geocoder.Geocoding

// geocoder keeps its API key in a package variable.
var geocoderMu sync.Mutex

// GeocoderSource turns a configured city and country into a coordinate.
type GeocoderSource struct {
	APIKey  string
	City    string
	Country string
}

func (s GeocoderSource) Locate(ctx context.Context) (weather.Coordinate, error) {
	if s.City == "" {
		return weather.Coordinate{}, ErrNoAddress
	}
	if err := ctx.Err(); err != nil {
		return weather.Coordinate{}, err
	}

	geocoderMu.Lock()
	geocoder.ApiKey = s.APIKey
	loc, err := geocode(geocoder.Address{
		City:    s.City,
		Country: s.Country,
	})
	geocoderMu.Unlock()

	if err != nil {
		return weather.Coordinate{}, fmt.Errorf("geocode %s,%s: %w", s.City, s.Country, err)
	}

	return weather.Coordinate{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}, nil
}
