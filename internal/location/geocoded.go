package location

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
)

// GeocodedProvider resolves a configured street address through the Google
// geocoding API and remembers the result as the last known location.
type GeocodedProvider struct {
	address geocoder.Address
	geocode func(geocoder.Address) (geocoder.Location, error)

	mu    sync.Mutex
	last  Coordinate
	known bool
}

// NewGeocodedProvider configures the geocoder with apiKey. The geocoder
// package keeps its key globally, so all providers share it.
func NewGeocodedProvider(apiKey string, address geocoder.Address) *GeocodedProvider {
	geocoder.ApiKey = apiKey
	return &GeocodedProvider{
		address: address,
		geocode: geocoder.Geocoding,
	}
}

func (p *GeocodedProvider) LastKnownLocation(ctx context.Context) (Coordinate, bool, error) {
	if err := ctx.Err(); err != nil {
		return Coordinate{}, false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.known {
		return p.last, true, nil
	}

	loc, err := p.geocode(p.address)
	if err != nil {
		return Coordinate{}, false, fmt.Errorf("geocode %s: %w", p.address.City, err)
	}

	p.last = Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}
	p.known = true
	return p.last, true, nil
}
