// Package location supplies the device coordinate used for geolocated
// forecasts. Acquiring it is gated by an explicit permission.
package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/i474232898/regional-forecast/internal/weather"
)

var (
	// ErrPermissionDenied is returned when the gate has not been opened.
	ErrPermissionDenied = errors.New("location permission not granted")
	// ErrUnavailable is returned when no location is known.
	ErrUnavailable = errors.New("location unavailable")
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Provider returns the last known device location. ok is false when none is
// known.
type Provider interface {
	LastKnownLocation(ctx context.Context) (coord Coordinate, ok bool, err error)
}

// PermissionGate must report true before a Provider may be asked.
type PermissionGate interface {
	Granted() bool
}

// StaticGate is a PermissionGate fixed at construction.
type StaticGate bool

func (g StaticGate) Granted() bool { return bool(g) }

// Resolve asks p for the last known location once gate allows it and returns
// a fresh geolocated region for it.
func Resolve(ctx context.Context, gate PermissionGate, p Provider) (weather.GeoRegion, error) {
	if gate == nil || !gate.Granted() {
		return weather.GeoRegion{}, ErrPermissionDenied
	}
	if p == nil {
		return weather.GeoRegion{}, ErrUnavailable
	}

	coord, ok, err := p.LastKnownLocation(ctx)
	if err != nil {
		return weather.GeoRegion{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return weather.GeoRegion{}, ErrUnavailable
	}
	return weather.NewGeoRegion(coord.Latitude, coord.Longitude), nil
}
