package weather

import "context"

// ForecastClient fetches a fresh forecast from the remote service. Failures
// are *TransportError, *APIError or *DecodeError, or wrap ErrNoAPIKey or
// ErrInvalidRequest when nothing could be sent. Implementations never retry.
type ForecastClient interface {
	FetchByName(ctx context.Context, city string) (*Forecast, error)
	FetchByCoordinate(ctx context.Context, lat, lon float64) (*Forecast, error)
}

// ForecastCache persists the last successful forecast per named region.
// Neither method surfaces storage errors; a failed write reports false and a
// failed or malformed read reports absent.
type ForecastCache interface {
	Write(ctx context.Context, regionID string, forecast *Forecast) bool
	Read(ctx context.Context, regionID string) (*Forecast, bool)
}
