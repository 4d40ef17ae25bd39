package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/i474232898/regional-forecast/internal/weather"
)

var (
	// ErrUnknownRegion is returned for identifiers outside the named regions.
	ErrUnknownRegion = errors.New("not a named region")
	// ErrNilForecast is returned when asked to persist nothing.
	ErrNilForecast = errors.New("nil forecast")
)

// Backend is a durable key-value store holding one serialized forecast per key.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// ForecastCache stores the last successful forecast of each named region as
// JSON in a Backend. Storage failures are logged and never returned.
type ForecastCache struct {
	backend Backend
	logger  *slog.Logger
}

var _ weather.ForecastCache = (*ForecastCache)(nil)

func NewForecastCache(backend Backend, logger *slog.Logger) *ForecastCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastCache{
		backend: backend,
		logger:  logger.With("component", "forecast-cache"),
	}
}

// Write serializes forecast and stores it under regionID, overwriting any
// previous value. It reports whether the value was stored.
func (c *ForecastCache) Write(ctx context.Context, regionID string, forecast *weather.Forecast) bool {
	if err := c.write(ctx, regionID, forecast); err != nil {
		c.logger.Warn("cache write failed", "error", &weather.CacheWriteError{Region: regionID, Err: err})
		return false
	}
	c.logger.Debug("forecast cached", "region", regionID)
	return true
}

func (c *ForecastCache) write(ctx context.Context, regionID string, forecast *weather.Forecast) error {
	if _, ok := weather.LookupNamedRegion(regionID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, regionID)
	}
	if forecast == nil {
		return ErrNilForecast
	}

	data, err := json.Marshal(forecast)
	if err != nil {
		return fmt.Errorf("serialize forecast: %w", err)
	}
	return c.backend.Put(ctx, regionID, data)
}

// Read returns the most recently written forecast for regionID. Missing keys,
// storage failures and values that do not deserialize are all reported as
// absent.
func (c *ForecastCache) Read(ctx context.Context, regionID string) (*weather.Forecast, bool) {
	if _, ok := weather.LookupNamedRegion(regionID); !ok {
		c.logger.Debug("cache read for unknown region", "region", regionID)
		return nil, false
	}

	data, found, err := c.backend.Get(ctx, regionID)
	if err != nil {
		c.logger.Warn("cache read failed", "error", &weather.CacheReadError{Region: regionID, Err: err})
		return nil, false
	}
	if !found || len(data) == 0 {
		return nil, false
	}

	var forecast weather.Forecast
	if err := json.Unmarshal(data, &forecast); err != nil {
		c.logger.Warn("discarding malformed cached forecast",
			"error", &weather.CacheReadError{Region: regionID, Err: err})
		return nil, false
	}
	return &forecast, true
}

// Close releases the underlying backend.
func (c *ForecastCache) Close() error {
	return c.backend.Close()
}
