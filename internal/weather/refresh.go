package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
)

// Status is the refresh lifecycle exposed to the presentation layer.
type Status string

const (
	StatusReady   Status = "ready"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Message returns the short user-facing text shown for the status.
func (s Status) Message() string {
	switch s {
	case StatusLoading:
		return "loading forecast"
	case StatusSuccess:
		return "forecast updated"
	case StatusError:
		return "failed to load forecast"
	default:
		return ""
	}
}

// State is an immutable snapshot of the controller. Forecast values are
// shared between snapshots and must be treated as read-only.
type State struct {
	// Version increases with every published change.
	Version   uint64
	Status    Status
	Region    Region
	Forecasts map[string]*Forecast
	// LastError is the error of the most recent failed refresh, nil once a
	// later one succeeded.
	LastError error
}

// CurrentForecast returns the forecast for the selected region, or nil.
func (s State) CurrentForecast() *Forecast {
	if s.Region == nil {
		return nil
	}
	return s.Forecasts[s.Region.Key()]
}

var errEmptyForecast = errors.New("empty forecast response")

// RefreshController coordinates the forecast client and cache and owns the
// refresh state machine: Ready -> Loading -> {Success, Error} -> Loading ...
type RefreshController struct {
	client ForecastClient
	cache  ForecastCache
	logger *slog.Logger

	mu        sync.Mutex
	version   uint64
	status    Status
	region    Region
	forecasts map[string]*Forecast
	lastErr   error
	inflight  Region

	obsMu     sync.RWMutex
	observers map[int]func(State)
	nextObsID int
}

// NewRefreshController creates a controller in the Ready state with the first
// named region selected. cache may be nil, in which case nothing is persisted.
func NewRefreshController(client ForecastClient, cache ForecastCache, logger *slog.Logger) *RefreshController {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshController{
		client:    client,
		cache:     cache,
		logger:    logger.With("component", "refresh"),
		status:    StatusReady,
		region:    namedRegions[0],
		forecasts: make(map[string]*Forecast),
		observers: make(map[int]func(State)),
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change. The returned function
// removes the registration.
func (c *RefreshController) Subscribe(fn func(State)) func() {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			delete(c.observers, id)
			c.obsMu.Unlock()
		})
	}
}

// State returns a consistent snapshot of status, selection and forecasts.
func (c *RefreshController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Status returns the current lifecycle status.
func (c *RefreshController) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SelectedRegion returns the region the next refresh will fetch.
func (c *RefreshController) SelectedRegion() Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region
}

// CurrentForecast returns the in-memory forecast for the selected region.
func (c *RefreshController) CurrentForecast() *Forecast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forecasts[c.region.Key()]
}

// LastError returns the error of the most recent failed refresh, or nil
// once a later refresh succeeded.
func (c *RefreshController) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SelectRegion changes the selected region without fetching.
func (c *RefreshController) SelectRegion(region Region) {
	if region == nil {
		c.logger.Warn("ignoring nil region selection")
		return
	}

	c.mu.Lock()
	c.region = region
	if _, ok := region.(GeoRegion); ok {
		c.pruneGeoLocked(region.Key())
	}
	snap := c.publishLocked()
	c.mu.Unlock()

	c.logger.Debug("region selected", "region", region.Key())
	c.notify(snap)
}

// Hydrate loads the cached forecast of every named region into memory.
// Missing or unreadable entries are skipped. The status is not changed.
func (c *RefreshController) Hydrate(ctx context.Context) {
	if c.cache == nil {
		return
	}

	loaded := make(map[string]*Forecast)
	for _, r := range namedRegions {
		key, _ := r.CacheKey()
		if f, ok := c.cache.Read(ctx, key); ok {
			loaded[r.Key()] = f
		}
	}
	if len(loaded) == 0 {
		c.logger.Info("hydrate: no cached forecasts")
		return
	}

	c.mu.Lock()
	maps.Copy(c.forecasts, loaded)
	snap := c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("hydrate: loaded cached forecasts", "regions", len(loaded))
	c.notify(snap)
}

// Refresh starts fetching the selected region in the background. When a
// refresh is already in flight it does nothing and returns started=false.
// done is closed after the outcome is published and, for named regions, the
// cache write-through has been attempted.
//
// The fetch is not cancelled by ctx; the result is always stored under the
// region that was selected when Refresh was called.
func (c *RefreshController) Refresh(ctx context.Context) (done <-chan struct{}, started bool) {
	c.mu.Lock()
	if c.status == StatusLoading {
		c.mu.Unlock()
		c.logger.Debug("refresh ignored; a fetch is already in flight")
		return nil, false
	}
	c.status = StatusLoading
	region := c.region
	c.inflight = region
	snap := c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("refresh started", "region", region.Key())
	c.notify(snap)

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		c.run(context.WithoutCancel(ctx), region)
	}()
	return ch, true
}

func (c *RefreshController) run(ctx context.Context, region Region) {
	forecast, err := c.fetch(ctx, region)

	c.mu.Lock()
	c.inflight = nil
	if err != nil {
		c.status = StatusError
		c.lastErr = err
	} else {
		c.forecasts[region.Key()] = forecast
		c.status = StatusSuccess
		c.lastErr = nil
		if _, ok := region.(GeoRegion); ok {
			c.pruneGeoLocked(region.Key())
		}
	}
	snap := c.publishLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("refresh failed", "region", region.Key(), "kind", KindOf(err), "error", err)
		c.notify(snap)
		return
	}

	c.logger.Info("refresh succeeded", "region", region.Key(), "entries", len(forecast.List))
	c.notify(snap)

	key, ok := region.CacheKey()
	if !ok || c.cache == nil {
		return
	}
	if !c.cache.Write(ctx, key, forecast) {
		c.logger.Warn("forecast not persisted", "region", key)
	}
}

func (c *RefreshController) fetch(ctx context.Context, region Region) (forecast *Forecast, err error) {
	defer func() {
		if r := recover(); r != nil {
			forecast, err = nil, fmt.Errorf("forecast fetch panicked: %v", r)
		}
	}()

	switch r := region.(type) {
	case GeoRegion:
		forecast, err = c.client.FetchByCoordinate(ctx, r.Latitude, r.Longitude)
	case NamedRegion:
		forecast, err = c.client.FetchByName(ctx, r.City)
	default:
		return nil, fmt.Errorf("unsupported region type %T", region)
	}
	if err == nil && forecast == nil {
		err = &DecodeError{Err: errEmptyForecast}
	}
	return forecast, err
}

func (c *RefreshController) publishLocked() State {
	c.version++
	return c.snapshotLocked()
}

func (c *RefreshController) snapshotLocked() State {
	return State{
		Version:   c.version,
		Status:    c.status,
		Region:    c.region,
		Forecasts: maps.Clone(c.forecasts),
		LastError: c.lastErr,
	}
}

// pruneGeoLocked drops every geolocated forecast except keep and the region
// of the fetch in flight. At most one geolocated slot survives at rest.
func (c *RefreshController) pruneGeoLocked(keep string) {
	var pending string
	if c.inflight != nil {
		pending = c.inflight.Key()
	}
	maps.DeleteFunc(c.forecasts, func(key string, _ *Forecast) bool {
		return isGeoKey(key) && key != keep && key != pending
	})
}

func (c *RefreshController) notify(s State) {
	c.obsMu.RLock()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}
