package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/regional-forecast/internal/weather"
)

const (
	// DefaultForecastURL is the 5-day/3-hour forecast endpoint.
	DefaultForecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	// DefaultLang is the display language requested from the API.
	DefaultLang = "ja"
)

var errMalformedForecast = errors.New("response is missing forecast fields")

// OpenWeatherOptions tunes an OpenWeatherClient. Zero values pick defaults.
type OpenWeatherOptions struct {
	BaseURL           string
	Lang              string
	RequestsPerMinute int // <= 0 disables the limiter
}

// OpenWeatherClient implements weather.ForecastClient for OpenWeatherMap.
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

var _ weather.ForecastClient = (*OpenWeatherClient)(nil)

func NewOpenWeatherClient(client *http.Client, apiKey string, opts OpenWeatherOptions) *OpenWeatherClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather-forecast",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	lang := opts.Lang
	if lang == "" {
		lang = DefaultLang
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		lang:    lang,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Limiter: limiter,
		},
		circuit: cb,
	}
}

// FetchByName fetches the forecast for a city name.
func (p *OpenWeatherClient) FetchByName(ctx context.Context, city string) (*weather.Forecast, error) {
	if city == "" {
		return nil, fmt.Errorf("%w: city name is required", weather.ErrInvalidRequest)
	}
	values := url.Values{}
	values.Set("q", city)
	return p.fetch(ctx, values)
}

// FetchByCoordinate fetches the forecast for a latitude/longitude pair.
func (p *OpenWeatherClient) FetchByCoordinate(ctx context.Context, lat, lon float64) (*weather.Forecast, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return p.fetch(ctx, values)
}

func (p *OpenWeatherClient) fetch(ctx context.Context, values url.Values) (*weather.Forecast, error) {
	if p.apiKey == "" {
		return nil, weather.ErrNoAPIKey
	}

	buildRequest := func() (*http.Request, error) {
		values.Set("units", "metric")
		values.Set("lang", p.lang)
		values.Set("appId", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var forecast weather.Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		// A body cut short by a timeout is a transport failure, not a bad payload.
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &weather.TransportError{Op: "read forecast body", Err: err}
		}
		return nil, &weather.DecodeError{Err: err}
	}
	if forecast.Cod == "" && forecast.List == nil {
		return nil, &weather.DecodeError{Err: errMalformedForecast}
	}

	return &forecast, nil
}
