package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/regional-forecast/internal/weather"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// HTTPClientConfig bundles the HTTP client and the outbound rate limit.
type HTTPClientConfig struct {
	Client  *http.Client
	Limiter *rate.Limiter // nil disables rate limiting
}

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// doRequest executes a single request through the circuit breaker. It never
// retries. Transport failures and 5xx responses count against the breaker;
// any non-2xx status is returned as *weather.APIError and every failure to
// get a response as *weather.TransportError.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, &weather.TransportError{Op: "send request", Err: errNoHTTPClient}
	}

	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return nil, &weather.TransportError{Op: "rate limit wait", Err: err}
		}
	}

	req, err := buildRequest()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrInvalidRequest, err)
	}
	req = req.WithContext(ctx)
	op := req.Method + " " + redactURL(req.URL)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode >= 500 {
			return nil, newAPIError(resp)
		}
		return resp, nil
	})
	if err != nil {
		var apiErr *weather.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.TransportError{Op: op, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		return nil, &weather.TransportError{Op: op, Err: scrubURLError(err)}
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}
	return resp, nil
}

// newAPIError consumes and closes resp.Body.
func newAPIError(resp *http.Response) *weather.APIError {
	defer resp.Body.Close()

	apiErr := &weather.APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	// OpenWeatherMap error bodies look like {"cod":"404","message":"city not found"}.
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// redactURL drops the query so credentials never reach logs or errors.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}

func scrubURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if parsed, perr := url.Parse(urlErr.URL); perr == nil {
		urlErr.URL = redactURL(parsed)
	}
	return err
}
