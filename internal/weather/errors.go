package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey is returned by clients that have no credential configured.
	ErrNoAPIKey = errors.New("forecast api key is not configured")
	// ErrInvalidRequest is returned when a request cannot be built from the
	// given arguments or base URL. Nothing is sent.
	ErrInvalidRequest = errors.New("invalid forecast request")
)

// TransportError reports a request that never produced an HTTP response:
// network failure, timeout or an open circuit.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports a non-2xx response from the forecast service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("forecast api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("forecast api returned status %d: %s", e.StatusCode, e.Message)
}

// DecodeError reports a response body that does not match the forecast shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode forecast: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CacheReadError reports a local storage failure while reading a region.
type CacheReadError struct {
	Region string
	Err    error
}

func (e *CacheReadError) Error() string {
	return fmt.Sprintf("read cached forecast for %s: %v", e.Region, e.Err)
}

func (e *CacheReadError) Unwrap() error { return e.Err }

// CacheWriteError reports a local storage failure while writing a region.
type CacheWriteError struct {
	Region string
	Err    error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("write cached forecast for %s: %v", e.Region, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

// ErrorKind classifies a fetch failure for diagnostics.
type ErrorKind string

const (
	ErrorKindNone      ErrorKind = ""
	ErrorKindTransport ErrorKind = "transport"
	ErrorKindAPI       ErrorKind = "api"
	ErrorKindDecode    ErrorKind = "decode"
	ErrorKindConfig    ErrorKind = "config"
	ErrorKindUnknown   ErrorKind = "unknown"
)

// KindOf reports which part of the taxonomy err belongs to.
func KindOf(err error) ErrorKind {
	var (
		transportErr *TransportError
		apiErr       *APIError
		decodeErr    *DecodeError
	)
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.As(err, &transportErr):
		return ErrorKindTransport
	case errors.As(err, &apiErr):
		return ErrorKindAPI
	case errors.As(err, &decodeErr):
		return ErrorKindDecode
	case errors.Is(err, ErrNoAPIKey), errors.Is(err, ErrInvalidRequest):
		return ErrorKindConfig
	default:
		return ErrorKindUnknown
	}
}
