package httpapi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/regional-forecast/internal/weather"
)

func TestStateViewUsesSnapshotError(t *testing.T) {
	failed := weather.State{
		Version:   3,
		Status:    weather.StatusError,
		Region:    weather.Tokyo,
		LastError: &weather.TransportError{Op: "GET", Err: errors.New("timeout")},
	}
	v := toStateView(failed)
	assert.Equal(t, "error", v.Status)
	assert.Equal(t, string(weather.ErrorKindTransport), v.LastErrorKind)
	assert.Equal(t, "failed to load forecast", v.Message)

	ok := weather.State{Version: 4, Status: weather.StatusSuccess, Region: weather.Tokyo}
	assert.Empty(t, toStateView(ok).LastErrorKind)
}
