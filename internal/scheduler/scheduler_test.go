package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls   atomic.Int32
	started bool
}

func (r *countingRefresher) Refresh(context.Context) (<-chan struct{}, bool) {
	r.calls.Add(1)
	if !r.started {
		return nil, false
	}
	done := make(chan struct{})
	close(done)
	return done, true
}

func TestDisabledSchedulerNeverRefreshes(t *testing.T) {
	r := &countingRefresher{started: true}
	s := New(0, r, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.calls.Load())
}

func TestSchedulerRefreshesPeriodically(t *testing.T) {
	r := &countingRefresher{started: true}
	s := New(time.Second, r, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Zero(t, r.calls.Load(), "first run waits for the interval")
	require.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestTickSkipsWhenRefreshInFlight(t *testing.T) {
	r := &countingRefresher{started: false}
	s := New(time.Minute, r, nil)

	s.tick()
	assert.Equal(t, int32(1), r.calls.Load())
}
