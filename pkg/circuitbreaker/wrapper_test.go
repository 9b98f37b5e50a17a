package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapper_OpensAfterFailures(t *testing.T) {
	w := NewWrapper(Config{
		Name:        "test-upload",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: FailureRatioTrip(2, 1.0),
	})
	ctx := context.Background()
	failing := func() (interface{}, error) { return nil, errors.New("HTTP 500") }

	_, err := w.ExecuteWithContext(ctx, failing)
	require.Error(t, err)
	assert.False(t, w.IsOpen())

	_, err = w.ExecuteWithContext(ctx, failing)
	require.Error(t, err)
	assert.True(t, w.IsOpen())

	called := false
	_, err = w.ExecuteWithContext(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsRejected(err))
	assert.False(t, called)
}

func TestIsRejected(t *testing.T) {
	assert.True(t, IsRejected(gobreaker.ErrTooManyRequests))
	assert.False(t, IsRejected(errors.New("HTTP 500")))
	assert.False(t, IsRejected(nil))
}

func TestWrapper_CancelledContext(t *testing.T) {
	w := NewWrapper(DefaultConfig("cancelled"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.ExecuteWithContext(ctx, func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFailureRatioTrip(t *testing.T) {
	trip := FailureRatioTrip(3, 0.5)
	assert.False(t, trip(gobreaker.Counts{Requests: 2, TotalFailures: 2}))
	assert.True(t, trip(gobreaker.Counts{Requests: 4, TotalFailures: 2}))
	assert.False(t, trip(gobreaker.Counts{Requests: 4, TotalFailures: 1}))
}
