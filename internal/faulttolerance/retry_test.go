package faulttolerance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fastRetryer(attempts int) *Retryer {
	return NewRetryer(RetryConfig{
		Name:        "test",
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	})
}

func TestRetryerSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := fastRetryer(3).Execute(t.Context(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryerExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastRetryer(4).Execute(t.Context(), func(context.Context) error {
		calls++
		return errFlaky
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 4, calls)
}

func TestRetryerStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	r := NewRetryer(RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, errFlaky) },
	})

	calls := 0
	err := r.Execute(t.Context(), func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	r := NewRetryer(RetryConfig{MaxAttempts: 5, BaseDelay: time.Second})

	calls := 0
	err := r.Execute(ctx, func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryerDelayIsBounded(t *testing.T) {
	r := NewRetryer(RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    40 * time.Millisecond,
		JitterRange: 0.5,
	})
	for attempt := 1; attempt <= 10; attempt++ {
		d := r.delay(attempt)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 60*time.Millisecond)
	}
}
