package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, Sleep: noSleep}, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientUntilBudget(t *testing.T) {
	calls := 0
	transient := NewTransientError(eris.New("flaky"), 503)

	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, Sleep: noSleep}, func(context.Context) error {
		calls++
		return transient
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 5, Sleep: noSleep}, func(context.Context) error {
		calls++
		return eris.New("bad credentials")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ReturnsValueAfterRetry(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), RetryConfig{MaxAttempts: 3, Sleep: noSleep}, func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(eris.New("try again"), 429)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, RetryConfig{MaxAttempts: 5, Sleep: noSleep}, func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(eris.New("flaky"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_BackoffGrows(t *testing.T) {
	var delays []time.Duration
	cfg := RetryConfig{
		MaxAttempts:    4,
		InitialBackoff: 100 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0, // deterministic
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}
	_ = Do(context.Background(), cfg, func(context.Context) error {
		return NewTransientError(eris.New("flaky"), 502)
	})

	require.Len(t, delays, 3)
	assert.Equal(t, 100*time.Millisecond, delays[0])
	assert.Equal(t, 200*time.Millisecond, delays[1])
	assert.Equal(t, 400*time.Millisecond, delays[2])
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("permission denied")))
	assert.True(t, IsTransient(NewTransientError(eris.New("x"), 503)))
	assert.True(t, IsTransient(eris.New("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(eris.New("page load: net::ERR_CONNECTION_RESET")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code=%d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "code=%d", code)
	}
}
