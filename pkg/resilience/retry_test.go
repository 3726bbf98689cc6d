package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelaudit/modelaudit/pkg/errors"
)

func testRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
	}
}

func TestRetrier_SucceedsFirstAttempt(t *testing.T) {
	retrier := NewRetrier(testRetryConfig(3))

	attempts := 0
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_SucceedsAfterRetry(t *testing.T) {
	retrier := NewRetrier(testRetryConfig(3))

	attempts := 0
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.NewExternalError("garak", "connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	retrier := NewRetrier(testRetryConfig(3))

	attempts := 0
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.NewExternalError("garak", "connection reset")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")

	// The wrapped error still classifies by type
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}

func TestRetrier_NonRetryableStopsImmediately(t *testing.T) {
	retrier := NewRetrier(testRetryConfig(3))

	tests := []struct {
		name string
		err  error
	}{
		{"validation", errors.NewValidationError("bad probe id")},
		{"authentication", errors.NewAuthenticationError("garak")},
		{"not_found", errors.NewNotFoundError("probe")},
		{"circuit_open", errors.NewCircuitOpenError("garak/openai:gpt-4")},
		{"rate_limit", errors.NewRateLimitError("openai:gpt-4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := retrier.Execute(context.Background(), func(ctx context.Context) error {
				attempts++
				return tt.err
			})

			require.Error(t, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetrier_TimeoutIsRetryable(t *testing.T) {
	retrier := NewRetrier(testRetryConfig(2))

	attempts := 0
	err := retrier.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.NewTimeoutError("probe invocation")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetrier_ContextCancellationStopsRetries(t *testing.T) {
	retrier := NewRetrier(RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := retrier.Execute(ctx, func(ctx context.Context) error {
		attempts++
		return errors.NewExternalError("garak", "connection reset")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_OnRetryCallback(t *testing.T) {
	var delays []time.Duration
	retrier := NewRetrier(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = retrier.Execute(context.Background(), func(ctx context.Context) error {
		return errors.NewExternalError("garak", "connection reset")
	})

	// Two retries for three attempts, with growing backoff
	require.Len(t, delays, 2)
	assert.GreaterOrEqual(t, delays[1], delays[0])
}

func TestRetrier_ExecuteWithResult(t *testing.T) {
	retrier := NewRetrier(testRetryConfig(3))

	attempts := 0
	result, err := retrier.ExecuteWithResult(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.NewExternalError("garak", "connection reset")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 2, attempts)
}
