package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/freight-platform/pricing-service/pkg/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("cases")
	cfg.FailureThreshold = 2
	var transitions []gobreaker.State
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) { transitions = append(transitions, to) }
	cb := NewCircuitBreaker(cfg, quietLogger())

	failing := func() (interface{}, error) { return nil, errors.New("connection refused") }
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(context.Background(), failing)
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	_, err := cb.Execute(context.Background(), func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrKindUnavailable)
	assert.Contains(t, err.Error(), "cases")
}

func TestCircuitBreaker_NotFoundIsNotAFailure(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("cases")
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker(cfg, quietLogger())

	missing := fmt.Errorf("case not found: %w", apperrors.ErrKindNotFound)
	for i := 0; i < 3; i++ {
		_, err := cb.Execute(context.Background(), func() (interface{}, error) { return nil, missing })
		assert.ErrorIs(t, err, missing)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, "cases", cb.Name())
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("cases"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := cb.Execute(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), fastRetry(3), func() error {
			calls++
			if calls < 3 {
				return errors.New("leader not available")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		broker := errors.New("leader not available")
		calls := 0
		err := Retry(context.Background(), fastRetry(2), func() error {
			calls++
			return broker
		})
		assert.ErrorIs(t, err, broker)
		assert.Contains(t, err.Error(), "max retries (2) exceeded")
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		cfg := fastRetry(5)
		cfg.RetryableErrors = func(error) bool { return false }
		calls := 0
		fatal := errors.New("message too large")
		err := Retry(context.Background(), cfg, func() error {
			calls++
			return fatal
		})
		assert.Same(t, fatal, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, fastRetry(3), func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
