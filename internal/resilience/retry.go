package resilience

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrRetriesExhausted wraps the last observed error once every attempt in
// a Retry call has failed.
var ErrRetriesExhausted = errors.New("resilience: retries exhausted")

// RetryConfig tunes the exponential backoff schedule. Unlike the teacher
// framework's math.Sin-derived jitter, backoffDelay draws its jitter term from
// crypto/rand so concurrent clients do not converge on a synchronized
// retry cadence from a deterministic function of the attempt number.
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterEnabled bool
	// AttemptTimeout bounds a single attempt's execution, independent of
	// the overall retry budget. Zero disables the per-attempt timeout.
	AttemptTimeout time.Duration
	// Retryable decides whether an error should trigger another attempt.
	// Nil means every non-nil error is retryable.
	Retryable func(error) bool
}

// DefaultRetryConfig mirrors spec.md §5's retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		JitterEnabled:  true,
		AttemptTimeout: 3 * time.Second,
	}
}

// Retry runs fn up to config.MaxAttempts times with exponential backoff
// between attempts, honoring ctx cancellation and, if configured, a
// per-attempt timeout distinct from any deadline already on ctx.
func Retry(ctx context.Context, config *RetryConfig, fn func(context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if config.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, config.AttemptTimeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(config, err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(config, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%d attempts failed, last error: %w: %w", maxAttempts, lastErr, ErrRetriesExhausted)
}

func isRetryable(config *RetryConfig, err error) bool {
	if config.Retryable == nil {
		return true
	}
	return config.Retryable(err)
}

// backoffDelay computes min(base*2^(attempt-1) + jitter, maxDelay), with
// jitter drawn uniformly from [0, base*2^(attempt-1)*0.2) when enabled.
func backoffDelay(config *RetryConfig, attempt int) time.Duration {
	delay := config.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > config.MaxDelay {
			delay = config.MaxDelay
			break
		}
	}

	if config.JitterEnabled && delay > 0 {
		delay += cryptoJitter(delay)
	}

	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// cryptoJitter returns a uniformly random duration in [0, 0.2*delay),
// sourced from crypto/rand. Falling back to zero jitter on a read error
// is safe: it only narrows the backoff spread, it never breaks it.
func cryptoJitter(delay time.Duration) time.Duration {
	maxJitter := int64(float64(delay) * 0.2)
	if maxJitter <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
