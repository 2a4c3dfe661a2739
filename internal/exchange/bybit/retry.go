package bybit

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// RetryConfig holds configuration for retry mechanisms
type RetryConfig struct {
	MaxRetries   int           `json:"maxRetries"`
	InitialDelay time.Duration `json:"initialDelay"`
	MaxDelay     time.Duration `json:"maxDelay"`
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}
}

func (rc RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = rc.InitialDelay
	eb.MaxInterval = rc.MaxDelay
	eb.MaxElapsedTime = 0
	var b backoff.BackOff = eb
	if rc.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(rc.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

// withRetry retries op with exponential backoff while the error is retryable
func withRetry(ctx context.Context, rc RetryConfig, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}, rc.backOff(ctx))
}

func shouldRetry(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var bybitErr *BybitError
	if errors.As(err, &bybitErr) {
		return IsRetryableError(bybitErr)
	}
	// transport failures carry no API code
	return true
}
