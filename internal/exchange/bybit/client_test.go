package bybit

import (
	"context"
	"errors"
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestClientEnvironment(t *testing.T) {
	assert.Equal(t, "mainnet", NewClient(Config{}).GetEnvironment())
	assert.Equal(t, "testnet", NewClient(Config{Testnet: true}).GetEnvironment())
	assert.Equal(t, "demo", NewClient(Config{Demo: true, Testnet: true}).GetEnvironment())
	assert.Equal(t, "spot", NewClient(Config{}).Category())
	assert.Equal(t, "linear", NewClient(Config{Category: "linear"}).Category())
}

func TestCall_RetriesTransientErrors(t *testing.T) {
	c := NewClient(Config{Retry: fastRetry(), RequestsPerSecond: 1000})
	attempts := 0

	resp, err := c.call(context.Background(), "test", func() (*bybit_api.ServerResponse, error) {
		attempts++
		if attempts < 3 {
			return &bybit_api.ServerResponse{RetCode: ErrCodeRateLimitExceeded, RetMsg: "too many visits"}, nil
		}
		return &bybit_api.ServerResponse{RetCode: 0, Result: map[string]interface{}{}}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, 3, attempts)
}

func TestCall_StopsOnPermanentErrors(t *testing.T) {
	c := NewClient(Config{Retry: fastRetry(), RequestsPerSecond: 1000})
	attempts := 0

	_, err := c.call(context.Background(), "test", func() (*bybit_api.ServerResponse, error) {
		attempts++
		return &bybit_api.ServerResponse{RetCode: ErrCodeInvalidAPIKey, RetMsg: "api key invalid"}, nil
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, IsAuthenticationError(err))
	assert.Contains(t, err.Error(), "test failed")
}

func TestCall_GivesUpAfterMaxRetries(t *testing.T) {
	c := NewClient(Config{Retry: fastRetry(), RequestsPerSecond: 1000})
	attempts := 0

	_, err := c.call(context.Background(), "test", func() (*bybit_api.ServerResponse, error) {
		attempts++
		return nil, errors.New("connection reset")
	})
	require.Error(t, err)
	assert.Equal(t, 4, attempts)
}

func TestCall_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	c := NewClient(Config{Retry: RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, RequestsPerSecond: 1000})
	fail := func() (*bybit_api.ServerResponse, error) { return nil, errors.New("timeout") }

	for i := 0; i < 5; i++ {
		_, _ = c.call(context.Background(), "test", fail)
	}

	called := false
	_, err := c.call(context.Background(), "test", func() (*bybit_api.ServerResponse, error) {
		called = true
		return &bybit_api.ServerResponse{}, nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsRetryableError(NewBybitError(503, "unavailable")))
	assert.True(t, IsRateLimitError(WrapAPIError("x", NewBybitError(ErrCodeRateLimitExceeded, "slow down"))))
	assert.False(t, IsRetryableError(errors.New("plain")))
	assert.Nil(t, ParseAPIError(0, "OK"))
	assert.Equal(t, "Bybit API error 1: m (d)", NewBybitError(1, "m", "d").Error())
}
