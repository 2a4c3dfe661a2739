package bybit

import (
	"context"
	"errors"
	"fmt"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
)

// Client wraps the Bybit API client with rate limiting, retries and a circuit breaker
type Client struct {
	httpClient *bybit_api.Client
	category   string
	testnet    bool
	demo       bool
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	retry      RetryConfig
	log        *logger.Logger
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool   // Demo trading environment
	Category  string // "spot" or "linear", spot when empty

	// RequestsPerSecond caps outgoing REST calls, 10 when zero
	RequestsPerSecond float64
	Retry             RetryConfig
	Logger            *logger.Logger
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	var baseURL string
	if config.Demo {
		baseURL = "https://api-demo.bybit.com"
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	if config.Category == "" {
		config.Category = "spot"
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10
	}
	if config.Retry.MaxRetries == 0 && config.Retry.InitialDelay == 0 {
		config.Retry = DefaultRetryConfig()
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	return &Client{
		httpClient: httpClient,
		category:   config.Category,
		testnet:    config.Testnet,
		demo:       config.Demo,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), int(config.RequestsPerSecond)),
		breaker:    newBreaker("bybit-rest", config.Logger),
		retry:      config.Retry,
		log:        config.Logger,
	}
}

func newBreaker(name string, log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warning("circuit %s: %s -> %s", name, from, to)
		},
	})
}

// Category returns the market category requests default to
func (c *Client) Category() string {
	return c.category
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.demo {
		return "demo"
	} else if c.testnet {
		return "testnet"
	}
	return "mainnet"
}

// call runs one REST request through the limiter, the breaker and the retry policy.
// A non-zero retCode becomes a *BybitError.
func (c *Client) call(ctx context.Context, operation string, fn func() (*bybit_api.ServerResponse, error)) (*bybit_api.ServerResponse, error) {
	var resp *bybit_api.ServerResponse

	err := withRetry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		out, err := c.breaker.Execute(func() (interface{}, error) {
			r, err := fn()
			if err != nil {
				return nil, err
			}
			if r == nil {
				return nil, NewBybitError(0, "empty response")
			}
			if apiErr := ParseAPIError(r.RetCode, r.RetMsg); apiErr != nil {
				return nil, apiErr
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return err
			}
			c.log.Warning("%s failed: %v", operation, err)
			return err
		}
		resp = out.(*bybit_api.ServerResponse)
		return nil
	})
	if err != nil {
		return nil, WrapAPIError(operation, err)
	}
	return resp, nil
}

func (c *Client) categoryOr(category string) string {
	if category == "" {
		return c.category
	}
	return category
}

func (c *Client) String() string {
	return fmt.Sprintf("bybit(%s/%s)", c.GetEnvironment(), c.category)
}
