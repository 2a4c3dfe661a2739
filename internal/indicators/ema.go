package indicators

import (
	"fmt"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// EMA represents the Exponential Moving Average technical indicator.
// It is seeded with the first observed value, not with an SMA.
type EMA struct {
	span        int
	alpha       float64
	lastValue   float64
	initialized bool
}

// NewEMA creates a new EMA indicator
func NewEMA(span int) *EMA {
	return &EMA{
		span:  span,
		alpha: 2.0 / float64(span+1),
	}
}

// Update feeds one value and returns the new EMA
func (e *EMA) Update(value float64) float64 {
	if !e.initialized {
		e.lastValue = value
		e.initialized = true
		return e.lastValue
	}

	// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
	e.lastValue = value*e.alpha + e.lastValue*(1-e.alpha)
	return e.lastValue
}

// Value returns the last calculated EMA value
func (e *EMA) Value() float64 {
	return e.lastValue
}

func (e *EMA) IsInitialized() bool {
	return e.initialized
}

func (e *EMA) Span() int {
	return e.span
}

// Reset clears the internal state so the indicator can be reused on a new series
func (e *EMA) Reset() {
	e.lastValue = 0
	e.initialized = false
}

// EMASeries computes the EMA of close prices for every index of data.
// The result has the same length as data and is defined from index 0.
func EMASeries(data []types.OHLCV, span int) ([]float64, error) {
	if span < 1 {
		return nil, boterrors.NewConfigurationError("indicators", "ema_series", fmt.Sprintf("span must be >= 1, got: %d", span))
	}
	if len(data) == 0 {
		return nil, boterrors.NewInsufficientDataError("indicators", "ema_series", 0, 1)
	}

	ema := NewEMA(span)
	out := make([]float64, len(data))
	for i, c := range data {
		out[i] = ema.Update(c.Close)
	}
	return out, nil
}
