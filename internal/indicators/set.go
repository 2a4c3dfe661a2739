package indicators

import (
	"fmt"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// Spans configures the periods of the indicator set
type Spans struct {
	Fast      int `json:"ema_fast" yaml:"ema_fast"`
	Mid       int `json:"ema_mid" yaml:"ema_mid"`
	Slow      int `json:"ema_slow" yaml:"ema_slow"`
	ATRPeriod int `json:"atr_period" yaml:"atr_period"`
}

// DefaultSpans returns the 10/20/50 EMA and 14-period ATR setup
func DefaultSpans() Spans {
	return Spans{Fast: 10, Mid: 20, Slow: 50, ATRPeriod: 14}
}

func (s Spans) Validate() error {
	if s.Fast < 1 || s.Mid < 1 || s.Slow < 1 {
		return boterrors.NewConfigurationError("indicators", "validate_spans",
			fmt.Sprintf("EMA spans must be >= 1, got: %d/%d/%d", s.Fast, s.Mid, s.Slow))
	}
	if !(s.Fast < s.Mid && s.Mid < s.Slow) {
		return boterrors.NewConfigurationError("indicators", "validate_spans",
			fmt.Sprintf("EMA spans must satisfy fast < mid < slow, got: %d/%d/%d", s.Fast, s.Mid, s.Slow))
	}
	if s.ATRPeriod < 1 {
		return boterrors.NewConfigurationError("indicators", "validate_spans",
			fmt.Sprintf("ATR period must be >= 1, got: %d", s.ATRPeriod))
	}
	return nil
}

// Set is the indicator snapshot at one candle index
type Set struct {
	EMAFast  float64
	EMAMid   float64
	EMASlow  float64
	ATR      float64
	ATRReady bool
}

// Series holds per-index indicator values for a whole candle series.
// Every value at index i depends only on candles 0..i.
type Series struct {
	EMAFast []float64
	EMAMid  []float64
	EMASlow []float64
	ATR     []float64
}

// Compute derives the full indicator series for data
func Compute(data []types.OHLCV, spans Spans) (*Series, error) {
	if err := spans.Validate(); err != nil {
		return nil, err
	}

	fast, err := EMASeries(data, spans.Fast)
	if err != nil {
		return nil, err
	}
	mid, err := EMASeries(data, spans.Mid)
	if err != nil {
		return nil, err
	}
	slow, err := EMASeries(data, spans.Slow)
	if err != nil {
		return nil, err
	}
	atr, err := ATRSeries(data, spans.ATRPeriod)
	if err != nil {
		return nil, err
	}

	return &Series{EMAFast: fast, EMAMid: mid, EMASlow: slow, ATR: atr}, nil
}

func (s *Series) Len() int {
	return len(s.EMAFast)
}

// At returns the snapshot at index i
func (s *Series) At(i int) Set {
	return Set{
		EMAFast:  s.EMAFast[i],
		EMAMid:   s.EMAMid[i],
		EMASlow:  s.EMASlow[i],
		ATR:      s.ATR[i],
		ATRReady: Defined(s.ATR[i]),
	}
}

// Last returns the snapshot at the final index
func (s *Series) Last() Set {
	return s.At(s.Len() - 1)
}
