package regime

import (
	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// CheckAlignment reads the trend from EMA ordering. A full fast>mid>slow (or reverse)
// ordering wins; otherwise fast vs mid decides.
func CheckAlignment(set indicators.Set) Direction {
	switch {
	case set.EMAFast > set.EMAMid && set.EMAMid > set.EMASlow:
		return DirectionUp
	case set.EMAFast < set.EMAMid && set.EMAMid < set.EMASlow:
		return DirectionDown
	case set.EMAFast > set.EMAMid:
		return DirectionUp
	case set.EMAFast < set.EMAMid:
		return DirectionDown
	default:
		return DirectionNone
	}
}

// DetectSideways reports whether the last lookback candles of window trade inside a
// range narrower than threshold, measured as (max high - min low) / min low.
func DetectSideways(window []types.OHLCV, lookback int, threshold float64) bool {
	if lookback < 1 || len(window) < lookback {
		return false
	}

	high, low := rangeBounds(window[len(window)-lookback:])
	if low <= 0 {
		return false
	}
	return (high-low)/low < threshold
}

// BreakoutRange returns the high and low of the lookback candles immediately
// preceding the last candle of window.
func BreakoutRange(window []types.OHLCV, lookback int) (high, low float64, ok bool) {
	if lookback < 1 || len(window) < lookback+2 {
		return 0, 0, false
	}
	last := len(window) - 1
	high, low = rangeBounds(window[last-lookback : last])
	return high, low, true
}

// IdentifyBreakout compares the last close against the preceding range.
func IdentifyBreakout(window []types.OHLCV, lookback int) Direction {
	high, low, ok := BreakoutRange(window, lookback)
	if !ok {
		return DirectionNone
	}

	price := window[len(window)-1].Close
	switch {
	case price > high:
		return DirectionUp
	case price < low:
		return DirectionDown
	default:
		return DirectionNone
	}
}

// CheckAdjustment detects a pullback within the trend: price under the fast or mid EMA
// in an up trend, above either of them in a down trend.
func CheckAdjustment(price float64, set indicators.Set, trend Direction) bool {
	switch trend {
	case DirectionUp:
		return price < set.EMAFast || price < set.EMAMid
	case DirectionDown:
		return price > set.EMAFast || price > set.EMAMid
	default:
		return false
	}
}

// Classify builds the signal for the last candle of window. Consolidation is measured
// on the candles before the last one, since a breakout candle leaves the range by definition.
func Classify(window []types.OHLCV, set indicators.Set, cfg Config) Signal {
	if len(window) == 0 {
		return Signal{}
	}

	alignment := CheckAlignment(set)
	return Signal{
		Alignment:    alignment,
		IsSideways:   DetectSideways(window[:len(window)-1], cfg.SidewaysLookback, cfg.SidewaysThreshold),
		Breakout:     IdentifyBreakout(window, cfg.BreakoutLookback),
		IsAdjustment: CheckAdjustment(window[len(window)-1].Close, set, alignment),
	}
}

func rangeBounds(candles []types.OHLCV) (high, low float64) {
	high, low = candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}
