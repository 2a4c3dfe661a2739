package regime

import (
	"testing"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
	"github.com/stretchr/testify/assert"
)

func rangeWindow(n int, low, high float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := (low + high) / 2
	data := make([]types.OHLCV, n)
	for i := range data {
		data[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      mid,
			High:      high,
			Low:       low,
			Close:     mid,
			Volume:    100,
		}
	}
	return data
}

func withLast(window []types.OHLCV, close float64) []types.OHLCV {
	last := window[len(window)-1]
	last.Timestamp = last.Timestamp.Add(time.Hour)
	last.Open = close
	last.High = close
	last.Low = close
	last.Close = close
	return append(window, last)
}

func TestCheckAlignment(t *testing.T) {
	tests := []struct {
		name     string
		set      indicators.Set
		expected Direction
	}{
		{"full up", indicators.Set{EMAFast: 3, EMAMid: 2, EMASlow: 1}, DirectionUp},
		{"full down", indicators.Set{EMAFast: 1, EMAMid: 2, EMASlow: 3}, DirectionDown},
		{"fallback up", indicators.Set{EMAFast: 2, EMAMid: 1, EMASlow: 5}, DirectionUp},
		{"fallback down", indicators.Set{EMAFast: 1, EMAMid: 2, EMASlow: 0.5}, DirectionDown},
		{"flat", indicators.Set{EMAFast: 2, EMAMid: 2, EMASlow: 1}, DirectionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CheckAlignment(tt.set))
		})
	}
}

func TestDetectSideways(t *testing.T) {
	constant := rangeWindow(5, 100, 100)
	assert.True(t, DetectSideways(constant, 5, 1e-9))

	// range (110-100)/100 = 0.1
	wide := rangeWindow(10, 100, 110)
	assert.True(t, DetectSideways(wide, 5, 0.11))
	assert.False(t, DetectSideways(wide, 5, 0.1))

	// not enough candles
	assert.False(t, DetectSideways(rangeWindow(3, 100, 100), 5, 0.5))
}

func TestDetectSideways_OnlyLastLookback(t *testing.T) {
	window := append(rangeWindow(5, 50, 200), rangeWindow(5, 100, 101)...)
	assert.True(t, DetectSideways(window, 5, 0.02))
	assert.False(t, DetectSideways(window, 6, 0.02))
}

func TestIdentifyBreakout(t *testing.T) {
	base := rangeWindow(6, 100, 110)

	assert.Equal(t, DirectionUp, IdentifyBreakout(withLast(base, 111), 5))
	assert.Equal(t, DirectionDown, IdentifyBreakout(withLast(base, 95), 5))
	assert.Equal(t, DirectionNone, IdentifyBreakout(withLast(base, 105), 5))

	// needs lookback+2 candles
	short := withLast(rangeWindow(5, 100, 110), 111)
	assert.Equal(t, DirectionNone, IdentifyBreakout(short, 6))
	assert.Equal(t, DirectionUp, IdentifyBreakout(short, 4))
}

func TestBreakoutRange_ExcludesCurrentCandle(t *testing.T) {
	window := withLast(rangeWindow(4, 100, 110), 130)

	high, low, ok := BreakoutRange(window, 3)
	assert.True(t, ok)
	assert.Equal(t, 110.0, high)
	assert.Equal(t, 100.0, low)
}

func TestCheckAdjustment(t *testing.T) {
	set := indicators.Set{EMAFast: 105, EMAMid: 100, EMASlow: 95}

	assert.True(t, CheckAdjustment(104, set, DirectionUp))
	assert.True(t, CheckAdjustment(99, set, DirectionUp))
	assert.False(t, CheckAdjustment(106, set, DirectionUp))

	assert.True(t, CheckAdjustment(101, set, DirectionDown))
	assert.False(t, CheckAdjustment(99, set, DirectionDown))

	assert.False(t, CheckAdjustment(50, set, DirectionNone))
}

func TestClassify(t *testing.T) {
	window := withLast(rangeWindow(12, 100, 101), 103)
	set := indicators.Set{EMAFast: 104, EMAMid: 102, EMASlow: 100}

	sig := Classify(window, set, Config{SidewaysLookback: 5, SidewaysThreshold: 0.02, BreakoutLookback: 10})

	assert.Equal(t, DirectionUp, sig.Alignment)
	assert.True(t, sig.IsSideways)
	assert.Equal(t, DirectionUp, sig.Breakout)
	assert.True(t, sig.IsAdjustment)

	assert.Equal(t, Signal{}, Classify(nil, set, Config{}))
}

func TestDirection_Text(t *testing.T) {
	var d Direction
	assert.NoError(t, d.UnmarshalText([]byte("short")))
	assert.Equal(t, DirectionDown, d)
	assert.Equal(t, "down", d.String())
	assert.Equal(t, DirectionUp, d.Opposite())
	assert.Error(t, d.UnmarshalText([]byte("sideways")))
}
