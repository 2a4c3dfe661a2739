package indicators

import (
	"errors"
	"math"
	"testing"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrueRange(t *testing.T) {
	first := types.OHLCV{High: 10, Low: 8, Close: 9}
	assert.Equal(t, 2.0, TrueRange(first, nil))

	// gap up above the previous close dominates the bar range
	prev := types.OHLCV{Close: 10}
	gap := types.OHLCV{High: 15, Low: 14, Close: 14.5}
	assert.Equal(t, 5.0, TrueRange(gap, &prev))

	// gap down
	down := types.OHLCV{High: 7, Low: 6, Close: 6.5}
	assert.Equal(t, 4.0, TrueRange(down, &prev))
}

func TestATRSeries_KnownValues(t *testing.T) {
	data := []types.OHLCV{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
	}

	series, err := ATRSeries(data, 2)
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.True(t, math.IsNaN(series[0]))
	assert.False(t, Defined(series[0]))
	assert.InDelta(t, 2.0, series[1], 1e-12)
	assert.InDelta(t, 2.0, series[2], 1e-12)
}

func TestATRSeries_RollingWindow(t *testing.T) {
	data := []types.OHLCV{
		{High: 10, Low: 9, Close: 9.5},   // tr 1
		{High: 11, Low: 9, Close: 10},    // tr 2
		{High: 14, Low: 10, Close: 13},   // tr 4
		{High: 13.5, Low: 13, Close: 13}, // tr 0.5
	}

	series, err := ATRSeries(data, 3)
	require.NoError(t, err)

	assert.False(t, Defined(series[1]))
	assert.InDelta(t, 7.0/3.0, series[2], 1e-12)
	assert.InDelta(t, 6.5/3.0, series[3], 1e-12)
}

func TestLatestATR_InsufficientData(t *testing.T) {
	_, err := LatestATR(generateFlatData(5, 100), 14)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boterrors.ErrInsufficientData))

	v, err := LatestATR(generateFlatData(14, 100), 14)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)
}

func TestCompute_DefaultSpans(t *testing.T) {
	data := generateFlatData(60, 100)

	series, err := Compute(data, DefaultSpans())
	require.NoError(t, err)
	assert.Equal(t, 60, series.Len())

	assert.False(t, series.At(12).ATRReady)
	assert.True(t, series.At(13).ATRReady)

	last := series.Last()
	assert.InDelta(t, 100.0, last.EMAFast, 1e-9)
	assert.InDelta(t, 100.0, last.EMAMid, 1e-9)
	assert.InDelta(t, 100.0, last.EMASlow, 1e-9)
}

func TestSpans_Validate(t *testing.T) {
	assert.NoError(t, DefaultSpans().Validate())

	tests := []struct {
		name  string
		spans Spans
	}{
		{"zero fast", Spans{Fast: 0, Mid: 20, Slow: 50, ATRPeriod: 14}},
		{"unordered", Spans{Fast: 20, Mid: 10, Slow: 50, ATRPeriod: 14}},
		{"zero atr", Spans{Fast: 10, Mid: 20, Slow: 50, ATRPeriod: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spans.Validate()
			require.Error(t, err)
			assert.True(t, boterrors.IsConfigurationError(err))
		})
	}
}
