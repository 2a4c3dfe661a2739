package indicators

import (
	"errors"
	"testing"
	"time"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candlesFromCloses(closes ...float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data := make([]types.OHLCV, len(closes))
	for i, c := range closes {
		data[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * 4 * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return data
}

func generateFlatData(n int, price float64) []types.OHLCV {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return candlesFromCloses(closes...)
}

func TestNewEMA(t *testing.T) {
	ema := NewEMA(3)

	assert.Equal(t, 3, ema.Span())
	assert.InDelta(t, 0.5, ema.alpha, 1e-12)
	assert.False(t, ema.IsInitialized())
}

func TestEMA_UpdateSeedsWithFirstValue(t *testing.T) {
	ema := NewEMA(10)

	assert.Equal(t, 42.0, ema.Update(42))
	assert.True(t, ema.IsInitialized())

	ema.Reset()
	assert.False(t, ema.IsInitialized())
	assert.Equal(t, 7.0, ema.Update(7))
}

func TestEMASeries_KnownValues(t *testing.T) {
	data := candlesFromCloses(10, 11, 12, 13, 14)

	series, err := EMASeries(data, 3)
	require.NoError(t, err)

	expected := []float64{10, 10.5, 11.25, 12.125, 13.0625}
	require.Len(t, series, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i], series[i], 1e-9, "index %d", i)
	}
}

func TestEMASeries_ConstantInput(t *testing.T) {
	data := generateFlatData(30, 100)

	series, err := EMASeries(data, 10)
	require.NoError(t, err)

	for _, v := range series {
		assert.InDelta(t, 100.0, v, 1e-9)
	}
}

func TestEMASeries_MatchesIncremental(t *testing.T) {
	data := candlesFromCloses(5, 7, 6, 9, 12, 11, 10, 14)
	series, err := EMASeries(data, 4)
	require.NoError(t, err)

	ema := NewEMA(4)
	for i, c := range data {
		assert.InDelta(t, series[i], ema.Update(c.Close), 1e-12)
	}
	assert.InDelta(t, series[len(series)-1], ema.Value(), 1e-12)
}

func TestEMASeries_PrefixStable(t *testing.T) {
	data := candlesFromCloses(5, 7, 6, 9, 12, 11, 10, 14)
	full, err := EMASeries(data, 4)
	require.NoError(t, err)

	prefix, err := EMASeries(data[:5], 4)
	require.NoError(t, err)

	assert.Equal(t, full[:5], prefix)
}

func TestEMASeries_InvalidInput(t *testing.T) {
	_, err := EMASeries(candlesFromCloses(1, 2), 0)
	require.Error(t, err)
	assert.True(t, boterrors.IsConfigurationError(err))

	_, err = EMASeries(nil, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boterrors.ErrInsufficientData))
}
