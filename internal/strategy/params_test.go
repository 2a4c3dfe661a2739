package strategy

import (
	"testing"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateRangeData produces candles with a constant true range of width around price
func generateRangeData(n int, price, width float64) []types.OHLCV {
	data := make([]types.OHLCV, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range data {
		data[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + width/2,
			Low:       price - width/2,
			Close:     price,
			Volume:    1000,
		}
	}
	return data
}

func TestDeriveParameters(t *testing.T) {
	tests := []struct {
		name       string
		volatility float64
		baseRisk   float64
		want       StrategyParameters
		bucket     VolatilityBucket
	}{
		{"high", 0.04, 0.01, StrategyParameters{5, 0.08, 3, 0.012}, VolatilityHigh},
		{"high capped", 0.04, 0.02, StrategyParameters{5, 0.08, 3, 0.015}, VolatilityHigh},
		{"medium", 0.02, 0.01, StrategyParameters{5, 0.05, 5, 0.01}, VolatilityMedium},
		{"medium boundary is low", 0.015, 0.01, StrategyParameters{5, 0.03, 8, 0.008}, VolatilityLow},
		{"high boundary is medium", 0.03, 0.01, StrategyParameters{5, 0.05, 5, 0.01}, VolatilityMedium},
		{"low floored", 0.001, 0.005, StrategyParameters{5, 0.03, 8, 0.007}, VolatilityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, bucket := DeriveParameters(tt.volatility, tt.baseRisk, 5)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.want.SidewaysLookback, got.SidewaysLookback)
			assert.Equal(t, tt.want.BreakoutLookback, got.BreakoutLookback)
			assert.InDelta(t, tt.want.SidewaysThreshold, got.SidewaysThreshold, 1e-12)
			assert.InDelta(t, tt.want.RiskPercentage, got.RiskPercentage, 1e-12)
		})
	}
}

func TestMeasureVolatility(t *testing.T) {
	data := generateRangeData(30, 100, 4)

	v, err := MeasureVolatility(data, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0.04, v, 1e-12)

	_, err = MeasureVolatility(data[:5], 14)
	assert.Error(t, err)
}

func TestAdaptiveController_Cadence(t *testing.T) {
	data := generateRangeData(100, 100, 4)
	c := NewAdaptiveController(DefaultAdaptiveConfig(0.01), DefaultParameters(0.01))

	params, changed := c.Recompute(data, 50)
	require.True(t, changed)
	assert.Equal(t, VolatilityHigh, c.State().Bucket)
	assert.Equal(t, 3, params.BreakoutLookback)

	for i := 51; i < 70; i++ {
		_, changed = c.Recompute(data, i)
		assert.False(t, changed, "index %d", i)
	}

	_, changed = c.Recompute(data, 70)
	assert.True(t, changed)
	assert.Equal(t, 70, c.State().LastTick)
}

func TestAdaptiveController_RiskDoesNotCompound(t *testing.T) {
	data := generateRangeData(200, 100, 4)
	c := NewAdaptiveController(DefaultAdaptiveConfig(0.01), DefaultParameters(0.01))

	for i := 0; i < len(data); i++ {
		c.Recompute(data, i)
	}
	assert.InDelta(t, 0.012, c.Current().RiskPercentage, 1e-12)
}

func TestAdaptiveController_ShortHistoryKeepsPreviousVolatility(t *testing.T) {
	data := generateRangeData(10, 100, 4)
	c := NewAdaptiveController(DefaultAdaptiveConfig(0.01), DefaultParameters(0.01))

	params, changed := c.Recompute(data, 9)
	require.True(t, changed)

	// no reading yet, so the zero volatility maps to the low bucket
	assert.Equal(t, VolatilityLow, c.State().Bucket)
	assert.Equal(t, 8, params.BreakoutLookback)
	assert.Equal(t, 5, params.SidewaysLookback)
}

func TestAdaptiveController_MeasuresRecentWindow(t *testing.T) {
	calm := generateRangeData(60, 100, 1)
	wild := generateRangeData(30, 100, 6)
	for i := range wild {
		wild[i].Timestamp = calm[len(calm)-1].Timestamp.Add(time.Duration(i+1) * time.Hour)
	}
	data := append(calm, wild...)

	c := NewAdaptiveController(DefaultAdaptiveConfig(0.01), DefaultParameters(0.01))
	c.Recompute(data, len(data)-1)
	assert.InDelta(t, 0.06, c.State().Volatility, 1e-12)
}

func TestAdaptiveController_StateRoundTrip(t *testing.T) {
	data := generateRangeData(40, 100, 2)
	c := NewAdaptiveController(DefaultAdaptiveConfig(0.01), DefaultParameters(0.01))
	c.Recompute(data, 30)

	restored := NewAdaptiveController(DefaultAdaptiveConfig(0.01), DefaultParameters(0.01))
	restored.Restore(c.State())

	assert.Equal(t, c.Current(), restored.Current())
	_, changed := restored.Recompute(data, 35)
	assert.False(t, changed)
}
