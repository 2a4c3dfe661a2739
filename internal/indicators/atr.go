package indicators

import (
	"fmt"
	"math"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// For the first candle of a series there is no previous close and the range is high-low.
func TrueRange(cur types.OHLCV, prev *types.OHLCV) float64 {
	tr := cur.High - cur.Low
	if prev == nil {
		return tr
	}
	return math.Max(tr, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// ATRSeries computes the Average True Range as a simple rolling mean of true range.
// Entries before index period-1 are NaN; use Defined to test them.
func ATRSeries(data []types.OHLCV, period int) ([]float64, error) {
	if period < 1 {
		return nil, boterrors.NewConfigurationError("indicators", "atr_series", fmt.Sprintf("period must be >= 1, got: %d", period))
	}
	if len(data) == 0 {
		return nil, boterrors.NewInsufficientDataError("indicators", "atr_series", 0, period)
	}

	out := make([]float64, len(data))
	ranges := make([]float64, len(data))
	sum := 0.0
	for i := range data {
		var prev *types.OHLCV
		if i > 0 {
			prev = &data[i-1]
		}
		ranges[i] = TrueRange(data[i], prev)
		sum += ranges[i]
		if i >= period {
			sum -= ranges[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out, nil
}

// LatestATR returns the ATR at the last index of data.
func LatestATR(data []types.OHLCV, period int) (float64, error) {
	if len(data) < period {
		return 0, boterrors.NewInsufficientDataError("indicators", "latest_atr", len(data), period)
	}
	series, err := ATRSeries(data, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// Defined reports whether an indicator value has been produced.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}
