package bybit

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func klineRow(ts time.Time, close float64) []interface{} {
	c := strconv.FormatFloat(close, 'f', -1, 64)
	return []interface{}{strconv.FormatInt(ts.UnixMilli(), 10), c, c, c, c, "12.5", "1000"}
}

func TestParseKlineResponse(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"symbol":   "BTCUSDT",
			"category": "spot",
			"list": []interface{}{
				klineRow(t0.Add(2*time.Hour), 102),
				klineRow(t0.Add(time.Hour), 101),
				[]interface{}{"bad"},
				klineRow(t0, 100),
			},
		},
	}

	candles, err := parseKlineResponse(resp)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, t0, candles[0].Timestamp)
	assert.Equal(t, 102.0, candles[2].Close)
	assert.Equal(t, 12.5, candles[1].Volume)
}

func TestParseKlineResponse_APIError(t *testing.T) {
	_, err := parseKlineResponse(&bybit_api.ServerResponse{RetCode: ErrCodeInvalidParameter, RetMsg: "params error"})
	var bybitErr *BybitError
	require.True(t, errors.As(err, &bybitErr))
	assert.Equal(t, ErrCodeInvalidParameter, bybitErr.Code)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want KlineInterval
	}{
		{"240", Interval4h},
		{"4h", Interval4h},
		{"d", Interval1d},
		{"1D", Interval1d},
		{"15", Interval15m},
	}
	for _, tt := range tests {
		got, err := ParseInterval(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseInterval("7m")
	assert.Error(t, err)
	assert.Equal(t, 4*time.Hour, Interval4h.Duration())
}

func TestClosedCandles_DropsFormingCandle(t *testing.T) {
	candles := []types.OHLCV{{Timestamp: t0}, {Timestamp: t0.Add(time.Hour)}, {Timestamp: t0.Add(2 * time.Hour)}}

	got := closedCandles(candles, Interval1h, t0.Add(2*time.Hour+time.Minute), 5)
	assert.Len(t, got, 2)

	got = closedCandles(candles, Interval1h, t0.Add(3*time.Hour), 2)
	require.Len(t, got, 2)
	assert.Equal(t, t0.Add(2*time.Hour), got[1].Timestamp)
}

// fakeVenue serves pages the way the kline endpoint does: the newest candles
// within [start, end], at most limit of them.
type fakeVenue struct {
	candles []types.OHLCV
	calls   int
}

func (f *fakeVenue) page(_ context.Context, p KlineParams) ([]types.OHLCV, error) {
	f.calls++
	var in []types.OHLCV
	for _, c := range f.candles {
		if !c.Timestamp.Before(*p.Start) && !c.Timestamp.After(*p.End) {
			in = append(in, c)
		}
	}
	if len(in) > p.Limit {
		in = in[len(in)-p.Limit:]
	}
	return in, nil
}

func hourly(n int) []types.OHLCV {
	out := make([]types.OHLCV, n)
	for i := range out {
		out[i] = types.OHLCV{Timestamp: t0.Add(time.Duration(i) * time.Hour), Close: float64(100 + i)}
	}
	return out
}

func TestFetchHistory_Pages(t *testing.T) {
	venue := &fakeVenue{candles: hourly(2500)}
	params := HistoryParams{
		Symbol:   "BTCUSDT",
		Interval: Interval1h,
		Start:    t0.Add(100 * time.Hour),
		End:      t0.Add(2399 * time.Hour),
	}

	got, err := fetchHistory(context.Background(), params, venue.page, nil)
	require.NoError(t, err)
	require.Len(t, got, 2300)
	assert.Equal(t, 3, venue.calls)
	assert.Equal(t, params.Start, got[0].Timestamp)
	assert.Equal(t, params.End, got[len(got)-1].Timestamp)
	for i := 1; i < len(got); i++ {
		require.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func TestFetchHistory_ShortRange(t *testing.T) {
	venue := &fakeVenue{candles: hourly(50)}
	got, err := fetchHistory(context.Background(), HistoryParams{
		Symbol: "BTCUSDT", Interval: Interval1h, Start: t0, End: t0.Add(1000 * time.Hour),
	}, venue.page, nil)
	require.NoError(t, err)
	assert.Len(t, got, 50)
	assert.Equal(t, 1, venue.calls)
}

func TestFetchHistory_Errors(t *testing.T) {
	venue := &fakeVenue{candles: hourly(10)}

	_, err := fetchHistory(context.Background(), HistoryParams{Symbol: "BTCUSDT", Start: t0, End: t0}, venue.page, nil)
	assert.Error(t, err)

	_, err = fetchHistory(context.Background(), HistoryParams{Start: t0, End: t0.Add(time.Hour)}, venue.page, nil)
	assert.Error(t, err)

	failing := func(context.Context, KlineParams) ([]types.OHLCV, error) {
		return nil, NewBybitError(ErrCodeInvalidParameter, "bad symbol")
	}
	_, err = fetchHistory(context.Background(), HistoryParams{Symbol: "X", Start: t0, End: t0.Add(time.Hour)}, failing, nil)
	assert.ErrorContains(t, err, "bad symbol")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fetchHistory(ctx, HistoryParams{Symbol: "BTCUSDT", Start: t0, End: t0.Add(time.Hour)}, venue.page, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
