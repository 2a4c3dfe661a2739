package bybit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval3m  KlineInterval = "3"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval2h  KlineInterval = "120"
	Interval4h  KlineInterval = "240"
	Interval6h  KlineInterval = "360"
	Interval12h KlineInterval = "720"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
)

// MaxKlineLimit is the largest page the kline endpoint serves
const MaxKlineLimit = 1000

var intervalDurations = map[KlineInterval]time.Duration{
	Interval1m:  time.Minute,
	Interval3m:  3 * time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval2h:  2 * time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

var intervalAliases = map[string]KlineInterval{
	"1m": Interval1m, "3m": Interval3m, "5m": Interval5m, "15m": Interval15m, "30m": Interval30m,
	"1h": Interval1h, "2h": Interval2h, "4h": Interval4h, "6h": Interval6h, "12h": Interval12h,
	"1d": Interval1d, "1w": Interval1w,
}

// ParseInterval accepts Bybit codes ("240", "D") and short forms ("4h", "1d")
func ParseInterval(s string) (KlineInterval, error) {
	s = strings.TrimSpace(s)
	if _, ok := intervalDurations[KlineInterval(strings.ToUpper(s))]; ok {
		return KlineInterval(strings.ToUpper(s)), nil
	}
	if iv, ok := intervalAliases[strings.ToLower(s)]; ok {
		return iv, nil
	}
	return "", fmt.Errorf("unsupported interval %q", s)
}

// Duration returns the candle length, zero for unknown intervals
func (k KlineInterval) Duration() time.Duration {
	return intervalDurations[k]
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"; client default when empty
	Symbol   string        // Trading pair symbol (e.g., "BTCUSDT")
	Interval KlineInterval // Time interval
	Start    *time.Time    // Start time (optional)
	End      *time.Time    // End time (optional)
	Limit    int           // Number of records to return (max 1000, default 200)
}

// GetKlines fetches one page of candles, oldest first
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]types.OHLCV, error) {
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > MaxKlineLimit {
		params.Limit = MaxKlineLimit
	}

	reqParams := map[string]interface{}{
		"category": c.categoryOr(params.Category),
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	resp, err := c.call(ctx, "get klines", func() (*bybit_api.ServerResponse, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
	})
	if err != nil {
		return nil, err
	}

	candles, err := parseKlineResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}
	return candles, nil
}

// GetRecentCandles returns the last n closed candles. The venue includes the
// still-forming candle first in its list; it is dropped when its period has not ended.
func (c *Client) GetRecentCandles(ctx context.Context, symbol string, interval KlineInterval, n int, now time.Time) ([]types.OHLCV, error) {
	candles, err := c.GetKlines(ctx, KlineParams{Symbol: symbol, Interval: interval, Limit: n + 1})
	if err != nil {
		return nil, err
	}
	return closedCandles(candles, interval, now, n), nil
}

func closedCandles(candles []types.OHLCV, interval KlineInterval, now time.Time, n int) []types.OHLCV {
	if len(candles) > 0 && interval.Duration() > 0 {
		last := candles[len(candles)-1]
		if last.Timestamp.Add(interval.Duration()).After(now) {
			candles = candles[:len(candles)-1]
		}
	}
	if n > 0 && len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles
}

// parseKlineResponse converts the newest-first string rows into candles, oldest first
func parseKlineResponse(resp *bybit_api.ServerResponse) ([]types.OHLCV, error) {
	var result klineResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, err
	}

	candles := make([]types.OHLCV, 0, len(result.List))
	for _, item := range result.List {
		// [startTime, open, high, low, close, volume, turnover]
		if len(item) < 6 {
			continue
		}
		ts, err := parseTimestamp(item[0])
		if err != nil {
			continue
		}
		candles = append(candles, types.OHLCV{
			Timestamp: ts,
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}

// HistoryParams selects a closed time range of candles
type HistoryParams struct {
	Category string
	Symbol   string
	Interval KlineInterval
	Start    time.Time
	End      time.Time
}

// FetchHistory downloads every candle in [Start, End], paging backwards from End
func (c *Client) FetchHistory(ctx context.Context, params HistoryParams) ([]types.OHLCV, error) {
	if params.Category == "" {
		params.Category = c.category
	}
	return fetchHistory(ctx, params, c.GetKlines, c.log)
}

type pageFunc func(ctx context.Context, params KlineParams) ([]types.OHLCV, error)

func fetchHistory(ctx context.Context, params HistoryParams, page pageFunc, log *logger.Logger) ([]types.OHLCV, error) {
	if params.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !params.End.After(params.Start) {
		return nil, fmt.Errorf("invalid range %s - %s", params.Start.Format(time.RFC3339), params.End.Format(time.RFC3339))
	}

	seen := make(map[int64]struct{})
	var all []types.OHLCV
	cursor := params.End
	pages := 0

	for !cursor.Before(params.Start) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start, end := params.Start, cursor
		batch, err := page(ctx, KlineParams{
			Category: params.Category,
			Symbol:   params.Symbol,
			Interval: params.Interval,
			Start:    &start,
			End:      &end,
			Limit:    MaxKlineLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("page %d ending %s: %w", pages+1, end.Format(time.RFC3339), err)
		}
		pages++
		if len(batch) == 0 {
			break
		}

		for _, candle := range batch {
			ms := candle.Timestamp.UnixMilli()
			if candle.Timestamp.Before(params.Start) || candle.Timestamp.After(params.End) {
				continue
			}
			if _, dup := seen[ms]; dup {
				continue
			}
			seen[ms] = struct{}{}
			all = append(all, candle)
		}

		oldest := batch[0].Timestamp
		if !oldest.Before(cursor) || len(batch) < MaxKlineLimit {
			break
		}
		cursor = oldest.Add(-time.Millisecond)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	if log != nil {
		log.Info("Fetched %d candles for %s %s in %d pages", len(all), params.Symbol, params.Interval, pages)
	}
	return all, nil
}
