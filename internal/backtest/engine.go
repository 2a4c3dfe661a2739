package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/risk"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// BacktestConfig represents backtest configuration
type BacktestConfig struct {
	Symbol         string
	Interval       string
	InitialCapital float64
	Strategy       strategy.Config
	Venue          risk.VenueConstraints
	// ApplyCooldown keeps the live trade cooldown during replay
	ApplyCooldown bool
}

func (c BacktestConfig) Validate() error {
	if c.InitialCapital <= 0 {
		return boterrors.NewConfigurationError("backtest", "validate",
			fmt.Sprintf("initial capital must be positive, got: %.2f", c.InitialCapital))
	}
	if c.Venue.MinNotional < 0 || c.Venue.MaxTradeAmount < 0 || c.Venue.QtyStep < 0 || c.Venue.TickSize < 0 {
		return boterrors.NewConfigurationError("backtest", "validate", "venue constraints must not be negative")
	}
	return c.Strategy.Validate()
}

type BacktestResults struct {
	RunID          string            `json:"run_id"`
	Symbol         string            `json:"symbol"`
	Interval       string            `json:"interval"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	Candles        int               `json:"candles"`
	InitialCapital float64           `json:"initial_capital"`
	FinalCapital   float64           `json:"final_capital"`
	Trades         []Trade           `json:"trades"`
	Equity         []EquityPoint     `json:"equity_curve"`
	OpenPosition   position.Position `json:"open_position"`
	Summary        Summary           `json:"summary"`
	Duration       time.Duration     `json:"duration"`
}

// BacktestEngine replays a candle series through the decision engine.
// It owns capital, the ledger and the equity curve for the length of one run.
type BacktestEngine struct {
	cfg BacktestConfig
	log *logger.Logger
}

func NewBacktestEngine(cfg BacktestConfig, log *logger.Logger) (*BacktestEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &BacktestEngine{cfg: cfg, log: log}, nil
}

func (b *BacktestEngine) Config() BacktestConfig {
	return b.cfg
}

// Run replays data from the warm-up index on. Per candle the open position is checked
// for an exit first; only a flat candle evaluates entries, so at most one position
// event happens per candle. An equity point is recorded for every replayed candle.
func (b *BacktestEngine) Run(ctx context.Context, data []types.OHLCV) (*BacktestResults, error) {
	if len(data) == 0 {
		return nil, boterrors.NewConfigurationError("backtest", "run", "empty candle series")
	}

	started := time.Now()
	stratCfg := b.cfg.Strategy
	if !b.cfg.ApplyCooldown {
		stratCfg.Cooldown = 0
	}

	engine, err := strategy.NewEngine(stratCfg, b.log)
	if err != nil {
		return nil, err
	}
	series, err := indicators.Compute(data, stratCfg.Spans)
	if err != nil {
		return nil, err
	}

	results := &BacktestResults{
		RunID:          uuid.NewString(),
		Symbol:         b.cfg.Symbol,
		Interval:       b.cfg.Interval,
		StartTime:      data[0].Timestamp,
		EndTime:        data[len(data)-1].Timestamp,
		Candles:        len(data),
		InitialCapital: b.cfg.InitialCapital,
		Trades:         make([]Trade, 0),
		Equity:         make([]EquityPoint, 0, len(data)),
	}

	b.log.Status("backtest %s started: %d candles, capital %.2f, mode %s, leverage %.0fx",
		results.RunID, len(data), b.cfg.InitialCapital, stratCfg.Entry.Mode, stratCfg.Leverage)
	if len(data) <= stratCfg.WarmUp {
		b.log.Warning("only %d candles, warm-up needs %d: nothing to replay", len(data), stratCfg.WarmUp)
	}

	capital := b.cfg.InitialCapital
	peak := capital

	for i := stratCfg.WarmUp; i < len(data); i++ {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		venue := b.cfg.Venue
		venue.AvailableBalance = capital
		acct := strategy.Account{Equity: capital, Venue: venue}

		decision, err := engine.Step(data, series, i, acct)
		if err != nil {
			return nil, err
		}

		switch decision.Action {
		case strategy.ActionEnter:
			if _, err := engine.Commit(decision); err != nil {
				return nil, err
			}
			results.Trades = append(results.Trades, &EntryTrade{
				Direction:     decision.Direction,
				Price:         decision.Price,
				Size:          decision.Size,
				Timestamp:     decision.Timestamp,
				StopLoss:      decision.StopLoss,
				SecondaryStop: decision.SecondaryStop,
			})

		case strategy.ActionExit:
			fill, err := engine.Commit(decision)
			if err != nil {
				return nil, err
			}
			capital += fill.PnL
			results.Trades = append(results.Trades, &ExitTrade{
				Direction:  fill.Direction,
				EntryPrice: fill.EntryPrice,
				Price:      fill.Price,
				Size:       fill.Size,
				PnL:        fill.PnL,
				Timestamp:  fill.Timestamp,
				Reason:     fill.Reason,
				Final:      fill.Final,
			})
		}

		equity := capital + engine.Position().UnrealizedPnL(data[i].Close)
		if equity > peak {
			peak = equity
		}
		drawdown := 0.0
		if peak > 0 {
			drawdown = (peak - equity) / peak
		}
		results.Equity = append(results.Equity, EquityPoint{
			Timestamp: data[i].Timestamp,
			Equity:    equity,
			Drawdown:  drawdown,
		})
	}

	results.FinalCapital = capital
	results.OpenPosition = engine.Position()
	results.Summary = Aggregate(b.cfg.InitialCapital, capital, results.Trades, results.Equity)
	results.Duration = time.Since(started)

	b.log.Status("backtest %s finished: %d entries, %d exits, return %.2f%%, max drawdown %.2f%%",
		results.RunID, results.Summary.TotalEntries, results.Summary.TotalExits,
		results.Summary.TotalReturn*100, results.Summary.MaxDrawdown*100)
	return results, nil
}
