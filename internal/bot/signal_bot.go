package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/config"
	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/internal/monitoring"
	"github.com/ducminhle1904/trend-breakout-bot/internal/notifications"
	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
	"github.com/ducminhle1904/trend-breakout-bot/internal/risk"
	"github.com/ducminhle1904/trend-breakout-bot/internal/state"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// MarketData serves the most recent closed candles
type MarketData interface {
	GetRecentCandles(ctx context.Context, symbol string, interval bybit.KlineInterval, n int, now time.Time) ([]types.OHLCV, error)
}

// BalanceSource reports the spendable balance of a coin
type BalanceSource interface {
	GetAvailableBalance(ctx context.Context, coin string) (float64, error)
}

// ConstraintSource reports the order filters of a symbol
type ConstraintSource interface {
	VenueConstraints(ctx context.Context, category, symbol string) (risk.VenueConstraints, error)
}

// CandleStream pushes candles as they close
type CandleStream interface {
	Subscribe(ctx context.Context, symbol string, interval bybit.KlineInterval) (<-chan types.OHLCV, error)
}

// Options wires the collaborators of a SignalBot. Balance, Constraints, Stream and Notifier are optional.
type Options struct {
	Market      MarketData
	Balance     BalanceSource
	Constraints ConstraintSource
	Stream      CandleStream
	Notifier    notifications.Notifier
	Persistence *state.StatePersistence
	Health      *monitoring.HealthChecker
	Logger      *logger.Logger
	Out         io.Writer
	// Window is the number of closed candles evaluated per tick
	Window int
	// Settle delays each tick past the candle close so the venue has published it
	Settle time.Duration
}

// StateView is what /state serves
type StateView struct {
	Symbol       string               `json:"symbol"`
	Interval     string               `json:"interval"`
	Equity       float64              `json:"equity"`
	RealizedPnL  float64              `json:"realized_pnl"`
	Engine       strategy.EngineState `json:"engine"`
	LastDecision *strategy.Decision   `json:"last_decision,omitempty"`
	LastTick     time.Time            `json:"last_tick"`
}

// SignalBot evaluates the strategy on every closed candle and records the
// decisions it would trade. It never places orders.
type SignalBot struct {
	cfg         *config.Config
	engine      *strategy.Engine
	market      MarketData
	balance     BalanceSource
	constraints ConstraintSource
	stream      CandleStream
	notifier    notifications.Notifier
	persistence *state.StatePersistence
	health      *monitoring.HealthChecker
	logger      *logger.Logger
	out         io.Writer

	symbol   string
	category string
	interval bybit.KlineInterval
	window   int
	settle   time.Duration

	mu           sync.RWMutex
	equity       float64
	peak         float64
	realized     float64
	lastDecision *strategy.Decision
	lastTick     time.Time

	now func() time.Time
}

const defaultWindow = 200

// NewSignalBot builds the engine from cfg. The persistence layer is not read until Start.
func NewSignalBot(cfg *config.Config, opts Options) (*SignalBot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot configuration is required")
	}
	if opts.Market == nil {
		return nil, fmt.Errorf("market data source is required")
	}
	interval, err := bybit.ParseInterval(cfg.Backtest.Interval)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.Nop{}
	}
	if opts.Health == nil {
		opts.Health = monitoring.NewHealthChecker(2 * interval.Duration())
	}

	engine, err := strategy.NewEngine(cfg.StrategyConfig(), opts.Logger)
	if err != nil {
		return nil, err
	}

	window := opts.Window
	if window <= 0 {
		window = defaultWindow
	}
	if min := requiredCandles(cfg.StrategyConfig()); window < min {
		window = min
	}

	return &SignalBot{
		cfg:         cfg,
		engine:      engine,
		market:      opts.Market,
		balance:     opts.Balance,
		constraints: opts.Constraints,
		stream:      opts.Stream,
		notifier:    opts.Notifier,
		persistence: opts.Persistence,
		health:      opts.Health,
		logger:      opts.Logger,
		out:         opts.Out,
		symbol:      cfg.Backtest.Symbol,
		category:    cfg.Exchange.Category,
		interval:    interval,
		window:      window,
		settle:      opts.Settle,
		equity:      cfg.Backtest.InitialCapital,
		peak:        cfg.Backtest.InitialCapital,
		now:         time.Now,
	}, nil
}

// requiredCandles is the smallest window that covers warm-up, the slow EMA and the volatility window
func requiredCandles(sc strategy.Config) int {
	n := sc.WarmUp
	for _, v := range []int{sc.Spans.Slow + 1, sc.Adaptive.Window + 1} {
		if v > n {
			n = v
		}
	}
	return n
}

// Start restores persisted engine state and prints the startup summary
func (b *SignalBot) Start() error {
	if b.persistence != nil {
		if err := b.persistence.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize state persistence: %w", err)
		}
		snap, err := b.persistence.Load()
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		if snap != nil {
			if err := b.engine.Restore(snap.Engine); err != nil {
				return fmt.Errorf("failed to restore state: %w", err)
			}
			b.logger.Info("restored state saved at %s: %s", snap.SavedAt.Format(time.RFC3339), describePosition(snap.Engine.Position))
		}
	}

	b.printStartupInfo()
	return nil
}

// Run ticks once immediately and then after every candle close until ctx is done.
// With a stream, closes pushed by the venue trigger the ticks and the timer only
// takes over when the stream ends.
func (b *SignalBot) Run(ctx context.Context) error {
	b.tickLogged(ctx)

	if b.stream != nil {
		if err := b.runStream(ctx); err != nil {
			b.logger.Warning("kline stream unavailable, polling on candle close: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	for {
		wait := timeUntilNextCandle(b.now(), b.interval.Duration()) + b.settle
		b.logger.Info("waiting %s for next %s candle close", wait.Round(time.Second), b.interval)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.logger.Info("stop signal received, ending signal loop")
			return nil
		case <-timer.C:
			b.tickLogged(ctx)
		}
	}
}

// runStream ticks on every pushed close and returns when the stream ends
func (b *SignalBot) runStream(ctx context.Context) error {
	closes, err := b.stream.Subscribe(ctx, b.symbol, b.interval)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stop signal received, ending signal loop")
			return nil
		case c, ok := <-closes:
			if !ok {
				return fmt.Errorf("kline stream closed")
			}
			b.logger.Info("candle %s closed at %.4f", c.Timestamp.Format(time.RFC3339), c.Close)
			if b.settle > 0 {
				select {
				case <-time.After(b.settle):
				case <-ctx.Done():
					return nil
				}
			}
			b.tickLogged(ctx)
		}
	}
}

func (b *SignalBot) tickLogged(ctx context.Context) {
	if err := b.Tick(ctx); err != nil {
		b.logger.LogError("signal tick", err)
	}
}

// Tick evaluates the latest closed candle once. A candle that was already
// evaluated is skipped, so repeated ticks within one interval are harmless.
func (b *SignalBot) Tick(ctx context.Context) error {
	now := b.now()

	candles, err := b.market.GetRecentCandles(ctx, b.symbol, b.interval, b.window, now)
	if err != nil {
		b.health.RecordError(err)
		monitoring.RecordError("market_data")
		return boterrors.CategorizeError(err, "signal_bot", "fetch_candles")
	}
	if len(candles) == 0 {
		return nil
	}
	last := candles[len(candles)-1]

	b.mu.Lock()
	defer b.mu.Unlock()

	if seen := b.engine.State().LastSeen; !seen.IsZero() && !last.Timestamp.After(seen) {
		b.health.RecordEvaluation(last.Close)
		return nil
	}

	acct := strategy.Account{
		Equity: b.refreshEquity(ctx),
		Venue:  b.venue(ctx),
		Now:    now,
	}
	acct.Venue.AvailableBalance = acct.Equity

	decision, err := b.engine.Evaluate(candles, acct)
	if err != nil {
		b.health.RecordError(err)
		monitoring.RecordError("evaluate")
		return err
	}

	fill, err := b.engine.Commit(decision)
	if err != nil {
		b.health.RecordError(err)
		monitoring.RecordError("commit")
		return fmt.Errorf("failed to commit %s decision: %w", decision.Action, err)
	}
	b.account(decision, fill)
	b.record(decision, last)
	b.notify(ctx, decision, fill)

	b.lastDecision = &decision
	b.lastTick = now
	b.health.RecordEvaluation(last.Close)
	b.logStatus(decision)
	return nil
}

// refreshEquity uses the exchange balance when credentials allow, otherwise the paper equity
func (b *SignalBot) refreshEquity(ctx context.Context) float64 {
	if b.balance == nil {
		return b.equity
	}
	available, err := b.balance.GetAvailableBalance(ctx, quoteCoin(b.symbol))
	if err != nil {
		b.logger.Warning("could not refresh balance, using paper equity %.2f: %v", b.equity, err)
		monitoring.RecordError("balance")
		return b.equity
	}
	b.equity = available
	if available > b.peak {
		b.peak = available
	}
	return available
}

func (b *SignalBot) venue(ctx context.Context) risk.VenueConstraints {
	venue := b.cfg.Venue
	if b.constraints == nil {
		return venue
	}
	live, err := b.constraints.VenueConstraints(ctx, b.category, b.symbol)
	if err != nil {
		b.logger.Warning("could not load instrument filters, using configured venue: %v", err)
		monitoring.RecordError("instrument_info")
		return venue
	}
	live.BalanceFraction = venue.BalanceFraction
	if live.MaxTradeAmount == 0 {
		live.MaxTradeAmount = venue.MaxTradeAmount
	}
	return live
}

// account books paper fills against equity
func (b *SignalBot) account(d strategy.Decision, fill *position.Fill) {
	switch {
	case d.Action == strategy.ActionEnter:
		monitoring.RecordTrade(b.symbol, d.Direction.String(), "entry", d.Size*d.Price)
	case fill != nil:
		b.realized += fill.PnL
		if b.balance == nil {
			b.equity += fill.PnL
		}
		monitoring.RecordTrade(b.symbol, fill.Direction.String(), string(fill.Reason), fill.Size*fill.Price)
		b.logger.Trade("paper exit %s pnl=%.4f equity=%.2f", fill.Reason, fill.PnL, b.equity)
	}
	if b.equity > b.peak {
		b.peak = b.equity
	}
}

func (b *SignalBot) record(d strategy.Decision, last types.OHLCV) {
	monitoring.RecordDecision(b.symbol, d.Action.String(), string(d.Rejected))
	monitoring.UpdatePrice(b.symbol, last.Close)
	monitoring.UpdateVolatility(b.symbol, b.engine.State().Controller.Volatility)

	dd := 0.0
	if b.peak > 0 {
		dd = (b.peak - b.equity) / b.peak
	}
	monitoring.UpdateAccount(b.symbol, b.equity, dd)
	monitoring.UpdatePosition(b.symbol, signedSize(b.engine.Position()))

	if b.persistence == nil {
		return
	}
	if err := b.persistence.RecordDecision(d); err != nil {
		b.logger.LogError("record decision", err)
		monitoring.RecordError("journal")
	}
	if err := b.persistence.Save(b.engine.State()); err != nil {
		b.logger.LogError("save state", err)
		monitoring.RecordError("state")
	}
}

func (b *SignalBot) notify(ctx context.Context, d strategy.Decision, fill *position.Fill) {
	msg := notifications.FormatDecision(b.symbol, d, fill)
	if msg == "" {
		return
	}
	if err := b.notifier.SendAlert(ctx, notifications.LevelSignal, msg); err != nil {
		b.logger.Warning("could not send signal alert: %v", err)
		monitoring.RecordError("notification")
	}
}

// Snapshot returns a consistent copy of the bot state
func (b *SignalBot) Snapshot() StateView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	view := StateView{
		Symbol:      b.symbol,
		Interval:    string(b.interval),
		Equity:      b.equity,
		RealizedPnL: b.realized,
		Engine:      b.engine.State(),
		LastTick:    b.lastTick,
	}
	if b.lastDecision != nil {
		d := *b.lastDecision
		view.LastDecision = &d
	}
	return view
}

// ServeHTTP serves Snapshot as JSON
func (b *SignalBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(b.Snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Stop saves the final state and releases the journal
func (b *SignalBot) Stop() error {
	if b.persistence == nil {
		return nil
	}
	b.mu.RLock()
	err := b.persistence.Save(b.engine.State())
	b.mu.RUnlock()
	if cerr := b.persistence.Close(); err == nil {
		err = cerr
	}
	return err
}

func signedSize(p position.Position) float64 {
	if p.Direction == regime.DirectionDown {
		return -p.RemainingSize
	}
	return p.RemainingSize
}
