package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
	"github.com/ducminhle1904/trend-breakout-bot/internal/risk"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// Action represents the decision outcome
type Action int

const (
	ActionNone Action = iota
	ActionEnter
	ActionExit
)

// String returns string representation of Action
func (a Action) String() string {
	switch a {
	case ActionEnter:
		return "ENTER"
	case ActionExit:
		return "EXIT"
	default:
		return "NONE"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ENTER":
		*a = ActionEnter
	case "EXIT":
		*a = ActionExit
	case "NONE", "":
		*a = ActionNone
	default:
		return fmt.Errorf("unknown action %q", string(text))
	}
	return nil
}

// Account is the venue view supplied with every evaluation
type Account struct {
	Equity float64
	Venue  risk.VenueConstraints
	Now    time.Time
}

// Decision is the result of one evaluation. Nothing changes until it is committed.
type Decision struct {
	ID            string              `json:"id,omitempty"`
	Action        Action              `json:"action"`
	Direction     regime.Direction    `json:"direction"`
	Price         float64             `json:"price"`
	Size          float64             `json:"size,omitempty"`
	StopLoss      float64             `json:"stop_loss,omitempty"`
	SecondaryStop float64             `json:"secondary_stop,omitempty"`
	Fraction      float64             `json:"fraction,omitempty"`
	Reason        position.ExitReason `json:"reason,omitempty"`
	Rejected      RejectReason        `json:"rejected,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
	DecidedAt     time.Time           `json:"decided_at"`
	Parameters    StrategyParameters  `json:"parameters"`
	Exit          *position.Exit      `json:"-"`

	// position the exit was computed against
	positionEntry     time.Time
	positionRemaining float64
}

// EngineState is the part of the engine that survives a restart
type EngineState struct {
	Position   position.Position `json:"position"`
	LastEntry  time.Time         `json:"last_entry"`
	LastSeen   time.Time         `json:"last_seen"`
	Ticks      int               `json:"ticks"`
	Controller ControllerState   `json:"controller"`
}

// Engine combines regime classification, adaptive parameters, sizing and the
// position lifecycle behind one decide/commit contract shared by live and backtest use.
type Engine struct {
	cfg        Config
	log        *logger.Logger
	lifecycle  *position.Lifecycle
	controller *AdaptiveController
	sizer      *risk.Sizer

	lastEntry time.Time
	lastSeen  time.Time
	ticks     int
}

// NewEngine validates cfg and creates a flat engine
func NewEngine(cfg Config, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		log:        log,
		lifecycle:  position.NewLifecycle(cfg.Ladder),
		controller: NewAdaptiveController(cfg.Adaptive, cfg.Initial),
		sizer:      risk.NewSizer(cfg.MaxStopDistance),
	}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Position() position.Position {
	return e.lifecycle.Position()
}

func (e *Engine) Parameters() StrategyParameters {
	return e.controller.Current()
}

// Evaluate decides on the latest candle of a live window. Calling it again with the
// same window and position yields the same decision.
func (e *Engine) Evaluate(window []types.OHLCV, acct Account) (Decision, error) {
	if len(window) == 0 {
		return Decision{}, boterrors.NewConfigurationError("strategy", "evaluate", "empty candle window")
	}

	params := e.observe(window)
	// the backtest replays from index WarmUp, so the first decision needs WarmUp+1 candles
	if len(window) <= e.cfg.WarmUp {
		last := window[len(window)-1]
		return Decision{
			Action:     ActionNone,
			Price:      last.Close,
			Timestamp:  last.Timestamp,
			DecidedAt:  e.now(acct, last),
			Parameters: params,
			Rejected:   RejectInsufficientData,
		}, nil
	}

	series, err := indicators.Compute(window, e.cfg.Spans)
	if err != nil {
		return Decision{}, err
	}
	return e.decide(window, series.Last(), params, acct), nil
}

// Step decides on data[index] using precomputed indicator series. The adaptive
// cadence runs on the candle index.
func (e *Engine) Step(data []types.OHLCV, series *indicators.Series, index int, acct Account) (Decision, error) {
	if index < 1 || index >= len(data) || index >= series.Len() {
		return Decision{}, boterrors.NewInsufficientDataError("strategy", "step", index+1, 2)
	}

	params, changed := e.controller.Recompute(data, index)
	if changed {
		st := e.controller.State()
		e.log.Info("parameters recomputed at %s: volatility=%.4f bucket=%s threshold=%.3f lookback=%d risk=%.4f",
			data[index].Timestamp.Format(time.RFC3339), st.Volatility, st.Bucket,
			params.SidewaysThreshold, params.BreakoutLookback, params.RiskPercentage)
	}
	return e.decide(data[:index+1], series.At(index), params, acct), nil
}

// observe advances the adaptive cadence by the candles that are new in window
func (e *Engine) observe(window []types.OHLCV) StrategyParameters {
	last := window[len(window)-1].Timestamp
	if !e.lastSeen.IsZero() && !last.After(e.lastSeen) {
		return e.controller.Current()
	}

	if e.lastSeen.IsZero() {
		e.ticks = len(window) - 1
	} else {
		for _, c := range window {
			if c.Timestamp.After(e.lastSeen) {
				e.ticks++
			}
		}
	}
	e.lastSeen = last

	params, changed := e.controller.Step(e.ticks, window)
	if changed {
		st := e.controller.State()
		e.log.Info("parameters recomputed: volatility=%.4f bucket=%s threshold=%.3f lookback=%d risk=%.4f",
			st.Volatility, st.Bucket, params.SidewaysThreshold, params.BreakoutLookback, params.RiskPercentage)
	}
	return params
}

func (e *Engine) decide(window []types.OHLCV, set indicators.Set, params StrategyParameters, acct Account) Decision {
	cur := window[len(window)-1]
	d := Decision{
		Action:     ActionNone,
		Price:      cur.Close,
		Timestamp:  cur.Timestamp,
		DecidedAt:  e.now(acct, cur),
		Parameters: params,
	}

	pos := e.lifecycle.Position()
	if !pos.IsFlat() {
		if len(window) < 2 {
			d.Rejected = RejectInsufficientData
			return d
		}
		exit, ok := e.lifecycle.Next(position.Tick{
			Prev:    window[len(window)-2],
			Cur:     cur,
			EMAFast: set.EMAFast,
			EMAMid:  set.EMAMid,
		})
		if !ok {
			return d
		}
		exit = e.fitExit(exit, pos, acct.Venue)

		d.ID = uuid.NewString()
		d.Action = ActionExit
		d.Direction = pos.Direction
		d.Size = exit.Size
		d.Fraction = exit.Fraction
		d.Reason = exit.Reason
		d.Exit = &exit
		d.positionEntry = pos.EntryTime
		d.positionRemaining = pos.RemainingSize
		return d
	}

	if e.cfg.Cooldown > 0 && !e.lastEntry.IsZero() && d.DecidedAt.Sub(e.lastEntry) < e.cfg.Cooldown {
		d.Rejected = RejectCooldown
		return d
	}

	entry, reason := EvaluateEntry(window, set, params, e.cfg.Entry)
	if reason != RejectNone {
		if reason == RejectWeakCandle || reason == RejectLowVolume {
			e.log.Info("%s breakout at %.4f discarded: %s", entry.Direction, cur.Close, reason)
		}
		d.Rejected = reason
		return d
	}

	plan, err := e.sizer.Plan(entry.Direction, risk.Request{
		EntryPrice:     entry.Price,
		StopPrice:      entry.PrimaryStop,
		Capital:        acct.Equity,
		RiskPercentage: params.RiskPercentage,
		Leverage:       e.cfg.Leverage,
	}, acct.Venue)
	if err != nil {
		d.Rejected = RejectSizing
		if errors.Is(err, boterrors.ErrBelowMinNotional) {
			d.Rejected = RejectBelowMinNotional
		}
		e.log.Warning("%s entry at %.4f dropped: %v", entry.Direction, entry.Price, err)
		return d
	}

	d.ID = uuid.NewString()
	d.Action = ActionEnter
	d.Direction = entry.Direction
	d.Size = plan.Size
	d.StopLoss = plan.StopPrice
	d.SecondaryStop = entry.SecondaryStop
	d.Fraction = 1
	return d
}

// fitExit rounds a partial exit to the venue quantity step. A partial exit that
// the venue would not accept, or that would leave an unsellable remainder, closes
// the whole position with the same reason.
func (e *Engine) fitExit(exit position.Exit, pos position.Position, venue risk.VenueConstraints) position.Exit {
	if exit.Final {
		return exit
	}

	tooSmall := func(qty float64) bool {
		return qty <= 0 || qty < venue.MinOrderQty || qty*exit.Price < venue.MinNotional
	}
	size := risk.RoundDownToStep(exit.Size, venue.QtyStep)
	if !tooSmall(size) && !tooSmall(pos.RemainingSize-size) {
		exit.Size = size
		return exit
	}

	e.log.Warning("%s exit of %.8f below venue minimum at %.4f, closing remaining %.8f",
		exit.Reason, exit.Size, exit.Price, pos.RemainingSize)
	exit.Size = pos.RemainingSize
	exit.Fraction = 1
	exit.NextStage = position.FinalStage
	exit.ArmPrimary = false
	exit.Final = true
	return exit
}

// Commit applies a decision once the caller has acted on it. Exit fills are returned.
func (e *Engine) Commit(d Decision) (*position.Fill, error) {
	switch d.Action {
	case ActionNone:
		return nil, nil

	case ActionEnter:
		if err := e.lifecycle.Open(d.Direction, d.Price, d.Size, d.StopLoss, d.SecondaryStop, d.Timestamp); err != nil {
			return nil, err
		}
		e.lastEntry = d.DecidedAt
		e.log.Trade("ENTER %s size=%.8f price=%.4f stop=%.4f secondary=%.4f",
			d.Direction, d.Size, d.Price, d.StopLoss, d.SecondaryStop)
		return nil, nil

	case ActionExit:
		if d.Exit == nil {
			return nil, boterrors.NewValidationError("strategy", "commit", "exit decision without exit instruction")
		}
		pos := e.lifecycle.Position()
		if pos.IsFlat() || !pos.EntryTime.Equal(d.positionEntry) || pos.RemainingSize != d.positionRemaining {
			return nil, boterrors.NewPositionError("strategy", "commit", boterrors.ErrStaleDecision)
		}
		fill, err := e.lifecycle.Apply(*d.Exit)
		if err != nil {
			return nil, err
		}
		e.log.Trade("EXIT %s reason=%s size=%.8f price=%.4f pnl=%.4f final=%t",
			fill.Direction, fill.Reason, fill.Size, fill.Price, fill.PnL, fill.Final)
		return &fill, nil
	}

	return nil, boterrors.NewValidationError("strategy", "commit", "unknown action")
}

// State captures the engine for persistence
func (e *Engine) State() EngineState {
	return EngineState{
		Position:   e.lifecycle.Position(),
		LastEntry:  e.lastEntry,
		LastSeen:   e.lastSeen,
		Ticks:      e.ticks,
		Controller: e.controller.State(),
	}
}

// Restore loads a previously captured state
func (e *Engine) Restore(s EngineState) error {
	if err := e.lifecycle.Restore(s.Position); err != nil {
		return err
	}
	e.lastEntry = s.LastEntry
	e.lastSeen = s.LastSeen
	e.ticks = s.Ticks
	if s.Controller.HasLast {
		e.controller.Restore(s.Controller)
	}
	return nil
}

func (e *Engine) now(acct Account, cur types.OHLCV) time.Time {
	if !acct.Now.IsZero() {
		return acct.Now
	}
	return cur.Timestamp
}
