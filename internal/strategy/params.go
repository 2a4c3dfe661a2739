package strategy

import (
	"math"

	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// StrategyParameters are the tunables re-derived by the adaptive controller
type StrategyParameters struct {
	SidewaysLookback  int     `json:"sideways_lookback" yaml:"sideways_lookback"`
	SidewaysThreshold float64 `json:"sideways_threshold" yaml:"sideways_threshold"`
	BreakoutLookback  int     `json:"breakout_lookback" yaml:"breakout_lookback"`
	RiskPercentage    float64 `json:"risk_percentage" yaml:"risk_percentage"`
}

// Regime returns the window configuration for the regime classifier
func (p StrategyParameters) Regime() regime.Config {
	return regime.Config{
		SidewaysLookback:  p.SidewaysLookback,
		SidewaysThreshold: p.SidewaysThreshold,
		BreakoutLookback:  p.BreakoutLookback,
	}
}

// DefaultParameters are used before the first recompute
func DefaultParameters(baseRisk float64) StrategyParameters {
	return StrategyParameters{
		SidewaysLookback:  5,
		SidewaysThreshold: 0.02,
		BreakoutLookback:  10,
		RiskPercentage:    baseRisk,
	}
}

// VolatilityBucket classifies normalized ATR
type VolatilityBucket string

const (
	VolatilityLow    VolatilityBucket = "low"
	VolatilityMedium VolatilityBucket = "medium"
	VolatilityHigh   VolatilityBucket = "high"
)

// AdaptiveConfig controls the recompute cadence and volatility window
type AdaptiveConfig struct {
	Period     int     `json:"adjustment_period" yaml:"adjustment_period"`
	Window     int     `json:"volatility_window" yaml:"volatility_window"`
	MinCandles int     `json:"min_candles" yaml:"min_candles"`
	ATRPeriod  int     `json:"atr_period" yaml:"atr_period"`
	BaseRisk   float64 `json:"base_risk" yaml:"base_risk"`
}

// DefaultAdaptiveConfig recomputes every 20 candles from the last 30
func DefaultAdaptiveConfig(baseRisk float64) AdaptiveConfig {
	return AdaptiveConfig{
		Period:     20,
		Window:     30,
		MinCandles: 15,
		ATRPeriod:  14,
		BaseRisk:   baseRisk,
	}
}

// DeriveParameters maps a volatility reading to parameters. Risk always derives
// from the base risk so repeated recomputes never compound.
func DeriveParameters(volatility, baseRisk float64, sidewaysLookback int) (StrategyParameters, VolatilityBucket) {
	p := StrategyParameters{SidewaysLookback: sidewaysLookback}
	switch {
	case volatility > 0.03:
		p.SidewaysThreshold = 0.08
		p.BreakoutLookback = 3
		p.RiskPercentage = math.Min(0.015, baseRisk*1.2)
		return p, VolatilityHigh
	case volatility > 0.015:
		p.SidewaysThreshold = 0.05
		p.BreakoutLookback = 5
		p.RiskPercentage = baseRisk
		return p, VolatilityMedium
	default:
		p.SidewaysThreshold = 0.03
		p.BreakoutLookback = 8
		p.RiskPercentage = math.Max(0.007, baseRisk*0.8)
		return p, VolatilityLow
	}
}

// MeasureVolatility returns latest ATR / latest close over recent
func MeasureVolatility(recent []types.OHLCV, atrPeriod int) (float64, error) {
	atr, err := indicators.LatestATR(recent, atrPeriod)
	if err != nil {
		return 0, err
	}
	last := recent[len(recent)-1].Close
	if last <= 0 || !indicators.Defined(atr) {
		return 0, nil
	}
	return atr / last, nil
}

// ControllerState is the persisted part of AdaptiveController
type ControllerState struct {
	LastTick   int                `json:"last_tick"`
	HasLast    bool               `json:"has_last"`
	Volatility float64            `json:"volatility"`
	Bucket     VolatilityBucket   `json:"bucket"`
	Parameters StrategyParameters `json:"parameters"`
}

// AdaptiveController re-derives StrategyParameters from realized volatility every
// Period ticks and holds them constant in between.
type AdaptiveController struct {
	cfg   AdaptiveConfig
	state ControllerState
}

// NewAdaptiveController creates a controller starting from initial parameters
func NewAdaptiveController(cfg AdaptiveConfig, initial StrategyParameters) *AdaptiveController {
	return &AdaptiveController{
		cfg:   cfg,
		state: ControllerState{Parameters: initial},
	}
}

// Recompute is the backtest entry point: index is both the cadence tick and the
// position of the current candle in data.
func (c *AdaptiveController) Recompute(data []types.OHLCV, index int) (StrategyParameters, bool) {
	if index < 0 || index >= len(data) {
		return c.state.Parameters, false
	}
	return c.Step(index, data[:index+1])
}

// Step recomputes when due. history must end at the current candle.
// The second return value is false when the previous parameters were kept.
func (c *AdaptiveController) Step(tick int, history []types.OHLCV) (StrategyParameters, bool) {
	if c.state.HasLast && tick-c.state.LastTick < c.cfg.Period {
		return c.state.Parameters, false
	}
	c.state.LastTick = tick
	c.state.HasLast = true

	start := len(history) - c.cfg.Window
	if start < 0 {
		start = 0
	}
	recent := history[start:]

	// too little history keeps the previous volatility reading
	if len(recent) >= c.cfg.MinCandles {
		if v, err := MeasureVolatility(recent, c.cfg.ATRPeriod); err == nil {
			c.state.Volatility = v
		}
	}

	params, bucket := DeriveParameters(c.state.Volatility, c.cfg.BaseRisk, c.state.Parameters.SidewaysLookback)
	c.state.Parameters = params
	c.state.Bucket = bucket
	return params, true
}

// Current returns the parameters in force
func (c *AdaptiveController) Current() StrategyParameters {
	return c.state.Parameters
}

func (c *AdaptiveController) State() ControllerState {
	return c.state
}

func (c *AdaptiveController) Restore(s ControllerState) {
	c.state = s
}
