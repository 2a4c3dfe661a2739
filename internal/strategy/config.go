package strategy

import (
	"fmt"
	"math"
	"time"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/risk"
)

const (
	// MaxSpotLeverage bounds the sizing leverage in long-only mode
	MaxSpotLeverage = 10
	// MaxFuturesLeverage bounds the sizing leverage in long/short mode
	MaxFuturesLeverage = 125
)

// Config is everything the decision engine needs
type Config struct {
	Spans           indicators.Spans   `json:"indicators"`
	BaseRisk        float64            `json:"base_risk"`
	Leverage        float64            `json:"leverage"`
	WarmUp          int                `json:"warm_up"`
	Adaptive        AdaptiveConfig     `json:"adaptive"`
	Initial         StrategyParameters `json:"initial_parameters"`
	Entry           EntryConfig        `json:"entry"`
	Ladder          position.Ladder    `json:"ladder"`
	MaxStopDistance float64            `json:"max_stop_distance"`
	Cooldown        time.Duration      `json:"cooldown"`
}

// DefaultConfig is the long-only setup with the full exit ladder
func DefaultConfig() Config {
	const baseRisk = 0.01
	return Config{
		Spans:           indicators.DefaultSpans(),
		BaseRisk:        baseRisk,
		Leverage:        1,
		WarmUp:          50,
		Adaptive:        DefaultAdaptiveConfig(baseRisk),
		Initial:         DefaultParameters(baseRisk),
		Entry:           DefaultEntryConfig(),
		Ladder:          position.DefaultLadder(),
		MaxStopDistance: risk.DefaultMaxStopDistance,
		Cooldown:        4 * time.Hour,
	}
}

// FuturesConfig trades both sides with leverage and the collapsed ladder
func FuturesConfig() Config {
	cfg := DefaultConfig()
	cfg.Leverage = 3
	cfg.Entry.Mode = ModeLongShort
	cfg.Ladder = position.CollapsedLadder()
	return cfg
}

// Validate rejects configurations the engine cannot run with
func (c Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return boterrors.NewConfigurationError("strategy", "validate", fmt.Sprintf(format, args...))
	}

	if err := c.Spans.Validate(); err != nil {
		return err
	}
	if err := c.Entry.Mode.Validate(); err != nil {
		return fail("%v", err)
	}
	if err := c.Ladder.Validate(); err != nil {
		return fail("%v", err)
	}
	if c.BaseRisk <= 0 || c.BaseRisk > 0.1 {
		return fail("base risk must be in (0, 0.1], got: %.4f", c.BaseRisk)
	}

	maxLeverage := float64(MaxSpotLeverage)
	if c.Entry.Mode == ModeLongShort {
		maxLeverage = MaxFuturesLeverage
	}
	if c.Leverage < 1 || c.Leverage > maxLeverage || c.Leverage != math.Trunc(c.Leverage) {
		return fail("leverage must be an integer in [1, %.0f], got: %.2f", maxLeverage, c.Leverage)
	}

	if c.WarmUp < 2 {
		return fail("warm-up must be at least 2 candles, got: %d", c.WarmUp)
	}
	if c.Adaptive.Period < 1 || c.Adaptive.Window < 1 || c.Adaptive.ATRPeriod < 1 {
		return fail("adaptive period, window and ATR period must be >= 1")
	}
	if c.Adaptive.BaseRisk <= 0 {
		return fail("adaptive base risk must be positive, got: %.4f", c.Adaptive.BaseRisk)
	}
	if c.Initial.SidewaysLookback < 1 || c.Initial.BreakoutLookback < 1 {
		return fail("sideways and breakout lookbacks must be >= 1")
	}
	if c.Initial.SidewaysThreshold <= 0 {
		return fail("sideways threshold must be positive, got: %.4f", c.Initial.SidewaysThreshold)
	}
	if c.Initial.RiskPercentage <= 0 {
		return fail("risk percentage must be positive, got: %.4f", c.Initial.RiskPercentage)
	}
	if c.Entry.VolumeSurge < 0 {
		return fail("volume surge must not be negative, got: %.2f", c.Entry.VolumeSurge)
	}
	if c.MaxStopDistance <= 0 || c.MaxStopDistance >= 1 {
		return fail("max stop distance must be in (0, 1), got: %.4f", c.MaxStopDistance)
	}
	if c.Cooldown < 0 {
		return fail("cooldown must not be negative, got: %s", c.Cooldown)
	}
	return nil
}
