package config

import (
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/backtest"
	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

// StrategyConfig converts the strategy section into the decision engine configuration
func (c *Config) StrategyConfig() strategy.Config {
	s := c.Strategy
	adaptive := strategy.DefaultAdaptiveConfig(s.BaseRisk)
	if s.AdjustmentPeriod != 0 {
		adaptive.Period = s.AdjustmentPeriod
	}
	if s.VolatilityWindow != 0 {
		adaptive.Window = s.VolatilityWindow
	}
	adaptive.ATRPeriod = s.Indicators.ATRPeriod

	return strategy.Config{
		Spans:    s.Indicators,
		BaseRisk: s.BaseRisk,
		Leverage: s.Leverage,
		WarmUp:   s.WarmUp,
		Adaptive: adaptive,
		Initial: strategy.StrategyParameters{
			SidewaysLookback:  s.SidewaysLookback,
			SidewaysThreshold: s.SidewaysThreshold,
			BreakoutLookback:  s.BreakoutLookback,
			RiskPercentage:    s.BaseRisk,
		},
		Entry: strategy.EntryConfig{
			Mode:                 s.Mode,
			VolumeSurge:          s.VolumeSurge,
			RequireConsolidation: s.RequireConsolidation,
		},
		Ladder:          position.Ladder{ExitStages: s.ExitStages, StopTiers: s.StopTiers},
		MaxStopDistance: s.MaxStopDistance,
		Cooldown:        time.Duration(s.Cooldown),
	}
}

// BacktestConfig converts the configuration for a replay run
func (c *Config) BacktestConfig() backtest.BacktestConfig {
	return backtest.BacktestConfig{
		Symbol:         c.Backtest.Symbol,
		Interval:       c.Backtest.Interval,
		InitialCapital: c.Backtest.InitialCapital,
		Strategy:       c.StrategyConfig(),
		Venue:          c.Venue,
		ApplyCooldown:  c.Backtest.ApplyCooldown,
	}
}
