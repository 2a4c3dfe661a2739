package config

import (
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/internal/risk"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

// DefaultConfig is long-only spot trading with the full exit ladder
func DefaultConfig() *Config {
	return &Config{
		Backtest: BacktestSection{
			Symbol:         "BTCUSDT",
			Interval:       "240",
			DataDir:        "data",
			OutputDir:      "results",
			InitialCapital: 10000,
		},
		Strategy: StrategySection{
			Mode:              strategy.ModeLongOnly,
			BaseRisk:          0.01,
			Leverage:          1,
			Indicators:        indicators.DefaultSpans(),
			WarmUp:            50,
			AdjustmentPeriod:  20,
			VolatilityWindow:  30,
			SidewaysLookback:  5,
			SidewaysThreshold: 0.02,
			BreakoutLookback:  10,
			VolumeSurge:       1.2,
			MaxStopDistance:   risk.DefaultMaxStopDistance,
			ExitStages:        3,
			StopTiers:         2,
			Cooldown:          Duration(4 * time.Hour),
		},
		Venue: risk.VenueConstraints{
			MinNotional:     5,
			QtyStep:         0.000001,
			TickSize:        0.01,
			BalanceFraction: 1,
		},
		Exchange: ExchangeSection{
			Category: "spot",
		},
		Monitoring: MonitoringSection{
			ListenAddr: ":9090",
			StateDir:   "state",
		},
		Log: LogSection{
			Dir:   "logs",
			Level: "info",
		},
	}
}

// FuturesPreset trades both sides on linear perpetuals with leverage and the collapsed ladder
func FuturesPreset() *Config {
	cfg := DefaultConfig()
	cfg.Strategy.Mode = strategy.ModeLongShort
	cfg.Strategy.Leverage = 3
	cfg.Strategy.ExitStages = 1
	cfg.Strategy.StopTiers = 1
	cfg.Exchange.Category = "linear"
	cfg.Venue.QtyStep = 0.001
	cfg.Venue.TickSize = 0.1
	return cfg
}

// Preset returns a named preset: "spot" or "futures"
func Preset(name string) (*Config, bool) {
	switch name {
	case "", "spot":
		return DefaultConfig(), true
	case "futures":
		return FuturesPreset(), true
	}
	return nil, false
}
