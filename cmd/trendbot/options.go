package main

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ducminhle1904/trend-breakout-bot/internal/config"
	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

// exchangeName prefixes cached data files
const exchangeName = "bybit"

type rootOptions struct {
	configPath string
	preset     string
	envFile    string
	logDir     string
	verbose    bool
}

var rootOpts rootOptions

// marketOverrides are the config values most commands let flags replace
type marketOverrides struct {
	symbol   string
	interval string
	category string
	mode     string
	capital  float64
	risk     float64
	leverage float64
}

func registerMarketFlags(cmd *cobra.Command, o *marketOverrides) {
	f := cmd.Flags()
	f.StringVarP(&o.symbol, "symbol", "s", "", "Trading symbol, e.g. BTCUSDT")
	f.StringVarP(&o.interval, "interval", "i", "", "Candle interval: Bybit code (60, 240, D) or 1h, 4h, 1d")
	f.StringVar(&o.category, "category", "", "Bybit category: spot or linear")
	f.StringVar(&o.mode, "mode", "", "Entry mode: long_only or long_short")
	f.Float64Var(&o.capital, "capital", 0, "Initial capital for backtests and paper equity")
	f.Float64Var(&o.risk, "risk", 0, "Base risk per trade as a fraction of equity")
	f.Float64Var(&o.leverage, "leverage", 0, "Sizing leverage")
}

// apply copies every flag the user set onto cfg, normalizes the interval and revalidates
func (o marketOverrides) apply(cfg *config.Config, changed func(name string) bool) error {
	if changed("symbol") {
		cfg.Backtest.Symbol = strings.ToUpper(strings.TrimSpace(o.symbol))
	}
	if changed("interval") {
		cfg.Backtest.Interval = o.interval
	}
	if changed("category") {
		cfg.Exchange.Category = o.category
	}
	if changed("mode") {
		cfg.Strategy.Mode = strategy.Mode(o.mode)
	}
	if changed("capital") {
		cfg.Backtest.InitialCapital = o.capital
	}
	if changed("risk") {
		cfg.Strategy.BaseRisk = o.risk
	}
	if changed("leverage") {
		cfg.Strategy.Leverage = o.leverage
	}

	interval, err := bybit.ParseInterval(cfg.Backtest.Interval)
	if err != nil {
		return boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "cli", "interval")
	}
	cfg.Backtest.Interval = string(interval)

	return cfg.Validate()
}

// loadConfig reads the env file and the config on top of preset, then applies root flags
func loadConfig(preset string) (*config.Config, error) {
	if err := config.LoadEnv(rootOpts.envFile); err != nil {
		return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "cli", "env")
	}
	cfg, err := config.Load(rootOpts.configPath, preset)
	if err != nil {
		return nil, err
	}
	if rootOpts.logDir != "" {
		cfg.Log.Dir = rootOpts.logDir
	}
	if rootOpts.verbose {
		cfg.Log.Console = true
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// loadCommandConfig is loadConfig for the root preset followed by the command's overrides
func loadCommandConfig(cmd *cobra.Command, o marketOverrides) (*config.Config, error) {
	cfg, err := loadConfig(rootOpts.preset)
	if err != nil {
		return nil, err
	}
	if err := o.apply(cfg, cmd.Flags().Changed); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	return logger.NewLoggerWithOptions(cfg.Backtest.Symbol, cfg.Backtest.Interval, logger.Options{
		Dir:     cfg.Log.Dir,
		Console: cfg.Log.Console,
		Level:   level,
	})
}

func newBybitClient(cfg *config.Config, log *logger.Logger) *bybit.Client {
	return bybit.NewClient(bybit.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
		Demo:      cfg.Exchange.Demo,
		Category:  cfg.Exchange.Category,
		Logger:    log,
	})
}

func hasCredentials(cfg *config.Config) bool {
	return cfg.Exchange.APIKey != "" && cfg.Exchange.APISecret != ""
}
