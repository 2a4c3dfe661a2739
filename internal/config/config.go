package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/internal/risk"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

// Config represents the complete configuration of a backtest or signal run
type Config struct {
	Backtest   BacktestSection       `json:"backtest" yaml:"backtest"`
	Strategy   StrategySection       `json:"strategy" yaml:"strategy"`
	Venue      risk.VenueConstraints `json:"venue" yaml:"venue"`
	Exchange   ExchangeSection       `json:"exchange" yaml:"exchange"`
	Monitoring MonitoringSection     `json:"monitoring" yaml:"monitoring"`
	Log        LogSection            `json:"log" yaml:"log"`
	Notify     NotifySection         `json:"notifications" yaml:"notifications"`
}

// BacktestSection holds the replay inputs
type BacktestSection struct {
	Symbol         string  `json:"symbol" yaml:"symbol"`
	Interval       string  `json:"interval" yaml:"interval"` // Bybit interval code (1, 5, 60, 240, D ...)
	DataFile       string  `json:"data_file,omitempty" yaml:"data_file,omitempty"`
	DataDir        string  `json:"data_dir" yaml:"data_dir"`
	OutputDir      string  `json:"output_dir" yaml:"output_dir"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	ApplyCooldown  bool    `json:"apply_cooldown" yaml:"apply_cooldown"`
}

// StrategySection holds the decision engine settings
type StrategySection struct {
	Mode                 strategy.Mode    `json:"mode" yaml:"mode"`
	BaseRisk             float64          `json:"base_risk" yaml:"base_risk"`
	Leverage             float64          `json:"leverage" yaml:"leverage"`
	Indicators           indicators.Spans `json:"indicators" yaml:"indicators"`
	WarmUp               int              `json:"warm_up" yaml:"warm_up"`
	AdjustmentPeriod     int              `json:"adjustment_period" yaml:"adjustment_period"`
	VolatilityWindow     int              `json:"volatility_window" yaml:"volatility_window"`
	SidewaysLookback     int              `json:"sideways_lookback" yaml:"sideways_lookback"`
	SidewaysThreshold    float64          `json:"sideways_threshold" yaml:"sideways_threshold"`
	BreakoutLookback     int              `json:"breakout_lookback" yaml:"breakout_lookback"`
	VolumeSurge          float64          `json:"volume_surge" yaml:"volume_surge"`
	RequireConsolidation bool             `json:"require_consolidation" yaml:"require_consolidation"`
	MaxStopDistance      float64          `json:"max_stop_distance" yaml:"max_stop_distance"`
	ExitStages           int              `json:"exit_stages" yaml:"exit_stages"`
	StopTiers            int              `json:"stop_tiers" yaml:"stop_tiers"`
	Cooldown             Duration         `json:"cooldown" yaml:"cooldown"`
}

// ExchangeSection configures the Bybit client. Credentials only come from the environment.
type ExchangeSection struct {
	Category  string `json:"category" yaml:"category"` // spot or linear
	Testnet   bool   `json:"testnet" yaml:"testnet"`
	Demo      bool   `json:"demo" yaml:"demo"`
	APIKey    string `json:"-" yaml:"-"`
	APISecret string `json:"-" yaml:"-"`
}

type MonitoringSection struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	StateDir   string `json:"state_dir" yaml:"state_dir"`
	// Stream triggers evaluations from the kline websocket instead of a timer
	Stream bool `json:"stream" yaml:"stream"`
}

// NotifySection configures Telegram signal alerts. The token only comes from the environment.
type NotifySection struct {
	TelegramToken  string `json:"-" yaml:"-"`
	TelegramChatID string `json:"telegram_chat_id" yaml:"telegram_chat_id"`
}

func (n NotifySection) Enabled() bool {
	return n.TelegramToken != "" && n.TelegramChatID != ""
}

type LogSection struct {
	Dir     string `json:"dir" yaml:"dir"`
	Console bool   `json:"console" yaml:"console"`
	Level   string `json:"level" yaml:"level"`
}

// Duration is a time.Duration written as "4h", "30m" in config files
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("duration must be a string like \"4h\": %w", err)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Validate checks every section and fails fast on the first problem
func (c *Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return boterrors.NewConfigurationError("config", "validate", fmt.Sprintf(format, args...))
	}

	if c.Backtest.InitialCapital <= 0 {
		return fail("initial capital must be positive, got: %.2f", c.Backtest.InitialCapital)
	}
	if strings.TrimSpace(c.Backtest.Symbol) == "" {
		return fail("symbol is required")
	}
	if strings.TrimSpace(c.Backtest.Interval) == "" {
		return fail("interval is required")
	}

	v := c.Venue
	if v.MinNotional < 0 || v.MinOrderQty < 0 || v.MaxTradeAmount < 0 || v.QtyStep < 0 || v.TickSize < 0 {
		return fail("venue values must not be negative")
	}
	if v.BalanceFraction < 0 || v.BalanceFraction > 1 {
		return fail("venue balance fraction must be in [0, 1], got: %.2f", v.BalanceFraction)
	}

	switch c.Exchange.Category {
	case "spot", "linear":
	default:
		return fail("exchange category must be spot or linear, got: %q", c.Exchange.Category)
	}
	if c.Exchange.Testnet && c.Exchange.Demo {
		return fail("testnet and demo are mutually exclusive")
	}

	return c.StrategyConfig().Validate()
}
