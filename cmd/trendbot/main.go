package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/trend-breakout-bot/cmd/common"
	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
)

// rootCmd is the base command for the trendbot CLI
var rootCmd = &cobra.Command{
	Use:   "trendbot",
	Short: "Trend-following breakout strategy: backtests, data downloads and paper signals",
	Long: `trendbot trades breakouts in the direction of an aligned EMA trend.
It replays historical candles through the decision engine, downloads Bybit
klines to CSV, and runs the same engine live as a paper signal daemon.

Examples:
  trendbot backtest --data data/btc_4h.csv
  trendbot backtest --symbol ETHUSDT --interval 4h --from 2024-01-01 --fetch
  trendbot download --symbol BTCUSDT --interval 1h --from 2024-01-01 --to 2024-06-30
  trendbot signal --preset futures --symbol SOLUSDT --listen :9090`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       common.GetFullVersion(),
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootOpts.configPath, "config", "", "Config file (JSON or YAML); bare names are looked up in configs/")
	pf.StringVar(&rootOpts.preset, "preset", "spot", "Base preset: spot or futures")
	pf.StringVar(&rootOpts.envFile, "env", ".env", "Environment file with BYBIT_API_KEY and BYBIT_API_SECRET")
	pf.StringVar(&rootOpts.logDir, "log-dir", "", "Log directory (overrides config)")
	pf.BoolVarP(&rootOpts.verbose, "verbose", "v", false, "Debug logging mirrored to the console")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration problems and 1 for everything else
func exitCode(err error) int {
	if boterrors.IsConfigurationError(err) {
		return 2
	}
	return 1
}
