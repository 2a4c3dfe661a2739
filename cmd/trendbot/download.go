package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/trend-breakout-bot/cmd/common"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/data"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download Bybit klines to CSV",
	Long: `Download every closed candle of a symbol in [--from, --to] and write it as
CSV. Without --out the file goes to the data directory under the name the
backtest command looks for.

Examples:
  trendbot download --symbol BTCUSDT --interval 4h --from 2023-01-01
  trendbot download --symbol ETHUSDT --interval 60 --from 2024-01-01 --to 2024-03-31 --out eth.csv`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

type downloadOptions struct {
	market  marketOverrides
	from    string
	to      string
	out     string
	dataDir string
}

var dlOpts downloadOptions

func init() {
	rootCmd.AddCommand(downloadCmd)

	registerMarketFlags(downloadCmd, &dlOpts.market)
	f := downloadCmd.Flags()
	f.StringVar(&dlOpts.from, "from", "", "Start date, YYYY-MM-DD or RFC3339 (default one year before --to)")
	f.StringVar(&dlOpts.to, "to", "", "End date, YYYY-MM-DD or RFC3339 (default now)")
	f.StringVar(&dlOpts.out, "out", "", "Output CSV path")
	f.StringVar(&dlOpts.dataDir, "data-dir", "", "Directory for cached downloads (overrides config)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	v := common.NewFlagValidator()
	from, err := common.ParseDate(dlOpts.from)
	if err != nil {
		v.AddError(err.Error())
	}
	to, err := common.ParseDate(dlOpts.to)
	if err != nil {
		v.AddError(err.Error())
	}
	from, to = defaultRange(from, to, time.Now().UTC())
	if err := v.ValidateRange(from, to).GetError(); err != nil {
		return err
	}

	cfg, err := loadCommandConfig(cmd, dlOpts.market)
	if err != nil {
		return err
	}
	if dlOpts.dataDir != "" {
		cfg.Backtest.DataDir = dlOpts.dataDir
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	candles, err := downloadCandles(ctx, cfg, from, to, log)
	if err != nil {
		return err
	}

	path := dlOpts.out
	if path == "" {
		path = data.CachePath(cfg.Backtest.DataDir, exchangeName, cfg.Backtest.Symbol, cfg.Backtest.Interval, from, to)
	}
	if err := data.SaveData(path, candles); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d candles (%s to %s) to %s\n", len(candles),
		candles[0].Timestamp.Format(time.RFC3339), candles[len(candles)-1].Timestamp.Format(time.RFC3339), path)
	return nil
}
