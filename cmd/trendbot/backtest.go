package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/trend-breakout-bot/cmd/common"
	"github.com/ducminhle1904/trend-breakout-bot/internal/backtest"
	"github.com/ducminhle1904/trend-breakout-bot/internal/config"
	"github.com/ducminhle1904/trend-breakout-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/data"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/reporting"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical candles through the strategy",
	Long: `Replay a candle series through the decision engine and report trades,
equity and summary statistics.

Data is taken from --data, then the config's data_file, then the newest
cached download in --data-dir. When none exists, or with --fetch, candles
are downloaded from Bybit and cached unless --save-data=false.

Examples:
  trendbot backtest --data data/bybit_BTCUSDT_240_20240101_20241231.csv
  trendbot backtest --symbol ETHUSDT --interval 1h --from 2024-01-01 --to 2024-06-30 --fetch
  trendbot backtest --presets spot,futures --console-only`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

type backtestOptions struct {
	market      marketOverrides
	dataFile    string
	dataDir     string
	outputDir   string
	from        string
	to          string
	fetch       bool
	saveData    bool
	consoleOnly bool
	presets     []string
	workers     int
	showTrades  int
	cooldown    bool
}

var btOpts backtestOptions

func init() {
	rootCmd.AddCommand(backtestCmd)

	registerMarketFlags(backtestCmd, &btOpts.market)
	f := backtestCmd.Flags()
	f.StringVarP(&btOpts.dataFile, "data", "d", "", "CSV file with timestamp,open,high,low,close,volume")
	f.StringVar(&btOpts.dataDir, "data-dir", "", "Directory of cached downloads (overrides config)")
	f.StringVarP(&btOpts.outputDir, "output-dir", "o", "", "Report directory (overrides config)")
	f.StringVar(&btOpts.from, "from", "", "Start date, YYYY-MM-DD or RFC3339")
	f.StringVar(&btOpts.to, "to", "", "End date, YYYY-MM-DD or RFC3339")
	f.BoolVar(&btOpts.fetch, "fetch", false, "Download candles from Bybit even when a cached file exists")
	f.BoolVar(&btOpts.saveData, "save-data", true, "Cache downloaded candles as CSV in the data directory")
	f.BoolVar(&btOpts.consoleOnly, "console-only", false, "Print results without writing report files")
	f.StringSliceVar(&btOpts.presets, "presets", nil, "Run one backtest per preset in parallel, e.g. spot,futures")
	f.IntVar(&btOpts.workers, "workers", 0, "Parallel backtests for --presets (0 = number of CPUs)")
	f.IntVar(&btOpts.showTrades, "show-trades", 20, "Trades listed on the console")
	f.BoolVar(&btOpts.cooldown, "apply-cooldown", false, "Enforce the live trade cooldown during replay")
}

func (o backtestOptions) validate() (from, to time.Time, err error) {
	v := common.NewFlagValidator()
	if from, err = common.ParseDate(o.from); err != nil {
		v.AddError(err.Error())
	}
	if to, err = common.ParseDate(o.to); err != nil {
		v.AddError(err.Error())
	}
	v.ValidateRange(from, to).
		ValidateInt("workers", o.workers, 0, 256).
		ValidateInt("show-trades", o.showTrades, 0, 100000).
		ValidateFile("data", o.dataFile, false)
	for _, p := range o.presets {
		v.ValidateChoice("presets", p, []string{"spot", "futures"})
	}
	return from, to, v.GetError()
}

func runBacktest(cmd *cobra.Command, args []string) error {
	from, to, err := btOpts.validate()
	if err != nil {
		return err
	}

	cfg, err := loadCommandConfig(cmd, btOpts.market)
	if err != nil {
		return err
	}
	if btOpts.dataDir != "" {
		cfg.Backtest.DataDir = btOpts.dataDir
	}
	if btOpts.outputDir != "" {
		cfg.Backtest.OutputDir = btOpts.outputDir
	}
	if cmd.Flags().Changed("apply-cooldown") {
		cfg.Backtest.ApplyCooldown = btOpts.cooldown
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	candles, err := loadCandles(ctx, cfg, btOpts, from, to, log)
	if err != nil {
		return err
	}
	log.Info("loaded %d candles from %s to %s", len(candles),
		candles[0].Timestamp.Format(time.RFC3339), candles[len(candles)-1].Timestamp.Format(time.RFC3339))

	rcfg := reporting.DefaultReportingConfig()
	rcfg.OutputDirectory = cfg.Backtest.OutputDir
	rcfg.ShowTrades = btOpts.showTrades
	rcfg.EnableFiles = !btOpts.consoleOnly
	reporter := reporting.NewReportingManager(rcfg, cmd.OutOrStdout())

	if len(btOpts.presets) > 0 {
		return runPresetBatch(ctx, cmd, cfg, candles, reporter, log)
	}

	engine, err := backtest.NewBacktestEngine(cfg.BacktestConfig(), log)
	if err != nil {
		return err
	}
	results, err := engine.Run(ctx, candles)
	if err != nil {
		return err
	}

	written, err := reporter.ReportResults(results)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
	return nil
}

// runPresetBatch replays the same candles under every requested preset
func runPresetBatch(ctx context.Context, cmd *cobra.Command, base *config.Config, candles []types.OHLCV,
	reporter *reporting.ReportingManager, log *logger.Logger) error {

	jobs := make([]backtest.BacktestJob, 0, len(btOpts.presets))
	for _, name := range btOpts.presets {
		cfg, err := loadConfig(name)
		if err != nil {
			return err
		}
		if err := btOpts.market.apply(cfg, cmd.Flags().Changed); err != nil {
			return err
		}
		cfg.Backtest.Symbol = base.Backtest.Symbol
		cfg.Backtest.Interval = base.Backtest.Interval
		cfg.Backtest.ApplyCooldown = base.Backtest.ApplyCooldown

		jobs = append(jobs, backtest.BacktestJob{
			ID:     name,
			Name:   name,
			Config: cfg.BacktestConfig(),
			Data:   candles,
		})
	}

	results := backtest.RunBatch(ctx, jobs, btOpts.workers, log)
	reporter.Console().OutputBatch(results)

	if btOpts.consoleOnly {
		return nil
	}
	dir := reporting.OutputDir(base.Backtest.OutputDir, base.Backtest.Symbol, base.Backtest.Interval)
	for _, r := range results {
		if r.Error != nil || r.Results == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s", r.Name, reporting.SummaryFile))
		if err := reporting.WriteJSON(reporting.NewSummaryDocument(r.Results), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
	return nil
}

// loadCandles resolves the data source described in the backtest help text
func loadCandles(ctx context.Context, cfg *config.Config, o backtestOptions, from, to time.Time, log *logger.Logger) ([]types.OHLCV, error) {
	path := o.dataFile
	if path == "" && !o.fetch {
		path = cfg.Backtest.DataFile
		if path == "" {
			path = data.FindDataFile(cfg.Backtest.DataDir, exchangeName, cfg.Backtest.Symbol, cfg.Backtest.Interval)
		}
	}
	if path != "" {
		log.Info("loading candles from %s", path)
		return data.NewDataManager(log).Load(path, from, to)
	}

	from, to = defaultRange(from, to, time.Now().UTC())
	candles, err := downloadCandles(ctx, cfg, from, to, log)
	if err != nil {
		return nil, err
	}
	if o.saveData {
		cache := data.CachePath(cfg.Backtest.DataDir, exchangeName, cfg.Backtest.Symbol, cfg.Backtest.Interval, from, to)
		if err := data.SaveData(cache, candles); err != nil {
			log.Warning("could not cache candles: %v", err)
		} else {
			log.Info("cached %d candles to %s", len(candles), cache)
		}
	}
	return candles, nil
}

// defaultRange fills open bounds: to defaults to now, from to one year before to
func defaultRange(from, to, now time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(-1, 0, 0)
	}
	return from, to
}

func downloadCandles(ctx context.Context, cfg *config.Config, from, to time.Time, log *logger.Logger) ([]types.OHLCV, error) {
	client := newBybitClient(cfg, log)
	log.Info("downloading %s %s candles from %s (%s) between %s and %s", cfg.Backtest.Symbol, cfg.Backtest.Interval,
		client.GetEnvironment(), client.Category(), from.Format(time.RFC3339), to.Format(time.RFC3339))

	candles, err := client.FetchHistory(ctx, bybit.HistoryParams{
		Symbol:   strings.ToUpper(cfg.Backtest.Symbol),
		Interval: bybit.KlineInterval(cfg.Backtest.Interval),
		Start:    from,
		End:      to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download candles: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no %s %s candles between %s and %s", cfg.Backtest.Symbol, cfg.Backtest.Interval,
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return candles, nil
}
