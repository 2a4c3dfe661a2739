package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/trend-breakout-bot/cmd/common"
	"github.com/ducminhle1904/trend-breakout-bot/internal/bot"
	"github.com/ducminhle1904/trend-breakout-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/trend-breakout-bot/internal/monitoring"
	"github.com/ducminhle1904/trend-breakout-bot/internal/notifications"
	"github.com/ducminhle1904/trend-breakout-bot/internal/state"
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Run the strategy on live Bybit candles as a paper signal daemon",
	Long: `Evaluate the strategy on every closed candle and record the decisions it
would trade. No orders are placed. Engine state survives restarts through
the state directory, and every decision is appended to a JSON-lines journal.

With --stream, candle closes arrive over the Bybit public websocket; the
daemon falls back to polling on the candle clock if the stream drops for good.
Entries and exits are sent to Telegram when TELEGRAM_BOT_TOKEN and
TELEGRAM_CHAT_ID are set.

With BYBIT_API_KEY and BYBIT_API_SECRET set, equity is the available balance
of the quote coin; otherwise a paper equity starting at --capital is kept.

Metrics, health and the current state are served on --listen:
  /metrics  Prometheus metrics
  /health   liveness of the signal loop
  /state    engine state and last decision

Examples:
  trendbot signal --symbol BTCUSDT --interval 4h
  trendbot signal --preset futures --symbol SOLUSDT --listen :9091
  trendbot signal --stream --interval 1h
  trendbot signal --once`,
	Args: cobra.NoArgs,
	RunE: runSignal,
}

type signalOptions struct {
	market   marketOverrides
	listen   string
	stateDir string
	window   int
	settle   time.Duration
	once     bool
	stream   bool
}

var sigOpts signalOptions

func init() {
	rootCmd.AddCommand(signalCmd)

	registerMarketFlags(signalCmd, &sigOpts.market)
	f := signalCmd.Flags()
	f.StringVar(&sigOpts.listen, "listen", "", "Monitoring address (overrides config, \"off\" disables)")
	f.StringVar(&sigOpts.stateDir, "state-dir", "", "State and journal directory (overrides config)")
	f.IntVar(&sigOpts.window, "window", 200, "Closed candles evaluated per tick")
	f.DurationVar(&sigOpts.settle, "settle", 5*time.Second, "Delay after each candle close before polling")
	f.BoolVar(&sigOpts.once, "once", false, "Evaluate the latest closed candle once and exit")
	f.BoolVar(&sigOpts.stream, "stream", false, "Trigger ticks from the websocket kline stream (overrides config)")
}

func runSignal(cmd *cobra.Command, args []string) error {
	if err := common.NewFlagValidator().
		ValidateInt("window", sigOpts.window, 1, bybit.MaxKlineLimit).
		GetError(); err != nil {
		return err
	}

	cfg, err := loadCommandConfig(cmd, sigOpts.market)
	if err != nil {
		return err
	}
	if sigOpts.listen != "" {
		cfg.Monitoring.ListenAddr = sigOpts.listen
	}
	if sigOpts.stateDir != "" {
		cfg.Monitoring.StateDir = sigOpts.stateDir
	}
	if cmd.Flags().Changed("stream") {
		cfg.Monitoring.Stream = sigOpts.stream
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	client := newBybitClient(cfg, log)
	interval := bybit.KlineInterval(cfg.Backtest.Interval)
	health := monitoring.NewHealthChecker(2*interval.Duration() + time.Minute)

	opts := bot.Options{
		Market:      client,
		Constraints: bybit.NewInstrumentManager(client),
		Persistence: state.NewStatePersistence(log, cfg.Monitoring.StateDir, cfg.Backtest.Symbol, cfg.Backtest.Interval),
		Health:      health,
		Logger:      log,
		Out:         cmd.OutOrStdout(),
		Window:      sigOpts.window,
		Settle:      sigOpts.settle,
	}
	if hasCredentials(cfg) {
		opts.Balance = client
	} else {
		log.Info("no API credentials, using paper equity %.2f", cfg.Backtest.InitialCapital)
	}

	if cfg.Monitoring.Stream && !sigOpts.once {
		opts.Stream = bybit.NewKlineStream(cfg.Exchange.Category, cfg.Exchange.Testnet, log)
	}
	if cfg.Notify.Enabled() {
		opts.Notifier = notifications.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		log.Info("telegram notifications enabled for chat %s", cfg.Notify.TelegramChatID)
	}

	signalBot, err := bot.NewSignalBot(cfg, opts)
	if err != nil {
		return err
	}
	if err := signalBot.Start(); err != nil {
		return err
	}
	defer func() {
		if err := signalBot.Stop(); err != nil {
			log.LogError("stop signal bot", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sigOpts.once {
		return signalBot.Tick(ctx)
	}

	if addr := cfg.Monitoring.ListenAddr; addr != "" && addr != "off" {
		server := monitoring.NewServer(addr, monitoring.NewRouter(health, signalBot), log)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.LogError("monitoring server shutdown", err)
			}
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "monitoring on %s (/metrics, /health, /state)\n", addr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "signal loop running on %s, logs in %s\n", client, log.GetLogPath())
	return signalBot.Run(ctx)
}
