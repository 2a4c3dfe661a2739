package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

var quoteCoins = []string{"USDT", "USDC", "BTC", "ETH"}

// quoteCoin returns the settlement coin of a symbol such as BTCUSDT
func quoteCoin(symbol string) string {
	symbol = strings.ToUpper(symbol)
	for _, q := range quoteCoins {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return q
		}
	}
	return "USDT"
}

// timeUntilNextCandle returns the wait until the next UTC-aligned boundary of interval.
// Weekly candles open on Monday.
func timeUntilNextCandle(now time.Time, interval time.Duration) time.Duration {
	now = now.UTC()
	if interval <= 0 {
		return time.Minute
	}

	var next time.Time
	if interval == 7*24*time.Hour {
		day := now.Truncate(24 * time.Hour)
		daysToMonday := (8 - int(day.Weekday())) % 7
		if daysToMonday == 0 {
			daysToMonday = 7
		}
		next = day.AddDate(0, 0, daysToMonday)
	} else {
		next = now.Truncate(interval).Add(interval)
	}
	return next.Sub(now)
}

func describePosition(p position.Position) string {
	if p.IsFlat() {
		return "flat"
	}
	return fmt.Sprintf("%s %.8f @ %.4f (stop %.4f, stage %d)",
		p.Direction, p.RemainingSize, p.EntryPrice, p.PrimaryStop, p.ExitStage)
}

// printStartupInfo prints initial startup information
func (b *SignalBot) printStartupInfo() {
	t := table.NewWriter()
	t.SetOutputMirror(b.out)
	t.SetTitle("SIGNAL BOT")
	t.SetStyle(table.StyleRounded)

	sc := b.engine.Config()
	t.AppendRows([]table.Row{
		{"Symbol", b.symbol},
		{"Interval", b.interval},
		{"Category", b.category},
		{"Mode", sc.Entry.Mode},
		{"Base Risk", fmt.Sprintf("%.2f%%", sc.BaseRisk*100)},
		{"Leverage", fmt.Sprintf("%.1fx", sc.Leverage)},
		{"Window", fmt.Sprintf("%d candles", b.window)},
		{"Equity", b.equitySource()},
		{"Position", describePosition(b.engine.Position())},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 12, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, Align: text.AlignLeft},
	})
	t.Render()
}

func (b *SignalBot) equitySource() string {
	if b.balance != nil {
		return "exchange balance (" + quoteCoin(b.symbol) + ")"
	}
	return fmt.Sprintf("paper %.2f", b.equity)
}

// logStatus prints one row per evaluated candle. Callers hold b.mu.
func (b *SignalBot) logStatus(d strategy.Decision) {
	t := table.NewWriter()
	t.SetOutputMirror(b.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Candle", "Close", "Action", "Detail", "Equity", "Position"})

	detail := string(d.Rejected)
	switch d.Action {
	case strategy.ActionEnter:
		detail = fmt.Sprintf("%s size=%.8f stop=%.4f", d.Direction, d.Size, d.StopLoss)
		b.logger.Trade("signal ENTER %s size=%.8f price=%.4f", d.Direction, d.Size, d.Price)
	case strategy.ActionExit:
		detail = fmt.Sprintf("%s %.0f%%", d.Reason, d.Fraction*100)
		b.logger.Trade("signal EXIT %s fraction=%.2f price=%.4f", d.Reason, d.Fraction, d.Price)
	default:
		b.logger.Status("no action at %s: %s", d.Timestamp.Format(time.RFC3339), d.Rejected)
	}

	t.AppendRow(table.Row{
		d.Timestamp.UTC().Format("2006-01-02 15:04"),
		fmt.Sprintf("%.4f", d.Price),
		d.Action,
		detail,
		fmt.Sprintf("%.2f", b.equity),
		describePosition(b.engine.Position()),
	})
	t.Render()
}
