package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/trend-breakout-bot/internal/backtest"
	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
)

const timeLayout = "2006-01-02 15:04"

// ConsoleReporter renders results as tables
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter writes to out, stdout when nil
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out}
}

func (r *ConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// OutputResults prints the summary, direction and exit reason tables
func (r *ConsoleReporter) OutputResults(results *backtest.BacktestResults) {
	s := results.Summary

	t := r.newTable(fmt.Sprintf("BACKTEST RESULTS %s %s", results.Symbol, results.Interval))
	t.AppendRows([]table.Row{
		{"Period", fmt.Sprintf("%s → %s", results.StartTime.Format(timeLayout), results.EndTime.Format(timeLayout))},
		{"Candles", results.Candles},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Initial Capital", fmt.Sprintf("$%.2f", s.InitialCapital)},
		{"Final Capital", fmt.Sprintf("$%.2f", s.FinalCapital)},
		{"Net PnL", fmt.Sprintf("$%.2f", s.NetPnL)},
		{"Total Return", fmt.Sprintf("%.2f%%", s.TotalReturn*100)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown*100)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", s.SharpeRatio)},
		{"Sortino Ratio", s.SortinoRatio.String()},
		{"Profit Factor", s.ProfitFactor.String()},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Entries", s.TotalEntries},
		{"Exits", s.TotalExits},
		{"Win Rate", fmt.Sprintf("%.1f%% (%d/%d)", s.WinRate*100, s.Wins, s.Wins+s.Losses)},
		{"Long Share", fmt.Sprintf("%.1f%%", s.LongShare*100)},
	})
	if !results.OpenPosition.IsFlat() {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Open Position", fmt.Sprintf("%s %.6f @ %.4f", results.OpenPosition.Direction,
			results.OpenPosition.RemainingSize, results.OpenPosition.EntryPrice)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 24, Align: text.AlignRight},
	})
	t.Render()

	r.outputDirections(s)
	r.outputExitReasons(s)
}

func (r *ConsoleReporter) outputDirections(s backtest.Summary) {
	t := r.newTable("BY DIRECTION")
	t.AppendHeader(table.Row{"Side", "Entries", "Exits", "Win Rate", "Gross Profit", "Gross Loss", "Net PnL", "Profit Factor"})
	for _, side := range []struct {
		name  string
		stats backtest.DirectionStats
	}{{"long", s.Long}, {"short", s.Short}} {
		st := side.stats
		t.AppendRow(table.Row{
			side.name, st.Entries, st.Exits,
			fmt.Sprintf("%.1f%%", st.WinRate*100),
			fmt.Sprintf("%.2f", st.GrossProfit),
			fmt.Sprintf("%.2f", st.GrossLoss),
			fmt.Sprintf("%.2f", st.NetPnL),
			st.ProfitFactor.String(),
		})
	}
	t.Render()
}

func (r *ConsoleReporter) outputExitReasons(s backtest.Summary) {
	t := r.newTable("EXIT REASONS")
	t.AppendHeader(table.Row{"Reason", "Count"})
	reasons := sortedReasons(s)
	for _, reason := range reasons {
		t.AppendRow(table.Row{string(reason), s.ExitReasons[reason]})
	}
	t.Render()
}

func containsReason(list []position.ExitReason, r position.ExitReason) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}

// OutputTrades prints the last limit ledger records
func (r *ConsoleReporter) OutputTrades(results *backtest.BacktestResults, limit int) {
	trades := results.Trades
	if limit <= 0 || len(trades) == 0 {
		return
	}
	if len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}

	t := r.newTable(fmt.Sprintf("TRADES (last %d of %d)", len(trades), len(results.Trades)))
	t.AppendHeader(table.Row{"Time", "Type", "Side", "Price", "Size", "Stop", "PnL", "Reason"})
	for _, tr := range trades {
		switch v := tr.(type) {
		case *backtest.EntryTrade:
			t.AppendRow(table.Row{v.Timestamp.Format(timeLayout), "entry", v.Direction.String(),
				fmt.Sprintf("%.4f", v.Price), fmt.Sprintf("%.6f", v.Size), fmt.Sprintf("%.4f", v.StopLoss), "", ""})
		case *backtest.ExitTrade:
			t.AppendRow(table.Row{v.Timestamp.Format(timeLayout), "exit", v.Direction.String(),
				fmt.Sprintf("%.4f", v.Price), fmt.Sprintf("%.6f", v.Size), "", fmt.Sprintf("%.2f", v.PnL), string(v.Reason)})
		}
	}
	t.Render()
}

// OutputBatch prints one row per batch job
func (r *ConsoleReporter) OutputBatch(results []backtest.BacktestResult) {
	t := r.newTable("BATCH RESULTS")
	t.AppendHeader(table.Row{"Job", "Return", "Max DD", "Sharpe", "Profit Factor", "Exits", "Win Rate", "Time"})
	for _, res := range results {
		if res.Error != nil || res.Results == nil {
			t.AppendRow(table.Row{res.Name, "error: " + errString(res.Error), "", "", "", "", "", ""})
			continue
		}
		s := res.Results.Summary
		t.AppendRow(table.Row{
			res.Name,
			fmt.Sprintf("%.2f%%", s.TotalReturn*100),
			fmt.Sprintf("%.2f%%", s.MaxDrawdown*100),
			fmt.Sprintf("%.2f", s.SharpeRatio),
			s.ProfitFactor.String(),
			s.TotalExits,
			fmt.Sprintf("%.1f%%", s.WinRate*100),
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	t.Render()
}

func errString(err error) string {
	if err == nil {
		return "no result"
	}
	return err.Error()
}
