package reporting

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/ducminhle1904/trend-breakout-bot/internal/backtest"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteEquityCSV writes timestamp,equity,drawdown for every replayed candle
func WriteEquityCSV(results *backtest.BacktestResults, path string) error {
	rows := make([][]string, 0, len(results.Equity))
	for _, p := range results.Equity {
		rows = append(rows, []string{
			p.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			formatFloat(p.Equity),
			formatFloat(p.Drawdown),
		})
	}
	return writeCSV(path, []string{"timestamp", "equity", "drawdown"}, rows)
}

// WriteTradesCSV writes the ledger, entries and exits in one table
func WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	header := []string{"timestamp", "type", "direction", "price", "size", "stop_loss", "secondary_stop", "entry_price", "pnl", "reason", "final"}
	rows := make([][]string, 0, len(results.Trades))
	for _, tr := range results.Trades {
		switch t := tr.(type) {
		case *backtest.EntryTrade:
			rows = append(rows, []string{
				t.Timestamp.UTC().Format("2006-01-02 15:04:05"),
				string(backtest.KindEntry),
				t.Direction.String(),
				formatFloat(t.Price),
				formatFloat(t.Size),
				formatFloat(t.StopLoss),
				formatFloat(t.SecondaryStop),
				"", "", "", "",
			})
		case *backtest.ExitTrade:
			rows = append(rows, []string{
				t.Timestamp.UTC().Format("2006-01-02 15:04:05"),
				string(backtest.KindExit),
				t.Direction.String(),
				formatFloat(t.Price),
				formatFloat(t.Size),
				"", "",
				formatFloat(t.EntryPrice),
				formatFloat(t.PnL),
				string(t.Reason),
				strconv.FormatBool(t.Final),
			})
		}
	}
	return writeCSV(path, header, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
