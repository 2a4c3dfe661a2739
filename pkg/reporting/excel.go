package reporting

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/trend-breakout-bot/internal/backtest"
)

const (
	summarySheet = "Summary"
	tradesSheet  = "Trades"
	equitySheet  = "Equity"
)

var cellBorder = []excelize.Border{
	{Type: "left", Color: "E0E0E0", Style: 1},
	{Type: "right", Color: "E0E0E0", Style: 1},
	{Type: "bottom", Color: "E0E0E0", Style: 1},
}

// WriteXLSX writes the Summary, Trades and Equity sheets
func WriteXLSX(results *backtest.BacktestResults, path string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := writeSummarySheet(fx, results, styles); err != nil {
		return err
	}
	if err := writeTradesSheet(fx, results, styles); err != nil {
		return err
	}
	if err := writeEquitySheet(fx, results, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var (
		styles ExcelStyles
		err    error
	)

	// white on dark slate
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	rightAligned := &excelize.Alignment{Horizontal: "right"}
	defs := []struct {
		target *int
		style  *excelize.Style
	}{
		{&styles.CurrencyStyle, &excelize.Style{NumFmt: 7, Alignment: rightAligned, Border: cellBorder}},
		{&styles.PercentStyle, &excelize.Style{NumFmt: 10, Alignment: rightAligned, Border: cellBorder}},
		{&styles.NumberStyle, &excelize.Style{CustomNumFmt: strPtr("0.000000"), Alignment: rightAligned, Border: cellBorder}},
		{&styles.DateStyle, &excelize.Style{CustomNumFmt: strPtr("yyyy-mm-dd hh:mm"), Border: cellBorder}},
		{&styles.ProfitStyle, &excelize.Style{NumFmt: 7, Font: &excelize.Font{Color: "008000"}, Alignment: rightAligned, Border: cellBorder}},
		{&styles.LossStyle, &excelize.Style{NumFmt: 7, Font: &excelize.Font{Color: "FF0000"}, Alignment: rightAligned, Border: cellBorder}},
		{&styles.EntryStyle, &excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{"EAF1FB"}, Pattern: 1}, Border: cellBorder}},
		{&styles.LabelStyle, &excelize.Style{Font: &excelize.Font{Bold: true}, Border: cellBorder}},
	}
	for _, d := range defs {
		if *d.target, err = fx.NewStyle(d.style); err != nil {
			return styles, err
		}
	}
	return styles, nil
}

func strPtr(s string) *string { return &s }

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, style)
	}
}

func setCell(fx *excelize.File, sheet string, col, row int, value interface{}, style int) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	fx.SetCellValue(sheet, cell, value)
	if style != 0 {
		fx.SetCellStyle(sheet, cell, cell, style)
	}
}

// finite keeps +Inf ratios out of numeric cells
func finite(r backtest.Ratio) interface{} {
	if math.IsInf(float64(r), 0) || math.IsNaN(float64(r)) {
		return r.String()
	}
	return float64(r)
}

func writeSummarySheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	s := results.Summary
	fx.SetColWidth(summarySheet, "A", "A", 22)
	fx.SetColWidth(summarySheet, "B", "D", 16)

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Symbol", results.Symbol, 0},
		{"Interval", results.Interval, 0},
		{"Run ID", results.RunID, 0},
		{"Start", results.StartTime, styles.DateStyle},
		{"End", results.EndTime, styles.DateStyle},
		{"Candles", results.Candles, 0},
		{"Initial Capital", s.InitialCapital, styles.CurrencyStyle},
		{"Final Capital", s.FinalCapital, styles.CurrencyStyle},
		{"Net PnL", s.NetPnL, pnlStyle(s.NetPnL, styles)},
		{"Total Return", s.TotalReturn, styles.PercentStyle},
		{"Max Drawdown", s.MaxDrawdown, styles.PercentStyle},
		{"Sharpe Ratio", s.SharpeRatio, 0},
		{"Sortino Ratio", finite(s.SortinoRatio), 0},
		{"Profit Factor", finite(s.ProfitFactor), 0},
		{"Entries", s.TotalEntries, 0},
		{"Exits", s.TotalExits, 0},
		{"Win Rate", s.WinRate, styles.PercentStyle},
		{"Long Share", s.LongShare, styles.PercentStyle},
	}
	for i, r := range rows {
		setCell(fx, summarySheet, 1, i+1, r.label, styles.LabelStyle)
		setCell(fx, summarySheet, 2, i+1, r.value, r.style)
	}

	// direction breakdown beside the headline numbers
	row := len(rows) + 2
	for i, h := range []string{"Side", "Entries", "Exits", "Win Rate", "Net PnL", "Profit Factor"} {
		setCell(fx, summarySheet, i+1, row, h, styles.HeaderStyle)
	}
	for _, side := range []struct {
		name  string
		stats backtest.DirectionStats
	}{{"long", s.Long}, {"short", s.Short}} {
		row++
		setCell(fx, summarySheet, 1, row, side.name, styles.LabelStyle)
		setCell(fx, summarySheet, 2, row, side.stats.Entries, 0)
		setCell(fx, summarySheet, 3, row, side.stats.Exits, 0)
		setCell(fx, summarySheet, 4, row, side.stats.WinRate, styles.PercentStyle)
		setCell(fx, summarySheet, 5, row, side.stats.NetPnL, pnlStyle(side.stats.NetPnL, styles))
		setCell(fx, summarySheet, 6, row, finite(side.stats.ProfitFactor), 0)
	}

	row += 2
	setCell(fx, summarySheet, 1, row, "Exit Reason", styles.HeaderStyle)
	setCell(fx, summarySheet, 2, row, "Count", styles.HeaderStyle)
	for _, reason := range sortedReasons(s) {
		row++
		setCell(fx, summarySheet, 1, row, string(reason), 0)
		setCell(fx, summarySheet, 2, row, s.ExitReasons[reason], 0)
	}
	return nil
}

func pnlStyle(v float64, styles ExcelStyles) int {
	if v < 0 {
		return styles.LossStyle
	}
	return styles.ProfitStyle
}

func writeTradesSheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	fx.SetColWidth(tradesSheet, "A", "A", 18)
	fx.SetColWidth(tradesSheet, "B", "K", 14)
	writeHeader(fx, tradesSheet, []string{
		"Timestamp", "Type", "Direction", "Price", "Size", "Stop Loss", "Secondary Stop", "Entry Price", "PnL", "Reason", "Final",
	}, styles.HeaderStyle)

	for i, tr := range results.Trades {
		row := i + 2
		switch t := tr.(type) {
		case *backtest.EntryTrade:
			setCell(fx, tradesSheet, 1, row, t.Timestamp, styles.DateStyle)
			setCell(fx, tradesSheet, 2, row, "entry", styles.EntryStyle)
			setCell(fx, tradesSheet, 3, row, t.Direction.String(), styles.EntryStyle)
			setCell(fx, tradesSheet, 4, row, t.Price, styles.CurrencyStyle)
			setCell(fx, tradesSheet, 5, row, t.Size, styles.NumberStyle)
			setCell(fx, tradesSheet, 6, row, t.StopLoss, styles.CurrencyStyle)
			setCell(fx, tradesSheet, 7, row, t.SecondaryStop, styles.CurrencyStyle)
		case *backtest.ExitTrade:
			setCell(fx, tradesSheet, 1, row, t.Timestamp, styles.DateStyle)
			setCell(fx, tradesSheet, 2, row, "exit", 0)
			setCell(fx, tradesSheet, 3, row, t.Direction.String(), 0)
			setCell(fx, tradesSheet, 4, row, t.Price, styles.CurrencyStyle)
			setCell(fx, tradesSheet, 5, row, t.Size, styles.NumberStyle)
			setCell(fx, tradesSheet, 8, row, t.EntryPrice, styles.CurrencyStyle)
			setCell(fx, tradesSheet, 9, row, t.PnL, pnlStyle(t.PnL, styles))
			setCell(fx, tradesSheet, 10, row, string(t.Reason), 0)
			setCell(fx, tradesSheet, 11, row, t.Final, 0)
		default:
			return fmt.Errorf("unknown trade record %T", tr)
		}
	}
	return nil
}

func writeEquitySheet(fx *excelize.File, results *backtest.BacktestResults, styles ExcelStyles) error {
	fx.SetColWidth(equitySheet, "A", "A", 18)
	fx.SetColWidth(equitySheet, "B", "C", 14)
	writeHeader(fx, equitySheet, []string{"Timestamp", "Equity", "Drawdown"}, styles.HeaderStyle)

	for i, p := range results.Equity {
		row := i + 2
		setCell(fx, equitySheet, 1, row, p.Timestamp, styles.DateStyle)
		setCell(fx, equitySheet, 2, row, p.Equity, styles.CurrencyStyle)
		setCell(fx, equitySheet, 3, row, p.Drawdown, styles.PercentStyle)
	}
	return nil
}
