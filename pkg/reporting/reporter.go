package reporting

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/ducminhle1904/trend-breakout-bot/internal/backtest"
	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
)

// ReportingManager writes the outputs selected by its config
type ReportingManager struct {
	config  ReportingConfig
	console *ConsoleReporter
}

// NewReportingManager creates a new reporting manager; console output goes to out
func NewReportingManager(config ReportingConfig, out io.Writer) *ReportingManager {
	return &ReportingManager{
		config:  config,
		console: NewConsoleReporter(out),
	}
}

// Console exposes the table renderer for batch summaries
func (m *ReportingManager) Console() *ConsoleReporter {
	return m.console
}

// OutputDirFor resolves where files for results are written
func (m *ReportingManager) OutputDirFor(results *backtest.BacktestResults) string {
	base := m.config.OutputDirectory
	if base == "" {
		base = "results"
	}
	return OutputDir(base, results.Symbol, results.Interval)
}

// ReportResults prints and writes results, returning the written file paths
func (m *ReportingManager) ReportResults(results *backtest.BacktestResults) ([]string, error) {
	if results == nil {
		return nil, fmt.Errorf("no results to report")
	}

	if m.config.EnableConsole {
		m.console.OutputResults(results)
		m.console.OutputTrades(results, m.config.ShowTrades)
	}
	if !m.config.EnableFiles {
		return nil, nil
	}

	dir := m.OutputDirFor(results)
	var written []string
	write := func(name string, fn func(*backtest.BacktestResults, string) error) error {
		path := filepath.Join(dir, name)
		if err := fn(results, path); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if m.config.CSVEnabled {
		if err := write(EquityFile, WriteEquityCSV); err != nil {
			return written, err
		}
		if err := write(TradesFile, WriteTradesCSV); err != nil {
			return written, err
		}
	}
	if m.config.JSONEnabled {
		if err := write(SummaryFile, WriteSummaryJSON); err != nil {
			return written, err
		}
	}
	if m.config.ExcelEnabled {
		if err := write(ExcelFile, WriteXLSX); err != nil {
			return written, err
		}
	}
	return written, nil
}

// sortedReasons lists ladder reasons in priority order followed by any others alphabetically
func sortedReasons(s backtest.Summary) []position.ExitReason {
	var extra []position.ExitReason
	for reason := range s.ExitReasons {
		if !containsReason(position.AllExitReasons, reason) {
			extra = append(extra, reason)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(append([]position.ExitReason(nil), position.AllExitReasons...), extra...)
}
