package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Output file names inside a result directory
const (
	EquityFile  = "equity_curve.csv"
	TradesFile  = "trades.csv"
	SummaryFile = "summary.json"
	ExcelFile   = "report.xlsx"
)

// DefaultOutputDir returns results/<SYMBOL>_<interval>
func DefaultOutputDir(symbol, interval string) string {
	return OutputDir("results", symbol, interval)
}

// OutputDir returns <base>/<SYMBOL>_<interval>
func OutputDir(base, symbol, interval string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	i := strings.ToLower(strings.TrimSpace(interval))
	if s == "" {
		s = "UNKNOWN"
	}
	if i == "" {
		i = "unknown"
	}
	return filepath.Join(base, fmt.Sprintf("%s_%s", s, i))
}

// ensureParentDir creates the directory holding path
func ensureParentDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
