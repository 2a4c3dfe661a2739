package reporting

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/backtest"
	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
)

// SummaryDocument is the content of summary.json
type SummaryDocument struct {
	RunID        string             `json:"run_id"`
	Symbol       string             `json:"symbol"`
	Interval     string             `json:"interval"`
	StartTime    time.Time          `json:"start_time"`
	EndTime      time.Time          `json:"end_time"`
	Candles      int                `json:"candles"`
	Duration     string             `json:"duration"`
	Summary      backtest.Summary   `json:"summary"`
	OpenPosition *position.Position `json:"open_position,omitempty"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// NewSummaryDocument extracts the run metadata and statistics of results
func NewSummaryDocument(results *backtest.BacktestResults) SummaryDocument {
	doc := SummaryDocument{
		RunID:       results.RunID,
		Symbol:      results.Symbol,
		Interval:    results.Interval,
		StartTime:   results.StartTime,
		EndTime:     results.EndTime,
		Candles:     results.Candles,
		Duration:    results.Duration.String(),
		Summary:     results.Summary,
		GeneratedAt: time.Now().UTC(),
	}
	if !results.OpenPosition.IsFlat() {
		p := results.OpenPosition
		doc.OpenPosition = &p
	}
	return doc
}

// WriteSummaryJSON writes summary.json
func WriteSummaryJSON(results *backtest.BacktestResults, path string) error {
	return WriteJSON(NewSummaryDocument(results), path)
}

// WriteJSON writes v indented, creating parent directories
func WriteJSON(v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
