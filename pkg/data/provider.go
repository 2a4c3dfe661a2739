package data

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// DataManager combines loading, caching and range filtering
type DataManager struct {
	provider DataProvider
}

// NewDataManager creates a data manager backed by a cached CSV provider
func NewDataManager(log *logger.Logger) *DataManager {
	return &DataManager{provider: NewCachedProvider(NewCSVProvider(log), log)}
}

// Load reads source and keeps candles in [from, to]. Zero bounds are open.
func (dm *DataManager) Load(source string, from, to time.Time) ([]types.OHLCV, error) {
	data, err := dm.provider.LoadData(source)
	if err != nil {
		return nil, err
	}
	data = FilterByDateRange(data, from, to)
	if len(data) == 0 {
		return nil, fmt.Errorf("no candles in %s between %s and %s", source, formatBound(from), formatBound(to))
	}
	if err := dm.provider.ValidateData(data); err != nil {
		return nil, err
	}
	return data, nil
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
