package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// CSVProvider implements DataProvider for CSV files
type CSVProvider struct {
	format CSVColumnMapping
	log    *logger.Logger
}

// NewCSVProvider creates a new CSV data provider with default format
func NewCSVProvider(log *logger.Logger) *CSVProvider {
	return NewCSVProviderWithFormat(DefaultCSVFormat, log)
}

// NewCSVProviderWithFormat creates a new CSV data provider with custom format
func NewCSVProviderWithFormat(format CSVColumnMapping, log *logger.Logger) *CSVProvider {
	if log == nil {
		log = logger.NewNop()
	}
	return &CSVProvider{format: format, log: log}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData reads a candle file. Malformed rows are skipped, the result is sorted
// and deduplicated by timestamp, and a file without a usable row is an error.
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	data, err := p.Read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(source), err)
	}
	return data, nil
}

// Read parses CSV candles from r, skipping the header row
func (p *CSVProvider) Read(r io.Reader) ([]types.OHLCV, error) {
	format := p.format
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no data rows")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var (
		data    []types.OHLCV
		skipped int
	)
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			p.log.Warning("CSV line %d unreadable, skipping: %v", lineNum, err)
			skipped++
			continue
		}

		candle, err := parseRecord(record, format)
		if err != nil {
			p.log.Warning("CSV line %d skipped: %v", lineNum, err)
			skipped++
			continue
		}
		data = append(data, candle)
	}

	data = Normalize(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no valid candles (%d rows skipped)", skipped)
	}
	if skipped > 0 {
		p.log.Info("Loaded %d candles, skipped %d malformed rows", len(data), skipped)
	}
	return data, nil
}

func parseRecord(record []string, format CSVColumnMapping) (types.OHLCV, error) {
	if len(record) < format.MinColumns {
		return types.OHLCV{}, fmt.Errorf("expected %d columns, got %d", format.MinColumns, len(record))
	}

	ts, err := ParseTimestamp(record[format.TimestampCol], format.DateFormat)
	if err != nil {
		return types.OHLCV{}, err
	}

	var values [5]float64
	cols := [5]int{format.OpenCol, format.HighCol, format.LowCol, format.CloseCol, format.VolumeCol}
	for i, col := range cols {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid number %q", record[col])
		}
		values[i] = v
	}

	candle := types.OHLCV{
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}
	if !candle.Valid() {
		return types.OHLCV{}, fmt.Errorf("inconsistent prices o=%g h=%g l=%g c=%g", candle.Open, candle.High, candle.Low, candle.Close)
	}
	return candle, nil
}

// ParseTimestamp accepts layout, RFC3339 or unix milliseconds. Times without a zone are UTC.
func ParseTimestamp(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if layout != "" {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return fmt.Errorf("no data provided")
	}
	for i, candle := range data {
		if !candle.Valid() {
			return fmt.Errorf("invalid price data at index %d", i)
		}
	}
	return ValidateTimeSequence(data)
}

// SaveData writes candles in the default format, creating parent directories
func SaveData(path string, data []types.OHLCV) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}
	defer file.Close()

	if err := WriteCSV(file, data); err != nil {
		return err
	}
	return file.Close()
}

// WriteCSV writes a header row followed by one row per candle
func WriteCSV(w io.Writer, data []types.OHLCV) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, c := range data {
		row := []string{
			c.Timestamp.UTC().Format(DefaultCSVFormat.DateFormat),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
