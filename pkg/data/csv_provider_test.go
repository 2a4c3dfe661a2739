package data

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

const sampleCSV = `timestamp,open,high,low,close,volume
2024-01-01 08:00:00,101,103,100,102,20
2024-01-01 00:00:00,100,102,99,101,10
2024-01-01T04:00:00Z,101,102,100,101.5,15
1704110400000,102,104,101,103,30
2024-01-01 08:00:00,999,999,999,999,1
not-a-date,1,1,1,1,1
2024-01-01 16:00:00,abc,1,1,1,1
2024-01-01 20:00:00,100,99,98,100,1
2024-01-02 00:00:00,1,2
`

func TestCSVProvider_Read(t *testing.T) {
	data, err := NewCSVProvider(nil).Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, data, 4)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range data {
		assert.Equal(t, base.Add(time.Duration(i)*4*time.Hour), c.Timestamp)
	}
	// the first of the duplicated 08:00 rows wins
	assert.Equal(t, 102.0, data[2].Close)
	assert.Equal(t, 103.0, data[3].Close)
}

func TestCSVProvider_RejectsEmpty(t *testing.T) {
	p := NewCSVProvider(nil)

	_, err := p.Read(strings.NewReader(""))
	assert.Error(t, err)

	_, err = p.Read(strings.NewReader("timestamp,open,high,low,close,volume\nbad,1,1,1,1,1\n"))
	assert.ErrorContains(t, err, "no valid candles")

	_, err = p.LoadData(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	for _, in := range []string{"2024-02-03 04:05:06", "2024-02-03T04:05:06Z", "2024-02-03T06:05:06+02:00", "1706933106000"} {
		got, err := ParseTimestamp(in, DefaultCSVFormat.DateFormat)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}
	_, err := ParseTimestamp("yesterday", DefaultCSVFormat.DateFormat)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	series := []types.OHLCV{
		{Timestamp: base, Open: 10, High: 11, Low: 9.5, Close: 10.5, Volume: 1.25},
		{Timestamp: base.Add(time.Hour), Open: 10.5, High: 12, Low: 10, Close: 11.75, Volume: 3},
	}
	path := filepath.Join(t.TempDir(), "nested", "series.csv")
	require.NoError(t, SaveData(path, series))

	loaded, err := NewCSVProvider(nil).LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, series, loaded)
}

func TestWriteCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "timestamp,open,high,low,close,volume\n", buf.String())
}

func TestValidateData(t *testing.T) {
	p := NewCSVProvider(nil)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	good := types.OHLCV{Timestamp: base, Open: 1, High: 2, Low: 1, Close: 2, Volume: 1}

	assert.Error(t, p.ValidateData(nil))
	assert.NoError(t, p.ValidateData([]types.OHLCV{good}))

	bad := good
	bad.High = 0.5
	assert.Error(t, p.ValidateData([]types.OHLCV{bad}))
	assert.Error(t, p.ValidateData([]types.OHLCV{good, good}))
}

func TestCachedProvider_LoadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	cp := NewCachedProvider(NewCSVProvider(nil), nil)
	first, err := cp.LoadData(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	second, err := cp.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cp.GetCacheSize())

	second[0].Close = -1
	third, _ := cp.LoadData(path)
	assert.Equal(t, first[0].Close, third[0].Close)
}

func TestDataManager_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))
	dm := NewDataManager(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	all, err := dm.Load(path, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	part, err := dm.Load(path, base.Add(4*time.Hour), base.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Len(t, part, 2)

	_, err = dm.Load(path, base.Add(48*time.Hour), time.Time{})
	assert.Error(t, err)
}
