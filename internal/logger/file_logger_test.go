package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesCategorizedJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "BTCUSDT", "240")

	l.Trade("entered %s at %.2f", "long", 101.5)
	l.Warning("signal dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "TRADE", entry["category"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "entered long at 101.50", entry["message"])
	assert.Equal(t, "BTCUSDT", entry["symbol"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "warn", entry["level"])
}

func TestLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "", "")

	l.LogError("fetch klines", errors.New("boom"))
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"message":"fetch klines"`)
}

func TestLogger_NilAndNopAreSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ignored")
		l.LogError("ignored", errors.New("x"))
		_ = l.Close()
	})

	nop := NewNop()
	assert.NotPanics(t, func() { nop.Error("ignored %d", 1) })
}

func TestNewLoggerWithOptions_CreatesFile(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLoggerWithOptions("ETHUSDT", "60", Options{Dir: dir})
	require.NoError(t, err)
	l.Status("equity %.2f", 1000.0)
	path := l.GetLogPath()
	require.NoError(t, l.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "trading session started")
	assert.Contains(t, string(content), "equity 1000.00")
	assert.Contains(t, string(content), "trading session ended")
}
