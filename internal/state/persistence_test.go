package state

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

func sampleState() strategy.EngineState {
	entry := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return strategy.EngineState{
		Position: position.Position{
			Direction:     regime.DirectionUp,
			EntryPrice:    64000,
			RemainingSize: 0.05,
			InitialSize:   0.1,
			PrimaryStop:   63000,
			SecondaryStop: 62500,
			ExitStage:     1,
			EntryTime:     entry,
		},
		LastEntry: entry,
		LastSeen:  entry.Add(8 * time.Hour),
		Ticks:     42,
		Controller: strategy.ControllerState{
			LastTick:   40,
			HasLast:    true,
			Volatility: 0.021,
			Bucket:     strategy.VolatilityMedium,
			Parameters: strategy.StrategyParameters{SidewaysLookback: 20, SidewaysThreshold: 0.05, BreakoutLookback: 5, RiskPercentage: 0.01},
		},
	}
}

func TestLoad_MissingFileStartsFresh(t *testing.T) {
	sp := NewStatePersistence(nil, t.TempDir(), "BTCUSDT", "240")
	snap, err := sp.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	sp := NewStatePersistence(nil, dir, "BTCUSDT", "240")
	saved := time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC)
	sp.now = func() time.Time { return saved }

	require.NoError(t, sp.Save(sampleState()))
	assert.Equal(t, saved, sp.LastSave())

	snap, err := NewStatePersistence(nil, dir, "BTCUSDT", "240").Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, sampleState(), snap.Engine)
	assert.Equal(t, saved, snap.SavedAt)

	_, err = os.Stat(sp.StatePath() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSave_KeepsBackup(t *testing.T) {
	dir := t.TempDir()
	sp := NewStatePersistence(nil, dir, "ETHUSDT", "60")

	first := sampleState()
	require.NoError(t, sp.Save(first))
	second := first
	second.Ticks = 43
	require.NoError(t, sp.Save(second))

	raw, err := os.ReadFile(sp.backupPath())
	require.NoError(t, err)
	var backup Snapshot
	require.NoError(t, json.Unmarshal(raw, &backup))
	assert.Equal(t, 42, backup.Engine.Ticks)

	snap, err := sp.Load()
	require.NoError(t, err)
	assert.Equal(t, 43, snap.Engine.Ticks)
}

func TestLoad_IgnoresForeignSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewStatePersistence(nil, dir, "BTCUSDT", "60").Save(sampleState()))

	snap, err := NewStatePersistence(nil, dir, "BTCUSDT", "240").Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	sp := NewStatePersistence(nil, dir, "BTCUSDT", "240")
	require.NoError(t, os.WriteFile(sp.StatePath(), []byte("{not json"), 0644))

	_, err := sp.Load()
	assert.Error(t, err)
}

func TestRecordDecision_AppendsJournal(t *testing.T) {
	dir := t.TempDir()
	sp := NewStatePersistence(nil, dir, "BTCUSDT", "240")
	assert.Error(t, sp.RecordDecision(strategy.Decision{}))

	require.NoError(t, sp.Initialize())
	require.NoError(t, sp.RecordDecision(strategy.Decision{Action: strategy.ActionEnter, Direction: regime.DirectionUp, Price: 100}))
	require.NoError(t, sp.RecordDecision(strategy.Decision{Action: strategy.ActionExit, Direction: regime.DirectionUp, Price: 98, Reason: position.ReasonStopLoss}))
	require.NoError(t, sp.Close())
	require.NoError(t, sp.Close())

	f, err := os.Open(sp.journalPath())
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "ENTER", lines[0]["action"])
	assert.Equal(t, "stop_loss", lines[1]["reason"])
}
