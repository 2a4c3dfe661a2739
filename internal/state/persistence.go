package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

// SnapshotVersion is bumped when the snapshot layout changes incompatibly
const SnapshotVersion = "1"

// Snapshot is the recoverable state of one engine
type Snapshot struct {
	Version  string               `json:"version"`
	Symbol   string               `json:"symbol"`
	Interval string               `json:"interval"`
	SavedAt  time.Time            `json:"saved_at"`
	Engine   strategy.EngineState `json:"engine"`
}

// StatePersistence saves engine snapshots and appends committed decisions to a journal
type StatePersistence struct {
	logger   *logger.Logger
	stateDir string
	symbol   string
	interval string

	mu       sync.Mutex
	lastSave time.Time
	journal  *os.File
	now      func() time.Time
}

// NewStatePersistence creates a persistence layer rooted at stateDir
func NewStatePersistence(log *logger.Logger, stateDir, symbol, interval string) *StatePersistence {
	if log == nil {
		log = logger.NewNop()
	}
	return &StatePersistence{
		logger:   log,
		stateDir: stateDir,
		symbol:   symbol,
		interval: interval,
		now:      time.Now,
	}
}

// Initialize creates the state directory and opens the decision journal
func (sp *StatePersistence) Initialize() error {
	if err := os.MkdirAll(sp.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	f, err := os.OpenFile(sp.journalPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open decision journal: %w", err)
	}
	sp.mu.Lock()
	sp.journal = f
	sp.mu.Unlock()

	sp.logger.Info("State persistence initialized: %s", sp.stateDir)
	return nil
}

// StatePath is the snapshot file of this symbol
func (sp *StatePersistence) StatePath() string {
	return filepath.Join(sp.stateDir, fmt.Sprintf("%s_state.json", sp.symbol))
}

func (sp *StatePersistence) backupPath() string {
	return filepath.Join(sp.stateDir, fmt.Sprintf("%s_state_backup.json", sp.symbol))
}

func (sp *StatePersistence) journalPath() string {
	return filepath.Join(sp.stateDir, fmt.Sprintf("%s_decisions.jsonl", sp.symbol))
}

// Load reads the snapshot. A missing file returns (nil, nil) and the caller starts fresh.
// A snapshot for another symbol or interval is ignored with a warning.
func (sp *StatePersistence) Load() (*Snapshot, error) {
	data, err := os.ReadFile(sp.StatePath())
	if os.IsNotExist(err) {
		sp.logger.Info("No existing state file found, starting with clean state")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if err := sp.validate(&snap); err != nil {
		sp.logger.Warning("Loaded state ignored: %v", err)
		return nil, nil
	}

	sp.logger.Info("State loaded from %s (saved %s)", sp.StatePath(), snap.SavedAt.Format(time.RFC3339))
	return &snap, nil
}

func (sp *StatePersistence) validate(snap *Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported state version %q", snap.Version)
	}
	if snap.Symbol != sp.symbol {
		return fmt.Errorf("state symbol mismatch: expected %s, got %s", sp.symbol, snap.Symbol)
	}
	if sp.interval != "" && snap.Interval != sp.interval {
		return fmt.Errorf("state interval mismatch: expected %s, got %s", sp.interval, snap.Interval)
	}
	return nil
}

// Save writes the engine state atomically, keeping the previous file as a backup
func (sp *StatePersistence) Save(es strategy.EngineState) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	snap := Snapshot{
		Version:  SnapshotVersion,
		Symbol:   sp.symbol,
		Interval: sp.interval,
		SavedAt:  sp.now().UTC(),
		Engine:   es,
	}

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(sp.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	stateFile := sp.StatePath()
	if prev, err := os.ReadFile(stateFile); err == nil {
		if err := os.WriteFile(sp.backupPath(), prev, 0644); err != nil {
			sp.logger.Warning("Failed to create state backup: %v", err)
		}
	}

	tempFile := stateFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempFile, stateFile); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}

	sp.lastSave = snap.SavedAt
	return nil
}

// LastSave is zero until the first successful Save
func (sp *StatePersistence) LastSave() time.Time {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.lastSave
}

// RecordDecision appends one committed decision to the journal as a JSON line
func (sp *StatePersistence) RecordDecision(d strategy.Decision) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.journal == nil {
		return fmt.Errorf("decision journal is not open")
	}
	line, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}
	if _, err := sp.journal.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

// Close closes the journal
func (sp *StatePersistence) Close() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.journal == nil {
		return nil
	}
	err := sp.journal.Close()
	sp.journal = nil
	return err
}
