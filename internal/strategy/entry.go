package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/indicators"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// Mode selects which sides may be traded
type Mode string

const (
	ModeLongOnly  Mode = "long_only"
	ModeLongShort Mode = "long_short"
)

// Allows reports whether the mode trades in direction d
func (m Mode) Allows(d regime.Direction) bool {
	switch d {
	case regime.DirectionUp:
		return true
	case regime.DirectionDown:
		return m == ModeLongShort
	default:
		return false
	}
}

func (m Mode) Validate() error {
	if m != ModeLongOnly && m != ModeLongShort {
		return fmt.Errorf("mode must be %q or %q, got: %q", ModeLongOnly, ModeLongShort, m)
	}
	return nil
}

// EntryConfig holds the entry filters
type EntryConfig struct {
	Mode                 Mode    `json:"mode" yaml:"mode"`
	VolumeSurge          float64 `json:"volume_surge" yaml:"volume_surge"`
	RequireConsolidation bool    `json:"require_consolidation" yaml:"require_consolidation"`
}

// DefaultEntryConfig trades long only and wants a 20% volume surge
func DefaultEntryConfig() EntryConfig {
	return EntryConfig{Mode: ModeLongOnly, VolumeSurge: 1.2}
}

// RejectReason explains why no entry was produced
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectInsufficientData RejectReason = "insufficient_data"
	RejectNoBreakout       RejectReason = "no_breakout"
	RejectDirection        RejectReason = "direction_not_allowed"
	RejectMisaligned       RejectReason = "misaligned"
	RejectNoAdjustment     RejectReason = "no_adjustment"
	RejectNoConsolidation  RejectReason = "no_consolidation"
	RejectWeakCandle       RejectReason = "weak_candle"
	RejectLowVolume        RejectReason = "low_volume"
	RejectCooldown         RejectReason = "cooldown"
	RejectSizing           RejectReason = "sizing"
	RejectBelowMinNotional RejectReason = "below_min_notional"
)

// EntrySignal is an accepted entry before sizing
type EntrySignal struct {
	Direction     regime.Direction `json:"direction"`
	Price         float64          `json:"price"`
	PrimaryStop   float64          `json:"primary_stop"`
	SecondaryStop float64          `json:"secondary_stop"`
	Timestamp     time.Time        `json:"timestamp"`
	Signal        regime.Signal    `json:"signal"`
}

// EvaluateEntry checks the last candle of window for a breakout entry.
// set must be the indicator snapshot of that candle.
func EvaluateEntry(window []types.OHLCV, set indicators.Set, params StrategyParameters, cfg EntryConfig) (EntrySignal, RejectReason) {
	lookback := params.BreakoutLookback
	if lookback < 1 || len(window) < lookback+2 {
		return EntrySignal{}, RejectInsufficientData
	}

	sig := regime.Classify(window, set, params.Regime())
	switch {
	case sig.Breakout == regime.DirectionNone:
		return EntrySignal{}, RejectNoBreakout
	case !cfg.Mode.Allows(sig.Breakout):
		return EntrySignal{}, RejectDirection
	case sig.Alignment != sig.Breakout:
		return EntrySignal{}, RejectMisaligned
	case !sig.IsAdjustment:
		return EntrySignal{}, RejectNoAdjustment
	case cfg.RequireConsolidation && !sig.IsSideways:
		return EntrySignal{}, RejectNoConsolidation
	}

	cur := window[len(window)-1]
	prev := window[len(window)-2]
	dir := sig.Breakout

	if (dir == regime.DirectionUp && !cur.IsBullish()) || (dir == regime.DirectionDown && !cur.IsBearish()) {
		return EntrySignal{}, RejectWeakCandle
	}
	if !volumeSurge(window, lookback, cfg.VolumeSurge) {
		return EntrySignal{}, RejectLowVolume
	}

	rangeHigh, rangeLow, _ := regime.BreakoutRange(window, lookback)
	entry := EntrySignal{
		Direction: dir,
		Price:     cur.Close,
		Timestamp: cur.Timestamp,
		Signal:    sig,
	}
	if dir == regime.DirectionUp {
		entry.PrimaryStop = math.Min(cur.Low, prev.Low)
		entry.SecondaryStop = math.Min(rangeLow, entry.PrimaryStop)
	} else {
		entry.PrimaryStop = math.Max(cur.High, prev.High)
		entry.SecondaryStop = math.Max(rangeHigh, entry.PrimaryStop)
	}
	return entry, RejectNone
}

// volumeSurge compares the last volume to the mean of the preceding lookback candles
func volumeSurge(window []types.OHLCV, lookback int, ratio float64) bool {
	last := len(window) - 1
	sum := 0.0
	for _, c := range window[last-lookback : last] {
		sum += c.Volume
	}
	avg := sum / float64(lookback)
	return window[last].Volume >= avg*ratio
}
