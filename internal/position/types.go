package position

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// ExitReason names the ladder step that produced an exit
type ExitReason string

const (
	ReasonStopLoss          ExitReason = "stop_loss"
	ReasonSecondaryStopLoss ExitReason = "secondary_stop_loss"
	ReasonCandleReversal    ExitReason = "take_profit_candle_reversal"
	ReasonEMAFast           ExitReason = "take_profit_ema_fast"
	ReasonEMAMid            ExitReason = "take_profit_ema_mid"
)

// AllExitReasons lists every reason in ladder priority order
var AllExitReasons = []ExitReason{
	ReasonStopLoss,
	ReasonSecondaryStopLoss,
	ReasonCandleReversal,
	ReasonEMAFast,
	ReasonEMAMid,
}

// FinalStage is the exit stage a position reaches when it is fully closed
const FinalStage = 3

// Position is the single tracked position. Direction none means flat.
type Position struct {
	Direction            regime.Direction `json:"direction"`
	EntryPrice           float64          `json:"entry_price"`
	RemainingSize        float64          `json:"remaining_size"`
	InitialSize          float64          `json:"initial_size"`
	PrimaryStop          float64          `json:"primary_stop"`
	SecondaryStop        float64          `json:"secondary_stop"`
	PrimaryStopTriggered bool             `json:"primary_stop_triggered"`
	ExitStage            int              `json:"exit_stage"`
	EntryTime            time.Time        `json:"entry_time"`
}

func (p Position) IsFlat() bool {
	return p.Direction == regime.DirectionNone
}

// PnL is the profit of closing size units at price
func (p Position) PnL(price, size float64) float64 {
	return (price - p.EntryPrice) * p.Direction.Sign() * size
}

// UnrealizedPnL marks the remaining size to price
func (p Position) UnrealizedPnL(price float64) float64 {
	if p.IsFlat() {
		return 0
	}
	return p.PnL(price, p.RemainingSize)
}

// Ladder selects the shape of the exit ladder.
// ExitStages 3 is the full ladder; 1 collapses it to one partial take-profit followed by a mid EMA exit.
// StopTiers 2 halves the position at the primary stop; 1 closes it all there.
type Ladder struct {
	ExitStages int `json:"exit_stages" yaml:"exit_stages"`
	StopTiers  int `json:"stop_tiers" yaml:"stop_tiers"`
}

// DefaultLadder is the three stage take-profit ladder with a two tier stop
func DefaultLadder() Ladder {
	return Ladder{ExitStages: 3, StopTiers: 2}
}

// CollapsedLadder is the single stage variant used for leveraged long/short trading
func CollapsedLadder() Ladder {
	return Ladder{ExitStages: 1, StopTiers: 1}
}

func (l Ladder) Validate() error {
	if l.ExitStages != 1 && l.ExitStages != 3 {
		return fmt.Errorf("exit stages must be 1 or 3, got: %d", l.ExitStages)
	}
	if l.StopTiers != 1 && l.StopTiers != 2 {
		return fmt.Errorf("stop tiers must be 1 or 2, got: %d", l.StopTiers)
	}
	return nil
}

// Tick is the market input for one ladder evaluation
type Tick struct {
	Prev    types.OHLCV
	Cur     types.OHLCV
	EMAFast float64
	EMAMid  float64
}

// Exit is an instruction to reduce the open position
type Exit struct {
	Reason     ExitReason `json:"reason"`
	Fraction   float64    `json:"fraction"`
	Size       float64    `json:"size"`
	Price      float64    `json:"price"`
	Timestamp  time.Time  `json:"timestamp"`
	NextStage  int        `json:"next_stage"`
	ArmPrimary bool       `json:"arm_primary"`
	Final      bool       `json:"final"`
}

// Fill is the realized result of applying an Exit
type Fill struct {
	Exit
	Direction  regime.Direction `json:"direction"`
	EntryPrice float64          `json:"entry_price"`
	PnL        float64          `json:"pnl"`
}
