package position

import (
	"fmt"
	"time"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
)

// dustSize is the remaining size below which a position counts as closed
const dustSize = 1e-12

// Lifecycle owns the single position and its exit ladder.
// Next is a pure read of the ladder; only Open and Apply change state.
type Lifecycle struct {
	ladder Ladder
	pos    Position
}

// NewLifecycle creates a flat lifecycle for the given ladder
func NewLifecycle(ladder Ladder) *Lifecycle {
	return &Lifecycle{ladder: ladder}
}

func (lc *Lifecycle) Ladder() Ladder {
	return lc.ladder
}

// Position returns a copy of the current position
func (lc *Lifecycle) Position() Position {
	return lc.pos
}

// Restore replaces the tracked position, e.g. from a persisted snapshot
func (lc *Lifecycle) Restore(p Position) error {
	if p.IsFlat() {
		lc.pos = Position{}
		return nil
	}
	if p.RemainingSize <= 0 || p.RemainingSize > p.InitialSize+dustSize {
		return boterrors.NewValidationError("position", "restore",
			fmt.Sprintf("remaining size %.8f inconsistent with initial size %.8f", p.RemainingSize, p.InitialSize))
	}
	if p.ExitStage < 0 || p.ExitStage >= FinalStage {
		return boterrors.NewValidationError("position", "restore", fmt.Sprintf("invalid exit stage %d", p.ExitStage))
	}
	lc.pos = p
	return nil
}

// Open starts a new position at exit stage 0
func (lc *Lifecycle) Open(direction regime.Direction, price, size, primaryStop, secondaryStop float64, ts time.Time) error {
	if !lc.pos.IsFlat() {
		return boterrors.NewPositionError("position", "open", boterrors.ErrPositionOpen)
	}
	if direction == regime.DirectionNone {
		return boterrors.NewValidationError("position", "open", "direction must be up or down")
	}
	if price <= 0 || size <= 0 {
		return boterrors.NewValidationError("position", "open",
			fmt.Sprintf("price and size must be positive, got: %.8f / %.8f", price, size))
	}

	lc.pos = Position{
		Direction:     direction,
		EntryPrice:    price,
		RemainingSize: size,
		InitialSize:   size,
		PrimaryStop:   primaryStop,
		SecondaryStop: secondaryStop,
		EntryTime:     ts,
	}
	return nil
}

// Next evaluates the exit ladder for one tick in strict priority order and returns
// the first trigger that fires. At most one exit is produced per tick.
func (lc *Lifecycle) Next(tick Tick) (Exit, bool) {
	p := lc.pos
	if p.IsFlat() {
		return Exit{}, false
	}

	price := tick.Cur.Close
	dir := p.Direction

	partial := func(reason ExitReason, fraction float64, nextStage int) Exit {
		return Exit{
			Reason:    reason,
			Fraction:  fraction,
			Size:      p.RemainingSize * fraction,
			Price:     price,
			Timestamp: tick.Cur.Timestamp,
			NextStage: nextStage,
		}
	}
	full := func(reason ExitReason) Exit {
		return Exit{
			Reason:    reason,
			Fraction:  1,
			Size:      p.RemainingSize,
			Price:     price,
			Timestamp: tick.Cur.Timestamp,
			NextStage: FinalStage,
			Final:     true,
		}
	}

	// 1. primary stop
	if !p.PrimaryStopTriggered && stopHit(dir, price, p.PrimaryStop) {
		if lc.ladder.StopTiers == 1 {
			return full(ReasonStopLoss), true
		}
		exit := partial(ReasonStopLoss, 0.5, p.ExitStage)
		exit.ArmPrimary = true
		return exit, true
	}

	// 2. secondary stop, only once the primary has fired
	if p.PrimaryStopTriggered && stopHit(dir, price, p.SecondaryStop) {
		return full(ReasonSecondaryStopLoss), true
	}

	// 3. candle reversal against the position
	if p.ExitStage == 0 && reversal(dir, tick) {
		return partial(ReasonCandleReversal, 1.0/3.0, 1), true
	}

	// 4. close through the fast EMA
	if lc.ladder.ExitStages == 3 && p.ExitStage < 2 && beyond(dir, price, tick.EMAFast) {
		return partial(ReasonEMAFast, 0.5, 2), true
	}

	// 5. close through the mid EMA
	if (lc.ladder.ExitStages == 1 || p.ExitStage == 2) && beyond(dir, price, tick.EMAMid) {
		return full(ReasonEMAMid), true
	}

	return Exit{}, false
}

// Apply executes an exit against the position and returns the realized fill
func (lc *Lifecycle) Apply(exit Exit) (Fill, error) {
	p := lc.pos
	if p.IsFlat() {
		return Fill{}, boterrors.NewPositionError("position", "apply", boterrors.ErrNoPosition)
	}

	size := exit.Size
	if exit.Final || size > p.RemainingSize {
		size = p.RemainingSize
	}
	if size <= 0 {
		return Fill{}, boterrors.NewValidationError("position", "apply", fmt.Sprintf("exit size must be positive, got: %.8f", size))
	}
	exit.Size = size

	fill := Fill{
		Exit:       exit,
		Direction:  p.Direction,
		EntryPrice: p.EntryPrice,
		PnL:        p.PnL(exit.Price, size),
	}

	p.RemainingSize -= size
	if exit.ArmPrimary {
		p.PrimaryStopTriggered = true
	}
	if exit.NextStage > p.ExitStage {
		p.ExitStage = exit.NextStage
	}

	if exit.Final || p.RemainingSize <= dustSize {
		fill.Final = true
		lc.pos = Position{}
		return fill, nil
	}

	lc.pos = p
	return fill, nil
}

func stopHit(dir regime.Direction, price, stop float64) bool {
	if dir == regime.DirectionUp {
		return price <= stop
	}
	return price >= stop
}

func beyond(dir regime.Direction, price, level float64) bool {
	if dir == regime.DirectionUp {
		return price < level
	}
	return price > level
}

func reversal(dir regime.Direction, tick Tick) bool {
	if dir == regime.DirectionUp {
		return tick.Prev.IsBullish() && tick.Cur.IsBearish()
	}
	return tick.Prev.IsBearish() && tick.Cur.IsBullish()
}
