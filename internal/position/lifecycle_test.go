package position

import (
	"errors"
	"math"
	"testing"
	"time"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func candle(open, close float64) types.OHLCV {
	return types.OHLCV{
		Timestamp: t0,
		Open:      open,
		High:      math.Max(open, close) + 1,
		Low:       math.Min(open, close) - 1,
		Close:     close,
		Volume:    100,
	}
}

// flatTick closes at price with no candle pattern and EMAs far on the safe side of a long
func flatTick(price float64) Tick {
	return Tick{Prev: candle(price, price), Cur: candle(price, price), EMAFast: 1, EMAMid: 1}
}

func openLong(t *testing.T, ladder Ladder) *Lifecycle {
	lc := NewLifecycle(ladder)
	require.NoError(t, lc.Open(regime.DirectionUp, 100, 12, 95, 90, t0))
	return lc
}

func TestLifecycle_Open(t *testing.T) {
	lc := openLong(t, DefaultLadder())

	p := lc.Position()
	assert.Equal(t, regime.DirectionUp, p.Direction)
	assert.Equal(t, 12.0, p.RemainingSize)
	assert.Equal(t, 12.0, p.InitialSize)
	assert.Equal(t, 0, p.ExitStage)
	assert.False(t, p.PrimaryStopTriggered)

	err := lc.Open(regime.DirectionUp, 100, 1, 95, 90, t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boterrors.ErrPositionOpen))

	assert.Error(t, NewLifecycle(DefaultLadder()).Open(regime.DirectionNone, 100, 1, 95, 90, t0))
	assert.Error(t, NewLifecycle(DefaultLadder()).Open(regime.DirectionUp, 100, 0, 95, 90, t0))
}

func TestLifecycle_TwoTierStop(t *testing.T) {
	lc := openLong(t, DefaultLadder())

	exit, ok := lc.Next(flatTick(94))
	require.True(t, ok)
	assert.Equal(t, ReasonStopLoss, exit.Reason)
	assert.InDelta(t, 6.0, exit.Size, 1e-9)
	assert.True(t, exit.ArmPrimary)
	assert.False(t, exit.Final)

	fill, err := lc.Apply(exit)
	require.NoError(t, err)
	assert.InDelta(t, -36.0, fill.PnL, 1e-9)

	p := lc.Position()
	assert.True(t, p.PrimaryStopTriggered)
	assert.InDelta(t, 6.0, p.RemainingSize, 1e-9)
	assert.Equal(t, 0, p.ExitStage)

	// primary tier does not fire twice
	_, ok = lc.Next(flatTick(93))
	assert.False(t, ok)

	exit, ok = lc.Next(flatTick(89))
	require.True(t, ok)
	assert.Equal(t, ReasonSecondaryStopLoss, exit.Reason)
	assert.True(t, exit.Final)

	fill, err = lc.Apply(exit)
	require.NoError(t, err)
	assert.InDelta(t, -66.0, fill.PnL, 1e-9)
	assert.True(t, lc.Position().IsFlat())
}

func TestLifecycle_TakeProfitLadder(t *testing.T) {
	lc := openLong(t, DefaultLadder())

	// bullish then bearish candle, price still above both EMAs
	tick := Tick{Prev: candle(100, 105), Cur: candle(106, 104), EMAFast: 101, EMAMid: 99}
	exit, ok := lc.Next(tick)
	require.True(t, ok)
	assert.Equal(t, ReasonCandleReversal, exit.Reason)
	assert.InDelta(t, 4.0, exit.Size, 1e-9)
	_, err := lc.Apply(exit)
	require.NoError(t, err)
	assert.Equal(t, 1, lc.Position().ExitStage)

	// the reversal step only fires from stage 0
	_, ok = lc.Next(tick)
	assert.False(t, ok)

	exit, ok = lc.Next(Tick{Prev: candle(104, 104), Cur: candle(104, 100), EMAFast: 101, EMAMid: 99})
	require.True(t, ok)
	assert.Equal(t, ReasonEMAFast, exit.Reason)
	assert.InDelta(t, 4.0, exit.Size, 1e-9)
	fill, err := lc.Apply(exit)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, fill.PnL, 1e-9)
	assert.Equal(t, 2, lc.Position().ExitStage)
	assert.InDelta(t, 4.0, lc.Position().RemainingSize, 1e-9)

	exit, ok = lc.Next(Tick{Prev: candle(100, 100), Cur: candle(100, 98), EMAFast: 101, EMAMid: 99})
	require.True(t, ok)
	assert.Equal(t, ReasonEMAMid, exit.Reason)
	assert.True(t, exit.Final)
	assert.Equal(t, FinalStage, exit.NextStage)
	_, err = lc.Apply(exit)
	require.NoError(t, err)
	assert.True(t, lc.Position().IsFlat())
}

func TestLifecycle_StopHasPriority(t *testing.T) {
	lc := openLong(t, DefaultLadder())

	// reversal pattern and fast EMA break, but the stop is hit first
	tick := Tick{Prev: candle(96, 99), Cur: candle(97, 94), EMAFast: 101, EMAMid: 99}
	exit, ok := lc.Next(tick)
	require.True(t, ok)
	assert.Equal(t, ReasonStopLoss, exit.Reason)
}

func TestLifecycle_FastEMAFromStageZero(t *testing.T) {
	lc := openLong(t, DefaultLadder())

	exit, ok := lc.Next(Tick{Prev: candle(100, 100), Cur: candle(100, 99), EMAFast: 100.5, EMAMid: 98})
	require.True(t, ok)
	assert.Equal(t, ReasonEMAFast, exit.Reason)
	assert.Equal(t, 2, exit.NextStage)
}

func TestLifecycle_NextIsPure(t *testing.T) {
	lc := openLong(t, DefaultLadder())
	tick := flatTick(94)

	first, ok1 := lc.Next(tick)
	second, ok2 := lc.Next(tick)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
	assert.Equal(t, 12.0, lc.Position().RemainingSize)
}

func TestLifecycle_ShortMirror(t *testing.T) {
	lc := NewLifecycle(DefaultLadder())
	require.NoError(t, lc.Open(regime.DirectionDown, 100, 9, 105, 110, t0))

	// bearish then bullish reversal against the short
	exit, ok := lc.Next(Tick{Prev: candle(100, 96), Cur: candle(95, 97), EMAFast: 99, EMAMid: 101})
	require.True(t, ok)
	assert.Equal(t, ReasonCandleReversal, exit.Reason)
	fill, err := lc.Apply(exit)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, fill.PnL, 1e-9)

	exit, ok = lc.Next(Tick{Prev: candle(97, 97), Cur: candle(97, 106), EMAFast: 99, EMAMid: 101})
	require.True(t, ok)
	assert.Equal(t, ReasonStopLoss, exit.Reason)
	assert.True(t, exit.ArmPrimary)
}

func TestLifecycle_CollapsedLadder(t *testing.T) {
	lc := openLong(t, CollapsedLadder())

	exit, ok := lc.Next(flatTick(95))
	require.True(t, ok)
	assert.Equal(t, ReasonStopLoss, exit.Reason)
	assert.True(t, exit.Final)

	lc = openLong(t, CollapsedLadder())
	// fast EMA step does not exist; the mid EMA closes everything from stage 0
	_, ok = lc.Next(Tick{Prev: candle(100, 100), Cur: candle(100, 99.5), EMAFast: 100.5, EMAMid: 98})
	assert.False(t, ok)

	exit, ok = lc.Next(Tick{Prev: candle(100, 100), Cur: candle(100, 97), EMAFast: 100.5, EMAMid: 98})
	require.True(t, ok)
	assert.Equal(t, ReasonEMAMid, exit.Reason)
	assert.True(t, exit.Final)
}

func TestLifecycle_ApplyWhenFlat(t *testing.T) {
	_, err := NewLifecycle(DefaultLadder()).Apply(Exit{Size: 1, Price: 100})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boterrors.ErrNoPosition))
}

func TestLifecycle_Restore(t *testing.T) {
	lc := NewLifecycle(DefaultLadder())

	p := Position{Direction: regime.DirectionUp, EntryPrice: 100, RemainingSize: 4, InitialSize: 12, ExitStage: 2}
	require.NoError(t, lc.Restore(p))
	assert.Equal(t, p, lc.Position())

	assert.Error(t, lc.Restore(Position{Direction: regime.DirectionUp, RemainingSize: 13, InitialSize: 12}))
	assert.Error(t, lc.Restore(Position{Direction: regime.DirectionUp, RemainingSize: 1, InitialSize: 12, ExitStage: 3}))
}

func TestLadder_Validate(t *testing.T) {
	assert.NoError(t, DefaultLadder().Validate())
	assert.NoError(t, CollapsedLadder().Validate())
	assert.Error(t, Ladder{ExitStages: 2, StopTiers: 2}.Validate())
	assert.Error(t, Ladder{ExitStages: 3, StopTiers: 0}.Validate())
}

func TestPosition_UnrealizedPnL(t *testing.T) {
	assert.Equal(t, 0.0, Position{}.UnrealizedPnL(100))

	short := Position{Direction: regime.DirectionDown, EntryPrice: 100, RemainingSize: 2}
	assert.InDelta(t, 10.0, short.UnrealizedPnL(95), 1e-9)
}
