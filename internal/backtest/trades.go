package backtest

import (
	"encoding/json"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
)

// TradeKind tags the two ledger record shapes
type TradeKind string

const (
	KindEntry TradeKind = "entry"
	KindExit  TradeKind = "exit"
)

// Trade is an append-only ledger record, either *EntryTrade or *ExitTrade.
// Consumers switch on the concrete type.
type Trade interface {
	Kind() TradeKind
	Time() time.Time
	trade()
}

// EntryTrade records an accepted entry
type EntryTrade struct {
	Direction     regime.Direction `json:"direction"`
	Price         float64          `json:"price"`
	Size          float64          `json:"size"`
	Timestamp     time.Time        `json:"timestamp"`
	StopLoss      float64          `json:"stop_loss"`
	SecondaryStop float64          `json:"secondary_stop"`
}

// ExitTrade records one rung of the exit ladder
type ExitTrade struct {
	Direction  regime.Direction    `json:"direction"`
	EntryPrice float64             `json:"entry_price"`
	Price      float64             `json:"price"`
	Size       float64             `json:"size"`
	PnL        float64             `json:"pnl"`
	Timestamp  time.Time           `json:"timestamp"`
	Reason     position.ExitReason `json:"reason"`
	Final      bool                `json:"final"`
}

func (*EntryTrade) Kind() TradeKind   { return KindEntry }
func (t *EntryTrade) Time() time.Time { return t.Timestamp }
func (*EntryTrade) trade()            {}

func (*ExitTrade) Kind() TradeKind   { return KindExit }
func (t *ExitTrade) Time() time.Time { return t.Timestamp }
func (*ExitTrade) trade()            {}

// IsWin reports whether the exit realized a profit
func (t *ExitTrade) IsWin() bool {
	return t.PnL > 0
}

func (t *EntryTrade) MarshalJSON() ([]byte, error) {
	type plain EntryTrade
	return json.Marshal(struct {
		Type TradeKind `json:"type"`
		*plain
	}{KindEntry, (*plain)(t)})
}

func (t *ExitTrade) MarshalJSON() ([]byte, error) {
	type plain ExitTrade
	return json.Marshal(struct {
		Type TradeKind `json:"type"`
		*plain
	}{KindExit, (*plain)(t)})
}

// EquityPoint is appended once per replayed candle
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	Drawdown  float64   `json:"drawdown"`
}

// Entries returns the entry records of a ledger in order
func Entries(trades []Trade) []*EntryTrade {
	var out []*EntryTrade
	for _, t := range trades {
		if e, ok := t.(*EntryTrade); ok {
			out = append(out, e)
		}
	}
	return out
}

// Exits returns the exit records of a ledger in order
func Exits(trades []Trade) []*ExitTrade {
	var out []*ExitTrade
	for _, t := range trades {
		if e, ok := t.(*ExitTrade); ok {
			out = append(out, e)
		}
	}
	return out
}
