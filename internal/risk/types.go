package risk

// VenueConstraints are the account and instrument limits a sized order must respect.
// Zero values disable the corresponding check, except AvailableBalance which is always a ceiling.
type VenueConstraints struct {
	MinNotional      float64 `json:"min_notional" yaml:"min_notional"`
	MinOrderQty      float64 `json:"min_order_qty" yaml:"min_order_qty"`
	MaxTradeAmount   float64 `json:"max_trade_amount" yaml:"max_trade_amount"`
	QtyStep          float64 `json:"qty_step" yaml:"qty_step"`
	TickSize         float64 `json:"tick_size" yaml:"tick_size"`
	AvailableBalance float64 `json:"available_balance" yaml:"-"`
	// BalanceFraction is the share of AvailableBalance usable as margin, 1 when unset
	BalanceFraction float64 `json:"balance_fraction" yaml:"balance_fraction"`
}

// Request describes one entry to size
type Request struct {
	EntryPrice     float64
	StopPrice      float64
	Capital        float64
	RiskPercentage float64
	Leverage       float64
}

// Plan is the sized entry after stop clamping and venue constraints
type Plan struct {
	Size        float64 `json:"size"`
	Notional    float64 `json:"notional"`
	StopPrice   float64 `json:"stop_price"`
	RawSize     float64 `json:"raw_size"`
	StopClamped bool    `json:"stop_clamped"`
	Capped      bool    `json:"capped"`
}
