package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
)

// DefaultMaxStopDistance is the widest stop allowed for a single trade, as a fraction of entry
const DefaultMaxStopDistance = 0.05

// Size converts a risk budget and stop distance into a position size in units.
//
//	risk_amount   = capital * risk_percentage
//	loss_fraction = |entry - stop| / entry
//	size          = risk_amount / loss_fraction * leverage / entry
func Size(entry, stop, capital, riskPercentage, leverage float64) (float64, error) {
	if entry <= 0 {
		return 0, boterrors.NewValidationError("risk", "size", fmt.Sprintf("entry price must be positive, got: %.8f", entry))
	}
	if entry == stop {
		return 0, boterrors.NewSizingError("risk", "size", boterrors.ErrZeroRiskDistance)
	}

	riskAmount := capital * riskPercentage
	lossFraction := math.Abs(entry-stop) / entry
	return riskAmount / lossFraction * leverage / entry, nil
}

// ClampStop pulls a stop that is further than maxDistance from entry back to the limit.
func ClampStop(entry, stop float64, direction regime.Direction, maxDistance float64) (float64, bool) {
	if maxDistance <= 0 || entry <= 0 {
		return stop, false
	}
	if math.Abs(entry-stop)/entry <= maxDistance {
		return stop, false
	}

	switch direction {
	case regime.DirectionUp:
		return entry * (1 - maxDistance), true
	case regime.DirectionDown:
		return entry * (1 + maxDistance), true
	default:
		return stop, false
	}
}

// ApplyVenueConstraints caps a raw size by the trade ceiling and the affordable notional,
// rounds it down to the quantity step and rejects what is left if it is under the venue minimum.
func ApplyVenueConstraints(size, price, leverage float64, c VenueConstraints) (float64, bool, error) {
	if price <= 0 {
		return 0, false, boterrors.NewValidationError("risk", "apply_venue_constraints", fmt.Sprintf("price must be positive, got: %.8f", price))
	}

	capped := false
	notional := size * price
	if c.MaxTradeAmount > 0 && notional > c.MaxTradeAmount {
		notional = c.MaxTradeAmount
		capped = true
	}

	fraction := c.BalanceFraction
	if fraction <= 0 || fraction > 1 {
		fraction = 1
	}
	if leverage < 1 {
		leverage = 1
	}
	affordable := math.Max(c.AvailableBalance, 0) * fraction * leverage
	if notional > affordable {
		notional = affordable
		capped = true
	}

	qty := RoundDownToStep(notional/price, c.QtyStep)
	if qty <= 0 || qty < c.MinOrderQty || qty*price < c.MinNotional {
		return 0, capped, boterrors.NewSizingError("risk", "apply_venue_constraints", boterrors.ErrBelowMinNotional).
			WithContext("quantity", qty).
			WithContext("notional", qty*price).
			WithContext("min_notional", c.MinNotional)
	}
	return qty, capped, nil
}

// RoundDownToStep floors qty to a multiple of step. A non-positive step leaves qty untouched.
func RoundDownToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	d := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	return d.Div(s).Floor().Mul(s).InexactFloat64()
}

// RoundToTick rounds price to the nearest multiple of tick. A non-positive tick leaves price untouched.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	d := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	return d.Div(t).Round(0).Mul(t).InexactFloat64()
}

// Sizer runs the full sizing pipeline: stop clamp, risk sizing, venue constraints
type Sizer struct {
	maxStopDistance float64
}

func NewSizer(maxStopDistance float64) *Sizer {
	if maxStopDistance <= 0 {
		maxStopDistance = DefaultMaxStopDistance
	}
	return &Sizer{maxStopDistance: maxStopDistance}
}

func (s *Sizer) MaxStopDistance() float64 {
	return s.maxStopDistance
}

// Plan sizes an entry in the given direction
func (s *Sizer) Plan(direction regime.Direction, req Request, venue VenueConstraints) (Plan, error) {
	stop, clamped := ClampStop(req.EntryPrice, req.StopPrice, direction, s.maxStopDistance)
	stop = RoundToTick(stop, venue.TickSize)

	raw, err := Size(req.EntryPrice, stop, req.Capital, req.RiskPercentage, req.Leverage)
	if err != nil {
		return Plan{}, err
	}

	size, capped, err := ApplyVenueConstraints(raw, req.EntryPrice, req.Leverage, venue)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Size:        size,
		Notional:    size * req.EntryPrice,
		StopPrice:   stop,
		RawSize:     raw,
		StopClamped: clamped,
		Capped:      capped,
	}, nil
}
