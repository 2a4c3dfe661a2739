package regime

import "fmt"

// Direction is a trend, breakout or position side
type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
)

// String returns string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

// Sign returns +1 for up, -1 for down and 0 otherwise
func (d Direction) Sign() float64 {
	switch d {
	case DirectionUp:
		return 1
	case DirectionDown:
		return -1
	default:
		return 0
	}
}

// Opposite returns the reverse direction; none stays none
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	default:
		return DirectionNone
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "up", "long":
		*d = DirectionUp
	case "down", "short":
		*d = DirectionDown
	case "none", "flat", "":
		*d = DirectionNone
	default:
		return fmt.Errorf("unknown direction %q", string(text))
	}
	return nil
}

// Signal is the per-candle classification. It is recomputed every candle and never persisted.
type Signal struct {
	Alignment    Direction `json:"alignment"`
	IsSideways   bool      `json:"is_sideways"`
	Breakout     Direction `json:"breakout"`
	IsAdjustment bool      `json:"is_adjustment"`
}

// Config holds the window parameters used by Classify
type Config struct {
	SidewaysLookback  int     `json:"sideways_lookback"`
	SidewaysThreshold float64 `json:"sideways_threshold"`
	BreakoutLookback  int     `json:"breakout_lookback"`
}
