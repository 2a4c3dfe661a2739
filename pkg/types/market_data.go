package types

import "time"

// OHLCV is one closed candle. Series are ordered by strictly increasing Timestamp.
type OHLCV struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// IsBullish reports whether the candle closed above its open.
func (c OHLCV) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c OHLCV) IsBearish() bool {
	return c.Close < c.Open
}

// Valid checks the price relationships every candle must satisfy.
func (c OHLCV) Valid() bool {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 || c.Volume < 0 {
		return false
	}
	return c.Low <= c.Open && c.Low <= c.Close && c.High >= c.Open && c.High >= c.Close
}
