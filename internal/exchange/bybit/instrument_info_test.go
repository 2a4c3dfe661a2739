package bybit

import (
	"testing"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trend-breakout-bot/internal/risk"
)

func TestParseInstrumentInfo_Spot(t *testing.T) {
	resp := &bybit_api.ServerResponse{Result: map[string]interface{}{
		"category": "spot",
		"list": []interface{}{
			map[string]interface{}{
				"symbol":        "BTCUSDT",
				"priceFilter":   map[string]interface{}{"tickSize": "0.01"},
				"lotSizeFilter": map[string]interface{}{"basePrecision": "0.000001", "minOrderQty": "0.000048", "minOrderAmt": "1"},
			},
		},
	}}

	info, err := parseInstrumentInfoResponse(resp, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, risk.VenueConstraints{MinNotional: 1, MinOrderQty: 0.000048, QtyStep: 0.000001, TickSize: 0.01}, info.Constraints())
	assert.Zero(t, info.MaxLeverage())
}

func TestParseInstrumentInfo_Linear(t *testing.T) {
	resp := &bybit_api.ServerResponse{Result: map[string]interface{}{
		"category": "linear",
		"list": []interface{}{
			map[string]interface{}{
				"symbol":         "ETHUSDT",
				"leverageFilter": map[string]interface{}{"maxLeverage": "100.00"},
				"priceFilter":    map[string]interface{}{"tickSize": "0.01"},
				"lotSizeFilter":  map[string]interface{}{"qtyStep": "0.01", "minOrderQty": "0.01", "minNotionalValue": "5"},
			},
		},
	}}

	info, err := parseInstrumentInfoResponse(resp, "ETHUSDT")
	require.NoError(t, err)
	c := info.Constraints()
	assert.Equal(t, 5.0, c.MinNotional)
	assert.Equal(t, 0.01, c.QtyStep)
	assert.Equal(t, 100.0, info.MaxLeverage())

	_, err = parseInstrumentInfoResponse(resp, "SOLUSDT")
	assert.Error(t, err)
}

func TestParseWalletResponse(t *testing.T) {
	resp := &bybit_api.ServerResponse{Result: map[string]interface{}{
		"list": []interface{}{
			map[string]interface{}{
				"accountType": "UNIFIED",
				"coin": []interface{}{
					map[string]interface{}{"coin": "BTC", "walletBalance": "0.5"},
					map[string]interface{}{"coin": "USDT", "walletBalance": "1500", "locked": "200", "availableToWithdraw": ""},
				},
			},
		},
	}}

	b, err := parseWalletResponse(resp, "USDT")
	require.NoError(t, err)
	assert.Equal(t, 1300.0, b.Available)

	_, err = parseWalletResponse(resp, "ETH")
	assert.Error(t, err)
}
