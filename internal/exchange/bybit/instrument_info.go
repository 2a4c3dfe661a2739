package bybit

import (
	"context"
	"fmt"
	"sync"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/trend-breakout-bot/internal/risk"
)

// InstrumentInfo holds the trading filters of one instrument
type InstrumentInfo struct {
	Symbol         string `json:"symbol"`
	Status         string `json:"status"`
	BaseCoin       string `json:"baseCoin"`
	QuoteCoin      string `json:"quoteCoin"`
	LeverageFilter struct {
		MinLeverage  string `json:"minLeverage"`
		MaxLeverage  string `json:"maxLeverage"`
		LeverageStep string `json:"leverageStep"`
	} `json:"leverageFilter"`
	PriceFilter struct {
		MinPrice string `json:"minPrice"`
		MaxPrice string `json:"maxPrice"`
		TickSize string `json:"tickSize"`
	} `json:"priceFilter"`
	LotSizeFilter struct {
		// spot publishes basePrecision/minOrderAmt, linear publishes qtyStep/minNotionalValue
		BasePrecision    string `json:"basePrecision"`
		MinOrderAmt      string `json:"minOrderAmt"`
		MinNotionalValue string `json:"minNotionalValue"`
		MaxOrderQty      string `json:"maxOrderQty"`
		MinOrderQty      string `json:"minOrderQty"`
		QtyStep          string `json:"qtyStep"`
	} `json:"lotSizeFilter"`
}

// Constraints maps the instrument filters onto sizing constraints. The account
// dependent fields (available balance, fraction, trade cap) are left zero.
func (ii *InstrumentInfo) Constraints() risk.VenueConstraints {
	lot := ii.LotSizeFilter
	step := parseFloat64(lot.QtyStep)
	if step == 0 {
		step = parseFloat64(lot.BasePrecision)
	}
	minNotional := parseFloat64(lot.MinNotionalValue)
	if minNotional == 0 {
		minNotional = parseFloat64(lot.MinOrderAmt)
	}
	return risk.VenueConstraints{
		MinNotional: minNotional,
		MinOrderQty: parseFloat64(lot.MinOrderQty),
		QtyStep:     step,
		TickSize:    parseFloat64(ii.PriceFilter.TickSize),
	}
}

// MaxLeverage is zero for instruments without a leverage filter
func (ii *InstrumentInfo) MaxLeverage() float64 {
	return parseFloat64(ii.LeverageFilter.MaxLeverage)
}

// InstrumentManager caches instrument information
type InstrumentManager struct {
	client         *Client
	instruments    map[string]*InstrumentInfo
	fetched        map[string]time.Time
	mutex          sync.RWMutex
	updateInterval time.Duration
}

// NewInstrumentManager creates a new instrument manager
func NewInstrumentManager(client *Client) *InstrumentManager {
	return &InstrumentManager{
		client:         client,
		instruments:    make(map[string]*InstrumentInfo),
		fetched:        make(map[string]time.Time),
		updateInterval: time.Hour,
	}
}

// GetInstrumentInfo retrieves and caches instrument information
func (im *InstrumentManager) GetInstrumentInfo(ctx context.Context, category, symbol string) (*InstrumentInfo, error) {
	category = im.client.categoryOr(category)
	key := category + ":" + symbol

	im.mutex.RLock()
	instrument, exists := im.instruments[key]
	fresh := exists && time.Since(im.fetched[key]) < im.updateInterval
	im.mutex.RUnlock()
	if fresh {
		return instrument, nil
	}

	instrument, err := im.fetchInstrumentInfo(ctx, category, symbol)
	if err != nil {
		return nil, err
	}

	im.mutex.Lock()
	im.instruments[key] = instrument
	im.fetched[key] = time.Now()
	im.mutex.Unlock()

	return instrument, nil
}

// VenueConstraints returns the cached filters of symbol as sizing constraints
func (im *InstrumentManager) VenueConstraints(ctx context.Context, category, symbol string) (risk.VenueConstraints, error) {
	info, err := im.GetInstrumentInfo(ctx, category, symbol)
	if err != nil {
		return risk.VenueConstraints{}, err
	}
	return info.Constraints(), nil
}

func (im *InstrumentManager) fetchInstrumentInfo(ctx context.Context, category, symbol string) (*InstrumentInfo, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	resp, err := im.client.call(ctx, "get instrument info", func() (*bybit_api.ServerResponse, error) {
		return im.client.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
	})
	if err != nil {
		return nil, err
	}
	return parseInstrumentInfoResponse(resp, symbol)
}

func parseInstrumentInfoResponse(resp *bybit_api.ServerResponse, symbol string) (*InstrumentInfo, error) {
	var result instrumentResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to parse instrument info: %w", err)
	}
	for i := range result.List {
		if result.List[i].Symbol == symbol {
			return &result.List[i], nil
		}
	}
	return nil, NewBybitError(ErrCodeSymbolNotFound, "symbol not found", symbol)
}
