package bybit

import (
	"context"
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// AccountType represents different account types in Bybit
type AccountType string

const (
	AccountTypeUnified  AccountType = "UNIFIED"
	AccountTypeContract AccountType = "CONTRACT"
)

// Balance is the wallet state of one coin
type Balance struct {
	Coin          string  `json:"coin"`
	WalletBalance float64 `json:"walletBalance"`
	Locked        float64 `json:"locked"`
	Available     float64 `json:"available"`
}

// GetCoinBalance retrieves the wallet balance of coin. Requires API credentials.
func (c *Client) GetCoinBalance(ctx context.Context, accountType AccountType, coin string) (*Balance, error) {
	params := map[string]interface{}{
		"accountType": string(accountType),
		"coin":        coin,
	}

	resp, err := c.call(ctx, "get wallet balance", func() (*bybit_api.ServerResponse, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	})
	if err != nil {
		return nil, err
	}
	return parseWalletResponse(resp, coin)
}

// GetAvailableBalance returns the quote balance usable as margin for new entries
func (c *Client) GetAvailableBalance(ctx context.Context, coin string) (float64, error) {
	balance, err := c.GetCoinBalance(ctx, AccountTypeUnified, coin)
	if err != nil {
		return 0, err
	}
	return balance.Available, nil
}

func parseWalletResponse(resp *bybit_api.ServerResponse, coin string) (*Balance, error) {
	var result walletResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to parse account balance response: %w", err)
	}

	for _, account := range result.List {
		for _, cb := range account.Coin {
			if cb.Coin != coin {
				continue
			}
			b := &Balance{
				Coin:          cb.Coin,
				WalletBalance: parseFloat64(cb.WalletBalance),
				Locked:        parseFloat64(cb.Locked),
			}
			b.Available = b.WalletBalance - b.Locked
			if w := parseFloat64(cb.AvailableToWithdraw); w > 0 && w < b.Available {
				b.Available = w
			}
			if b.Available < 0 {
				b.Available = 0
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("coin %s not found in account", coin)
}
