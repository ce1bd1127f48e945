package price

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// CoinGecko simple/price 接口
// GET {url}?ids=matic-network&vs_currencies=ngn -> {"matic-network":{"ngn":812.4}}
type CoinGecko struct {
	url        string
	tokenID    string
	vsCurrency string
	httpClient *resty.Client
}

func NewCoinGecko(endpoint, tokenID, vsCurrency string, timeout time.Duration) *CoinGecko {
	return &CoinGecko{
		url:        endpoint,
		tokenID:    tokenID,
		vsCurrency: vsCurrency,
		httpClient: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *CoinGecko) TokenPrice(ctx context.Context) (decimal.Decimal, error) {
	var body map[string]map[string]decimal.Decimal
	res, err := c.httpClient.
		R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           c.tokenID,
			"vs_currencies": c.vsCurrency,
		}).
		ForceContentType("application/json").
		SetResult(&body).
		Get(c.url)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch price: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fetch price: status %d", res.StatusCode())
	}

	p, ok := body[c.tokenID][c.vsCurrency]
	if !ok {
		return decimal.Zero, ErrUnavailable
	}
	return p, nil
}
