// Package price looks up the token price in the local currency.
package price

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable 没有可用价格
var ErrUnavailable = errors.New("token price unavailable")

// Lookup 返回 1 个 token 的本地货币价格. 返回 0 或 error 都表示无法换算
type Lookup interface {
	TokenPrice(ctx context.Context) (decimal.Decimal, error)
}

// Fixed 固定价格, 用于离线部署和测试
type Fixed decimal.Decimal

func NewFixed(v string) (Fixed, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return Fixed{}, err
	}
	return Fixed(d), nil
}

func (f Fixed) TokenPrice(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal(f), nil
}
