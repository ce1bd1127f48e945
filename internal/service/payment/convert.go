package payment

import (
	"context"
	"math/big"

	"trevpay/pkg/logger"
	"trevpay/pkg/monitor"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// tokenDecimals 链上最小单位与 token 的换算位数 (10^18)
const tokenDecimals = 18

// TokenAmount 整数 token 单位 -> token 数量
func TokenAmount(units *big.Int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -tokenDecimals)
}

// convert 换算成本地货币. 价格为 0 或查询失败时退化为 token 数量 (精度降级, 不是错误)
func (g *Gateway) convert(ctx context.Context, units *big.Int) (amount decimal.Decimal, degraded bool) {
	tokens := TokenAmount(units)
	if g.prices == nil {
		return tokens, true
	}

	p, err := g.prices.TokenPrice(ctx)
	if err != nil || !p.IsPositive() {
		logger.Warn("Price unavailable, using unconverted token amount",
			zap.String("tokens", tokens.String()), zap.Error(err))
		monitor.Business.PriceFallbackTotal.Inc()
		return tokens, true
	}
	return tokens.Mul(p).Round(2), false
}
