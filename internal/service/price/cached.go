package price

import (
	"context"
	"errors"
	"time"

	"trevpay/pkg/cache"
	"trevpay/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cached 缓存上游价格, 并发请求合并为一次
type Cached struct {
	next  Lookup
	cache cache.Cache
	key   string
	ttl   time.Duration
	group singleflight.Group
}

func NewCached(next Lookup, c cache.Cache, key string, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, key: key, ttl: ttl}
}

func (c *Cached) TokenPrice(ctx context.Context) (decimal.Decimal, error) {
	var p decimal.Decimal
	err := c.cache.Get(ctx, c.key, &p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("Price cache read failed", zap.Error(err))
	}

	v, err, _ := c.group.Do(c.key, func() (interface{}, error) {
		p, err := c.next.TokenPrice(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		// 0 不缓存, 下次继续尝试
		if p.IsPositive() {
			if err := c.cache.Set(ctx, c.key, p, c.ttl); err != nil {
				logger.Warn("Price cache write failed", zap.Error(err))
			}
		}
		return p, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}
