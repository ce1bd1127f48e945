package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// Cache 定义通用缓存接口
type Cache interface {
	// Set 设置缓存, value 以 JSON 形式保存
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get 读取缓存并 Unmarshal 到 target; 未命中返回 ErrMiss
	Get(ctx context.Context, key string, target interface{}) error
	Delete(ctx context.Context, key string) error
}
