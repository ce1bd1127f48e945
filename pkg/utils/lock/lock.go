package lock

import (
	"context"
	"sync"
	"time"

	"trevpay/pkg/safe_random"
)

// DistributedLock 定义锁接口
type DistributedLock interface {
	// Acquire 尝试获取锁, 不阻塞
	// 返回: (持有者 token, 是否成功, error)
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)

	// Release 释放锁; token 与当前持有者不一致时什么都不做
	Release(ctx context.Context, key, token string) error
}

type localEntry struct {
	token   string
	expires time.Time // 零值表示不过期
}

// LocalLock 进程内实现, 单实例部署时使用
type LocalLock struct {
	mu    sync.Mutex
	held  map[string]localEntry
	nowFn func() time.Time
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]localEntry), nowFn: time.Now}
}

func (l *LocalLock) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	token, err := safe_random.GenerateRandomHexString(16)
	if err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if cur, ok := l.held[key]; ok && (cur.expires.IsZero() || now.Before(cur.expires)) {
		return "", false, nil
	}

	// ttl <= 0: 直到 Release 才释放
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	l.held[key] = localEntry{token: token, expires: exp}
	return token, true, nil
}

func (l *LocalLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	// 过期后被别人重新获取的锁不能被旧持有者释放
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
