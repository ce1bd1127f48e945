// Package store is the Durable Store: the single source of truth for
// transactions, receipts, admin users and the persisted payment queue.
package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"trevpay/internal/model"
	"trevpay/pkg/errno"
	"trevpay/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time

	mu     sync.Mutex // 保护 Init/Close
	ready  atomic.Bool
	closed bool
}

type Option func(*Store)

// WithClock 替换时钟 (测试用)
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init 创建表和索引. 重复调用直接返回 nil
func (s *Store) Init(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load() {
		return nil
	}
	if s.closed {
		return errno.ErrStoreNotReady.WithMessage("store is closed")
	}

	if err := s.db.WithContext(ctx).AutoMigrate(model.AllModels()...); err != nil {
		logger.Error("Durable store schema migration failed", zap.Error(err))
		return fmt.Errorf("migrate schema: %w", err)
	}

	s.ready.Store(true)
	logger.Info("Durable store initialized")
	return nil
}

// Ready 是否已完成 Init
func (s *Store) Ready() bool {
	return s.ready.Load()
}

// Close 关闭底层连接, 之后的调用返回 ErrStoreNotReady
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.ready.Store(false)

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// conn 返回已就绪的连接; 未初始化时先执行一次 Init
func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s.db.WithContext(ctx), nil
}

func (s *Store) nowMilli() int64 {
	return s.now().UnixMilli()
}

// touch 生成 updated_at 表达式, 保证 updated_at >= created_at
func (s *Store) touch() interface{} {
	now := s.nowMilli()
	return gorm.Expr("CASE WHEN created_at > ? THEN created_at ELSE ? END", now, now)
}

func limited(q *gorm.DB, limit int) *gorm.DB {
	if limit > 0 {
		return q.Limit(limit)
	}
	return q
}
