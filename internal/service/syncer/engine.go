// Package syncer is the Sync Engine: a cron-driven, single-flight pass that
// pushes unsynced transactions to the remote endpoint and drains the
// payment queue while the device is online.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"trevpay/internal/event"
	"trevpay/internal/model"
	"trevpay/internal/service/observer"
	"trevpay/internal/service/payment"
	"trevpay/internal/service/receipt"
	"trevpay/internal/service/remote"
	"trevpay/pkg/logger"
	"trevpay/pkg/monitor"
	"trevpay/pkg/utils/lock"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// lockKey 多实例部署时共享同一把锁
const lockKey = "trevpay:lock:sync"

// Ledger 交易缓存. Ledger 和 Queue 都依赖引擎, 所以构造后通过 UseLedger/UseQueue 注入
type Ledger interface {
	SyncPendingTransactions(ctx context.Context) error
	UnsyncedCount() int
}

// Queue 支付队列
type Queue interface {
	HasWallet() bool
	ProcessQueuedPayments(ctx context.Context) (processed int, started bool)
	QueuedPayments() []model.QueuedPayment
	Statistics() payment.QueueStatistics
}

// Receipts 收据缓存
type Receipts interface {
	Receipts(limit int) []model.ReceiptRecord
	RefreshReceipts(ctx context.Context) error
	Statistics() receipt.Statistics
	DriverSummaries() []receipt.DriverSummary
}

// Publisher 更新广播
type Publisher interface {
	Publish(typ string, data interface{})
}

type Engine struct {
	endpoint remote.Endpoint
	queue    Queue
	receipts Receipts
	conn     observer.Connectivity
	locker   lock.DistributedLock
	notifier Publisher
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time

	attachMu sync.RWMutex
	ledger   Ledger

	cronMu sync.Mutex
	cron   *cron.Cron

	syncing   atomic.Bool
	stateMu   sync.RWMutex
	lastSync  time.Time
	lastError string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLockTTL 锁的过期时间, 防止持锁进程崩溃后永远无法同步
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.lockTTL = ttl }
}

// WithNotifier 每轮结束后发布刷新通知
func WithNotifier(p Publisher) Option {
	return func(e *Engine) { e.notifier = p }
}

func NewEngine(endpoint remote.Endpoint, receipts Receipts, conn observer.Connectivity, locker lock.DistributedLock, interval time.Duration, opts ...Option) *Engine {
	e := &Engine{
		endpoint: endpoint,
		receipts: receipts,
		conn:     conn,
		locker:   locker,
		interval: interval,
		lockTTL:  2 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UseLedger 注入交易缓存
func (e *Engine) UseLedger(l Ledger) {
	e.attachMu.Lock()
	e.ledger = l
	e.attachMu.Unlock()
}

// UseQueue 注入支付队列
func (e *Engine) UseQueue(q Queue) {
	e.attachMu.Lock()
	e.queue = q
	e.attachMu.Unlock()
}

func (e *Engine) currentLedger() Ledger {
	e.attachMu.RLock()
	defer e.attachMu.RUnlock()
	return e.ledger
}

func (e *Engine) currentQueue() Queue {
	e.attachMu.RLock()
	defer e.attachMu.RUnlock()
	return e.queue
}

// Start 启动定时同步; 重复调用不会创建第二个定时器
func (e *Engine) Start() error {
	e.cronMu.Lock()
	defer e.cronMu.Unlock()

	if e.cron != nil {
		return nil
	}

	c := cron.New()
	schedule := fmt.Sprintf("@every %s", e.interval)
	if _, err := c.AddFunc(schedule, func() { e.TriggerSync(context.Background()) }); err != nil {
		return fmt.Errorf("schedule sync %q: %w", schedule, err)
	}
	c.Start()
	e.cron = c

	logger.Info("Sync engine started", zap.Duration("interval", e.interval))
	return nil
}

// Stop 停止定时器并等待正在运行的任务结束; 可重复调用
func (e *Engine) Stop() {
	e.cronMu.Lock()
	c := e.cron
	e.cron = nil
	e.cronMu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	logger.Info("Sync engine stopped")
}

// TriggerSync 执行一轮同步. 离线或已有同步在进行时直接返回 false
func (e *Engine) TriggerSync(ctx context.Context) (ok bool) {
	if !e.conn.Online() {
		logger.Debug("Offline, sync skipped")
		monitor.Business.SyncPassesTotal.WithLabelValues("skipped").Inc()
		return false
	}

	// 进程内单飞; 分布式锁只负责多实例之间, 它的 TTL 可能短于一轮同步
	if !e.syncing.CompareAndSwap(false, true) {
		logger.Debug("Sync already in progress")
		monitor.Business.SyncPassesTotal.WithLabelValues("skipped").Inc()
		return false
	}
	defer e.syncing.Store(false)

	token, locked, err := e.locker.Acquire(ctx, lockKey, e.lockTTL)
	if err != nil || !locked {
		logger.Debug("Sync lock held by another instance", zap.Error(err))
		monitor.Business.SyncPassesTotal.WithLabelValues("skipped").Inc()
		return false
	}
	defer func() {
		if err := e.locker.Release(context.Background(), lockKey, token); err != nil {
			logger.Error("Failed to release sync lock", zap.Error(err))
		}
	}()

	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			e.finish(start, fmt.Errorf("sync panic: %v", r))
			ok = false
		}
	}()

	err = e.pass(ctx)
	e.finish(start, err)
	return err == nil
}

func (e *Engine) finish(start time.Time, err error) {
	monitor.Business.SyncDuration.Observe(e.now().Sub(start).Seconds())

	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if err != nil {
		e.lastError = err.Error()
		monitor.Business.SyncPassesTotal.WithLabelValues("error").Inc()
		logger.Error("Sync pass failed", zap.Error(err))
		return
	}
	e.lastError = ""
	monitor.Business.SyncPassesTotal.WithLabelValues("ok").Inc()
}

func (e *Engine) pass(ctx context.Context) error {
	logger.Info("Sync pass started")

	if e.receipts != nil {
		logger.Info("Receipts on device", zap.Int("count", len(e.receipts.Receipts(0))))
	}

	if l := e.currentLedger(); l != nil {
		if err := l.SyncPendingTransactions(ctx); err != nil {
			return err
		}
	}

	if q := e.currentQueue(); q != nil && q.HasWallet() {
		if n, started := q.ProcessQueuedPayments(ctx); started && n > 0 {
			logger.Info("Queued payments processed", zap.Int("count", n))
		}
	}

	e.stateMu.Lock()
	e.lastSync = e.now()
	e.stateMu.Unlock()

	e.publish(ctx)
	logger.Info("Sync pass completed")
	return nil
}

func (e *Engine) publish(ctx context.Context) {
	if e.notifier == nil {
		return
	}
	if e.receipts != nil {
		if err := e.receipts.RefreshReceipts(ctx); err != nil {
			logger.Warn("Receipt refresh after sync failed", zap.Error(err))
		}
		e.notifier.Publish(event.TypeDrivers, e.receipts.DriverSummaries())
		e.notifier.Publish(event.TypeReceipts, e.receipts.Receipts(recentReceipts))
	}
	if q := e.currentQueue(); q != nil {
		e.notifier.Publish(event.TypeQueue, q.QueuedPayments())
	}
	e.notifier.Publish(event.TypeStatistics, e.Statistics())
}

// PushTransactions 逐条 upsert 到远端, 返回成功的 id. 单条失败不影响其它记录
func (e *Engine) PushTransactions(ctx context.Context, txs []model.TransactionRecord) ([]string, error) {
	var (
		pushed []string
		errs   []error
	)
	for _, tx := range txs {
		if err := e.endpoint.Upsert(ctx, tx); err != nil {
			monitor.Business.RemoteUpsertsTotal.WithLabelValues("error").Inc()
			logger.Warn("Remote upsert failed", zap.String("id", tx.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", tx.ID, err))
			continue
		}
		monitor.Business.RemoteUpsertsTotal.WithLabelValues("ok").Inc()
		pushed = append(pushed, tx.ID)
	}
	return pushed, errors.Join(errs...)
}
