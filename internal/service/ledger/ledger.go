// Package ledger is the Transaction Cache. It mirrors the transactions
// table in memory, tracks how many entries still need to reach the remote
// system and kicks the sync engine when connectivity allows.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"trevpay/internal/model"
	"trevpay/internal/service/observer"
	"trevpay/pkg/logger"
	"trevpay/pkg/monitor"
	"trevpay/pkg/validator"

	"go.uber.org/zap"
)

// Repository 由 *store.Store 实现
type Repository interface {
	Init(ctx context.Context) error
	InsertTransaction(ctx context.Context, rec *model.TransactionRecord) error
	GetAllTransactions(ctx context.Context, limit int) ([]model.TransactionRecord, error)
	GetUnsyncedTransactions(ctx context.Context) ([]model.TransactionRecord, error)
	MarkTransactionAsSynced(ctx context.Context, id string) error
	GetUnsyncedCount(ctx context.Context) (int64, error)
	ClearAllTransactions(ctx context.Context) error
}

// Syncer 同步引擎; 单飞由引擎保证, 这里不重复加锁
type Syncer interface {
	TriggerSync(ctx context.Context) bool
	// PushTransactions 推送到远端, 返回推送成功的 id
	PushTransactions(ctx context.Context, txs []model.TransactionRecord) ([]string, error)
}

type Ledger struct {
	repo   Repository
	syncer Syncer
	conn   observer.Connectivity

	mu           sync.RWMutex
	transactions []model.TransactionRecord // 新的在前
	unsynced     int
	online       bool

	initOnce    sync.Once
	unsubscribe func()
	bg          sync.WaitGroup
}

func New(repo Repository, syncer Syncer, conn observer.Connectivity) *Ledger {
	return &Ledger{repo: repo, syncer: syncer, conn: conn}
}

// Initialize 载入交易并订阅网络状态; 在线且有未同步记录时立即同步一次
func (l *Ledger) Initialize(ctx context.Context) error {
	if err := l.repo.Init(ctx); err != nil {
		return err
	}
	if err := l.RefreshTransactions(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.online = l.conn.Online()
	online, pending := l.online, l.unsynced
	l.mu.Unlock()

	l.initOnce.Do(func() {
		l.unsubscribe = l.conn.Subscribe(l.SetOnlineStatus)
	})

	logger.Info("Transaction ledger initialized",
		zap.Int("unsynced", pending), zap.Bool("online", online))

	if online && pending > 0 {
		l.triggerSync()
	}
	return nil
}

// Close 取消订阅并等待后台同步结束
func (l *Ledger) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
	l.bg.Wait()
}

// Wait 等待已触发的后台同步完成
func (l *Ledger) Wait() {
	l.bg.Wait()
}

// AddTransaction 先落盘再更新内存; 在线时尝试同步, 结果不影响返回值
func (l *Ledger) AddTransaction(ctx context.Context, rec *model.TransactionRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	if err := l.repo.InsertTransaction(ctx, rec); err != nil {
		logger.Error("Failed to add transaction", zap.String("id", rec.ID), zap.Error(err))
		return err
	}

	l.mu.Lock()
	l.transactions = append([]model.TransactionRecord{*rec}, l.transactions...)
	l.unsynced++
	online := l.online
	l.reportLocked()
	l.mu.Unlock()

	logger.Info("Transaction added", zap.String("id", rec.ID), zap.String("type", rec.Type))

	if online {
		l.triggerSync()
	}
	return nil
}

// MarkTransactionAsSynced 写入 synced=true, 未同步计数不低于 0
func (l *Ledger) MarkTransactionAsSynced(ctx context.Context, id string) error {
	if err := l.repo.MarkTransactionAsSynced(ctx, id); err != nil {
		return err
	}

	l.mu.Lock()
	found := false
	for i := range l.transactions {
		if l.transactions[i].ID != id {
			continue
		}
		found = true
		if !l.transactions[i].Synced {
			l.transactions[i].Synced = true
			if l.unsynced > 0 {
				l.unsynced--
			}
		}
		break
	}
	l.reportLocked()
	l.mu.Unlock()

	if !found {
		// 内存里没有 (外部写入), 以存储为准重新计数
		n, err := l.repo.GetUnsyncedCount(ctx)
		if err != nil {
			return err
		}
		l.mu.Lock()
		l.unsynced = int(n)
		l.reportLocked()
		l.mu.Unlock()
	}
	return nil
}

// SyncPendingTransactions 离线时直接返回; 未同步列表从存储读取而不是内存
func (l *Ledger) SyncPendingTransactions(ctx context.Context) error {
	if !l.Online() {
		logger.Info("Offline, skipping transaction sync")
		return nil
	}

	pending, err := l.repo.GetUnsyncedTransactions(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	logger.Info("Syncing pending transactions", zap.Int("count", len(pending)))
	pushed, pushErr := l.syncer.PushTransactions(ctx, pending)

	// 部分成功也要落标记
	for _, id := range pushed {
		if err := l.MarkTransactionAsSynced(ctx, id); err != nil {
			logger.Error("Failed to mark transaction synced", zap.String("id", id), zap.Error(err))
			if pushErr == nil {
				pushErr = err
			}
		}
	}
	if pushErr != nil {
		return fmt.Errorf("sync transactions: %w", pushErr)
	}
	return nil
}

// RefreshTransactions 从存储重新加载并重新计数
func (l *Ledger) RefreshTransactions(ctx context.Context) error {
	list, err := l.repo.GetAllTransactions(ctx, 0)
	if err != nil {
		logger.Error("Failed to load transactions", zap.Error(err))
		return err
	}

	unsynced := 0
	for _, tx := range list {
		if !tx.Synced {
			unsynced++
		}
	}

	l.mu.Lock()
	l.transactions = list
	l.unsynced = unsynced
	l.reportLocked()
	l.mu.Unlock()
	return nil
}

// ClearAllTransactions 维护操作, 会清掉同步标记
func (l *Ledger) ClearAllTransactions(ctx context.Context) error {
	if err := l.repo.ClearAllTransactions(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.transactions = nil
	l.unsynced = 0
	l.reportLocked()
	l.mu.Unlock()
	return nil
}

// SetOnlineStatus 更新在线状态; offline -> online 时触发同步
func (l *Ledger) SetOnlineStatus(online bool) {
	l.mu.Lock()
	was := l.online
	l.online = online
	l.mu.Unlock()

	if !was && online {
		logger.Info("Back online, triggering sync")
		l.triggerSync()
	}
}

func (l *Ledger) Online() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.online
}

// Transactions limit <= 0 返回全部
func (l *Ledger) Transactions(limit int) []model.TransactionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.transactions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.TransactionRecord, n)
	copy(out, l.transactions[:n])
	return out
}

func (l *Ledger) UnsyncedCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.unsynced
}

func (l *Ledger) triggerSync() {
	l.bg.Add(1)
	go func() {
		defer l.bg.Done()
		if !l.syncer.TriggerSync(context.Background()) {
			logger.Debug("Sync trigger did not complete a pass")
		}
	}()
}

func (l *Ledger) reportLocked() {
	monitor.Business.UnsyncedTransactions.Set(float64(l.unsynced))
}

func validate(rec *model.TransactionRecord) error {
	return validator.Struct(rec)
}
