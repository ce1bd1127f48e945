package syncer

import (
	"time"

	"trevpay/internal/service/payment"
	"trevpay/internal/service/receipt"

	"github.com/shopspring/decimal"
)

const recentReceipts = 50

// SyncStatus 对外的同步状态
type SyncStatus struct {
	IsOnline       bool   `json:"is_online"`
	LastSync       string `json:"last_sync"` // RFC3339 或 "Never"
	PendingSync    int    `json:"pending_sync"`
	SyncInProgress bool   `json:"sync_in_progress"`
	LastError      string `json:"last_error,omitempty"`
}

// EngineStatus 引擎运行状态
type EngineStatus struct {
	IsRunning bool   `json:"is_running"`
	IsSyncing bool   `json:"is_syncing"`
	LastSync  string `json:"last_sync"`
}

// QueuedAmount 队列中一笔待上链金额 (token 数量)
type QueuedAmount struct {
	ID         string          `json:"id"`
	DriverID   string          `json:"driver_id"`
	DriverName string          `json:"driver_name"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  int64           `json:"created_at"`
}

// SyncData 管理端拉取的汇总数据
type SyncData struct {
	Drivers        []receipt.DriverSummary `json:"drivers"`
	QueuedPayments []QueuedAmount          `json:"queued_payments"`
}

// Statistics 同步后推送的汇总
type Statistics struct {
	Receipts receipt.Statistics      `json:"receipts"`
	Queue    payment.QueueStatistics `json:"queue"`
	Unsynced int                     `json:"unsynced"`
}

func (e *Engine) GetSyncStatus() SyncStatus {
	st := SyncStatus{
		IsOnline:       e.conn.Online(),
		SyncInProgress: e.syncing.Load(),
	}
	if l := e.currentLedger(); l != nil {
		st.PendingSync = l.UnsyncedCount()
	}

	e.stateMu.RLock()
	st.LastSync = formatLastSync(e.lastSync)
	st.LastError = e.lastError
	e.stateMu.RUnlock()
	return st
}

func (e *Engine) GetStatus() EngineStatus {
	e.cronMu.Lock()
	running := e.cron != nil
	e.cronMu.Unlock()

	e.stateMu.RLock()
	last := formatLastSync(e.lastSync)
	e.stateMu.RUnlock()

	return EngineStatus{IsRunning: running, IsSyncing: e.syncing.Load(), LastSync: last}
}

// LastSync 零值表示从未同步
func (e *Engine) LastSync() time.Time {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.lastSync
}

func (e *Engine) GetSyncData() SyncData {
	data := SyncData{QueuedPayments: []QueuedAmount{}}
	if e.receipts != nil {
		data.Drivers = e.receipts.DriverSummaries()
	}
	if q := e.currentQueue(); q != nil {
		for _, p := range q.QueuedPayments() {
			if !p.Pending() {
				continue
			}
			units, _ := decimal.NewFromString(p.Amount)
			data.QueuedPayments = append(data.QueuedPayments, QueuedAmount{
				ID:         p.ID,
				DriverID:   p.DriverID,
				DriverName: p.DriverName,
				Amount:     units.Shift(-18),
				CreatedAt:  p.CreatedAt,
			})
		}
	}
	return data
}

func (e *Engine) Statistics() Statistics {
	var st Statistics
	if e.receipts != nil {
		st.Receipts = e.receipts.Statistics()
	}
	if q := e.currentQueue(); q != nil {
		st.Queue = q.Statistics()
	}
	if l := e.currentLedger(); l != nil {
		st.Unsynced = l.UnsyncedCount()
	}
	return st
}

func formatLastSync(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Format(time.RFC3339)
}
