package handler

import (
	"time"

	"trevpay/internal/handler/response"
	"trevpay/internal/model"
	"trevpay/internal/service/ledger"
	"trevpay/internal/service/payment"
	"trevpay/internal/service/receipt"
	"trevpay/internal/service/syncer"
	"trevpay/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// activeWindow 最近一次收款在此窗口内的司机计为活跃
const activeWindow = 24 * time.Hour

// AdminStatistics 管理端首页汇总
type AdminStatistics struct {
	TotalDrivers      int             `json:"total_drivers"`
	ActiveDrivers     int             `json:"active_drivers"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TodayTransactions int             `json:"today_transactions"`
	QueuedPayments    int             `json:"queued_payments"`
	FailedPayments    int             `json:"failed_payments"`
}

// SystemStatus 设备运行状态
type SystemStatus struct {
	IsOnline       bool   `json:"is_online"`
	UnsyncedCount  int    `json:"unsynced_count"`
	DatabaseStatus string `json:"database_status"`
	LastSync       string `json:"last_sync"`
	SyncInProgress bool   `json:"sync_in_progress"`
	LastError      string `json:"last_error,omitempty"`
}

type SystemHandler struct {
	store    *store.Store
	receipts *receipt.Service
	gateway  *payment.Gateway
	ledger   *ledger.Ledger
	engine   *syncer.Engine
	now      func() time.Time
}

func NewSystemHandler(s *store.Store, receipts *receipt.Service, g *payment.Gateway, l *ledger.Ledger, e *syncer.Engine) *SystemHandler {
	return &SystemHandler{store: s, receipts: receipts, gateway: g, ledger: l, engine: e, now: time.Now}
}

// Statistics godoc
// @Summary 管理端统计
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Response{data=AdminStatistics}
// @Router /api/v1/statistics [get]
func (h *SystemHandler) Statistics(c *gin.Context) {
	response.Success(c, BuildStatistics(h.receipts.Receipts(0), h.gateway.Statistics(), h.now()))
}

func (h *SystemHandler) Drivers(c *gin.Context) {
	response.Success(c, h.receipts.DriverSummaries())
}

func (h *SystemHandler) Status(c *gin.Context) {
	st := h.engine.GetSyncStatus()
	dbStatus := "healthy"
	if !h.store.Ready() {
		dbStatus = "unavailable"
	}
	response.Success(c, SystemStatus{
		IsOnline:       st.IsOnline,
		UnsyncedCount:  h.ledger.UnsyncedCount(),
		DatabaseStatus: dbStatus,
		LastSync:       st.LastSync,
		SyncInProgress: st.SyncInProgress,
		LastError:      st.LastError,
	})
}

// BuildStatistics "今天" 按 now 所在时区的自然日计算
func BuildStatistics(receipts []model.ReceiptRecord, queue payment.QueueStatistics, now time.Time) AdminStatistics {
	st := AdminStatistics{
		TotalRevenue:   decimal.Zero,
		QueuedPayments: queue.Queued,
		FailedPayments: queue.Failed,
	}

	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).UnixMilli()
	activeSince := now.Add(-activeWindow).UnixMilli()

	drivers := make(map[string]bool)
	for _, r := range receipts {
		if _, seen := drivers[r.DriverID]; !seen {
			drivers[r.DriverID] = false
		}
		if r.CreatedAt >= activeSince {
			drivers[r.DriverID] = true
		}
		if r.Status == model.ReceiptPaid {
			st.TotalRevenue = st.TotalRevenue.Add(r.Amount)
		}
		if r.CreatedAt >= startOfDay {
			st.TodayTransactions++
		}
	}

	st.TotalDrivers = len(drivers)
	for _, active := range drivers {
		if active {
			st.ActiveDrivers++
		}
	}
	return st
}
