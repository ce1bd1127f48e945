package handler

import (
	"trevpay/internal/handler/request"
	"trevpay/internal/handler/response"
	"trevpay/internal/service/observer"
	"trevpay/internal/service/syncer"
	"trevpay/pkg/errno"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	engine *syncer.Engine
	conn   *observer.ConnectivityMonitor
}

func NewSyncHandler(e *syncer.Engine, conn *observer.ConnectivityMonitor) *SyncHandler {
	return &SyncHandler{engine: e, conn: conn}
}

// Trigger 立即执行一轮同步. triggered=false 表示已有同步在进行或本轮出错
// @Summary 触发同步
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/sync [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	if !h.conn.Online() {
		response.Error(c, errno.ErrOffline)
		return
	}
	ok := h.engine.TriggerSync(c.Request.Context())
	response.Success(c, gin.H{
		"triggered": ok,
		"status":    h.engine.GetSyncStatus(),
	})
}

func (h *SyncHandler) Status(c *gin.Context) {
	response.Success(c, gin.H{
		"sync":   h.engine.GetSyncStatus(),
		"engine": h.engine.GetStatus(),
	})
}

// SetConnectivity 手动切换在线状态; 离线 -> 在线会触发一次同步
func (h *SyncHandler) SetConnectivity(c *gin.Context) {
	var req request.ConnectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	h.conn.SetOnline(*req.Online)
	response.Success(c, gin.H{"online": h.conn.Online()})
}
