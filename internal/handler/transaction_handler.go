package handler

import (
	"time"

	"trevpay/internal/handler/request"
	"trevpay/internal/handler/response"
	"trevpay/internal/service/ledger"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	ledger *ledger.Ledger
	now    func() time.Time
}

func NewTransactionHandler(l *ledger.Ledger) *TransactionHandler {
	return &TransactionHandler{ledger: l, now: time.Now}
}

// List 本地账本, 按时间倒序
// @Summary 交易列表
// @Tags Ledger
// @Produce json
// @Param limit query int false "最多返回条数"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	var q request.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}
	response.Success(c, h.ledger.Transactions(q.Limit))
}

// Create 记一笔本地交易; 在线时立即触发同步
// @Summary 新增交易
// @Tags Ledger
// @Accept json
// @Produce json
// @Param request body request.CreateTransactionRequest true "Transaction"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	// 1. 绑定参数
	var req request.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	// 2. 写入账本
	rec := req.ToRecord(h.now())
	if err := h.ledger.AddTransaction(c.Request.Context(), rec); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, rec)
}
