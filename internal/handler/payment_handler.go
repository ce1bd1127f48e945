package handler

import (
	"context"

	"trevpay/internal/handler/request"
	"trevpay/internal/handler/response"
	"trevpay/internal/model"
	"trevpay/internal/service/observer"
	"trevpay/internal/service/payment"
	"trevpay/pkg/errno"
	"trevpay/pkg/logger"
	"trevpay/pkg/wallet/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	gateway         *payment.Gateway
	conn            observer.Connectivity
	defaultContract string
}

// NewPaymentHandler contract 为请求未指定合约地址时的默认值
func NewPaymentHandler(g *payment.Gateway, conn observer.Connectivity, contract string) *PaymentHandler {
	return &PaymentHandler{gateway: g, conn: conn, defaultContract: contract}
}

// Submit 发起支付. 离线, 无钱包或 ?queue=true 时入队
// @Summary 发起支付
// @Tags Payment
// @Accept json
// @Produce json
// @Param queue query bool false "强制入队"
// @Param request body request.SubmitPaymentRequest true "Payment Request"
// @Success 200 {object} response.Response
// @Router /api/v1/payments [post]
func (h *PaymentHandler) Submit(c *gin.Context) {
	// 1. 绑定参数
	var req request.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	var q request.PaymentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	pr, err := req.ToPaymentRequest(h.defaultContract)
	if err != nil {
		response.Error(c, err)
		return
	}

	// 2. 入队或直接上链
	h.dispatch(c, pr, q.Queue)
}

// Scan 扫码支付: 解析二维码 payload 后与 Submit 走同一流程
// @Summary 扫码支付
// @Tags Payment
// @Accept json
// @Produce json
// @Param queue query bool false "强制入队"
// @Param request body request.ScanPaymentRequest true "Scan Request"
// @Success 200 {object} response.Response
// @Router /api/v1/payments/scan [post]
func (h *PaymentHandler) Scan(c *gin.Context) {
	var req request.ScanPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	var q request.PaymentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	pr, err := req.ToPaymentRequest()
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dispatch(c, pr, q.Queue)
}

// dispatch 离线, 无钱包或强制入队时入队, 否则直接上链.
// 广播后客户端断开也要把记账做完
func (h *PaymentHandler) dispatch(c *gin.Context, pr types.PaymentRequest, queue bool) {
	ctx := context.WithoutCancel(c.Request.Context())
	if queue || !h.conn.Online() || !h.gateway.HasWallet() {
		p, err := h.gateway.QueuePayment(ctx, pr)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, payment.Result{
			Success:   true,
			QueueID:   p.ID,
			ReceiptID: p.ReceiptID,
			Status:    model.QueueStatusQueued,
		})
		return
	}

	res, err := h.gateway.SubmitPayment(ctx, pr)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *PaymentHandler) ListQueue(c *gin.Context) {
	response.Success(c, h.gateway.QueuedPayments())
}

func (h *PaymentHandler) GetQueued(c *gin.Context) {
	p, err := h.gateway.QueuedPayment(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

func (h *PaymentHandler) RemoveQueued(c *gin.Context) {
	id := c.Param("id")
	if err := h.gateway.RemoveQueuedPayment(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// Process 手动处理队列; 已有处理在进行时 started=false
func (h *PaymentHandler) Process(c *gin.Context) {
	if !h.conn.Online() {
		response.Error(c, errno.ErrOffline)
		return
	}
	if !h.gateway.HasWallet() {
		response.Error(c, errno.ErrOffline.WithMessage("no wallet client configured"))
		return
	}

	processed, started := h.gateway.ProcessQueuedPayments(context.WithoutCancel(c.Request.Context()))
	logger.Info("Manual queue processing finished", zap.Int("processed", processed), zap.Bool("started", started))
	response.Success(c, gin.H{
		"processed":  processed,
		"started":    started,
		"statistics": h.gateway.Statistics(),
	})
}

// Clear 清除 completed / failed 条目
func (h *PaymentHandler) Clear(c *gin.Context) {
	if err := h.gateway.ClearCompletedPayments(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.gateway.Statistics())
}

func (h *PaymentHandler) Statistics(c *gin.Context) {
	response.Success(c, h.gateway.Statistics())
}
