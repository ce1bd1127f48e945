package handler

import (
	"net/http"

	"trevpay/internal/handler/request"
	"trevpay/internal/handler/response"
	"trevpay/internal/model"
	"trevpay/internal/service/receipt"

	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	receipts *receipt.Service
}

func NewReceiptHandler(s *receipt.Service) *ReceiptHandler {
	return &ReceiptHandler{receipts: s}
}

// List 支持按司机和状态过滤
// @Summary 收据列表
// @Tags Receipt
// @Produce json
// @Param driver query string false "司机 ID"
// @Param status query string false "paid | queued | failed"
// @Param limit query int false "最多返回条数"
// @Success 200 {object} response.Response
// @Router /api/v1/receipts [get]
func (h *ReceiptHandler) List(c *gin.Context) {
	var q request.ReceiptQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	var (
		list []model.ReceiptRecord
		err  error
	)
	switch {
	case q.Driver != "":
		list, err = h.receipts.GetReceiptsByDriver(ctx, q.Driver)
		if err == nil && q.Status != "" {
			list = byStatus(list, q.Status)
		}
	case q.Status != "":
		list, err = h.receipts.GetReceiptsByStatus(ctx, q.Status)
	default:
		list = h.receipts.Receipts(q.Limit)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	if q.Limit > 0 && len(list) > q.Limit {
		list = list[:q.Limit]
	}
	response.Success(c, list)
}

func (h *ReceiptHandler) Get(c *gin.Context) {
	rec, err := h.receipts.GetReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rec)
}

// Text 纯文本收据
func (h *ReceiptHandler) Text(c *gin.Context) {
	rec, err := h.receipts.GetReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.String(http.StatusOK, receipt.RenderText(rec))
}

func (h *ReceiptHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.receipts.DeleteReceipt(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

func byStatus(list []model.ReceiptRecord, status string) []model.ReceiptRecord {
	out := list[:0]
	for _, r := range list {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}
