package routes

import (
	"trevpay/internal/handler"

	"github.com/gin-gonic/gin"
)

func RegisterPaymentRoutes(rg *gin.RouterGroup, h *handler.PaymentHandler) {
	paymentGroup := rg.Group("/payments")
	{
		paymentGroup.POST("", h.Submit)
		paymentGroup.POST("/scan", h.Scan)
		paymentGroup.GET("/statistics", h.Statistics)

		paymentGroup.GET("/queue", h.ListQueue)
		paymentGroup.POST("/queue/process", h.Process)
		paymentGroup.POST("/queue/clear", h.Clear)
		paymentGroup.GET("/queue/:id", h.GetQueued)
		paymentGroup.DELETE("/queue/:id", h.RemoveQueued)
	}
}
