package routes

import (
	"trevpay/internal/handler"

	"github.com/gin-gonic/gin"
)

// RegisterLedgerRoutes 本地账本与收据
func RegisterLedgerRoutes(rg *gin.RouterGroup, tx *handler.TransactionHandler, rc *handler.ReceiptHandler) {
	txGroup := rg.Group("/transactions")
	{
		txGroup.GET("", tx.List)
		txGroup.POST("", tx.Create)
	}

	receiptGroup := rg.Group("/receipts")
	{
		receiptGroup.GET("", rc.List)
		receiptGroup.GET("/:id", rc.Get)
		receiptGroup.GET("/:id/text", rc.Text)
		receiptGroup.DELETE("/:id", rc.Delete)
	}
}
