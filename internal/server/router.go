package server

import (
	"trevpay/internal/bootstrap"
	"trevpay/internal/handler"
	"trevpay/internal/server/routes"
	"trevpay/pkg/monitor"
	"trevpay/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(app *bootstrap.App) *gin.Engine {
	// 0. 初始化监控指标与校验器
	monitor.Init()
	validator.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	routes.RegisterLedgerRoutes(api,
		handler.NewTransactionHandler(app.Ledger),
		handler.NewReceiptHandler(app.Receipts),
	)
	routes.RegisterPaymentRoutes(api,
		handler.NewPaymentHandler(app.Gateway, app.Connectivity, app.Config.Wallet.ContractAddress),
	)
	routes.RegisterSystemRoutes(api,
		handler.NewSyncHandler(app.Engine, app.Connectivity),
		handler.NewSystemHandler(app.Store, app.Receipts, app.Gateway, app.Ledger, app.Engine),
		handler.NewEventHandler(app.Notifier),
	)

	return r
}
