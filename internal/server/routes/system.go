package routes

import (
	"trevpay/internal/handler"

	"github.com/gin-gonic/gin"
)

// RegisterSystemRoutes 同步, 联网状态, 统计与实时推送
func RegisterSystemRoutes(rg *gin.RouterGroup, sync *handler.SyncHandler, sys *handler.SystemHandler, events *handler.EventHandler) {
	rg.POST("/sync", sync.Trigger)
	rg.GET("/sync/status", sync.Status)
	rg.POST("/connectivity", sync.SetConnectivity)

	rg.GET("/statistics", sys.Statistics)
	rg.GET("/drivers", sys.Drivers)
	rg.GET("/status", sys.Status)

	rg.GET("/events", events.Stream)
}
