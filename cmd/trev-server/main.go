package main

import (
	"context"

	"trevpay/internal/bootstrap"
	"trevpay/internal/server"
	"trevpay/pkg/config"
	"trevpay/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. 建立连接并构造服务
	ctx := context.Background()
	app, err := bootstrap.New(ctx, config.Global)
	if err != nil {
		logger.Fatal("服务初始化失败", zap.Error(err))
	}
	defer app.Close()

	// 3. 初始化存储, 恢复队列, 开始网络探测
	if err := app.Start(ctx); err != nil {
		logger.Fatal("服务启动失败", zap.Error(err))
	}

	// 4. 定时同步
	if err := app.StartScheduler(); err != nil {
		logger.Fatal("同步调度启动失败", zap.Error(err))
	}

	// 5. HTTP Server (阻塞直到收到信号)
	r := server.NewHTTPRouter(app)
	server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r).Run()

	logger.Info("系统已退出")
}
