// sync-sink 消费同步流 (kafka / redis stream), 幂等写入远端 postgres
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"trevpay/internal/service/mq"
	"trevpay/internal/service/remote"
	"trevpay/pkg/config"
	"trevpay/pkg/database"
	"trevpay/pkg/logger"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	config.Init()
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	cfg := config.Global

	db, err := database.ConnectPostgres(cfg.DB.DSN(), gormlogger.Warn)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	defer database.Close(db)
	target := remote.NewGormEndpoint(db)

	var consumer mq.Consumer
	switch cfg.Remote.Driver {
	case "kafka":
		logger.Info("使用 Kafka 作为同步流...")
		consumer = mq.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Remote.Group)
	case "redis":
		logger.Info("使用 Redis Streams 作为同步流...")
		rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
		defer rdb.Close()
		hostname, _ := os.Hostname()
		consumer = mq.NewRedisConsumer(rdb, cfg.Remote.Group, hostname)
	default:
		logger.Fatal("remote.driver 必须是 kafka 或 redis", zap.String("driver", cfg.Remote.Driver))
	}

	sink := remote.NewSink(consumer, target, cfg.Remote.Topic)
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Sync sink started", zap.String("topic", cfg.Remote.Topic), zap.String("group", cfg.Remote.Group))
	if err := sink.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Sync sink stopped", zap.Error(err))
	}
	logger.Info("Sync sink exited")
}
