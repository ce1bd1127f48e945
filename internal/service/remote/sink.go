package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"trevpay/internal/event"
	"trevpay/internal/service/mq"
	"trevpay/pkg/logger"

	"go.uber.org/zap"
)

// Sink 消费同步流并 upsert 到远端库
type Sink struct {
	consumer mq.Consumer
	target   Endpoint
	topic    string
}

func NewSink(consumer mq.Consumer, target Endpoint, topic string) *Sink {
	return &Sink{consumer: consumer, target: target, topic: topic}
}

// Run 阻塞直到 ctx 取消
func (s *Sink) Run(ctx context.Context) error {
	logger.Info("Sync sink running", zap.String("topic", s.topic))
	return s.consumer.Subscribe(ctx, s.topic, s.Handle)
}

// Handle 处理一条消息; 重复投递只会覆盖同一行
func (s *Sink) Handle(ctx context.Context, msg *mq.Message) error {
	var ev event.TransactionSyncedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		// 无法解析的消息重试也没有意义
		logger.Error("Dropping malformed sync message", zap.String("id", msg.ID), zap.Error(err))
		return nil
	}

	tx, err := RecordOf(ev)
	if err != nil {
		logger.Error("Dropping sync message with bad amount", zap.String("id", ev.ID), zap.Error(err))
		return nil
	}

	if err := s.target.Upsert(ctx, tx); err != nil {
		return fmt.Errorf("sink upsert %s: %w", tx.ID, err)
	}
	logger.Debug("Transaction synced", zap.String("id", tx.ID))
	return nil
}

func (s *Sink) Close() error {
	return s.consumer.Close()
}
