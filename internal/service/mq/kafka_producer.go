package mq

import (
	"context"
	"fmt"
	"time"

	"trevpay/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer Hash balancer: 同一交易 id 总是写入同一分区
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireAll, // 同步引擎只在确认后标记 synced
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, _ string, key string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload})
	if err != nil {
		logger.Error("Kafka publish failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
