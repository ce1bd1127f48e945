package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trevpay/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaConsumer struct {
	brokers []string
	groupID string

	mu     sync.Mutex
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string) *KafkaConsumer {
	return &KafkaConsumer{brokers: brokers, groupID: groupID}
}

// Subscribe 手动提交 offset: handler 失败的消息不提交, 重启后从该位置重新消费
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, handler Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     c.groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset, // 新消费组从头补齐
	})
	c.mu.Lock()
	c.reader = reader
	c.mu.Unlock()

	logger.Info("Kafka consumer started", zap.String("topic", topic), zap.String("group", c.groupID))

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("Kafka fetch failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		msg := &Message{
			ID:      fmt.Sprintf("%d/%d", m.Partition, m.Offset),
			Topic:   topic,
			Key:     string(m.Key),
			Payload: m.Value,
		}
		if err := handler(ctx, msg); err != nil {
			logger.Error("Kafka message handling failed", zap.String("key", msg.Key), zap.Error(err))
			continue
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			logger.Error("Kafka commit failed", zap.String("key", msg.Key), zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
