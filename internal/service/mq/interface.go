// Package mq carries synced transactions between the device-side sync
// engine and the sink that writes them into the remote database.
package mq

import "context"

// Message 一条同步消息
type Message struct {
	ID      string // Redis Stream ID 或 Kafka partition/offset
	Topic   string
	Key     string // 交易 id
	Payload []byte // JSON, event.TransactionSyncedEvent
}

// Producer 生产者
type Producer interface {
	// Publish key 相同的消息落在同一分区, 保证同一交易的更新有序
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// Handler 返回 error 时消息不确认, 由 broker 重投
type Handler func(ctx context.Context, msg *Message) error

// Consumer 消费者
type Consumer interface {
	// Subscribe 阻塞消费直到 ctx 取消
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
