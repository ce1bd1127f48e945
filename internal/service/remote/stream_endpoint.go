package remote

import (
	"context"
	"encoding/json"

	"trevpay/internal/model"
	"trevpay/internal/service/mq"
)

// StreamEndpoint 把交易发布到 kafka / redis stream, 由 Sink 落库.
// 发布成功即视为已同步; 幂等由 Sink 的 upsert 保证
type StreamEndpoint struct {
	producer mq.Producer
	topic    string
}

func NewStreamEndpoint(producer mq.Producer, topic string) *StreamEndpoint {
	return &StreamEndpoint{producer: producer, topic: topic}
}

func (e *StreamEndpoint) Upsert(ctx context.Context, tx model.TransactionRecord) error {
	payload, err := json.Marshal(EventOf(tx))
	if err != nil {
		return err
	}
	return e.producer.Publish(ctx, e.topic, tx.ID, payload)
}
