package event

// 实时更新类型
const (
	TypeDrivers    = "driver_update"
	TypeReceipts   = "receipt_update"
	TypeQueue      = "queue_update"
	TypeStatistics = "statistics_update"
	TypeSystem     = "system_status_update"
)

// Update 推送给订阅者的一条更新
type Update struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"` // ms
}

// TransactionSyncedEvent 推送到同步流 (kafka / redis stream) 的消息体
// Topic: remote.topic, Key: transaction id
type TransactionSyncedEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Amount    string `json:"amount"` // Decimal string
	Currency  string `json:"currency"`
	Timestamp int64  `json:"timestamp"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}
