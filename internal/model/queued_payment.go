package model

// 队列支付状态
const (
	QueueStatusQueued     = "queued"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// QueuedPayment 待上链的支付请求 (queued_payments 表)
// 内存队列的持久化副本, 重启后由 payment.Gateway 恢复
type QueuedPayment struct {
	ID               string `gorm:"primaryKey;type:varchar(128)" json:"id"`
	ContractAddress  string `gorm:"type:varchar(64);not null" json:"contract_address"`
	RecipientAddress string `gorm:"type:varchar(64);not null" json:"recipient_address"`
	Amount           string `gorm:"type:varchar(80);not null" json:"amount"` // 整数 token 单位, 十进制字符串
	DriverID         string `gorm:"type:varchar(128);not null" json:"driver_id"`
	DriverName       string `gorm:"type:varchar(255);not null" json:"driver_name"`
	PaymentMethod    string `gorm:"type:varchar(64)" json:"payment_method,omitempty"`
	TripDetails      string `gorm:"type:text" json:"trip_details,omitempty"` // JSON
	Status           string `gorm:"type:varchar(16);not null;default:'queued';index" json:"status"`
	CreatedAt        int64  `gorm:"not null;index;autoCreateTime:milli" json:"created_at"`
	ProcessedAt      *int64 `json:"processed_at,omitempty"`
	TransactionHash  string `gorm:"type:varchar(128)" json:"transaction_hash,omitempty"`
	ReceiptID        string `gorm:"type:varchar(128)" json:"receipt_id,omitempty"`
	Error            string `gorm:"type:text" json:"error,omitempty"`
}

func (QueuedPayment) TableName() string {
	return "queued_payments"
}

// Pending 是否仍在 queued/processing 集合中
func (q *QueuedPayment) Pending() bool {
	return q.Status == QueueStatusQueued || q.Status == QueueStatusProcessing
}
