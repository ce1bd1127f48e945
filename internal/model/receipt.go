package model

import (
	"encoding/json"

	"trevpay/pkg/wallet/types"

	"github.com/shopspring/decimal"
)

// 收据状态
const (
	ReceiptPaid   = "paid"
	ReceiptQueued = "queued"
	ReceiptFailed = "failed"
)

// 支付方式标签
const (
	PaymentMethodChain       = "Blockchain (POL)"
	PaymentMethodChainQueued = "Blockchain (POL) - Queued"
)

// ReceiptRecord 一次支付尝试的业务结果 (receipts 表)
type ReceiptRecord struct {
	ID              string          `gorm:"primaryKey;type:varchar(128)" json:"id"`
	TransactionID   string          `gorm:"type:varchar(128);not null;index" json:"transaction_id"`
	DriverID        string          `gorm:"type:varchar(128);not null;index" json:"driver_id"`
	DriverName      string          `gorm:"type:varchar(255);not null" json:"driver_name"`
	Amount          decimal.Decimal `gorm:"type:varchar(80);not null" json:"amount"` // 已换算为本地货币
	Currency        string          `gorm:"type:varchar(8);not null;default:'₦'" json:"currency"`
	PaymentMethod   string          `gorm:"type:varchar(64);not null" json:"payment_method"`
	Status          string          `gorm:"type:varchar(16);not null;index;check:status IN ('paid','queued','failed')" json:"status"`
	TransactionHash string          `gorm:"type:varchar(128)" json:"transaction_hash,omitempty"`
	ReceiptData     string          `gorm:"type:text" json:"receipt_data,omitempty"` // JSON, 见 ReceiptPayload
	CreatedAt       int64           `gorm:"not null;index:idx_receipts_created_at,sort:desc;autoCreateTime:milli" json:"created_at"`
	UpdatedAt       int64           `gorm:"not null;autoUpdateTime:milli" json:"updated_at"`
}

func (ReceiptRecord) TableName() string {
	return "receipts"
}

// ReceiptPayload 是 receipt_data 列的结构
type ReceiptPayload struct {
	RecipientAddress string             `json:"recipient_address,omitempty"`
	ContractAddress  string             `json:"contract_address,omitempty"`
	TokenAmount      string             `json:"token_amount,omitempty"` // 原始 token 单位 (wei)
	Location         string             `json:"location,omitempty"`
	TripDetails      *types.TripDetails `json:"trip_details,omitempty"`
	FailureReason    string             `json:"failure_reason,omitempty"`
	Degraded         bool               `json:"degraded_conversion,omitempty"` // 汇率不可用, 金额未换算
}

// Payload 解析 ReceiptData, 空值返回零值
func (r *ReceiptRecord) Payload() (ReceiptPayload, error) {
	var p ReceiptPayload
	if r.ReceiptData == "" {
		return p, nil
	}
	err := json.Unmarshal([]byte(r.ReceiptData), &p)
	return p, err
}

// SetPayload 序列化并写入 ReceiptData
func (r *ReceiptRecord) SetPayload(p ReceiptPayload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	r.ReceiptData = string(b)
	return nil
}
