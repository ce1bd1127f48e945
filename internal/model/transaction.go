package model

import (
	"github.com/shopspring/decimal"
)

// 交易方向
const (
	TxTypeDeposit  = "deposit"
	TxTypeWithdraw = "withdraw"
)

// DefaultCurrency 本地货币符号 (Naira)
const DefaultCurrency = "₦"

// TransactionRecord 本地发起的账本记录 (transactions 表)
// ID 一旦创建不可修改; Synced 只能 false -> true (clear-all 除外)
type TransactionRecord struct {
	ID        string          `gorm:"primaryKey;type:varchar(128)" json:"id" validate:"required,max=128"`
	Type      string          `gorm:"type:varchar(16);not null;index;check:type IN ('deposit','withdraw')" json:"type" validate:"required,oneof=deposit withdraw"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title" validate:"required"`
	Subtitle  string          `gorm:"type:varchar(255)" json:"subtitle"`       // token 数量字符串, e.g. "0.5 POL"
	Amount    decimal.Decimal `gorm:"type:varchar(80);not null" json:"amount"` // 正数=收入, 负数=支出. 存为字符串, SQLite 的 NUMERIC 会丢精度
	Currency  string          `gorm:"type:varchar(8);not null;default:'₦'" json:"currency"`
	Timestamp int64           `gorm:"not null;index:idx_transactions_timestamp,sort:desc" json:"timestamp"` // ms
	Synced    bool            `gorm:"not null;default:false;index" json:"synced"`
	CreatedAt int64           `gorm:"not null;autoCreateTime:milli" json:"created_at"`
	UpdatedAt int64           `gorm:"not null;autoUpdateTime:milli" json:"updated_at"`
}

func (TransactionRecord) TableName() string {
	return "transactions"
}
