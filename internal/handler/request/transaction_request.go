package request

import (
	"time"

	"trevpay/internal/model"
	"trevpay/pkg/safe_random"

	"github.com/shopspring/decimal"
)

type CreateTransactionRequest struct {
	ID        string          `json:"id" binding:"max=128"` // 为空时生成 tx_<ms>_<rand>
	Type      string          `json:"type" binding:"required,oneof=deposit withdraw"`
	Title     string          `json:"title" binding:"required,max=255"`
	Subtitle  string          `json:"subtitle" binding:"max=255"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" binding:"max=8"`
	Timestamp int64           `json:"timestamp"` // ms, 为空时取当前时间
}

// ToRecord 补齐默认值
func (r CreateTransactionRequest) ToRecord(now time.Time) *model.TransactionRecord {
	rec := &model.TransactionRecord{
		ID:        r.ID,
		Type:      r.Type,
		Title:     r.Title,
		Subtitle:  r.Subtitle,
		Amount:    r.Amount,
		Currency:  r.Currency,
		Timestamp: r.Timestamp,
	}
	if rec.ID == "" {
		rec.ID = safe_random.NewID("tx", now)
	}
	if rec.Currency == "" {
		rec.Currency = model.DefaultCurrency
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = now.UnixMilli()
	}
	return rec
}

type ListQuery struct {
	Limit int `form:"limit" binding:"min=0,max=1000"`
}
