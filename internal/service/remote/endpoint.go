// Package remote holds the Remote Sync Endpoint implementations. Every
// endpoint upserts by transaction id, so a retried push never creates a
// second remote row.
package remote

import (
	"context"

	"trevpay/internal/event"
	"trevpay/internal/model"

	"github.com/shopspring/decimal"
)

// Endpoint 按 id upsert 一条交易
type Endpoint interface {
	Upsert(ctx context.Context, tx model.TransactionRecord) error
}

// SyncedTransaction 远端库中的交易 (synced_transactions 表)
type SyncedTransaction struct {
	ID        string          `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Type      string          `gorm:"type:varchar(16);not null" json:"type"`
	Title     string          `gorm:"type:varchar(255);not null" json:"title"`
	Subtitle  string          `gorm:"type:varchar(255)" json:"subtitle"`
	Amount    decimal.Decimal `gorm:"type:varchar(80);not null" json:"amount"`
	Currency  string          `gorm:"type:varchar(8);not null" json:"currency"`
	Timestamp int64           `gorm:"not null;index" json:"timestamp"`
	CreatedAt int64           `gorm:"not null" json:"created_at"`
	UpdatedAt int64           `gorm:"not null" json:"updated_at"`
	SyncedAt  int64           `gorm:"not null" json:"synced_at"`
}

func (SyncedTransaction) TableName() string {
	return "synced_transactions"
}

// EventOf 转成同步流消息
func EventOf(tx model.TransactionRecord) event.TransactionSyncedEvent {
	return event.TransactionSyncedEvent{
		ID:        tx.ID,
		Type:      tx.Type,
		Title:     tx.Title,
		Subtitle:  tx.Subtitle,
		Amount:    tx.Amount.String(),
		Currency:  tx.Currency,
		Timestamp: tx.Timestamp,
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
	}
}

// RecordOf 同步流消息转回交易
func RecordOf(ev event.TransactionSyncedEvent) (model.TransactionRecord, error) {
	amount, err := decimal.NewFromString(ev.Amount)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	return model.TransactionRecord{
		ID:        ev.ID,
		Type:      ev.Type,
		Title:     ev.Title,
		Subtitle:  ev.Subtitle,
		Amount:    amount,
		Currency:  ev.Currency,
		Timestamp: ev.Timestamp,
		CreatedAt: ev.CreatedAt,
		UpdatedAt: ev.UpdatedAt,
	}, nil
}
