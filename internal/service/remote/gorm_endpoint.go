package remote

import (
	"context"
	"fmt"
	"time"

	"trevpay/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEndpoint 直接写远端数据库 (生产 postgres, 开发 sqlite 文件)
type GormEndpoint struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormEndpoint(db *gorm.DB) *GormEndpoint {
	return &GormEndpoint{db: db, now: time.Now}
}

// Migrate 开发环境建表; postgres 部署使用 cmd/migrate
func (e *GormEndpoint) Migrate(ctx context.Context) error {
	return e.db.WithContext(ctx).AutoMigrate(&SyncedTransaction{})
}

// Upsert INSERT ... ON CONFLICT (id) DO UPDATE
func (e *GormEndpoint) Upsert(ctx context.Context, tx model.TransactionRecord) error {
	row := SyncedTransaction{
		ID:        tx.ID,
		Type:      tx.Type,
		Title:     tx.Title,
		Subtitle:  tx.Subtitle,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		Timestamp: tx.Timestamp,
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
		SyncedAt:  e.now().UnixMilli(),
	}

	err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"type", "title", "subtitle", "amount", "currency", "timestamp", "updated_at", "synced_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert synced transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Count 远端行数
func (e *GormEndpoint) Count(ctx context.Context) (int64, error) {
	var n int64
	err := e.db.WithContext(ctx).Model(&SyncedTransaction{}).Count(&n).Error
	return n, err
}

// Get 按 id 读取远端行
func (e *GormEndpoint) Get(ctx context.Context, id string) (*SyncedTransaction, error) {
	var row SyncedTransaction
	if err := e.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
