package store

import (
	"context"
	"errors"
	"fmt"

	"trevpay/internal/model"
	"trevpay/pkg/errno"
	"trevpay/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InsertTransaction 写入一条新交易, synced 固定为 false
func (s *Store) InsertTransaction(ctx context.Context, rec *model.TransactionRecord) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	now := s.nowMilli()
	rec.Synced = false
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Currency == "" {
		rec.Currency = model.DefaultCurrency
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = now
	}

	if err := db.Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errno.ErrTransactionExists.WithMessage(fmt.Sprintf("transaction %s already exists", rec.ID))
		}
		return fmt.Errorf("insert transaction %s: %w", rec.ID, err)
	}
	return nil
}

// GetAllTransactions 按时间倒序返回, limit <= 0 表示不限制
func (s *Store) GetAllTransactions(ctx context.Context, limit int) ([]model.TransactionRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var list []model.TransactionRecord
	q := db.Order("timestamp DESC").Order("created_at DESC")
	if err := limited(q, limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return list, nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id string) (*model.TransactionRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rec model.TransactionRecord
	if err := db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return &rec, nil
}

// TransactionExists 用于收据关联校验
func (s *Store) TransactionExists(ctx context.Context, id string) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.TransactionRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check transaction %s: %w", id, err)
	}
	return count > 0, nil
}

// GetUnsyncedTransactions 返回所有未同步交易, 按创建时间正序 (FIFO)
func (s *Store) GetUnsyncedTransactions(ctx context.Context) ([]model.TransactionRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var list []model.TransactionRecord
	if err := db.Where("synced = ?", false).Order("created_at ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", err)
	}
	return list, nil
}

// MarkTransactionAsSynced synced -> true, 同时刷新 updated_at
func (s *Store) MarkTransactionAsSynced(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.TransactionRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"synced":     true,
		"updated_at": s.touch(),
	})
	if res.Error != nil {
		logger.Error("Mark transaction as synced failed", zap.String("id", id), zap.Error(res.Error))
		return fmt.Errorf("mark transaction %s synced: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		logger.Error("Mark transaction as synced: no such transaction", zap.String("id", id))
		return errno.ErrTransactionNotFound.WithMessage(fmt.Sprintf("transaction %s not found", id))
	}
	return nil
}

// TransactionUpdate 可修改的展示字段; id 与 synced 不在其中
type TransactionUpdate struct {
	Title     *string
	Subtitle  *string
	Amount    *decimal.Decimal
	Currency  *string
	Timestamp *int64
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, upd TransactionUpdate) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{"updated_at": s.touch()}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Subtitle != nil {
		fields["subtitle"] = *upd.Subtitle
	}
	if upd.Amount != nil {
		fields["amount"] = *upd.Amount
	}
	if upd.Currency != nil {
		fields["currency"] = *upd.Currency
	}
	if upd.Timestamp != nil {
		fields["timestamp"] = *upd.Timestamp
	}

	res := db.Model(&model.TransactionRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update transaction %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errno.ErrTransactionNotFound.WithMessage(fmt.Sprintf("transaction %s not found", id))
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	res := db.Where("id = ?", id).Delete(&model.TransactionRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete transaction %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errno.ErrTransactionNotFound.WithMessage(fmt.Sprintf("transaction %s not found", id))
	}
	return nil
}

func (s *Store) GetTransactionCount(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.TransactionRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (s *Store) GetUnsyncedCount(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.TransactionRecord{}).Where("synced = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count unsynced transactions: %w", err)
	}
	return count, nil
}

// ClearAllTransactions 删除全部交易, 仅用于维护/测试
func (s *Store) ClearAllTransactions(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.TransactionRecord{}).Error; err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	logger.Warn("All transactions cleared")
	return nil
}
