package store

import (
	"context"
	"errors"
	"fmt"

	"trevpay/internal/model"
	"trevpay/pkg/errno"
	"trevpay/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Store) InsertReceipt(ctx context.Context, rec *model.ReceiptRecord) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	now := s.nowMilli()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt
	if rec.Currency == "" {
		rec.Currency = model.DefaultCurrency
	}

	if err := db.Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errno.ErrValidation.WithMessage(fmt.Sprintf("receipt %s already exists", rec.ID))
		}
		return fmt.Errorf("insert receipt %s: %w", rec.ID, err)
	}
	return nil
}

// GetAllReceipts 按创建时间倒序
func (s *Store) GetAllReceipts(ctx context.Context, limit int) ([]model.ReceiptRecord, error) {
	return s.findReceipts(ctx, limit, "")
}

func (s *Store) GetReceiptsByDriver(ctx context.Context, driverID string) ([]model.ReceiptRecord, error) {
	return s.findReceipts(ctx, 0, "driver_id = ?", driverID)
}

func (s *Store) GetReceiptsByStatus(ctx context.Context, status string) ([]model.ReceiptRecord, error) {
	return s.findReceipts(ctx, 0, "status = ?", status)
}

func (s *Store) findReceipts(ctx context.Context, limit int, where string, args ...interface{}) ([]model.ReceiptRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	q := db.Order("created_at DESC").Order("id DESC")
	if where != "" {
		q = q.Where(where, args...)
	}

	var list []model.ReceiptRecord
	if err := limited(q, limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return list, nil
}

func (s *Store) GetReceiptByID(ctx context.Context, id string) (*model.ReceiptRecord, error) {
	return s.firstReceipt(ctx, "id = ?", id)
}

// GetReceiptByTransactionID 返回关联该交易的最新收据
func (s *Store) GetReceiptByTransactionID(ctx context.Context, txID string) (*model.ReceiptRecord, error) {
	return s.firstReceipt(ctx, "transaction_id = ?", txID)
}

func (s *Store) firstReceipt(ctx context.Context, where string, arg string) (*model.ReceiptRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rec model.ReceiptRecord
	if err := db.Where(where, arg).Order("created_at DESC").First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return &rec, nil
}

// UpdateReceiptStatus 修改状态; hash 为空时保留原有 transaction_hash
func (s *Store) UpdateReceiptStatus(ctx context.Context, id, status, hash string) error {
	fields := map[string]interface{}{
		"status":     status,
		"updated_at": s.touch(),
	}
	if hash != "" {
		fields["transaction_hash"] = hash
	}
	return s.updateReceipt(ctx, id, fields)
}

// UpdateReceiptOutcome 在一次更新中写入状态与 receipt_data
func (s *Store) UpdateReceiptOutcome(ctx context.Context, id, status, hash, receiptData string) error {
	fields := map[string]interface{}{
		"status":       status,
		"receipt_data": receiptData,
		"updated_at":   s.touch(),
	}
	if hash != "" {
		fields["transaction_hash"] = hash
	}
	return s.updateReceipt(ctx, id, fields)
}

func (s *Store) updateReceipt(ctx context.Context, id string, fields map[string]interface{}) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.ReceiptRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		logger.Error("Update receipt failed", zap.String("id", id), zap.Error(res.Error))
		return fmt.Errorf("update receipt %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		logger.Error("Update receipt: no such receipt", zap.String("id", id))
		return errno.ErrReceiptNotFound.WithMessage(fmt.Sprintf("receipt %s not found", id))
	}
	return nil
}

func (s *Store) DeleteReceipt(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	res := db.Where("id = ?", id).Delete(&model.ReceiptRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete receipt %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errno.ErrReceiptNotFound.WithMessage(fmt.Sprintf("receipt %s not found", id))
	}
	return nil
}

// ClearAllReceipts 删除全部收据, 仅用于维护/测试
func (s *Store) ClearAllReceipts(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ReceiptRecord{}).Error; err != nil {
		return fmt.Errorf("clear receipts: %w", err)
	}
	logger.Warn("All receipts cleared")
	return nil
}
