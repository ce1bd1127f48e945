package store

import (
	"context"
	"fmt"

	"trevpay/internal/model"

	"gorm.io/gorm/clause"
)

// SaveQueuedPayment upsert by id
func (s *Store) SaveQueuedPayment(ctx context.Context, p *model.QueuedPayment) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if p.CreatedAt == 0 {
		p.CreatedAt = s.nowMilli()
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("save queued payment %s: %w", p.ID, err)
	}
	return nil
}

// GetQueuedPayments 按入队顺序返回
func (s *Store) GetQueuedPayments(ctx context.Context) ([]model.QueuedPayment, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var list []model.QueuedPayment
	if err := db.Order("created_at ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list queued payments: %w", err)
	}
	return list, nil
}

func (s *Store) DeleteQueuedPayment(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if err := db.Where("id = ?", id).Delete(&model.QueuedPayment{}).Error; err != nil {
		return fmt.Errorf("delete queued payment %s: %w", id, err)
	}
	return nil
}

// DeleteQueuedPaymentsByStatus 删除指定状态的队列记录, 返回删除条数
func (s *Store) DeleteQueuedPaymentsByStatus(ctx context.Context, statuses ...string) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	if len(statuses) == 0 {
		return 0, nil
	}

	res := db.Where("status IN ?", statuses).Delete(&model.QueuedPayment{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete queued payments: %w", res.Error)
	}
	return res.RowsAffected, nil
}
