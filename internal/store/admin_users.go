package store

import (
	"context"
	"errors"
	"fmt"

	"trevpay/internal/model"
	"trevpay/pkg/errno"

	"gorm.io/gorm"
)

func (s *Store) CreateAdminUser(ctx context.Context, user *model.AdminUser) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if user.CreatedAt == 0 {
		user.CreatedAt = s.nowMilli()
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errno.ErrAdminExists
		}
		return fmt.Errorf("create admin user %s: %w", user.Username, err)
	}
	return nil
}

func (s *Store) GetAdminUser(ctx context.Context, username string) (*model.AdminUser, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var user model.AdminUser
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin user %s: %w", username, err)
	}
	return &user, nil
}

func (s *Store) GetAdminUserCount(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.AdminUser{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count admin users: %w", err)
	}
	return count, nil
}

func (s *Store) UpdateAdminLastLogin(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.AdminUser{}).Where("id = ?", id).Update("last_login", s.nowMilli())
	if res.Error != nil {
		return fmt.Errorf("update admin last login %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return errno.ErrAdminNotFound
	}
	return nil
}
