package admin

import (
	"context"
	"errors"

	"trevpay/internal/model"
	"trevpay/pkg/errno"
	"trevpay/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultUsername 首次启动时创建的管理员
const DefaultUsername = "admin"

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInactive        = errors.New("admin account disabled")
)

// Repository 由 *store.Store 实现
type Repository interface {
	CreateAdminUser(ctx context.Context, user *model.AdminUser) error
	GetAdminUser(ctx context.Context, username string) (*model.AdminUser, error)
	GetAdminUserCount(ctx context.Context) (int64, error)
	UpdateAdminLastLogin(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create 创建管理员账号
func (s *Service) Create(ctx context.Context, username, password, role string) (*model.AdminUser, error) {
	if username == "" || len(password) < 6 {
		return nil, errno.ErrValidation.WithMessage("username required and password must be at least 6 characters")
	}
	if role == "" {
		role = model.RoleAdmin
	}
	if role != model.RoleAdmin && role != model.RoleSuperAdmin {
		return nil, errno.ErrValidation.WithMessage("unknown role " + role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.AdminUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.CreateAdminUser(ctx, user); err != nil {
		return nil, err
	}
	logger.Info("Admin user created", zap.String("username", username), zap.String("role", role))
	return user, nil
}

// EnsureDefault 没有任何管理员时创建默认账号
func (s *Service) EnsureDefault(ctx context.Context, password string) error {
	count, err := s.repo.GetAdminUserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = s.Create(ctx, DefaultUsername, password, model.RoleSuperAdmin)
	if errors.Is(err, errno.ErrAdminExists) {
		return nil
	}
	return err
}

// Verify 校验密码并记录登录时间
func (s *Service) Verify(ctx context.Context, username, password string) (*model.AdminUser, error) {
	user, err := s.repo.GetAdminUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}

	if err := s.repo.UpdateAdminLastLogin(ctx, user.ID); err != nil {
		logger.Warn("Failed to record admin login", zap.String("username", username), zap.Error(err))
	}
	return user, nil
}
