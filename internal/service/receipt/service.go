// Package receipt is the Receipt Cache: an in-memory mirror of the
// receipts table that re-reads the store after every write.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trevpay/internal/model"
	"trevpay/pkg/errno"
	"trevpay/pkg/logger"
	"trevpay/pkg/safe_random"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository 收据服务需要的持久层能力, 由 *store.Store 实现
type Repository interface {
	Init(ctx context.Context) error
	InsertReceipt(ctx context.Context, rec *model.ReceiptRecord) error
	GetAllReceipts(ctx context.Context, limit int) ([]model.ReceiptRecord, error)
	GetReceiptByID(ctx context.Context, id string) (*model.ReceiptRecord, error)
	GetReceiptByTransactionID(ctx context.Context, txID string) (*model.ReceiptRecord, error)
	GetReceiptsByDriver(ctx context.Context, driverID string) ([]model.ReceiptRecord, error)
	GetReceiptsByStatus(ctx context.Context, status string) ([]model.ReceiptRecord, error)
	UpdateReceiptStatus(ctx context.Context, id, status, hash string) error
	UpdateReceiptOutcome(ctx context.Context, id, status, hash, receiptData string) error
	DeleteReceipt(ctx context.Context, id string) error
	ClearAllReceipts(ctx context.Context) error
	TransactionExists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo Repository
	now  func() time.Time

	mu       sync.RWMutex
	receipts []model.ReceiptRecord // 按创建时间倒序
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Initialize 确保存储可用并载入全部收据
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.repo.Init(ctx); err != nil {
		return err
	}
	return s.RefreshReceipts(ctx)
}

// RefreshReceipts 从存储重新加载
func (s *Service) RefreshReceipts(ctx context.Context) error {
	list, err := s.repo.GetAllReceipts(ctx, 0)
	if err != nil {
		logger.Error("Failed to load receipts", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.receipts = list
	s.mu.Unlock()
	return nil
}

// Input 创建收据所需字段; ID 与时间戳由服务生成
type Input struct {
	TransactionID   string
	DriverID        string
	DriverName      string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethod   string
	Status          string
	TransactionHash string
	Payload         model.ReceiptPayload
}

// CreateReceipt 生成 receipt_<ms>_<rand> 并写入
func (s *Service) CreateReceipt(ctx context.Context, in Input) (*model.ReceiptRecord, error) {
	rec := &model.ReceiptRecord{
		ID:              safe_random.NewID("receipt", s.now()),
		TransactionID:   in.TransactionID,
		DriverID:        in.DriverID,
		DriverName:      in.DriverName,
		Amount:          in.Amount,
		Currency:        in.Currency,
		PaymentMethod:   in.PaymentMethod,
		Status:          in.Status,
		TransactionHash: in.TransactionHash,
	}
	if rec.PaymentMethod == "" {
		rec.PaymentMethod = model.PaymentMethodChain
	}
	if err := rec.SetPayload(in.Payload); err != nil {
		return nil, fmt.Errorf("encode receipt data: %w", err)
	}

	if err := s.AddReceipt(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AddReceipt 校验后写入存储, 然后刷新内存
func (s *Service) AddReceipt(ctx context.Context, rec *model.ReceiptRecord) error {
	if err := validStatus(rec.Status); err != nil {
		return err
	}
	if rec.TransactionHash != "" && rec.Status != model.ReceiptPaid {
		return errno.ErrValidation.WithMessage("transaction hash is only recorded for paid receipts")
	}

	// 收据必须指向已存在的交易
	ok, err := s.repo.TransactionExists(ctx, rec.TransactionID)
	if err != nil {
		return err
	}
	if !ok {
		return errno.ErrDanglingReceipt.WithMessage(fmt.Sprintf("transaction %s does not exist", rec.TransactionID))
	}

	if err := s.repo.InsertReceipt(ctx, rec); err != nil {
		logger.Error("Failed to add receipt", zap.String("id", rec.ID), zap.Error(err))
		return err
	}
	logger.Info("Receipt added", zap.String("id", rec.ID), zap.String("status", rec.Status))
	return s.RefreshReceipts(ctx)
}

// UpdateReceiptStatus 仅允许 queued -> paid / failed; hash 为空时保留原值
func (s *Service) UpdateReceiptStatus(ctx context.Context, id, status, hash string) error {
	if err := validStatus(status); err != nil {
		return err
	}
	if hash != "" && status != model.ReceiptPaid {
		return errno.ErrValidation.WithMessage("transaction hash is only recorded for paid receipts")
	}

	current, err := s.repo.GetReceiptByID(ctx, id)
	if err != nil {
		return err
	}
	if !canTransition(current.Status, status) {
		return errno.ErrReceiptTransition.WithMessage(fmt.Sprintf("receipt %s: %s -> %s", id, current.Status, status))
	}

	if err := s.repo.UpdateReceiptStatus(ctx, id, status, hash); err != nil {
		return err
	}
	return s.RefreshReceipts(ctx)
}

// MarkReceiptAsFailed 标记失败, 原因写入 receipt_data.failure_reason
func (s *Service) MarkReceiptAsFailed(ctx context.Context, id, reason string) error {
	current, err := s.repo.GetReceiptByID(ctx, id)
	if err != nil {
		return err
	}
	if !canTransition(current.Status, model.ReceiptFailed) {
		return errno.ErrReceiptTransition.WithMessage(fmt.Sprintf("receipt %s: %s -> failed", id, current.Status))
	}

	payload, err := current.Payload()
	if err != nil {
		// 旧数据无法解析时直接覆盖
		logger.Warn("Discarding unreadable receipt data", zap.String("id", id), zap.Error(err))
		payload = model.ReceiptPayload{}
	}
	payload.FailureReason = reason
	if err := current.SetPayload(payload); err != nil {
		return err
	}

	if err := s.repo.UpdateReceiptOutcome(ctx, id, model.ReceiptFailed, "", current.ReceiptData); err != nil {
		return err
	}
	logger.Info("Receipt marked as failed", zap.String("id", id), zap.String("reason", reason))
	return s.RefreshReceipts(ctx)
}

func (s *Service) DeleteReceipt(ctx context.Context, id string) error {
	if err := s.repo.DeleteReceipt(ctx, id); err != nil {
		return err
	}
	return s.RefreshReceipts(ctx)
}

// ClearAllReceipts 维护操作
func (s *Service) ClearAllReceipts(ctx context.Context) error {
	if err := s.repo.ClearAllReceipts(ctx); err != nil {
		return err
	}
	return s.RefreshReceipts(ctx)
}

// Receipts 返回内存中的收据, limit <= 0 表示全部
func (s *Service) Receipts(limit int) []model.ReceiptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.receipts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.ReceiptRecord, n)
	copy(out, s.receipts[:n])
	return out
}

func (s *Service) GetReceipt(ctx context.Context, id string) (*model.ReceiptRecord, error) {
	return s.repo.GetReceiptByID(ctx, id)
}

func (s *Service) GetReceiptByTransaction(ctx context.Context, txID string) (*model.ReceiptRecord, error) {
	return s.repo.GetReceiptByTransactionID(ctx, txID)
}

func (s *Service) GetReceiptsByDriver(ctx context.Context, driverID string) ([]model.ReceiptRecord, error) {
	return s.repo.GetReceiptsByDriver(ctx, driverID)
}

func (s *Service) GetReceiptsByStatus(ctx context.Context, status string) ([]model.ReceiptRecord, error) {
	if err := validStatus(status); err != nil {
		return nil, err
	}
	return s.repo.GetReceiptsByStatus(ctx, status)
}

// GetPendingReceipts 仍在等待上链的收据
func (s *Service) GetPendingReceipts(ctx context.Context) ([]model.ReceiptRecord, error) {
	return s.repo.GetReceiptsByStatus(ctx, model.ReceiptQueued)
}

func validStatus(status string) error {
	switch status {
	case model.ReceiptPaid, model.ReceiptQueued, model.ReceiptFailed:
		return nil
	}
	return errno.ErrValidation.WithMessage(fmt.Sprintf("unknown receipt status %q", status))
}

func canTransition(from, to string) bool {
	if from == to {
		return true
	}
	return from == model.ReceiptQueued && (to == model.ReceiptPaid || to == model.ReceiptFailed)
}

// IsNotFound 判断收据是否不存在
func IsNotFound(err error) bool {
	return errors.Is(err, errno.ErrReceiptNotFound)
}
