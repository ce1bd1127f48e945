// Package payment is the Payment Gateway and its persisted Payment Queue.
//
// A direct submission simulates the deposit call, executes it and records
// the outcome as a ledger entry plus a receipt. Offline submissions are
// queued with a placeholder receipt and drained later by the sync engine.
package payment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"trevpay/internal/model"
	"trevpay/internal/service/price"
	"trevpay/internal/service/receipt"
	"trevpay/pkg/errno"
	"trevpay/pkg/logger"
	"trevpay/pkg/monitor"
	"trevpay/pkg/safe_random"
	"trevpay/pkg/wallet"
	"trevpay/pkg/wallet/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Result 单次支付的结果
type Result struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	ReceiptID       string `json:"receipt_id,omitempty"`
	QueueID         string `json:"queue_id,omitempty"`
	Status          string `json:"status"` // completed | failed | queued
	Error           string `json:"error,omitempty"`
	Degraded        bool   `json:"degraded_conversion,omitempty"`
}

// Ledger 记账
type Ledger interface {
	AddTransaction(ctx context.Context, rec *model.TransactionRecord) error
}

// Receipts 收据
type Receipts interface {
	CreateReceipt(ctx context.Context, in receipt.Input) (*model.ReceiptRecord, error)
	UpdateReceiptStatus(ctx context.Context, id, status, hash string) error
	MarkReceiptAsFailed(ctx context.Context, id, reason string) error
}

// QueueRepository 队列持久化, 由 *store.Store 实现
type QueueRepository interface {
	SaveQueuedPayment(ctx context.Context, p *model.QueuedPayment) error
	GetQueuedPayments(ctx context.Context) ([]model.QueuedPayment, error)
	DeleteQueuedPayment(ctx context.Context, id string) error
	DeleteQueuedPaymentsByStatus(ctx context.Context, statuses ...string) (int64, error)
}

type Gateway struct {
	wallet   wallet.Client
	prices   price.Lookup
	ledger   Ledger
	receipts Receipts
	repo     QueueRepository

	currency string
	now      func() time.Time

	mu         sync.RWMutex
	queue      []*model.QueuedPayment // 按入队顺序
	processing atomic.Bool
}

type Option func(*Gateway)

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithCurrency 本地货币符号
func WithCurrency(symbol string) Option {
	return func(g *Gateway) {
		if symbol != "" {
			g.currency = symbol
		}
	}
}

// NewGateway client 可以为 nil, 此时只能入队, 不能上链
func NewGateway(client wallet.Client, prices price.Lookup, ledger Ledger, receipts Receipts, repo QueueRepository, opts ...Option) *Gateway {
	g := &Gateway{
		wallet:   client,
		prices:   prices,
		ledger:   ledger,
		receipts: receipts,
		repo:     repo,
		currency: model.DefaultCurrency,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasWallet 当前上下文是否有签名客户端
func (g *Gateway) HasWallet() bool {
	return g.wallet != nil
}

// SubmitPayment 模拟 -> 执行 -> 记账 -> 收据.
// 只有参数校验失败或没有钱包时返回 error; 链上失败体现在 Result 中
func (g *Gateway) SubmitPayment(ctx context.Context, req types.PaymentRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if g.wallet == nil {
		return nil, errno.ErrOffline.WithMessage("no wallet client configured")
	}

	hash, err := g.attempt(ctx, req)
	// 链上结果已定, 记账不受调用方取消影响
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		return g.recordFailure(ctx, req, err), nil
	}
	return g.recordSuccess(ctx, req, hash), nil
}

// attempt 试运行并广播, 不写任何本地记录
func (g *Gateway) attempt(ctx context.Context, req types.PaymentRequest) (string, error) {
	call, err := g.wallet.Simulate(ctx, req)
	if err != nil {
		logger.Warn("Payment simulation failed",
			zap.String("driver_id", req.DriverID), zap.Error(err))
		return "", err
	}

	hash, err := g.wallet.Execute(ctx, call)
	if err != nil {
		logger.Error("Payment execution failed",
			zap.String("driver_id", req.DriverID), zap.Error(err))
		return "", err
	}
	return hash, nil
}

// recordSuccess 本地记账失败只记日志, 链上结果为准
func (g *Gateway) recordSuccess(ctx context.Context, req types.PaymentRequest, hash string) *Result {
	amount, degraded := g.convert(ctx, req.Amount)
	res := &Result{Success: true, TransactionHash: hash, Status: model.QueueStatusCompleted, Degraded: degraded}
	monitor.Business.PaymentsTotal.WithLabelValues(model.QueueStatusCompleted).Inc()

	tx := g.ledgerEntry(hash, req, amount.Neg())
	if err := g.ledger.AddTransaction(ctx, tx); err != nil {
		logger.Error("Failed to record ledger entry for completed payment",
			zap.String("tx_hash", hash), zap.Error(err))
	}

	rec, err := g.receipts.CreateReceipt(ctx, receipt.Input{
		TransactionID:   hash,
		DriverID:        req.DriverID,
		DriverName:      req.DriverName,
		Amount:          amount,
		Currency:        g.currency,
		PaymentMethod:   paymentMethod(req, model.PaymentMethodChain),
		Status:          model.ReceiptPaid,
		TransactionHash: hash,
		Payload:         payloadOf(req, degraded),
	})
	if err != nil {
		logger.Error("Failed to create receipt for completed payment",
			zap.String("tx_hash", hash), zap.Error(err))
		return res
	}

	res.ReceiptID = rec.ID
	logger.Info("Payment completed",
		zap.String("tx_hash", hash), zap.String("receipt_id", rec.ID))
	return res
}

func (g *Gateway) recordFailure(ctx context.Context, req types.PaymentRequest, cause error) *Result {
	res := &Result{Success: false, Status: model.QueueStatusFailed, Error: cause.Error()}
	monitor.Business.PaymentsTotal.WithLabelValues(model.QueueStatusFailed).Inc()

	amount, degraded := g.convert(ctx, req.Amount)
	res.Degraded = degraded

	// 失败的支付没有链上 hash, 账本金额记 0
	txID := safe_random.NewID("failed", g.now())
	if err := g.ledger.AddTransaction(ctx, g.ledgerEntry(txID, req, decimal.Zero)); err != nil {
		logger.Error("Failed to record ledger entry for failed payment", zap.String("id", txID), zap.Error(err))
		return res
	}

	payload := payloadOf(req, degraded)
	payload.FailureReason = cause.Error()
	rec, err := g.receipts.CreateReceipt(ctx, receipt.Input{
		TransactionID: txID,
		DriverID:      req.DriverID,
		DriverName:    req.DriverName,
		Amount:        amount,
		Currency:      g.currency,
		PaymentMethod: paymentMethod(req, model.PaymentMethodChain),
		Status:        model.ReceiptFailed,
		Payload:       payload,
	})
	if err != nil {
		logger.Error("Failed to create receipt for failed payment", zap.String("id", txID), zap.Error(err))
		return res
	}

	res.ReceiptID = rec.ID
	return res
}

func (g *Gateway) ledgerEntry(id string, req types.PaymentRequest, amount decimal.Decimal) *model.TransactionRecord {
	return &model.TransactionRecord{
		ID:        id,
		Type:      model.TxTypeWithdraw,
		Title:     fmt.Sprintf("Payment to %s", req.DriverName),
		Subtitle:  TokenAmount(req.Amount).String() + " POL",
		Amount:    amount,
		Currency:  g.currency,
		Timestamp: g.now().UnixMilli(),
	}
}

func paymentMethod(req types.PaymentRequest, fallback string) string {
	if req.PaymentMethod != "" {
		return req.PaymentMethod
	}
	return fallback
}

func payloadOf(req types.PaymentRequest, degraded bool) model.ReceiptPayload {
	return model.ReceiptPayload{
		RecipientAddress: req.RecipientAddress,
		ContractAddress:  req.ContractAddress,
		TokenAmount:      req.Amount.String(),
		TripDetails:      req.TripDetails,
		Degraded:         degraded,
	}
}
