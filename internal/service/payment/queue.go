package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"trevpay/internal/model"
	"trevpay/internal/service/receipt"
	"trevpay/pkg/errno"
	"trevpay/pkg/logger"
	"trevpay/pkg/monitor"
	"trevpay/pkg/safe_random"
	"trevpay/pkg/wallet/types"

	"go.uber.org/zap"
)

// interruptedReason 重启时仍处于 processing 的条目
const interruptedReason = "interrupted before completion"

// QueueStatistics 按状态计数
type QueueStatistics struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Restore 从存储恢复队列. processing 状态的条目无法确认是否已上链, 标记为失败而不是重试
func (g *Gateway) Restore(ctx context.Context) error {
	list, err := g.repo.GetQueuedPayments(ctx)
	if err != nil {
		return fmt.Errorf("restore payment queue: %w", err)
	}

	restored := make([]*model.QueuedPayment, 0, len(list))
	for i := range list {
		restored = append(restored, &list[i])
	}

	g.mu.Lock()
	g.queue = restored
	g.reportLocked()
	g.mu.Unlock()

	for _, p := range restored {
		if p.Status == model.QueueStatusProcessing {
			g.finish(ctx, p, "", errors.New(interruptedReason))
			logger.Warn("Queued payment interrupted by restart", zap.String("id", p.ID))
		}
	}

	logger.Info("Payment queue restored", zap.Int("entries", len(restored)))
	return nil
}

// QueuePayment 入队并创建 queued 收据; 不发起任何链上调用
func (g *Gateway) QueuePayment(ctx context.Context, req types.PaymentRequest) (*model.QueuedPayment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := entryOf(req)
	if err != nil {
		return nil, err
	}
	p.ID = safe_random.NewID("queued", g.now())
	p.Status = model.QueueStatusQueued
	p.CreatedAt = g.now().UnixMilli()

	if err := g.repo.SaveQueuedPayment(ctx, p); err != nil {
		logger.Error("Failed to persist queued payment", zap.Error(err))
		return nil, err
	}

	// 条目已落盘, 后续写入不再跟随调用方取消
	ctx = context.WithoutCancel(ctx)

	// 收据尽力而为, 失败不影响入队. 收据就绪后才对处理循环可见
	if receiptID, err := g.queuedReceipt(ctx, p.ID, req); err != nil {
		logger.Error("Failed to create queued receipt", zap.String("id", p.ID), zap.Error(err))
	} else {
		p.ReceiptID = receiptID
		g.persist(ctx, p)
	}

	g.mu.Lock()
	g.queue = append(g.queue, p)
	g.reportLocked()
	out := g.copyOf(p)
	g.mu.Unlock()

	monitor.Business.PaymentsTotal.WithLabelValues(model.QueueStatusQueued).Inc()
	logger.Info("Payment queued", zap.String("id", p.ID), zap.String("driver_id", p.DriverID))
	return &out, nil
}

// queuedReceipt 记一笔负数账目并创建 queued 收据, 返回收据 id
func (g *Gateway) queuedReceipt(ctx context.Context, queueID string, req types.PaymentRequest) (string, error) {
	amount, degraded := g.convert(ctx, req.Amount)

	if err := g.ledger.AddTransaction(ctx, g.ledgerEntry(queueID, req, amount.Neg())); err != nil {
		return "", err
	}
	rec, err := g.receipts.CreateReceipt(ctx, receipt.Input{
		TransactionID: queueID,
		DriverID:      req.DriverID,
		DriverName:    req.DriverName,
		Amount:        amount,
		Currency:      g.currency,
		PaymentMethod: paymentMethod(req, model.PaymentMethodChainQueued),
		Status:        model.ReceiptQueued,
		Payload:       payloadOf(req, degraded),
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// ProcessQueuedPayments 处理开始时处于 queued 的条目. 已有处理在进行时返回 false.
// 单条失败只影响该条目
func (g *Gateway) ProcessQueuedPayments(ctx context.Context) (processed int, started bool) {
	if !g.processing.CompareAndSwap(false, true) {
		logger.Info("Already processing queued payments")
		return 0, false
	}
	defer g.processing.Store(false)

	if g.wallet == nil {
		logger.Warn("No wallet client, queued payments left untouched")
		return 0, true
	}

	g.mu.RLock()
	var ids []string
	for _, p := range g.queue {
		if p.Status == model.QueueStatusQueued {
			ids = append(ids, p.ID)
		}
	}
	g.mu.RUnlock()

	logger.Info("Processing queued payments", zap.Int("count", len(ids)))
	for _, id := range ids {
		if g.processOne(ctx, id) {
			processed++
		}
	}
	return processed, true
}

// Processing 是否有队列处理正在进行
func (g *Gateway) Processing() bool {
	return g.processing.Load()
}

func (g *Gateway) processOne(ctx context.Context, id string) (ok bool) {
	g.mu.Lock()
	p := g.find(id)
	if p == nil || p.Status != model.QueueStatusQueued {
		// 处理期间被移除
		g.mu.Unlock()
		return false
	}
	p.Status = model.QueueStatusProcessing
	snapshot := *p
	g.mu.Unlock()
	g.persist(ctx, &snapshot)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Error processing queued payment", zap.String("id", id), zap.Any("panic", r))
			g.finish(ctx, p, "", fmt.Errorf("%v", r))
			ok = true
		}
	}()

	req, err := requestOf(&snapshot)
	if err != nil {
		logger.Error("Error processing queued payment", zap.String("id", id), zap.Error(err))
		g.finish(ctx, p, "", err)
		return true
	}

	hash, err := g.attempt(ctx, req)
	g.finish(ctx, p, hash, err)
	return true
}

// finish 写入终态并同步到关联收据. 链上调用已经结束, 调用方取消不能中断记账
func (g *Gateway) finish(ctx context.Context, p *model.QueuedPayment, hash string, cause error) {
	ctx = context.WithoutCancel(ctx)
	now := g.now().UnixMilli()

	g.mu.Lock()
	// 已被移除的条目不能再通过 upsert 写回
	tracked := g.find(p.ID) == p
	p.ProcessedAt = &now
	if cause != nil {
		p.Status = model.QueueStatusFailed
		p.Error = cause.Error()
	} else {
		p.Status = model.QueueStatusCompleted
		p.TransactionHash = hash
	}
	g.reportLocked()
	snapshot := *p
	g.mu.Unlock()

	if tracked {
		g.persist(ctx, &snapshot)
	}
	monitor.Business.PaymentsTotal.WithLabelValues(snapshot.Status).Inc()

	if cause != nil {
		logger.Warn("Queued payment failed", zap.String("id", snapshot.ID), zap.Error(cause))
		if snapshot.ReceiptID != "" {
			if err := g.receipts.MarkReceiptAsFailed(ctx, snapshot.ReceiptID, cause.Error()); err != nil {
				logger.Error("Failed to mark queued receipt failed", zap.String("receipt_id", snapshot.ReceiptID), zap.Error(err))
			}
		}
		return
	}

	logger.Info("Queued payment completed", zap.String("id", snapshot.ID), zap.String("tx_hash", hash))
	if snapshot.ReceiptID != "" {
		if err := g.receipts.UpdateReceiptStatus(ctx, snapshot.ReceiptID, model.ReceiptPaid, hash); err != nil {
			logger.Error("Failed to mark queued receipt paid", zap.String("receipt_id", snapshot.ReceiptID), zap.Error(err))
		}
		return
	}

	// 入队时收据创建失败, 现在补一张
	if req, err := requestOf(&snapshot); err == nil {
		res := g.recordSuccess(ctx, req, hash)
		g.mu.Lock()
		p.ReceiptID = res.ReceiptID
		snapshot = *p
		g.mu.Unlock()
		if tracked {
			g.persist(ctx, &snapshot)
		}
	}
}

// QueuedPayments 返回副本, 按入队顺序
func (g *Gateway) QueuedPayments() []model.QueuedPayment {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]model.QueuedPayment, 0, len(g.queue))
	for _, p := range g.queue {
		out = append(out, g.copyOf(p))
	}
	return out
}

func (g *Gateway) QueuedPayment(id string) (*model.QueuedPayment, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p := g.find(id)
	if p == nil {
		return nil, errno.ErrQueuedPaymentNotFound.WithMessage(fmt.Sprintf("queued payment %s not found", id))
	}
	out := g.copyOf(p)
	return &out, nil
}

// RemoveQueuedPayment 删除条目. processing 中的条目结果未定, 不允许删除
func (g *Gateway) RemoveQueuedPayment(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.find(id)
	if p == nil {
		return errno.ErrQueuedPaymentNotFound.WithMessage(fmt.Sprintf("queued payment %s not found", id))
	}
	if p.Status == model.QueueStatusProcessing {
		return errno.ErrQueuedPaymentBusy.WithMessage(fmt.Sprintf("queued payment %s is being processed", id))
	}

	if err := g.repo.DeleteQueuedPayment(ctx, id); err != nil {
		return err
	}

	for i, q := range g.queue {
		if q.ID == id {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			break
		}
	}
	g.reportLocked()
	return nil
}

// ClearCompletedPayments 只保留 queued/processing
func (g *Gateway) ClearCompletedPayments(ctx context.Context) error {
	n, err := g.repo.DeleteQueuedPaymentsByStatus(ctx, model.QueueStatusCompleted, model.QueueStatusFailed)
	if err != nil {
		return err
	}

	g.mu.Lock()
	kept := g.queue[:0]
	for _, p := range g.queue {
		if p.Pending() {
			kept = append(kept, p)
		}
	}
	g.queue = kept
	g.reportLocked()
	g.mu.Unlock()

	logger.Info("Cleared finished payments", zap.Int64("removed", n))
	return nil
}

func (g *Gateway) Statistics() QueueStatistics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := QueueStatistics{Total: len(g.queue)}
	for _, p := range g.queue {
		switch p.Status {
		case model.QueueStatusQueued:
			st.Queued++
		case model.QueueStatusProcessing:
			st.Processing++
		case model.QueueStatusCompleted:
			st.Completed++
		case model.QueueStatusFailed:
			st.Failed++
		}
	}
	return st
}

func (g *Gateway) find(id string) *model.QueuedPayment {
	for _, p := range g.queue {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Gateway) copyOf(p *model.QueuedPayment) model.QueuedPayment {
	out := *p
	if p.ProcessedAt != nil {
		at := *p.ProcessedAt
		out.ProcessedAt = &at
	}
	return out
}

func (g *Gateway) persist(ctx context.Context, p *model.QueuedPayment) {
	if err := g.repo.SaveQueuedPayment(ctx, p); err != nil {
		logger.Error("Failed to persist queued payment", zap.String("id", p.ID), zap.Error(err))
	}
}

func (g *Gateway) reportLocked() {
	pending := 0
	for _, p := range g.queue {
		if p.Pending() {
			pending++
		}
	}
	monitor.Business.QueueDepth.Set(float64(pending))
}

func entryOf(req types.PaymentRequest) (*model.QueuedPayment, error) {
	p := &model.QueuedPayment{
		ContractAddress:  req.ContractAddress,
		RecipientAddress: req.RecipientAddress,
		Amount:           req.Amount.String(),
		DriverID:         req.DriverID,
		DriverName:       req.DriverName,
		PaymentMethod:    req.PaymentMethod,
	}
	if req.TripDetails != nil {
		b, err := json.Marshal(req.TripDetails)
		if err != nil {
			return nil, err
		}
		p.TripDetails = string(b)
	}
	return p, nil
}

func requestOf(p *model.QueuedPayment) (types.PaymentRequest, error) {
	amount, ok := new(big.Int).SetString(p.Amount, 10)
	if !ok {
		return types.PaymentRequest{}, fmt.Errorf("queued payment %s: invalid amount %q", p.ID, p.Amount)
	}

	req := types.PaymentRequest{
		ContractAddress:  p.ContractAddress,
		RecipientAddress: p.RecipientAddress,
		Amount:           amount,
		DriverID:         p.DriverID,
		DriverName:       p.DriverName,
		PaymentMethod:    p.PaymentMethod,
	}
	if p.TripDetails != "" {
		var trip types.TripDetails
		if err := json.Unmarshal([]byte(p.TripDetails), &trip); err != nil {
			return types.PaymentRequest{}, fmt.Errorf("queued payment %s: trip details: %w", p.ID, err)
		}
		req.TripDetails = &trip
	}
	return req, nil
}
