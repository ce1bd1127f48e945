package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"trevpay/internal/model"
	"trevpay/pkg/errno"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePaymentCreatesQueuedReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))

	p, err := f.gw.QueuePayment(ctx, request("d1", 1))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.ID, "queued_"))

	queued := f.gw.QueuedPayments()
	require.Len(t, queued, 1)
	assert.Equal(t, model.QueueStatusQueued, queued[0].Status)
	require.NotEmpty(t, queued[0].ReceiptID)

	rec, err := f.receipts.GetReceipt(ctx, queued[0].ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptQueued, rec.Status)
	assert.Equal(t, model.PaymentMethodChainQueued, rec.PaymentMethod)
	assert.Equal(t, p.ID, rec.TransactionID)
	assert.Zero(t, f.wallet.calls)

	// 持久化副本
	stored, err := f.store.GetQueuedPayments(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, queued[0].ReceiptID, stored[0].ReceiptID)
}

func TestProcessQueuedPaymentsCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))

	p, err := f.gw.QueuePayment(ctx, request("d1", 1))
	require.NoError(t, err)

	processed, started := f.gw.ProcessQueuedPayments(ctx)
	assert.True(t, started)
	assert.Equal(t, 1, processed)

	got, err := f.gw.QueuedPayment(p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCompleted, got.Status)
	assert.NotEmpty(t, got.TransactionHash)
	require.NotNil(t, got.ProcessedAt)

	rec, err := f.receipts.GetReceipt(ctx, got.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptPaid, rec.Status)
	assert.Equal(t, got.TransactionHash, rec.TransactionHash)

	// 不重复创建收据
	all, err := f.store.GetAllReceipts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProcessQueuedPaymentsIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))
	f.wallet.execErr["d1"] = errors.New("nonce too low")
	f.wallet.panicOn = "d2"

	var ids []string
	for _, d := range []string{"d1", "d2", "d3"} {
		p, err := f.gw.QueuePayment(ctx, request(d, 1))
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	processed, started := f.gw.ProcessQueuedPayments(ctx)
	assert.True(t, started)
	assert.Equal(t, 3, processed)
	assert.False(t, f.gw.Processing())

	want := []string{model.QueueStatusFailed, model.QueueStatusFailed, model.QueueStatusCompleted}
	wantReceipt := []string{model.ReceiptFailed, model.ReceiptFailed, model.ReceiptPaid}
	for i, id := range ids {
		p, err := f.gw.QueuedPayment(id)
		require.NoError(t, err)
		assert.Equal(t, want[i], p.Status, id)

		rec, err := f.receipts.GetReceipt(ctx, p.ReceiptID)
		require.NoError(t, err)
		assert.Equal(t, wantReceipt[i], rec.Status, id)
	}

	first, _ := f.gw.QueuedPayment(ids[0])
	assert.Equal(t, "nonce too low", first.Error)

	st := f.gw.Statistics()
	assert.Equal(t, QueueStatistics{Total: 3, Completed: 1, Failed: 2}, st)
}

func TestProcessQueuedPaymentsSingleFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))
	_, err := f.gw.QueuePayment(ctx, request("d1", 1))
	require.NoError(t, err)

	f.wallet.block = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.gw.ProcessQueuedPayments(ctx)
	}()

	require.Eventually(t, f.gw.Processing, time.Second, 5*time.Millisecond)
	_, started := f.gw.ProcessQueuedPayments(ctx)
	assert.False(t, started)

	close(f.wallet.block)
	<-done
	assert.False(t, f.gw.Processing())
	assert.Equal(t, 1, f.gw.Statistics().Completed)
}

func TestRestoreFailsInterruptedEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))

	waiting, err := f.gw.QueuePayment(ctx, request("d1", 1))
	require.NoError(t, err)
	stuck, err := f.gw.QueuePayment(ctx, request("d2", 1))
	require.NoError(t, err)

	// 模拟处理中途进程退出
	stuck.Status = model.QueueStatusProcessing
	require.NoError(t, f.store.SaveQueuedPayment(ctx, stuck))

	restarted := NewGateway(f.wallet, fixedPrice(t, "800"), storeLedger{f.store}, f.receipts, f.store)
	require.NoError(t, restarted.Restore(ctx))

	got, err := restarted.QueuedPayment(stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusFailed, got.Status)
	assert.Equal(t, interruptedReason, got.Error)

	rec, err := f.receipts.GetReceipt(ctx, stuck.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptFailed, rec.Status)

	kept, err := restarted.QueuedPayment(waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusQueued, kept.Status)

	processed, _ := restarted.ProcessQueuedPayments(ctx)
	assert.Equal(t, 1, processed)
}

func TestRemoveAndClearCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))

	a, err := f.gw.QueuePayment(ctx, request("d1", 1))
	require.NoError(t, err)
	_, _ = f.gw.ProcessQueuedPayments(ctx)
	b, err := f.gw.QueuePayment(ctx, request("d2", 1))
	require.NoError(t, err)
	c, err := f.gw.QueuePayment(ctx, request("d3", 1))
	require.NoError(t, err)

	require.NoError(t, f.gw.RemoveQueuedPayment(ctx, c.ID))
	_, err = f.gw.QueuedPayment(c.ID)
	assert.Error(t, err)
	assert.Error(t, f.gw.RemoveQueuedPayment(ctx, c.ID))

	require.NoError(t, f.gw.ClearCompletedPayments(ctx))
	left := f.gw.QueuedPayments()
	require.Len(t, left, 1)
	assert.Equal(t, b.ID, left[0].ID)

	stored, err := f.store.GetQueuedPayments(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEqual(t, a.ID, stored[0].ID)
}

func TestDrainSurvivesCallerCancel(t *testing.T) {
	bg := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))

	p, err := f.gw.QueuePayment(bg, request("d1", 1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(bg)
	defer cancel()
	f.wallet.onExec = cancel

	processed, _ := f.gw.ProcessQueuedPayments(ctx)
	require.Equal(t, 1, processed)

	stored, err := f.store.GetQueuedPayments(bg)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.QueueStatusCompleted, stored[0].Status)
	assert.NotEmpty(t, stored[0].TransactionHash)

	rec, err := f.store.GetReceiptByID(bg, p.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptPaid, rec.Status)

	// 重启后仍是 completed, 不会被当作中断
	restarted := NewGateway(f.wallet, fixedPrice(t, "800"), storeLedger{f.store}, f.receipts, f.store)
	require.NoError(t, restarted.Restore(bg))
	got, err := restarted.QueuedPayment(p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCompleted, got.Status)
	assert.Empty(t, got.Error)
}

func TestRemoveRefusedWhileProcessing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))

	p, err := f.gw.QueuePayment(ctx, request("d1", 1))
	require.NoError(t, err)

	f.wallet.block = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.gw.ProcessQueuedPayments(ctx)
	}()
	require.Eventually(t, func() bool { return f.gw.Statistics().Processing == 1 }, time.Second, 5*time.Millisecond)

	err = f.gw.RemoveQueuedPayment(ctx, p.ID)
	assert.ErrorIs(t, err, errno.ErrQueuedPaymentBusy)

	close(f.wallet.block)
	<-done

	got, err := f.gw.QueuedPayment(p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusCompleted, got.Status)

	// 终态之后可以删除, 重启后不会复活
	require.NoError(t, f.gw.RemoveQueuedPayment(ctx, p.ID))
	stored, err := f.store.GetQueuedPayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	restarted := NewGateway(f.wallet, fixedPrice(t, "800"), storeLedger{f.store}, f.receipts, f.store)
	require.NoError(t, restarted.Restore(ctx))
	assert.Empty(t, restarted.QueuedPayments())
}
