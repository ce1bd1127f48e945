package store_test

import (
	"context"
	"testing"

	"trevpay/internal/model"
	"trevpay/internal/store"
	"trevpay/internal/store/storetest"
	"trevpay/pkg/errno"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReceipt(id, driver, status string) *model.ReceiptRecord {
	return &model.ReceiptRecord{
		ID:            id,
		TransactionID: "tx-" + id,
		DriverID:      driver,
		DriverName:    "Driver " + driver,
		Amount:        decimal.NewFromInt(500),
		PaymentMethod: model.PaymentMethodChain,
		Status:        status,
	}
}

func TestReceiptQueries(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, store.WithClock(tickClock(0)))

	require.NoError(t, s.InsertReceipt(ctx, newReceipt("r1", "d1", model.ReceiptPaid)))
	require.NoError(t, s.InsertReceipt(ctx, newReceipt("r2", "d2", model.ReceiptQueued)))
	require.NoError(t, s.InsertReceipt(ctx, newReceipt("r3", "d1", model.ReceiptQueued)))

	all, err := s.GetAllReceipts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2", "r1"}, receiptIDs(all))

	top, err := s.GetAllReceipts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, receiptIDs(top))

	byDriver, err := s.GetReceiptsByDriver(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1"}, receiptIDs(byDriver))

	queued, err := s.GetReceiptsByStatus(ctx, model.ReceiptQueued)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2"}, receiptIDs(queued))

	byTx, err := s.GetReceiptByTransactionID(ctx, "tx-r2")
	require.NoError(t, err)
	assert.Equal(t, "r2", byTx.ID)
}

func TestUpdateReceiptStatusKeepsHash(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.InsertReceipt(ctx, newReceipt("r1", "d1", model.ReceiptQueued)))
	require.NoError(t, s.UpdateReceiptStatus(ctx, "r1", model.ReceiptPaid, "0xabc"))
	require.NoError(t, s.UpdateReceiptStatus(ctx, "r1", model.ReceiptPaid, ""))

	got, err := s.GetReceiptByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptPaid, got.Status)
	assert.Equal(t, "0xabc", got.TransactionHash)
	assert.GreaterOrEqual(t, got.UpdatedAt, got.CreatedAt)

	err = s.UpdateReceiptStatus(ctx, "missing", model.ReceiptPaid, "")
	assert.ErrorIs(t, err, errno.ErrReceiptNotFound)
}

func TestDeleteAndClearReceipts(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.InsertReceipt(ctx, newReceipt("r1", "d1", model.ReceiptPaid)))
	require.NoError(t, s.InsertReceipt(ctx, newReceipt("r2", "d1", model.ReceiptPaid)))

	require.NoError(t, s.DeleteReceipt(ctx, "r1"))
	assert.ErrorIs(t, s.DeleteReceipt(ctx, "r1"), errno.ErrReceiptNotFound)

	require.NoError(t, s.ClearAllReceipts(ctx))
	all, err := s.GetAllReceipts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestQueuedPaymentPersistence(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, store.WithClock(tickClock(0)))

	p := &model.QueuedPayment{
		ID:               "queued_1",
		ContractAddress:  "0x1",
		RecipientAddress: "0x2",
		Amount:           "1000000000000000000",
		DriverID:         "d1",
		DriverName:       "Ada",
		Status:           model.QueueStatusQueued,
	}
	require.NoError(t, s.SaveQueuedPayment(ctx, p))

	// 再次保存同一 id 为更新
	p.Status = model.QueueStatusCompleted
	p.TransactionHash = "0xhash"
	require.NoError(t, s.SaveQueuedPayment(ctx, p))

	list, err := s.GetQueuedPayments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.QueueStatusCompleted, list[0].Status)
	assert.Equal(t, "0xhash", list[0].TransactionHash)
	assert.Equal(t, "1000000000000000000", list[0].Amount)

	n, err := s.DeleteQueuedPaymentsByStatus(ctx, model.QueueStatusCompleted, model.QueueStatusFailed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAdminUsers(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	u := &model.AdminUser{ID: "admin-001", Username: "admin", PasswordHash: "x", Role: model.RoleSuperAdmin, IsActive: true}
	require.NoError(t, s.CreateAdminUser(ctx, u))
	assert.ErrorIs(t, s.CreateAdminUser(ctx, &model.AdminUser{ID: "admin-002", Username: "admin", PasswordHash: "y"}), errno.ErrAdminExists)

	n, err := s.GetAdminUserCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.UpdateAdminLastLogin(ctx, "admin-001"))
	got, err := s.GetAdminUser(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.IsActive)

	_, err = s.GetAdminUser(ctx, "ghost")
	assert.ErrorIs(t, err, errno.ErrAdminNotFound)
}

func receiptIDs(list []model.ReceiptRecord) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}
