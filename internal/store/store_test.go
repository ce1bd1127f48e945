package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"trevpay/internal/model"
	"trevpay/internal/store"
	"trevpay/internal/store/storetest"
	"trevpay/pkg/errno"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickClock 每次调用前进 1ms
func tickClock(start int64) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur++
		return time.UnixMilli(cur)
	}
}

func newTx(id string, ts int64) *model.TransactionRecord {
	return &model.TransactionRecord{
		ID:        id,
		Type:      model.TxTypeDeposit,
		Title:     "Deposit",
		Subtitle:  "1 POL",
		Amount:    decimal.NewFromInt(1000),
		Timestamp: ts,
	}
}

func TestInitIsIdempotentAndLazy(t *testing.T) {
	ctx := context.Background()
	s := store.New(storetest.OpenDB(t))

	assert.False(t, s.Ready())
	// 未显式 Init 也能写入
	require.NoError(t, s.InsertTransaction(ctx, newTx("t1", 1)))
	assert.True(t, s.Ready())

	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx))

	count, err := s.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestInsertTransactionSurvivesReload(t *testing.T) {
	ctx := context.Background()
	db := storetest.OpenDB(t)
	s := store.New(db, store.WithClock(tickClock(1_700_000_000_000)))

	rec := newTx("t1", 1_700_000_000_500)
	rec.Amount = decimal.RequireFromString("-250.5")
	rec.Type = model.TxTypeWithdraw
	require.NoError(t, s.InsertTransaction(ctx, rec))

	// 模拟重启: 新的 Store 实例读同一个库
	reloaded := store.New(db)
	got, err := reloaded.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, model.TxTypeWithdraw, got.Type)
	assert.Equal(t, "Deposit", got.Title)
	assert.Equal(t, "1 POL", got.Subtitle)
	assert.True(t, rec.Amount.Equal(got.Amount), "amount %s != %s", rec.Amount, got.Amount)
	assert.Equal(t, model.DefaultCurrency, got.Currency)
	assert.Equal(t, rec.Timestamp, got.Timestamp)
	assert.False(t, got.Synced)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
}

func TestAmountsKeepEveryFractionalDigit(t *testing.T) {
	ctx := context.Background()
	db := storetest.OpenDB(t)
	s := store.New(db)

	amount := decimal.RequireFromString("-0.123456789012345678")
	rec := newTx("t1", 1)
	rec.Amount = amount
	require.NoError(t, s.InsertTransaction(ctx, rec))

	r := &model.ReceiptRecord{
		ID:            "r1",
		TransactionID: "t1",
		DriverID:      "d1",
		DriverName:    "Driver d1",
		Amount:        amount.Neg(),
		PaymentMethod: model.PaymentMethodChain,
		Status:        model.ReceiptPaid,
	}
	require.NoError(t, s.InsertReceipt(ctx, r))

	reloaded := store.New(db)
	got, err := reloaded.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, amount.Equal(got.Amount), "amount %s != %s", amount, got.Amount)

	gotReceipt, err := reloaded.GetReceiptByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "0.123456789012345678", gotReceipt.Amount.String())

	// 更新路径同样按字符串写入
	bigger := decimal.RequireFromString("12345678901234.000000000000000001")
	require.NoError(t, reloaded.UpdateTransaction(ctx, "t1", store.TransactionUpdate{Amount: &bigger}))
	got, err = store.New(db).GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, bigger.Equal(got.Amount), "amount %s != %s", bigger, got.Amount)
}

func TestInsertDuplicateTransaction(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.InsertTransaction(ctx, newTx("dup", 1)))
	err := s.InsertTransaction(ctx, newTx("dup", 2))
	assert.ErrorIs(t, err, errno.ErrTransactionExists)
}

func TestTransactionOrdering(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, store.WithClock(tickClock(1000)))

	// 插入顺序与业务时间戳相反
	require.NoError(t, s.InsertTransaction(ctx, newTx("old", 100)))
	require.NoError(t, s.InsertTransaction(ctx, newTx("new", 300)))
	require.NoError(t, s.InsertTransaction(ctx, newTx("mid", 200)))

	all, err := s.GetAllTransactions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(all))

	limited, err := s.GetAllTransactions(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid"}, ids(limited))

	// 未同步列表按创建顺序
	unsynced, err := s.GetUnsyncedTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new", "mid"}, ids(unsynced))
}

func TestMarkTransactionAsSynced(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, store.WithClock(tickClock(5000)))

	require.NoError(t, s.InsertTransaction(ctx, newTx("t1", 1)))
	require.NoError(t, s.InsertTransaction(ctx, newTx("t2", 2)))

	require.NoError(t, s.MarkTransactionAsSynced(ctx, "t1"))

	got, err := s.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Synced)
	assert.GreaterOrEqual(t, got.UpdatedAt, got.CreatedAt)

	n, err := s.GetUnsyncedCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	err = s.MarkTransactionAsSynced(ctx, "missing")
	assert.ErrorIs(t, err, errno.ErrTransactionNotFound)
}

func TestUpdatedAtNeverBeforeCreatedAt(t *testing.T) {
	ctx := context.Background()
	now := int64(10_000)
	clock := func() time.Time { return time.UnixMilli(now) }
	s := storetest.New(t, store.WithClock(clock))

	require.NoError(t, s.InsertTransaction(ctx, newTx("t1", 1)))

	// 时钟回拨
	now = 9_000
	require.NoError(t, s.MarkTransactionAsSynced(ctx, "t1"))

	got, err := s.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.EqualValues(t, 10_000, got.CreatedAt)
	assert.EqualValues(t, 10_000, got.UpdatedAt)
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.InsertTransaction(ctx, newTx("t1", 1)))

	title := "Renamed"
	require.NoError(t, s.UpdateTransaction(ctx, "t1", store.TransactionUpdate{Title: &title}))
	got, err := s.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	assert.ErrorIs(t, s.UpdateTransaction(ctx, "nope", store.TransactionUpdate{Title: &title}), errno.ErrTransactionNotFound)

	require.NoError(t, s.DeleteTransaction(ctx, "t1"))
	_, err = s.GetTransactionByID(ctx, "t1")
	assert.ErrorIs(t, err, errno.ErrTransactionNotFound)
}

func TestClearAllTransactions(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.InsertTransaction(ctx, newTx("a", 1)))
	require.NoError(t, s.InsertTransaction(ctx, newTx("b", 2)))
	require.NoError(t, s.ClearAllTransactions(ctx))

	n, err := s.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	require.NoError(t, s.Close())

	err := s.InsertTransaction(ctx, newTx("t1", 1))
	assert.ErrorIs(t, err, errno.ErrStoreNotReady)
}

func ids(list []model.TransactionRecord) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}
