package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trevpay/internal/model"
	"trevpay/internal/service/observer"
	"trevpay/internal/store"
	"trevpay/internal/store/storetest"
	"trevpay/pkg/errno"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSyncer 模拟引擎: TriggerSync 回调 ledger, PushTransactions 按配置成功/失败
type fakeSyncer struct {
	mu      sync.Mutex
	ledger  *Ledger
	fail    map[string]bool
	pushed  [][]string
	trigger int
}

func (f *fakeSyncer) TriggerSync(ctx context.Context) bool {
	f.mu.Lock()
	f.trigger++
	f.mu.Unlock()
	return f.ledger.SyncPendingTransactions(ctx) == nil
}

func (f *fakeSyncer) PushTransactions(_ context.Context, txs []model.TransactionRecord) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ok, all []string
	var err error
	for _, tx := range txs {
		all = append(all, tx.ID)
		if f.fail[tx.ID] {
			err = errors.New("remote rejected " + tx.ID)
			continue
		}
		ok = append(ok, tx.ID)
	}
	f.pushed = append(f.pushed, all)
	return ok, err
}

func (f *fakeSyncer) triggers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trigger
}

func setup(t *testing.T, online bool) (*Ledger, *fakeSyncer, *observer.ConnectivityMonitor, *store.Store) {
	t.Helper()
	st := storetest.New(t)
	mon := observer.NewConnectivityMonitor(nil, 0, online)
	fs := &fakeSyncer{fail: map[string]bool{}}
	l := New(st, fs, mon)
	fs.ledger = l
	t.Cleanup(l.Close)
	return l, fs, mon, st
}

func deposit(id string, amount int64) *model.TransactionRecord {
	return &model.TransactionRecord{
		ID:        id,
		Type:      model.TxTypeDeposit,
		Title:     "Deposit",
		Subtitle:  "1 POL",
		Amount:    decimal.NewFromInt(amount),
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestOfflineAddThenSyncOnReconnect(t *testing.T) {
	ctx := context.Background()
	l, fs, mon, st := setup(t, false)
	require.NoError(t, l.Initialize(ctx))

	require.NoError(t, l.AddTransaction(ctx, deposit("t1", 1000)))
	assert.Equal(t, 1, l.UnsyncedCount())
	l.Wait()
	assert.Equal(t, 0, fs.triggers())

	got, err := st.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, got.Synced)

	mon.SetOnline(true)
	l.Wait()

	assert.Equal(t, 1, fs.triggers())
	assert.Equal(t, 0, l.UnsyncedCount())
	got, err = st.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Synced)
	assert.True(t, l.Transactions(0)[0].Synced)
}

func TestAddWhileOnlineSyncsImmediately(t *testing.T) {
	ctx := context.Background()
	l, fs, _, _ := setup(t, true)
	require.NoError(t, l.Initialize(ctx))

	require.NoError(t, l.AddTransaction(ctx, deposit("t1", 10)))
	l.Wait()

	assert.Equal(t, 1, fs.triggers())
	assert.Equal(t, 0, l.UnsyncedCount())
}

func TestInitializeSyncsBacklogWhenOnline(t *testing.T) {
	ctx := context.Background()
	l, fs, _, st := setup(t, true)
	require.NoError(t, st.InsertTransaction(ctx, deposit("old", 5)))

	require.NoError(t, l.Initialize(ctx))
	l.Wait()

	assert.Equal(t, 1, fs.triggers())
	assert.Equal(t, 0, l.UnsyncedCount())
}

func TestFailedPushLeavesRecordUnsynced(t *testing.T) {
	ctx := context.Background()
	l, fs, mon, st := setup(t, false)
	require.NoError(t, l.Initialize(ctx))

	fs.fail["bad"] = true
	require.NoError(t, l.AddTransaction(ctx, deposit("good", 1)))
	require.NoError(t, l.AddTransaction(ctx, deposit("bad", 2)))

	mon.SetOnline(true)
	l.Wait()

	assert.Equal(t, 1, l.UnsyncedCount())
	bad, err := st.GetTransactionByID(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, bad.Synced)

	// 下一轮重试
	fs.fail["bad"] = false
	require.NoError(t, l.SyncPendingTransactions(ctx))
	assert.Equal(t, 0, l.UnsyncedCount())
	assert.Equal(t, []string{"bad"}, fs.pushed[len(fs.pushed)-1])
}

func TestSyncPendingIsNoopOffline(t *testing.T) {
	ctx := context.Background()
	l, fs, _, _ := setup(t, false)
	require.NoError(t, l.Initialize(ctx))
	require.NoError(t, l.AddTransaction(ctx, deposit("t1", 1)))

	require.NoError(t, l.SyncPendingTransactions(ctx))
	assert.Empty(t, fs.pushed)
	assert.Equal(t, 1, l.UnsyncedCount())
}

func TestSyncedNeverReverts(t *testing.T) {
	ctx := context.Background()
	l, _, _, st := setup(t, false)
	require.NoError(t, l.Initialize(ctx))
	require.NoError(t, l.AddTransaction(ctx, deposit("t1", 1)))

	require.NoError(t, l.MarkTransactionAsSynced(ctx, "t1"))
	require.NoError(t, l.MarkTransactionAsSynced(ctx, "t1"))
	assert.Equal(t, 0, l.UnsyncedCount())

	require.NoError(t, l.RefreshTransactions(ctx))
	assert.True(t, l.Transactions(0)[0].Synced)

	unsynced, err := st.GetUnsyncedTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestAddTransactionValidation(t *testing.T) {
	ctx := context.Background()
	l, _, _, st := setup(t, false)
	require.NoError(t, l.Initialize(ctx))

	bad := deposit("t1", 1)
	bad.Type = "refund"
	assert.ErrorIs(t, l.AddTransaction(ctx, bad), errno.ErrValidation)

	noID := deposit("", 1)
	assert.ErrorIs(t, l.AddTransaction(ctx, noID), errno.ErrValidation)

	noTitle := deposit("t2", 1)
	noTitle.Title = ""
	err := l.AddTransaction(ctx, noTitle)
	assert.ErrorIs(t, err, errno.ErrValidation)
	// 错误信息使用 json 字段名
	assert.Contains(t, err.Error(), "title")

	count, err := st.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, l.AddTransaction(ctx, deposit("t1", 1)))
	assert.ErrorIs(t, l.AddTransaction(ctx, deposit("t1", 1)), errno.ErrTransactionExists)
	assert.Equal(t, 1, l.UnsyncedCount())
}

func TestClearAllTransactions(t *testing.T) {
	ctx := context.Background()
	l, _, _, _ := setup(t, false)
	require.NoError(t, l.Initialize(ctx))
	require.NoError(t, l.AddTransaction(ctx, deposit("t1", 1)))
	require.NoError(t, l.AddTransaction(ctx, deposit("t2", 1)))

	assert.Equal(t, "t2", l.Transactions(1)[0].ID)

	require.NoError(t, l.ClearAllTransactions(ctx))
	assert.Empty(t, l.Transactions(0))
	assert.Zero(t, l.UnsyncedCount())
}
