package payment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"trevpay/internal/model"
	"trevpay/internal/service/price"
	"trevpay/internal/service/receipt"
	"trevpay/internal/store"
	"trevpay/internal/store/storetest"
	"trevpay/pkg/errno"
	"trevpay/pkg/wallet/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contractAddr  = "0x2222222222222222222222222222222222222222"
	recipientAddr = "0x1111111111111111111111111111111111111111"
)

var oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// stubWallet 按司机 id 返回预设结果
type stubWallet struct {
	mu      sync.Mutex
	simErr  error
	execErr map[string]error
	panicOn string
	block   chan struct{}
	onExec  func() // 广播成功之后调用
	calls   int
}

func (w *stubWallet) Simulate(_ context.Context, req types.PaymentRequest) (*types.PreparedCall, error) {
	if w.simErr != nil {
		return nil, w.simErr
	}
	return &types.PreparedCall{Request: req, To: req.ContractAddress, Value: req.Amount}, nil
}

func (w *stubWallet) Execute(_ context.Context, call *types.PreparedCall) (string, error) {
	if w.block != nil {
		<-w.block
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++

	driver := call.Request.DriverID
	if driver == w.panicOn {
		panic("wallet crashed")
	}
	if err := w.execErr[driver]; err != nil {
		return "", err
	}
	if w.onExec != nil {
		w.onExec()
	}
	return fmt.Sprintf("0x%064x", w.calls), nil
}

type failingPrice struct{}

func (failingPrice) TokenPrice(context.Context) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("exchange unreachable")
}

// storeLedger 直接写入存储的账本
type storeLedger struct{ st *store.Store }

func (l storeLedger) AddTransaction(ctx context.Context, rec *model.TransactionRecord) error {
	return l.st.InsertTransaction(ctx, rec)
}

type fixture struct {
	gw       *Gateway
	wallet   *stubWallet
	store    *store.Store
	receipts *receipt.Service
}

func newFixture(t *testing.T, prices price.Lookup) *fixture {
	t.Helper()
	st := storetest.New(t)
	rs := receipt.NewService(st)
	require.NoError(t, rs.Initialize(context.Background()))

	w := &stubWallet{execErr: map[string]error{}}
	return &fixture{
		gw:       NewGateway(w, prices, storeLedger{st}, rs, st),
		wallet:   w,
		store:    st,
		receipts: rs,
	}
}

func fixedPrice(t *testing.T, v string) price.Lookup {
	p, err := price.NewFixed(v)
	require.NoError(t, err)
	return p
}

func request(driver string, tokens int64) types.PaymentRequest {
	return types.PaymentRequest{
		ContractAddress:  contractAddr,
		RecipientAddress: recipientAddr,
		Amount:           new(big.Int).Mul(big.NewInt(tokens), oneToken),
		DriverID:         driver,
		DriverName:       "Driver " + driver,
		TripDetails:      &types.TripDetails{From: "Yaba", To: "Ikeja"},
	}
}

func TestSubmitPaymentSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))

	res, err := f.gw.SubmitPayment(ctx, request("d1", 2))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.QueueStatusCompleted, res.Status)
	assert.False(t, res.Degraded)
	require.NotEmpty(t, res.ReceiptID)

	rec, err := f.receipts.GetReceipt(ctx, res.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptPaid, rec.Status)
	assert.Equal(t, res.TransactionHash, rec.TransactionHash)
	assert.Equal(t, res.TransactionHash, rec.TransactionID)
	assert.True(t, decimal.NewFromInt(1600).Equal(rec.Amount))
	assert.Equal(t, model.PaymentMethodChain, rec.PaymentMethod)

	tx, err := f.store.GetTransactionByID(ctx, res.TransactionHash)
	require.NoError(t, err)
	assert.Equal(t, model.TxTypeWithdraw, tx.Type)
	assert.True(t, decimal.NewFromInt(-1600).Equal(tx.Amount))
	assert.Equal(t, "2 POL", tx.Subtitle)
}

func TestSubmitPaymentSimulationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))
	f.wallet.simErr = errors.New("insufficient funds")

	res, err := f.gw.SubmitPayment(ctx, request("d1", 1))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.QueueStatusFailed, res.Status)
	assert.Equal(t, "insufficient funds", res.Error)
	assert.Empty(t, res.TransactionHash)

	all, err := f.store.GetAllReceipts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.ReceiptFailed, all[0].Status)
	assert.Equal(t, res.ReceiptID, all[0].ID)
	assert.Empty(t, all[0].TransactionHash)
	assert.True(t, strings.HasPrefix(all[0].TransactionID, "failed_"))

	p, err := all[0].Payload()
	require.NoError(t, err)
	assert.Equal(t, "insufficient funds", p.FailureReason)
	assert.Zero(t, f.wallet.calls)
}

func TestSubmitPaymentFallsBackWhenPriceUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		prices price.Lookup
	}{
		{"lookup error", failingPrice{}},
		{"zero price", fixedPrice(t, "0")},
		{"no lookup", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, tt.prices)

			res, err := f.gw.SubmitPayment(ctx, request("d1", 3))
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.True(t, res.Degraded)

			rec, err := f.receipts.GetReceipt(ctx, res.ReceiptID)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(3).Equal(rec.Amount))
			p, err := rec.Payload()
			require.NoError(t, err)
			assert.True(t, p.Degraded)
		})
	}
}

func TestDegradedAmountStoredExactly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingPrice{})

	req := request("d1", 0)
	req.Amount = big.NewInt(123456789012345678)
	res, err := f.gw.SubmitPayment(ctx, req)
	require.NoError(t, err)
	require.True(t, res.Degraded)

	expected := decimal.RequireFromString("0.123456789012345678")
	rec, err := f.store.GetReceiptByID(ctx, res.ReceiptID)
	require.NoError(t, err)
	assert.True(t, expected.Equal(rec.Amount), "receipt amount %s", rec.Amount)

	tx, err := f.store.GetTransactionByID(ctx, res.TransactionHash)
	require.NoError(t, err)
	assert.True(t, expected.Neg().Equal(tx.Amount), "ledger amount %s", tx.Amount)
}

func TestSubmitPaymentRecordsAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, fixedPrice(t, "800"))
	// 客户端在广播成功后断开
	f.wallet.onExec = cancel

	res, err := f.gw.SubmitPayment(ctx, request("d1", 1))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.ReceiptID)

	bg := context.Background()
	rec, err := f.store.GetReceiptByID(bg, res.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, model.ReceiptPaid, rec.Status)

	exists, err := f.store.TransactionExists(bg, res.TransactionHash)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSubmitPaymentValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixedPrice(t, "800"))

	bad := request("d1", 1)
	bad.RecipientAddress = "not-an-address"
	_, err := f.gw.SubmitPayment(ctx, bad)
	assert.ErrorIs(t, err, errno.ErrValidation)

	zero := request("d1", 0)
	_, err = f.gw.SubmitPayment(ctx, zero)
	assert.ErrorIs(t, err, errno.ErrValidation)

	_, err = f.gw.QueuePayment(ctx, zero)
	assert.ErrorIs(t, err, errno.ErrValidation)

	count, err := f.store.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.gw.QueuedPayments())
}

func TestSubmitPaymentWithoutWallet(t *testing.T) {
	st := storetest.New(t)
	rs := receipt.NewService(st)
	gw := NewGateway(nil, nil, storeLedger{st}, rs, st)

	assert.False(t, gw.HasWallet())
	_, err := gw.SubmitPayment(context.Background(), request("d1", 1))
	assert.ErrorIs(t, err, errno.ErrOffline)
}

func TestTokenAmount(t *testing.T) {
	half := new(big.Int).Div(oneToken, big.NewInt(2))
	assert.Equal(t, "0.5", TokenAmount(half).String())
	assert.True(t, TokenAmount(nil).IsZero())
}
