package remote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"trevpay/internal/model"
	"trevpay/internal/service/mq"
	"trevpay/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(id string, amount int64) model.TransactionRecord {
	return model.TransactionRecord{
		ID:        id,
		Type:      model.TxTypeWithdraw,
		Title:     "Payment to Ada",
		Subtitle:  "1 POL",
		Amount:    decimal.NewFromInt(amount),
		Currency:  "₦",
		Timestamp: 1_700_000_000_000,
		CreatedAt: 1_700_000_000_000,
		UpdatedAt: 1_700_000_000_000,
	}
}

func newGormEndpoint(t *testing.T) *GormEndpoint {
	t.Helper()
	ep := NewGormEndpoint(storetest.OpenDB(t))
	require.NoError(t, ep.Migrate(context.Background()))
	return ep
}

func TestGormEndpointUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ep := newGormEndpoint(t)

	require.NoError(t, ep.Upsert(ctx, sample("0xabc", -800)))
	require.NoError(t, ep.Upsert(ctx, sample("0xabc", -800)))

	n, err := ep.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// 重推带更新的字段覆盖同一行
	changed := sample("0xabc", -900)
	changed.UpdatedAt++
	require.NoError(t, ep.Upsert(ctx, changed))

	row, err := ep.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-900).Equal(row.Amount))
	n, err = ep.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGormEndpointKeepsFractionalDigits(t *testing.T) {
	ctx := context.Background()
	ep := newGormEndpoint(t)

	tx := sample("0xdef", 0)
	tx.Amount = decimal.RequireFromString("-0.123456789012345678")
	require.NoError(t, ep.Upsert(ctx, tx))

	row, err := ep.Get(ctx, "0xdef")
	require.NoError(t, err)
	assert.Equal(t, "-0.123456789012345678", row.Amount.String())
}

type memProducer struct {
	keys     []string
	payloads [][]byte
	err      error
}

func (p *memProducer) Publish(_ context.Context, _ string, key string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *memProducer) Close() error { return nil }

func TestStreamEndpointThroughSink(t *testing.T) {
	ctx := context.Background()
	prod := &memProducer{}
	stream := NewStreamEndpoint(prod, "trev_transactions")

	require.NoError(t, stream.Upsert(ctx, sample("0xabc", -800)))
	require.NoError(t, stream.Upsert(ctx, sample("0xabc", -800)))
	assert.Equal(t, []string{"0xabc", "0xabc"}, prod.keys)

	target := newGormEndpoint(t)
	sink := NewSink(nil, target, "trev_transactions")
	for i, payload := range prod.payloads {
		msg := &mq.Message{ID: string(rune('a' + i)), Key: prod.keys[i], Payload: payload}
		require.NoError(t, sink.Handle(ctx, msg))
	}

	n, err := target.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	row, err := target.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "Payment to Ada", row.Title)
}

func TestStreamEndpointPropagatesPublishError(t *testing.T) {
	stream := NewStreamEndpoint(&memProducer{err: errors.New("broker down")}, "t")
	assert.Error(t, stream.Upsert(context.Background(), sample("x", 1)))
}

func TestSinkDropsMalformedMessages(t *testing.T) {
	sink := NewSink(nil, newGormEndpoint(t), "t")
	assert.NoError(t, sink.Handle(context.Background(), &mq.Message{Payload: []byte("{")}))

	bad, err := json.Marshal(map[string]string{"id": "x", "amount": "NaN-ish"})
	require.NoError(t, err)
	assert.NoError(t, sink.Handle(context.Background(), &mq.Message{Payload: bad}))
}
