package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

// memory is an in-process KeyValueStore used to exercise the order
// round-trip without external services.
type memory map[string][]byte

func (m memory) Put(_ context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func (m memory) Get(_ context.Context, key string) ([]byte, error) {
	return m[key], nil
}

func (m memory) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func (m memory) List(context.Context) (map[string][]byte, error) {
	return m, nil
}

func (memory) Close() error { return nil }

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	kv := NewNoop()

	require.NoError(t, kv.Put(ctx, "k", []byte("v")))
	v, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)

	orders, err := LoadOrders(ctx, kv)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, kv.Delete(ctx, "k"))
	assert.NoError(t, kv.Close())
}

func TestOrderRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory{}

	order := model.Order{
		OrderID:    "0c9adbe1-2a54-4f5e-9f43-d3f8ac12b931",
		ClientID:   "HFT_1700000000000_123456",
		Symbol:     "ETH-USD",
		Side:       enum.OrderSideBuy,
		Kind:       enum.OrderKindLimit,
		Price:      3000.5,
		Quantity:   0.01,
		Status:     enum.OrderStatusNew,
		CreateTime: time.Unix(1_700_000_000, 0).UTC(),
		UpdateTime: time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, SaveOrder(ctx, kv, order))

	orders, err := LoadOrders(ctx, kv)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order, orders[0])
}

func TestLoadSkipsUndecodable(t *testing.T) {
	ctx := context.Background()
	kv := memory{"bad": []byte("{")}
	require.NoError(t, SaveOrder(ctx, kv, model.Order{ClientID: "HFT_1_000001", Symbol: "ETH-USD"}))

	orders, err := LoadOrders(ctx, kv)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestPostgresDSN(t *testing.T) {
	opt := PostgresOption{Host: "db", Port: 5433, User: "hft", Password: "pw", Database: "orders"}
	assert.Equal(t, "postgres://hft:pw@db:5433/orders?sslmode=disable", opt.dsn())

	opt = PostgresOption{ConnString: "postgres://x"}
	assert.Equal(t, "postgres://x", opt.dsn())
}
