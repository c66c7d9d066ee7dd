package store

import (
	"context"

	"github.com/bytedance/sonic"

	"main/internal/model"
)

// KeyValueStore is the persistence capability for tracked orders. The
// engine stays fully functional when the store is the no-op.
type KeyValueStore interface {
	Put(ctx context.Context, key string, value []byte) error
	// Get returns nil with no error when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List returns every stored key/value pair.
	List(ctx context.Context) (map[string][]byte, error)
	Close() error
}

// SaveOrder writes an order under its client id.
func SaveOrder(ctx context.Context, kv KeyValueStore, order model.Order) error {
	payload, err := sonic.Marshal(order)
	if err != nil {
		return err
	}
	return kv.Put(ctx, order.ClientID, payload)
}

// LoadOrders restores every stored order. Undecodable entries are
// skipped.
func LoadOrders(ctx context.Context, kv KeyValueStore) ([]model.Order, error) {
	entries, err := kv.List(ctx)
	if err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(entries))
	for _, payload := range entries {
		var order model.Order
		if err := sonic.Unmarshal(payload, &order); err != nil {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// Noop discards writes and returns nothing. The default store.
type Noop struct{}

// NewNoop returns the no-op store.
func NewNoop() Noop {
	return Noop{}
}

func (Noop) Put(context.Context, string, []byte) error { return nil }

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) List(context.Context) (map[string][]byte, error) { return nil, nil }

func (Noop) Close() error { return nil }
