package engine

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"main/internal/model"
	"main/internal/model/enum"
)

// clientIDGen produces unique client ids of the form
// HFT_<ms-epoch>_<6 decimal digits>. The digit block is a counter with
// a random start, so ids never collide within a process.
type clientIDGen struct {
	counter atomic.Uint64
}

func newClientIDGen(seed int64) *clientIDGen {
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	g := &clientIDGen{}
	g.counter.Store(uint64(rand.New(rand.NewSource(seed)).Intn(1_000_000)))
	return g
}

func (g *clientIDGen) Next(now time.Time) string {
	return fmt.Sprintf("HFT_%d_%06d", now.UnixMilli(), g.counter.Add(1)%1_000_000)
}

// orderTable is the active-orders map. It is owned by the trading
// worker exclusively; no other goroutine touches it, so it needs no
// lock. Other workers see derived facts through metrics and the
// position tracker only.
type orderTable struct {
	orders map[string]*model.Order
}

func newOrderTable() *orderTable {
	return &orderTable{orders: make(map[string]*model.Order)}
}

func (t *orderTable) add(o *model.Order) {
	t.orders[o.OrderID] = o
}

func (t *orderTable) get(orderID string) (*model.Order, bool) {
	o, ok := t.orders[orderID]
	return o, ok
}

func (t *orderTable) remove(orderID string) {
	delete(t.orders, orderID)
}

func (t *orderTable) size() int {
	return len(t.orders)
}

// stale returns the orders still NEW at cutoff age.
func (t *orderTable) stale(now time.Time, maxAge time.Duration) []*model.Order {
	var out []*model.Order
	for _, o := range t.orders {
		if o.Status == enum.OrderStatusNew && now.Sub(o.CreateTime) > maxAge {
			out = append(out, o)
		}
	}
	return out
}

// newOrder builds one ladder child order.
func newOrder(gen *clientIDGen, symbol string, side enum.OrderSide, price, qty float64, level int, now time.Time) *model.Order {
	return &model.Order{
		OrderID:       uuid.NewString(),
		ClientID:      gen.Next(now),
		Symbol:        symbol,
		Side:          side,
		Kind:          enum.OrderKindLimit,
		Price:         price,
		Quantity:      qty,
		Status:        enum.OrderStatusNew,
		CreateTime:    now,
		UpdateTime:    now,
		PriorityLevel: level,
	}
}
