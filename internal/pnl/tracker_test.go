package pnl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func fill(side enum.OrderSide, qty, price float64) model.Fill {
	return model.Fill{
		OrderID:  "x",
		Symbol:   "ETH-USD",
		Side:     side,
		Quantity: qty,
		Price:    price,
		FillTime: time.Unix(1_700_000_000, 0),
	}
}

func TestLongRoundTrip(t *testing.T) {
	tr := NewTracker()

	assert.Zero(t, tr.ApplyFill(fill(enum.OrderSideBuy, 1, 100)))
	assert.Zero(t, tr.ApplyFill(fill(enum.OrderSideBuy, 1, 102)))

	s := tr.Snapshot()
	assert.InDelta(t, 101.0, s.AvgCost, 1e-9)
	assert.InDelta(t, 2.0, s.Net, 1e-9)

	delta := tr.ApplyFill(fill(enum.OrderSideSell, 1, 105))
	assert.InDelta(t, 4.0, delta, 1e-9)

	s = tr.Snapshot()
	assert.InDelta(t, 4.0, s.Realized, 1e-9)
	assert.InDelta(t, 1.0, s.Net, 1e-9)
	assert.InDelta(t, 101.0, s.AvgCost, 1e-9, "avg cost unchanged by a reducing sell")
}

func TestShortRoundTripSymmetric(t *testing.T) {
	tr := NewTracker()

	tr.ApplyFill(fill(enum.OrderSideSell, 1, 105))
	tr.ApplyFill(fill(enum.OrderSideSell, 1, 103))

	s := tr.Snapshot()
	assert.InDelta(t, 104.0, s.AvgCost, 1e-9)
	assert.InDelta(t, -2.0, s.Net, 1e-9)

	delta := tr.ApplyFill(fill(enum.OrderSideBuy, 1, 100))
	assert.InDelta(t, 4.0, delta, 1e-9, "buying back below avg cost realises profit")
	assert.InDelta(t, -1.0, tr.Net(), 1e-9)
}

func TestFlipRestartsAvgCost(t *testing.T) {
	tr := NewTracker()
	tr.ApplyFill(fill(enum.OrderSideBuy, 1, 100))

	delta := tr.ApplyFill(fill(enum.OrderSideSell, 2, 110))
	assert.InDelta(t, 10.0, delta, 1e-9, "only the closing quantity realises")

	s := tr.Snapshot()
	assert.InDelta(t, -1.0, s.Net, 1e-9)
	assert.InDelta(t, 110.0, s.AvgCost, 1e-9, "flipped position restarts at fill price")
}

func TestNetMatchesSignedSum(t *testing.T) {
	tr := NewTracker()
	fills := []model.Fill{
		fill(enum.OrderSideBuy, 0.01, 100),
		fill(enum.OrderSideSell, 0.02, 101),
		fill(enum.OrderSideBuy, 0.03, 99),
		fill(enum.OrderSideSell, 0.01, 100.5),
	}
	var want float64
	for _, f := range fills {
		tr.ApplyFill(f)
		want += f.SignedQty()
	}
	assert.InDelta(t, want, tr.Net(), 1e-12)
}

func TestRealizedMonotoneWhenSellingAboveCost(t *testing.T) {
	tr := NewTracker()
	tr.ApplyFill(fill(enum.OrderSideBuy, 3, 100))

	last := 0.0
	for _, px := range []float64{100, 100.5, 101, 102} {
		tr.ApplyFill(fill(enum.OrderSideSell, 0.5, px))
		r := tr.Realized()
		assert.GreaterOrEqual(t, r, last)
		last = r
	}
}

func TestTradeCountsAndVolumes(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 3; i++ {
		tr.ApplyFill(fill(enum.OrderSideBuy, 0.01, 100))
		tr.ApplyFill(fill(enum.OrderSideSell, 0.01, 101))
	}
	s := tr.Snapshot()
	assert.Equal(t, uint64(3), s.BuyTrades)
	assert.Equal(t, uint64(3), s.SellTrades)
	assert.Equal(t, uint64(6), s.TotalTrades())
	assert.InDelta(t, 0.03, s.BuyVolume, 1e-12)
	assert.InDelta(t, 0.03, s.SellVolume, 1e-12)
	assert.InDelta(t, 0.03, s.Realized, 1e-9)
	assert.InDelta(t, 0.0, s.Net, 1e-12)
}

func TestUnrealized(t *testing.T) {
	tr := NewTracker()
	tr.ApplyFill(fill(enum.OrderSideBuy, 2, 100))
	assert.InDelta(t, 4.0, tr.Unrealized(102), 1e-9)
	assert.Zero(t, tr.Unrealized(0))
}

func TestSpreadRange(t *testing.T) {
	tr := NewTracker()
	require.False(t, tr.Snapshot().SpreadSeen)

	tr.ObserveSpread(2.5)
	tr.ObserveSpread(1.0)
	tr.ObserveSpread(4.0)
	tr.ObserveSpread(0) // ignored

	s := tr.Snapshot()
	assert.True(t, s.SpreadSeen)
	assert.Equal(t, 1.0, s.MinSpreadBps)
	assert.Equal(t, 4.0, s.MaxSpreadBps)
}
