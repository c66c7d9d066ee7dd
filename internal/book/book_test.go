package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func bid(price, qty float64) model.BookUpdate {
	return model.BookUpdate{Side: enum.OrderSideBuy, Price: price, Quantity: qty}
}

func ask(price, qty float64) model.BookUpdate {
	return model.BookUpdate{Side: enum.OrderSideSell, Price: price, Quantity: qty}
}

func TestSnapshotConstruction(t *testing.T) {
	b := New("ETH-USD")
	b.ApplySnapshot([]model.BookUpdate{
		bid(100.00, 1), bid(99.99, 2),
		ask(100.02, 1), ask(100.03, 3),
	})

	s := b.Snapshot(10)
	require.True(t, s.Valid)
	assert.Equal(t, 100.00, s.BestBid)
	assert.Equal(t, 100.02, s.BestAsk)
	assert.InDelta(t, 0.02, s.Spread, 1e-9)
	assert.InDelta(t, 2.0, s.SpreadBps, 0.01)
	assert.Len(t, s.Bids, 2)
	assert.Len(t, s.Asks, 2)
}

func TestZeroQuantityRemoves(t *testing.T) {
	b := New("ETH-USD")
	b.ApplySnapshot([]model.BookUpdate{
		bid(100.00, 1), bid(99.99, 2),
		ask(100.02, 1), ask(100.03, 3),
	})
	b.ApplyIncremental([]model.BookUpdate{bid(100.00, 0)})

	s := b.Snapshot(10)
	assert.Equal(t, 99.99, s.BestBid)
	assert.Equal(t, 100.02, s.BestAsk)
}

func TestIncrementalOverwrites(t *testing.T) {
	b := New("ETH-USD")
	b.ApplySnapshot([]model.BookUpdate{bid(100.00, 1), ask(100.02, 1)})
	b.ApplyIncremental([]model.BookUpdate{bid(100.00, 5), bid(100.01, 0.5)})

	s := b.Snapshot(10)
	assert.Equal(t, 100.01, s.BestBid)
	assert.Equal(t, 0.5, s.BestBidQty)
	require.Len(t, s.Bids, 2)
	assert.Equal(t, 5.0, s.Bids[1].Quantity)
}

func TestSnapshotIdempotent(t *testing.T) {
	updates := []model.BookUpdate{
		bid(100.00, 1), bid(99.98, 4), bid(99.99, 2),
		ask(100.02, 1), ask(100.04, 2), ask(100.03, 3),
	}
	b := New("ETH-USD")
	b.ApplySnapshot(updates)
	first := b.Snapshot(10)

	b.ApplySnapshot(updates)
	second := b.Snapshot(10)

	assert.Equal(t, first.Bids, second.Bids)
	assert.Equal(t, first.Asks, second.Asks)
}

func TestSelfUpdateIsNoop(t *testing.T) {
	b := New("ETH-USD")
	b.ApplySnapshot([]model.BookUpdate{
		bid(100.00, 1), bid(99.99, 2),
		ask(100.02, 1),
	})
	before := b.Snapshot(10)

	// Re-sending every level at its current quantity must not change the book.
	b.ApplyIncremental([]model.BookUpdate{
		bid(100.00, 1), bid(99.99, 2),
		ask(100.02, 1),
	})
	after := b.Snapshot(10)

	assert.Equal(t, before.Bids, after.Bids)
	assert.Equal(t, before.Asks, after.Asks)
}

func TestNoZeroQuantityStored(t *testing.T) {
	b := New("ETH-USD")
	b.ApplySnapshot([]model.BookUpdate{
		bid(100.00, 0), bid(99.99, 2),
		ask(100.02, 1), ask(100.03, 0),
	})
	s := b.Snapshot(MaxLevels)
	for _, l := range append(s.Bids, s.Asks...) {
		assert.Greater(t, l.Quantity, 0.0)
	}
}

func TestLevelCap(t *testing.T) {
	b := New("ETH-USD")
	var updates []model.BookUpdate
	for i := 0; i < 150; i++ {
		updates = append(updates, bid(100-float64(i)*0.01, 1))
		updates = append(updates, ask(101+float64(i)*0.01, 1))
	}
	b.ApplySnapshot(updates)

	nBids, nAsks := b.Depth()
	assert.Equal(t, MaxLevels, nBids)
	assert.Equal(t, MaxLevels, nAsks)

	// The far end is pruned, the top survives.
	s := b.Snapshot(1)
	assert.Equal(t, 100.0, s.BestBid)
	assert.Equal(t, 101.0, s.BestAsk)
}

func TestCrossedBookCountedNotRepaired(t *testing.T) {
	b := New("ETH-USD")
	b.ApplySnapshot([]model.BookUpdate{bid(100.05, 1), ask(100.02, 1)})

	s := b.Snapshot(10)
	assert.Equal(t, 100.05, s.BestBid, "crossed input must not be repaired")
	assert.Equal(t, 100.02, s.BestAsk)
	assert.Equal(t, uint64(1), b.CrossedCount())
}

func TestInvalidWhenOneSideEmpty(t *testing.T) {
	b := New("ETH-USD")
	b.ApplySnapshot([]model.BookUpdate{bid(100.00, 1)})
	assert.False(t, b.Snapshot(10).Valid)
}
