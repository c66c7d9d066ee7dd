package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
)

func snap(bid, ask float64) model.Snapshot {
	return model.Snapshot{
		Symbol:     "ETH-USD",
		BestBid:    bid,
		BestBidQty: 1,
		BestAsk:    ask,
		BestAskQty: 1,
		Spread:     ask - bid,
		Timestamp:  time.Unix(1_700_000_000, 0),
		Valid:      bid > 0 && ask > 0,
	}
}

func params() Params {
	return Params{
		TickSize:          0.01,
		SpreadOffsetTicks: 0.25,
		MinSpreadTicks:    0.5,
		OrderSize:         0.01,
		NeutralBand:       0.01,
		ImbalanceFactor:   1.5,
		HardCap:           0.1,
		Levels:            5,
	}
}

func TestSymmetricQuoteInsideNeutralBand(t *testing.T) {
	sig := Generate(snap(100.00, 100.02), 0, params())

	require.True(t, sig.PlaceBid)
	require.True(t, sig.PlaceAsk)
	assert.InDelta(t, 100.00-0.0025, sig.BidPrice, 1e-9)
	assert.InDelta(t, 100.02+0.0025, sig.AskPrice, 1e-9)
	assert.InDelta(t, 0.01, sig.BidQty, 1e-9)
	assert.InDelta(t, 0.01, sig.AskQty, 1e-9)
	assert.Equal(t, 5, sig.Levels)
}

func TestMinimumSpreadRecentre(t *testing.T) {
	// With no offset, a top of book tighter than the minimum width
	// forces the recentre branch.
	p := params()
	p.SpreadOffsetTicks = 0
	s := snap(100.000, 100.001)
	sig := Generate(s, 0, p)

	width := sig.AskPrice - sig.BidPrice
	assert.InDelta(t, 0.005, width, 1e-9, "width must be exactly min_spread_ticks*tick")
	mid := s.Mid()
	assert.InDelta(t, mid, (sig.AskPrice+sig.BidPrice)/2, 1e-9, "recentred around mid")
}

func TestLongInventorySkew(t *testing.T) {
	p := params()
	sig := Generate(snap(100.00, 100.02), 0.02, p)

	scale := 1 - 0.02/0.1
	assert.InDelta(t, 0.01*0.5*scale, sig.BidQty, 1e-9, "bid size halves when long")
	assert.InDelta(t, 0.01*1.5*scale, sig.AskQty, 1e-9)
	assert.InDelta(t, 100.02+1.5*p.TickSize, sig.AskPrice, 1e-9, "ask offset widens when long")
	assert.Greater(t, sig.AskPrice, snap(100.00, 100.02).BestAsk, "ask never crosses")
}

func TestShortInventoryMirrors(t *testing.T) {
	p := params()
	long := Generate(snap(100.00, 100.02), 0.02, p)
	short := Generate(snap(100.00, 100.02), -0.02, p)

	assert.InDelta(t, long.BidQty, short.AskQty, 1e-9)
	assert.InDelta(t, long.AskQty, short.BidQty, 1e-9)
	assert.InDelta(t, 100.00-1.5*p.TickSize, short.BidPrice, 1e-9)
}

func TestHardCapZeroesSize(t *testing.T) {
	p := params()
	sig := Generate(snap(100.00, 100.02), p.HardCap, p)
	assert.False(t, sig.PlaceBid)
	assert.False(t, sig.PlaceAsk)
	assert.Zero(t, sig.BidQty)
	assert.Zero(t, sig.AskQty)
}

func TestInvalidSnapshotProducesNoQuote(t *testing.T) {
	sig := Generate(model.Snapshot{Symbol: "ETH-USD"}, 0, params())
	assert.False(t, sig.PlaceBid)
	assert.False(t, sig.PlaceAsk)
}

func TestDeterministic(t *testing.T) {
	s := snap(100.00, 100.02)
	p := params()
	first := Generate(s, 0.015, p)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Generate(s, 0.015, p))
	}
}

func TestLadderLevels(t *testing.T) {
	p := params()
	sig := Generate(snap(100.00, 100.02), 0, p)

	for k := 0; k < sig.Levels; k++ {
		bidPx, bidQty := sig.BidLevel(k, p.TickSize)
		askPx, askQty := sig.AskLevel(k, p.TickSize)
		assert.InDelta(t, sig.BidPrice-float64(k)*p.TickSize*0.1, bidPx, 1e-9)
		assert.InDelta(t, sig.AskPrice+float64(k)*p.TickSize*0.1, askPx, 1e-9)
		assert.InDelta(t, sig.BidQty*(1-0.1*float64(k)), bidQty, 1e-9)
		assert.InDelta(t, sig.AskQty*(1-0.1*float64(k)), askQty, 1e-9)
	}
}
