package strategy

import (
	"main/internal/model"
)

// Params are the static quoting parameters.
type Params struct {
	TickSize          float64
	SpreadOffsetTicks float64
	MinSpreadTicks    float64
	OrderSize         float64
	NeutralBand       float64
	ImbalanceFactor   float64
	HardCap           float64
	Levels            int
}

// Signal is a pure quoting decision derived from one market snapshot and
// the current inventory.
type Signal struct {
	PlaceBid bool
	PlaceAsk bool
	BidPrice float64
	BidQty   float64
	AskPrice float64
	AskQty   float64
	Levels   int
}

// BidLevel returns the price and quantity for ladder level k (0-based).
// Deeper levels sit farther from the market and carry less size.
func (s Signal) BidLevel(k int, tick float64) (float64, float64) {
	return s.BidPrice - float64(k)*tick*0.1, s.BidQty * (1 - 0.1*float64(k))
}

// AskLevel returns the price and quantity for ladder level k (0-based).
func (s Signal) AskLevel(k int, tick float64) (float64, float64) {
	return s.AskPrice + float64(k)*tick*0.1, s.AskQty * (1 - 0.1*float64(k))
}

// Generate computes the quoting decision. It is deterministic and free
// of side effects: the same snapshot and inventory always produce the
// same signal.
func Generate(snap model.Snapshot, inventory float64, p Params) Signal {
	sig := Signal{Levels: p.Levels}
	if sig.Levels < 1 {
		sig.Levels = 1
	}
	if !snap.Valid {
		return sig
	}

	offset := p.SpreadOffsetTicks * p.TickSize
	sig.BidPrice = snap.BestBid - offset
	sig.AskPrice = snap.BestAsk + offset

	// Never quote tighter than the minimum spread; recentre around mid
	// with exactly the minimum width.
	minSpread := p.MinSpreadTicks * p.TickSize
	if sig.AskPrice-sig.BidPrice < minSpread {
		mid := snap.Mid()
		sig.BidPrice = mid - minSpread/2
		sig.AskPrice = mid + minSpread/2
	}

	sig.BidQty = p.OrderSize
	sig.AskQty = p.OrderSize

	// Inventory skew: bias size and widen the passive side so fills
	// revert the position. Quotes only move away from the market, so a
	// limit can never cross.
	if inventory > p.NeutralBand {
		sig.BidQty *= 0.5
		sig.AskQty *= p.ImbalanceFactor
		sig.AskPrice = snap.BestAsk + 1.5*p.TickSize
	} else if inventory < -p.NeutralBand {
		sig.AskQty *= 0.5
		sig.BidQty *= p.ImbalanceFactor
		sig.BidPrice = snap.BestBid - 1.5*p.TickSize
	}

	// Inventory penalty: fade both sides toward zero as |inventory|
	// approaches the hard cap.
	if p.HardCap > 0 {
		scale := 1 - abs(inventory)/p.HardCap
		if scale < 0 {
			scale = 0
		}
		sig.BidQty *= scale
		sig.AskQty *= scale
	}

	sig.PlaceBid = sig.BidQty > 0
	sig.PlaceAsk = sig.AskQty > 0
	return sig
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
