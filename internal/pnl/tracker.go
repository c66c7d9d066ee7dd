package pnl

import (
	"math"
	"sync"

	"main/internal/model"
	"main/internal/model/enum"
)

// Stats is a point-in-time copy of the tracker state.
type Stats struct {
	Net          float64
	AvgCost      float64
	Realized     float64
	BuyTrades    uint64
	SellTrades   uint64
	BuyVolume    float64
	SellVolume   float64
	MinSpreadBps float64
	MaxSpreadBps float64
	SpreadSeen   bool
}

// TotalTrades returns the combined trade count.
func (s Stats) TotalTrades() uint64 {
	return s.BuyTrades + s.SellTrades
}

// Tracker maintains the net position, average cost and realised PnL for
// one symbol. Fills apply strictly in arrival order under one mutex, so
// a reader always observes the state as of the last completed fill.
type Tracker struct {
	mu       sync.Mutex
	net      float64
	prevNet  float64
	avgCost  float64
	realized float64

	buyTrades  uint64
	sellTrades uint64
	buyVolume  float64
	sellVolume float64

	minSpreadBps float64
	maxSpreadBps float64
	spreadSeen   bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// ApplyFill books one fill and returns the realised PnL delta.
//
// A buy that adds to a long (or a sell that adds to a short) moves the
// average cost by quantity-weighted average; a fill that reduces the
// position realises the difference against the average cost, on both
// sides symmetrically. A fill that flips the position realises the
// closing part and restarts the average cost at the fill price.
func (t *Tracker) ApplyFill(f model.Fill) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	signed := f.SignedQty()
	prev := t.net
	next := prev + signed

	var delta float64
	switch f.Side {
	case enum.OrderSideBuy:
		if prev < 0 {
			closeQty := math.Min(f.Quantity, -prev)
			delta = (t.avgCost - f.Price) * closeQty
			if next > 0 {
				t.avgCost = f.Price
			} else if next == 0 {
				t.avgCost = 0
			}
		} else {
			if next != 0 {
				t.avgCost = (t.avgCost*math.Abs(prev) + f.Quantity*f.Price) / math.Abs(next)
			} else {
				t.avgCost = f.Price
			}
		}
		t.buyTrades++
		t.buyVolume += f.Quantity
	case enum.OrderSideSell:
		if prev > 0 {
			closeQty := math.Min(f.Quantity, prev)
			delta = (f.Price - t.avgCost) * closeQty
			if next < 0 {
				t.avgCost = f.Price
			} else if next == 0 {
				t.avgCost = 0
			}
		} else {
			if next != 0 {
				t.avgCost = (t.avgCost*math.Abs(prev) + f.Quantity*f.Price) / math.Abs(next)
			} else {
				t.avgCost = f.Price
			}
		}
		t.sellTrades++
		t.sellVolume += f.Quantity
	default:
		return 0
	}

	t.net = next
	t.prevNet = next
	t.realized += delta
	return delta
}

// ObserveSpread records a quoted-spread sample for the session range.
func (t *Tracker) ObserveSpread(bps float64) {
	if bps == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.spreadSeen || bps < t.minSpreadBps {
		t.minSpreadBps = bps
	}
	if !t.spreadSeen || bps > t.maxSpreadBps {
		t.maxSpreadBps = bps
	}
	t.spreadSeen = true
}

// Net returns the current signed position.
func (t *Tracker) Net() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.net
}

// Realized returns the accumulated realised PnL.
func (t *Tracker) Realized() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.realized
}

// Unrealized marks the open position against the given price.
func (t *Tracker) Unrealized(mark float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.net == 0 || mark <= 0 {
		return 0
	}
	return t.net * (mark - t.avgCost)
}

// Snapshot copies the full tracker state.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Net:          t.net,
		AvgCost:      t.avgCost,
		Realized:     t.realized,
		BuyTrades:    t.buyTrades,
		SellTrades:   t.sellTrades,
		BuyVolume:    t.buyVolume,
		SellVolume:   t.sellVolume,
		MinSpreadBps: t.minSpreadBps,
		MaxSpreadBps: t.maxSpreadBps,
		SpreadSeen:   t.spreadSeen,
	}
}
