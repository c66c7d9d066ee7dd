package book

import (
	"sort"
	"sync"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

// MaxLevels caps each side; the far end of the book is pruned beyond it.
const MaxLevels = 100

// Book mirrors the exchange L2 state for one symbol. Only the market
// data worker mutates it; snapshot readers may come from any goroutine.
// A whole update batch is applied under one lock, so readers never see
// mid-batch state.
type Book struct {
	mu     sync.RWMutex
	symbol string
	bids   []model.Level // sorted by price descending
	asks   []model.Level // sorted by price ascending

	lastUpdate   time.Time
	updateCount  uint64
	crossedCount uint64
	sequence     uint64
}

// New creates an empty book for the symbol.
func New(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   make([]model.Level, 0, MaxLevels),
		asks:   make([]model.Level, 0, MaxLevels),
	}
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() string {
	return b.symbol
}

// ApplySnapshot clears both sides and applies the listed levels.
// Zero-quantity entries are dropped.
func (b *Book) ApplySnapshot(updates []model.BookUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = b.bids[:0]
	b.asks = b.asks[:0]
	for _, u := range updates {
		if u.Price <= 0 || u.Quantity <= 0 {
			continue
		}
		switch u.Side {
		case enum.OrderSideBuy:
			b.bids = append(b.bids, model.Level{Price: u.Price, Quantity: u.Quantity})
		case enum.OrderSideSell:
			b.asks = append(b.asks, model.Level{Price: u.Price, Quantity: u.Quantity})
		}
	}
	sort.SliceStable(b.bids, func(i, j int) bool { return b.bids[i].Price > b.bids[j].Price })
	sort.SliceStable(b.asks, func(i, j int) bool { return b.asks[i].Price < b.asks[j].Price })
	b.dedupe()
	b.commit()
}

// ApplyIncremental applies updates in order: quantity zero removes the
// level, anything else overwrites it.
func (b *Book) ApplyIncremental(updates []model.BookUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range updates {
		if u.Price <= 0 {
			continue
		}
		switch u.Side {
		case enum.OrderSideBuy:
			b.bids = setLevel(b.bids, u.Price, u.Quantity, true)
		case enum.OrderSideSell:
			b.asks = setLevel(b.asks, u.Price, u.Quantity, false)
		}
	}
	b.commit()
}

// Snapshot returns an immutable top-of-book view with up to n levels per
// side. Valid is true only when both sides are populated.
func (b *Book) Snapshot(n int) model.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := model.Snapshot{
		Symbol:    b.symbol,
		Timestamp: b.lastUpdate,
		Sequence:  b.sequence,
		Valid:     len(b.bids) > 0 && len(b.asks) > 0,
	}
	if len(b.bids) > 0 {
		s.BestBid = b.bids[0].Price
		s.BestBidQty = b.bids[0].Quantity
	}
	if len(b.asks) > 0 {
		s.BestAsk = b.asks[0].Price
		s.BestAskQty = b.asks[0].Quantity
	}
	if s.Valid {
		s.Spread = s.BestAsk - s.BestBid
		if mid := (s.BestAsk + s.BestBid) / 2; mid > 0 {
			s.SpreadBps = s.Spread / mid * 10_000
		}
	}
	if n > 0 {
		s.Bids = append(s.Bids, b.bids[:minInt(n, len(b.bids))]...)
		s.Asks = append(s.Asks, b.asks[:minInt(n, len(b.asks))]...)
	}
	return s
}

// Depth returns the current level counts (bids, asks).
func (b *Book) Depth() (int, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bids), len(b.asks)
}

// UpdateCount returns the number of applied batches.
func (b *Book) UpdateCount() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updateCount
}

// CrossedCount returns how often a crossed top of book was observed
// after applying a batch. Crossed input is accepted as transient, never
// repaired.
func (b *Book) CrossedCount() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.crossedCount
}

// Reset drops all levels.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = b.bids[:0]
	b.asks = b.asks[:0]
}

// commit finishes a mutation batch: prune, stamp, count, check crossing.
// Caller holds the write lock.
func (b *Book) commit() {
	if len(b.bids) > MaxLevels {
		b.bids = b.bids[:MaxLevels]
	}
	if len(b.asks) > MaxLevels {
		b.asks = b.asks[:MaxLevels]
	}
	if len(b.bids) > 0 && len(b.asks) > 0 && b.bids[0].Price >= b.asks[0].Price {
		b.crossedCount++
	}
	b.lastUpdate = time.Now()
	b.updateCount++
	b.sequence++
}

// dedupe collapses duplicate prices after a snapshot sort, keeping the
// last occurrence. Caller holds the write lock.
func (b *Book) dedupe() {
	b.bids = compactLevels(b.bids)
	b.asks = compactLevels(b.asks)
}

func compactLevels(levels []model.Level) []model.Level {
	out := levels[:0]
	for _, l := range levels {
		if len(out) > 0 && out[len(out)-1].Price == l.Price {
			out[len(out)-1] = l
			continue
		}
		out = append(out, l)
	}
	return out
}

// setLevel overwrites or removes one price level, preserving sort order.
// desc is true for the bid side.
func setLevel(levels []model.Level, price, qty float64, desc bool) []model.Level {
	i := sort.Search(len(levels), func(i int) bool {
		if desc {
			return levels[i].Price <= price
		}
		return levels[i].Price >= price
	})
	found := i < len(levels) && levels[i].Price == price

	if qty <= 0 {
		if found {
			levels = append(levels[:i], levels[i+1:]...)
		}
		return levels
	}
	if found {
		levels[i].Quantity = qty
		return levels
	}
	levels = append(levels, model.Level{})
	copy(levels[i+1:], levels[i:])
	levels[i] = model.Level{Price: price, Quantity: qty}
	return levels
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
