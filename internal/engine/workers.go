package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/gateway"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/store"
	"main/internal/strategy"
)

const (
	tradingIdleSleep = 200 * time.Microsecond
	riskPollInterval = 100 * time.Millisecond
)

// marketDataWorker drains parsed L2 events, applies them to the order
// book, publishes the atomic market state and hands snapshots to the
// trading worker through the market ring.
func (e *Engine) marketDataWorker() {
	events := e.source.Events()
	for e.running.Load() {
		select {
		case <-e.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.applyMarketEvent(ev)
		}
	}
}

func (e *Engine) applyMarketEvent(ev model.MarketEvent) {
	switch ev.Kind {
	case model.MarketEventSnapshot:
		e.book.ApplySnapshot(ev.Updates)
	case model.MarketEventUpdate:
		e.book.ApplyIncremental(ev.Updates)
	default:
		e.metrics.IncParseErrors()
		return
	}
	e.metrics.IncMarketUpdates()

	snap := e.book.Snapshot(10)
	if !snap.Valid {
		return
	}
	if snap.BestBid >= snap.BestAsk {
		e.journal.Warning(fmt.Sprintf("crossed book observed: bid %.2f >= ask %.2f", snap.BestBid, snap.BestAsk))
		return
	}

	e.market.Publish(snap.BestBid, snap.BestAsk, snap.SpreadBps, snap.Timestamp)
	e.tracker.ObserveSpread(snap.SpreadBps)
	e.journal.OrderBook(snap.Symbol, snap.BestBid, snap.BestAsk, snap.BestBidQty, snap.BestAskQty)

	if !e.mdRing.Push(snap) {
		e.metrics.IncQueueDrops()
	}
	if !ev.RecvTime.IsZero() {
		e.metrics.ObserveMarketLatency(time.Since(ev.RecvTime))
	}
}

// tradingWorker runs the quote loop: drain market snapshots, generate a
// signal, gate and submit the ladder, apply fills, expire stale quotes.
// It re-quotes at the configured refresh cadence even without a new
// market event, coalescing identical quotes.
func (e *Engine) tradingWorker() {
	refresh := time.Duration(e.cfg.OrderRefreshIntervalMs) * time.Millisecond

	var (
		last     model.Snapshot
		haveSnap bool
		lastBid  float64
		lastAsk  float64
		quotedAt time.Time
	)

	for e.running.Load() {
		worked := false

		for {
			snap, ok := e.mdRing.Pop()
			if !ok {
				break
			}
			last = snap
			haveSnap = true
			worked = true
		}

		now := time.Now()
		if haveSnap && now.Sub(quotedAt) >= refresh {
			sig := strategy.Generate(last, e.tracker.Net(), e.params)
			if sig.PlaceBid || sig.PlaceAsk {
				// Coalesce: identical prices while the previous ladder
				// is still live would only duplicate the quotes.
				if sig.BidPrice != lastBid || sig.AskPrice != lastAsk || now.Sub(quotedAt) > e.staleAfter() {
					e.placeLadder(sig, now)
					lastBid, lastAsk = sig.BidPrice, sig.AskPrice
					quotedAt = now
					worked = true
				}
			}
		}

		for {
			fill, ok := e.gateway.PollFill()
			if !ok {
				break
			}
			e.applyFill(fill)
			worked = true
		}

		e.expireStaleOrders(now)

		if !worked {
			time.Sleep(tradingIdleSleep)
		}
	}
}

func (e *Engine) staleAfter() time.Duration {
	if e.cfg.PaperTrading {
		return paperStaleAfter
	}
	return time.Duration(e.cfg.OrderTimeoutSeconds) * time.Second
}

func (e *Engine) placeLadder(sig strategy.Signal, now time.Time) {
	start := time.Now()
	for level := 0; level < sig.Levels; level++ {
		if sig.PlaceBid {
			price, qty := sig.BidLevel(level, e.params.TickSize)
			e.placeOrder(enum.OrderSideBuy, price, qty, level, now)
		}
		if sig.PlaceAsk {
			price, qty := sig.AskLevel(level, e.params.TickSize)
			e.placeOrder(enum.OrderSideSell, price, qty, level, now)
		}
	}
	e.metrics.ObserveOrderLatency(time.Since(start))
}

func (e *Engine) placeOrder(side enum.OrderSide, price, qty float64, level int, now time.Time) {
	if price <= 0 || qty <= 0 {
		return
	}

	ok, reason := e.risk.CanPlaceOrder(e.cfg.TradingSymbol, side, price, qty)
	if !ok {
		e.metrics.IncOrdersRejected()
		e.journal.Debug("order rejected: " + reason)
		return
	}

	order := newOrder(e.idGen, e.cfg.TradingSymbol, side, price, qty, level, now)
	outcome, err := e.gateway.Submit(*order)
	if err != nil {
		if errors.Is(err, gateway.ErrTransport) || errors.Is(err, gateway.ErrCanceled) {
			e.metrics.IncOrdersFailed()
			e.journal.Warning("order submit failed: " + err.Error())
			return
		}
		e.metrics.IncOrdersFailed()
		e.journal.Error("order submit error: " + err.Error())
		return
	}
	if !outcome.Accepted {
		order.Status = enum.OrderStatusRejected
		e.metrics.IncOrdersRejected()
		e.journal.Debug("order rejected by gateway: " + outcome.Reason)
		return
	}

	e.orders.add(order)
	e.risk.RecordOrderPlaced()
	e.metrics.IncOrdersPlaced()
	e.saveOrder(*order)
}

func (e *Engine) applyFill(fill model.Fill) {
	order, tracked := e.orders.get(fill.OrderID)
	if tracked {
		order.FilledQty += fill.Quantity
		order.UpdateTime = fill.FillTime
		if order.FilledQty >= order.Quantity {
			order.Status = enum.OrderStatusFilled
		} else {
			order.Status = enum.OrderStatusPartial
		}
	}

	delta := e.tracker.ApplyFill(fill)
	e.risk.UpdatePosition(fill.Symbol, fill.Quantity, fill.Side)
	if delta != 0 {
		e.risk.UpdatePnL(delta)
	}
	e.metrics.IncOrdersFilled()

	id := fill.OrderID
	if tracked {
		id = order.ClientID
	}
	e.journal.Trade(fill.Symbol, fill.Side, fill.Quantity, fill.Price, id)

	stats := e.tracker.Snapshot()
	mark := fill.Price
	if e.market.Ready() {
		mark = (e.market.BestBid() + e.market.BestAsk()) / 2
	}
	unrealized := e.tracker.Unrealized(mark)
	e.journal.PnL(fill.Symbol, stats.Net, stats.AvgCost, stats.Realized, unrealized, stats.Realized+unrealized, id)

	if tracked && order.Status.IsTerminal() {
		e.orders.remove(order.OrderID)
		e.deleteOrder(order.ClientID)
	}
}

// expireStaleOrders cancels quotes that stayed NEW past the staleness
// bound and marks them EXPIRED.
func (e *Engine) expireStaleOrders(now time.Time) {
	for _, order := range e.orders.stale(now, e.staleAfter()) {
		if err := e.gateway.Cancel(order.OrderID); err != nil {
			e.journal.Warning("cancel failed: " + err.Error())
		}
		order.Status = enum.OrderStatusExpired
		order.UpdateTime = now
		e.metrics.IncOrdersExpired()
		e.metrics.IncOrdersCanceled()
		e.orders.remove(order.OrderID)
		e.deleteOrder(order.ClientID)
	}
}

func (e *Engine) saveOrder(order model.Order) {
	ctx, cancel := context.WithTimeout(e.ctx, 50*time.Millisecond)
	defer cancel()
	if err := store.SaveOrder(ctx, e.kv, order); err != nil {
		e.journal.Debug("order cache save failed: " + err.Error())
	}
}

func (e *Engine) deleteOrder(clientID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := e.kv.Delete(ctx, clientID); err != nil {
		e.journal.Debug("order cache delete failed: " + err.Error())
	}
}

// riskWorker polls the circuit breaker at 10 Hz and forces the stop on
// an emergency. PnL deltas reach the risk manager synchronously on the
// fill path; this worker only reacts to the derived status.
func (e *Engine) riskWorker() {
	ticker := time.NewTicker(riskPollInterval)
	defer ticker.Stop()

	for e.running.Load() {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if e.risk.BreakerActive() {
				reason := e.risk.BreakerReason()
				e.journal.Critical("RISK BREACH: circuit breaker active: " + reason)
				e.journal.Health("risk", false, reason)
				logs.Errorf("circuit breaker active, stopping engine: %s", reason)
				e.emergency.Store(true)
				e.running.Store(false)
				e.cancel()
				return
			}
		}
	}
}

// metricsWorker refreshes the order rate each second, prints the 5 s
// one-line trade summary and the 10 s performance block.
func (e *Engine) metricsWorker() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var (
		lastSummary  = time.Now()
		lastPrint    = time.Now()
		lastTrades   uint64
		lastRealized float64
	)

	for e.running.Load() {
		select {
		case <-e.ctx.Done():
			return
		case now := <-ticker.C:
			e.metrics.UpdateOrderRate(now)

			if now.Sub(lastSummary) >= 5*time.Second {
				stats := e.tracker.Snapshot()
				snap := e.metrics.Snapshot()
				trades := stats.TotalTrades()
				logs.Infof("5s: %d trades | PnL: $%.6f | Pos: %.6f | Order: %.3fms | Total: %d | Cumulative PnL: $%.6f",
					trades-lastTrades, stats.Realized-lastRealized, stats.Net,
					float64(snap.OrderLatency.Avg)/1e6, trades, stats.Realized)
				lastTrades = trades
				lastRealized = stats.Realized
				lastSummary = now
			}

			if now.Sub(lastPrint) >= 10*time.Second {
				e.printPerformance(now)
				lastPrint = now
			}
		}
	}
}

func (e *Engine) printPerformance(now time.Time) {
	stats := e.tracker.Snapshot()
	snap := e.metrics.Snapshot()
	runtime := now.Sub(e.startedAt).Seconds()
	if runtime < 1 {
		runtime = 1
	}
	logs.Infof("performance: runtime=%.0fs trades=%d position=%.6f pnl=$%.6f orders/s=%d placed=%d filled=%d canceled=%d drops=%d",
		runtime, stats.TotalTrades(), stats.Net, stats.Realized,
		snap.OrdersPerSecond, snap.OrdersPlaced, snap.OrdersFilled, snap.OrdersCanceled, snap.QueueDrops)
	e.journal.Health("engine", true, fmt.Sprintf("trades=%d pnl=%.6f position=%.6f", stats.TotalTrades(), stats.Realized, stats.Net))
}
