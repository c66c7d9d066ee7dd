package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects the hot-path counters and latency stats. Everything
// is atomic; nothing here takes a lock.
type Metrics struct {
	ordersPlaced   atomic.Uint64
	ordersFilled   atomic.Uint64
	ordersCanceled atomic.Uint64
	ordersRejected atomic.Uint64
	ordersExpired  atomic.Uint64
	ordersFailed   atomic.Uint64
	marketUpdates  atomic.Uint64
	parseErrors    atomic.Uint64
	queueDrops     atomic.Uint64

	ordersPerSecond atomic.Uint64
	lastRateUpdate  atomic.Int64 // unix millis
	lastRateOrders  atomic.Uint64

	orderLatency  LatencyStats
	marketLatency LatencyStats
}

// LatencyStats aggregates nanosecond samples: CAS min/max plus the
// smoothed running estimate avg = (avg + sample) / 2. The estimate is
// deliberately cheap and is not a statistical mean.
type LatencyStats struct {
	count atomic.Uint64
	avg   atomic.Uint64
	min   atomic.Uint64
	max   atomic.Uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metric values.
type Snapshot struct {
	OrdersPlaced    uint64
	OrdersFilled    uint64
	OrdersCanceled  uint64
	OrdersRejected  uint64
	OrdersExpired   uint64
	OrdersFailed    uint64
	MarketUpdates   uint64
	ParseErrors     uint64
	QueueDrops      uint64
	OrdersPerSecond uint64
	OrderLatency    LatencySnapshot
	MarketLatency   LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncOrdersPlaced() { m.ordersPlaced.Add(1) }

func (m *Metrics) IncOrdersFilled() { m.ordersFilled.Add(1) }

func (m *Metrics) IncOrdersCanceled() { m.ordersCanceled.Add(1) }

func (m *Metrics) IncOrdersRejected() { m.ordersRejected.Add(1) }

func (m *Metrics) IncOrdersExpired() { m.ordersExpired.Add(1) }

func (m *Metrics) IncOrdersFailed() { m.ordersFailed.Add(1) }

func (m *Metrics) IncMarketUpdates() { m.marketUpdates.Add(1) }

func (m *Metrics) IncParseErrors() { m.parseErrors.Add(1) }

func (m *Metrics) IncQueueDrops() { m.queueDrops.Add(1) }

// OrdersPlaced returns the placed-order count.
func (m *Metrics) OrdersPlaced() uint64 { return m.ordersPlaced.Load() }

// ObserveOrderLatency records one order-placement path sample.
func (m *Metrics) ObserveOrderLatency(d time.Duration) {
	m.orderLatency.Observe(d)
}

// ObserveMarketLatency records one market-data-to-state sample.
func (m *Metrics) ObserveMarketLatency(d time.Duration) {
	m.marketLatency.Observe(d)
}

// UpdateOrderRate recomputes orders-per-second over the elapsed window.
// Called by the metrics worker, at most once per second of wall time.
func (m *Metrics) UpdateOrderRate(now time.Time) {
	nowMs := now.UnixMilli()
	last := m.lastRateUpdate.Load()
	if last == 0 {
		m.lastRateUpdate.Store(nowMs)
		m.lastRateOrders.Store(m.ordersPlaced.Load())
		return
	}
	elapsed := nowMs - last
	if elapsed < 1000 {
		return
	}
	orders := m.ordersPlaced.Load()
	delta := orders - m.lastRateOrders.Load()
	m.ordersPerSecond.Store(delta * 1000 / uint64(elapsed))
	m.lastRateOrders.Store(orders)
	m.lastRateUpdate.Store(nowMs)
}

// Snapshot returns a copy of the current values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		OrdersPlaced:    m.ordersPlaced.Load(),
		OrdersFilled:    m.ordersFilled.Load(),
		OrdersCanceled:  m.ordersCanceled.Load(),
		OrdersRejected:  m.ordersRejected.Load(),
		OrdersExpired:   m.ordersExpired.Load(),
		OrdersFailed:    m.ordersFailed.Load(),
		MarketUpdates:   m.marketUpdates.Load(),
		ParseErrors:     m.parseErrors.Load(),
		QueueDrops:      m.queueDrops.Load(),
		OrdersPerSecond: m.ordersPerSecond.Load(),
		OrderLatency:    m.orderLatency.Snapshot(),
		MarketLatency:   m.marketLatency.Snapshot(),
	}
}

// Observe records one duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	l.count.Add(1)

	for {
		avg := l.avg.Load()
		next := nanos
		if avg != 0 {
			next = (avg + nanos) / 2
		}
		if l.avg.CompareAndSwap(avg, next) {
			break
		}
	}

	for {
		min := l.min.Load()
		if min != 0 && nanos >= min {
			break
		}
		if l.min.CompareAndSwap(min, nanos) {
			break
		}
	}

	for {
		max := l.max.Load()
		if nanos <= max {
			break
		}
		if l.max.CompareAndSwap(max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := l.count.Load()
	if count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(l.min.Load()),
		Max:   time.Duration(l.max.Load()),
		Avg:   time.Duration(l.avg.Load()),
	}
}
