package obs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := NewMetrics()
	m.IncOrdersPlaced()
	m.IncOrdersPlaced()
	m.IncOrdersFilled()
	m.IncOrdersCanceled()
	m.IncMarketUpdates()
	m.IncParseErrors()
	m.IncQueueDrops()

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.OrdersPlaced)
	assert.Equal(t, uint64(1), s.OrdersFilled)
	assert.Equal(t, uint64(1), s.OrdersCanceled)
	assert.Equal(t, uint64(1), s.MarketUpdates)
	assert.Equal(t, uint64(1), s.ParseErrors)
	assert.Equal(t, uint64(1), s.QueueDrops)
}

func TestRunningAverageRecurrence(t *testing.T) {
	var l LatencyStats

	// The estimate must follow avg <- (avg + sample) / 2 exactly.
	samples := []uint64{100, 200, 1000, 50}
	var want uint64
	for i, s := range samples {
		l.Observe(time.Duration(s))
		if i == 0 {
			want = s
		} else {
			want = (want + s) / 2
		}
		assert.Equal(t, time.Duration(want), l.Snapshot().Avg, "after sample %d", i)
	}
}

func TestMinMax(t *testing.T) {
	var l LatencyStats
	for _, s := range []time.Duration{500, 100, 900, 300} {
		l.Observe(s)
	}
	snap := l.Snapshot()
	assert.Equal(t, time.Duration(100), snap.Min)
	assert.Equal(t, time.Duration(900), snap.Max)
	assert.Equal(t, uint64(4), snap.Count)
}

func TestNegativeSampleIgnored(t *testing.T) {
	var l LatencyStats
	l.Observe(-time.Second)
	assert.Zero(t, l.Snapshot().Count)
}

func TestOrderRate(t *testing.T) {
	m := NewMetrics()
	base := time.Unix(1_700_000_000, 0)

	m.UpdateOrderRate(base) // seeds the window
	for i := 0; i < 50; i++ {
		m.IncOrdersPlaced()
	}
	m.UpdateOrderRate(base.Add(time.Second))

	assert.Equal(t, uint64(50), m.Snapshot().OrdersPerSecond)

	// Sub-second calls keep the previous rate.
	m.IncOrdersPlaced()
	m.UpdateOrderRate(base.Add(1500 * time.Millisecond))
	assert.Equal(t, uint64(50), m.Snapshot().OrdersPerSecond)
}
