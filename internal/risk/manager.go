package risk

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"main/internal/model/enum"
)

// Config defines the risk limits.
type Config struct {
	DailyLossLimit       float64 // magnitude in dollars, stored negative
	DrawdownLimit        float64 // magnitude in dollars
	MaxOrdersPerSecond   int
	EnableCircuitBreaker bool
}

// Manager gates every order and latches the circuit breaker on a limit
// breach. State is partitioned into three independently locked groups —
// positions, financial, operational — so the pre-trade gate never holds
// more than one lock at a time and no lock cycle can form.
type Manager struct {
	posMu          sync.Mutex
	positions      map[string]float64
	positionLimits map[string]float64

	finMu          sync.Mutex
	currentPnL     float64
	dailyPnL       float64
	peakPnL        float64
	dailyLossLimit float64 // <= 0
	drawdownLimit  float64 // <= 0
	dailyResetAt   time.Time

	opMu         sync.Mutex
	recentOrders []time.Time
	maxPerSecond int

	breakerActive atomic.Bool
	breakerMu     sync.Mutex
	breakerReason string
	enableBreaker bool

	evMu   sync.Mutex
	events []Event

	now func() time.Time
}

// NewManager creates a manager with the given limits.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		positions:      make(map[string]float64),
		positionLimits: make(map[string]float64),
		dailyLossLimit: -math.Abs(cfg.DailyLossLimit),
		drawdownLimit:  -math.Abs(cfg.DrawdownLimit),
		maxPerSecond:   cfg.MaxOrdersPerSecond,
		enableBreaker:  cfg.EnableCircuitBreaker,
		now:            time.Now,
	}
	m.dailyResetAt = m.startOfDay(m.now())
	m.record(EventSystemHealth, enum.RiskLevelInfo, "risk manager initialized", "", 0, 0)
	return m
}

// SetClock injects a time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SetPositionLimit sets the absolute net-position cap for a symbol.
func (m *Manager) SetPositionLimit(symbol string, limit float64) {
	m.posMu.Lock()
	defer m.posMu.Unlock()
	m.positionLimits[symbol] = limit
}

// CanPlaceOrder is the pre-trade gate. It returns false with a reason
// when the order must be rejected. The position check observes every
// position mutation committed before the call.
func (m *Manager) CanPlaceOrder(symbol string, side enum.OrderSide, price, qty float64) (bool, string) {
	if m.breakerActive.Load() {
		return false, "Circuit breaker active: " + m.BreakerReason()
	}

	if ok, projected, limit := m.checkPositionLimit(symbol, side, qty); !ok {
		m.record(EventPositionLimitExceeded, enum.RiskLevelCritical,
			"Order rejected: Position limit exceeded", symbol, projected, limit)
		return false, "Position limit exceeded for " + symbol
	}

	if !m.checkFinancialLimits() {
		return false, "Financial risk limits exceeded"
	}

	if !m.checkOrderRate() {
		m.record(EventOrderRateLimitExceeded, enum.RiskLevelWarning,
			"Order rejected: Rate limit exceeded", symbol, 0, 0)
		return false, "Order rate limit exceeded"
	}

	return true, ""
}

// UpdatePosition commits a fill to the risk view of the position.
func (m *Manager) UpdatePosition(symbol string, qty float64, side enum.OrderSide) {
	signed := qty
	if side == enum.OrderSideSell {
		signed = -qty
	}

	m.posMu.Lock()
	m.positions[symbol] += signed
	pos := m.positions[symbol]
	limit, hasLimit := m.positionLimits[symbol]
	m.posMu.Unlock()

	if hasLimit && limit > 0 {
		utilization := math.Abs(pos) / limit
		if utilization > 0.8 {
			m.record(EventPositionWarning, enum.RiskLevelWarning,
				fmt.Sprintf("Position utilization high: %.1f%%", utilization*100),
				symbol, math.Abs(pos), limit)
		}
	}
}

// UpdatePnL applies a realised-PnL delta and checks the financial
// limits. A daily-loss or drawdown breach latches the circuit breaker.
func (m *Manager) UpdatePnL(delta float64) {
	m.finMu.Lock()
	m.currentPnL += delta
	m.dailyPnL += delta
	if m.currentPnL > m.peakPnL {
		m.peakPnL = m.currentPnL
	}
	daily := m.dailyPnL
	drawdown := m.peakPnL - m.currentPnL
	lossLimit := m.dailyLossLimit
	ddLimit := m.drawdownLimit
	m.finMu.Unlock()

	if lossLimit < 0 && daily <= lossLimit {
		m.record(EventDailyLossLimitExceeded, enum.RiskLevelEmergency,
			fmt.Sprintf("Daily loss limit exceeded: $%.4f", daily), "", daily, lossLimit)
		m.TriggerBreaker("Daily loss limit exceeded")
		return
	}
	if ddLimit < 0 && drawdown >= -ddLimit {
		m.record(EventDrawdownLimitExceeded, enum.RiskLevelEmergency,
			fmt.Sprintf("Drawdown limit exceeded: $%.4f", drawdown), "", drawdown, ddLimit)
		m.TriggerBreaker("Drawdown limit exceeded")
		return
	}
	if lossLimit < 0 && daily <= lossLimit*0.7 {
		m.record(EventPnLWarning, enum.RiskLevelWarning,
			fmt.Sprintf("Approaching daily loss limit: $%.4f", daily), "", daily, lossLimit)
	}
}

// RecordOrderPlaced timestamps one accepted order for rate limiting.
func (m *Manager) RecordOrderPlaced() {
	now := m.now()
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.recentOrders = append(m.recentOrders, now)
	m.pruneLocked(now)
}

// OrdersLastSecond counts timestamps within the trailing one second.
func (m *Manager) OrdersLastSecond() int {
	cutoff := m.now().Add(-time.Second)
	m.opMu.Lock()
	defer m.opMu.Unlock()
	n := 0
	for _, ts := range m.recentOrders {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// TriggerBreaker latches the circuit breaker. A no-op when breakers are
// disabled by configuration.
func (m *Manager) TriggerBreaker(reason string) {
	if !m.enableBreaker {
		return
	}
	m.breakerMu.Lock()
	m.breakerReason = reason
	m.breakerMu.Unlock()
	m.breakerActive.Store(true)
	m.record(EventCircuitBreakerTriggered, enum.RiskLevelEmergency,
		"Circuit breaker triggered: "+reason, "", 0, 0)
}

// ResetBreaker clears the latch. Explicit operator action only.
func (m *Manager) ResetBreaker() {
	m.breakerActive.Store(false)
	m.breakerMu.Lock()
	m.breakerReason = ""
	m.breakerMu.Unlock()
	m.record(EventCircuitBreakerTriggered, enum.RiskLevelInfo, "Circuit breaker reset", "", 0, 0)
}

// BreakerActive reports whether the latch is set.
func (m *Manager) BreakerActive() bool {
	return m.breakerActive.Load()
}

// BreakerReason returns the latch reason, empty when inactive.
func (m *Manager) BreakerReason() string {
	m.breakerMu.Lock()
	defer m.breakerMu.Unlock()
	return m.breakerReason
}

// Status derives the risk posture from the breaker latch and the recent
// event window.
func (m *Manager) Status() enum.RiskStatus {
	if m.breakerActive.Load() {
		return enum.RiskStatusEmergency
	}

	cutoff := m.now().Add(-5 * time.Minute)
	critical, warnings := 0, 0

	m.evMu.Lock()
	for _, e := range m.events {
		if !e.Timestamp.After(cutoff) {
			continue
		}
		switch e.Level {
		case enum.RiskLevelCritical, enum.RiskLevelEmergency:
			critical++
		case enum.RiskLevelWarning:
			warnings++
		}
	}
	m.evMu.Unlock()

	switch {
	case critical > 0:
		return enum.RiskStatusCritical
	case warnings > 3:
		return enum.RiskStatusWarning
	default:
		return enum.RiskStatusNormal
	}
}

// RecentEvents returns up to n of the newest events, oldest first.
func (m *Manager) RecentEvents(n int) []Event {
	m.evMu.Lock()
	defer m.evMu.Unlock()
	start := len(m.events) - n
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(m.events)-start)
	copy(out, m.events[start:])
	return out
}

// DailyPnL returns the financial counters (daily, peak, drawdown).
func (m *Manager) DailyPnL() (daily, peak, drawdown float64) {
	m.finMu.Lock()
	defer m.finMu.Unlock()
	return m.dailyPnL, m.peakPnL, m.peakPnL - m.currentPnL
}

// Position returns the risk view of the symbol's net position.
func (m *Manager) Position(symbol string) float64 {
	m.posMu.Lock()
	defer m.posMu.Unlock()
	return m.positions[symbol]
}

// ResetDaily rolls the daily counters. Called by the monitor at local
// midnight.
func (m *Manager) ResetDaily() {
	m.finMu.Lock()
	m.dailyPnL = 0
	m.dailyResetAt = m.startOfDay(m.now())
	m.finMu.Unlock()
	m.record(EventSystemHealth, enum.RiskLevelInfo, "Daily limits reset", "", 0, 0)
}

// Monitor runs the 1 Hz background loop: daily rollover at local
// midnight and pruning of the order-rate window.
func (m *Manager) Monitor(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := m.now()

			m.finMu.Lock()
			rollover := now.Sub(m.dailyResetAt) >= 24*time.Hour
			m.finMu.Unlock()
			if rollover {
				m.ResetDaily()
			}

			m.opMu.Lock()
			m.pruneLocked(now)
			m.opMu.Unlock()
		}
	}
}

// WriteReport renders the final risk block.
func (m *Manager) WriteReport(w io.Writer) {
	banner := strings.Repeat("=", 80)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, "                           RISK MANAGEMENT REPORT")
	fmt.Fprintln(w, banner)
	fmt.Fprintf(w, "Generated: %s\n\n", m.now().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "CURRENT RISK STATUS: %s\n\n", m.Status())

	daily, peak, drawdown := m.DailyPnL()
	m.finMu.Lock()
	current := m.currentPnL
	lossLimit := m.dailyLossLimit
	ddLimit := m.drawdownLimit
	m.finMu.Unlock()

	fmt.Fprintln(w, "FINANCIAL RISK:")
	fmt.Fprintf(w, "  Current P&L: $%.4f\n", current)
	fmt.Fprintf(w, "  Daily P&L: $%.4f\n", daily)
	fmt.Fprintf(w, "  Peak P&L: $%.4f\n", peak)
	fmt.Fprintf(w, "  Current Drawdown: $%.4f\n", drawdown)
	fmt.Fprintf(w, "  Daily Loss Limit: $%.4f\n", math.Abs(lossLimit))
	fmt.Fprintf(w, "  Drawdown Limit: $%.4f\n\n", math.Abs(ddLimit))

	fmt.Fprintln(w, "POSITION RISK:")
	m.posMu.Lock()
	for symbol, pos := range m.positions {
		limit := m.positionLimits[symbol]
		fmt.Fprintf(w, "  %s: position %.8f limit %.8f\n", symbol, pos, limit)
	}
	m.posMu.Unlock()
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OPERATIONAL RISK:")
	fmt.Fprintf(w, "  Current Order Rate: %d/sec\n", m.OrdersLastSecond())
	fmt.Fprintf(w, "  Max Order Rate: %d/sec\n", m.maxPerSecond)
	fmt.Fprintf(w, "  Circuit Breaker Active: %v\n", m.BreakerActive())
	if m.BreakerActive() {
		fmt.Fprintf(w, "  Circuit Breaker Reason: %s\n", m.BreakerReason())
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "RECENT RISK EVENTS (Last 20):")
	for _, e := range m.RecentEvents(20) {
		fmt.Fprintf(w, "  %s\n", e.Format())
	}
	fmt.Fprintln(w, banner)
}

func (m *Manager) checkPositionLimit(symbol string, side enum.OrderSide, qty float64) (ok bool, projected, limit float64) {
	signed := qty
	if side == enum.OrderSideSell {
		signed = -qty
	}

	m.posMu.Lock()
	defer m.posMu.Unlock()

	limit, hasLimit := m.positionLimits[symbol]
	if !hasLimit {
		return true, 0, 0
	}
	projected = m.positions[symbol] + signed
	return math.Abs(projected) <= limit, projected, limit
}

func (m *Manager) checkFinancialLimits() bool {
	m.finMu.Lock()
	defer m.finMu.Unlock()
	if m.dailyLossLimit < 0 && m.dailyPnL <= m.dailyLossLimit {
		return false
	}
	if m.drawdownLimit < 0 && m.peakPnL-m.currentPnL >= -m.drawdownLimit {
		return false
	}
	return true
}

func (m *Manager) checkOrderRate() bool {
	if m.maxPerSecond <= 0 {
		return true
	}
	cutoff := m.now().Add(-time.Second)
	m.opMu.Lock()
	defer m.opMu.Unlock()
	n := 0
	for _, ts := range m.recentOrders {
		if ts.After(cutoff) {
			n++
		}
	}
	return n < m.maxPerSecond
}

// pruneLocked drops order timestamps older than five seconds. Caller
// holds opMu.
func (m *Manager) pruneLocked(now time.Time) {
	cutoff := now.Add(-5 * time.Second)
	kept := m.recentOrders[:0]
	for _, ts := range m.recentOrders {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	m.recentOrders = kept
}

func (m *Manager) record(kind EventKind, level enum.RiskLevel, message, symbol string, value, limit float64) {
	e := Event{
		Kind:      kind,
		Level:     level,
		Message:   message,
		Symbol:    symbol,
		Value:     value,
		Limit:     limit,
		Timestamp: m.now(),
	}
	m.evMu.Lock()
	defer m.evMu.Unlock()
	m.events = append(m.events, e)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

func (m *Manager) startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
