package risk

import (
	"strconv"
	"time"

	"main/internal/model/enum"
)

// maxEvents bounds the in-memory event log; the oldest entries fall off.
const maxEvents = 1000

// EventKind classifies a risk event.
type EventKind uint8

const (
	_event_kind_beg EventKind = iota
	EventPositionLimitExceeded
	EventPositionWarning
	EventDailyLossLimitExceeded
	EventDrawdownLimitExceeded
	EventPnLWarning
	EventOrderRateLimitExceeded
	EventCircuitBreakerTriggered
	EventSystemHealth
	_event_kind_end
)

func (k EventKind) IsAvailable() bool {
	return k > _event_kind_beg && k < _event_kind_end
}

func (k EventKind) String() string {
	switch k {
	case EventPositionLimitExceeded:
		return "POSITION_LIMIT_EXCEEDED"
	case EventPositionWarning:
		return "POSITION_WARNING"
	case EventDailyLossLimitExceeded:
		return "DAILY_LOSS_LIMIT_EXCEEDED"
	case EventDrawdownLimitExceeded:
		return "DRAWDOWN_LIMIT_EXCEEDED"
	case EventPnLWarning:
		return "PNL_WARNING"
	case EventOrderRateLimitExceeded:
		return "ORDER_RATE_LIMIT_EXCEEDED"
	case EventCircuitBreakerTriggered:
		return "CIRCUIT_BREAKER_TRIGGERED"
	case EventSystemHealth:
		return "SYSTEM_HEALTH"
	default:
		return "UNKNOWN"
	}
}

// Event is one bounded-log entry.
type Event struct {
	Kind      EventKind
	Level     enum.RiskLevel
	Message   string
	Symbol    string
	Value     float64
	Limit     float64
	Timestamp time.Time
}

// Format renders the event for the health journal and the risk report.
func (e Event) Format() string {
	buf := make([]byte, 0, 96)
	buf = e.Timestamp.AppendFormat(buf, "15:04:05")
	buf = append(buf, " ["...)
	buf = append(buf, e.Level.String()...)
	buf = append(buf, "] "...)
	buf = append(buf, e.Message...)
	if e.Symbol != "" {
		buf = append(buf, " ("...)
		buf = append(buf, e.Symbol...)
		buf = append(buf, ')')
	}
	if e.Value != 0 && e.Limit != 0 {
		buf = append(buf, " Value:"...)
		buf = strconv.AppendFloat(buf, e.Value, 'f', -1, 64)
		buf = append(buf, " Limit:"...)
		buf = strconv.AppendFloat(buf, e.Limit, 'f', -1, 64)
	}
	return string(buf)
}
