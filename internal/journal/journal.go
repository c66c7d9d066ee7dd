package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/model/enum"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// Level gates the main stream.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

// ParseLevel maps a config string to a level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR":
		return LevelError
	case "CRITICAL":
		return LevelCritical
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Journal owns the five append-only log streams plus the session
// summary file. Every line starts with a millisecond timestamp. A nil
// journal is a no-op, so components can log unconditionally.
type Journal struct {
	mu      sync.Mutex
	level   Level
	main    *os.File
	book    *os.File
	trades  *os.File
	pnl     *os.File
	health  *os.File
	summary *os.File
}

// Open creates the log directory and all streams in append mode.
func Open(dir string, level Level) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}

	j := &Journal{level: level}
	for _, f := range []struct {
		name string
		dst  **os.File
	}{
		{"main.log", &j.main},
		{"orderbook.log", &j.book},
		{"trades.log", &j.trades},
		{"pnl.log", &j.pnl},
		{"health.log", &j.health},
		{"session_summary.log", &j.summary},
	} {
		file, err := os.OpenFile(filepath.Join(dir, f.name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			j.Close()
			return nil, errors.Wrap(err, "open "+f.name)
		}
		*f.dst = file
	}
	return j, nil
}

// Close flushes and closes every stream.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, f := range []*os.File{j.main, j.book, j.trades, j.pnl, j.health, j.summary} {
		if f != nil {
			f.Close()
		}
	}
	return nil
}

// Debug writes to the main stream at DEBUG.
func (j *Journal) Debug(msg string) { j.log(LevelDebug, msg) }

// Info writes to the main stream at INFO.
func (j *Journal) Info(msg string) { j.log(LevelInfo, msg) }

// Warning writes to the main stream at WARNING.
func (j *Journal) Warning(msg string) { j.log(LevelWarning, msg) }

// Error writes to the main stream at ERROR.
func (j *Journal) Error(msg string) { j.log(LevelError, msg) }

// Critical writes to the main stream at CRITICAL.
func (j *Journal) Critical(msg string) { j.log(LevelCritical, msg) }

// Trade appends one executed trade line.
func (j *Journal) Trade(symbol string, side enum.OrderSide, qty, price float64, id string) {
	if j == nil {
		return
	}
	line := fmt.Sprintf("%s %s %s %.8f @ $%.2f Value: $%.2f [ID: %s]",
		now(), symbol, side, qty, price, qty*price, id)
	j.write(j.trades, line)
}

// PnL appends one position/PnL line after a fill.
func (j *Journal) PnL(symbol string, net, avg, realized, unrealized, total float64, tradeID string) {
	if j == nil {
		return
	}
	line := fmt.Sprintf("%s %s Position: %.8f AvgPrice: $%.2f RealizedPnL: $%.2f UnrealizedPnL: $%.2f TotalPnL: $%.2f [Trade: %s]",
		now(), symbol, net, avg, realized, unrealized, total, tradeID)
	j.write(j.pnl, line)
}

// OrderBook appends one top-of-book line.
func (j *Journal) OrderBook(symbol string, bestBid, bestAsk, bidQty, askQty float64) {
	if j == nil {
		return
	}
	line := fmt.Sprintf("%s %s OrderBook - Bid: %.2f(%.8f) Ask: %.2f(%.8f)",
		now(), symbol, bestBid, bidQty, bestAsk, askQty)
	j.write(j.book, line)
}

// Health appends one component-health line.
func (j *Journal) Health(component string, healthy bool, details string) {
	if j == nil {
		return
	}
	status := "HEALTHY"
	if !healthy {
		status = "UNHEALTHY"
	}
	line := fmt.Sprintf("%s Health - Component: %s Status: %s Details: %s",
		now(), component, status, details)
	j.write(j.health, line)
}

// WriteSummary appends the session summary block verbatim.
func (j *Journal) WriteSummary(block string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.summary != nil {
		fmt.Fprintln(j.summary, block)
	}
}

func (j *Journal) log(level Level, msg string) {
	if j == nil || level < j.level {
		return
	}
	j.write(j.main, fmt.Sprintf("%s [%s] %s", now(), level, msg))
}

func (j *Journal) write(f *os.File, line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if f != nil {
		fmt.Fprintln(f, line)
	}
}

func now() string {
	return time.Now().Format(timestampLayout)
}
