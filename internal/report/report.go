package report

import (
	"fmt"
	"strings"
	"time"

	"main/internal/obs"
	"main/internal/pnl"
)

// Session carries everything the end-of-session summary needs.
type Session struct {
	Symbol  string
	Start   time.Time
	End     time.Time
	Trading pnl.Stats
	Metrics obs.Snapshot
}

// Build renders the fixed-format session summary block bracketed by a
// banner of 80 '=' characters.
func Build(s Session) string {
	banner := strings.Repeat("=", 80)
	duration := s.End.Sub(s.Start).Seconds()
	if duration < 0 {
		duration = 0
	}

	totalTrades := s.Trading.TotalTrades()
	totalVolume := s.Trading.BuyVolume + s.Trading.SellVolume
	tradeRate := 0.0
	if duration > 0 {
		tradeRate = float64(totalTrades) / duration
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(banner + "\n")
	b.WriteString("                    HFT TRADING SESSION SUMMARY\n")
	b.WriteString(banner + "\n")
	fmt.Fprintf(&b, "Session Start: %s\n", s.Start.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Session End:   %s\n", s.End.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Duration: %.0f seconds (%.2f minutes)\n\n", duration, duration/60)

	b.WriteString("TRADING PERFORMANCE:\n")
	fmt.Fprintf(&b, "  Total Trades Executed: %d\n", totalTrades)
	fmt.Fprintf(&b, "  Buy Trades: %d\n", s.Trading.BuyTrades)
	fmt.Fprintf(&b, "  Sell Trades: %d\n", s.Trading.SellTrades)
	fmt.Fprintf(&b, "  Trade Rate: %.2f trades/second\n", tradeRate)
	fmt.Fprintf(&b, "  Total Volume: %.8f\n", totalVolume)
	fmt.Fprintf(&b, "  Buy Volume:  %.8f\n", s.Trading.BuyVolume)
	fmt.Fprintf(&b, "  Sell Volume: %.8f\n\n", s.Trading.SellVolume)

	b.WriteString("SPREAD ANALYSIS:\n")
	if s.Trading.SpreadSeen {
		fmt.Fprintf(&b, "  Min Spread: %.3f bps\n", s.Trading.MinSpreadBps)
		fmt.Fprintf(&b, "  Max Spread: %.3f bps\n\n", s.Trading.MaxSpreadBps)
	} else {
		b.WriteString("  No spread data recorded\n\n")
	}

	b.WriteString("PROFIT & LOSS SUMMARY:\n")
	fmt.Fprintf(&b, "  Final Position: %.8f\n", s.Trading.Net)
	fmt.Fprintf(&b, "  Realized PnL: $%.4f\n", s.Trading.Realized)
	fmt.Fprintf(&b, "  Average Cost: $%.2f\n\n", s.Trading.AvgCost)

	b.WriteString("SYSTEM STATISTICS:\n")
	fmt.Fprintf(&b, "  Orders Placed: %d\n", s.Metrics.OrdersPlaced)
	fmt.Fprintf(&b, "  Orders Filled: %d\n", s.Metrics.OrdersFilled)
	fmt.Fprintf(&b, "  Orders Canceled: %d\n", s.Metrics.OrdersCanceled)
	fmt.Fprintf(&b, "  Orders Failed: %d\n", s.Metrics.OrdersFailed)
	if s.Metrics.OrdersPlaced > 0 {
		fmt.Fprintf(&b, "  Fill Rate: %.1f%%\n", float64(s.Metrics.OrdersFilled)*100/float64(s.Metrics.OrdersPlaced))
	}
	b.WriteString("\n")

	b.WriteString("MARKET MAKING METRICS:\n")
	if s.Trading.BuyTrades > 0 && s.Trading.SellTrades > 0 {
		balance := float64(minU64(s.Trading.BuyTrades, s.Trading.SellTrades)) * 100 /
			float64(maxU64(s.Trading.BuyTrades, s.Trading.SellTrades))
		fmt.Fprintf(&b, "  Trade Balance: %.1f%% balanced\n", balance)
	}
	if totalVolume > 0 && duration > 0 {
		fmt.Fprintf(&b, "  Turnover Rate: %.2f/second\n", totalVolume/duration)
	}
	b.WriteString("\n")
	b.WriteString(banner + "\n")
	fmt.Fprintf(&b, "Session summary saved at: %s\n", s.End.Format("2006-01-02 15:04:05"))
	b.WriteString(banner)
	return b.String()
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
