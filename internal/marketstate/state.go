package marketstate

import (
	"math"
	"sync/atomic"
	"time"
)

// State is the atomic top-of-book shared between workers. Only the
// market data worker writes; the trading worker reads. The fields are
// independent atomics and are not jointly consistent — readers treat
// them as hints and must check Ready before acting.
type State struct {
	bestBid   atomic.Uint64 // float64 bits
	bestAsk   atomic.Uint64 // float64 bits
	spreadBps atomic.Uint64 // float64 bits
	updatedAt atomic.Int64  // unix nanos
	sequence  atomic.Uint64
}

// New returns a zeroed state.
func New() *State {
	return &State{}
}

// Publish stores a new top of book and bumps the sequence number.
func (s *State) Publish(bestBid, bestAsk, spreadBps float64, at time.Time) uint64 {
	s.bestBid.Store(math.Float64bits(bestBid))
	s.bestAsk.Store(math.Float64bits(bestAsk))
	s.spreadBps.Store(math.Float64bits(spreadBps))
	s.updatedAt.Store(at.UnixNano())
	return s.sequence.Add(1)
}

// BestBid returns the last published best bid.
func (s *State) BestBid() float64 {
	return math.Float64frombits(s.bestBid.Load())
}

// BestAsk returns the last published best ask.
func (s *State) BestAsk() float64 {
	return math.Float64frombits(s.bestAsk.Load())
}

// SpreadBps returns the last published spread in basis points.
func (s *State) SpreadBps() float64 {
	return math.Float64frombits(s.spreadBps.Load())
}

// UpdatedAt returns the time of the last publish.
func (s *State) UpdatedAt() time.Time {
	return time.Unix(0, s.updatedAt.Load())
}

// Sequence returns the monotonic publish counter.
func (s *State) Sequence() uint64 {
	return s.sequence.Load()
}

// Ready reports whether both sides have been seen and are not crossed.
func (s *State) Ready() bool {
	bid, ask := s.BestBid(), s.BestAsk()
	return bid > 0 && ask > 0 && bid < ask
}
