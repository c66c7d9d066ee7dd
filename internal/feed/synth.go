package feed

import (
	"context"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

// SynthConfig controls the synthetic tick generator.
type SynthConfig struct {
	BasePrice float64
	Spread    float64
	BaseSize  float64
	Depth     int
	Interval  time.Duration
	// Seed drives the mid-price random walk; zero picks the wall clock.
	Seed int64
}

// Synth emits a snapshot followed by random-walk incremental updates.
// It stands in for the exchange in paper sessions and tests.
type Synth struct {
	cfg    SynthConfig
	events chan model.MarketEvent
	closed atomic.Bool
	cancel context.CancelFunc
}

// NewSynth creates a generator with the given shape.
func NewSynth(cfg SynthConfig) *Synth {
	if cfg.Depth <= 0 {
		cfg.Depth = 10
	}
	if cfg.BaseSize <= 0 {
		cfg.BaseSize = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Synth{
		cfg:    cfg,
		events: make(chan model.MarketEvent, eventBufferSize),
	}
}

// Subscribe starts the tick loop.
func (s *Synth) Subscribe(ctx context.Context, symbol string) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(ctx, symbol)
	return nil
}

// Events returns the generated event stream.
func (s *Synth) Events() <-chan model.MarketEvent {
	return s.events
}

// Close stops the generator.
func (s *Synth) Close() error {
	if s.closed.CompareAndSwap(false, true) && s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Synth) run(ctx context.Context, symbol string) {
	defer close(s.events)

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	mid := s.cfg.BasePrice
	tick := s.cfg.Spread / 2

	send := func(ev model.MarketEvent) bool {
		select {
		case <-ctx.Done():
			return false
		case s.events <- ev:
			return true
		}
	}

	if !send(s.snapshot(symbol, mid, tick)) {
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mid += (rng.Float64() - 0.5) * s.cfg.Spread
			if mid < s.cfg.Spread {
				mid = s.cfg.BasePrice
			}
			ev := model.MarketEvent{
				Kind:   model.MarketEventUpdate,
				Symbol: symbol,
				Updates: []model.BookUpdate{
					{Side: enum.OrderSideBuy, Price: round2(mid - tick), Quantity: s.cfg.BaseSize * (0.5 + rng.Float64())},
					{Side: enum.OrderSideSell, Price: round2(mid + tick), Quantity: s.cfg.BaseSize * (0.5 + rng.Float64())},
				},
				RecvTime: time.Now(),
			}
			if !send(ev) {
				return
			}
		}
	}
}

func (s *Synth) snapshot(symbol string, mid, tick float64) model.MarketEvent {
	updates := make([]model.BookUpdate, 0, 2*s.cfg.Depth)
	for i := 0; i < s.cfg.Depth; i++ {
		step := float64(i) * 2 * tick
		updates = append(updates,
			model.BookUpdate{Side: enum.OrderSideBuy, Price: round2(mid - tick - step), Quantity: s.cfg.BaseSize},
			model.BookUpdate{Side: enum.OrderSideSell, Price: round2(mid + tick + step), Quantity: s.cfg.BaseSize},
		)
	}
	return model.MarketEvent{
		Kind:     model.MarketEventSnapshot,
		Symbol:   symbol,
		Updates:  updates,
		RecvTime: time.Now(),
	}
}

func round2(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return f
}
