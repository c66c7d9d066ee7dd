package gateway

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/ring"
)

const (
	baseFillProb    = 0.30
	rebalanceBoost  = 1.8
	compoundPenalty = 0.4
	maxFillProb     = 0.65

	fillRingCapacity = 2048
)

// PaperConfig controls the fill simulator.
type PaperConfig struct {
	// NeutralBand is the inventory window treated as flat when biasing
	// fill probability.
	NeutralBand float64
	// Seed seeds the probability draw; zero picks the wall clock.
	Seed int64
}

// Paper is the paper-trading gateway. It accepts every submission and
// simulates fills: a base probability, boosted when the order reverts
// inventory and cut when it compounds it. Fills arrive through PollFill
// for the full order quantity at the order's price.
//
// Submit and PollFill are both called by the trading worker only, so
// the simulator needs no locking.
type Paper struct {
	cfg       PaperConfig
	rng       *rand.Rand
	inventory func() float64
	fills     *ring.Ring[model.Fill]
	now       func() time.Time
}

// NewPaper creates a simulator. The inventory func supplies the current
// signed net position used for the fill bias; it must be safe to call
// from the trading worker.
func NewPaper(cfg PaperConfig, inventory func() float64) *Paper {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	if inventory == nil {
		inventory = func() float64 { return 0 }
	}
	return &Paper{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		inventory: inventory,
		fills:     ring.New[model.Fill](fillRingCapacity),
		now:       time.Now,
	}
}

// Submit accepts the order and decides the synthetic fill immediately.
func (p *Paper) Submit(order model.Order) (SubmitOutcome, error) {
	outcome := SubmitOutcome{
		OrderID:  uuid.NewString(),
		Accepted: true,
	}

	if p.rng.Float64() < p.fillProbability(order.Side) {
		p.fills.Push(model.Fill{
			OrderID:  order.OrderID,
			Symbol:   order.Symbol,
			Side:     order.Side,
			Quantity: order.Quantity,
			Price:    order.Price,
			FillTime: p.now(),
		})
	}
	return outcome, nil
}

// Cancel always succeeds in paper mode.
func (p *Paper) Cancel(string) error {
	return nil
}

// PollFill drains the next simulated fill.
func (p *Paper) PollFill() (model.Fill, bool) {
	return p.fills.Pop()
}

// fillProbability biases toward inventory reversion: rebalancing orders
// fill more often, compounding orders less, capped at maxFillProb.
func (p *Paper) fillProbability(side enum.OrderSide) float64 {
	prob := baseFillProb
	inv := p.inventory()
	band := p.cfg.NeutralBand

	switch {
	case side == enum.OrderSideSell && inv > band,
		side == enum.OrderSideBuy && inv < -band:
		prob *= rebalanceBoost
	case side == enum.OrderSideBuy && inv > band,
		side == enum.OrderSideSell && inv < -band:
		prob *= compoundPenalty
	}

	if prob > maxFillProb {
		prob = maxFillProb
	}
	return prob
}
