package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func order(side enum.OrderSide) model.Order {
	return model.Order{
		OrderID:  "o-1",
		ClientID: "HFT_1700000000000_123456",
		Symbol:   "ETH-USD",
		Side:     side,
		Kind:     enum.OrderKindLimit,
		Price:    100,
		Quantity: 0.01,
		Status:   enum.OrderStatusNew,
	}
}

func fillRate(t *testing.T, p *Paper, side enum.OrderSide, n int) float64 {
	t.Helper()
	filled := 0
	for i := 0; i < n; i++ {
		_, err := p.Submit(order(side))
		require.NoError(t, err)
		for {
			if _, ok := p.PollFill(); !ok {
				break
			}
			filled++
		}
	}
	return float64(filled) / float64(n)
}

func TestFillCarriesOrderFields(t *testing.T) {
	p := NewPaper(PaperConfig{NeutralBand: 0.01, Seed: 7}, nil)
	p.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	var fill model.Fill
	for {
		o := order(enum.OrderSideBuy)
		_, err := p.Submit(o)
		require.NoError(t, err)
		if f, ok := p.PollFill(); ok {
			fill = f
			break
		}
	}
	assert.Equal(t, "o-1", fill.OrderID)
	assert.Equal(t, "ETH-USD", fill.Symbol)
	assert.Equal(t, enum.OrderSideBuy, fill.Side)
	assert.Equal(t, 0.01, fill.Quantity, "paper fills are always for the full quantity")
	assert.Equal(t, 100.0, fill.Price)
	assert.Equal(t, time.Unix(1_700_000_000, 0), fill.FillTime)
}

func TestFlatInventoryFillsNearBaseRate(t *testing.T) {
	p := NewPaper(PaperConfig{NeutralBand: 0.01, Seed: 42}, func() float64 { return 0 })
	rate := fillRate(t, p, enum.OrderSideBuy, 10_000)
	assert.InDelta(t, baseFillProb, rate, 0.02)
}

func TestLongInventoryBiasesTowardSells(t *testing.T) {
	// Net +0.02 with a 0.01 neutral band: sells rebalance, buys compound.
	inventory := func() float64 { return 0.02 }

	sell := NewPaper(PaperConfig{NeutralBand: 0.01, Seed: 1}, inventory)
	buy := NewPaper(PaperConfig{NeutralBand: 0.01, Seed: 2}, inventory)

	sellRate := fillRate(t, sell, enum.OrderSideSell, 10_000)
	buyRate := fillRate(t, buy, enum.OrderSideBuy, 10_000)

	assert.GreaterOrEqual(t, sellRate, 1.6*buyRate)
	assert.LessOrEqual(t, sellRate, maxFillProb)
	assert.LessOrEqual(t, buyRate, maxFillProb)
}

func TestShortInventoryMirrors(t *testing.T) {
	inventory := func() float64 { return -0.02 }

	buy := NewPaper(PaperConfig{NeutralBand: 0.01, Seed: 3}, inventory)
	sell := NewPaper(PaperConfig{NeutralBand: 0.01, Seed: 4}, inventory)

	buyRate := fillRate(t, buy, enum.OrderSideBuy, 10_000)
	sellRate := fillRate(t, sell, enum.OrderSideSell, 10_000)

	assert.Greater(t, buyRate, sellRate)
}

func TestDeterministicWithSeed(t *testing.T) {
	a := NewPaper(PaperConfig{NeutralBand: 0.01, Seed: 99}, nil)
	b := NewPaper(PaperConfig{NeutralBand: 0.01, Seed: 99}, nil)

	for i := 0; i < 1000; i++ {
		a.Submit(order(enum.OrderSideBuy))
		b.Submit(order(enum.OrderSideBuy))
		_, okA := a.PollFill()
		_, okB := b.PollFill()
		require.Equal(t, okA, okB, "same seed must produce the same fill stream")
	}
}

func TestCancelAlwaysSucceeds(t *testing.T) {
	p := NewPaper(PaperConfig{Seed: 1}, nil)
	assert.NoError(t, p.Cancel("anything"))
}
