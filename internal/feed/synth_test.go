package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func TestSynthEmitsSnapshotThenUpdates(t *testing.T) {
	s := NewSynth(SynthConfig{
		BasePrice: 100,
		Spread:    0.02,
		BaseSize:  1,
		Depth:     5,
		Interval:  time.Millisecond,
		Seed:      1,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Subscribe(ctx, "ETH-USD"))
	defer s.Close()

	first := <-s.Events()
	assert.Equal(t, model.MarketEventSnapshot, first.Kind)
	assert.Equal(t, "ETH-USD", first.Symbol)
	assert.Len(t, first.Updates, 10)

	var bids, asks int
	for _, u := range first.Updates {
		switch u.Side {
		case enum.OrderSideBuy:
			bids++
		case enum.OrderSideSell:
			asks++
		}
		assert.Greater(t, u.Price, 0.0)
		assert.Greater(t, u.Quantity, 0.0)
	}
	assert.Equal(t, 5, bids)
	assert.Equal(t, 5, asks)

	second := <-s.Events()
	assert.Equal(t, model.MarketEventUpdate, second.Kind)
	assert.Len(t, second.Updates, 2)
}

func TestSynthCloseEndsStream(t *testing.T) {
	s := NewSynth(SynthConfig{BasePrice: 100, Spread: 0.02, Interval: time.Millisecond, Seed: 1})
	require.NoError(t, s.Subscribe(context.Background(), "ETH-USD"))
	s.Close()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-s.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel did not close")
		}
	}
}
