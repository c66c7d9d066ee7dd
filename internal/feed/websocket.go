package feed

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
)

const (
	defaultReconnectAttempts = 5
	reconnectBaseDelay       = 500 * time.Millisecond
	eventBufferSize          = 256
)

// WSConfig configures the websocket market-data source.
type WSConfig struct {
	URL string
	// MaxReconnectAttempts bounds the exponential-backoff reconnect
	// loop; zero means the default of five.
	MaxReconnectAttempts int
}

// WSSource streams parsed L2 events from a level-2 websocket channel.
// On a broken connection it reconnects with exponential backoff and
// re-subscribes; after the attempt budget is exhausted the event
// channel closes.
type WSSource struct {
	cfg    WSConfig
	events chan model.MarketEvent
	closed atomic.Bool
	cancel context.CancelFunc

	parseErrors atomic.Uint64
	dropped     atomic.Uint64
}

type l2SubscribeRequest struct {
	Type       string   `json:"type"`
	Channel    string   `json:"channel"`
	ProductIDs []string `json:"product_ids"`
}

// NewWSSource creates an unconnected source.
func NewWSSource(cfg WSConfig) *WSSource {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultReconnectAttempts
	}
	return &WSSource{
		cfg:    cfg,
		events: make(chan model.MarketEvent, eventBufferSize),
	}
}

// Subscribe dials the endpoint, subscribes the level-2 channel and
// starts the read loop.
func (s *WSSource) Subscribe(ctx context.Context, symbol string) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	conn, err := s.dial(ctx, symbol)
	if err != nil {
		cancel()
		return err
	}

	go s.readLoop(ctx, conn, symbol)
	return nil
}

// Events returns the parsed event stream.
func (s *WSSource) Events() <-chan model.MarketEvent {
	return s.events
}

// Close tears the connection down and closes the event channel.
func (s *WSSource) Close() error {
	if s.closed.CompareAndSwap(false, true) && s.cancel != nil {
		s.cancel()
	}
	return nil
}

// ParseErrors returns the count of discarded batches.
func (s *WSSource) ParseErrors() uint64 {
	return s.parseErrors.Load()
}

// DroppedUpdates returns the count of dropped malformed updates.
func (s *WSSource) DroppedUpdates() uint64 {
	return s.dropped.Load()
}

func (s *WSSource) dial(ctx context.Context, symbol string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, errors.Wrap(ErrTransport, err.Error())
	}

	sub := l2SubscribeRequest{
		Type:       "subscribe",
		Channel:    "level2",
		ProductIDs: []string{symbol},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, errors.Wrap(ErrTransport, err.Error())
	}
	return conn, nil
}

func (s *WSSource) readLoop(ctx context.Context, conn *websocket.Conn, symbol string) {
	defer close(s.events)
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		if conn == nil {
			attempts++
			if attempts > s.cfg.MaxReconnectAttempts {
				logs.Errorf("market data reconnect budget exhausted after %d attempts", attempts-1)
				return
			}
			delay := reconnectBaseDelay << (attempts - 1)
			logs.Warnf("market data disconnected, reconnect %d/%d in %s", attempts, s.cfg.MaxReconnectAttempts, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			next, dialErr := s.dial(ctx, symbol)
			if dialErr != nil {
				continue
			}
			conn = next
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			conn.Close()
			conn = nil
			continue
		}
		attempts = 0

		result, err := ParseL2(data, symbol, time.Now())
		if err != nil {
			s.parseErrors.Add(1)
			continue
		}
		s.dropped.Add(uint64(result.Dropped))

		for _, ev := range result.Events {
			select {
			case s.events <- ev:
			default:
				// Reader is behind; drop this newest event rather
				// than blocking the read loop.
			}
		}
	}
}
