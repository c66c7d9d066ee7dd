package feed

import (
	"context"

	"github.com/yanun0323/errors"

	"main/internal/model"
)

var (
	// ErrParse marks an unrecognized market message shape; the whole
	// batch is discarded. A malformed field inside a known shape is not
	// an error: that update is dropped and counted in ParseResult.
	ErrParse = errors.New("market data parse error")
	// ErrTransport marks a broken ingress connection.
	ErrTransport = errors.New("market data transport error")
)

// Source is the ingress capability: a stream of parsed L2 events for
// one symbol. Implementations own their connection lifecycle; Events
// closes when the source is done.
type Source interface {
	Subscribe(ctx context.Context, symbol string) error
	Events() <-chan model.MarketEvent
	Close() error
}
