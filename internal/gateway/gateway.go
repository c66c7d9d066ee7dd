package gateway

import (
	"github.com/yanun0323/errors"

	"main/internal/model"
)

var (
	// ErrTransport signals a disconnected or failing egress; the caller
	// treats the submission as rejected and continues.
	ErrTransport = errors.New("gateway transport error")
	// ErrCanceled signals a submission aborted by engine shutdown.
	ErrCanceled = errors.New("gateway transport canceled")
)

// SubmitOutcome is the synchronous result of a submission attempt.
type SubmitOutcome struct {
	OrderID  string
	Accepted bool
	Reason   string
}

// Gateway is the egress capability: submit and cancel orders, poll for
// fill events. Implementations must keep Submit fast; the trading
// worker calls it on its hot path.
type Gateway interface {
	Submit(order model.Order) (SubmitOutcome, error)
	Cancel(orderID string) error
	// PollFill returns the next pending fill, non-blocking.
	PollFill() (model.Fill, bool)
}
