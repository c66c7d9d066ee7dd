package model

import (
	"time"

	"main/internal/model/enum"
)

// Order is the engine's view of one quote. The active-orders table owns
// the mutable copy; collaborators receive value copies only.
type Order struct {
	OrderID       string
	ClientID      string
	Symbol        string
	Side          enum.OrderSide
	Kind          enum.OrderKind
	Price         float64
	Quantity      float64
	FilledQty     float64
	Status        enum.OrderStatus
	CreateTime    time.Time
	UpdateTime    time.Time
	PriorityLevel int
}

// SignedQty returns the position impact of the full order quantity.
func (o Order) SignedQty() float64 {
	if o.Side == enum.OrderSideSell {
		return -o.Quantity
	}
	return o.Quantity
}

// Value returns price x quantity.
func (o Order) Value() float64 {
	return o.Price * o.Quantity
}
