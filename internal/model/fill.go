package model

import (
	"time"

	"main/internal/model/enum"
)

// Fill is an execution report from the gateway (real or simulated).
type Fill struct {
	OrderID  string
	Symbol   string
	Side     enum.OrderSide
	Quantity float64
	Price    float64
	FillTime time.Time
}

// SignedQty returns the position impact of the fill.
func (f Fill) SignedQty() float64 {
	if f.Side == enum.OrderSideSell {
		return -f.Quantity
	}
	return f.Quantity
}
