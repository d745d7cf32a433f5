// Package broker defines the order submission surface the execution
// dispatcher talks to. Venues (paper today, live later) implement Broker.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/stratengine/market"
)

// OrderType is the execution style. Only market orders are supported;
// entries and exits both fill at the venue's current price.
type OrderType string

const (
	Market OrderType = "market"
)

// Order is a request to trade. Qty is always positive; direction is
// carried by Side.
type Order struct {
	ID          string
	StrategyID  string
	Symbol      string
	Side        market.Side
	Type        OrderType
	Qty         float64
	SubmittedAt time.Time
}

// Fill is the venue's confirmation of an executed order.
type Fill struct {
	OrderID string
	Symbol  string
	Side    market.Side
	Qty     float64
	Price   float64
	Time    time.Time
}

// Rejection is returned as the error when a venue refuses an order.
type Rejection struct {
	OrderID string
	Symbol  string
	Reason  string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("order %s rejected (%s): %s", r.OrderID, r.Symbol, r.Reason)
}

// Broker executes orders against a venue.
type Broker interface {
	// SubmitOrder executes a single order and returns its fill. A refused
	// order returns a *Rejection error.
	SubmitOrder(ctx context.Context, o Order) (Fill, error)

	// MinQty is the venue's minimum order quantity for a symbol.
	MinQty(symbol string) float64
}
