// Package paper is the in-process simulated venue. Orders fill instantly
// at the last observed close for the symbol; there is no order book, no
// slippage and no latency model.
package paper

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/market"
)

// Venue simulates execution against the last price seen per symbol.
type Venue struct {
	mu     sync.Mutex
	cash   float64
	prices map[string]lastPrice

	minQty        map[string]float64
	defaultMinQty float64
}

type lastPrice struct {
	price float64
	time  time.Time
}

// Config sets up the simulated venue. MinQty maps symbol to the minimum
// order quantity; DefaultMinQty applies to symbols not listed.
type Config struct {
	Cash          float64
	MinQty        map[string]float64
	DefaultMinQty float64
}

func New(cfg Config) *Venue {
	mins := make(map[string]float64, len(cfg.MinQty))
	for sym, q := range cfg.MinQty {
		mins[sym] = q
	}
	return &Venue{
		cash:          cfg.Cash,
		prices:        make(map[string]lastPrice),
		minQty:        mins,
		defaultMinQty: cfg.DefaultMinQty,
	}
}

// UpdatePrice records the latest closed candle for a symbol. Subsequent
// orders on the symbol fill at this close.
func (v *Venue) UpdatePrice(t market.Tick) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prices[t.Symbol] = lastPrice{price: t.Candle.Close, time: t.Candle.Time}
}

// SubmitOrder fills a market order at the last close for the symbol.
// Orders on symbols with no price yet, or below the minimum quantity,
// are rejected.
func (v *Venue) SubmitOrder(ctx context.Context, o broker.Order) (broker.Fill, error) {
	if err := ctx.Err(); err != nil {
		return broker.Fill{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	p, ok := v.prices[o.Symbol]
	if !ok {
		return broker.Fill{}, &broker.Rejection{
			OrderID: o.ID,
			Symbol:  o.Symbol,
			Reason:  "no price for symbol",
		}
	}
	if min := v.minQtyLocked(o.Symbol); o.Qty < min {
		return broker.Fill{}, &broker.Rejection{
			OrderID: o.ID,
			Symbol:  o.Symbol,
			Reason:  "quantity below venue minimum",
		}
	}
	if !o.Side.Valid() {
		return broker.Fill{}, &broker.Rejection{
			OrderID: o.ID,
			Symbol:  o.Symbol,
			Reason:  "invalid side",
		}
	}

	// Buys spend cash, sells return it. The venue tracks notional cash
	// only; position accounting lives in the ledger.
	v.cash -= o.Side.Sign() * o.Qty * p.price

	return broker.Fill{
		OrderID: o.ID,
		Symbol:  o.Symbol,
		Side:    o.Side,
		Qty:     o.Qty,
		Price:   p.price,
		Time:    p.time,
	}, nil
}

func (v *Venue) MinQty(symbol string) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.minQtyLocked(symbol)
}

func (v *Venue) minQtyLocked(symbol string) float64 {
	if q, ok := v.minQty[symbol]; ok {
		return q
	}
	return v.defaultMinQty
}

// Cash returns the venue's notional cash balance.
func (v *Venue) Cash() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cash
}
