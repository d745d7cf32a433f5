// Package risk holds the account equity model and position sizing. Sizing
// converts a strategy's risk percentage into an order quantity and reserves
// the risked equity until the position closes.
package risk

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Account tracks trading equity and the slice of it currently reserved
// against open positions. Amounts are decimals so repeated reserve and
// release cycles never drift.
type Account struct {
	mu       sync.Mutex
	equity   decimal.Decimal
	reserved decimal.Decimal
}

func NewAccount(equity float64) *Account {
	return &Account{equity: decimal.NewFromFloat(equity)}
}

// Equity returns total account equity.
func (a *Account) Equity() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, _ := a.equity.Float64()
	return f
}

// Reserved returns the equity currently held against open positions.
func (a *Account) Reserved() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, _ := a.reserved.Float64()
	return f
}

// Available returns equity minus reservations.
func (a *Account) Available() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, _ := a.equity.Sub(a.reserved).Float64()
	return f
}

// Reserve holds amount against a new position. Fails if the hold would
// exceed unreserved equity.
func (a *Account) Reserve(amount float64) error {
	d := decimal.NewFromFloat(amount)
	if d.IsNegative() {
		return fmt.Errorf("risk: reserve amount must be non-negative, got %v", amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reserved.Add(d).GreaterThan(a.equity) {
		return ErrInsufficientEquity
	}
	a.reserved = a.reserved.Add(d)
	return nil
}

// Release frees a prior reservation without touching equity, used when a
// sized order is rejected downstream.
func (a *Account) Release(amount float64) {
	d := decimal.NewFromFloat(amount)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.reserved = a.reserved.Sub(d)
	if a.reserved.IsNegative() {
		a.reserved = decimal.Zero
	}
}

// Settle frees the reservation for a closed position and applies its
// realized P/L to equity.
func (a *Account) Settle(reserved, realizedPnL float64) {
	r := decimal.NewFromFloat(reserved)
	pl := decimal.NewFromFloat(realizedPnL)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.reserved = a.reserved.Sub(r)
	if a.reserved.IsNegative() {
		a.reserved = decimal.Zero
	}
	a.equity = a.equity.Add(pl)
}
