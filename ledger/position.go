// Package ledger tracks open and closed positions per strategy and derives
// the performance read model (trades, win rate, P/L, drawdown) from them.
package ledger

import (
	"time"

	"github.com/rustyeddy/stratengine/market"
)

// Position is one entry in a strategy's ledger. Size is always positive;
// direction is carried by Side. A closed position is immutable.
type Position struct {
	ID         string
	StrategyID string
	Symbol     string
	Side       market.Side
	Size       float64
	EntryPrice float64
	EntryTime  time.Time

	// CurrentPrice is refreshed by MarkPrice while the position is open.
	CurrentPrice float64

	// RiskAmount is the equity reserved when the position was sized.
	// It is released when the position closes.
	RiskAmount float64

	ExitPrice   float64
	ExitTime    time.Time
	RealizedPnL float64
	CloseReason string
	Closed      bool
}

// UnrealizedPnL is (current - entry) * size * sign(side). Zero once closed.
func (p *Position) UnrealizedPnL() float64 {
	if p.Closed {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) * p.Size * p.Side.Sign()
}

// Performance is the per-strategy read model the dashboard polls.
type Performance struct {
	TotalTrades int
	WinRate     float64 // percent of closed trades with positive P/L
	PnL         float64 // realized + unrealized
	MaxDrawdown float64 // fraction of peak equity given back, 0..1
	OpenCount   int
}
