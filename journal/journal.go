// Package journal persists closed trades and equity snapshots so a run
// can be audited after the fact. SQLite is the primary backend; CSV is
// kept for quick spreadsheet work.
package journal

import (
	"time"

	"github.com/rustyeddy/stratengine/market"
)

// TradeRecord is one closed position.
type TradeRecord struct {
	PositionID  string
	StrategyID  string
	Symbol      string
	Side        market.Side
	Size        float64
	EntryPrice  float64
	ExitPrice   float64
	EntryTime   time.Time
	ExitTime    time.Time
	RealizedPnL float64
	Reason      string
}

// EquitySnapshot is a point-in-time account summary.
type EquitySnapshot struct {
	Time          time.Time
	Equity        float64
	Reserved      float64
	Unrealized    float64
	OpenPositions int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything, used when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
