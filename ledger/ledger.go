package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/pkg/id"
)

// Ledger is one strategy's position book. All mutations are serialized by
// the ledger's own mutex; different strategies' ledgers never contend.
type Ledger struct {
	mu         sync.Mutex
	strategyID string

	// baseline anchors the equity curve used for drawdown: equity =
	// baseline + realized + sum(unrealized).
	baseline float64

	open   map[string]*Position
	closed []Position

	realized float64
	wins     int

	peak  float64
	maxDD float64
}

func New(strategyID string, baselineEquity float64) *Ledger {
	return &Ledger{
		strategyID: strategyID,
		baseline:   baselineEquity,
		open:       make(map[string]*Position),
		peak:       baselineEquity,
	}
}

// Open records a filled entry and returns the new position.
func (l *Ledger) Open(symbol string, side market.Side, size, price float64, t time.Time, riskAmount float64) (*Position, error) {
	if size <= 0 {
		return nil, fmt.Errorf("ledger %s: position size must be positive, got %v", l.strategyID, size)
	}
	if !side.Valid() {
		return nil, fmt.Errorf("ledger %s: invalid side %q", l.strategyID, side)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := &Position{
		ID:           id.New(),
		StrategyID:   l.strategyID,
		Symbol:       symbol,
		Side:         side,
		Size:         size,
		EntryPrice:   price,
		EntryTime:    t,
		CurrentPrice: price,
		RiskAmount:   riskAmount,
	}
	l.open[p.ID] = p
	l.rollEquityLocked()

	cp := *p
	return &cp, nil
}

// MarkPrice refreshes unrealized P/L for every open position on a symbol.
func (l *Ledger) MarkPrice(symbol string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	touched := false
	for _, p := range l.open {
		if p.Symbol == symbol {
			p.CurrentPrice = price
			touched = true
		}
	}
	if touched {
		l.rollEquityLocked()
	}
}

// Close realizes a position at the given fill price and moves it to
// history. The returned copy is the immutable closed record.
func (l *Ledger) Close(positionID string, price float64, t time.Time, reason string) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.open[positionID]
	if !ok {
		return Position{}, fmt.Errorf("ledger %s: position %q not open", l.strategyID, positionID)
	}
	delete(l.open, positionID)

	p.CurrentPrice = price
	p.ExitPrice = price
	p.ExitTime = t
	p.RealizedPnL = (price - p.EntryPrice) * p.Size * p.Side.Sign()
	p.CloseReason = reason
	p.Closed = true

	l.realized += p.RealizedPnL
	if p.RealizedPnL > 0 {
		l.wins++
	}
	l.closed = append(l.closed, *p)
	l.rollEquityLocked()

	return *p, nil
}

// rollEquityLocked advances the peak/drawdown accounting after any change
// to realized or unrealized P/L.
func (l *Ledger) rollEquityLocked() {
	equity := l.baseline + l.realized + l.unrealizedLocked()
	if equity > l.peak {
		l.peak = equity
	}
	if l.peak > 0 {
		if dd := (l.peak - equity) / l.peak; dd > l.maxDD {
			l.maxDD = dd
		}
	}
}

func (l *Ledger) unrealizedLocked() float64 {
	return lo.SumBy(lo.Values(l.open), func(p *Position) float64 {
		return p.UnrealizedPnL()
	})
}

func (l *Ledger) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

// OpenPositions returns copies of the open positions, ordered by entry time.
func (l *Ledger) OpenPositions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := lo.Map(lo.Values(l.open), func(p *Position, _ int) Position { return *p })
	sortPositions(out)
	return out
}

// ClosedPositions returns the realized history, oldest first.
func (l *Ledger) ClosedPositions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, len(l.closed))
	copy(out, l.closed)
	return out
}

// RealizedPnL returns the realized total.
func (l *Ledger) RealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realized
}

// UnrealizedPnL returns the open positions' mark-to-market total.
func (l *Ledger) UnrealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unrealizedLocked()
}

// Snapshot computes the performance summary. PnL always equals realized
// plus the sum of unrealized P/L over open positions.
func (l *Ledger) Snapshot() Performance {
	l.mu.Lock()
	defer l.mu.Unlock()

	perf := Performance{
		TotalTrades: len(l.closed),
		PnL:         l.realized + l.unrealizedLocked(),
		MaxDrawdown: l.maxDD,
		OpenCount:   len(l.open),
	}
	if perf.TotalTrades > 0 {
		perf.WinRate = float64(l.wins) / float64(perf.TotalTrades) * 100
	}
	return perf
}

func sortPositions(ps []Position) {
	// Entry times can collide in replay, so fall back to the ULID, which
	// is itself time-ordered.
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].EntryTime.Equal(ps[j].EntryTime) {
			return ps[i].EntryTime.Before(ps[j].EntryTime)
		}
		return ps[i].ID < ps[j].ID
	})
}
