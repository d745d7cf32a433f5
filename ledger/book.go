package ledger

import (
	"sync"

	"github.com/samber/lo"
)

// Book holds one Ledger per strategy. Partitioning per strategy keeps
// cross-strategy lock contention out of the hot path.
type Book struct {
	mu       sync.RWMutex
	baseline float64
	ledgers  map[string]*Ledger
}

func NewBook(baselineEquity float64) *Book {
	return &Book{
		baseline: baselineEquity,
		ledgers:  make(map[string]*Ledger),
	}
}

// Ledger returns the strategy's ledger, creating it on first use.
func (b *Book) Ledger(strategyID string) *Ledger {
	b.mu.RLock()
	l := b.ledgers[strategyID]
	b.mu.RUnlock()
	if l != nil {
		return l
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if l = b.ledgers[strategyID]; l == nil {
		l = New(strategyID, b.baseline)
		b.ledgers[strategyID] = l
	}
	return l
}

// Remove drops a strategy's ledger (on unregister).
func (b *Book) Remove(strategyID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ledgers, strategyID)
}

// MarkPrice fans a price update out to every strategy's ledger.
func (b *Book) MarkPrice(symbol string, price float64) {
	b.mu.RLock()
	ledgers := lo.Values(b.ledgers)
	b.mu.RUnlock()

	for _, l := range ledgers {
		l.MarkPrice(symbol, price)
	}
}

// Snapshot returns the performance summary for one strategy.
func (b *Book) Snapshot(strategyID string) (Performance, bool) {
	b.mu.RLock()
	l := b.ledgers[strategyID]
	b.mu.RUnlock()
	if l == nil {
		return Performance{}, false
	}
	return l.Snapshot(), true
}

// TotalUnrealized sums unrealized P/L across all strategies, used for
// account equity snapshots.
func (b *Book) TotalUnrealized() float64 {
	b.mu.RLock()
	ledgers := lo.Values(b.ledgers)
	b.mu.RUnlock()

	return lo.SumBy(ledgers, func(l *Ledger) float64 { return l.UnrealizedPnL() })
}

// TotalOpen counts open positions across all strategies.
func (b *Book) TotalOpen() int {
	b.mu.RLock()
	ledgers := lo.Values(b.ledgers)
	b.mu.RUnlock()

	return lo.SumBy(ledgers, func(l *Ledger) int { return l.OpenCount() })
}
