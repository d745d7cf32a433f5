// Package indicators provides streaming technical-analysis indicators and the
// Store that maintains their rolling state per (symbol, timeframe, name) key.
package indicators

import "github.com/rustyeddy/stratengine/market"

// Indicator computes a single streaming value from closed candles.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value, or 0 before warmup.
	// Callers should always check Ready().
	Value() float64
}

// MultiValue is implemented by indicators with more than one output series
// (MACD, Bollinger Bands). Output names are indicator-specific.
type MultiValue interface {
	Indicator
	ValueOf(output string) float64
}
