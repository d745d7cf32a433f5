// Package feed produces the engine's market data stream. A Feed is a
// lazy sequence of closed candles; the scheduler consumes it until the
// channel closes or the run is cancelled.
package feed

import "github.com/rustyeddy/stratengine/market"

type Feed interface {
	// Ticks is closed when the feed ends.
	Ticks() <-chan market.Tick

	// Errs carries recoverable feed errors (parse failures, reconnects).
	Errs() <-chan error

	Close() error
}
