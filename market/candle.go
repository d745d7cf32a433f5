// Package market defines the value types shared across the engine:
// candles, ticks, sides and timeframes.
package market

import "time"

// Candle represents one closed OHLCV bar.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Time   time.Time
}

// Tick is one market-data update: a closed candle for a symbol/timeframe.
type Tick struct {
	Symbol    string
	Timeframe Timeframe
	Candle
}
