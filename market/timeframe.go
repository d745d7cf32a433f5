package market

// Timeframe is a candle interval identifier ("1m", "1h", ...).
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF2h  Timeframe = "2h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

var timeframes = map[Timeframe]bool{
	TF1m: true, TF5m: true, TF15m: true, TF30m: true,
	TF1h: true, TF2h: true, TF4h: true, TF1d: true,
}

func (tf Timeframe) Valid() bool {
	return timeframes[tf]
}

func (tf Timeframe) String() string {
	return string(tf)
}
