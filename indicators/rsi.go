package indicators

import (
	"fmt"

	"github.com/rustyeddy/stratengine/market"
)

// RSI is a streaming Relative Strength Index with Wilder smoothing.
type RSI struct {
	period    int
	seeded    bool // first close recorded
	prevClose float64
	avgGain   float64
	avgLoss   float64
	count     int // number of price *changes* observed
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

// Warmup is period+1 candles: the first candle only establishes prevClose.
func (r *RSI) Warmup() int {
	return r.period + 1
}

func (r *RSI) Reset() {
	r.seeded = false
	r.prevClose = 0
	r.avgGain = 0
	r.avgLoss = 0
	r.count = 0
}

func (r *RSI) Update(c market.Candle) {
	if !r.seeded {
		r.seeded = true
		r.prevClose = c.Close
		return
	}

	change := c.Close - r.prevClose
	r.prevClose = c.Close

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if r.count < r.period {
		// Seed phase: plain average of the first `period` changes.
		r.avgGain += gain
		r.avgLoss += loss
		r.count++
		if r.count == r.period {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
		}
		return
	}

	// Wilder smoothing
	n := float64(r.period)
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	r.count++
}

func (r *RSI) Ready() bool {
	return r.count >= r.period
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
