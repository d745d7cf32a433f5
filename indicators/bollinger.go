package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/stratengine/market"
)

// Bollinger output series names.
const (
	BBUpper  = "upper"
	BBMiddle = "middle"
	BBLower  = "lower"
	BBWidth  = "width"
)

// Bollinger computes streaming Bollinger Bands: a middle SMA with upper/lower
// bands at k standard deviations, plus the normalized band width.
type Bollinger struct {
	period int
	k      float64
	window []float64
	sum    float64
	sumSq  float64
}

func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{
		period: period,
		k:      k,
		window: make([]float64, 0, period),
	}
}

func (b *Bollinger) Name() string {
	return fmt.Sprintf("BB(%d,%g)", b.period, b.k)
}

func (b *Bollinger) Warmup() int {
	return b.period
}

func (b *Bollinger) Reset() {
	b.window = b.window[:0]
	b.sum = 0
	b.sumSq = 0
}

func (b *Bollinger) Update(c market.Candle) {
	v := c.Close
	b.window = append(b.window, v)
	b.sum += v
	b.sumSq += v * v
	if len(b.window) > b.period {
		old := b.window[0]
		b.sum -= old
		b.sumSq -= old * old
		b.window = b.window[1:]
	}
}

func (b *Bollinger) Ready() bool {
	return len(b.window) >= b.period
}

// Value returns the middle band.
func (b *Bollinger) Value() float64 {
	return b.ValueOf(BBMiddle)
}

func (b *Bollinger) ValueOf(output string) float64 {
	if !b.Ready() {
		return 0
	}
	n := float64(len(b.window))
	mean := b.sum / n
	// Population variance from running sums; clamp tiny negatives from
	// float cancellation.
	variance := b.sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	sd := math.Sqrt(variance)

	switch output {
	case BBMiddle:
		return mean
	case BBUpper:
		return mean + b.k*sd
	case BBLower:
		return mean - b.k*sd
	case BBWidth:
		if mean == 0 {
			return 0
		}
		return (2 * b.k * sd) / mean
	}
	return 0
}
