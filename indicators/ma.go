package indicators

import (
	"fmt"

	"github.com/rustyeddy/stratengine/market"
)

// emaCore is the incremental EMA recurrence over a raw float series.
// It is shared by ExponentialMA and MACD (which runs EMAs over closes
// and over its own MACD line).
type emaCore struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

func newEMACore(period int) emaCore {
	return emaCore{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *emaCore) reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *emaCore) update(v float64) {
	if e.count < e.period {
		// During warmup, accumulate sum for the initial SMA seed.
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (v-e.ema)*e.multiplier + e.ema
}

func (e *emaCore) ready() bool {
	return e.count >= e.period
}

func (e *emaCore) value() float64 {
	if !e.ready() {
		return 0
	}
	return e.ema
}

// SimpleMA is a streaming Simple Moving Average over closes.
type SimpleMA struct {
	period int
	window []float64
	sum    float64
}

// NewMA creates a new Simple Moving Average indicator with the given period.
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("SMA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.window = m.window[:0]
	m.sum = 0
}

func (m *SimpleMA) Update(c market.Candle) {
	m.push(c.Close)
}

func (m *SimpleMA) push(v float64) {
	m.window = append(m.window, v)
	m.sum += v
	if len(m.window) > m.period {
		m.sum -= m.window[0]
		m.window = m.window[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.window) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(len(m.window))
}

// VolumeMA is a Simple Moving Average over candle volume, backing operands
// like SMA_20_Volume.
type VolumeMA struct {
	SimpleMA
}

func NewVolumeMA(period int) *VolumeMA {
	return &VolumeMA{SimpleMA: *NewMA(period)}
}

func (m *VolumeMA) Name() string {
	return fmt.Sprintf("SMA_Volume(%d)", m.period)
}

func (m *VolumeMA) Update(c market.Candle) {
	m.push(c.Volume)
}

// ExponentialMA is a streaming Exponential Moving Average over closes.
type ExponentialMA struct {
	core emaCore
}

// NewEMA creates a new Exponential Moving Average indicator with the given period.
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{core: newEMACore(period)}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.core.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.core.period
}

func (e *ExponentialMA) Reset() {
	e.core.reset()
}

func (e *ExponentialMA) Update(c market.Candle) {
	e.core.update(c.Close)
}

func (e *ExponentialMA) Ready() bool {
	return e.core.ready()
}

func (e *ExponentialMA) Value() float64 {
	return e.core.value()
}
