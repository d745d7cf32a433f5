package indicators

import (
	"fmt"

	"github.com/rustyeddy/stratengine/market"
)

// MACD output series names.
const (
	MACDLine      = "macd"
	MACDSignal    = "signal"
	MACDHistogram = "histogram"
)

// MACD is a streaming Moving Average Convergence Divergence indicator.
// It exposes three outputs: the MACD line, the signal line, and the histogram.
type MACD struct {
	fast   emaCore
	slow   emaCore
	signal emaCore
}

func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   newEMACore(fast),
		slow:   newEMACore(slow),
		signal: newEMACore(signal),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast.period, m.slow.period, m.signal.period)
}

func (m *MACD) Warmup() int {
	// The signal line needs `signal.period` MACD values, and the first MACD
	// value appears once the slow EMA is seeded.
	return m.slow.period + m.signal.period - 1
}

func (m *MACD) Reset() {
	m.fast.reset()
	m.slow.reset()
	m.signal.reset()
}

func (m *MACD) Update(c market.Candle) {
	m.fast.update(c.Close)
	m.slow.update(c.Close)
	if m.fast.ready() && m.slow.ready() {
		m.signal.update(m.fast.value() - m.slow.value())
	}
}

func (m *MACD) Ready() bool {
	return m.signal.ready()
}

// Value returns the MACD line.
func (m *MACD) Value() float64 {
	return m.ValueOf(MACDLine)
}

func (m *MACD) ValueOf(output string) float64 {
	if !m.Ready() {
		return 0
	}
	line := m.fast.value() - m.slow.value()
	switch output {
	case MACDLine:
		return line
	case MACDSignal:
		return m.signal.value()
	case MACDHistogram:
		return line - m.signal.value()
	}
	return 0
}
