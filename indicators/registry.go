package indicators

import (
	"fmt"
	"strconv"
	"strings"
)

// Default parameters for operands written without an explicit period
// ("RSI", "MACD", "BB_Upper"). These match the periods the dashboard's
// strategy templates assume.
const (
	DefaultRSIPeriod  = 14
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
	DefaultBBPeriod   = 20
	DefaultBBK        = 2.0
)

// binding describes how a condition operand name maps onto an indicator
// instance: which instance computes it and which output to read.
type binding struct {
	// instanceKey is shared by names backed by the same instance, e.g.
	// MACD and Signal both read MACD(12,26,9).
	instanceKey string
	output      string // "" means the indicator's primary Value()
	build       func() Indicator
}

// UnknownIndicatorError reports a condition operand that names no known
// indicator. It is surfaced at strategy-creation time.
type UnknownIndicatorError struct {
	Name string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("unknown indicator %q", e.Name)
}

// Resolve reports whether name is a recognized indicator operand.
// Price and Volume are not indicators; the Store tracks them directly.
func Resolve(name string) error {
	_, err := resolve(name)
	return err
}

func resolve(name string) (binding, error) {
	switch name {
	case "RSI":
		return rsiBinding(DefaultRSIPeriod), nil
	case "MACD":
		return macdBinding(MACDLine), nil
	case "Signal", "MACD_Signal":
		return macdBinding(MACDSignal), nil
	case "MACD_Histogram":
		return macdBinding(MACDHistogram), nil
	case "BB_Upper":
		return bbBinding(BBUpper), nil
	case "BB_Middle":
		return bbBinding(BBMiddle), nil
	case "BB_Lower":
		return bbBinding(BBLower), nil
	case "BB_Width":
		return bbBinding(BBWidth), nil
	}

	parts := strings.Split(name, "_")

	// RSI_9, EMA_12, SMA_50
	if len(parts) == 2 {
		if period, ok := parsePeriod(parts[1]); ok {
			switch parts[0] {
			case "RSI":
				return rsiBinding(period), nil
			case "EMA":
				return binding{
					instanceKey: fmt.Sprintf("EMA(%d)", period),
					build:       func() Indicator { return NewEMA(period) },
				}, nil
			case "SMA":
				return binding{
					instanceKey: fmt.Sprintf("SMA(%d)", period),
					build:       func() Indicator { return NewMA(period) },
				}, nil
			}
		}
	}

	// SMA_20_Volume and SMA_Volume_20 are both in template vocabulary.
	if len(parts) == 3 && parts[0] == "SMA" {
		if period, ok := parsePeriod(parts[1]); ok && parts[2] == "Volume" {
			return volumeBinding(period), nil
		}
		if period, ok := parsePeriod(parts[2]); ok && parts[1] == "Volume" {
			return volumeBinding(period), nil
		}
	}

	return binding{}, &UnknownIndicatorError{Name: name}
}

func parsePeriod(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func rsiBinding(period int) binding {
	return binding{
		instanceKey: fmt.Sprintf("RSI(%d)", period),
		build:       func() Indicator { return NewRSI(period) },
	}
}

func macdBinding(output string) binding {
	return binding{
		instanceKey: fmt.Sprintf("MACD(%d,%d,%d)", DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal),
		output:      output,
		build: func() Indicator {
			return NewMACD(DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
		},
	}
}

func bbBinding(output string) binding {
	return binding{
		instanceKey: fmt.Sprintf("BB(%d,%g)", DefaultBBPeriod, DefaultBBK),
		output:      output,
		build:       func() Indicator { return NewBollinger(DefaultBBPeriod, DefaultBBK) },
	}
}

func volumeBinding(period int) binding {
	return binding{
		instanceKey: fmt.Sprintf("SMA_Volume(%d)", period),
		build:       func() Indicator { return NewVolumeMA(period) },
	}
}
