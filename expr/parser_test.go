package expr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testResolver mimics the indicator registry: a fixed vocabulary of known
// operand names.
func testResolver(name string) error {
	known := map[string]bool{
		"RSI": true, "EMA_12": true, "EMA_26": true, "EMA_50": true,
		"SMA_50": true, "MACD": true, "Signal": true,
		"BB_Upper": true, "BB_Middle": true, "BB_Width": true,
		"SMA_20_Volume": true, "SMA_Volume_10": true,
	}
	if !known[name] {
		return fmt.Errorf("unknown indicator %q", name)
	}
	return nil
}

func testCompiler() Compiler {
	return Compiler{Resolve: testResolver}
}

func TestCompileComparisons(t *testing.T) {
	c := testCompiler()

	tests := []struct {
		line string
		want Expr
	}{
		{"RSI < 30", Compare{Left: Ref{Name: "RSI"}, Op: OpLT, Right: Const{Value: 30}}},
		{"EMA_12 > EMA_26", Compare{Left: Ref{Name: "EMA_12"}, Op: OpGT, Right: Ref{Name: "EMA_26"}}},
		{"Price > EMA_50", Compare{Left: Ref{Name: "Price"}, Op: OpGT, Right: Ref{Name: "EMA_50"}}},
		{"Volume >= 1000.5", Compare{Left: Ref{Name: "Volume"}, Op: OpGE, Right: Const{Value: 1000.5}}},
		{"MACD == Signal", Compare{Left: Ref{Name: "MACD"}, Op: OpEQ, Right: Ref{Name: "Signal"}}},
		{"Price <= BB_Middle", Compare{Left: Ref{Name: "Price"}, Op: OpLE, Right: Ref{Name: "BB_Middle"}}},
		{"EMA_12 crosses above EMA_26", Cross{Left: Ref{Name: "EMA_12"}, Right: Ref{Name: "EMA_26"}, Above: true}},
		{"Price crosses below BB_Middle", Cross{Left: Ref{Name: "Price"}, Right: Ref{Name: "BB_Middle"}, Above: false}},
		{"MACD > -0.5", Compare{Left: Ref{Name: "MACD"}, Op: OpGT, Right: Const{Value: -0.5}}},
		{"Volume > 0.00001", Compare{Left: Ref{Name: "Volume"}, Op: OpGT, Right: Const{Value: 0.00001}}},
		{"Volume > 1.5e3", Compare{Left: Ref{Name: "Volume"}, Op: OpGT, Right: Const{Value: 1500}}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := c.Compile(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileBoolean(t *testing.T) {
	c := testCompiler()

	t.Run("and or precedence", func(t *testing.T) {
		got, err := c.Compile("RSI < 30 and Volume > 1000 or RSI > 70")
		require.NoError(t, err)
		// and binds tighter than or
		or, ok := got.(Or)
		require.True(t, ok)
		_, ok = or.Left.(And)
		assert.True(t, ok)
	})

	t.Run("parentheses override", func(t *testing.T) {
		got, err := c.Compile("RSI < 30 and (Volume > 1000 or RSI > 70)")
		require.NoError(t, err)
		and, ok := got.(And)
		require.True(t, ok)
		_, ok = and.Right.(Or)
		assert.True(t, ok)
	})

	t.Run("not", func(t *testing.T) {
		got, err := c.Compile("not RSI > 70")
		require.NoError(t, err)
		assert.Equal(t, Not{Expr: Compare{Left: Ref{Name: "RSI"}, Op: OpGT, Right: Const{Value: 70}}}, got)
	})

	t.Run("keywords are case-insensitive", func(t *testing.T) {
		a, err := c.Compile("RSI < 30 AND Volume > 1000")
		require.NoError(t, err)
		b, err := c.Compile("RSI < 30 and Volume > 1000")
		require.NoError(t, err)
		assert.Equal(t, b, a)
	})
}

func TestCompileDeterministic(t *testing.T) {
	c := testCompiler()
	a, err := c.Compile("EMA_12 crosses above EMA_26 and RSI < 30")
	require.NoError(t, err)
	b, err := c.Compile("EMA_12 crosses above EMA_26 and RSI < 30")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompileErrors(t *testing.T) {
	c := testCompiler()

	t.Run("free text fails with ParseError or UnknownOperand", func(t *testing.T) {
		// Natural-language conditions from the dashboard templates must be
		// rejected at creation time, never silently ignored.
		freeText := []string{
			"Price near POC",
			"Market in range",
			"MACD_Histogram increasing",
			"Price at Fib_61.8",
		}
		for _, line := range freeText {
			_, err := c.Compile(line)
			assert.Error(t, err, line)
		}
	})

	t.Run("unknown operand", func(t *testing.T) {
		_, err := c.Compile("StochRSI_K < 20")
		var uerr *UnknownOperandError
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "StochRSI_K", uerr.Name)
	})

	t.Run("syntax errors", func(t *testing.T) {
		bad := []string{
			"RSI <",
			"< 30",
			"RSI < > 30",
			"RSI crosses 30",
			"RSI = 30",
			"(RSI < 30",
			"Profit >= 2%",
			"RSI < 30 30",
		}
		for _, line := range bad {
			_, err := c.Compile(line)
			require.Error(t, err, line)
		}
	})
}

func TestCompileAll(t *testing.T) {
	c := testCompiler()

	t.Run("reports failing line index", func(t *testing.T) {
		_, err := c.CompileAll([]string{"RSI < 30", "Price near POC"})
		var lerr *LineError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, 1, lerr.Index)
		assert.Equal(t, "Price near POC", lerr.Line)
	})

	t.Run("keeps order", func(t *testing.T) {
		set, err := c.CompileAll([]string{"RSI < 30", "Volume > 1000"})
		require.NoError(t, err)
		require.Len(t, set, 2)
		assert.Equal(t, "RSI < 30", set[0].String())
	})
}

func TestCanonicalRoundTrip(t *testing.T) {
	c := testCompiler()

	lines := []string{
		"RSI < 30",
		"EMA_12 crosses above EMA_26",
		"Price crosses below BB_Middle",
		"RSI < 30 and Volume > 1000",
		"RSI < 30 and (Volume > 1000 or RSI > 70)",
		"not (RSI > 70 and Volume > 1000)",
		"RSI < 30 and Volume > 1000 and Price > EMA_50",
		"Volume >= 1000.5",
		"MACD == 0",
		// Literals small enough that %g would print an exponent, and
		// negative thresholds; both must survive the round trip.
		"Volume > 0.00001",
		"Volume > 1e-7",
		"MACD > -0.5",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			first, err := c.Compile(line)
			require.NoError(t, err)

			second, err := c.Compile(first.String())
			require.NoError(t, err, "canonical form %q must recompile", first.String())
			assert.Equal(t, first, second)
		})
	}
}

func TestRefs(t *testing.T) {
	c := testCompiler()
	set, err := c.CompileAll([]string{
		"RSI < 30 and Volume > SMA_20_Volume",
		"EMA_12 crosses above EMA_26",
		"RSI > 10",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"RSI", "Volume", "SMA_20_Volume", "EMA_12", "EMA_26"}, set.Refs())
}
