package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeView is a hand-rolled indicator snapshot for evaluator tests.
type fakeView struct {
	cur  map[string]float64
	prev map[string]float64
}

func (v fakeView) Value(name string) (float64, bool) {
	val, ok := v.cur[name]
	return val, ok
}

func (v fakeView) Prev(name string) (float64, bool) {
	val, ok := v.prev[name]
	return val, ok
}

func ctxWith(cur, prev map[string]float64) Context {
	return Context{View: fakeView{cur: cur, prev: prev}}
}

func mustCompile(t *testing.T, line string) Expr {
	t.Helper()
	e, err := Compiler{}.Compile(line)
	require.NoError(t, err)
	return e
}

func TestEvalComparisons(t *testing.T) {
	ctx := ctxWith(map[string]float64{
		"RSI":    25,
		"Price":  50000,
		"Volume": 1200,
		"EMA_12": 101,
		"EMA_26": 100,
	}, nil)

	tests := []struct {
		line string
		want bool
	}{
		{"RSI < 30", true},
		{"RSI > 30", false},
		{"RSI <= 25", true},
		{"RSI >= 26", false},
		{"RSI == 25", true},
		{"Price > EMA_12", true},
		{"EMA_12 > EMA_26", true},
		{"Volume > 1500", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Eval(mustCompile(t, tt.line), ctx))
		})
	}
}

func TestEvalWarmupIsFalseNeverPanics(t *testing.T) {
	// Context with no indicator data at all: every comparison involving a
	// missing operand is false, and negation still works on the result.
	empty := ctxWith(map[string]float64{}, map[string]float64{})

	lines := []string{
		"RSI < 30",
		"RSI > 30",
		"EMA_12 crosses above EMA_26",
		"EMA_12 crosses below EMA_26",
		"RSI < 30 and Volume > 1000",
		"RSI < 30 or RSI > 70",
		"RSI == RSI",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, Eval(mustCompile(t, line), empty))
			})
		})
	}

	// not(missing comparison) is true by boolean structure; the comparison
	// itself is what warmup forces to false.
	assert.True(t, Eval(mustCompile(t, "not RSI < 30"), empty))
}

func TestEvalCrossFiresOnlyOnOvertake(t *testing.T) {
	e := mustCompile(t, "EMA_12 crosses above EMA_26")

	steps := []struct {
		name       string
		prev, cur  [2]float64 // EMA_12, EMA_26
		wantSignal bool
	}{
		{"below on both candles", [2]float64{99, 100}, [2]float64{99.5, 100}, false},
		{"overtake tick", [2]float64{99.5, 100}, [2]float64{100.5, 100}, true},
		{"stays above", [2]float64{100.5, 100}, [2]float64{101, 100}, false},
		{"touch then break", [2]float64{100, 100}, [2]float64{100.5, 100}, true},
	}

	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ctxWith(
				map[string]float64{"EMA_12": tt.cur[0], "EMA_26": tt.cur[1]},
				map[string]float64{"EMA_12": tt.prev[0], "EMA_26": tt.prev[1]},
			)
			assert.Equal(t, tt.wantSignal, Eval(e, ctx))
		})
	}

	t.Run("no prior value means no cross", func(t *testing.T) {
		ctx := ctxWith(map[string]float64{"EMA_12": 101, "EMA_26": 100}, map[string]float64{})
		assert.False(t, Eval(e, ctx))
	})
}

func TestEvalCrossBelow(t *testing.T) {
	e := mustCompile(t, "Price crosses below BB_Middle")

	ctx := ctxWith(
		map[string]float64{"Price": 98, "BB_Middle": 100},
		map[string]float64{"Price": 101, "BB_Middle": 100},
	)
	assert.True(t, Eval(e, ctx))

	// Already below: no new signal.
	ctx = ctxWith(
		map[string]float64{"Price": 97, "BB_Middle": 100},
		map[string]float64{"Price": 98, "BB_Middle": 100},
	)
	assert.False(t, Eval(e, ctx))
}

func TestEvalBoolean(t *testing.T) {
	ctx := ctxWith(map[string]float64{"RSI": 25, "Volume": 2000}, nil)

	assert.True(t, Eval(mustCompile(t, "RSI < 30 and Volume > 1000"), ctx))
	assert.False(t, Eval(mustCompile(t, "RSI < 30 and Volume > 5000"), ctx))
	assert.True(t, Eval(mustCompile(t, "RSI > 70 or Volume > 1000"), ctx))
	assert.True(t, Eval(mustCompile(t, "not RSI > 70"), ctx))
}

func TestEvalApproxEqual(t *testing.T) {
	ctx := ctxWith(map[string]float64{"MACD": 0.1 + 0.2, "Signal": 0.3}, nil)
	// 0.1+0.2 != 0.3 in float64; == uses a relative epsilon.
	assert.True(t, Eval(mustCompile(t, "MACD == Signal"), ctx))
}

func TestSetSemantics(t *testing.T) {
	c := Compiler{}
	entry, err := c.CompileAll([]string{"RSI < 30", "Volume > 1000"})
	require.NoError(t, err)

	both := ctxWith(map[string]float64{"RSI": 25, "Volume": 2000}, nil)
	one := ctxWith(map[string]float64{"RSI": 25, "Volume": 500}, nil)

	assert.True(t, entry.EvalAll(both), "entry requires ALL lines")
	assert.False(t, entry.EvalAll(one))
	assert.True(t, entry.EvalAny(one), "exit fires on ANY line")

	assert.False(t, Set{}.EvalAll(both), "an empty set never holds")
	assert.False(t, Set{}.EvalAny(both))
}
