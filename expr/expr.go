// Package expr compiles human-authored strategy conditions like
// "RSI < 30" or "EMA_12 crosses above EMA_26" into immutable expression
// trees and evaluates them against indicator snapshots.
package expr

import (
	"math"
	"strconv"
	"strings"
)

// View is the read-only indicator state an expression evaluates against.
// Prev returns the value a series had on the previous candle; both report
// ok=false while a series is still in warmup.
type View interface {
	Value(name string) (float64, bool)
	Prev(name string) (float64, bool)
}

// Context carries everything one evaluation needs. Evaluation is a pure
// tree walk: no Context field is mutated.
type Context struct {
	View        View
	HasPosition bool
}

// Expr is a compiled condition node. Trees are immutable once compiled and
// may be shared across evaluation calls.
type Expr interface {
	// String renders the canonical text form; compiling it again yields a
	// structurally equal tree.
	String() string
	eval(ctx Context) bool
}

// Operand is a value-producing leaf: an indicator/price/volume reference or
// a numeric literal. A bare operand used as a condition is true when its
// value is present and non-zero.
type Operand interface {
	Expr
	value(ctx Context) (float64, bool)
	prev(ctx Context) (float64, bool)
}

// Ref reads a named series from the context: an indicator operand, Price,
// or Volume.
type Ref struct {
	Name string
}

func (r Ref) String() string { return r.Name }

func (r Ref) value(ctx Context) (float64, bool) {
	if ctx.View == nil {
		return 0, false
	}
	return ctx.View.Value(r.Name)
}

func (r Ref) prev(ctx Context) (float64, bool) {
	if ctx.View == nil {
		return 0, false
	}
	return ctx.View.Prev(r.Name)
}

func (r Ref) eval(ctx Context) bool {
	v, ok := r.value(ctx)
	return ok && v != 0
}

// Const is a numeric literal.
type Const struct {
	Value float64
}

// String renders without an exponent so the canonical text stays inside
// the condition grammar and recompiles to the same tree.
func (c Const) String() string {
	s := strconv.FormatFloat(c.Value, 'g', -1, 64)
	if strings.ContainsAny(s, "eE") {
		return strconv.FormatFloat(c.Value, 'f', -1, 64)
	}
	return s
}

func (c Const) value(Context) (float64, bool) { return c.Value, true }
func (c Const) prev(Context) (float64, bool)  { return c.Value, true }
func (c Const) eval(Context) bool             { return c.Value != 0 }

// CmpOp is a comparison operator.
type CmpOp string

const (
	OpLT CmpOp = "<"
	OpGT CmpOp = ">"
	OpLE CmpOp = "<="
	OpGE CmpOp = ">="
	OpEQ CmpOp = "=="
)

// Compare is a binary comparison between two operands. A comparison whose
// operand is still in warmup evaluates to false, never panics.
type Compare struct {
	Left  Operand
	Op    CmpOp
	Right Operand
}

func (c Compare) String() string {
	return c.Left.String() + " " + string(c.Op) + " " + c.Right.String()
}

func (c Compare) eval(ctx Context) bool {
	l, ok := c.Left.value(ctx)
	if !ok {
		return false
	}
	r, ok := c.Right.value(ctx)
	if !ok {
		return false
	}
	switch c.Op {
	case OpLT:
		return l < r
	case OpGT:
		return l > r
	case OpLE:
		return l <= r
	case OpGE:
		return l >= r
	case OpEQ:
		return approxEqual(l, r)
	}
	return false
}

// approxEqual compares with a relative epsilon; exact equality on derived
// indicator values is never meaningful.
func approxEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return diff <= 1e-9*scale
}

// Cross is the "crosses above"/"crosses below" operator. It holds only on
// the tick where Left overtakes Right: prev(L) <= prev(R) && cur(L) > cur(R)
// for above, mirrored for below. Missing current or prior values make it
// false.
type Cross struct {
	Left  Operand
	Right Operand
	Above bool
}

func (c Cross) String() string {
	dir := "below"
	if c.Above {
		dir = "above"
	}
	return c.Left.String() + " crosses " + dir + " " + c.Right.String()
}

func (c Cross) eval(ctx Context) bool {
	lCur, ok := c.Left.value(ctx)
	if !ok {
		return false
	}
	rCur, ok := c.Right.value(ctx)
	if !ok {
		return false
	}
	lPrev, ok := c.Left.prev(ctx)
	if !ok {
		return false
	}
	rPrev, ok := c.Right.prev(ctx)
	if !ok {
		return false
	}
	if c.Above {
		return lPrev <= rPrev && lCur > rCur
	}
	return lPrev >= rPrev && lCur < rCur
}

// And is a boolean conjunction.
type And struct {
	Left  Expr
	Right Expr
}

func (a And) String() string {
	return andChild(a.Left) + " and " + andChild(a.Right)
}

// andChild parenthesizes lower-precedence children so the canonical text
// reparses to the same tree.
func andChild(e Expr) string {
	if _, ok := e.(Or); ok {
		return "(" + e.String() + ")"
	}
	return e.String()
}

func (a And) eval(ctx Context) bool {
	return a.Left.eval(ctx) && a.Right.eval(ctx)
}

// Or is a boolean disjunction.
type Or struct {
	Left  Expr
	Right Expr
}

func (o Or) String() string {
	return o.Left.String() + " or " + o.Right.String()
}

func (o Or) eval(ctx Context) bool {
	return o.Left.eval(ctx) || o.Right.eval(ctx)
}

// Not negates its child.
type Not struct {
	Expr Expr
}

func (n Not) String() string {
	switch n.Expr.(type) {
	case And, Or:
		return "not (" + n.Expr.String() + ")"
	}
	return "not " + n.Expr.String()
}

func (n Not) eval(ctx Context) bool {
	return !n.Expr.eval(ctx)
}

// Eval evaluates a compiled expression against a context. It never panics;
// any operand still in warmup makes the enclosing comparison false.
func Eval(e Expr, ctx Context) bool {
	return e.eval(ctx)
}

// Refs returns the distinct series names an expression reads, in first-use
// order. Used to register the strategy's indicators with the store.
func Refs(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	collectRefs(e, seen, &names)
	return names
}

func collectRefs(e Expr, seen map[string]bool, names *[]string) {
	switch n := e.(type) {
	case Ref:
		if !seen[n.Name] {
			seen[n.Name] = true
			*names = append(*names, n.Name)
		}
	case Compare:
		collectRefs(n.Left, seen, names)
		collectRefs(n.Right, seen, names)
	case Cross:
		collectRefs(n.Left, seen, names)
		collectRefs(n.Right, seen, names)
	case And:
		collectRefs(n.Left, seen, names)
		collectRefs(n.Right, seen, names)
	case Or:
		collectRefs(n.Left, seen, names)
		collectRefs(n.Right, seen, names)
	case Not:
		collectRefs(n.Expr, seen, names)
	}
}

// Set is an ordered sequence of compiled condition lines.
type Set []Expr

// EvalAll reports whether every condition holds (entry semantics).
// An empty set never holds.
func (s Set) EvalAll(ctx Context) bool {
	if len(s) == 0 {
		return false
	}
	for _, e := range s {
		if !e.eval(ctx) {
			return false
		}
	}
	return true
}

// EvalAny reports whether at least one condition holds (exit semantics).
func (s Set) EvalAny(ctx Context) bool {
	for _, e := range s {
		if e.eval(ctx) {
			return true
		}
	}
	return false
}

// Refs returns the distinct series names the whole set reads.
func (s Set) Refs() []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range s {
		collectRefs(e, seen, &names)
	}
	return names
}

// Strings renders every line in canonical form.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.String()
	}
	return out
}

// Canonical joins the canonical lines with newlines (implicit AND).
func (s Set) Canonical() string {
	return strings.Join(s.Strings(), "\n")
}
