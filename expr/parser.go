package expr

import "fmt"

// UnknownOperandError reports an identifier the indicator store does not
// recognize. Like ParseError it is surfaced at strategy-creation time.
type UnknownOperandError struct {
	Name string
	Pos  int
}

func (e *UnknownOperandError) Error() string {
	return fmt.Sprintf("unknown operand %q at %d", e.Name, e.Pos)
}

// LineError wraps a compile failure with the index of the condition line
// that caused it, so callers can point at the offending input.
type LineError struct {
	Index int
	Line  string
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("condition %d (%q): %v", e.Index, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Compiler compiles condition text. Resolve validates identifier operands;
// a nil Resolve accepts every identifier (tests). Price and Volume are
// always accepted.
type Compiler struct {
	Resolve func(name string) error
}

// Compile parses one condition line. Parsing is pure and deterministic:
// the same text always compiles to a structurally equal tree.
func (c Compiler) Compile(line string) (Expr, error) {
	toks, err := lex(line)
	if err != nil {
		return nil, err
	}
	p := &parser{compiler: c, input: line, toks: toks}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &ParseError{Input: line, Pos: tok.pos,
			Msg: fmt.Sprintf("unexpected %q after expression", tok.text)}
	}
	return e, nil
}

// CompileAll compiles an ordered condition set (implicit AND across lines).
// The first failure is returned as a *LineError and nothing is kept.
func (c Compiler) CompileAll(lines []string) (Set, error) {
	set := make(Set, 0, len(lines))
	for i, line := range lines {
		e, err := c.Compile(line)
		if err != nil {
			return nil, &LineError{Index: i, Line: line, Err: err}
		}
		set = append(set, e)
	}
	return set, nil
}

type parser struct {
	compiler Compiler
	input    string
	toks     []token
	pos      int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errf(tok token, format string, args ...any) error {
	return &ParseError{Input: p.input, Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

// expr := and ( "or" and )*
func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

// and := unary ( "and" unary )*
func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

// unary := "not" unary | primary
func (p *parser) parseUnary() (Expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Expr: child}, nil
	}
	return p.parsePrimary()
}

// primary := "(" expr ")" | comparison
func (p *parser) parsePrimary() (Expr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if tok := p.next(); tok.kind != tokRParen {
			return nil, p.errf(tok, "expected ')'")
		}
		return e, nil
	}
	return p.parseComparison()
}

// comparison := operand ( cmpop operand | "crosses" ("above"|"below") operand )?
func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	switch tok := p.peek(); tok.kind {
	case tokOp:
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return Compare{Left: left, Op: CmpOp(tok.text), Right: right}, nil

	case tokCrosses:
		p.next()
		dir := p.next()
		if dir.kind != tokAbove && dir.kind != tokBelow {
			return nil, p.errf(dir, "expected 'above' or 'below' after 'crosses'")
		}
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return Cross{Left: left, Right: right, Above: dir.kind == tokAbove}, nil
	}

	// Bare operand: true when present and non-zero.
	return left, nil
}

func (p *parser) parseOperand() (Operand, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return Const{Value: tok.num}, nil
	case tokIdent:
		if tok.text != "Price" && tok.text != "Volume" && p.compiler.Resolve != nil {
			if err := p.compiler.Resolve(tok.text); err != nil {
				return nil, &UnknownOperandError{Name: tok.text, Pos: tok.pos}
			}
		}
		return Ref{Name: tok.text}, nil
	case tokEOF:
		return nil, p.errf(tok, "expected operand, found end of input")
	default:
		return nil, p.errf(tok, "expected operand, found %q", tok.text)
	}
}
