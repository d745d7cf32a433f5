package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokOp     // < > <= >= ==
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokCrosses
	tokAbove
	tokBelow
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// ParseError reports malformed condition text. It is produced at
// strategy-creation time and never reaches the runtime.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %q at %d: %s", e.Input, e.Pos, e.Msg)
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := rune(input[i])

		switch {
		case unicode.IsSpace(c):
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++

		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++

		case c == '<' || c == '>':
			op := string(c)
			if i+1 < len(input) && input[i+1] == '=' {
				op += "="
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)

		case c == '=':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, &ParseError{Input: input, Pos: i, Msg: "single '=' is not a comparator, use '=='"}
			}
			toks = append(toks, token{kind: tokOp, text: "==", pos: i})
			i += 2

		case unicode.IsDigit(c) || c == '.' ||
			(c == '-' && i+1 < len(input) && (unicode.IsDigit(rune(input[i+1])) || input[i+1] == '.')):
			start := i
			if c == '-' {
				i++
			}
			for i < len(input) && (unicode.IsDigit(rune(input[i])) || input[i] == '.') {
				i++
			}
			// Optional exponent, so "1.5e3" and "1e-7" are valid literals.
			if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
				j := i + 1
				if j < len(input) && (input[j] == '+' || input[j] == '-') {
					j++
				}
				if j < len(input) && unicode.IsDigit(rune(input[j])) {
					i = j
					for i < len(input) && unicode.IsDigit(rune(input[i])) {
						i++
					}
				}
			}
			text := input[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &ParseError{Input: input, Pos: start, Msg: fmt.Sprintf("bad number %q", text)}
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num, pos: start})

		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(input) && isIdentRune(rune(input[i])) {
				i++
			}
			text := input[start:i]
			toks = append(toks, token{kind: keywordKind(text), text: text, pos: start})

		default:
			return nil, &ParseError{Input: input, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(input)})
	return toks, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// Boolean and cross keywords are case-insensitive; operand identifiers are not.
func keywordKind(text string) tokenKind {
	switch strings.ToLower(text) {
	case "and":
		return tokAnd
	case "or":
		return tokOr
	case "not":
		return tokNot
	case "crosses":
		return tokCrosses
	case "above":
		return tokAbove
	case "below":
		return tokBelow
	}
	return tokIdent
}
