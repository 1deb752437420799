package equation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/symode/internal/expr"
)

var functions = map[string]expr.Kind{
	"sin":  expr.KindSin,
	"cos":  expr.KindCos,
	"tan":  expr.KindTan,
	"exp":  expr.KindExp,
	"log":  expr.KindLog,
	"ln":   expr.KindLog,
	"sqrt": expr.KindSqrt,
}

// operator commands never start an operand
var operatorCommands = map[string]bool{
	"cdot":  true,
	"times": true,
	"div":   true,
	"right": true,
}

// parser is a recursive-descent parser over one line of tokens:
//
//	expr   = term { ("+" | "-") term }
//	term   = unary { ("*" | "/" | \cdot | \times | \div | <juxtaposition>) power }
//	unary  = ("-" | "+") unary | power
//	power  = atom [ "^" unary ]
//	atom   = number | name [ "'" ] | func | \frac group group | \sqrt [ "[" expr "]" ] group
//	       | "(" expr ")" | "{" expr "}" | \left delim expr \right delim
type parser struct {
	toks       []token
	pos        int
	line       int
	allowPrime bool
}

func parseSource(src string, line, offset int, allowPrime bool) (*expr.Expr, error) {
	toks, err := lex(src, line, offset)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, line: line, allowPrime: allowPrime}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %s", tok)
	}
	return e, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(k tokenKind) error {
	if tok := p.next(); tok.kind != k {
		return p.errorf(tok, "expected %s, found %s", k, tok)
	}
	return nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Line: p.line, Col: tok.col, Msg: fmt.Sprintf(format, args...)}
}

func isCommand(tok token, names ...string) bool {
	if tok.kind != tokCommand {
		return false
	}
	for _, n := range names {
		if tok.text == n {
			return true
		}
	}
	return false
}

func (p *parser) parseExpr() (*expr.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = expr.Add(left, right)
		case tokMinus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = expr.Sub(left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (*expr.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokStar, isCommand(tok, "cdot", "times"):
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = expr.Mul(left, right)
		case tok.kind == tokSlash, isCommand(tok, "div"):
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = expr.Div(left, right)
		case startsOperand(tok):
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			left = expr.Mul(left, right)
		default:
			return left, nil
		}
	}
}

func startsOperand(tok token) bool {
	switch tok.kind {
	case tokNumber, tokIdent, tokLParen, tokLBrace:
		return true
	case tokCommand:
		return !operatorCommands[tok.text]
	}
	return false
}

func (p *parser) parseUnary() (*expr.Expr, error) {
	switch p.peek().kind {
	case tokMinus:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.Neg(x), nil
	case tokPlus:
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (*expr.Expr, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokCaret {
		return base, nil
	}
	p.next()
	// right-associative: a^b^c = a^(b^c)
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return expr.Pow(base, exp), nil
}

func (p *parser) parseAtom() (*expr.Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.text)
		}
		return expr.Const(v), nil
	case tokIdent:
		if k, ok := functions[tok.text]; ok {
			return p.parseCall(k)
		}
		if tok.text == "pi" {
			return expr.Const(math.Pi), nil
		}
		return p.parseName(tok.text)
	case tokCommand:
		return p.parseCommand(tok)
	case tokLParen:
		return p.parseClosed(tokRParen)
	case tokLBrace:
		return p.parseClosed(tokRBrace)
	}
	return nil, p.errorf(tok, "unexpected %s", tok)
}

func (p *parser) parseClosed(closing tokenKind) (*expr.Expr, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(closing); err != nil {
		return nil, err
	}
	return e, nil
}

// parseName reads an optional subscript and derivative prime after a name.
func (p *parser) parseName(name string) (*expr.Expr, error) {
	if p.peek().kind == tokUnderscore {
		p.next()
		sub, err := p.parseSubscript()
		if err != nil {
			return nil, err
		}
		name += "_" + sub
	}
	if tok := p.peek(); tok.kind == tokPrime {
		if !p.allowPrime {
			return nil, p.errorf(tok, "derivative %s' is only allowed in equations", name)
		}
		p.next()
		if again := p.peek(); again.kind == tokPrime {
			return nil, p.errorf(again, "second derivative %s'' cannot appear on the right-hand side", name)
		}
		// x' on a right-hand side is the velocity variable of a second-order equation
		name = "d" + name
	}
	return expr.Var(name), nil
}

func (p *parser) parseSubscript() (string, error) {
	tok := p.next()
	switch tok.kind {
	case tokIdent, tokNumber:
		return tok.text, nil
	case tokLBrace:
		var sb strings.Builder
		for {
			t := p.next()
			switch t.kind {
			case tokRBrace:
				if sb.Len() == 0 {
					return "", p.errorf(t, "empty subscript")
				}
				return sb.String(), nil
			case tokIdent, tokNumber:
				sb.WriteString(t.text)
			default:
				return "", p.errorf(t, "unexpected %s in subscript", t)
			}
		}
	}
	return "", p.errorf(tok, "expected subscript, found %s", tok)
}

func (p *parser) parseCommand(tok token) (*expr.Expr, error) {
	if tok.text == "sqrt" && p.peek().kind == tokLBracket {
		p.next()
		degree, err := p.parseClosed(tokRBracket)
		if err != nil {
			return nil, err
		}
		arg, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		return expr.Pow(arg, expr.Div(expr.Const(1), degree)), nil
	}
	if k, ok := functions[tok.text]; ok {
		return p.parseCall(k)
	}
	switch tok.text {
	case "frac":
		num, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		den, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		return expr.Div(num, den), nil
	case "left":
		return p.parseLeftRight()
	case "pi":
		return expr.Const(math.Pi), nil
	}
	if operatorCommands[tok.text] {
		return nil, p.errorf(tok, "unexpected %s", tok)
	}
	// Greek letters and other commands name variables: \theta -> theta
	return p.parseName(tok.text)
}

// parseCall parses the argument of a function whose name was just consumed.
// A power written on the function name, as in \sin^2 x, applies to the result.
func (p *parser) parseCall(k expr.Kind) (*expr.Expr, error) {
	var power *expr.Expr
	if p.peek().kind == tokCaret {
		p.next()
		var err error
		if power, err = p.parseGroup(); err != nil {
			return nil, err
		}
	}

	var arg *expr.Expr
	var err error
	switch tok := p.peek(); {
	case tok.kind == tokLParen, tok.kind == tokLBrace, isCommand(tok, "left"):
		arg, err = p.parseAtom()
	default:
		arg, err = p.parsePower()
	}
	if err != nil {
		return nil, err
	}

	out := expr.Func(k, arg)
	if power != nil {
		out = expr.Pow(out, power)
	}
	return out, nil
}

func (p *parser) parseGroup() (*expr.Expr, error) {
	if p.peek().kind == tokLBrace {
		p.next()
		return p.parseClosed(tokRBrace)
	}
	return p.parseAtom()
}

var delimiters = map[tokenKind]tokenKind{
	tokLParen:   tokRParen,
	tokLBracket: tokRBracket,
}

func (p *parser) parseLeftRight() (*expr.Expr, error) {
	open := p.next()
	closing, ok := delimiters[open.kind]
	if !ok {
		return nil, p.errorf(open, `expected delimiter after \left, found %s`, open)
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.next(); !isCommand(tok, "right") {
		return nil, p.errorf(tok, `expected \right, found %s`, tok)
	}
	if err := p.expect(closing); err != nil {
		return nil, err
	}
	return e, nil
}
