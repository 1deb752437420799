// Package equation parses ODE systems written as text.
//
// Each non-blank line holds one equation "LHS = RHS". The left-hand side
// names the state variable in one of the forms
//
//	x'   dx/dt   \frac{dx}{dt}   \dot{x}                  (first order)
//	x''  d^2x/dt^2   \frac{d^2x}{dt^2}   \ddot{x}         (second order)
//
// A second-order equation x'' = g is split into x' = dx and dx' = g, and a
// primed name x' on any right-hand side refers to dx. Right-hand sides accept
// ordinary infix notation and the common LaTeX forms: \frac, \cdot, \sqrt,
// \left( ... \right), Greek letters as variable names, subscripts and
// implicit multiplication. Text after '#' is a comment.
package equation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/san-kum/symode/internal/expr"
	"github.com/san-kum/symode/internal/ode"
)

// ErrSyntax is matched by every *SyntaxError.
var ErrSyntax = errors.New("equation: syntax error")

// SyntaxError reports a parse failure at a 1-based line and column.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Col, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

const namePattern = `\\?([A-Za-z][A-Za-z0-9]*(?:_[A-Za-z0-9]+)?)`

var (
	firstOrder = []*regexp.Regexp{
		regexp.MustCompile(`^` + namePattern + `'$`),
		regexp.MustCompile(`^d` + namePattern + `/dt$`),
		regexp.MustCompile(`^\\frac\{d` + namePattern + `\}\{dt\}$`),
		regexp.MustCompile(`^\\dot\{` + namePattern + `\}$`),
	}
	secondOrder = []*regexp.Regexp{
		regexp.MustCompile(`^` + namePattern + `''$`),
		regexp.MustCompile(`^d\^2` + namePattern + `/dt\^2$`),
		regexp.MustCompile(`^\\frac\{d\^2` + namePattern + `\}\{dt\^2\}$`),
		regexp.MustCompile(`^\\ddot\{` + namePattern + `\}$`),
	}
)

// parseLHS returns the state variable named by lhs and the derivative order.
func parseLHS(lhs string) (string, int, bool) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lhs)
	for _, re := range secondOrder {
		if m := re.FindStringSubmatch(compact); m != nil {
			return m[1], 2, true
		}
	}
	for _, re := range firstOrder {
		if m := re.FindStringSubmatch(compact); m != nil {
			return m[1], 1, true
		}
	}
	return "", 0, false
}

// Parse turns equation lines into ordered state variables and right-hand
// sides suitable for ode.New.
func Parse(lines []string) (vars, rhs []*expr.Expr, err error) {
	for i, raw := range lines {
		line := i + 1
		text := raw
		if idx := strings.IndexByte(text, '#'); idx >= 0 {
			text = text[:idx]
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		eq := strings.IndexByte(text, '=')
		if eq < 0 {
			return nil, nil, &SyntaxError{Line: line, Col: firstCol(text), Msg: "missing '=' in equation"}
		}
		lhs, src := text[:eq], text[eq+1:]

		x, order, ok := parseLHS(lhs)
		if !ok {
			return nil, nil, &SyntaxError{
				Line: line,
				Col:  firstCol(lhs),
				Msg:  fmt.Sprintf("unsupported left-hand side %q", strings.TrimSpace(lhs)),
			}
		}

		e, err := parseSource(src, line, utf8.RuneCountInString(text[:eq+1]), true)
		if err != nil {
			return nil, nil, err
		}

		if order == 2 {
			v := expr.Var("d" + x)
			vars = append(vars, expr.Var(x), v)
			rhs = append(rhs, v, e)
			continue
		}
		vars = append(vars, expr.Var(x))
		rhs = append(rhs, e)
	}
	if len(vars) == 0 {
		return nil, nil, &SyntaxError{Line: 1, Col: 1, Msg: "no equations"}
	}
	return vars, rhs, nil
}

// ParseModel parses lines and builds the model.
func ParseModel(lines []string, opts ...ode.Option) (*ode.Model, error) {
	vars, rhs, err := Parse(lines)
	if err != nil {
		return nil, err
	}
	return ode.New(vars, rhs, opts...)
}

// ParseExpr parses a single expression. Primed names are rejected.
func ParseExpr(src string) (*expr.Expr, error) {
	return parseSource(src, 1, 0, false)
}

// SplitLines splits a block of text into equation lines, also breaking on ';'.
func SplitLines(src string) []string {
	return strings.FieldsFunc(src, func(r rune) bool { return r == '\n' || r == ';' })
}

func firstCol(s string) int {
	for i, r := range []rune(s) {
		if !unicode.IsSpace(r) {
			return i + 1
		}
	}
	return 1
}
