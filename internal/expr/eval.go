package expr

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnboundVariable indicates a Var whose name is missing from the
	// evaluation environment.
	ErrUnboundVariable = errors.New("expr: unbound variable")

	// ErrUnsupported indicates an operation that is not defined for a node.
	ErrUnsupported = errors.New("expr: unsupported operation")

	// ErrDomain is matched by every *DomainError.
	ErrDomain = errors.New("expr: math domain error")
)

// DomainError reports an arithmetic fault raised while evaluating a node.
type DomainError struct {
	Op     Kind
	Arg    float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("expr: %s(%g): %s", e.Op, e.Arg, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// Eval computes the numeric value of e with variables bound from env.
func (e *Expr) Eval(env map[string]float64) (float64, error) {
	switch k := e.Kind(); {
	case k == KindConst:
		return e.value, nil
	case k == KindVar:
		v, ok := env[e.name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnboundVariable, e.name)
		}
		return v, nil
	case k == KindNeg:
		x, err := e.args[0].Eval(env)
		return -x, err
	case k == KindAdd, k == KindMul, k == KindPow:
		a, err := e.args[0].Eval(env)
		if err != nil {
			return 0, err
		}
		b, err := e.args[1].Eval(env)
		if err != nil {
			return 0, err
		}
		return applyBinary(k, a, b)
	case k.IsUnaryFunc():
		x, err := e.args[0].Eval(env)
		if err != nil {
			return 0, err
		}
		return applyUnary(k, x)
	default:
		return 0, fmt.Errorf("%w: eval of %s node", ErrUnsupported, k)
	}
}

func applyBinary(k Kind, a, b float64) (float64, error) {
	switch k {
	case KindAdd:
		return a + b, nil
	case KindMul:
		return a * b, nil
	case KindPow:
		return applyPow(a, b)
	}
	return 0, fmt.Errorf("%w: %s is not binary", ErrUnsupported, k)
}

func applyPow(b, p float64) (float64, error) {
	switch {
	case b == 0 && p < 0:
		return 0, &DomainError{Op: KindPow, Arg: b, Reason: "division by zero"}
	case b < 0 && p != math.Trunc(p):
		return 0, &DomainError{Op: KindPow, Arg: b, Reason: "negative base with non-integer exponent"}
	}
	r := math.Pow(b, p)
	if math.IsInf(r, 0) && !math.IsInf(b, 0) && !math.IsInf(p, 0) {
		return 0, &DomainError{Op: KindPow, Arg: b, Reason: "result out of range"}
	}
	return r, nil
}

func applyUnary(k Kind, x float64) (float64, error) {
	switch k {
	case KindSin:
		return math.Sin(x), nil
	case KindCos:
		return math.Cos(x), nil
	case KindTan:
		return math.Tan(x), nil
	case KindExp:
		r := math.Exp(x)
		if math.IsInf(r, 1) && !math.IsInf(x, 1) {
			return 0, &DomainError{Op: k, Arg: x, Reason: "result out of range"}
		}
		return r, nil
	case KindLog:
		if x <= 0 {
			return 0, &DomainError{Op: k, Arg: x, Reason: "argument must be positive"}
		}
		return math.Log(x), nil
	case KindSqrt:
		if x < 0 {
			return 0, &DomainError{Op: k, Arg: x, Reason: "argument must be non-negative"}
		}
		return math.Sqrt(x), nil
	}
	return 0, fmt.Errorf("%w: %s is not a unary function", ErrUnsupported, k)
}

// Compiled evaluates a compiled expression against a slot vector.
type Compiled func(vals []float64) (float64, error)

// Compile resolves every variable of e to an index in slots and returns a
// closure evaluating e against a value vector laid out the same way.
// Unknown variables are reported here instead of at evaluation time.
func (e *Expr) Compile(slots map[string]int) (Compiled, error) {
	switch k := e.Kind(); {
	case k == KindConst:
		v := e.value
		return func([]float64) (float64, error) { return v, nil }, nil
	case k == KindVar:
		idx, ok := slots[e.name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnboundVariable, e.name)
		}
		return func(vals []float64) (float64, error) { return vals[idx], nil }, nil
	case k == KindNeg:
		x, err := e.args[0].Compile(slots)
		if err != nil {
			return nil, err
		}
		return func(vals []float64) (float64, error) {
			v, err := x(vals)
			return -v, err
		}, nil
	case k == KindAdd, k == KindMul, k == KindPow:
		a, err := e.args[0].Compile(slots)
		if err != nil {
			return nil, err
		}
		b, err := e.args[1].Compile(slots)
		if err != nil {
			return nil, err
		}
		return func(vals []float64) (float64, error) {
			av, err := a(vals)
			if err != nil {
				return 0, err
			}
			bv, err := b(vals)
			if err != nil {
				return 0, err
			}
			return applyBinary(k, av, bv)
		}, nil
	case k.IsUnaryFunc():
		x, err := e.args[0].Compile(slots)
		if err != nil {
			return nil, err
		}
		return func(vals []float64) (float64, error) {
			v, err := x(vals)
			if err != nil {
				return 0, err
			}
			return applyUnary(k, v)
		}, nil
	default:
		return nil, fmt.Errorf("%w: compile of %s node", ErrUnsupported, k)
	}
}
