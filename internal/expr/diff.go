package expr

import (
	"fmt"
	"math"
)

// Diff returns the partial derivative of e with respect to the variable
// name. The result is not simplified.
func (e *Expr) Diff(name string) (*Expr, error) {
	switch e.Kind() {
	case KindConst:
		return Const(0), nil
	case KindVar:
		if e.name == name {
			return Const(1), nil
		}
		return Const(0), nil
	case KindInvalid:
		return nil, fmt.Errorf("%w: diff of invalid node", ErrUnsupported)
	}

	u := e.args[0]
	du, err := u.Diff(name)
	if err != nil {
		return nil, err
	}

	switch e.kind {
	case KindAdd:
		dv, err := e.args[1].Diff(name)
		if err != nil {
			return nil, err
		}
		return Add(du, dv), nil
	case KindMul:
		v := e.args[1]
		dv, err := v.Diff(name)
		if err != nil {
			return nil, err
		}
		return Add(Mul(du, v), Mul(u, dv)), nil
	case KindNeg:
		return Neg(du), nil
	case KindSin:
		return Mul(Cos(u), du), nil
	case KindCos:
		return Neg(Mul(Sin(u), du)), nil
	case KindTan:
		return Mul(Add(Const(1), Pow(Tan(u), Const(2))), du), nil
	case KindExp:
		return Mul(e, du), nil
	case KindLog:
		return Mul(du, Pow(u, Const(-1))), nil
	case KindSqrt:
		return Mul(Mul(Const(0.5), du), Pow(e, Const(-1))), nil
	case KindPow:
		return e.diffPow(du, name)
	}
	return nil, fmt.Errorf("%w: diff of %s node", ErrUnsupported, e.kind)
}

// diffPow differentiates base^p given the derivative of the base.
func (e *Expr) diffPow(dbase *Expr, name string) (*Expr, error) {
	base, p := e.args[0], e.args[1]
	if p.kind == KindConst {
		return Mul(Mul(p, Pow(base, Const(p.value-1))), dbase), nil
	}
	dp, err := p.Diff(name)
	if err != nil {
		return nil, err
	}
	// b^p * (p' ln b + p b'/b)
	return Mul(e, Add(
		Mul(dp, Log(base)),
		Mul(Mul(p, dbase), Pow(base, Const(-1))),
	)), nil
}

// DerivativeCheck is the outcome of comparing a symbolic derivative with a
// central finite difference.
type DerivativeCheck struct {
	Symbolic  float64
	Numerical float64
	AbsError  float64
	Passed    bool
}

// FiniteDifferenceStep is the half-width used by CheckDerivative.
const FiniteDifferenceStep = 1e-5

// CheckDerivative differentiates e with respect to name, evaluates the result
// at point and compares it with a central finite difference of e. The error
// is relative when the numerical derivative exceeds 1e-7 in magnitude and
// absolute otherwise.
func CheckDerivative(e *Expr, name string, point map[string]float64, tol float64) (DerivativeCheck, error) {
	var res DerivativeCheck

	d, err := e.Diff(name)
	if err != nil {
		return res, err
	}
	res.Symbolic, err = SimplifyFixed(d).Eval(point)
	if err != nil {
		return res, fmt.Errorf("symbolic derivative: %w", err)
	}

	shifted := make(map[string]float64, len(point)+1)
	for k, v := range point {
		shifted[k] = v
	}
	x0, ok := point[name]
	if !ok {
		return res, fmt.Errorf("%w: %q", ErrUnboundVariable, name)
	}

	shifted[name] = x0 + FiniteDifferenceStep
	plus, err := e.Eval(shifted)
	if err != nil {
		return res, fmt.Errorf("finite difference: %w", err)
	}
	shifted[name] = x0 - FiniteDifferenceStep
	minus, err := e.Eval(shifted)
	if err != nil {
		return res, fmt.Errorf("finite difference: %w", err)
	}
	res.Numerical = (plus - minus) / (2 * FiniteDifferenceStep)

	res.AbsError = math.Abs(res.Symbolic - res.Numerical)
	if math.Abs(res.Numerical) > 1e-7 {
		res.Passed = res.AbsError/math.Abs(res.Numerical) < tol
	} else {
		res.Passed = res.AbsError < tol
	}
	return res, nil
}
