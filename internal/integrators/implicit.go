package integrators

import (
	"fmt"

	"github.com/san-kum/symode/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ImplicitEuler is backward Euler with a Newton-Raphson solve of
// y1 = y + h f(t+h, y1) at every step.
type ImplicitEuler struct {
	tol     float64
	maxIter int
}

func NewImplicitEuler(tol float64, maxIter int) *ImplicitEuler {
	return &ImplicitEuler{tol: tol, maxIter: maxIter}
}

// Step advances (t, y) by h. It returns the new state and the number of
// Newton iterations performed. ErrNewtonDiverged and ErrSingularMatrix are
// returned wrapped; any other error comes from evaluating f or jac.
func (ie *ImplicitEuler) Step(f dynamo.Func, jac dynamo.JacobianFunc, t float64, y dynamo.State, h float64) (dynamo.State, int, error) {
	n := len(y)
	tNext := t + h
	guess := y.Clone()
	g := make([]float64, n)
	a := mat.NewDense(n, n, nil)

	for iter := 0; iter < ie.maxIter; iter++ {
		fy, err := f(tNext, guess)
		if err != nil {
			return nil, iter, err
		}
		// G = guess - y - h f(tNext, guess)
		floats.SubTo(g, guess, y)
		floats.AddScaled(g, -h, fy)
		if floats.Norm(g, 1) < ie.tol {
			return guess, iter, nil
		}

		j, err := jac(tNext, guess)
		if err != nil {
			return nil, iter, err
		}
		a.Scale(-h, j)
		for i := 0; i < n; i++ {
			a.Set(i, i, a.At(i, i)+1)
		}

		delta, err := solveLinear(a, g)
		if err != nil {
			return nil, iter + 1, fmt.Errorf("newton iteration %d at t=%g: %w", iter, tNext, err)
		}
		floats.Sub(guess, delta)
	}
	return nil, ie.maxIter, fmt.Errorf("%w after %d iterations at t=%g", dynamo.ErrNewtonDiverged, ie.maxIter, tNext)
}
