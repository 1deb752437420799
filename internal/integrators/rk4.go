package integrators

import (
	"github.com/san-kum/symode/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// RK4 is the classic fixed-step fourth-order Runge-Kutta method.
type RK4 struct {
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) != n {
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(f dynamo.Func, t float64, y dynamo.State, h float64) (dynamo.State, error) {
	r.ensureScratch(len(y))

	k1, err := f(t, y)
	if err != nil {
		return nil, err
	}

	floats.AddScaledTo(r.scratch, y, 0.5*h, k1)
	k2, err := f(t+0.5*h, r.scratch)
	if err != nil {
		return nil, err
	}

	floats.AddScaledTo(r.scratch, y, 0.5*h, k2)
	k3, err := f(t+0.5*h, r.scratch)
	if err != nil {
		return nil, err
	}

	floats.AddScaledTo(r.scratch, y, h, k3)
	k4, err := f(t+h, r.scratch)
	if err != nil {
		return nil, err
	}

	result := make(dynamo.State, len(y))
	combine(result, y, h/6, []float64{1, 2, 2, 1}, k1, k2, k3, k4)
	return result, nil
}
