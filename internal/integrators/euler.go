package integrators

import (
	"github.com/san-kum/symode/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Euler is the forward Euler method.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f dynamo.Func, t float64, y dynamo.State, h float64) (dynamo.State, error) {
	dy, err := f(t, y)
	if err != nil {
		return nil, err
	}
	result := make(dynamo.State, len(y))
	floats.AddScaledTo(result, y, h, dy)
	return result, nil
}
