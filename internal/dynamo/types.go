package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, 2)
}

// Func evaluates dy/dt at (t, y). The returned slice is owned by the caller.
type Func func(t float64, y State) (State, error)

// JacobianFunc evaluates the N×N matrix of partial derivatives df_i/dy_j.
type JacobianFunc func(t float64, y State) (*mat.Dense, error)

// System is an ODE right-hand side of fixed dimension.
type System interface {
	Dim() int
	RHSFunc() Func
}

// Differentiable is a System that can also supply its Jacobian.
type Differentiable interface {
	System
	JacobianFunc() (JacobianFunc, error)
}

// FuncSystem adapts plain functions to Differentiable. J may be nil, in which
// case JacobianFunc reports ErrNoJacobian.
type FuncSystem struct {
	N int
	F Func
	J JacobianFunc
}

func (s FuncSystem) Dim() int      { return s.N }
func (s FuncSystem) RHSFunc() Func { return s.F }

func (s FuncSystem) JacobianFunc() (JacobianFunc, error) {
	if s.J == nil {
		return nil, ErrNoJacobian
	}
	return s.J, nil
}
