package dynamo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateClone(t *testing.T) {
	s := State{1, 2, 3}
	c := s.Clone()
	c[0] = 99
	assert.Equal(t, 1.0, s[0])
}

func TestStateIsValid(t *testing.T) {
	tests := []struct {
		name  string
		s     State
		valid bool
	}{
		{"finite", State{1, -2, 0}, true},
		{"empty", State{}, true},
		{"nan", State{1, math.NaN()}, false},
		{"inf", State{math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.s.IsValid())
		})
	}
}

func TestStateNorm(t *testing.T) {
	assert.InDelta(t, 5.0, State{3, 4}.Norm(), 1e-12)
	assert.Equal(t, 0.0, State{}.Norm())
}

func TestFuncSystemJacobian(t *testing.T) {
	sys := FuncSystem{N: 1, F: func(t float64, y State) (State, error) { return State{-y[0]}, nil }}
	_, err := sys.JacobianFunc()
	assert.ErrorIs(t, err, ErrNoJacobian)
	assert.Equal(t, 1, sys.Dim())
}

func TestSimulationError(t *testing.T) {
	inner := errors.New("boom")
	err := error(&SimulationError{Step: 3, Time: 0.5, Wrapped: inner})

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "step 3 (t=0.5): boom", err.Error())

	var se *SimulationError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Step)
}
