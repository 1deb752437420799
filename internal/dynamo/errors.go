package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for solver operations.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidOptions indicates solver options that cannot be honoured.
	ErrInvalidOptions = errors.New("dynamo: invalid solver options")

	// ErrUnknownMethod indicates an integration method name that is not registered.
	ErrUnknownMethod = errors.New("dynamo: unknown integration method")

	// ErrNoJacobian indicates an implicit method was asked to solve a system
	// without a Jacobian.
	ErrNoJacobian = errors.New("dynamo: system does not provide a Jacobian")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrNewtonDiverged indicates Newton iteration hit its budget without converging.
	ErrNewtonDiverged = errors.New("dynamo: Newton iteration did not converge")

	// ErrSingularMatrix indicates a pivot below the singularity threshold.
	ErrSingularMatrix = errors.New("dynamo: singular matrix")

	// ErrMaxSteps indicates the step budget ran out before the end time.
	ErrMaxSteps = errors.New("dynamo: maximum number of steps exceeded")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
