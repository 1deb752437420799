// Package dynamo provides the core numeric types shared by the solvers.
//
// The package defines the interfaces and types used for numerical
// integration of ordinary differential equations dy/dt = f(t, y):
//
//   - [State]: vector representing system state
//   - [System]: an ODE right-hand side of fixed dimension
//   - [Differentiable]: a [System] that can also supply its Jacobian
//   - [Options]: step-size, tolerance and budget settings for a solve
//   - [Result]: accepted trajectory, status and solver statistics
//
// # Example
//
//	model, _ := ode.New(vars, rhs)
//	opts := dynamo.DefaultOptions()
//	res, err := integrators.Solve(ctx, model, [2]float64{0, 1}, y0, integrators.RK45, opts)
//
// # Errors
//
// Construction problems (bad options, unknown method, missing Jacobian) are
// returned as errors before any step is taken. Failures that end a solve
// early but leave a usable partial trajectory are reported through
// [Result.Status] and [Result.Err] instead.
package dynamo
