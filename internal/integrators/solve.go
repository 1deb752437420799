package integrators

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/symode/internal/dynamo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type Method string

const (
	MethodRK45          Method = "rk45"
	MethodImplicitEuler Method = "implicit_euler"
	MethodRK4           Method = "rk4"
	MethodEuler         Method = "euler"
)

// Methods lists every supported method in display order.
func Methods() []Method {
	return []Method{MethodRK45, MethodImplicitEuler, MethodRK4, MethodEuler}
}

func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", dynamo.ErrUnknownMethod, s)
}

// Adaptive reports whether the method controls its own step size.
func (m Method) Adaptive() bool { return m == MethodRK45 }

type Status string

const (
	StatusSuccess        Status = "success"
	StatusStepTooSmall   Status = "failed: step too small"
	StatusNewtonDiverged Status = "failed: Newton did not converge"
	StatusSingular       Status = "failed: singular matrix"
	StatusMaxSteps       Status = "failed: max steps exceeded"
	StatusCanceled       Status = "failed: canceled"
)

func (s Status) OK() bool { return s == StatusSuccess }

// Stats counts the work done by one solve.
type Stats struct {
	Accepted      int `json:"accepted"`
	Rejected      int `json:"rejected"`
	RHSEvals      int `json:"rhs_evals"`
	JacobianEvals int `json:"jacobian_evals"`
	NewtonIters   int `json:"newton_iters"`
}

// Result holds the accepted trajectory of a solve. States[0] is the initial
// condition and Times[i] is the time of States[i]. When Status is not
// StatusSuccess the trajectory ends at the last accepted step and Err holds
// the matching sentinel error.
type Result struct {
	Method Method
	Times  []float64
	States []dynamo.State
	Status Status
	Err    error
	Stats  Stats
}

func (r *Result) Len() int { return len(r.Times) }

// Final returns the last accepted time and state.
func (r *Result) Final() (float64, dynamo.State) {
	if len(r.Times) == 0 {
		return 0, nil
	}
	return r.Times[len(r.Times)-1], r.States[len(r.States)-1]
}

// Component returns the trajectory of state component i.
func (r *Result) Component(i int) []float64 {
	out := make([]float64, len(r.States))
	for k, s := range r.States {
		if i < len(s) {
			out[k] = s[i]
		}
	}
	return out
}

type Options struct {
	Rtol          float64
	Atol          float64
	H0            float64
	HMin          float64
	HMax          float64
	MaxSteps      int
	NewtonTol     float64
	NewtonMaxIter int

	// Logger receives step rejections and terminal failures. Nil disables logging.
	Logger *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Rtol:          1e-6,
		Atol:          1e-9,
		H0:            1e-3,
		HMin:          1e-10,
		HMax:          0.1,
		MaxSteps:      100000,
		NewtonTol:     1e-8,
		NewtonMaxIter: 20,
	}
}

func (o Options) Validate() error {
	switch {
	case !(o.H0 > 0):
		return fmt.Errorf("%w: h0 must be positive, got %g", dynamo.ErrInvalidOptions, o.H0)
	case !(o.HMin > 0):
		return fmt.Errorf("%w: h_min must be positive, got %g", dynamo.ErrInvalidOptions, o.HMin)
	case o.HMin > o.HMax:
		return fmt.Errorf("%w: h_min %g exceeds h_max %g", dynamo.ErrInvalidOptions, o.HMin, o.HMax)
	case o.H0 < o.HMin || o.H0 > o.HMax:
		return fmt.Errorf("%w: h0 %g outside [%g, %g]", dynamo.ErrInvalidOptions, o.H0, o.HMin, o.HMax)
	case o.Rtol < 0 || o.Atol < 0 || o.Rtol+o.Atol == 0:
		return fmt.Errorf("%w: tolerances must be non-negative and not both zero", dynamo.ErrInvalidOptions)
	case o.MaxSteps <= 0:
		return fmt.Errorf("%w: max_steps must be positive, got %d", dynamo.ErrInvalidOptions, o.MaxSteps)
	case !(o.NewtonTol > 0) || o.NewtonMaxIter <= 0:
		return fmt.Errorf("%w: Newton tolerance and iteration budget must be positive", dynamo.ErrInvalidOptions)
	}
	return nil
}

// Solve integrates sys from span[0] to span[1] starting at y0.
//
// Construction problems (unknown method, invalid options, wrong y0 length,
// missing Jacobian for implicit_euler) are returned before any step. An
// expression evaluation failure aborts the solve and is returned as a
// *dynamo.SimulationError with no result. Numerical failures are reported
// through Result.Status with the partial trajectory. If ctx is canceled the
// partial result is returned together with ctx.Err().
func Solve(ctx context.Context, sys dynamo.System, span [2]float64, y0 []float64, method Method, opts Options) (*Result, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if span[0] > span[1] || math.IsNaN(span[0]) || math.IsNaN(span[1]) {
		return nil, fmt.Errorf("%w: t_span [%g, %g] must be increasing", dynamo.ErrInvalidOptions, span[0], span[1])
	}
	if sys.Dim() < 1 || len(y0) != sys.Dim() {
		return nil, fmt.Errorf("%w: y0 has %d values, system has %d", dynamo.ErrDimensionMismatch, len(y0), sys.Dim())
	}

	r := &run{
		ctx:  ctx,
		opts: opts,
		log:  opts.Logger,
		res:  &Result{Method: method},
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	r.log = r.log.With(zap.String("method", string(method)))
	f := sys.RHSFunc()
	r.f = func(t float64, y dynamo.State) (dynamo.State, error) {
		r.res.Stats.RHSEvals++
		return f(t, y)
	}

	var err error
	switch method {
	case MethodRK45:
		err = r.adaptive(NewRK45(), span, y0)
	case MethodImplicitEuler:
		d, ok := sys.(dynamo.Differentiable)
		if !ok {
			return nil, dynamo.ErrNoJacobian
		}
		jac, jerr := d.JacobianFunc()
		if jerr != nil {
			return nil, fmt.Errorf("implicit_euler: %w", jerr)
		}
		r.jac = func(t float64, y dynamo.State) (*mat.Dense, error) {
			r.res.Stats.JacobianEvals++
			return jac(t, y)
		}
		err = r.implicit(NewImplicitEuler(opts.NewtonTol, opts.NewtonMaxIter), span, y0)
	case MethodRK4:
		err = r.fixed(NewRK4(), span, y0)
	case MethodEuler:
		err = r.fixed(NewEuler(), span, y0)
	}

	if err != nil {
		var se *dynamo.SimulationError
		if errors.As(err, &se) {
			return nil, err
		}
		return r.res, err
	}
	r.log.Debug("solve finished",
		zap.String("status", string(r.res.Status)),
		zap.Int("accepted", r.res.Stats.Accepted),
		zap.Int("rejected", r.res.Stats.Rejected),
		zap.Int("rhs_evals", r.res.Stats.RHSEvals),
	)
	return r.res, nil
}

// run carries the per-solve state shared by the method loops.
type run struct {
	ctx  context.Context
	f    dynamo.Func
	jac  dynamo.JacobianFunc
	opts Options
	log  *zap.Logger
	res  *Result
}

func (r *run) record(t float64, y dynamo.State) {
	r.res.Times = append(r.res.Times, t)
	r.res.States = append(r.res.States, y.Clone())
}

func (r *run) accept(t float64, y dynamo.State) {
	r.res.Stats.Accepted++
	r.record(t, y)
}

func (r *run) finish(status Status, err error, t, h float64) {
	r.res.Status = status
	r.res.Err = err
	if err != nil {
		r.log.Warn("integration stopped",
			zap.String("status", string(status)),
			zap.Float64("t", t),
			zap.Float64("h", h),
		)
	}
}

// checkBudget reports whether the loop must stop before attempting a step.
func (r *run) checkBudget(step int, t, h float64) (bool, error) {
	select {
	case <-r.ctx.Done():
		r.finish(StatusCanceled, r.ctx.Err(), t, h)
		return true, r.ctx.Err()
	default:
	}
	if step >= r.opts.MaxSteps {
		r.finish(StatusMaxSteps, dynamo.ErrMaxSteps, t, h)
		return true, nil
	}
	return false, nil
}

func evalError(step int, t float64, y dynamo.State, err error) error {
	return &dynamo.SimulationError{Step: step, Time: t, State: y.Clone(), Wrapped: err}
}

// clampStep shortens h so t+h does not pass tf and reports whether the step
// lands on tf.
func clampStep(t, tf, h float64) (float64, bool) {
	if t+h >= tf {
		return tf - t, true
	}
	return h, false
}

func (r *run) adaptive(stepper *RK45, span [2]float64, y0 []float64) error {
	t, tf := span[0], span[1]
	y := dynamo.State(y0).Clone()
	h := r.opts.H0
	r.record(t, y)

	for step := 0; ; step++ {
		if t >= tf {
			r.finish(StatusSuccess, nil, t, h)
			return nil
		}
		if stop, err := r.checkBudget(step, t, h); stop {
			return err
		}

		hs, last := clampStep(t, tf, h)
		yNew, est, err := stepper.Step(r.f, t, y, hs)
		if err != nil {
			return evalError(step, t, y, err)
		}

		en := errNorm(y, yNew, est, r.opts.Rtol, r.opts.Atol)
		if math.IsNaN(en) {
			en = math.Inf(1)
		}
		if en <= 1 {
			if last {
				t = tf
			} else {
				t += hs
			}
			y = yNew
			r.accept(t, y)
			h = hs * stepper.grow(en)
		} else {
			r.res.Stats.Rejected++
			r.log.Debug("step rejected",
				zap.Float64("t", t),
				zap.Float64("h", hs),
				zap.Float64("err_norm", en),
			)
			h = hs * stepper.shrink(en)
		}

		h = math.Min(h, r.opts.HMax)
		if t >= tf {
			continue
		}
		if h < r.opts.HMin {
			r.finish(StatusStepTooSmall, dynamo.ErrStepTooSmall, t, h)
			return nil
		}
	}
}

func (r *run) implicit(stepper *ImplicitEuler, span [2]float64, y0 []float64) error {
	t, tf := span[0], span[1]
	y := dynamo.State(y0).Clone()
	h := r.opts.H0
	r.record(t, y)

	for step := 0; ; step++ {
		if t >= tf {
			r.finish(StatusSuccess, nil, t, h)
			return nil
		}
		if stop, err := r.checkBudget(step, t, h); stop {
			return err
		}

		hs, last := clampStep(t, tf, h)
		yNew, iters, err := stepper.Step(r.f, r.jac, t, y, hs)
		r.res.Stats.NewtonIters += iters
		switch {
		case errors.Is(err, dynamo.ErrNewtonDiverged):
			r.finish(StatusNewtonDiverged, err, t, hs)
			return nil
		case errors.Is(err, dynamo.ErrSingularMatrix):
			r.finish(StatusSingular, err, t, hs)
			return nil
		case err != nil:
			return evalError(step, t, y, err)
		}

		if last {
			t = tf
		} else {
			t += hs
		}
		y = yNew
		r.accept(t, y)
	}
}

type explicitStepper interface {
	Step(f dynamo.Func, t float64, y dynamo.State, h float64) (dynamo.State, error)
}

func (r *run) fixed(stepper explicitStepper, span [2]float64, y0 []float64) error {
	t, tf := span[0], span[1]
	y := dynamo.State(y0).Clone()
	h := r.opts.H0
	r.record(t, y)

	for step := 0; ; step++ {
		if t >= tf {
			r.finish(StatusSuccess, nil, t, h)
			return nil
		}
		if stop, err := r.checkBudget(step, t, h); stop {
			return err
		}

		hs, last := clampStep(t, tf, h)
		yNew, err := stepper.Step(r.f, t, y, hs)
		if err != nil {
			return evalError(step, t, y, err)
		}
		if last {
			t = tf
		} else {
			t += hs
		}
		y = yNew
		r.accept(t, y)
	}
}
