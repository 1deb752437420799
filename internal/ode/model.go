// Package ode turns symbolic right-hand sides into numeric ODE systems.
//
// A Model pairs ordered state variables with simplified RHS expressions and
// hands out compiled closures for the RHS and its Jacobian. The symbolic
// Jacobian is derived on first use and cached for the lifetime of the model.
package ode

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/san-kum/symode/internal/dynamo"
	"github.com/san-kum/symode/internal/expr"
	"gonum.org/v1/gonum/mat"
)

// TimeVar is the reserved name of the independent variable.
const TimeVar = "t"

// ErrInvalidModel is returned for structurally invalid variable/RHS lists.
var ErrInvalidModel = errors.New("ode: invalid model")

// Event is carried on the model for callers that want it; solvers ignore it.
type Event struct {
	Name string
	Expr *expr.Expr
}

type Option func(*Model)

// WithParams attaches parameter values to the model. They are informational:
// callers substitute parameters into the RHS before calling New.
func WithParams(p map[string]float64) Option {
	return func(m *Model) {
		m.params = make(map[string]float64, len(p))
		for k, v := range p {
			m.params[k] = v
		}
	}
}

func WithEvents(events ...Event) Option {
	return func(m *Model) {
		m.events = append([]Event(nil), events...)
	}
}

// Model is an ODE system dy/dt = f(t, y) built from expressions. It is safe
// for concurrent use.
type Model struct {
	names  []string
	rhs    []*expr.Expr
	slots  map[string]int
	fns    []expr.Compiled
	params map[string]float64
	events []Event

	differentiate func(e *expr.Expr, name string) (*expr.Expr, error)

	jacOnce sync.Once
	jac     [][]*expr.Expr
	jacErr  error
}

// New builds a model from state variables and their right-hand sides. Each
// RHS is simplified to a fixed point. Every variable referenced by an RHS must
// be a state variable or t.
func New(vars, rhs []*expr.Expr, opts ...Option) (*Model, error) {
	if len(vars) != len(rhs) {
		return nil, fmt.Errorf("%w: %d variables, %d right-hand sides", dynamo.ErrDimensionMismatch, len(vars), len(rhs))
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("%w: no equations", ErrInvalidModel)
	}

	m := &Model{
		names:         make([]string, len(vars)),
		rhs:           make([]*expr.Expr, len(rhs)),
		slots:         map[string]int{TimeVar: 0},
		differentiate: (*expr.Expr).Diff,
	}
	for i, v := range vars {
		if v.Kind() != expr.KindVar {
			return nil, fmt.Errorf("%w: entry %d is %s, not a variable", ErrInvalidModel, i, v.Kind())
		}
		name := v.Name()
		if name == TimeVar {
			return nil, fmt.Errorf("%w: %q is reserved for time", ErrInvalidModel, TimeVar)
		}
		if _, dup := m.slots[name]; dup {
			return nil, fmt.Errorf("%w: duplicate variable %q", ErrInvalidModel, name)
		}
		m.names[i] = name
		m.slots[name] = i + 1
	}

	m.fns = make([]expr.Compiled, len(rhs))
	for i, f := range rhs {
		m.rhs[i] = expr.SimplifyFixed(f)
		fn, err := m.rhs[i].Compile(m.slots)
		if err != nil {
			if errors.Is(err, expr.ErrUnboundVariable) {
				return nil, fmt.Errorf("%w: d%s/dt references unknown variable: %v", ErrInvalidModel, m.names[i], err)
			}
			return nil, fmt.Errorf("d%s/dt: %w", m.names[i], err)
		}
		m.fns[i] = fn
	}

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Model) Dim() int { return len(m.names) }

// Vars returns the state variable names in order.
func (m *Model) Vars() []string { return append([]string(nil), m.names...) }

// RHS returns the simplified right-hand sides in state order.
func (m *Model) RHS() []*expr.Expr { return append([]*expr.Expr(nil), m.rhs...) }

func (m *Model) Params() map[string]float64 {
	out := make(map[string]float64, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}
	return out
}

func (m *Model) Events() []Event { return append([]Event(nil), m.events...) }

// Jacobian returns J[i][j] = d f_i / d y_j, simplified. The derivation runs at
// most once per model; later calls return copies of the cached rows.
func (m *Model) Jacobian() ([][]*expr.Expr, error) {
	m.jacOnce.Do(func() {
		m.jac, m.jacErr = m.deriveJacobian()
	})
	if m.jacErr != nil {
		return nil, m.jacErr
	}
	out := make([][]*expr.Expr, len(m.jac))
	for i, row := range m.jac {
		out[i] = append([]*expr.Expr(nil), row...)
	}
	return out, nil
}

func (m *Model) deriveJacobian() ([][]*expr.Expr, error) {
	n := len(m.names)
	jac := make([][]*expr.Expr, n)
	for i, f := range m.rhs {
		jac[i] = make([]*expr.Expr, n)
		for j, name := range m.names {
			d, err := m.differentiate(f, name)
			if err != nil {
				return nil, fmt.Errorf("jacobian d(d%s/dt)/d%s: %w", m.names[i], name, err)
			}
			jac[i][j] = expr.SimplifyFixed(d)
		}
	}
	return jac, nil
}

func (m *Model) env(t float64, y dynamo.State) ([]float64, error) {
	if len(y) != len(m.names) {
		return nil, fmt.Errorf("%w: got %d values for %d variables", dynamo.ErrDimensionMismatch, len(y), len(m.names))
	}
	vals := make([]float64, len(y)+1)
	vals[0] = t
	copy(vals[1:], y)
	return vals, nil
}

// RHSFunc returns a closure evaluating f(t, y) into a fresh vector.
func (m *Model) RHSFunc() dynamo.Func {
	return func(t float64, y dynamo.State) (dynamo.State, error) {
		vals, err := m.env(t, y)
		if err != nil {
			return nil, err
		}
		out := make(dynamo.State, len(m.fns))
		for i, fn := range m.fns {
			v, err := fn(vals)
			if err != nil {
				return nil, fmt.Errorf("d%s/dt: %w", m.names[i], err)
			}
			out[i] = v
		}
		return out, nil
	}
}

// JacobianFunc returns a closure evaluating the Jacobian at (t, y) as a dense
// N×N matrix. It triggers derivation of the symbolic Jacobian if needed.
func (m *Model) JacobianFunc() (dynamo.JacobianFunc, error) {
	jac, err := m.Jacobian()
	if err != nil {
		return nil, err
	}
	n := len(m.names)
	fns := make([]expr.Compiled, 0, n*n)
	for _, row := range jac {
		for _, e := range row {
			fn, err := e.Compile(m.slots)
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
		}
	}
	return func(t float64, y dynamo.State) (*mat.Dense, error) {
		vals, err := m.env(t, y)
		if err != nil {
			return nil, err
		}
		data := make([]float64, n*n)
		for k, fn := range fns {
			v, err := fn(vals)
			if err != nil {
				return nil, fmt.Errorf("jacobian (%d,%d): %w", k/n, k%n, err)
			}
			data[k] = v
		}
		return mat.NewDense(n, n, data), nil
	}, nil
}

func (m *Model) String() string {
	var sb strings.Builder
	for i, name := range m.names {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s' = %s", name, m.rhs[i])
	}
	return sb.String()
}
