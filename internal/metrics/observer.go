package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/symode/internal/dynamo"
	"github.com/san-kum/symode/internal/expr"
	"github.com/san-kum/symode/internal/integrators"
	"github.com/san-kum/symode/internal/ode"
)

// Observer scores a trajectory one accepted sample at a time.
type Observer interface {
	Name() string
	Observe(t float64, y dynamo.State) error
	Value() float64
	Reset()
}

// Evaluate feeds every accepted sample of res to each observer and returns
// their values by name. Observers are reset first.
func Evaluate(res *integrators.Result, obs ...Observer) (map[string]float64, error) {
	out := make(map[string]float64, len(obs))
	for _, o := range obs {
		o.Reset()
		for i, y := range res.States {
			if err := o.Observe(res.Times[i], y); err != nil {
				return nil, fmt.Errorf("%s at t=%g: %w", o.Name(), res.Times[i], err)
			}
		}
		out[o.Name()] = o.Value()
	}
	return out, nil
}

// Drift tracks max |I(t, y) - I(t0, y0)| for an expression that should stay
// constant along solutions, such as an energy.
type Drift struct {
	name    string
	fn      expr.Compiled
	buf     []float64
	initial float64
	maxDev  float64
	samples int
}

// NewDrift compiles invariant over t and the named state variables.
func NewDrift(name string, invariant *expr.Expr, vars []string) (*Drift, error) {
	slots := map[string]int{ode.TimeVar: 0}
	for i, v := range vars {
		slots[v] = i + 1
	}
	fn, err := expr.SimplifyFixed(invariant).Compile(slots)
	if err != nil {
		return nil, err
	}
	return &Drift{name: name, fn: fn, buf: make([]float64, len(vars)+1)}, nil
}

func (d *Drift) Name() string { return d.name }

func (d *Drift) Observe(t float64, y dynamo.State) error {
	d.buf[0] = t
	copy(d.buf[1:], y)
	v, err := d.fn(d.buf)
	if err != nil {
		return err
	}
	if d.samples == 0 {
		d.initial = v
	}
	d.maxDev = math.Max(d.maxDev, math.Abs(v-d.initial))
	d.samples++
	return nil
}

func (d *Drift) Value() float64 { return d.maxDev }

func (d *Drift) Reset() {
	d.maxDev = 0
	d.samples = 0
}

// Bounded is the fraction of samples whose components all stay within
// threshold in magnitude.
type Bounded struct {
	threshold  float64
	violations int
	samples    int
}

func NewBounded(threshold float64) *Bounded {
	return &Bounded{threshold: threshold}
}

func (b *Bounded) Name() string { return "bounded" }

func (b *Bounded) Observe(_ float64, y dynamo.State) error {
	b.samples++
	for _, val := range y {
		if math.IsNaN(val) || math.Abs(val) > b.threshold {
			b.violations++
			break
		}
	}
	return nil
}

func (b *Bounded) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounded) Reset() {
	b.violations = 0
	b.samples = 0
}
