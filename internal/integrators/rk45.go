package integrators

import (
	"math"

	"github.com/san-kum/symode/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	// propagated fifth-order weights
	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	// embedded fourth-order weights, e7 on f(t+h, propagated)
	e1 = 5179.0 / 57600.0
	e3 = 7571.0 / 16695.0
	e4 = 393.0 / 640.0
	e5 = -92097.0 / 339200.0
	e6 = 187.0 / 2100.0
	e7 = 1.0 / 40.0
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 2.0,
	}
}

// Step takes one Dormand-Prince step of size h from (t, y). It returns the
// propagated solution and the error estimate embedded - propagated. Seven
// RHS evaluations are made.
func (r *RK45) Step(f dynamo.Func, t float64, y dynamo.State, h float64) (dynamo.State, dynamo.State, error) {
	n := len(y)
	stage := make(dynamo.State, n)

	k1, err := f(t, y)
	if err != nil {
		return nil, nil, err
	}

	floats.AddScaledTo(stage, y, h*b21, k1)
	k2, err := f(t+a2*h, stage)
	if err != nil {
		return nil, nil, err
	}

	combine(stage, y, h, []float64{b31, b32}, k1, k2)
	k3, err := f(t+a3*h, stage)
	if err != nil {
		return nil, nil, err
	}

	combine(stage, y, h, []float64{b41, b42, b43}, k1, k2, k3)
	k4, err := f(t+a4*h, stage)
	if err != nil {
		return nil, nil, err
	}

	combine(stage, y, h, []float64{b51, b52, b53, b54}, k1, k2, k3, k4)
	k5, err := f(t+a5*h, stage)
	if err != nil {
		return nil, nil, err
	}

	combine(stage, y, h, []float64{b61, b62, b63, b64, b65}, k1, k2, k3, k4, k5)
	k6, err := f(t+h, stage)
	if err != nil {
		return nil, nil, err
	}

	yNew := make(dynamo.State, n)
	combine(yNew, y, h, []float64{c1, c3, c4, c5, c6}, k1, k3, k4, k5, k6)

	k7, err := f(t+h, yNew)
	if err != nil {
		return nil, nil, err
	}

	embedded := make(dynamo.State, n)
	combine(embedded, y, h, []float64{e1, e3, e4, e5, e6, e7}, k1, k3, k4, k5, k6, k7)

	floats.Sub(embedded, yNew)
	return yNew, embedded, nil
}

// combine sets dst = y + h * sum(w[i] * k[i]).
func combine(dst, y dynamo.State, h float64, w []float64, k ...dynamo.State) {
	copy(dst, y)
	for i, ki := range k {
		floats.AddScaled(dst, h*w[i], ki)
	}
}

// grow is the step multiplier after an accepted step.
func (r *RK45) grow(errNorm float64) float64 {
	if errNorm == 0 {
		return r.maxScale
	}
	return math.Min(r.maxScale, math.Max(r.minScale, r.safety*math.Pow(errNorm, -0.2)))
}

// shrink is the step multiplier after a rejected step.
func (r *RK45) shrink(errNorm float64) float64 {
	return math.Max(r.minScale, r.safety*math.Pow(errNorm, -0.25))
}

// errNorm is the RMS of err_i / (atol + rtol*max(|y_i|, |yNew_i|)).
// Components with a zero error estimate contribute nothing, even when
// their tolerance is zero.
func errNorm(y, yNew, est dynamo.State, rtol, atol float64) float64 {
	sum := 0.0
	for i, e := range est {
		if e == 0 {
			continue
		}
		tol := atol + rtol*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
		q := e / tol
		sum += q * q
	}
	return math.Sqrt(sum / float64(len(est)))
}
