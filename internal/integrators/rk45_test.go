package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/symode/internal/dynamo"
)

func harmonic(t float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{y[1], -y[0]}, nil
}

func energy(y dynamo.State) float64 {
	return 0.5 * (y[0]*y[0] + y[1]*y[1])
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	y, est, err := integrator.Step(harmonic, 0, dynamo.State{1, 0}, 0.1)
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}

	if math.Abs(y[0]-math.Cos(0.1)) > 1e-7 || math.Abs(y[1]+math.Sin(0.1)) > 1e-7 {
		t.Errorf("expected [%.10f, %.10f], got [%.10f, %.10f]", math.Cos(0.1), -math.Sin(0.1), y[0], y[1])
	}
	if est.Norm() > 1e-6 {
		t.Errorf("error estimate too large: %e", est.Norm())
	}
}

func TestRK45_StepCountsEvaluations(t *testing.T) {
	calls := 0
	f := func(t float64, y dynamo.State) (dynamo.State, error) {
		calls++
		return harmonic(t, y)
	}
	if _, _, err := NewRK45().Step(f, 0, dynamo.State{1, 0}, 0.01); err != nil {
		t.Fatal(err)
	}
	if calls != 7 {
		t.Errorf("expected 7 RHS evaluations, got %d", calls)
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	y := dynamo.State{1.0, 0.0}
	initialEnergy := energy(y)
	dt := 0.01

	for i := 0; i < 10000; i++ {
		var err error
		y, _, err = integrator.Step(harmonic, float64(i)*dt, y, dt)
		if err != nil {
			t.Fatal(err)
		}
	}

	drift := math.Abs(energy(y)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_ZeroErrorForConstantRHS(t *testing.T) {
	zero := func(t float64, y dynamo.State) (dynamo.State, error) { return dynamo.State{0}, nil }
	y, est, err := NewRK45().Step(zero, 0, dynamo.State{3}, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if y[0] != 3 {
		t.Errorf("expected state unchanged, got %v", y[0])
	}
	if en := errNorm(dynamo.State{3}, y, est, 1e-6, 1e-9); en != 0 {
		t.Errorf("expected zero error norm, got %e", en)
	}
}

func TestRK45_StepFactors(t *testing.T) {
	r := NewRK45()
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"grow on zero error", r.grow(0), 2},
		{"grow capped", r.grow(1e-10), 2},
		{"grow at limit", r.grow(1), 0.9},
		{"shrink moderate", r.shrink(16), 0.45},
		{"shrink floor", r.shrink(1e8), 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-12 {
				t.Errorf("expected %g, got %g", tt.want, tt.got)
			}
		})
	}
}

func TestErrNorm(t *testing.T) {
	y := dynamo.State{1, -2}
	yNew := dynamo.State{2, -1}
	est := dynamo.State{0.3, 0.2}
	// tol = 0.1 + 0.1*max(|y|,|ynew|) = 0.3 for both components
	got := errNorm(y, yNew, est, 0.1, 0.1)
	want := math.Sqrt((1 + (0.2/0.3)*(0.2/0.3)) / 2)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %g, got %g", want, got)
	}
}

func TestErrNormZeroTolerance(t *testing.T) {
	zero := dynamo.State{0, 0}
	if got := errNorm(zero, zero, zero, 1e-6, 0); got != 0 {
		t.Errorf("expected 0 for exact step at zero state, got %g", got)
	}
	got := errNorm(zero, zero, dynamo.State{0, 1e-12}, 1e-6, 0)
	if !math.IsInf(got, 1) {
		t.Errorf("expected +Inf for nonzero error with zero tolerance, got %g", got)
	}
}

func TestRK45_VsRK4_Accuracy(t *testing.T) {
	rk4 := NewRK4()
	rk45 := NewRK45()
	y4 := dynamo.State{1.0, 0.0}
	y45 := y4.Clone()
	dt := 0.1

	for i := 0; i < 100; i++ {
		var err error
		if y4, err = rk4.Step(harmonic, float64(i)*dt, y4, dt); err != nil {
			t.Fatal(err)
		}
		if y45, _, err = rk45.Step(harmonic, float64(i)*dt, y45, dt); err != nil {
			t.Fatal(err)
		}
	}

	t.Logf("RK4 final: [%.6f, %.6f]", y4[0], y4[1])
	t.Logf("RK45 final: [%.6f, %.6f]", y45[0], y45[1])

	if math.Abs(energy(y45)-0.5) > math.Abs(energy(y4)-0.5) {
		t.Log("Warning: RK45 not more accurate than RK4 for this case")
	}
}
