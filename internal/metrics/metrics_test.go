package metrics

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/san-kum/symode/internal/dynamo"
	"github.com/san-kum/symode/internal/expr"
	"github.com/san-kum/symode/internal/integrators"
	"github.com/san-kum/symode/internal/ode"
)

func oscillator(t *testing.T) *ode.Model {
	t.Helper()
	x, v := expr.Var("x"), expr.Var("v")
	m, err := ode.New([]*expr.Expr{x, v}, []*expr.Expr{v, expr.Neg(x)})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRecorderObserve(t *testing.T) {
	res := &integrators.Result{
		Method: integrators.MethodImplicitEuler,
		Times:  []float64{0, 1},
		States: []dynamo.State{{1}, {0.5}},
		Status: integrators.StatusSuccess,
		Stats: integrators.Stats{
			Accepted:      1,
			RHSEvals:      3,
			JacobianEvals: 2,
			NewtonIters:   2,
		},
	}

	r := NewRecorder()
	r.Observe(res, 10*time.Millisecond)
	r.Observe(res, 10*time.Millisecond)

	if got := testutil.ToFloat64(r.Solves.WithLabelValues("implicit_euler", "success")); got != 2 {
		t.Errorf("expected 2 solves, got %v", got)
	}
	if got := testutil.ToFloat64(r.RHSEvals.WithLabelValues("implicit_euler")); got != 6 {
		t.Errorf("expected 6 rhs evals, got %v", got)
	}
	if got := testutil.ToFloat64(r.NewtonIters.WithLabelValues("implicit_euler")); got != 4 {
		t.Errorf("expected 4 newton iterations, got %v", got)
	}
	if got := testutil.ToFloat64(r.FinalTime.WithLabelValues("implicit_euler")); got != 1 {
		t.Errorf("expected final time 1, got %v", got)
	}
	if n := testutil.CollectAndCount(r.Duration); n != 1 {
		t.Errorf("expected one duration series, got %d", n)
	}
}

func TestRecorderMatchesSolve(t *testing.T) {
	res, err := integrators.Solve(context.Background(), oscillator(t), [2]float64{0, 1}, []float64{1, 0},
		integrators.MethodRK45, integrators.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	r := NewRecorder()
	r.Observe(res, time.Millisecond)

	if got := testutil.ToFloat64(r.Accepted.WithLabelValues("rk45")); got != float64(res.Stats.Accepted) {
		t.Errorf("accepted %v, stats say %d", got, res.Stats.Accepted)
	}
	if got := testutil.ToFloat64(r.Rejected.WithLabelValues("rk45")); got != float64(res.Stats.Rejected) {
		t.Errorf("rejected %v, stats say %d", got, res.Stats.Rejected)
	}
}

func TestRecorderWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(&integrators.Result{Method: integrators.MethodEuler, Status: integrators.StatusMaxSteps}, 0)

	path := filepath.Join(t.TempDir(), "symode.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `symode_solves_total{method="euler",status="failed: max steps exceeded"} 1`) {
		t.Errorf("textfile missing solve counter:\n%s", data)
	}
}

func TestDriftEnergy(t *testing.T) {
	m := oscillator(t)
	x, v := expr.Var("x"), expr.Var("v")
	energy := expr.Mul(expr.Const(0.5), expr.Add(expr.Pow(x, expr.Const(2)), expr.Pow(v, expr.Const(2))))

	drift, err := NewDrift("energy_drift", energy, m.Vars())
	if err != nil {
		t.Fatal(err)
	}

	opts := integrators.DefaultOptions()
	precise, err := integrators.Solve(context.Background(), m, [2]float64{0, 10}, []float64{1, 0}, integrators.MethodRK45, opts)
	if err != nil {
		t.Fatal(err)
	}
	opts.H0 = 0.05
	opts.HMax = 0.05
	crude, err := integrators.Solve(context.Background(), m, [2]float64{0, 10}, []float64{1, 0}, integrators.MethodEuler, opts)
	if err != nil {
		t.Fatal(err)
	}

	good, err := Evaluate(precise, drift)
	if err != nil {
		t.Fatal(err)
	}
	bad, err := Evaluate(crude, drift)
	if err != nil {
		t.Fatal(err)
	}

	if good["energy_drift"] > 1e-4 {
		t.Errorf("rk45 energy drift too large: %v", good["energy_drift"])
	}
	// explicit Euler gains energy on a centre
	if bad["energy_drift"] < 0.1 {
		t.Errorf("expected euler drift to be visible, got %v", bad["energy_drift"])
	}
}

func TestDriftUnknownVariable(t *testing.T) {
	if _, err := NewDrift("d", expr.Var("q"), []string{"x"}); err == nil {
		t.Error("expected unbound variable error")
	}
}

func TestDriftEvaluationError(t *testing.T) {
	d, err := NewDrift("log", expr.Log(expr.Var("x")), []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	res := &integrators.Result{Times: []float64{0, 1}, States: []dynamo.State{{1}, {-1}}}
	if _, err := Evaluate(res, d); err == nil {
		t.Error("expected domain error")
	}
}

func TestBounded(t *testing.T) {
	b := NewBounded(2)
	res := &integrators.Result{
		Times:  []float64{0, 1, 2, 3},
		States: []dynamo.State{{1, 0}, {3, 0}, {0, math.NaN()}, {-1, 1}},
	}
	vals, err := Evaluate(res, b)
	if err != nil {
		t.Fatal(err)
	}
	if vals["bounded"] != 0.5 {
		t.Errorf("expected 0.5, got %v", vals["bounded"])
	}

	b.Reset()
	if b.Value() != 1.0 {
		t.Errorf("expected 1.0 after reset, got %v", b.Value())
	}
}
