package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/symode/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

func TestSolveLinear(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want []float64
	}{
		{"diagonal", []float64{2, 0, 0, 4}, []float64{2, 8}, []float64{1, 2}},
		// zero leading entry forces a row swap
		{"needs pivot", []float64{0, 1, 1, 0}, []float64{3, 5}, []float64{5, 3}},
		{"dense 3x3", []float64{2, 1, -1, -3, -1, 2, -2, 1, 2}, []float64{8, -11, -3}, []float64{2, 3, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(tt.b)
			a := mat.NewDense(n, n, append([]float64(nil), tt.a...))
			x, err := solveLinear(a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i := range tt.want {
				if math.Abs(x[i]-tt.want[i]) > 1e-12 {
					t.Errorf("x[%d]: expected %g, got %g", i, tt.want[i], x[i])
				}
			}
			if !mat.Equal(a, mat.NewDense(n, n, tt.a)) {
				t.Error("input matrix was modified")
			}
		})
	}
}

func TestSolveLinearSingular(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	if _, err := solveLinear(a, []float64{1, 2}); !errors.Is(err, dynamo.ErrSingularMatrix) {
		t.Errorf("expected ErrSingularMatrix, got %v", err)
	}

	tiny := mat.NewDense(1, 1, []float64{1e-15})
	if _, err := solveLinear(tiny, []float64{1}); !errors.Is(err, dynamo.ErrSingularMatrix) {
		t.Errorf("expected ErrSingularMatrix for pivot below threshold, got %v", err)
	}
}

func TestSolveLinearDimensionMismatch(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	if _, err := solveLinear(a, []float64{1}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
