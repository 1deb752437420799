package integrators

import (
	"math"

	"github.com/san-kum/symode/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// singularPivot is the smallest pivot magnitude solveLinear accepts.
const singularPivot = 1e-14

// solveLinear solves a x = b by Gaussian elimination with partial pivoting.
// Neither a nor b is modified.
func solveLinear(a mat.Matrix, b []float64) ([]float64, error) {
	n, c := a.Dims()
	if n != c || n != len(b) {
		return nil, dynamo.ErrDimensionMismatch
	}
	m := mat.DenseCopyOf(a)
	x := append([]float64(nil), b...)

	for col := 0; col < n; col++ {
		pivot, best := col, math.Abs(m.At(col, col))
		for row := col + 1; row < n; row++ {
			if v := math.Abs(m.At(row, col)); v > best {
				pivot, best = row, v
			}
		}
		if best < singularPivot {
			return nil, dynamo.ErrSingularMatrix
		}
		if pivot != col {
			swapRows(m, pivot, col)
			x[pivot], x[col] = x[col], x[pivot]
		}

		p := m.At(col, col)
		for row := col + 1; row < n; row++ {
			factor := m.At(row, col) / p
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				m.Set(row, k, m.At(row, k)-factor*m.At(col, k))
			}
			x[row] -= factor * x[col]
		}
	}

	for row := n - 1; row >= 0; row-- {
		sum := x[row]
		for k := row + 1; k < n; k++ {
			sum -= m.At(row, k) * x[k]
		}
		x[row] = sum / m.At(row, row)
	}
	return x, nil
}

func swapRows(m *mat.Dense, i, j int) {
	ri := mat.Row(nil, i, m)
	rj := mat.Row(nil, j, m)
	m.SetRow(i, rj)
	m.SetRow(j, ri)
}
