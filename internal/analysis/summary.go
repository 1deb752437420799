package analysis

import (
	"fmt"

	"github.com/san-kum/symode/internal/integrators"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type ComponentSummary struct {
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Final float64 `json:"final"`
}

// Summary describes a whole trajectory. Means and deviations are weighted by
// the step each sample covers, so dense regions of an adaptive run do not
// dominate.
type Summary struct {
	Points     int                `json:"points"`
	T0         float64            `json:"t0"`
	TFinal     float64            `json:"t_final"`
	MinStep    float64            `json:"min_step"`
	MaxStep    float64            `json:"max_step"`
	Components []ComponentSummary `json:"components"`
}

func Summarize(res *integrators.Result, names []string) (*Summary, error) {
	n := res.Len()
	if n == 0 {
		return nil, fmt.Errorf("analysis: empty result")
	}

	s := &Summary{
		Points: n,
		T0:     res.Times[0],
		TFinal: res.Times[n-1],
	}

	weights := stepWeights(res.Times)
	if n > 1 {
		steps := make([]float64, n-1)
		for i := range steps {
			steps[i] = res.Times[i+1] - res.Times[i]
		}
		s.MinStep = floats.Min(steps)
		s.MaxStep = floats.Max(steps)
	}

	dim := len(res.States[0])
	s.Components = make([]ComponentSummary, dim)
	for i := 0; i < dim; i++ {
		col := res.Component(i)
		mean, std := stat.PopMeanStdDev(col, weights)
		s.Components[i] = ComponentSummary{
			Name:  componentName(names, i),
			Min:   floats.Min(col),
			Max:   floats.Max(col),
			Mean:  mean,
			Std:   std,
			Final: col[n-1],
		}
	}
	return s, nil
}

// stepWeights gives each sample half of the interval on either side. A
// degenerate trajectory gets uniform weights.
func stepWeights(times []float64) []float64 {
	n := len(times)
	w := make([]float64, n)
	if n < 2 || times[n-1] == times[0] {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	for i := 0; i < n-1; i++ {
		half := (times[i+1] - times[i]) / 2
		w[i] += half
		w[i+1] += half
	}
	return w
}

func componentName(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("x%d", i)
}
