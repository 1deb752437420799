package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/symode/internal/integrators"
)

// PlotComponent draws component i of res against the step index.
// Non-finite values are dropped; asciigraph cannot scale them.
func PlotComponent(res *integrators.Result, i int, name string, width, height int) string {
	data := finiteOnly(res.Component(i))
	if len(data) == 0 {
		return ""
	}
	caption := fmt.Sprintf("%s (t = %.4g .. %.4g)", name, res.Times[0], res.Times[res.Len()-1])
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotAll draws every component, one graph each.
func PlotAll(res *integrators.Result, names []string, width, height int) string {
	if res.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	for i := range res.States[0] {
		name := fmt.Sprintf("x%d", i)
		if i < len(names) {
			name = names[i]
		}
		sb.WriteString(PlotComponent(res, i, name, width, height))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// PlotSteps draws log10 of the accepted step sizes, which shows where an
// adaptive method had to work hard.
func PlotSteps(res *integrators.Result, width, height int) string {
	if res.Len() < 2 {
		return ""
	}
	logs := make([]float64, 0, res.Len()-1)
	for i := 1; i < res.Len(); i++ {
		if h := res.Times[i] - res.Times[i-1]; h > 0 {
			logs = append(logs, math.Log10(h))
		}
	}
	if len(logs) == 0 {
		return ""
	}
	return asciigraph.Plot(logs,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("log10(step size)"),
	)
}

func finiteOnly(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
