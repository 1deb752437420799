// Package export renders integration results to image files with gonum/plot.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/symode/internal/integrators"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNothingToPlot = errors.New("export: no finite samples to plot")

type Options struct {
	Title     string
	Width     vg.Length
	Height    vg.Length
	DPI       int
	Component []int // empty means every component
}

func DefaultOptions() Options {
	return Options{
		Width:  8 * vg.Inch,
		Height: 5 * vg.Inch,
		DPI:    150,
	}
}

// Trajectory plots the selected components against time, one line each.
func Trajectory(res *integrators.Result, names []string, opts Options) (*plot.Plot, error) {
	if res.Len() == 0 {
		return nil, ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "t"
	p.Legend.Top = true

	comps := opts.Component
	if len(comps) == 0 {
		for i := range res.States[0] {
			comps = append(comps, i)
		}
	}

	drawn := 0
	for n, i := range comps {
		if i < 0 || i >= len(res.States[0]) {
			return nil, fmt.Errorf("export: component %d out of range", i)
		}
		pts := make(plotter.XYs, 0, res.Len())
		for k, s := range res.States {
			if finite(s[i]) {
				pts = append(pts, plotter.XY{X: res.Times[k], Y: s[i]})
			}
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(n)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(label(names, i), line)
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNothingToPlot
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// Phase plots component y against component x.
func Phase(res *integrators.Result, names []string, x, y int, opts Options) (*plot.Plot, error) {
	if res.Len() == 0 {
		return nil, ErrNothingToPlot
	}
	dim := len(res.States[0])
	if x < 0 || x >= dim || y < 0 || y >= dim {
		return nil, fmt.Errorf("export: components %d,%d out of range", x, y)
	}

	pts := make(plotter.XYs, 0, res.Len())
	for _, s := range res.States {
		if finite(s[x]) && finite(s[y]) {
			pts = append(pts, plotter.XY{X: s[x], Y: s[y]})
		}
	}
	if len(pts) == 0 {
		return nil, ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = label(names, x)
	p.Y.Label.Text = label(names, y)

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// Save writes p to filename. PNG output is rasterised at opts.DPI; other
// extensions (.svg, .pdf, .eps) go through plot.Save.
func Save(p *plot.Plot, filename string, opts Options) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}
	if !strings.EqualFold(filepath.Ext(filename), ".png") {
		return p.Save(opts.Width, opts.Height, filename)
	}

	c := vgimg.NewWith(
		vgimg.UseWH(opts.Width, opts.Height),
		vgimg.UseDPI(opts.DPI),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

func label(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("x%d", i)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
