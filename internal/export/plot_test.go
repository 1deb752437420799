package export

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/symode/internal/dynamo"
	"github.com/san-kum/symode/internal/integrators"
)

func sample() *integrators.Result {
	res := &integrators.Result{Status: integrators.StatusSuccess}
	for i := 0; i < 50; i++ {
		t := float64(i) / 10
		res.Times = append(res.Times, t)
		res.States = append(res.States, dynamo.State{math.Cos(t), -math.Sin(t)})
	}
	return res
}

func TestSavePNG(t *testing.T) {
	p, err := Trajectory(sample(), []string{"x", "v"}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out", "traj.png")
	if err := Save(p, path, DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestSaveSVG(t *testing.T) {
	p, err := Phase(sample(), []string{"x", "v"}, 0, 1, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "phase.svg")
	if err := Save(p, path, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("output is not an SVG")
	}
}

func TestTrajectoryErrors(t *testing.T) {
	if _, err := Trajectory(&integrators.Result{}, nil, DefaultOptions()); err != ErrNothingToPlot {
		t.Errorf("expected ErrNothingToPlot, got %v", err)
	}

	opts := DefaultOptions()
	opts.Component = []int{5}
	if _, err := Trajectory(sample(), nil, opts); err == nil {
		t.Error("expected range error")
	}

	nan := &integrators.Result{Times: []float64{0}, States: []dynamo.State{{math.NaN()}}}
	if _, err := Trajectory(nan, nil, DefaultOptions()); err != ErrNothingToPlot {
		t.Errorf("expected ErrNothingToPlot for NaN data, got %v", err)
	}
}

func TestPhaseErrors(t *testing.T) {
	if _, err := Phase(sample(), nil, 0, 2, DefaultOptions()); err == nil {
		t.Error("expected range error")
	}
}
