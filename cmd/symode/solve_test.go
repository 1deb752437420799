package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/symode/internal/dynamo"
	"github.com/san-kum/symode/internal/integrators"
	"github.com/san-kum/symode/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useDataDir points the command globals at a fresh data directory with
// quiet logging and no optional outputs.
func useDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dataDir = dir
	logLevel = "warn"
	verbose = false
	showPlot = false
	pngOut = ""
	metricsOut = ""
	noSave = false
	invariant = ""
	timeout = 0
	outFile = ""
	return dir
}

func TestSolveSavesRun(t *testing.T) {
	dir := useDataDir(t)
	metricsOut = filepath.Join(dir, "solve.prom")
	invariant = `\ln(x) + t`

	cmd := problemCmd(t, "--preset", "decay", "--tf", "1")
	require.NoError(t, solveProblem(cmd, nil))

	st := storage.New(dir)
	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "decay", runs[0].Name)
	assert.Equal(t, string(integrators.StatusSuccess), runs[0].Status)
	assert.Equal(t, "rk45", runs[0].Method)
	assert.Equal(t, [2]float64{0, 1}, runs[0].TSpan)

	meta, res, err := st.LoadRun(runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, meta.Vars)
	tf, y := res.Final()
	assert.Equal(t, 1.0, tf)
	assert.InDelta(t, 0.36787944, y[0], 1e-5)

	prom, err := os.ReadFile(metricsOut)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "symode_solves_total")
}

func TestSolveNoSave(t *testing.T) {
	dir := useDataDir(t)
	noSave = true

	require.NoError(t, solveProblem(problemCmd(t, "--preset", "decay"), nil))

	runs, err := storage.New(dir).List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSolveFailureKeepsPartialRun(t *testing.T) {
	dir := useDataDir(t)

	err := solveProblem(problemCmd(t, "--preset", "newton_blowup"), nil)
	require.ErrorIs(t, err, dynamo.ErrNewtonDiverged)

	runs, err := storage.New(dir).List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, string(integrators.StatusNewtonDiverged), runs[0].Status)
}

func TestSolveRejectsBadInvariant(t *testing.T) {
	useDataDir(t)
	invariant = `x +`

	assert.Error(t, solveProblem(problemCmd(t, "--preset", "decay"), nil))
}

func TestCompareMethods(t *testing.T) {
	dir := useDataDir(t)
	invariant = `x^2 + dx^2`
	methods = []string{"rk45", "implicit_euler", "rk4", "euler", "nope"}

	cmd := problemCmd(t, "--preset", "oscillator", "--tf", "2")
	cmd.SetContext(context.Background())
	require.NoError(t, compareMethods(cmd, nil))

	runs, err := storage.New(dir).List()
	require.NoError(t, err)
	assert.Empty(t, runs, "compare does not store runs")
}

func TestExportLatestRun(t *testing.T) {
	dir := useDataDir(t)
	require.NoError(t, solveProblem(problemCmd(t, "--preset", "oscillator", "--tf", "1"), nil))

	outFile = filepath.Join(dir, "run.csv")
	require.NoError(t, exportCSV(nil, nil))
	f, err := os.Open(outFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	_, res, err := loadRun(nil)
	require.NoError(t, err)
	require.Len(t, rows, res.Len()+1)
	assert.Equal(t, []string{"time", "x", "dx"}, rows[0])

	outFile = filepath.Join(dir, "run.json")
	require.NoError(t, exportJSON(nil, nil))
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestLoadRunMissing(t *testing.T) {
	useDataDir(t)

	_, _, err := loadRun(nil)
	assert.Error(t, err, "no runs yet")

	_, _, err = loadRun([]string{"missing"})
	assert.Error(t, err)
}
