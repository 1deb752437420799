// Package storage persists solver runs as a directory per run holding
// metadata.json and the accepted trajectory in states.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/symode/internal/dynamo"
	"github.com/san-kum/symode/internal/integrators"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var ErrNoRuns = errors.New("storage: no saved runs")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Equations []string           `json:"equations"`
	Vars      []string           `json:"vars"`
	Params    map[string]float64 `json:"params,omitempty"`
	TSpan     [2]float64         `json:"t_span"`
	Method    string             `json:"method"`
	Status    string             `json:"status"`
	Stats     integrators.Stats  `json:"stats"`
}

// Run is everything Save needs to persist one solve.
type Run struct {
	Name      string
	Equations []string
	Vars      []string
	Params    map[string]float64
	Span      [2]float64
	Result    *integrators.Result
}

func (s *Store) Save(run Run) (string, error) {
	name := run.Name
	if name == "" {
		name = "run"
	}
	runID := fmt.Sprintf("%s_%s", name, strings.SplitN(uuid.NewString(), "-", 2)[0])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Timestamp: time.Now(),
		Equations: run.Equations,
		Vars:      run.Vars,
		Params:    run.Params,
		TSpan:     run.Span,
		Method:    string(run.Result.Method),
		Status:    string(run.Result.Status),
		Stats:     run.Result.Stats,
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, run.Vars, run.Result); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteCSV writes a header of time plus one column per variable, then one
// row per accepted step. Values use the shortest exact representation.
func WriteCSV(out io.Writer, vars []string, result *integrators.Result) error {
	w := csv.NewWriter(out)

	if len(result.States) == 0 {
		w.Flush()
		return w.Error()
	}

	header := []string{"time"}
	for i := range result.States[0] {
		if i < len(vars) {
			header = append(header, vars[i])
		} else {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'g', -1, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns saved runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Latest returns the ID of the most recently saved run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[len(runs)-1].ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadStates reads the trajectory of a run.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []dynamo.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: %w", statesFile, i+1, err)
		}
		times = append(times, t)

		state := make(dynamo.State, len(record)-1)
		for j := 1; j < len(record); j++ {
			if state[j-1], err = strconv.ParseFloat(record[j], 64); err != nil {
				return nil, nil, fmt.Errorf("%s line %d: %w", statesFile, i+1, err)
			}
		}
		states = append(states, state)
	}

	return states, times, nil
}

// LoadRun rebuilds the result of a saved run. Err is not persisted.
func (s *Store) LoadRun(runID string) (*RunMetadata, *integrators.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, &integrators.Result{
		Method: integrators.Method(meta.Method),
		Times:  times,
		States: states,
		Status: integrators.Status(meta.Status),
		Stats:  meta.Stats,
	}, nil
}
