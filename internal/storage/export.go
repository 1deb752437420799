package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/symode/internal/integrators"
)

type ExportData struct {
	ID        string             `json:"id,omitempty"`
	Name      string             `json:"name"`
	Equations []string           `json:"equations,omitempty"`
	Vars      []string           `json:"vars"`
	Params    map[string]float64 `json:"params,omitempty"`
	Method    string             `json:"method"`
	Status    string             `json:"status"`
	Steps     int                `json:"steps"`
	Stats     integrators.Stats  `json:"stats"`
	Times     []float64          `json:"times"`
	States    [][]float64        `json:"states"`
}

func NewExportData(meta *RunMetadata, result *integrators.Result) ExportData {
	data := ExportData{
		ID:        meta.ID,
		Name:      meta.Name,
		Equations: meta.Equations,
		Vars:      meta.Vars,
		Params:    meta.Params,
		Method:    string(result.Method),
		Status:    string(result.Status),
		Steps:     len(result.Times),
		Stats:     result.Stats,
		Times:     result.Times,
		States:    make([][]float64, len(result.States)),
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	return data
}

// WriteJSON writes the run as indented JSON.
func WriteJSON(w io.Writer, meta *RunMetadata, result *integrators.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, result))
}

func ExportJSON(path string, meta *RunMetadata, result *integrators.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, meta, result)
}

func ExportCSV(path string, vars []string, result *integrators.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, vars, result)
}
