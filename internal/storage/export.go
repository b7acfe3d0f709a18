package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/sim"
)

type ExportData struct {
	RunSpec
	Steps    int                  `json:"steps"`
	Labels   []string             `json:"labels"`
	Times    []float64            `json:"times"`
	States   [][]float64          `json:"states"`
	Energies []float64            `json:"energies"`
	Cache    framework.CacheStats `json:"cache"`
}

// ExportJSON writes the whole run as one JSON document.
func ExportJSON(w io.Writer, spec RunSpec, result *sim.Result) error {
	data := ExportData{
		RunSpec:  spec,
		Steps:    result.StepsTaken,
		Labels:   result.Labels,
		Times:    result.Times,
		States:   make([][]float64, len(result.States)),
		Energies: result.Energies,
		Cache:    result.Stats,
	}
	for i, s := range result.States {
		data.States[i] = s
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSONFile is ExportJSON into a new file at path.
func ExportJSONFile(path string, spec RunSpec, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ExportJSON(file, spec, result); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
