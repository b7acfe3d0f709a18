// Package storage persists simulation runs: metadata as JSON and the
// sampled trajectory as CSV. Cached values are never persisted.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunSpec describes how a run was configured.
type RunSpec struct {
	Model      string             `json:"model"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Caching    bool               `json:"caching"`
	Params     map[string]float64 `json:"params,omitempty"`
}

type RunMetadata struct {
	RunSpec
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	Labels      []string             `json:"labels"`
	Steps       int                  `json:"steps"`
	EnergyDrift float64              `json:"energy_drift"`
	Cache       framework.CacheStats `json:"cache"`
}

// Save writes a run and returns its id.
func (s *Store) Save(spec RunSpec, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", spec.Model, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		RunSpec:     spec,
		ID:          runID,
		Timestamp:   time.Now(),
		Labels:      result.Labels,
		Steps:       result.StepsTaken,
		EnergyDrift: result.EnergyDrift,
		Cache:       result.Stats,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteCSV writes one row per sample: time, every state element, energy.
func WriteCSV(out io.Writer, result *sim.Result) error {
	w := csv.NewWriter(out)

	header := []string{"time"}
	header = append(header, result.Labels...)
	header = append(header, "energy")
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		row = append(row, strconv.FormatFloat(result.Energies[i], 'g', -1, 64))
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Trajectory is a run's samples as read back from CSV.
type Trajectory struct {
	Labels   []string
	Times    []float64
	States   [][]float64
	Energies []float64
}

func (s *Store) LoadStates(runID string) (*Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := &Trajectory{}
	if len(records) == 0 {
		return tr, nil
	}
	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("storage: %s: malformed header %v", runID, header)
	}
	tr.Labels = header[1 : len(header)-1]

	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s: row %d column %d: %w", runID, i+1, j, err)
			}
			values[j] = v
		}
		tr.Times = append(tr.Times, values[0])
		tr.States = append(tr.States, values[1:len(values)-1])
		tr.Energies = append(tr.Energies, values[len(values)-1])
	}
	return tr, nil
}
