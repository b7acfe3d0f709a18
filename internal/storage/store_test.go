package storage

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		Labels:      []string{"theta", "omega"},
		Times:       []float64{0.0, 0.01},
		States:      []framework.Vector{{1.0, 0.0}, {0.9, -0.1}},
		Energies:    []float64{1.5, 1.25},
		EnergyDrift: 0.01,
		StepsTaken:  1,
		Stats:       framework.CacheStats{Hits: 7, Recomputes: 3},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	spec := RunSpec{Model: "pendulum", Integrator: "rk4", Dt: 0.01, Duration: 1, Caching: true,
		Params: map[string]float64{"length": 2}}
	runID, err := st.Save(spec, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Model != "pendulum" || meta.Params["length"] != 2 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Cache.Hits != 7 || meta.Cache.Recomputes != 3 {
		t.Errorf("cache stats = %+v", meta.Cache)
	}

	tr, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	want := &Trajectory{
		Labels:   []string{"theta", "omega"},
		Times:    []float64{0, 0.01},
		States:   [][]float64{{1, 0}, {0.9, -0.1}},
		Energies: []float64{1.5, 1.25},
	}
	if diff := cmp.Diff(want, tr); diff != "" {
		t.Errorf("trajectory (-want +got):\n%s", diff)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("empty store: %v, %v", runs, err)
	}

	for _, model := range []string{"pendulum", "bank"} {
		if _, err := st.Save(RunSpec{Model: model}, sampleResult()); err != nil {
			t.Fatal(err)
		}
	}
	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].Timestamp.Before(runs[1].Timestamp) {
		t.Error("runs are not newest first")
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("List() = %v, %v", runs, err)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, RunSpec{Model: "pendulum", Dt: 0.01}, sampleResult()); err != nil {
		t.Fatal(err)
	}
	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Model != "pendulum" || got.Steps != 1 || len(got.States) != 2 || got.Cache.Hits != 7 {
		t.Errorf("export = %+v", got)
	}
}
