package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/integrators"
	"github.com/san-kum/systree/internal/physics"
	"github.com/san-kum/systree/internal/sim"
)

func TestMeanEnergy(t *testing.T) {
	m := NewMeanEnergy()
	for _, e := range []float64{1, 2, 3} {
		m.Observe(0, 0, nil, e)
	}
	if m.Value() != 2 {
		t.Errorf("expected mean 2, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()
	for _, e := range []float64{10, 11, 9.5, 10} {
		m.Observe(0, 0, nil, e)
	}
	if math.Abs(m.Value()-0.1) > 1e-12 {
		t.Errorf("expected max drift 0.1, got %f", m.Value())
	}
}

func TestStability(t *testing.T) {
	m := NewStability(1)
	m.Observe(0, 0, framework.Vector{0.5, -0.5}, 0)
	m.Observe(1, 0, framework.Vector{0.5, -2}, 0)
	m.Observe(2, 0, framework.Vector{math.NaN()}, 0)
	m.Observe(3, 0, framework.Vector{1}, 0)
	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", m.Value())
	}
}

func TestObserverOnSimulation(t *testing.T) {
	model := physics.NewSpringMass()
	drift := NewEnergyDrift()
	stab := NewStability(10)
	s := sim.New(model, integrators.NewRK4(), sim.WithStepObserver(Observer(drift, stab)))

	result, err := s.Run(context.Background(), model.AllocateContext(), framework.Vector{1, 0},
		sim.Config{Dt: 0.01, Duration: 2})
	if err != nil {
		t.Fatal(err)
	}
	if result.StepsTaken != 200 {
		t.Fatalf("steps = %d, want 200", result.StepsTaken)
	}
	if drift.Value() <= 0 || drift.Value() >= 1 {
		t.Errorf("damped oscillator drift = %g, want in (0, 1)", drift.Value())
	}
	if stab.Value() != 0 {
		t.Errorf("instability = %f, want 0", stab.Value())
	}
}
