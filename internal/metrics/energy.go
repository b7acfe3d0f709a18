// Package metrics accumulates per-step statistics of a running simulation.
package metrics

import (
	"math"

	"github.com/san-kum/systree/internal/framework"
)

// Metric observes every accepted step of a run.
type Metric interface {
	Name() string
	Observe(step int, t float64, x framework.Vector, energy float64)
	Value() float64
	Reset()
}

// Observer fans a step out to every metric. It never stops the run and
// matches sim.StepObserver.
func Observer(ms ...Metric) func(int, float64, framework.Vector, float64) bool {
	return func(step int, t float64, x framework.Vector, energy float64) bool {
		for _, m := range ms {
			m.Observe(step, t, x, energy)
		}
		return true
	}
}

// MeanEnergy averages the observed energy.
type MeanEnergy struct {
	total   float64
	samples int
}

func NewMeanEnergy() *MeanEnergy {
	return &MeanEnergy{}
}

func (e *MeanEnergy) Name() string { return "mean_energy" }

func (e *MeanEnergy) Observe(_ int, _ float64, _ framework.Vector, energy float64) {
	e.total += energy
	e.samples++
}

func (e *MeanEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *MeanEnergy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift tracks the largest relative deviation from the first
// observed energy.
type EnergyDrift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{}
}

func (e *EnergyDrift) Name() string { return "max_energy_drift" }

func (e *EnergyDrift) Observe(_ int, _ float64, _ framework.Vector, energy float64) {
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
