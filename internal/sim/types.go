package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/systree/internal/framework"
)

var (
	// ErrInvalidState indicates a NaN or Inf in the integrated state.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrNoDerivatives indicates a tree without any time derivatives.
	ErrNoDerivatives = errors.New("sim: no system in the tree declares time derivatives")

	// ErrInvalidConfig indicates a non-positive step or duration.
	ErrInvalidConfig = errors.New("sim: invalid config")
)

// SimulationError wraps an error with the step it happened at.
type SimulationError struct {
	Step int
	Time float64
	Err  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

type Config struct {
	Dt       float64
	Duration float64

	// ValidateState stops the run at the first NaN or Inf.
	ValidateState bool

	// CheckContext validates the context against its system before the
	// first step.
	CheckContext bool
}

type Result struct {
	Labels      []string
	Times       []float64
	States      []framework.Vector
	Energies    []float64
	EnergyDrift float64
	StepsTaken  int
	Stats       framework.CacheStats
}

// Final returns the last recorded state.
func (r *Result) Final() framework.Vector {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// Series returns the trajectory of state element i.
func (r *Result) Series(i int) []float64 {
	out := make([]float64, len(r.States))
	for k, x := range r.States {
		out[k] = x[i]
	}
	return out
}
