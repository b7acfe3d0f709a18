// Package integrators advances a plant's continuous state in time.
package integrators

import (
	"fmt"

	"github.com/san-kum/systree/internal/framework"
)

// Plant evaluates time derivatives of a stacked continuous state.
type Plant interface {
	StateDim() int
	// Derivatives writes dx/dt at (t, x) into xdot, which has StateDim
	// elements.
	Derivatives(t float64, x, xdot framework.Vector) error
}

// Integrator takes one fixed step.
type Integrator interface {
	Step(p Plant, x framework.Vector, t, dt float64) (framework.Vector, error)
}

// New returns the integrator registered under name.
func New(name string) (Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	}
	return nil, fmt.Errorf("unknown integrator: %s", name)
}

// Names lists the available integrators.
func Names() []string {
	return []string{"euler", "rk4"}
}
