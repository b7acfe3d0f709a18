package integrators

import "github.com/san-kum/systree/internal/framework"

type Euler struct {
	dx framework.Vector
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(p Plant, x framework.Vector, t, dt float64) (framework.Vector, error) {
	if len(e.dx) != len(x) {
		e.dx = make(framework.Vector, len(x))
	}
	if err := p.Derivatives(t, x, e.dx); err != nil {
		return nil, err
	}
	result := make(framework.Vector, len(x))
	for i := range x {
		result[i] = x[i] + dt*e.dx[i]
	}
	return result, nil
}
