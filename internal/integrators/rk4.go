package integrators

import "github.com/san-kum/systree/internal/framework"

type RK4 struct {
	k1, k2, k3, k4 framework.Vector
	scratch        framework.Vector
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(framework.Vector, n)
		r.k2 = make(framework.Vector, n)
		r.k3 = make(framework.Vector, n)
		r.k4 = make(framework.Vector, n)
		r.scratch = make(framework.Vector, n)
	}
}

func (r *RK4) Step(p Plant, x framework.Vector, t, dt float64) (framework.Vector, error) {
	n := len(x)
	r.ensureScratch(n)

	if err := p.Derivatives(t, x, r.k1); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	if err := p.Derivatives(t+dt*0.5, r.scratch, r.k2); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	if err := p.Derivatives(t+dt*0.5, r.scratch, r.k3); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	if err := p.Derivatives(t+dt, r.scratch, r.k4); err != nil {
		return nil, err
	}

	result := make(framework.Vector, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result, nil
}
