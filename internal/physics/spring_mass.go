package physics

import (
	"github.com/san-kum/systree/internal/framework"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

var springParams = paramSet{
	names:    []string{"mass", "stiffness", "damping"},
	defaults: framework.Vector{DefaultMass, DefaultStiffness, DefaultDamping},
}

// SpringMass is a damped oscillator with state (pos, vel) driven by a
// force input.
type SpringMass struct {
	system *framework.System

	spring *framework.CacheEntry
	damper *framework.CacheEntry
	energy *framework.CacheEntry
	xcdot  *framework.CacheEntry
}

func NewSpringMass() *SpringMass {
	return newSpringMass(framework.NewSystem("physics.SpringMass"))
}

func newSpringMass(s *framework.System) *SpringMass {
	m := &SpringMass{system: s}
	if err := s.DeclareContinuousState(1, 1, 0); err != nil {
		panic(err)
	}
	if err := springParams.declare(s, "mass", "stiffness"); err != nil {
		panic(err)
	}
	if _, err := s.DeclareInputPort("force", framework.NewValue(0.0)); err != nil {
		panic(err)
	}

	m.spring = mustDeclare(framework.DeclareZeroCacheEntry(s, "spring force", func(ctx *framework.Context, out *float64) error {
		k, err := ctx.NumericParameter(0)
		if err != nil {
			return err
		}
		*out = -k[1] * ctx.Q()[0]
		return nil
	}, framework.WithPrerequisites(framework.ConfigurationTicket(), framework.AllParametersTicket())))

	m.damper = mustDeclare(framework.DeclareZeroCacheEntry(s, "damping force", func(ctx *framework.Context, out *float64) error {
		k, err := ctx.NumericParameter(0)
		if err != nil {
			return err
		}
		*out = -k[2] * ctx.V()[0]
		return nil
	}, framework.WithPrerequisites(framework.VelocityTicket(), framework.AllParametersTicket())))

	m.energy = mustDeclare(framework.DeclareZeroCacheEntry(s, "energy", func(ctx *framework.Context, out *float64) error {
		f, err := framework.Eval[float64](ctx, m.spring)
		if err != nil {
			return err
		}
		k, err := ctx.NumericParameter(0)
		if err != nil {
			return err
		}
		x, v := ctx.Q()[0], ctx.V()[0]
		*out = 0.5*k[0]*v*v - 0.5*f*x
		return nil
	}, framework.WithPrerequisites(m.spring.Ticket(), framework.KinematicsTicket(), framework.AllParametersTicket())))

	var err error
	m.xcdot, err = s.DeclareTimeDerivatives(func(ctx *framework.Context, xcdot framework.Vector) error {
		f, err := m.Force(ctx)
		if err != nil {
			return err
		}
		u, err := framework.InputValue[float64](ctx, 0)
		if err != nil {
			return err
		}
		k, err := ctx.NumericParameter(0)
		if err != nil {
			return err
		}
		xcdot[0] = ctx.V()[0]
		xcdot[1] = (f + u) / k[0]
		return nil
	}, framework.WithPrerequisites(m.spring.Ticket(), m.damper.Ticket(), framework.VTicket(),
		framework.AllParametersTicket(), framework.AllInputPortsTicket()))
	if err != nil {
		panic(err)
	}
	return m
}

func (m *SpringMass) Name() string {
	return "spring_mass"
}

func (m *SpringMass) System() *framework.System {
	return m.system
}

func (m *SpringMass) AllocateContext(opts ...framework.ContextOption) *framework.Context {
	return m.system.AllocateContext(opts...)
}

func (m *SpringMass) StateLabels() []string {
	return []string{"pos", "vel"}
}

func (m *SpringMass) Params(ctx *framework.Context) (map[string]float64, error) {
	return springParams.get(ctx)
}

func (m *SpringMass) SetParam(ctx *framework.Context, name string, value float64) error {
	return springParams.set(ctx, name, value)
}

func (m *SpringMass) Energy(ctx *framework.Context) (float64, error) {
	return framework.Eval[float64](ctx, m.energy)
}

// Force returns the cached spring plus damping force.
func (m *SpringMass) Force(ctx *framework.Context) (float64, error) {
	var f float64
	err := sumEntries(m.spring, m.damper)(ctx, &f)
	return f, err
}

func (m *SpringMass) Derivatives() *framework.CacheEntry {
	return m.xcdot
}
