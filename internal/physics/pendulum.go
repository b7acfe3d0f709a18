package physics

import (
	"math"

	"github.com/san-kum/systree/internal/framework"
)

var pendulumParams = paramSet{
	names:    []string{"mass", "length", "damping", "gravity"},
	defaults: framework.Vector{1.0, 1.0, 0.1, 9.81},
}

// Trig holds the sine and cosine of the pendulum angle.
type Trig struct {
	Sin, Cos float64
}

// Pendulum is a damped pendulum with state (theta, omega) and a torque
// input. Its trig terms, energies and derivatives are cache entries.
type Pendulum struct {
	system *framework.System

	trig      *framework.CacheEntry
	kinetic   *framework.CacheEntry
	potential *framework.CacheEntry
	energy    *framework.CacheEntry
	xcdot     *framework.CacheEntry
}

// NewPendulum builds a standalone pendulum.
func NewPendulum() *Pendulum {
	return newPendulum(framework.NewSystem("physics.Pendulum"))
}

func newPendulum(s *framework.System) *Pendulum {
	p := &Pendulum{system: s}
	if err := s.DeclareContinuousState(1, 1, 0); err != nil {
		panic(err)
	}
	if err := pendulumParams.declare(s, "mass", "length"); err != nil {
		panic(err)
	}
	if _, err := s.DeclareInputPort("torque", framework.NewValue(0.0)); err != nil {
		panic(err)
	}

	p.trig = mustDeclare(framework.DeclareZeroCacheEntry(s, "trig", func(ctx *framework.Context, out *Trig) error {
		out.Sin, out.Cos = math.Sincos(ctx.Q()[0])
		return nil
	}, framework.WithPrerequisites(framework.QTicket())))

	p.kinetic = mustDeclare(framework.DeclareZeroCacheEntry(s, "kinetic energy", func(ctx *framework.Context, out *float64) error {
		k, err := ctx.NumericParameter(0)
		if err != nil {
			return err
		}
		v := k[1] * ctx.V()[0]
		*out = 0.5 * k[0] * v * v
		return nil
	}, framework.WithPrerequisites(framework.VTicket(), framework.AllParametersTicket())))

	p.potential = mustDeclare(framework.DeclareZeroCacheEntry(s, "potential energy", func(ctx *framework.Context, out *float64) error {
		tr, err := framework.Eval[Trig](ctx, p.trig)
		if err != nil {
			return err
		}
		k, err := ctx.NumericParameter(0)
		if err != nil {
			return err
		}
		*out = k[0] * k[3] * k[1] * (1.0 - tr.Cos)
		return nil
	}, framework.WithPrerequisites(p.trig.Ticket(), framework.AllParametersTicket())))

	p.energy = mustDeclare(framework.DeclareZeroCacheEntry(s, "energy", sumEntries(p.kinetic, p.potential),
		framework.WithPrerequisites(p.kinetic.Ticket(), p.potential.Ticket())))

	var err error
	p.xcdot, err = s.DeclareTimeDerivatives(func(ctx *framework.Context, xcdot framework.Vector) error {
		tr, err := framework.Eval[Trig](ctx, p.trig)
		if err != nil {
			return err
		}
		k, err := ctx.NumericParameter(0)
		if err != nil {
			return err
		}
		torque, err := framework.InputValue[float64](ctx, 0)
		if err != nil {
			return err
		}
		m, l, b, g := k[0], k[1], k[2], k[3]
		omega := ctx.V()[0]
		xcdot[0] = omega
		xcdot[1] = (-b*omega - m*g*l*tr.Sin + torque) / (m * l * l)
		return nil
	}, framework.WithPrerequisites(framework.VTicket(), p.trig.Ticket(),
		framework.AllParametersTicket(), framework.AllInputPortsTicket()))
	if err != nil {
		panic(err)
	}
	return p
}

// sumEntries returns a calculator adding float entries of the same
// context.
func sumEntries(entries ...*framework.CacheEntry) func(*framework.Context, *float64) error {
	return func(ctx *framework.Context, out *float64) error {
		*out = 0
		for _, e := range entries {
			v, err := framework.Eval[float64](ctx, e)
			if err != nil {
				return err
			}
			*out += v
		}
		return nil
	}
}

func (p *Pendulum) Name() string {
	return "pendulum"
}

func (p *Pendulum) System() *framework.System {
	return p.system
}

func (p *Pendulum) AllocateContext(opts ...framework.ContextOption) *framework.Context {
	return p.system.AllocateContext(opts...)
}

func (p *Pendulum) StateLabels() []string {
	return []string{"theta", "omega"}
}

func (p *Pendulum) Params(ctx *framework.Context) (map[string]float64, error) {
	return pendulumParams.get(ctx)
}

func (p *Pendulum) SetParam(ctx *framework.Context, name string, value float64) error {
	return pendulumParams.set(ctx, name, value)
}

// Energy returns kinetic plus potential energy relative to the bottom.
func (p *Pendulum) Energy(ctx *framework.Context) (float64, error) {
	return framework.Eval[float64](ctx, p.energy)
}

// Trig returns the cached sine and cosine of theta.
func (p *Pendulum) Trig(ctx *framework.Context) (Trig, error) {
	return framework.Eval[Trig](ctx, p.trig)
}

// Derivatives exposes the time derivatives entry.
func (p *Pendulum) Derivatives() *framework.CacheEntry {
	return p.xcdot
}
