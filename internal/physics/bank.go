package physics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/systree/internal/framework"
)

// Bank is a diagram of independent spring-mass leaves named m0, m1, ...
// Its root caches the total energy and the mean position, which depend
// on leaf state through composition wiring.
type Bank struct {
	system *framework.System
	leaves []*SpringMass

	total    *framework.CacheEntry
	centroid *framework.CacheEntry
}

// NewBank builds a bank of n spring-mass leaves.
func NewBank(n int) (*Bank, error) {
	if n < 1 {
		return nil, fmt.Errorf("physics: bank needs at least one mass, got %d", n)
	}
	root := framework.NewSystem("physics.Bank")
	if err := root.SetName("bank"); err != nil {
		return nil, err
	}
	b := &Bank{system: root}
	for i := 0; i < n; i++ {
		child, err := root.AddSubsystem("m"+strconv.Itoa(i), "physics.SpringMass")
		if err != nil {
			return nil, err
		}
		b.leaves = append(b.leaves, newSpringMass(child))
	}

	var err error
	b.total, err = framework.DeclareZeroCacheEntry(root, "total energy", func(ctx *framework.Context, out *float64) error {
		*out = 0
		for i, leaf := range b.leaves {
			e, err := leaf.Energy(ctx.Subcontext(i))
			if err != nil {
				return err
			}
			*out += e
		}
		return nil
	}, framework.WithPrerequisites(framework.AllStateTicket(), framework.AllParametersTicket()))
	if err != nil {
		return nil, err
	}

	b.centroid, err = framework.DeclareZeroCacheEntry(root, "centroid", func(ctx *framework.Context, out *float64) error {
		*out = 0
		for i := range b.leaves {
			*out += ctx.Subcontext(i).Q()[0]
		}
		*out /= float64(len(b.leaves))
		return nil
	}, framework.WithPrerequisites(framework.QTicket()))
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bank) Name() string {
	return "bank"
}

func (b *Bank) System() *framework.System {
	return b.system
}

// Leaves returns the spring-mass models in child order.
func (b *Bank) Leaves() []*SpringMass {
	return append([]*SpringMass(nil), b.leaves...)
}

// AllocateContext allocates the diagram context and subscribes the root's
// source aggregates to every leaf.
func (b *Bank) AllocateContext(opts ...framework.ContextOption) *framework.Context {
	ctx := b.system.AllocateContext(opts...)
	ctx.WireSubcontextSources()
	return ctx
}

func (b *Bank) StateLabels() []string {
	var out []string
	for _, leaf := range b.leaves {
		name := leaf.System().Name()
		for _, l := range leaf.StateLabels() {
			out = append(out, name+framework.PathDelimiter+l)
		}
	}
	return out
}

// Params reports every leaf parameter as "<leaf>/<name>".
func (b *Bank) Params(ctx *framework.Context) (map[string]float64, error) {
	out := make(map[string]float64)
	for i, leaf := range b.leaves {
		p, err := leaf.Params(ctx.Subcontext(i))
		if err != nil {
			return nil, err
		}
		for k, v := range p {
			out[leaf.System().Name()+framework.PathDelimiter+k] = v
		}
	}
	return out, nil
}

// SetParam sets "<leaf>/<name>" on one leaf or a bare name on all of them.
func (b *Bank) SetParam(ctx *framework.Context, name string, value float64) error {
	leafName, param, qualified := strings.Cut(name, framework.PathDelimiter)
	if !qualified {
		param = name
	}
	matched := false
	for i, leaf := range b.leaves {
		if qualified && leaf.System().Name() != leafName {
			continue
		}
		matched = true
		if err := leaf.SetParam(ctx.Subcontext(i), param, value); err != nil {
			return err
		}
	}
	if !matched {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}

// Energy returns the cached sum of leaf energies.
func (b *Bank) Energy(ctx *framework.Context) (float64, error) {
	return framework.Eval[float64](ctx, b.total)
}

// Centroid returns the cached mean leaf position.
func (b *Bank) Centroid(ctx *framework.Context) (float64, error) {
	return framework.Eval[float64](ctx, b.centroid)
}

// TotalEnergyEntry exposes the root energy entry for inspection.
func (b *Bank) TotalEnergyEntry() *framework.CacheEntry {
	return b.total
}
