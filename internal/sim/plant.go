package sim

import (
	"fmt"

	"github.com/san-kum/systree/internal/framework"
)

type leaf struct {
	ctx    *framework.Context
	xcdot  *framework.CacheEntry
	offset int
	size   int
}

// ContextPlant integrates every context in a tree whose system declares
// time derivatives. The stacked state is the concatenation of their
// continuous states in tree order.
type ContextPlant struct {
	root   *framework.Context
	leaves []leaf
	dim    int
}

func NewPlant(root *framework.Context) (*ContextPlant, error) {
	p := &ContextPlant{root: root}
	root.Walk(func(c *framework.Context) {
		e := c.System().TimeDerivatives()
		if e == nil {
			return
		}
		nq, nv, nz := c.System().ContinuousStateSizes()
		size := nq + nv + nz
		p.leaves = append(p.leaves, leaf{ctx: c, xcdot: e, offset: p.dim, size: size})
		p.dim += size
	})
	if len(p.leaves) == 0 {
		return nil, ErrNoDerivatives
	}
	return p, nil
}

func (p *ContextPlant) StateDim() int {
	return p.dim
}

// State returns the stacked continuous state.
func (p *ContextPlant) State() framework.Vector {
	x := make(framework.Vector, 0, p.dim)
	for _, l := range p.leaves {
		x = append(x, l.ctx.ContinuousState()...)
	}
	return x
}

// SetState writes t and x into the tree. Leaves whose state is already
// x are left alone so their cache entries stay valid.
func (p *ContextPlant) SetState(t float64, x framework.Vector) error {
	if len(x) != p.dim {
		return fmt.Errorf("sim: %w: got %d elements, want %d", framework.ErrDimensionMismatch, len(x), p.dim)
	}
	if p.root.Time() != t {
		p.root.SetTime(t)
	}
	for _, l := range p.leaves {
		seg := x[l.offset : l.offset+l.size]
		if equal(l.ctx.ContinuousState(), seg) {
			continue
		}
		if err := l.ctx.SetContinuousState(seg); err != nil {
			return err
		}
	}
	return nil
}

func (p *ContextPlant) Derivatives(t float64, x, xdot framework.Vector) error {
	if err := p.SetState(t, x); err != nil {
		return err
	}
	for _, l := range p.leaves {
		v, err := framework.EvalRef[framework.Vector](l.ctx, l.xcdot)
		if err != nil {
			return err
		}
		copy(xdot[l.offset:l.offset+l.size], *v)
	}
	return nil
}

// Contexts returns the integrated contexts in stacking order.
func (p *ContextPlant) Contexts() []*framework.Context {
	out := make([]*framework.Context, len(p.leaves))
	for i, l := range p.leaves {
		out[i] = l.ctx
	}
	return out
}

func equal(a, b framework.Vector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
