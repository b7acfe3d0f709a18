package physics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/systree/internal/framework"
)

var (
	// ErrUnknownParam is returned for a parameter name the model lacks.
	ErrUnknownParam = errors.New("physics: unknown parameter")

	// ErrUnknownInput is returned for an input port name the model lacks.
	ErrUnknownInput = errors.New("physics: unknown input port")

	// ErrNonPositive is returned when a physical constant must be positive.
	ErrNonPositive = errors.New("physics: parameter must be positive")
)

// Model is a system tree with named parameters and a cached energy.
type Model interface {
	Name() string
	System() *framework.System

	// AllocateContext allocates a context and performs any composition
	// wiring the model needs.
	AllocateContext(opts ...framework.ContextOption) *framework.Context

	// StateLabels names the elements of the stacked continuous state of
	// every leaf, in tree order.
	StateLabels() []string

	Params(ctx *framework.Context) (map[string]float64, error)
	SetParam(ctx *framework.Context, name string, value float64) error
	Energy(ctx *framework.Context) (float64, error)
}

// paramSet describes one numeric parameter group by element name.
type paramSet struct {
	names    []string
	defaults framework.Vector
}

func (p paramSet) index(name string) int {
	for i, n := range p.names {
		if n == name {
			return i
		}
	}
	return -1
}

// declare adds the group to s and registers a context check requiring
// the listed elements to stay positive.
func (p paramSet) declare(s *framework.System, positive ...string) error {
	if _, err := s.DeclareNumericParameter(p.defaults); err != nil {
		return err
	}
	if len(positive) == 0 {
		return nil
	}
	return s.AddContextCheck(func(ctx *framework.Context) error {
		values, err := ctx.NumericParameter(0)
		if err != nil {
			return err
		}
		for _, name := range positive {
			if values[p.index(name)] <= 0 {
				return fmt.Errorf("%w: %s = %g", ErrNonPositive, name, values[p.index(name)])
			}
		}
		return nil
	})
}

func (p paramSet) get(ctx *framework.Context) (map[string]float64, error) {
	values, err := ctx.NumericParameter(0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(p.names))
	for i, n := range p.names {
		out[n] = values[i]
	}
	return out, nil
}

func (p paramSet) set(ctx *framework.Context, name string, value float64) error {
	i := p.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q on %s", ErrUnknownParam, name, ctx.System().TypeName())
	}
	values, err := ctx.NumericParameter(0)
	if err != nil {
		return err
	}
	values[i] = value
	return ctx.SetNumericParameter(0, values)
}

// SetInput fixes the float input port named port on every system in the
// tree that declares one. A path-qualified name such as "m1/force"
// restricts it to the system at that path.
func SetInput(ctx *framework.Context, port string, value float64) error {
	path, name := "", port
	if i := strings.LastIndex(port, framework.PathDelimiter); i >= 0 {
		path, name = port[:i], port[i+1:]
	}
	found := false
	var firstErr error
	ctx.Walk(func(c *framework.Context) {
		if path != "" && c.Path() != path {
			return
		}
		s := c.System()
		for i := 0; i < s.NumInputPorts(); i++ {
			if s.InputPortName(i) != name {
				continue
			}
			found = true
			if err := c.FixInputPort(i, framework.NewValue(value)); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	if firstErr != nil {
		return firstErr
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownInput, port)
	}
	return nil
}

func mustDeclare(e *framework.CacheEntry, err error) *framework.CacheEntry {
	if err != nil {
		panic(err)
	}
	return e
}
