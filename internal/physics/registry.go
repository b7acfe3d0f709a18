package physics

import (
	"fmt"
	"sort"
)

// Options parameterizes model construction.
type Options struct {
	// Masses is the number of leaves in a bank.
	Masses int
}

type factory func(Options) (Model, error)

// Registry maps model names to constructors.
type Registry struct {
	models map[string]factory
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]factory)}
	r.models["pendulum"] = func(Options) (Model, error) { return NewPendulum(), nil }
	r.models["spring_mass"] = func(Options) (Model, error) { return NewSpringMass(), nil }
	r.models["bank"] = func(o Options) (Model, error) {
		n := o.Masses
		if n == 0 {
			n = 2
		}
		return NewBank(n)
	}
	return r
}

// New builds a fresh model. Every call returns an independent tree.
func (r *Registry) New(name string, opts Options) (Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(opts)
}

// Names lists the registered models in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
