package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/integrators"
	"github.com/san-kum/systree/internal/physics"
)

// Ensemble runs one model from many initial states. Each run gets its own
// context; contexts of one system are independent and may be used from
// different goroutines.
type Ensemble struct {
	model      physics.Model
	integrator string
	prepare    Prepare
	opts       []framework.ContextOption
}

func NewEnsemble(model physics.Model, integrator string, prepare Prepare, opts ...framework.ContextOption) *Ensemble {
	return &Ensemble{model: model, integrator: integrator, prepare: prepare, opts: opts}
}

func (e *Ensemble) Run(ctx context.Context, initial []framework.Vector, cfg Config) ([]*Result, error) {
	// Allocation freezes the shared system tree, so it happens up front.
	contexts := make([]*framework.Context, len(initial))
	for i := range initial {
		contexts[i] = e.model.AllocateContext(e.opts...)
		if e.prepare != nil {
			if err := e.prepare(contexts[i]); err != nil {
				return nil, err
			}
		}
	}

	results := make([]*Result, len(initial))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range initial {
		i := i
		g.Go(func() error {
			integ, err := integrators.New(e.integrator)
			if err != nil {
				return err
			}
			results[i], err = New(e.model, integ).Run(gctx, contexts[i], initial[i], cfg)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
