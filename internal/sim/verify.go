package sim

import (
	"context"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/integrators"
	"github.com/san-kum/systree/internal/physics"
)

// Prepare configures a freshly allocated context before a run, e.g. by
// setting parameters and inputs.
type Prepare func(*framework.Context) error

// Report compares a cached run with an uncached one.
type Report struct {
	Cached   *Result
	Uncached *Result

	// Diff is empty when both trajectories are bit-identical.
	Diff string
}

func (r *Report) Equal() bool {
	return r.Diff == ""
}

type trajectory struct {
	Times    []float64
	States   []framework.Vector
	Energies []float64
}

// Verify runs model twice from x0, once with caching and once with
// caching disabled, and diffs the trajectories. Declared prerequisites
// that miss a source the calculator reads show up as a diff.
func Verify(ctx context.Context, model physics.Model, integrator string, x0 framework.Vector, cfg Config, prepare Prepare, opts ...framework.ContextOption) (*Report, error) {
	cachedCtx := model.AllocateContext(opts...)
	uncachedCtx := model.AllocateContext(append(opts, framework.WithCachingDisabled())...)
	for _, c := range []*framework.Context{cachedCtx, uncachedCtx} {
		if prepare == nil {
			break
		}
		if err := prepare(c); err != nil {
			return nil, err
		}
	}

	report := &Report{}
	g, gctx := errgroup.WithContext(ctx)
	run := func(fctx *framework.Context, out **Result) func() error {
		return func() error {
			integ, err := integrators.New(integrator)
			if err != nil {
				return err
			}
			res, err := New(model, integ).Run(gctx, fctx, x0, cfg)
			*out = res
			return err
		}
	}
	g.Go(run(cachedCtx, &report.Cached))
	g.Go(run(uncachedCtx, &report.Uncached))
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Diff = cmp.Diff(
		trajectory{report.Cached.Times, report.Cached.States, report.Cached.Energies},
		trajectory{report.Uncached.Times, report.Uncached.States, report.Uncached.Energies},
		cmpopts.EquateNaNs(),
	)
	return report, nil
}
