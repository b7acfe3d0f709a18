package framework_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/systree/internal/framework"
)

// plant is a two-level diagram whose root entry depends on child state
// through composition wiring and whose leaf entries chain on each other.
type plant struct {
	root       *framework.System
	leaves     []*framework.System
	norm       []*framework.CacheEntry
	scaled     []*framework.CacheEntry
	total      *framework.CacheEntry
	clock      *framework.CacheEntry
	constCalls int
	constant   *framework.CacheEntry
}

func buildPlant() *plant {
	p := &plant{root: framework.NewSystem("test.Diagram")}
	for _, name := range []string{"a", "b", "c"} {
		leaf := p.root.MustAddSubsystem(name, "test.Leaf")
		Expect(leaf.DeclareContinuousState(2, 1, 0)).To(Succeed())
		_, err := leaf.DeclareNumericParameter(framework.Vector{1})
		Expect(err).NotTo(HaveOccurred())

		norm, err := framework.DeclareZeroCacheEntry(leaf, "norm", func(ctx *framework.Context, out *float64) error {
			q := ctx.Q()
			*out = math.Hypot(q[0], q[1])
			return nil
		}, framework.WithPrerequisites(framework.QTicket()))
		Expect(err).NotTo(HaveOccurred())

		scaled, err := framework.DeclareZeroCacheEntry(leaf, "scaled norm", func(ctx *framework.Context, out *float64) error {
			n, err := framework.Eval[float64](ctx, norm)
			if err != nil {
				return err
			}
			k, err := ctx.NumericParameter(0)
			if err != nil {
				return err
			}
			*out = n*k[0] + ctx.V()[0]
			return nil
		}, framework.WithPrerequisites(norm.Ticket(), framework.VTicket(), framework.AllParametersTicket()))
		Expect(err).NotTo(HaveOccurred())

		p.leaves = append(p.leaves, leaf)
		p.norm = append(p.norm, norm)
		p.scaled = append(p.scaled, scaled)
	}

	var err error
	p.total, err = framework.DeclareZeroCacheEntry(p.root, "total", func(ctx *framework.Context, out *float64) error {
		*out = 0
		for i, e := range p.scaled {
			v, err := framework.Eval[float64](ctx.Subcontext(i), e)
			if err != nil {
				return err
			}
			*out += v
		}
		return nil
	}, framework.WithPrerequisites(framework.QTicket(), framework.VTicket(), framework.AllParametersTicket()))
	Expect(err).NotTo(HaveOccurred())

	p.clock, err = framework.DeclareZeroCacheEntry(p.root, "clock", func(ctx *framework.Context, out *float64) error {
		*out = 2 * ctx.Time()
		return nil
	}, framework.WithPrerequisites(framework.TimeTicket()))
	Expect(err).NotTo(HaveOccurred())

	p.constant, err = framework.DeclareModelCacheEntry(p.root, "constant", 0, func(_ *framework.Context, out *int) error {
		p.constCalls++
		*out = 3
		return nil
	}, framework.WithPrerequisites(framework.NothingTicket()))
	Expect(err).NotTo(HaveOccurred())
	return p
}

func (p *plant) allocate(opts ...framework.ContextOption) *framework.Context {
	ctx := p.root.AllocateContext(opts...)
	ctx.WireSubcontextSources()
	return ctx
}

// mutation applies one random source change to ctx.
type mutation func(ctx *framework.Context)

func randomMutations(seed int64, n int) []mutation {
	r := rand.New(rand.NewSource(seed))
	out := make([]mutation, n)
	for i := range out {
		leaf := r.Intn(3)
		a, b := r.NormFloat64(), r.NormFloat64()
		switch r.Intn(4) {
		case 0:
			out[i] = func(ctx *framework.Context) {
				Expect(ctx.Subcontext(leaf).SetQ(framework.Vector{a, b})).To(Succeed())
			}
		case 1:
			out[i] = func(ctx *framework.Context) {
				Expect(ctx.Subcontext(leaf).SetV(framework.Vector{a})).To(Succeed())
			}
		case 2:
			out[i] = func(ctx *framework.Context) {
				Expect(ctx.Subcontext(leaf).SetNumericParameter(0, framework.Vector{b})).To(Succeed())
			}
		default:
			out[i] = func(ctx *framework.Context) { ctx.SetTime(math.Abs(a)) }
		}
	}
	return out
}

func readAll(p *plant, ctx *framework.Context) []float64 {
	var out []float64
	for i := range p.leaves {
		n, err := framework.Eval[float64](ctx.Subcontext(i), p.norm[i])
		Expect(err).NotTo(HaveOccurred())
		out = append(out, n)
	}
	total, err := framework.Eval[float64](ctx, p.total)
	Expect(err).NotTo(HaveOccurred())
	clock, err := framework.Eval[float64](ctx, p.clock)
	Expect(err).NotTo(HaveOccurred())
	return append(out, total, clock)
}

var _ = Describe("Cached evaluation", func() {
	var p *plant

	BeforeEach(func() {
		p = buildPlant()
	})

	DescribeTable("matches evaluation with caching disabled",
		func(seed int64) {
			cached := p.allocate()
			uncached := p.allocate(framework.WithCachingDisabled())

			for _, m := range randomMutations(seed, 60) {
				m(cached)
				m(uncached)
				Expect(readAll(p, cached)).To(Equal(readAll(p, uncached)))
			}
			Expect(cached.Stats().Hits).To(BeNumerically(">", 0))
			Expect(uncached.Stats().Hits).To(BeZero())
		},
		Entry("seed 1", int64(1)),
		Entry("seed 7", int64(7)),
		Entry("seed 42", int64(42)),
	)

	It("leaves unrelated entries up to date", func() {
		ctx := p.allocate()
		readAll(p, ctx)

		ctx.SetTime(1)
		for i := range p.leaves {
			Expect(ctx.Subcontext(i).CacheValue(p.norm[i].Index()).IsUpToDate()).To(BeTrue())
		}
		Expect(ctx.CacheValue(p.total.Index()).IsUpToDate()).To(BeTrue())
		Expect(ctx.CacheValue(p.clock.Index()).IsUpToDate()).To(BeFalse())

		Expect(ctx.Subcontext(1).SetV(framework.Vector{2})).To(Succeed())
		Expect(ctx.Subcontext(1).CacheValue(p.norm[1].Index()).IsUpToDate()).To(BeTrue())
		Expect(ctx.Subcontext(1).CacheValue(p.scaled[1].Index()).IsUpToDate()).To(BeFalse())
		Expect(ctx.CacheValue(p.total.Index()).IsUpToDate()).To(BeFalse())
	})

	It("computes a constant entry once per context", func() {
		ctx := p.allocate()
		for _, m := range randomMutations(3, 20) {
			m(ctx)
			v, err := framework.Eval[int](ctx, p.constant)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(3))
		}
		Expect(p.constCalls).To(Equal(1))
	})

	It("rejects a context from another tree", func() {
		other := buildPlant()
		ctx := other.allocate()
		_, err := framework.Eval[float64](ctx, p.total)
		Expect(err).To(MatchError(framework.ErrIncompatibleContext))
		Expect(p.root.CheckValidContext(ctx)).To(MatchError(framework.ErrIncompatibleContext))
	})
})
