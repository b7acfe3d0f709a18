package physics

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/systree/internal/framework"
)

func TestPendulumEnergy(t *testing.T) {
	p := NewPendulum()
	ctx := p.AllocateContext()
	if err := ctx.SetContinuousState(framework.Vector{math.Pi / 2, 2}); err != nil {
		t.Fatal(err)
	}
	e, err := p.Energy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// KE = 0.5 * 1 * 2^2, PE = 9.81 * (1 - cos(pi/2))
	want := 2.0 + 9.81
	if math.Abs(e-want) > 1e-12 {
		t.Errorf("energy = %v, want %v", e, want)
	}
}

func TestPendulumDerivatives(t *testing.T) {
	p := NewPendulum()
	ctx := p.AllocateContext()
	if err := ctx.SetContinuousState(framework.Vector{0, 1}); err != nil {
		t.Fatal(err)
	}
	xdot, err := framework.Eval[framework.Vector](ctx, p.Derivatives())
	if err != nil {
		t.Fatal(err)
	}
	if xdot[0] != 1 || math.Abs(xdot[1]+0.1) > 1e-12 {
		t.Errorf("xdot = %v, want [1 -0.1]", xdot)
	}

	if err := SetInput(ctx, "torque", 0.5); err != nil {
		t.Fatal(err)
	}
	xdot, err = framework.Eval[framework.Vector](ctx, p.Derivatives())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(xdot[1]-0.4) > 1e-12 {
		t.Errorf("with torque xdot[1] = %v, want 0.4", xdot[1])
	}
}

func TestPendulumSharesTrig(t *testing.T) {
	p := NewPendulum()
	ctx := p.AllocateContext()
	if err := ctx.SetQ(framework.Vector{0.3}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Energy(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := framework.Eval[framework.Vector](ctx, p.Derivatives()); err != nil {
		t.Fatal(err)
	}
	trig := ctx.CacheValue(p.trig.Index())
	if trig.SerialNumber() != 1 {
		t.Errorf("trig computed %d times, want 1", trig.SerialNumber())
	}

	// Velocity does not touch the angle terms.
	if err := ctx.SetV(framework.Vector{4}); err != nil {
		t.Fatal(err)
	}
	if !trig.IsUpToDate() || !ctx.CacheValue(p.potential.Index()).IsUpToDate() {
		t.Error("velocity change invalidated angle-only entries")
	}
	if ctx.CacheValue(p.kinetic.Index()).IsUpToDate() || ctx.CacheValue(p.energy.Index()).IsUpToDate() {
		t.Error("velocity change left kinetic energy up to date")
	}
}

func TestParams(t *testing.T) {
	p := NewPendulum()
	ctx := p.AllocateContext()

	if err := p.SetParam(ctx, "length", 2); err != nil {
		t.Fatal(err)
	}
	params, err := p.Params(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if params["length"] != 2 || params["gravity"] != 9.81 {
		t.Errorf("params = %v", params)
	}
	if err := p.SetParam(ctx, "colour", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("err = %v, want ErrUnknownParam", err)
	}

	if err := p.SetParam(ctx, "mass", -1); err != nil {
		t.Fatal(err)
	}
	err = p.System().CheckValidContext(ctx)
	if !errors.Is(err, framework.ErrIncompatibleContext) || !strings.Contains(err.Error(), "mass") {
		t.Errorf("CheckValidContext = %v", err)
	}
}

func TestSpringMass(t *testing.T) {
	m := NewSpringMass()
	ctx := m.AllocateContext()
	if err := ctx.SetContinuousState(framework.Vector{0.5, 2}); err != nil {
		t.Fatal(err)
	}

	f, err := m.Force(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := -10*0.5 - 0.5*2; f != want {
		t.Errorf("force = %v, want %v", f, want)
	}
	e, err := m.Energy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := 0.5*4 + 0.5*10*0.25; e != want {
		t.Errorf("energy = %v, want %v", e, want)
	}

	if err := SetInput(ctx, "force", 6); err != nil {
		t.Fatal(err)
	}
	xdot, err := framework.Eval[framework.Vector](ctx, m.Derivatives())
	if err != nil {
		t.Fatal(err)
	}
	if xdot[0] != 2 || xdot[1] != 0 {
		t.Errorf("xdot = %v, want [2 0]", xdot)
	}
	if !ctx.CacheValue(m.spring.Index()).IsUpToDate() {
		t.Error("input change invalidated the spring force")
	}
}

func TestBankTotalEnergy(t *testing.T) {
	b, err := NewBank(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := b.AllocateContext()
	for i := 0; i < 3; i++ {
		if err := ctx.Subcontext(i).SetContinuousState(framework.Vector{float64(i), 0}); err != nil {
			t.Fatal(err)
		}
	}

	total, err := b.Energy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// 0.5 * 10 * (0 + 1 + 4)
	if total != 25 {
		t.Errorf("total = %v, want 25", total)
	}
	c, err := b.Centroid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c != 1 {
		t.Errorf("centroid = %v, want 1", c)
	}

	if err := ctx.Subcontext(2).SetV(framework.Vector{2}); err != nil {
		t.Fatal(err)
	}
	if !ctx.CacheValue(b.centroid.Index()).IsUpToDate() {
		t.Error("leaf velocity invalidated the centroid")
	}
	total, err = b.Energy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 27 {
		t.Errorf("total = %v, want 27", total)
	}

	if err := b.SetParam(ctx, "m1/stiffness", 20); err != nil {
		t.Fatal(err)
	}
	total, err = b.Energy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 32 {
		t.Errorf("total after stiffening m1 = %v, want 32", total)
	}
}

func TestBankNeedsWiring(t *testing.T) {
	b, err := NewBank(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := b.System().AllocateContext()
	if _, err := b.Energy(ctx); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Subcontext(0).SetQ(framework.Vector{1}); err != nil {
		t.Fatal(err)
	}
	if !ctx.CacheValue(b.total.Index()).IsUpToDate() {
		t.Fatal("unwired root entry saw a leaf change")
	}

	wired := b.AllocateContext()
	if _, err := b.Energy(wired); err != nil {
		t.Fatal(err)
	}
	if err := wired.Subcontext(0).SetQ(framework.Vector{1}); err != nil {
		t.Fatal(err)
	}
	if wired.CacheValue(b.total.Index()).IsUpToDate() {
		t.Fatal("wired root entry missed a leaf change")
	}
}

func TestBankParamsAndLabels(t *testing.T) {
	b, err := NewBank(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := b.AllocateContext()

	if err := b.SetParam(ctx, "damping", 0); err != nil {
		t.Fatal(err)
	}
	params, err := b.Params(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if params["m0/damping"] != 0 || params["m1/damping"] != 0 || params["m1/mass"] != 1 {
		t.Errorf("params = %v", params)
	}
	if err := b.SetParam(ctx, "m9/mass", 2); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("err = %v, want ErrUnknownParam", err)
	}

	labels := strings.Join(b.StateLabels(), ",")
	if labels != "m0/pos,m0/vel,m1/pos,m1/vel" {
		t.Errorf("labels = %s", labels)
	}

	if err := SetInput(ctx, "bank/m1/force", 3); err != nil {
		t.Fatal(err)
	}
	u0, _ := framework.InputValue[float64](ctx.Subcontext(0), 0)
	u1, _ := framework.InputValue[float64](ctx.Subcontext(1), 0)
	if u0 != 0 || u1 != 3 {
		t.Errorf("inputs = %v, %v", u0, u1)
	}
	if err := SetInput(ctx, "thrust", 1); !errors.Is(err, ErrUnknownInput) {
		t.Errorf("err = %v, want ErrUnknownInput", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if got := strings.Join(r.Names(), ","); got != "bank,pendulum,spring_mass" {
		t.Errorf("names = %s", got)
	}
	for _, name := range r.Names() {
		m, err := r.New(name, Options{Masses: 3})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if m.Name() != name {
			t.Errorf("model name = %s, want %s", m.Name(), name)
		}
		ctx := m.AllocateContext()
		if err := m.System().CheckValidContext(ctx); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := r.New("cartpole", Options{}); err == nil {
		t.Error("expected error for unknown model")
	}
	a, _ := r.New("pendulum", Options{})
	b, _ := r.New("pendulum", Options{})
	if a.System() == b.System() {
		t.Error("registry reused a system tree")
	}
}
