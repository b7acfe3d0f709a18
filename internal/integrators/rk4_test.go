package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/systree/internal/framework"
)

type oscillator struct {
	calls int
}

func (o *oscillator) StateDim() int { return 2 }

func (o *oscillator) Derivatives(t float64, x, xdot framework.Vector) error {
	o.calls++
	xdot[0] = x[1]
	xdot[1] = -x[0]
	return nil
}

func integrate(t *testing.T, integ Integrator, p Plant, x framework.Vector, dt float64, steps int) framework.Vector {
	t.Helper()
	for i := 0; i < steps; i++ {
		var err error
		x, err = integ.Step(p, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatal(err)
		}
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	p := &oscillator{}
	dt, steps := 0.01, 100
	x := integrate(t, NewRK4(), p, framework.Vector{1, 0}, dt, steps)

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)
	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
	if p.calls != 4*steps {
		t.Errorf("derivative calls = %d, want %d", p.calls, 4*steps)
	}
}

func TestEulerFirstOrder(t *testing.T) {
	p := &oscillator{}
	x, err := NewEuler().Step(p, framework.Vector{1, 0}, 0, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != 1 || x[1] != -0.1 {
		t.Errorf("x = %v, want [1 -0.1]", x)
	}
}

func TestStepDoesNotAliasInput(t *testing.T) {
	for _, name := range Names() {
		integ, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		x0 := framework.Vector{1, 0}
		x1, err := integ.Step(&oscillator{}, x0, 0, 0.1)
		if err != nil {
			t.Fatal(err)
		}
		if x0[0] != 1 || x0[1] != 0 {
			t.Errorf("%s modified its input: %v", name, x0)
		}
		x1[0] = 42
		x2, _ := integ.Step(&oscillator{}, x0, 0, 0.1)
		if x2[0] == 42 {
			t.Errorf("%s reused its result buffer", name)
		}
	}
}

type failingPlant struct{ err error }

func (f failingPlant) StateDim() int { return 1 }

func (f failingPlant) Derivatives(float64, framework.Vector, framework.Vector) error { return f.err }

func TestStepPropagatesPlantError(t *testing.T) {
	boom := errors.New("boom")
	for _, name := range Names() {
		integ, _ := New(name)
		if _, err := integ.Step(failingPlant{boom}, framework.Vector{0}, 0, 0.1); !errors.Is(err, boom) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	if _, err := New("verlet"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}
