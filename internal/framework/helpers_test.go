package framework

import "testing"

// counter is a calculator that records how often it ran.
type counter struct {
	calls int
}

func mustDeclareConst(t *testing.T, s *System, desc string) *CacheEntry {
	t.Helper()
	e, err := DeclareModelCacheEntry(s, desc, 0, func(_ *Context, out *int) error {
		*out = 42
		return nil
	}, WithPrerequisites(NothingTicket()))
	if err != nil {
		t.Fatalf("declare %s: %v", desc, err)
	}
	return e
}

// newSourceSystem declares one of every source kind.
func newSourceSystem(t *testing.T) *System {
	t.Helper()
	s := NewSystem("test.Plant")
	if err := s.DeclareContinuousState(2, 2, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeclareDiscreteState(Vector{0, 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeclareAbstractState(NewValue("idle")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeclareNumericParameter(Vector{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeclareInputPort("u", NewValue(0.0)); err != nil {
		t.Fatal(err)
	}
	return s
}

// declareSum declares an entry summing q, counting its calls.
func declareSum(t *testing.T, s *System, c *counter, prereqs ...Ticket) *CacheEntry {
	t.Helper()
	var opts []DeclareOption
	if prereqs != nil {
		opts = append(opts, WithPrerequisites(prereqs...))
	}
	e, err := DeclareZeroCacheEntry(s, "sum of q", func(ctx *Context, out *float64) error {
		c.calls++
		*out = 0
		for _, q := range ctx.Q() {
			*out += q
		}
		return nil
	}, opts...)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	return e
}
