package framework

import "testing"

func TestWellKnownTicketsDistinct(t *testing.T) {
	accessors := []struct {
		name string
		fn   func() Ticket
	}{
		{"nothing", NothingTicket},
		{"time", TimeTicket},
		{"accuracy", AccuracyTicket},
		{"q", QTicket},
		{"v", VTicket},
		{"z", ZTicket},
		{"xc", XcTicket},
		{"xd", XdTicket},
		{"xa", XaTicket},
		{"x", AllStateTicket},
		{"configuration", ConfigurationTicket},
		{"velocity", VelocityTicket},
		{"kinematics", KinematicsTicket},
		{"all parameters", AllParametersTicket},
		{"all input ports", AllInputPortsTicket},
		{"all sources", AllSourcesTicket},
		{"xcdot", XcdotTicket},
		{"xdhat", XdhatTicket},
	}

	seen := make(map[Ticket]string)
	for _, a := range accessors {
		tk := a.fn()
		if tk != a.fn() {
			t.Errorf("%s: accessor not constant", a.name)
		}
		if !tk.IsWellKnown() {
			t.Errorf("%s: ticket %d not well-known", a.name, tk)
		}
		if other, dup := seen[tk]; dup {
			t.Errorf("%s and %s share ticket %d", a.name, other, tk)
		}
		seen[tk] = a.name
		if tk.String() != a.name {
			t.Errorf("String() = %q, want %q", tk.String(), a.name)
		}
	}
	if len(seen) != int(NextAvailableTicket) {
		t.Errorf("expected %d well-known tickets, got %d", NextAvailableTicket, len(seen))
	}
}

func TestTicketRegistryMonotonic(t *testing.T) {
	r := newTicketRegistry()
	prev := Ticket(-1)
	for i := 0; i < 10; i++ {
		tk := r.allocate()
		if tk < NextAvailableTicket {
			t.Fatalf("dynamic ticket %d collides with well-known range", tk)
		}
		if tk <= prev {
			t.Fatalf("ticket %d not greater than previous %d", tk, prev)
		}
		if !r.known(tk) {
			t.Errorf("allocated ticket %d not known", tk)
		}
		prev = tk
	}
	if r.known(prev + 1) {
		t.Error("unallocated ticket reported as known")
	}
	if r.count() != int(NextAvailableTicket)+10 {
		t.Errorf("count = %d, want %d", r.count(), int(NextAvailableTicket)+10)
	}
}

func TestDynamicTicketsScopedPerSystem(t *testing.T) {
	root := NewSystem("root")
	a := root.MustAddSubsystem("a", "leaf")
	b := root.MustAddSubsystem("b", "leaf")

	ea := mustDeclareConst(t, a, "a0")
	eb := mustDeclareConst(t, b, "b0")

	if ea.Ticket() != eb.Ticket() {
		t.Errorf("first entries of siblings should share ticket numbers, got %d and %d", ea.Ticket(), eb.Ticket())
	}
	if ea.Ticket() != NextAvailableTicket {
		t.Errorf("first dynamic ticket = %d, want %d", ea.Ticket(), NextAvailableTicket)
	}
}
