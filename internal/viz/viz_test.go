package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/integrators"
	"github.com/san-kum/systree/internal/physics"
	"github.com/san-kum/systree/internal/telemetry"
)

func TestTicketName(t *testing.T) {
	s := framework.NewSystem("test")
	p, err := s.DeclareNumericParameter(framework.Vector{1})
	if err != nil {
		t.Fatal(err)
	}
	in, err := s.DeclareInputPort("drive", framework.NewValue(0.0))
	if err != nil {
		t.Fatal(err)
	}
	e, err := framework.DeclareZeroCacheEntry(s, "doubled", func(ctx *framework.Context, out *float64) error {
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ticket framework.Ticket
		want   string
	}{
		{framework.QTicket(), "q"},
		{framework.AllParametersTicket(), "all parameters"},
		{s.NumericParameterTicket(p), "p0"},
		{s.InputPortTicket(in), "u:drive"},
		{e.Ticket(), "doubled"},
		{framework.Ticket(500), "ticket(500)"},
	}
	for _, tt := range tests {
		if got := TicketName(s, tt.ticket); got != tt.want {
			t.Errorf("TicketName(%d) = %q, want %q", tt.ticket, got, tt.want)
		}
	}
}

func TestRenderTree(t *testing.T) {
	bank, err := physics.NewBank(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := bank.AllocateContext()
	if _, err := bank.Energy(ctx); err != nil {
		t.Fatal(err)
	}

	out := RenderTree(ctx)
	for _, want := range []string{
		"bank", "bank/m0", "bank/m1", "physics.SpringMass",
		"total energy", "centroid",
		"xc(q=1 v=1 z=0)", "u:force",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(out, "\n")
	var totalLine, centroidLine string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "total energy"):
			totalLine = l
		case strings.Contains(l, "centroid"):
			centroidLine = l
		}
	}
	if !strings.Contains(totalLine, "[✓]") {
		t.Errorf("total energy should be up to date: %q", totalLine)
	}
	if !strings.Contains(centroidLine, "[ ]") || !strings.HasSuffix(centroidLine, "<- q") {
		t.Errorf("centroid should be stale: %q", centroidLine)
	}
}

func TestSparklineAndHitBar(t *testing.T) {
	if got := Sparkline([]float64{0, 3.5, 7}, 8); got != "▁▄█" {
		t.Errorf("Sparkline = %q", got)
	}
	if got := Sparkline([]float64{1, 2, 5, 5}, 2); got != "▁▁" {
		t.Errorf("flat Sparkline = %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("empty Sparkline = %q", got)
	}
	if got := HitBar(0.5, 10); strings.Count(got, "█") != 5 {
		t.Errorf("HitBar(0.5) = %q", got)
	}
}

func newTestMonitor(t *testing.T) (*Monitor, *physics.Pendulum) {
	t.Helper()
	model := physics.NewPendulum()
	collector := telemetry.NewCollector("viz_test")
	ctx := model.AllocateContext(framework.WithObserver(collector))
	m, err := NewMonitor(model, ctx, integrators.NewRK4(), framework.Vector{0.3, 0},
		MonitorConfig{Dt: 0.01, StepsPerFrame: 5, Collector: collector})
	if err != nil {
		t.Fatal(err)
	}
	return m, model
}

func TestMonitorTicksAdvanceTime(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.Update(TickMsg{})
	m.Update(TickMsg{})
	if got := m.Time(); got < 0.099 || got > 0.101 {
		t.Errorf("time after two frames = %f, want 0.1", got)
	}
	if m.ctx.Stats().Hits == 0 {
		t.Error("expected cache hits while stepping")
	}

	view := m.View()
	for _, want := range []string{"PENDULUM", "Energy", "Hit ratio", "mass"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestMonitorKeys(t *testing.T) {
	m, model := newTestMonitor(t)

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	m.Update(TickMsg{})
	if m.Time() != 0 {
		t.Error("paused monitor should not step")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if !m.ctx.IsCachingDisabled() {
		t.Error("c should disable caching")
	}
	if !strings.Contains(m.View(), "caching off") {
		t.Error("view should show caching off")
	}

	// Keys are sorted: damping, gravity, length, mass.
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	params, err := model.Params(m.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := params["gravity"]; got < 10.30 || got > 10.31 {
		t.Errorf("gravity = %f, want 9.81*1.05", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	m.Update(TickMsg{})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.Time() != 0 || m.State()[0] != 0.3 {
		t.Errorf("reset: t=%f x=%v", m.Time(), m.State())
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q should return a quit command")
	}
}
