package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/integrators"
	"github.com/san-kum/systree/internal/physics"
	"github.com/san-kum/systree/internal/sim"
	"github.com/san-kum/systree/internal/telemetry"
)

const historyCapacity = 600

type TickMsg time.Time

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	Dt            float64
	StepsPerFrame int
	FPS           int

	// Collector, when set, must be the observer of the monitored context;
	// its totals are shown next to the context's own counters.
	Collector *telemetry.Collector
}

// Monitor steps a model in real time and shows its energy and cache
// traffic.
type Monitor struct {
	model     physics.Model
	ctx       *framework.Context
	plant     *sim.ContextPlant
	integ     integrators.Integrator
	collector *telemetry.Collector

	cfg      MonitorConfig
	x, x0    framework.Vector
	t        float64
	running  bool
	err      error
	energies []float64

	params    map[string]float64
	paramKeys []string
	selected  int
}

// NewMonitor prepares a monitor for ctx, which must have been allocated by
// model.
func NewMonitor(model physics.Model, ctx *framework.Context, integ integrators.Integrator, x0 framework.Vector, cfg MonitorConfig) (*Monitor, error) {
	plant, err := sim.NewPlant(ctx)
	if err != nil {
		return nil, err
	}
	if err := plant.SetState(0, x0); err != nil {
		return nil, err
	}
	params, err := model.Params(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if cfg.StepsPerFrame <= 0 {
		cfg.StepsPerFrame = 1
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	m := &Monitor{
		model:     model,
		ctx:       ctx,
		plant:     plant,
		integ:     integ,
		collector: cfg.Collector,
		cfg:       cfg,
		x:         x0.Clone(),
		x0:        x0.Clone(),
		running:   true,
		energies:  make([]float64, 0, historyCapacity),
		params:    params,
		paramKeys: keys,
	}
	if err := m.recordEnergy(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Monitor) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.cfg.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Monitor) Init() tea.Cmd {
	return m.tick()
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "c":
			if m.ctx.IsCachingDisabled() {
				m.ctx.EnableCaching()
			} else {
				m.ctx.DisableCaching()
			}
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		}
	case TickMsg:
		if m.running && m.err == nil {
			for i := 0; i < m.cfg.StepsPerFrame; i++ {
				if err := m.Step(); err != nil {
					m.err = err
					break
				}
			}
		}
		return m, m.tick()
	}
	return m, nil
}

// Step advances the model by one step of Dt.
func (m *Monitor) Step() error {
	x, err := m.integ.Step(m.plant, m.x, m.t, m.cfg.Dt)
	if err != nil {
		return err
	}
	m.t += m.cfg.Dt
	m.x = x
	if err := m.plant.SetState(m.t, m.x); err != nil {
		return err
	}
	return m.recordEnergy()
}

func (m *Monitor) recordEnergy() error {
	e, err := m.model.Energy(m.ctx)
	if err != nil {
		return err
	}
	if len(m.energies) >= historyCapacity {
		m.energies = m.energies[1:]
	}
	m.energies = append(m.energies, e)
	return nil
}

func (m *Monitor) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	v := m.params[key] * factor
	if err := m.model.SetParam(m.ctx, key, v); err != nil {
		m.err = err
		return
	}
	m.params[key] = v
}

func (m *Monitor) reset() {
	m.t = 0
	m.x = m.x0.Clone()
	m.err = nil
	m.energies = m.energies[:0]
	if err := m.plant.SetState(m.t, m.x); err != nil {
		m.err = err
		return
	}
	if err := m.recordEnergy(); err != nil {
		m.err = err
	}
}

// Time returns the simulated time.
func (m *Monitor) Time() float64 {
	return m.t
}

// State returns the current stacked state.
func (m *Monitor) State() framework.Vector {
	return m.x
}

func (m *Monitor) Err() error {
	return m.err
}

func (m *Monitor) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.model.Name())) + "\n")

	status := "RUNNING"
	switch {
	case m.err != nil:
		status = "ERROR: " + m.err.Error()
	case !m.running:
		status = "PAUSED"
	}
	if m.ctx.IsCachingDisabled() {
		status += "  (caching off)"
	}
	s.WriteString(status + "\n")

	if len(m.energies) > 1 {
		chart := asciigraph.Plot(m.energies, asciigraph.Height(6), asciigraph.Width(50), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	energy := 0.0
	if len(m.energies) > 0 {
		energy = m.energies[len(m.energies)-1]
	}
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.t)) + "\n")
	s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.4f", energy)) + "\n")

	stats := m.ctx.Stats()
	s.WriteString("\nCACHE\n")
	s.WriteString(labelStyle.Render("Hits") + valueStyle.Render(fmt.Sprintf("%d", stats.Hits)) + "\n")
	s.WriteString(labelStyle.Render("Recomputes") + valueStyle.Render(fmt.Sprintf("%d", stats.Recomputes)) + "\n")
	s.WriteString(labelStyle.Render("Invalidated") + valueStyle.Render(fmt.Sprintf("%d", stats.Invalidations)) + "\n")
	ratio := 0.0
	if total := stats.Hits + stats.Recomputes; total > 0 {
		ratio = float64(stats.Hits) / float64(total)
	}
	s.WriteString(labelStyle.Render("Hit ratio") + HitBar(ratio, 20) + fmt.Sprintf(" %.0f%%", ratio*100) + "\n")
	if m.collector != nil {
		if totals, err := m.collector.Totals(); err == nil {
			s.WriteString(labelStyle.Render("Changes") + valueStyle.Render(fmt.Sprintf("%.0f", totals.Changes)) + "\n")
		}
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-14s %.4g", k, m.params[k])
		if i == m.selected {
			s.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}

	s.WriteString(helpStyle.Render("SP:Pause R:Reset C:Cache Q:Quit\nTab:Param ↑↓:Tune"))
	return panelStyle.Render(s.String())
}

// RunMonitor runs m as a full-screen Bubble Tea program.
func RunMonitor(m *Monitor) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	if err != nil {
		return err
	}
	return m.Err()
}
