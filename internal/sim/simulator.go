package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/san-kum/systree/internal/framework"
	"github.com/san-kum/systree/internal/integrators"
	"github.com/san-kum/systree/internal/physics"
)

// StepObserver is notified after every accepted step. Returning false
// stops the run early.
type StepObserver func(step int, t float64, x framework.Vector, energy float64) bool

type Simulator struct {
	model      physics.Model
	integrator integrators.Integrator
	log        zerolog.Logger
	observers  []StepObserver
}

type Option func(*Simulator)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

func WithStepObserver(o StepObserver) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func New(model physics.Model, integrator integrators.Integrator, opts ...Option) *Simulator {
	s := &Simulator{
		model:      model,
		integrator: integrator,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run integrates the tree held by fctx from x0. fctx must have been
// allocated by the simulator's model.
func (s *Simulator) Run(ctx context.Context, fctx *framework.Context, x0 framework.Vector, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.CheckContext {
		if err := s.model.System().CheckValidContext(fctx); err != nil {
			return nil, err
		}
	}
	plant, err := NewPlant(fctx)
	if err != nil {
		return nil, err
	}
	if len(x0) != plant.StateDim() {
		return nil, fmt.Errorf("sim: %w: initial state has %d elements, model needs %d",
			framework.ErrDimensionMismatch, len(x0), plant.StateDim())
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Labels:   s.model.StateLabels(),
		Times:    make([]float64, 0, steps+1),
		States:   make([]framework.Vector, 0, steps+1),
		Energies: make([]float64, 0, steps+1),
	}

	x := x0.Clone()
	t := 0.0
	if err := plant.SetState(t, x); err != nil {
		return nil, err
	}
	initialEnergy, err := s.record(fctx, result, t, x)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("model", s.model.Name()).
		Int("steps", steps).
		Float64("dt", cfg.Dt).
		Bool("caching", !fctx.IsCachingDisabled()).
		Msg("run started")

	energy := initialEnergy
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.Stats = fctx.Stats()
			return result, ctx.Err()
		default:
		}

		newX, err := s.integrator.Step(plant, x, t, cfg.Dt)
		if err != nil {
			return result, &SimulationError{Step: i, Time: t, Err: err}
		}
		if cfg.ValidateState && !newX.IsValid() {
			return result, &SimulationError{Step: i, Time: t, Err: ErrInvalidState}
		}

		x = newX
		t += cfg.Dt
		if err := plant.SetState(t, x); err != nil {
			return result, &SimulationError{Step: i, Time: t, Err: err}
		}
		energy, err = s.record(fctx, result, t, x)
		if err != nil {
			return result, &SimulationError{Step: i, Time: t, Err: err}
		}
		result.StepsTaken++

		if !s.notify(i, t, x, energy) {
			break
		}
	}

	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(energy-initialEnergy) / math.Abs(initialEnergy)
	}
	result.Stats = fctx.Stats()

	s.log.Debug().
		Str("model", s.model.Name()).
		Int("steps", result.StepsTaken).
		Float64("energy_drift", result.EnergyDrift).
		Int64("cache_hits", result.Stats.Hits).
		Int64("cache_recomputes", result.Stats.Recomputes).
		Msg("run finished")
	return result, nil
}

// record appends the current sample and returns the model's energy.
func (s *Simulator) record(fctx *framework.Context, result *Result, t float64, x framework.Vector) (float64, error) {
	energy, err := s.model.Energy(fctx)
	if err != nil {
		return 0, err
	}
	result.Times = append(result.Times, t)
	result.States = append(result.States, x.Clone())
	result.Energies = append(result.Energies, energy)
	return energy, nil
}

func (s *Simulator) notify(step int, t float64, x framework.Vector, energy float64) bool {
	for _, o := range s.observers {
		if !o(step, t, x, energy) {
			return false
		}
	}
	return true
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	return nil
}
