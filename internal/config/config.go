package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/systree/internal/telemetry"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultTheta    = 0.5
	DefaultMasses   = 2
)

type Config struct {
	Model      string                  `yaml:"model"`
	Integrator string                  `yaml:"integrator"`
	Dt         float64                 `yaml:"dt"`
	Duration   float64                 `yaml:"duration"`
	InitState  []float64               `yaml:"init_state,omitempty"`
	Params     map[string]float64      `yaml:"params,omitempty"`
	Inputs     map[string]float64      `yaml:"inputs,omitempty"`
	Bank       BankConfig              `yaml:"bank"`
	Caching    CachingConfig           `yaml:"caching"`
	Logging    telemetry.LoggingConfig `yaml:"logging"`
}

type BankConfig struct {
	Masses int `yaml:"masses"`
}

type CachingConfig struct {
	// Enabled turns the cache on; disabling it recomputes every read.
	Enabled bool `yaml:"enabled"`

	// CheckContext validates the context before every run.
	CheckContext bool `yaml:"check_context"`

	// Verify reruns the model uncached and fails on any difference.
	Verify bool `yaml:"verify"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "pendulum",
		Integrator: "rk4",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Bank:       BankConfig{Masses: DefaultMasses},
		Caching:    CachingConfig{Enabled: true, CheckContext: true},
		Logging:    telemetry.DefaultLoggingConfig(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %g", c.Duration)
	}
	if c.Duration < c.Dt {
		return fmt.Errorf("config: duration %g is shorter than one step", c.Duration)
	}
	if c.Model == "bank" && c.Bank.Masses < 1 {
		return fmt.Errorf("config: bank needs at least one mass, got %d", c.Bank.Masses)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// GetInitState returns the initial stacked state with dim elements. Values
// from InitState are used first and the rest is zero. Without InitState a
// model-specific default displacement is applied.
func (c *Config) GetInitState(dim int) []float64 {
	x := make([]float64, dim)
	if len(c.InitState) > 0 {
		copy(x, c.InitState)
		return x
	}
	switch c.Model {
	case "bank":
		// Alternate displacements so the leaves do not move in lockstep.
		for i := 0; i+1 < dim; i += 2 {
			x[i] = float64(i/2+1) * 0.25
		}
	case "spring_mass":
		if dim > 0 {
			x[0] = 1.0
		}
	default:
		if dim > 0 {
			x[0] = DefaultTheta
		}
	}
	return x
}
