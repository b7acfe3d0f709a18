package config

import "sort"

func preset(model string, dt, duration float64, x0 []float64, tweak func(*Config)) *Config {
	c := DefaultConfig()
	c.Model = model
	c.Dt = dt
	c.Duration = duration
	c.InitState = x0
	if tweak != nil {
		tweak(c)
	}
	return c
}

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small": preset("pendulum", 0.01, 20.0, []float64{0.2, 0.0}, nil),
		"large": preset("pendulum", 0.01, 20.0, []float64{2.5, 0.0}, func(c *Config) {
			c.Params = map[string]float64{"damping": 0.05}
		}),
	},
	"spring_mass": {
		"bounce": preset("spring_mass", 0.01, 20.0, []float64{2.0, 0.0}, nil),
		"stiff": preset("spring_mass", 0.001, 5.0, []float64{0.5, 0.0}, func(c *Config) {
			c.Params = map[string]float64{"stiffness": 400, "damping": 0.1}
		}),
	},
	"bank": {
		"pair": preset("bank", 0.01, 10.0, []float64{1.0, 0.0, -0.5, 0.0}, func(c *Config) {
			c.Bank.Masses = 2
		}),
		"quartet": preset("bank", 0.005, 10.0, nil, func(c *Config) {
			c.Bank.Masses = 4
			c.Params = map[string]float64{"m3/stiffness": 40}
			c.Inputs = map[string]float64{"bank/m0/force": 0.5}
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	c.InitState = append([]float64(nil), cfg.InitState...)
	c.Params = copyMap(cfg.Params)
	c.Inputs = copyMap(cfg.Inputs)
	return &c
}

// ListPresets returns the preset names for model in sorted order.
func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
