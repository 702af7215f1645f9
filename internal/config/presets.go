package config

import (
	"sort"

	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/signals"
)

func limit(v float64) *float64 { return &v }

// Presets reproduce the reference runs on the MAXON A-max 32. Each call
// builds a fresh config so callers may modify the result.
var Presets = map[string]func() *Config{
	"open-square": func() *Config {
		return &Config{
			Motor:      motor.MaxonAMax32(),
			Simulation: SimulationConfig{Mode: "open", Integrator: "euler", Dt: 1e-5, Duration: 6},
			Reference:  signals.Spec{Kind: "square", Freq: 0.35, High: 12, Low: 0, Duty: 0.5},
		}
	},
	"open-triangle": func() *Config {
		return &Config{
			Motor:      motor.MaxonAMax32(),
			Simulation: SimulationConfig{Mode: "open", Integrator: "euler", Dt: 1e-5, Duration: 6},
			Reference:  signals.Spec{Kind: "triangle", Freq: 0.7, High: 12, Low: 0},
		}
	},
	"open-sine": func() *Config {
		return &Config{
			Motor:      motor.MaxonAMax32(),
			Simulation: SimulationConfig{Mode: "open", Integrator: "euler", Dt: 1e-5, Duration: 6},
			Reference:  signals.Spec{Kind: "sine", Freq: 0.7, Amp: 6, Offset: 6},
		}
	},
	"pid-square": func() *Config {
		return &Config{
			Motor:      motor.MaxonAMax32(),
			Simulation: SimulationConfig{Mode: "closed", Integrator: "euler", Dt: 1e-5, Duration: 6},
			Reference:  signals.Spec{Kind: "square", Freq: 0.35, High: 300, Low: 0},
			SpeedPID: PIDConfig{
				Gains: control.Gains{Kp: 5, Ki: 0.5, Kd: 0.05},
				Freq:  1e5,
				Min:   limit(0),
				Max:   limit(24),
			},
		}
	},
	"cascade-step": func() *Config {
		return &Config{
			Motor:      motor.MaxonAMax32(),
			Simulation: SimulationConfig{Mode: "cascade", Integrator: "euler", Dt: 1e-6, Duration: 0.5},
			Reference:  signals.Spec{Kind: "step", Value: 150, Delay: 0.1},
			SpeedPID: PIDConfig{
				Gains: control.Gains{Kp: 0.16, Ki: 4.44},
				Freq:  1e3,
				Min:   limit(-5),
				Max:   limit(5),
			},
			CurrentPID: PIDConfig{
				Gains: control.Gains{Kp: 1.85, Ki: 13280},
				Freq:  1e4,
				Min:   limit(0),
				Max:   limit(24),
			},
		}
	},
	"cascade-no-limits": func() *Config {
		return &Config{
			Motor:      motor.MaxonAMax32(),
			Simulation: SimulationConfig{Mode: "cascade", Integrator: "euler", Dt: 1e-6, Duration: 0.5},
			Reference:  signals.Spec{Kind: "step", Value: 150, Delay: 0.1},
			SpeedPID: PIDConfig{
				Gains: control.Gains{Kp: 0.16, Ki: 4.44},
				Freq:  1e3,
			},
			CurrentPID: PIDConfig{
				Gains: control.Gains{Kp: 1.85, Ki: 13280},
				Freq:  1e4,
			},
		}
	},
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
