package config

import (
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/signals"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 1e-5
	DefaultDuration   = 6.0
	DefaultIntegrator = "euler"
	DefaultMode       = "open"
)

// Modes accepted in the simulation section.
var Modes = []string{"open", "closed", "cascade"}

type Config struct {
	Motor      motor.Params     `yaml:"motor" json:"motor"`
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`
	// Reference is the voltage waveform in open loop and the speed
	// setpoint in closed loop and cascade.
	Reference  signals.Spec    `yaml:"reference" json:"reference"`
	SpeedPID   PIDConfig       `yaml:"speed_pid" json:"speed_pid"`
	CurrentPID PIDConfig       `yaml:"current_pid" json:"current_pid"`
	InitState  InitStateConfig `yaml:"init_state" json:"init_state"`
}

type SimulationConfig struct {
	Mode       string  `yaml:"mode" json:"mode"`
	Integrator string  `yaml:"integrator" json:"integrator"`
	Dt         float64 `yaml:"dt" json:"dt"`
	Duration   float64 `yaml:"duration" json:"duration"`
}

// PIDConfig describes one controller. Missing limits mean unbounded.
type PIDConfig struct {
	control.Gains `yaml:",inline"`
	Freq          float64  `yaml:"freq" json:"freq"`
	Min           *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max           *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

type InitStateConfig struct {
	Current float64 `yaml:"current" json:"current"`
	Speed   float64 `yaml:"speed" json:"speed"`
}

func DefaultConfig() *Config {
	return &Config{
		Motor: motor.MaxonAMax32(),
		Simulation: SimulationConfig{
			Mode:       DefaultMode,
			Integrator: DefaultIntegrator,
			Dt:         DefaultDt,
			Duration:   DefaultDuration,
		},
		Reference: signals.Spec{Kind: "constant", Value: 12},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a config file on top of base. Keys missing from the file
// keep the values of base; base itself is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
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

// Limits returns the output bounds, substituting infinities for missing ones.
func (p PIDConfig) Limits() (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	if p.Min != nil {
		lo = *p.Min
	}
	if p.Max != nil {
		hi = *p.Max
	}
	return lo, hi
}

// Build creates the controller, with ref as its setpoint signal (nil for an
// inner loop that receives its setpoint per call).
func (p PIDConfig) Build(ref signals.Signal) (*control.PID, error) {
	lo, hi := p.Limits()
	return control.NewPID(p.Gains, p.Freq, control.WithLimits(lo, hi), control.WithReference(ref))
}

func (p PIDConfig) validate(name string) error {
	var err error
	if p.Freq <= 0 || math.IsInf(p.Freq, 0) || math.IsNaN(p.Freq) {
		err = multierr.Append(err, fmt.Errorf("%s: freq must be positive and finite, got %g", name, p.Freq))
	}
	if lo, hi := p.Limits(); lo > hi {
		err = multierr.Append(err, fmt.Errorf("%s: min %g above max %g", name, lo, hi))
	}
	return err
}

func (c *Config) GetInitState() []float64 {
	return []float64{c.InitState.Current, c.InitState.Speed}
}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var err error

	err = multierr.Append(err, c.Motor.Validate())

	if c.Simulation.Dt <= 0 {
		err = multierr.Append(err, fmt.Errorf("simulation: dt must be positive, got %g", c.Simulation.Dt))
	}
	if c.Simulation.Duration <= 0 {
		err = multierr.Append(err, fmt.Errorf("simulation: duration must be positive, got %g", c.Simulation.Duration))
	}
	if !slices.Contains(Modes, c.Simulation.Mode) {
		err = multierr.Append(err, fmt.Errorf("simulation: unknown mode %q", c.Simulation.Mode))
	}

	if _, rerr := c.Reference.Build(); rerr != nil {
		err = multierr.Append(err, fmt.Errorf("reference: %w", rerr))
	}

	switch c.Simulation.Mode {
	case "closed":
		err = multierr.Append(err, c.SpeedPID.validate("speed_pid"))
	case "cascade":
		err = multierr.Append(err, c.SpeedPID.validate("speed_pid"))
		err = multierr.Append(err, c.CurrentPID.validate("current_pid"))
	}

	return err
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.SpeedPID = c.SpeedPID.clone()
	out.CurrentPID = c.CurrentPID.clone()
	return &out
}

func (p PIDConfig) clone() PIDConfig {
	if p.Min != nil {
		p.Min = limit(*p.Min)
	}
	if p.Max != nil {
		p.Max = limit(*p.Max)
	}
	return p
}

// Set assigns a numeric field by its dotted yaml path, for example
// "speed_pid.kp" or "motor.tl".
func (c *Config) Set(key string, value float64) error {
	fields := map[string]*float64{
		"motor.ra":            &c.Motor.Ra,
		"motor.la":            &c.Motor.La,
		"motor.j":             &c.Motor.J,
		"motor.k":             &c.Motor.K,
		"motor.b":             &c.Motor.B,
		"motor.tl":            &c.Motor.TL,
		"simulation.dt":       &c.Simulation.Dt,
		"simulation.duration": &c.Simulation.Duration,
		"speed_pid.kp":        &c.SpeedPID.Kp,
		"speed_pid.ki":        &c.SpeedPID.Ki,
		"speed_pid.kd":        &c.SpeedPID.Kd,
		"speed_pid.freq":      &c.SpeedPID.Freq,
		"current_pid.kp":      &c.CurrentPID.Kp,
		"current_pid.ki":      &c.CurrentPID.Ki,
		"current_pid.kd":      &c.CurrentPID.Kd,
		"current_pid.freq":    &c.CurrentPID.Freq,
		"init_state.current":  &c.InitState.Current,
		"init_state.speed":    &c.InitState.Speed,
	}

	switch key {
	case "speed_pid.min":
		c.SpeedPID.Min = limit(value)
		return nil
	case "speed_pid.max":
		c.SpeedPID.Max = limit(value)
		return nil
	case "current_pid.min":
		c.CurrentPID.Min = limit(value)
		return nil
	case "current_pid.max":
		c.CurrentPID.Max = limit(value)
		return nil
	}

	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	*f = value
	return nil
}
