package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/signals"
	"github.com/spf13/cobra"
)

// numericFlags maps command line flags onto config keys.
var numericFlags = []struct {
	flag, key, usage string
}{
	{"dt", "simulation.dt", "timestep [s]"},
	{"time", "simulation.duration", "duration [s]"},
	{"kp", "speed_pid.kp", "speed pid kp"},
	{"ki", "speed_pid.ki", "speed pid ki"},
	{"kd", "speed_pid.kd", "speed pid kd"},
	{"freq", "speed_pid.freq", "speed pid frequency [Hz]"},
	{"min", "speed_pid.min", "speed pid lower output limit"},
	{"max", "speed_pid.max", "speed pid upper output limit"},
	{"current-kp", "current_pid.kp", "current pid kp"},
	{"current-ki", "current_pid.ki", "current pid ki"},
	{"current-kd", "current_pid.kd", "current pid kd"},
	{"current-freq", "current_pid.freq", "current pid frequency [Hz]"},
	{"current-min", "current_pid.min", "current pid lower output limit [V]"},
	{"current-max", "current_pid.max", "current pid upper output limit [V]"},
	{"load", "motor.tl", "load torque [N*m]"},
	{"i0", "init_state.current", "initial current [A]"},
	{"w0", "init_state.speed", "initial speed [rad/s]"},
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("preset", "", "use preset configuration")
	f.String("config", "", "config file path (yaml)")
	f.String("mode", "", "open, closed or cascade")
	f.String("integrator", "", "euler, rk4 or rk45")
	f.String("ref", "", "reference signal, e.g. step:150,0.1 or square:0.35,12,0")
	f.StringArray("set", nil, "override any numeric config key, e.g. motor.b=1e-6 (repeatable)")
	for _, nf := range numericFlags {
		f.Float64(nf.flag, 0, nf.usage)
	}
}

// buildConfig layers the preset, the config file and the flags, each
// overriding the previous one.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	cfg := config.DefaultConfig()

	if name, _ := f.GetString("preset"); name != "" {
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	if path, _ := f.GetString("config"); path != "" {
		loaded, err := config.LoadOver(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if f.Changed("mode") {
		cfg.Simulation.Mode, _ = f.GetString("mode")
	}
	if f.Changed("integrator") {
		cfg.Simulation.Integrator, _ = f.GetString("integrator")
	}
	if f.Changed("ref") {
		s, _ := f.GetString("ref")
		spec, err := signals.Parse(s)
		if err != nil {
			return nil, err
		}
		cfg.Reference = spec
	}

	for _, nf := range numericFlags {
		if !f.Changed(nf.flag) {
			continue
		}
		v, _ := f.GetFloat64(nf.flag)
		if err := cfg.Set(nf.key, v); err != nil {
			return nil, err
		}
	}

	sets, _ := f.GetStringArray("set")
	for _, kv := range sets {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected key=value", kv)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", kv, err)
		}
		if err := cfg.Set(key, v); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// parseGrid reads "key=v1,v2,..." entries.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, e := range entries {
		key, list, ok := strings.Cut(e, "=")
		if !ok || list == "" {
			return nil, nil, fmt.Errorf("--grid %q: expected key=v1,v2,...", e)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("--grid %q: %w", e, err)
			}
			vals = append(vals, v)
		}
		names = append(names, key)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}
