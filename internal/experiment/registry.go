package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/integrators"
	"github.com/san-kum/motorsim/internal/metrics"
	"github.com/san-kum/motorsim/internal/signals"
	"github.com/san-kum/motorsim/internal/sim"
)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics picks the metrics that make sense for the configured mode.
// ref is the built reference signal of cfg.
func (r *Registry) DefaultMetrics(cfg *config.Config, ref signals.Signal) []dynamo.Metric {
	ms := []dynamo.Metric{
		metrics.NewControlEffort(),
		metrics.NewCopperLoss(cfg.Motor.Ra),
		metrics.NewPeakCurrent(),
		metrics.NewPeakSpeed(),
	}

	if cfg.Simulation.Mode != sim.ModeOpen {
		ms = append(ms, metrics.NewTrackingIAE(ref))
	}
	// the speed loop output is the current reference, so its limits bound
	// the current the inner loop is asked for
	if cfg.Simulation.Mode == sim.ModeCascade {
		if lo, hi := cfg.SpeedPID.Limits(); !math.IsInf(lo, -1) || !math.IsInf(hi, 1) {
			ms = append(ms, metrics.NewCurrentLimit(lo, hi))
		}
	}
	return ms
}
