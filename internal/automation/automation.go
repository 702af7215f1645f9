package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/experiment"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/signals"
	"github.com/san-kum/motorsim/internal/sim"
	"github.com/san-kum/motorsim/internal/storage"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run of a scenario. It starts from Preset, or the
// default config when empty, and applies the remaining fields on top.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Mode       string             `yaml:"mode"`
	Integrator string             `yaml:"integrator"`
	Reference  *signals.Spec      `yaml:"reference"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Set        map[string]float64 `yaml:"set"`
	Save       bool               `yaml:"save"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

// Config resolves the step into a full configuration.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}

	if s.Mode != "" {
		cfg.Simulation.Mode = s.Mode
	}
	if s.Integrator != "" {
		cfg.Simulation.Integrator = s.Integrator
	}
	if s.Reference != nil {
		cfg.Reference = *s.Reference
	}
	if s.Duration > 0 {
		cfg.Simulation.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Simulation.Dt = s.Dt
	}

	// map order is random; apply overrides in a stable order
	keys := make([]string, 0, len(s.Set))
	for k := range s.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := cfg.Set(k, s.Set[k]); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// StepResult is the outcome of one scenario step. RunID is empty unless the
// step was saved.
type StepResult struct {
	Name   string
	RunID  string
	Result *sim.Result
}

// RunScenario executes all steps in order. Steps marked save are written to
// store when it is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		logger.Info("running scenario step",
			zap.String("scenario", scenario.Name),
			zap.String("step", name),
			zap.Int("index", i+1),
			zap.Int("total", len(scenario.Steps)),
		)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Result: result}
		if step.Save && store != nil {
			sr.RunID, err = store.Save(exp.Config(), result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep varies one config key over NumSteps evenly spaced values
// in [Min, Max].
type ParameterSweep struct {
	Key      string
	Min      float64
	Max      float64
	NumSteps int
	Workers  int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	Value   float64
	Final   dynamo.State
	Metrics map[string]float64
}

// Values returns the swept parameter values.
func (p ParameterSweep) Values() []float64 {
	if p.NumSteps == 1 {
		return []float64{p.Min}
	}
	vals := make([]float64, p.NumSteps)
	step := (p.Max - p.Min) / float64(p.NumSteps-1)
	for i := range vals {
		vals[i] = p.Min + float64(i)*step
	}
	return vals
}

// RunSweep executes a parameter sweep on copies of base.
func RunSweep(ctx context.Context, base *config.Config, sweep ParameterSweep, logger *zap.Logger) ([]SweepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}

	values := sweep.Values()
	jobs := make([]sim.Job, 0, len(values))
	for _, v := range values {
		cfg := base.Clone()
		if err := cfg.Set(sweep.Key, v); err != nil {
			return nil, err
		}
		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Key, v, err)
		}
		jobs = append(jobs, exp.Job())
	}

	runs, err := sim.RunBatch(ctx, jobs, sweep.Workers)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, r := range runs {
		results[i] = SweepResult{Value: values[i], Final: r.Final, Metrics: r.Metrics}
	}

	logger.Info("sweep finished", zap.String("key", sweep.Key), zap.Int("runs", len(results)))
	return results, nil
}

// MonteCarloConfig scatters the motor parameters Ra, La, J, K and B
// uniformly within a relative tolerance around their nominal values.
type MonteCarloConfig struct {
	Tolerance float64
	NumTrials int
	Seed      int64
	Workers   int
	// Bound is the largest |state| a stable trial may end with; zero means
	// 1e6.
	Bound float64
}

// MonteCarloResult holds one trial
type MonteCarloResult struct {
	TrialID int
	Motor   motor.Params
	Final   dynamo.State
	Metrics map[string]float64
	Stable  bool // did the run stay bounded?
}

// RunMonteCarlo runs base with randomly perturbed motor parameters.
func RunMonteCarlo(ctx context.Context, base *config.Config, mc MonteCarloConfig, logger *zap.Logger) ([]MonteCarloResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mc.NumTrials < 1 {
		return nil, fmt.Errorf("monte carlo needs at least one trial, got %d", mc.NumTrials)
	}
	if mc.Tolerance < 0 || mc.Tolerance >= 1 {
		return nil, fmt.Errorf("tolerance must be in [0, 1), got %g", mc.Tolerance)
	}
	bound := mc.Bound
	if bound == 0 {
		bound = 1e6
	}

	rng := rand.New(rand.NewSource(mc.Seed))
	if mc.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	scatter := func(v float64) float64 {
		return v * (1 + (rng.Float64()*2-1)*mc.Tolerance)
	}

	results := make([]MonteCarloResult, mc.NumTrials)
	jobs := make([]sim.Job, mc.NumTrials)
	for trial := range jobs {
		cfg := base.Clone()
		p := &cfg.Motor
		p.Ra, p.La, p.J, p.K, p.B = scatter(p.Ra), scatter(p.La), scatter(p.J), scatter(p.K), scatter(p.B)

		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		jobs[trial] = exp.Job()
		results[trial] = MonteCarloResult{TrialID: trial, Motor: cfg.Motor}
	}

	runs, err := sim.RunBatch(ctx, jobs, mc.Workers)
	if err != nil {
		return nil, err
	}

	for i, r := range runs {
		results[i].Final = r.Final
		results[i].Metrics = r.Metrics
		results[i].Stable = bounded(r.Final, bound)
	}

	stable, unstable := MonteCarloStats(results)
	logger.Info("monte carlo finished",
		zap.Int("trials", len(results)),
		zap.Int("stable", stable),
		zap.Int("unstable", unstable),
	)
	return results, nil
}

func bounded(x dynamo.State, bound float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.Abs(v) > bound {
			return false
		}
	}
	return true
}

// MonteCarloStats counts stable and unstable trials
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

// MetricSpread returns the mean and sample standard deviation of a metric
// over the stable trials.
func MetricSpread(results []MonteCarloResult, name string) (mean, std float64, err error) {
	vals := make([]float64, 0, len(results))
	for _, r := range results {
		if !r.Stable {
			continue
		}
		v, ok := r.Metrics[name]
		if !ok {
			return 0, 0, fmt.Errorf("unknown metric: %s", name)
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return math.NaN(), math.NaN(), nil
	}
	mean, std = stat.MeanStdDev(vals, nil)
	return mean, std, nil
}
