package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/motorsim/internal/config"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/signals"
	"github.com/san-kum/motorsim/internal/sim"
	"go.uber.org/zap"
)

// Experiment is one fully wired run built from a config: the motor, the
// integrator, the metrics and the typed request with fresh controllers.
type Experiment struct {
	cfg       *config.Config
	plant     *motor.Motor
	simulator *sim.Simulator
	request   sim.Request
}

type Option func(*options)

type options struct {
	logger   *zap.Logger
	registry *Registry
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// New validates cfg and builds an experiment from it. The config is copied,
// so later changes to cfg do not affect the experiment.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	plant, err := motor.New(cfg.Motor)
	if err != nil {
		return nil, err
	}

	integ, err := o.registry.GetIntegrator(cfg.Simulation.Integrator)
	if err != nil {
		return nil, err
	}

	ref, err := cfg.Reference.Build()
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}

	req, err := Request(cfg, ref)
	if err != nil {
		return nil, err
	}

	s := sim.New(plant, integ,
		sim.WithLogger(o.logger),
		sim.WithMetrics(o.registry.DefaultMetrics(cfg, ref)...),
	)

	return &Experiment{
		cfg:       cfg,
		plant:     plant,
		simulator: s,
		request:   req,
	}, nil
}

// Request converts the configured mode into a typed run request. ref is the
// voltage reference in open loop and the speed setpoint otherwise.
func Request(cfg *config.Config, ref signals.Signal) (sim.Request, error) {
	x0 := dynamo.State(cfg.GetInitState())

	switch cfg.Simulation.Mode {
	case sim.ModeOpen:
		return sim.OpenLoop{Reference: ref, X0: x0}, nil

	case sim.ModeClosed:
		pid, err := cfg.SpeedPID.Build(ref)
		if err != nil {
			return nil, fmt.Errorf("speed_pid: %w", err)
		}
		return sim.ClosedLoop{Controller: pid, X0: x0}, nil

	case sim.ModeCascade:
		speed, err := cfg.SpeedPID.Build(ref)
		if err != nil {
			return nil, fmt.Errorf("speed_pid: %w", err)
		}
		current, err := cfg.CurrentPID.Build(nil)
		if err != nil {
			return nil, fmt.Errorf("current_pid: %w", err)
		}
		return sim.Cascade{Speed: speed, Current: current, X0: x0}, nil

	default:
		return nil, fmt.Errorf("%w: mode %q", dynamo.ErrUnknownRequest, cfg.Simulation.Mode)
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.simulator.Run(e.request, e.SimConfig())
}

// Job exposes the experiment as a batch job for sim.RunBatch.
func (e *Experiment) Job() sim.Job {
	return sim.Job{Sim: e.simulator, Request: e.request, Config: e.SimConfig()}
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:       e.cfg.Simulation.Dt,
		Duration: e.cfg.Simulation.Duration,
	}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Motor() *motor.Motor { return e.plant }
