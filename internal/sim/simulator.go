package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/signals"
	"go.uber.org/zap"
)

type Simulator struct {
	plant      dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	logger     *zap.Logger
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(ms ...dynamo.Metric) Option {
	return func(s *Simulator) {
		s.metrics = append(s.metrics, ms...)
	}
}

func New(plant dynamo.System, integrator dynamo.Integrator, opts ...Option) *Simulator {
	s := &Simulator{
		plant:      plant,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric) { s.metrics = append(s.metrics, m) }

// UpdateInterval converts a controller period into a whole number of
// micro-steps: max(1, round(period/dt)).
func UpdateInterval(period, dt float64) int {
	n := int(math.Round(period / dt))
	if n < 1 {
		return 1
	}
	return n
}

// Run executes exactly cfg.Steps() micro-steps. Errors are only returned for
// invalid setups; once the loop starts it always completes.
func (s *Simulator) Run(req Request, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.plant.StateDim() != 2 || s.plant.ControlDim() != 1 {
		return nil, fmt.Errorf("%w: plant must have 2 states and 1 input, got %d/%d",
			dynamo.ErrDimensionMismatch, s.plant.StateDim(), s.plant.ControlDim())
	}

	x0, err := s.initialState(req)
	if err != nil {
		return nil, err
	}

	pol, err := s.policyFor(req, cfg.Dt)
	if err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	s.logger.Debug("starting run",
		zap.String("mode", req.Mode()),
		zap.Int("steps", steps),
		zap.Float64("dt", cfg.Dt),
		zap.Float64("duration", cfg.Duration),
	)

	for _, m := range s.metrics {
		m.Reset()
	}

	refs, withRef := pol.(currentReferencer)
	traj := newTrajectory(steps, withRef)

	x := x0
	u := make(dynamo.Control, 1)
	dt := cfg.Dt

	for j := 0; j < steps; j++ {
		t := float64(j) * dt

		// Any due controller update happens before the plant sees u.
		u[0] = pol.voltage(j, t, x)

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}

		traj.Time = append(traj.Time, t)
		traj.Voltage = append(traj.Voltage, u[0])
		traj.Current = append(traj.Current, x[motor.Current])
		traj.Speed = append(traj.Speed, x[motor.Speed])
		if withRef {
			traj.CurrentRef = append(traj.CurrentRef, refs.currentRef())
		}

		x = s.integrator.Step(s.plant, x, u, t, dt)
	}

	result := &Result{
		Mode:       req.Mode(),
		Trajectory: traj,
		Final:      x,
		Metrics:    make(map[string]float64, len(s.metrics)),
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) initialState(req Request) (dynamo.State, error) {
	x0 := req.initial()
	if x0 == nil {
		return make(dynamo.State, s.plant.StateDim()), nil
	}
	if len(x0) != s.plant.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d entries, want %d",
			dynamo.ErrInvalidState, len(x0), s.plant.StateDim())
	}
	return x0.Clone(), nil
}

// policyFor validates a request and builds its per-step voltage schedule.
// Controllers are reset here so every run starts from idle.
func (s *Simulator) policyFor(req Request, dt float64) (policy, error) {
	switch r := req.(type) {
	case OpenLoop:
		if r.Reference == nil {
			return nil, fmt.Errorf("%w: open loop needs a voltage reference", dynamo.ErrMissingInput)
		}
		return &openPolicy{ref: r.Reference}, nil

	case ClosedLoop:
		if r.Controller == nil {
			return nil, fmt.Errorf("%w: closed loop needs a controller", dynamo.ErrMissingInput)
		}
		r.Controller.Reset()
		n := s.interval("speed", r.Controller, dt)
		return &closedPolicy{pid: r.Controller, every: n}, nil

	case Cascade:
		if r.Speed == nil || r.Current == nil {
			return nil, fmt.Errorf("%w: cascade needs a speed and a current controller", dynamo.ErrMissingInput)
		}
		if r.Speed == r.Current {
			return nil, fmt.Errorf("%w: cascade loops must use distinct controllers", dynamo.ErrParameterBounds)
		}
		r.Speed.Reset()
		r.Current.Reset()
		return &cascadePolicy{
			speed:        r.Speed,
			current:      r.Current,
			speedEvery:   s.interval("speed", r.Speed, dt),
			currentEvery: s.interval("current", r.Current, dt),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %T", dynamo.ErrUnknownRequest, req)
	}
}

func (s *Simulator) interval(loop string, pid *control.PID, dt float64) int {
	ratio := pid.Period() / dt
	n := UpdateInterval(pid.Period(), dt)
	if math.Abs(ratio-float64(n)) > 1e-9*math.Max(1, ratio) {
		s.logger.Warn("controller period is not a multiple of dt, sample instants will drift",
			zap.String("loop", loop),
			zap.Float64("period", pid.Period()),
			zap.Float64("dt", dt),
			zap.Int("interval", n),
			zap.Float64("effective_period", float64(n)*dt),
		)
	}
	s.logger.Debug("controller schedule",
		zap.String("loop", loop),
		zap.Int("interval", n),
	)
	return n
}

type policy interface {
	// voltage returns the armature voltage held over micro-step j.
	voltage(j int, t float64, x dynamo.State) float64
}

type currentReferencer interface {
	currentRef() float64
}

type openPolicy struct {
	ref signals.Signal
}

func (p *openPolicy) voltage(_ int, t float64, _ dynamo.State) float64 {
	return p.ref(t)
}

type closedPolicy struct {
	pid   *control.PID
	every int
	held  float64
}

func (p *closedPolicy) voltage(j int, t float64, x dynamo.State) float64 {
	if j%p.every == 0 {
		p.held = p.pid.Calculate(x[motor.Speed], t)
	}
	return p.held
}

type cascadePolicy struct {
	speed        *control.PID
	current      *control.PID
	speedEvery   int
	currentEvery int

	heldRef  float64
	heldVolt float64
}

func (p *cascadePolicy) voltage(j int, t float64, x dynamo.State) float64 {
	if j%p.speedEvery == 0 {
		p.heldRef = p.speed.Calculate(x[motor.Speed], t)
	}
	if j%p.currentEvery == 0 {
		p.heldVolt = p.current.CalculateWithSetpoint(p.heldRef, x[motor.Current], t)
	}
	return p.heldVolt
}

func (p *cascadePolicy) currentRef() float64 { return p.heldRef }
