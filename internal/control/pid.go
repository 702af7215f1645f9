package control

import (
	"fmt"
	"math"

	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/signals"
)

type Gains struct {
	Kp float64 `yaml:"kp" json:"kp"`
	Ki float64 `yaml:"ki" json:"ki"`
	Kd float64 `yaml:"kd" json:"kd"`
}

// PID is a discrete PID controller sampled at a fixed frequency. The
// integral and derivative terms use the controller's own period, not the
// time between calls.
type PID struct {
	Gains
	Reference signals.Signal
	YMin      float64
	YMax      float64

	freq     float64
	dt       float64
	integral float64
	prevErr  float64
	running  bool

	last Diagnostics
}

type Option func(*PID)

// WithLimits saturates the output to [lo, hi].
func WithLimits(lo, hi float64) Option {
	return func(p *PID) {
		p.YMin = lo
		p.YMax = hi
	}
}

// WithReference sets the setpoint source used by Calculate.
func WithReference(ref signals.Signal) Option {
	return func(p *PID) {
		p.Reference = ref
	}
}

func NewPID(g Gains, freq float64, opts ...Option) (*PID, error) {
	if freq <= 0 || math.IsInf(freq, 0) || math.IsNaN(freq) {
		return nil, fmt.Errorf("%w: controller frequency must be positive, got %g", dynamo.ErrParameterBounds, freq)
	}

	p := &PID{
		Gains: g,
		YMin:  math.Inf(-1),
		YMax:  math.Inf(1),
		freq:  freq,
		dt:    1 / freq,
	}
	for _, opt := range opts {
		opt(p)
	}

	if math.IsNaN(p.YMin) || math.IsNaN(p.YMax) {
		return nil, fmt.Errorf("%w: output limits must be numbers", dynamo.ErrParameterBounds)
	}
	if p.YMin > p.YMax {
		return nil, fmt.Errorf("%w: output limits inverted (min %g > max %g)", dynamo.ErrParameterBounds, p.YMin, p.YMax)
	}
	return p, nil
}

func (p *PID) Freq() float64   { return p.freq }
func (p *PID) Period() float64 { return p.dt }

// Running reports whether an output has been computed since the last reset.
func (p *PID) Running() bool { return p.running }

func (p *PID) Integral() float64 { return p.integral }

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.running = false
	p.last = Diagnostics{}
}

// Calculate evaluates the controller against its own reference at time t.
func (p *PID) Calculate(measured, t float64) float64 {
	ref := 0.0
	if p.Reference != nil {
		ref = p.Reference(t)
	}
	return p.CalculateWithSetpoint(ref, measured, t)
}

// CalculateWithSetpoint evaluates the controller against an explicit
// setpoint. The inner loop of a cascade is driven this way.
func (p *PID) CalculateWithSetpoint(setpoint, measured, t float64) float64 {
	err := setpoint - measured

	p.integral += err * p.dt
	derivative := 0.0
	if t != 0 {
		derivative = (err - p.prevErr) / p.dt
	}

	pTerm := p.Kp * err
	iTerm := p.Ki * p.integral
	dTerm := p.Kd * derivative
	y := pTerm + iTerm + dTerm

	saturated := false
	if y > p.YMax {
		y = p.YMax
		saturated = true
	} else if y < p.YMin {
		y = p.YMin
		saturated = true
	}
	// Undo this step's integration while the output is pinned.
	if saturated {
		p.integral -= err * p.dt
	}

	p.prevErr = err
	p.running = true
	p.last = Diagnostics{
		Setpoint:  setpoint,
		Error:     err,
		Integral:  p.integral,
		P:         pTerm,
		I:         iTerm,
		D:         dTerm,
		Output:    y,
		Saturated: saturated,
	}

	return y
}

// Diagnostics is a snapshot of the last evaluation.
type Diagnostics struct {
	Setpoint  float64
	Error     float64
	Integral  float64
	P         float64
	I         float64
	D         float64
	Output    float64
	Saturated bool
}

func (p *PID) Diagnostics() Diagnostics { return p.last }
