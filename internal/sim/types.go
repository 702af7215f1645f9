package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/signals"
)

const (
	ModeOpen    = "open"
	ModeClosed  = "closed"
	ModeCascade = "cascade"
)

// Request selects one of the three run modes. The set of implementations is
// closed: only the types in this package satisfy it.
type Request interface {
	Mode() string
	initial() dynamo.State
}

// OpenLoop drives the plant directly with a voltage reference.
type OpenLoop struct {
	Reference signals.Signal
	X0        dynamo.State
}

// ClosedLoop runs one speed PID whose output is the armature voltage.
type ClosedLoop struct {
	Controller *control.PID
	X0         dynamo.State
}

// Cascade runs an outer speed PID producing a current reference for an inner
// current PID producing the armature voltage.
type Cascade struct {
	Speed   *control.PID
	Current *control.PID
	X0      dynamo.State
}

func (OpenLoop) Mode() string   { return ModeOpen }
func (ClosedLoop) Mode() string { return ModeClosed }
func (Cascade) Mode() string    { return ModeCascade }

func (r OpenLoop) initial() dynamo.State   { return r.X0 }
func (r ClosedLoop) initial() dynamo.State { return r.X0 }
func (r Cascade) initial() dynamo.State    { return r.X0 }

type Config struct {
	Dt       float64 `yaml:"dt" json:"dt"`
	Duration float64 `yaml:"duration" json:"duration"`
}

// Steps is the number of micro-steps of a run, round(Duration/Dt).
func (c Config) Steps() int {
	return int(math.Round(c.Duration / c.Dt))
}

func (c Config) Validate() error {
	if c.Dt <= 0 || math.IsNaN(c.Dt) {
		return fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrParameterBounds, c.Dt)
	}
	if c.Duration <= 0 || math.IsNaN(c.Duration) {
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrParameterBounds, c.Duration)
	}
	if c.Steps() < 1 {
		return fmt.Errorf("%w: duration %g shorter than one step of %g", dynamo.ErrParameterBounds, c.Duration, c.Dt)
	}
	return nil
}

// Trajectory holds one sample per micro-step. Entry j is the state at
// t_j = j*dt together with the voltage held over [t_j, t_j+dt).
type Trajectory struct {
	Time    []float64 `json:"time"`
	Voltage []float64 `json:"voltage"`
	Current []float64 `json:"current"`
	Speed   []float64 `json:"speed"`

	// CurrentRef is the held output of the speed loop; only cascade runs
	// record it.
	CurrentRef []float64 `json:"current_ref,omitempty"`
}

func newTrajectory(n int, withRef bool) *Trajectory {
	tr := &Trajectory{
		Time:    make([]float64, 0, n),
		Voltage: make([]float64, 0, n),
		Current: make([]float64, 0, n),
		Speed:   make([]float64, 0, n),
	}
	if withRef {
		tr.CurrentRef = make([]float64, 0, n)
	}
	return tr
}

func (tr *Trajectory) Len() int { return len(tr.Time) }

// Dt returns the uniform step of the trajectory, or 0 if it has fewer than
// two samples.
func (tr *Trajectory) Dt() float64 {
	if len(tr.Time) < 2 {
		return 0
	}
	return tr.Time[1] - tr.Time[0]
}

// Channel returns a trajectory column by name.
func (tr *Trajectory) Channel(name string) ([]float64, error) {
	switch name {
	case "time", "t":
		return tr.Time, nil
	case "voltage", "u":
		return tr.Voltage, nil
	case "current", "i":
		return tr.Current, nil
	case "speed", "w":
		return tr.Speed, nil
	case "current_ref", "iref":
		if tr.CurrentRef == nil {
			return nil, fmt.Errorf("trajectory has no current reference")
		}
		return tr.CurrentRef, nil
	default:
		return nil, fmt.Errorf("unknown channel: %s", name)
	}
}

type Result struct {
	Mode       string             `json:"mode"`
	Trajectory *Trajectory        `json:"trajectory"`
	Final      dynamo.State       `json:"final"`
	Metrics    map[string]float64 `json:"metrics"`
}
