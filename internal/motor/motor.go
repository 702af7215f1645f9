package motor

import (
	"fmt"

	"github.com/san-kum/motorsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// State indices of the motor state vector.
const (
	Current = 0
	Speed   = 1
)

// Params are the physical constants of a brushed DC motor.
type Params struct {
	Ra float64 `yaml:"ra" json:"ra"` // armature resistance [Ohm]
	La float64 `yaml:"la" json:"la"` // armature inductance [H]
	J  float64 `yaml:"j" json:"j"`   // rotor inertia [kg*m^2]
	K  float64 `yaml:"k" json:"k"`   // motor constant [V/(rad/s)]
	B  float64 `yaml:"b" json:"b"`   // viscous friction [N*m*s/rad]
	TL float64 `yaml:"tl" json:"tl"` // load torque [N*m]
}

// MaxonAMax32 returns the parameters of the MAXON A-max 32 24 V motor.
func MaxonAMax32() Params {
	return Params{
		Ra: 3.99,
		La: 0.556e-3,
		J:  45.3e-6,
		K:  212.0 / 6.02 * 1e-3,
	}
}

func (p Params) Validate() error {
	if p.La == 0 {
		return fmt.Errorf("%w: armature inductance must be non-zero", dynamo.ErrParameterBounds)
	}
	if p.J == 0 {
		return fmt.Errorf("%w: rotor inertia must be non-zero", dynamo.ErrParameterBounds)
	}
	return nil
}

// Motor is the continuous-time electromechanical model. It holds no state
// of its own; the parameters never change after New.
type Motor struct {
	p Params
}

func New(p Params) (*Motor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Motor{p: p}, nil
}

func (m *Motor) Params() Params { return m.p }

func (m *Motor) StateDim() int   { return 2 }
func (m *Motor) ControlDim() int { return 1 }

// Derive returns [di/dt, dw/dt] for the state x under the armature voltage u[0].
func (m *Motor) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	volts := 0.0
	if len(u) > 0 {
		volts = u[0]
	}
	return m.derive(x, volts)
}

func (m *Motor) derive(x dynamo.State, volts float64) dynamo.State {
	i, w := x[Current], x[Speed]
	p := m.p

	di := (volts - p.Ra*i - p.K*w) / p.La
	dw := (p.K*i - p.B*w - p.TL) / p.J

	return dynamo.State{di, dw}
}

// ODE binds a voltage waveform to the model and returns the derivative as a
// function of (state, time).
func (m *Motor) ODE(u func(t float64) float64) func(x dynamo.State, t float64) dynamo.State {
	return func(x dynamo.State, t float64) dynamo.State {
		return m.derive(x, u(t))
	}
}

// Linearize returns the state-space matrices of dx/dt = A*x + B*[u, TL].
// The model is linear, so these are exact.
func (m *Motor) Linearize() (a, b *mat.Dense) {
	p := m.p
	a = mat.NewDense(2, 2, []float64{
		-p.Ra / p.La, -p.K / p.La,
		p.K / p.J, -p.B / p.J,
	})
	b = mat.NewDense(2, 2, []float64{
		1 / p.La, 0,
		0, -1 / p.J,
	})
	return a, b
}

// Steady returns the equilibrium state reached under a constant voltage.
func (m *Motor) Steady(volts float64) (dynamo.State, error) {
	a, b := m.Linearize()

	rhs := mat.NewVecDense(2, nil)
	rhs.MulVec(b, mat.NewVecDense(2, []float64{volts, m.p.TL}))
	rhs.ScaleVec(-1, rhs)

	var x mat.VecDense
	if err := x.SolveVec(a, rhs); err != nil {
		return nil, fmt.Errorf("steady state: %w", err)
	}
	return dynamo.State{x.AtVec(Current), x.AtVec(Speed)}, nil
}
