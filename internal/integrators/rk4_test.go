package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/motorsim/internal/dynamo"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (s *simpleDynamics) StateDim() int   { return 2 }
func (s *simpleDynamics) ControlDim() int { return 0 }

// lag is a first-order lag driven by u: dx/dt = (u - x) / tau.
type lag struct{ tau float64 }

func (l *lag) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{(u[0] - x[0]) / l.tau}
}

func (l *lag) StateDim() int   { return 1 }
func (l *lag) ControlDim() int { return 1 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewRK4()

	x0 := dynamo.State{1.0, 0.0}
	u := dynamo.Control{}
	dt := 0.01
	steps := 100

	x := x0
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, u, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerSingleStep(t *testing.T) {
	integ := NewEuler()
	dyn := &lag{tau: 0.5}

	x := integ.Step(dyn, dynamo.State{1}, dynamo.Control{3}, 0, 0.1)

	want := 1 + 0.1*(3-1)/0.5
	if x[0] != want {
		t.Errorf("expected %f, got %f", want, x[0])
	}
}

func TestIntegratorsDoNotMutateInput(t *testing.T) {
	dyn := &simpleDynamics{}
	for name, integ := range map[string]dynamo.Integrator{
		"euler": NewEuler(),
		"rk4":   NewRK4(),
		"rk45":  NewRK45(),
	} {
		x := dynamo.State{1, 2}
		next := integ.Step(dyn, x, nil, 0, 0.1)
		if x[0] != 1 || x[1] != 2 {
			t.Errorf("%s: input state mutated to %v", name, x)
		}
		again := integ.Step(dyn, x, nil, 0, 0.1)
		if next[0] != again[0] || next[1] != again[1] {
			t.Errorf("%s: not deterministic: %v vs %v", name, next, again)
		}
	}
}

func TestLagConvergence(t *testing.T) {
	dyn := &lag{tau: 0.2}
	u := dynamo.Control{5}
	dt := 0.001
	steps := 1000

	exact := 5 - 5*math.Exp(-float64(steps)*dt/dyn.tau)

	tests := []struct {
		name  string
		integ dynamo.Integrator
		tol   float64
	}{
		{"euler", NewEuler(), 1e-2},
		{"rk4", NewRK4(), 1e-9},
		{"rk45", NewRK45(), 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := dynamo.State{0}
			for i := 0; i < steps; i++ {
				x = tt.integ.Step(dyn, x, u, float64(i)*dt, dt)
			}
			if math.Abs(x[0]-exact) > tt.tol {
				t.Errorf("expected %.9f, got %.9f", exact, x[0])
			}
		})
	}
}
