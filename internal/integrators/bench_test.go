package integrators

import (
	"testing"

	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/motor"
)

func benchMotor(b *testing.B) dynamo.System {
	m, err := motor.New(motor.MaxonAMax32())
	if err != nil {
		b.Fatal(err)
	}
	return m
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := benchMotor(b)
	x := dynamo.State{0.0, 0.0}
	u := dynamo.Control{12}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 1e-6)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := benchMotor(b)
	x := dynamo.State{0.0, 0.0}
	u := dynamo.Control{12}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 1e-6)
	}
}

func BenchmarkRK45(b *testing.B) {
	integrator := NewRK45()
	dyn := benchMotor(b)
	x := dynamo.State{0.0, 0.0}
	u := dynamo.Control{12}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, u, 0, 1e-6)
	}
}
