// Package dynamo provides the shared simulation primitives of motorsim.
//
// The package defines the fundamental interfaces and types used by the
// plant, the integrators and the orchestrator:
//
//   - [State]: vector representing system state ([current, speed] for a motor)
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Metric]: per-step observers aggregated into a run summary
//
// # Example
//
//	m, _ := motor.New(motor.MaxonAMax32())
//	s := sim.New(m, integrators.NewEuler())
//	res, _ := s.Run(sim.OpenLoop{Reference: signals.Constant(12)}, cfg)
//
// # Errors
//
// Configuration problems are reported by wrapping one of the sentinel errors
// declared in this package, so callers can test them with errors.Is.
package dynamo
