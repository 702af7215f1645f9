// Package control provides the discrete PID controller used by the speed and
// current loops.
//
// A [PID] is sampled at its own frequency: the integral and derivative terms
// always use the configured period, and the orchestrator is responsible for
// calling it only on its sample instants. Between calls the orchestrator
// holds the last output.
//
// # Usage
//
//	pid, _ := control.NewPID(control.Gains{Kp: 0.16, Ki: 4.44}, 1e3,
//	    control.WithLimits(-5, 5),
//	    control.WithReference(signals.Step(150, 0.1)))
//	u := pid.Calculate(speed, t)
//
// Saturation uses conditional integration: when the output is clipped the
// integral contribution of that sample is removed again. At t == 0 the
// derivative term is zero because there is no previous error to difference
// against.
package control
