// Package analysis post-processes motor models and finished runs.
//
// The package includes:
//
//   - [Modes]: eigenvalues of the linear model with time constants and the
//     largest step explicit Euler can take without diverging
//   - [StepInfo]: rise time, overshoot, settling time and steady-state error
//     of a recorded step response
//   - [PowerSpectrum]: magnitude spectrum of a uniformly sampled channel,
//     used to look at PWM and sampling ripple
//   - [NewPhasePortrait]: current/speed plane of a trajectory, rendered as
//     ASCII
//
// # Choosing a step size
//
// The electrical time constant of a small motor is usually two or three
// orders of magnitude below the mechanical one, so it bounds dt:
//
//	modes, err := analysis.Modes(m)
//	if cfg.Dt > modes.EulerMaxDt {
//	    // Euler will diverge
//	}
package analysis
