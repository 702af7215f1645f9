package analysis

import (
	"fmt"
	"math"
)

// StepResponse characterizes how a recorded output reached its target.
type StepResponse struct {
	Target float64 `json:"target"`
	Final  float64 `json:"final"`
	// RiseTime is the 10%..90% rise time; NaN if 90% was never reached.
	RiseTime float64 `json:"rise_time"`
	// Overshoot is the peak excursion past the target in percent of the
	// step size.
	Overshoot float64 `json:"overshoot"`
	// SettlingTime is the time after which the output stays within the
	// band; NaN if it never settles.
	SettlingTime     float64 `json:"settling_time"`
	SteadyStateError float64 `json:"steady_state_error"`
}

// StepInfo analyzes y(t) as the response to a step from y[0] to target,
// using band as the settling tolerance relative to the step size (0.02 is
// the usual 2%).
func StepInfo(time, y []float64, target, band float64) (StepResponse, error) {
	if len(time) != len(y) {
		return StepResponse{}, fmt.Errorf("time has %d samples, output %d", len(time), len(y))
	}
	if len(y) < 2 {
		return StepResponse{}, fmt.Errorf("need at least two samples, got %d", len(y))
	}

	start := y[0]
	size := target - start
	if size == 0 {
		return StepResponse{}, fmt.Errorf("target equals initial value %g", start)
	}
	dir := math.Copysign(1, size)

	r := StepResponse{
		Target:           target,
		Final:            y[len(y)-1],
		RiseTime:         math.NaN(),
		SettlingTime:     math.NaN(),
		SteadyStateError: target - y[len(y)-1],
	}

	lo := start + 0.1*size
	hi := start + 0.9*size
	tLo := math.NaN()
	peak := 0.0
	for k, v := range y {
		progress := (v - start) * dir
		if math.IsNaN(tLo) && progress >= (lo-start)*dir {
			tLo = time[k]
		}
		if math.IsNaN(r.RiseTime) && progress >= (hi-start)*dir {
			r.RiseTime = time[k] - tLo
		}
		if over := (v - target) * dir; over > peak {
			peak = over
		}
	}
	r.Overshoot = 100 * peak / math.Abs(size)

	tol := band * math.Abs(size)
	for k := len(y) - 1; k >= 0; k-- {
		if math.Abs(y[k]-target) > tol {
			if k < len(y)-1 {
				r.SettlingTime = time[k+1]
			}
			return r, nil
		}
	}
	r.SettlingTime = time[0]
	return r, nil
}
