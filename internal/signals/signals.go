package signals

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/motorsim/internal/dynamo"
)

// Signal is a reference waveform. Implementations must be pure functions of
// time: the orchestrator may evaluate the same instant more than once.
type Signal func(t float64) float64

func Constant(value float64) Signal {
	return func(float64) float64 { return value }
}

// Step is a Heaviside step that switches to value once t >= delay.
func Step(value, delay float64) Signal {
	return func(t float64) float64 {
		if t >= delay {
			return value
		}
		return 0
	}
}

// Square switches between high and low; duty is the fraction of each period
// spent high.
func Square(freq, high, low, duty float64) Signal {
	period := 1 / freq
	return func(t float64) float64 {
		if phase(t, period) < period*duty {
			return high
		}
		return low
	}
}

func Triangle(freq, high, low float64) Signal {
	period := 1 / freq
	amp := high - low
	return func(t float64) float64 {
		tm := phase(t, period)
		ramp := 2 * amp * tm / period
		if tm < period/2 {
			return low + ramp
		}
		return low + 2*amp - ramp
	}
}

func Sine(freq, amp, offset float64) Signal {
	omega := 2 * math.Pi * freq
	return func(t float64) float64 {
		return amp*math.Sin(omega*t) + offset
	}
}

// phase returns t modulo period, wrapped into [0, period).
func phase(t, period float64) float64 {
	m := math.Mod(t, period)
	if m < 0 {
		m += period
	}
	return m
}

// Spec describes a signal in configuration files.
type Spec struct {
	Kind   string  `yaml:"kind" json:"kind"`
	Value  float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Delay  float64 `yaml:"delay,omitempty" json:"delay,omitempty"`
	Freq   float64 `yaml:"freq,omitempty" json:"freq,omitempty"`
	High   float64 `yaml:"high,omitempty" json:"high,omitempty"`
	Low    float64 `yaml:"low,omitempty" json:"low,omitempty"`
	Duty   float64 `yaml:"duty,omitempty" json:"duty,omitempty"`
	Amp    float64 `yaml:"amp,omitempty" json:"amp,omitempty"`
	Offset float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// Build turns a spec into a signal. A zero duty cycle on a square wave
// defaults to 50%.
func (s Spec) Build() (Signal, error) {
	switch s.Kind {
	case "constant":
		return Constant(s.Value), nil
	case "step":
		return Step(s.Value, s.Delay), nil
	case "square":
		if s.Freq <= 0 {
			return nil, fmt.Errorf("%w: square wave freq must be positive, got %g", dynamo.ErrParameterBounds, s.Freq)
		}
		duty := s.Duty
		if duty == 0 {
			duty = 0.5
		}
		if duty < 0 || duty > 1 {
			return nil, fmt.Errorf("%w: duty cycle must be in [0, 1], got %g", dynamo.ErrParameterBounds, duty)
		}
		return Square(s.Freq, s.High, s.Low, duty), nil
	case "triangle":
		if s.Freq <= 0 {
			return nil, fmt.Errorf("%w: triangle wave freq must be positive, got %g", dynamo.ErrParameterBounds, s.Freq)
		}
		return Triangle(s.Freq, s.High, s.Low), nil
	case "sine":
		if s.Freq <= 0 {
			return nil, fmt.Errorf("%w: sine freq must be positive, got %g", dynamo.ErrParameterBounds, s.Freq)
		}
		return Sine(s.Freq, s.Amp, s.Offset), nil
	case "":
		return nil, fmt.Errorf("%w: signal kind not set", dynamo.ErrMissingInput)
	default:
		return nil, fmt.Errorf("unknown signal kind: %s", s.Kind)
	}
}

// Kinds lists the signal kinds accepted by Spec.Build.
func Kinds() []string {
	return []string{"constant", "step", "square", "triangle", "sine"}
}

// Parse reads the compact "kind:a,b,c" form used on the command line:
//
//	constant:12
//	step:150,0.1            value, delay
//	square:0.35,12,0,0.5    freq, high, low, duty
//	triangle:0.7,12,0       freq, high, low
//	sine:0.7,6,6            freq, amplitude, offset
func Parse(s string) (Spec, error) {
	kind, rest, _ := strings.Cut(strings.TrimSpace(s), ":")
	spec := Spec{Kind: kind}

	var args []float64
	if rest != "" {
		for _, field := range strings.Split(rest, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return Spec{}, fmt.Errorf("signal %q: %w", s, err)
			}
			args = append(args, v)
		}
	}

	var fields []*float64
	required := 0
	switch kind {
	case "constant":
		fields, required = []*float64{&spec.Value}, 1
	case "step":
		fields, required = []*float64{&spec.Value, &spec.Delay}, 1
	case "square":
		fields, required = []*float64{&spec.Freq, &spec.High, &spec.Low, &spec.Duty}, 3
	case "triangle":
		fields, required = []*float64{&spec.Freq, &spec.High, &spec.Low}, 3
	case "sine":
		fields, required = []*float64{&spec.Freq, &spec.Amp, &spec.Offset}, 2
	default:
		return Spec{}, fmt.Errorf("unknown signal kind: %q", kind)
	}

	if len(args) < required || len(args) > len(fields) {
		return Spec{}, fmt.Errorf("signal %q: %s takes %d to %d values, got %d", s, kind, required, len(fields), len(args))
	}
	for i, v := range args {
		*fields[i] = v
	}
	return spec, nil
}
