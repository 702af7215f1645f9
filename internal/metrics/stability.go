package metrics

import (
	"math"

	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/motor"
)

// Peak records the largest magnitude of one state component.
type Peak struct {
	name  string
	index int
	peak  float64
}

func NewPeakCurrent() *Peak {
	return &Peak{name: "peak_current", index: motor.Current}
}

func NewPeakSpeed() *Peak {
	return &Peak{name: "peak_speed", index: motor.Speed}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if p.index < len(x) {
		p.peak = math.Max(p.peak, math.Abs(x[p.index]))
	}
}

func (p *Peak) Value() float64 { return p.peak }

func (p *Peak) Reset() { p.peak = 0 }

// CurrentLimit is the fraction of samples whose current stays within
// [lo, hi]. Either bound may be infinite.
type CurrentLimit struct {
	name       string
	lo, hi     float64
	violations int
	samples    int
}

func NewCurrentLimit(lo, hi float64) *CurrentLimit {
	return &CurrentLimit{
		name: "current_within_limit",
		lo:   lo,
		hi:   hi,
	}
}

func (s *CurrentLimit) Name() string {
	return s.name
}

func (s *CurrentLimit) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	if i := x[motor.Current]; i < s.lo || i > s.hi {
		s.violations++
	}
}

func (s *CurrentLimit) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *CurrentLimit) Reset() {
	s.violations = 0
	s.samples = 0
}
