package metrics

import (
	"math"

	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/signals"
)

// TrackingIAE is the integral of |reference(t) - speed| over the run, with
// the same sample-and-hold weighting as CopperLoss.
type TrackingIAE struct {
	name    string
	ref     signals.Signal
	sum     float64
	lastE   float64
	lastT   float64
	lastDt  float64
	started bool
}

func NewTrackingIAE(ref signals.Signal) *TrackingIAE {
	return &TrackingIAE{
		name: "speed_iae",
		ref:  ref,
	}
}

func (m *TrackingIAE) Name() string { return m.name }

func (m *TrackingIAE) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if m.started {
		m.lastDt = t - m.lastT
		m.sum += m.lastE * m.lastDt
	}
	m.lastE = math.Abs(m.ref(t) - x[motor.Speed])
	m.lastT = t
	m.started = true
}

func (m *TrackingIAE) Value() float64 { return m.sum + m.lastE*m.lastDt }

func (m *TrackingIAE) Reset() {
	m.sum = 0
	m.lastE = 0
	m.lastT = 0
	m.lastDt = 0
	m.started = false
}
