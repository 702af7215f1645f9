package metrics

import (
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/motor"
)

// CopperLoss integrates the energy dissipated in the armature resistance,
// Ra*i^2, in joules. Each sample is held until the next one; the last sample
// is held for one more step so N samples cover N steps.
type CopperLoss struct {
	name    string
	ra      float64
	energy  float64
	lastP   float64
	lastT   float64
	lastDt  float64
	started bool
}

func NewCopperLoss(ra float64) *CopperLoss {
	return &CopperLoss{
		name: "copper_loss",
		ra:   ra,
	}
}

func (c *CopperLoss) Name() string { return c.name }

func (c *CopperLoss) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < 2 {
		return
	}
	if c.started {
		c.lastDt = t - c.lastT
		c.energy += c.lastP * c.lastDt
	}
	i := x[motor.Current]
	c.lastP = c.ra * i * i
	c.lastT = t
	c.started = true
}

func (c *CopperLoss) Value() float64 {
	return c.energy + c.lastP*c.lastDt
}

func (c *CopperLoss) Reset() {
	c.energy = 0
	c.lastP = 0
	c.lastT = 0
	c.lastDt = 0
	c.started = false
}
