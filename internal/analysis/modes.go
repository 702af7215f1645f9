package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Linear is anything that exposes a linear state-space model.
type Linear interface {
	Linearize() (a, b *mat.Dense)
}

// Mode is one eigenvalue of the state matrix.
type Mode struct {
	Eigenvalue complex128 `json:"-"`
	Real       float64    `json:"real"`
	Imag       float64    `json:"imag"`
	// TimeConstant is -1/Re(lambda); +Inf for modes that do not decay.
	TimeConstant float64 `json:"time_constant"`
	// NaturalFreq is |lambda| in rad/s.
	NaturalFreq float64 `json:"natural_freq"`
}

type ModeReport struct {
	Modes  []Mode `json:"modes"`
	Stable bool   `json:"stable"`
	// EulerMaxDt is the largest dt for which explicit Euler keeps every
	// mode inside the unit circle, min(-2*Re/|lambda|^2).
	EulerMaxDt float64 `json:"euler_max_dt"`
}

var ErrNoEigen = errors.New("analysis: eigen decomposition failed")

// Modes decomposes the state matrix of sys. Modes are sorted slowest first.
func Modes(sys Linear) (*ModeReport, error) {
	a, _ := sys.Linearize()

	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenNone); !ok {
		return nil, ErrNoEigen
	}
	values := eig.Values(nil)

	report := &ModeReport{
		Modes:      make([]Mode, 0, len(values)),
		Stable:     true,
		EulerMaxDt: math.Inf(1),
	}

	for _, v := range values {
		m := Mode{
			Eigenvalue:   v,
			Real:         real(v),
			Imag:         imag(v),
			TimeConstant: math.Inf(1),
			NaturalFreq:  cmplx.Abs(v),
		}
		if real(v) < 0 {
			m.TimeConstant = -1 / real(v)
			if bound := -2 * real(v) / (m.NaturalFreq * m.NaturalFreq); bound < report.EulerMaxDt {
				report.EulerMaxDt = bound
			}
		} else {
			report.Stable = false
			report.EulerMaxDt = 0
		}
		report.Modes = append(report.Modes, m)
	}

	sort.Slice(report.Modes, func(i, j int) bool {
		return report.Modes[i].TimeConstant > report.Modes[j].TimeConstant
	})

	return report, nil
}
