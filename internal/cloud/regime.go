package cloud

import (
	"fmt"

	"github.com/banshee-data/debris-cloud/internal/breakup"
)

// Regime tags the size class of a characteristic length.
type Regime int

const (
	Small Regime = iota
	Medium
	Large

	numRegimes = 3
)

// Regimes lists every regime in ascending size order.
var Regimes = [numRegimes]Regime{Small, Medium, Large}

// RegimeOf classifies lc. The medium regime is closed on both ends, so 0.08
// and 0.11 are both medium.
func RegimeOf(lc float64) Regime {
	switch {
	case lc < breakup.SmallUpperBound:
		return Small
	case lc <= breakup.LargeLowerBound:
		return Medium
	default:
		return Large
	}
}

func (r Regime) String() string {
	switch r {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return fmt.Sprintf("Regime(%d)", int(r))
	}
}

// PackingDensity is the initial packing density of a sub-cloud in this
// regime. Smaller fragments spread into a larger relative volume because of
// their higher ejection speeds.
func (r Regime) PackingDensity() float64 {
	switch r {
	case Small:
		return 0.55
	case Medium:
		return 0.65
	default:
		return 0.75
	}
}

// ShapeParams are the empirical parameters of the radial density profile.
//
//	Mu     mean radius as a fraction of the sub-cloud radius
//	Rho0   peak density
//	Sigma0 dispersion at t=0 before length scaling
//	Alpha  length exponent of the dispersion
//	Gamma  linear growth rate of the dispersion with time
type ShapeParams struct {
	Mu, Rho0, Sigma0, Alpha, Gamma float64
}

// Shape returns the density-profile parameters of the regime, tuned so that
// roughly 75% (small), 90% (medium) and 99% (large) of the sampled fragments
// land inside their sub-cloud radius.
func (r Regime) Shape() ShapeParams {
	switch r {
	case Small:
		return ShapeParams{Mu: 0.64, Rho0: 3.0, Sigma0: 0.12, Alpha: 0.5, Gamma: 0.005}
	case Medium:
		return ShapeParams{Mu: 0.60, Rho0: 4.0, Sigma0: 0.062, Alpha: 0.65, Gamma: 0.003}
	default:
		return ShapeParams{Mu: 0.60, Rho0: 3.0, Sigma0: 0.047, Alpha: 0.69, Gamma: 0.001}
	}
}

// Steps holds the characteristic length discretization step of each regime.
type Steps struct {
	Small  float64 `json:"small"`
	Medium float64 `json:"medium"`
	Large  float64 `json:"large"`
}

// Step returns the step for r.
func (s Steps) Step(r Regime) float64 {
	switch r {
	case Small:
		return s.Small
	case Medium:
		return s.Medium
	default:
		return s.Large
	}
}
