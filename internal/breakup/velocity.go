package breakup

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

// quadNodes is the Gauss-Legendre order used for the expansion velocity
// integrals. The integrands are evaluated in log-space so that the steep
// power law is well resolved with a modest node count.
const quadNodes = 96

// speedFromAM converts an area-to-mass sample into an ejection speed (m/s).
func speedFromAM(am float64, bt BreakupType) float64 {
	if bt == Explosion {
		return 0.2*math.Log10(am) + 1.85
	}
	return 0.9*math.Log10(am) + 2.9
}

// EjectionSpeed samples the ejection speed (m/s) of a fragment of length lc
// from a fresh area-to-mass draw.
func EjectionSpeed(rng *rand.Rand, lc float64, bt BreakupType, ft FragmentType) float64 {
	return speedFromAM(AreaToMass(rng, math.Log10(lc), ft), bt)
}

// ExpansionVelocity returns the count-weighted mean ejection speed over
// [lmin, lmax]:
//
//	v = ∫ v̄(L)·n(L) dL / ∫ n(L) dL
//
// with n(L) = -dN/dL. Each evaluation of v̄ uses a fresh area-to-mass sample,
// as the reference model does. Invalid bounds, a zero denominator or any
// non-finite result degrade to 0.
func ExpansionVelocity(rng *rand.Rand, parentMass, lmin, lmax float64, bt BreakupType, ft FragmentType) float64 {
	if !(lmin > 0) || !(lmax > lmin) || (bt == Collision && !(parentMass > 0)) {
		monitoring.Degradef(monitoring.NumericDegenerate,
			"expansion velocity: invalid bounds mass=%g lmin=%g lmax=%g", parentMass, lmin, lmax)
		return 0
	}

	lo, hi := math.Log(lmin), math.Log(lmax)

	// Substituting L = e^u gives dL = L du.
	den := quad.Fixed(func(u float64) float64 {
		l := math.Exp(u)
		return differentialCount(l, parentMass, bt) * l
	}, lo, hi, quadNodes, nil, 1)

	num := quad.Fixed(func(u float64) float64 {
		l := math.Exp(u)
		return EjectionSpeed(rng, l, bt, ft) * differentialCount(l, parentMass, bt) * l
	}, lo, hi, quadNodes, nil, 1)

	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		monitoring.Degradef(monitoring.NumericDegenerate, "expansion velocity: degenerate denominator %g", den)
		return 0
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		monitoring.Degradef(monitoring.NumericDegenerate, "expansion velocity: non-finite result %g", v)
		return 0
	}
	return v
}
