package breakup

import (
	"math"
	"math/rand/v2"
)

var (
	logSmallUpper = math.Log10(SmallUpperBound)
	logLargeLower = math.Log10(LargeLowerBound)
)

// mixture is a two-component normal mixture in log10(A/M). A single-mode
// distribution is expressed with alpha = 1.
type mixture struct {
	alpha       float64
	mu1, sigma1 float64
	mu2, sigma2 float64
}

func (m mixture) sample(rng *rand.Rand) float64 {
	var logAM float64
	if rng.Float64() < m.alpha {
		logAM = m.mu1 + m.sigma1*rng.NormFloat64()
	} else {
		logAM = m.mu2 + m.sigma2*rng.NormFloat64()
	}
	return math.Pow(10, logAM)
}

// ramp evaluates a clamped linear segment: below lo it returns atLo, above hi
// it returns atHi, and in between it returns base + slope*(x + offset).
func ramp(x, lo, hi, atLo, atHi, base, slope, offset float64) float64 {
	switch {
	case x <= lo:
		return atLo
	case x < hi:
		return base + slope*(x+offset)
	default:
		return atHi
	}
}

// smallMixture is the single-mode distribution shared by spacecraft and
// upper stages below 8 cm.
func smallMixture(logLc float64) mixture {
	mu := ramp(logLc, -1.75, -1.25, -0.3, -1.0, -0.3, -1.4, 1.75)
	sigma := 0.2
	if logLc > -3.5 {
		sigma = 0.2 + 0.1333*(logLc+3.5)
	}
	return mixture{alpha: 1, mu1: mu, sigma1: sigma}
}

func largeMixture(logLc float64, ft FragmentType) mixture {
	if ft == Spacecraft {
		return mixture{
			alpha:  ramp(logLc, -1.95, 0.55, 0.0, 1.0, 0.3, 0.4, 1.2),
			mu1:    ramp(logLc, -1.1, 0, -0.6, -0.95, -0.6, -0.318, 1.1),
			sigma1: ramp(logLc, -1.3, -0.3, 0.1, 0.3, 0.1, 0.2, 1.3),
			mu2:    ramp(logLc, -0.7, -0.1, -1.2, -2.0, -1.2, -1.333, 0.7),
			sigma2: ramp(logLc, -0.5, -0.3, 0.5, 0.3, 0.5, -1.0, 0.5),
		}
	}
	return mixture{
		alpha:  ramp(logLc, -1.4, 0, 1.0, 0.5, 1.0, -0.3571, 1.4),
		mu1:    ramp(logLc, -0.5, 0, -0.45, -0.9, -0.45, -0.9, 0.5),
		sigma1: 0.55,
		mu2:    -0.9,
		sigma2: ramp(logLc, -1.0, 0.1, 0.28, 0.1, 0.28, -0.1636, 1.0),
	}
}

// AreaToMass samples an area-to-mass ratio (m²/kg) for a fragment whose
// characteristic length has base-10 logarithm logLc.
//
// Below 8 cm the single-mode small-fragment distribution applies, above
// 11 cm the bimodal family selected by ft, and in between one sample of each
// is blended linearly in log10(Lc).
func AreaToMass(rng *rand.Rand, logLc float64, ft FragmentType) float64 {
	switch {
	case logLc > logLargeLower:
		return largeMixture(logLc, ft).sample(rng)
	case logLc < logSmallUpper:
		return smallMixture(logLc).sample(rng)
	default:
		w := (logLc - logSmallUpper) / (logLargeLower - logSmallUpper)
		large := largeMixture(logLc, ft).sample(rng)
		small := smallMixture(logLc).sample(rng)
		return small*(1-w) + large*w
	}
}

// MassFromLength returns a fragment mass (kg) from its length and a fresh
// area-to-mass sample.
func MassFromLength(rng *rand.Rand, lc float64, ft FragmentType) float64 {
	return AreaFromLength(lc) / AreaToMass(rng, math.Log10(lc), ft)
}
