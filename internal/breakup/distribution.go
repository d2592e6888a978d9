package breakup

import (
	"fmt"
	"math"
)

// Power-law constants of the cumulative size distribution N(Lc).
const (
	sizeExponent          = -1.71
	collisionCoeff        = 0.1
	collisionMassExponent = 0.75
	explosionCoeff        = 6.0
)

// Area-from-length regime break and coefficients.
const (
	areaBreakLength   = 0.00167
	areaSmallCoeff    = 0.540424
	areaLargeCoeff    = 0.556945
	areaLargeExponent = 2.0047077
)

// CumulativeCount returns the expected number of fragments with a
// characteristic length of at least lc.
func CumulativeCount(lc, parentMass float64, bt BreakupType) (float64, error) {
	if !(lc > 0) || math.IsInf(lc, 0) {
		return 0, fmt.Errorf("%w: characteristic length must be positive, got %g", ErrInvalidParameter, lc)
	}
	switch bt {
	case Collision:
		if !(parentMass > 0) {
			return 0, fmt.Errorf("%w: parent mass must be positive, got %g", ErrInvalidParameter, parentMass)
		}
		return collisionCoeff * math.Pow(lc, sizeExponent) * math.Pow(parentMass, collisionMassExponent), nil
	case Explosion:
		return explosionCoeff * math.Pow(lc, sizeExponent), nil
	default:
		return 0, fmt.Errorf("%w: unknown breakup type %v", ErrInvalidParameter, bt)
	}
}

// CountInBin estimates the number of fragments with length in
// [lc, lc+binWidth) as N(lc) - N(lc+binWidth), truncated towards zero.
func CountInBin(lc, parentMass, binWidth float64, bt BreakupType) (int, error) {
	if !(binWidth > 0) {
		return 0, fmt.Errorf("%w: bin width must be positive, got %g", ErrInvalidParameter, binWidth)
	}
	lo, err := CumulativeCount(lc, parentMass, bt)
	if err != nil {
		return 0, err
	}
	hi, err := CumulativeCount(lc+binWidth, parentMass, bt)
	if err != nil {
		return 0, err
	}
	n := lo - hi
	if n < 0 {
		return 0, nil
	}
	return int(n), nil
}

// differentialCount is n(Lc) = -dN/dLc for the given family.
func differentialCount(lc, parentMass float64, bt BreakupType) float64 {
	switch bt {
	case Explosion:
		return -explosionCoeff * sizeExponent * math.Pow(lc, sizeExponent-1)
	default:
		return -collisionCoeff * sizeExponent * math.Pow(lc, sizeExponent-1) * math.Pow(parentMass, collisionMassExponent)
	}
}

// DifferentialCount returns n(Lc) = -dN/dLc, the number of fragments per
// metre of characteristic length at lc.
func DifferentialCount(lc, parentMass float64, bt BreakupType) (float64, error) {
	if _, err := CumulativeCount(lc, parentMass, bt); err != nil {
		return 0, err
	}
	return differentialCount(lc, parentMass, bt), nil
}

// AreaFromLength returns the average cross-sectional area (m²) of a fragment
// with characteristic length lc.
func AreaFromLength(lc float64) float64 {
	if lc < areaBreakLength {
		return areaSmallCoeff * lc * lc
	}
	return areaLargeCoeff * math.Pow(lc, areaLargeExponent)
}
