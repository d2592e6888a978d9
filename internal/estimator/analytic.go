package estimator

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/geometry"
)

// DensityField is a fragment number density over space at a given time.
// *cloud.Cloud satisfies it together with Target.
type DensityField interface {
	Radius() float64
	NumberDensity(pos r3.Vec, t float64) float64
}

// AnalyticProbability estimates the hit probability of a single trajectory
// from the number density instead of sampled fragments:
//
//	Λ̄ = mean over the chord of ρN(r)·πℓ²
//	P = 1 − exp(−Λ̄·2R)
//
// The density is sampled at n evenly spaced points including both
// endpoints; points outside the bounding sphere contribute zero. The path
// length is taken as the diameter 2R.
func AnalyticProbability(field DensityField, l geometry.Line, hitDistance float64, n int) float64 {
	if n < 2 || !(hitDistance > 0) {
		return 0
	}
	radius := field.Radius()
	cross := math.Pi * hitDistance * hitDistance
	var rate float64
	for i := 0; i < n; i++ {
		pos := l.At(float64(i) / float64(n-1))
		if r3.Norm(pos) > radius {
			continue
		}
		rate += field.NumberDensity(pos, 0) * cross
	}
	rate /= float64(n)
	return 1 - math.Exp(-rate*2*radius)
}
