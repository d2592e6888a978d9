// Package estimator runs Monte Carlo collision estimates: trajectories are
// drawn across the cloud's bounding sphere and a trial is a hit when at least
// one fragment lies within the hit distance of the trajectory.
package estimator

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/debris-cloud/internal/breakup"
)

// Estimate is the outcome of a Monte Carlo run.
type Estimate struct {
	Probability     float64       `json:"probability"`
	Hits            int           `json:"hits"`
	Trials          int           `json:"trials"`
	Lower           float64       `json:"lower"`
	Upper           float64       `json:"upper"`
	ConfidenceLevel float64       `json:"confidence_level"`
	StdError        float64       `json:"std_error"`
	Elapsed         time.Duration `json:"elapsed"`
	HitDistance     float64       `json:"hit_distance"`

	// FragmentsUsed is the number of fragments trajectories were tested
	// against. When Subsampled is set this is smaller than the cloud and the
	// probability is an approximation against the subset; it is not rescaled.
	FragmentsUsed int  `json:"fragments_used"`
	Subsampled    bool `json:"subsampled"`

	// Fallbacks counts importance draws that degraded to uniform chords.
	Fallbacks int `json:"fallbacks"`
}

// Interval returns the confidence interval bounds.
func (e Estimate) Interval() (float64, float64) { return e.Lower, e.Upper }

// RelativeWidth is (Upper − Lower)/Probability, or +Inf when no hit has been
// seen.
func (e Estimate) RelativeWidth() float64 {
	if e.Probability <= 0 {
		return math.Inf(1)
	}
	return (e.Upper - e.Lower) / e.Probability
}

// ZScore returns the two-sided standard normal quantile for a confidence
// level in (0,1): 1.96 for 0.95.
func ZScore(confidence float64) (float64, error) {
	if !(confidence > 0 && confidence < 1) {
		return 0, fmt.Errorf("%w: confidence level must be in (0,1), got %g", breakup.ErrInvalidParameter, confidence)
	}
	return distuv.UnitNormal.Quantile(1 - (1-confidence)/2), nil
}

// Wilson returns the Wilson score interval for hits out of n at normal
// quantile z, clamped to [0,1]. With n = 0 the interval is [0,1].
func Wilson(hits, n int, z float64) (float64, float64) {
	if n <= 0 {
		return 0, 1
	}
	p := float64(hits) / float64(n)
	fn := float64(n)
	z2 := z * z
	denom := 1 + z2/fn
	center := (p + z2/(2*fn)) / denom
	margin := z * math.Sqrt(p*(1-p)/fn+z2/(4*fn*fn)) / denom

	// The interval contains p exactly; rounding at p = 0 or 1 must not
	// push a bound past it.
	lo := math.Min(math.Max(center-margin, 0), p)
	hi := math.Max(math.Min(center+margin, 1), p)
	return lo, hi
}

// summarize fills the statistics of an estimate from its counts.
func summarize(hits, trials int, confidence, z float64) Estimate {
	e := Estimate{Hits: hits, Trials: trials, ConfidenceLevel: confidence}
	if trials <= 0 {
		e.Upper = 1
		return e
	}
	p := float64(hits) / float64(trials)
	e.Probability = p
	e.StdError = math.Sqrt(p * (1 - p) / float64(trials))
	e.Lower, e.Upper = Wilson(hits, trials, z)
	return e
}
