package estimator

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/debris-cloud/internal/breakup"
	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

// State is the phase of an adaptive estimate.
type State int

const (
	Initial State = iota
	Sampling
	Converged
	Exhausted
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Sampling:
		return "sampling"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// AdaptiveResult is the outcome of Adaptive. State is Converged when the
// relative interval width dropped below the target and Exhausted otherwise:
// either the trial budget ran out or the Wald sample size was already met.
type AdaptiveResult struct {
	Estimate

	State         State
	Batches       int
	RelativeWidth float64

	// Required is the last Wald sample size estimate, 0 when it was not
	// computed.
	Required int
}

// batchFunc runs n more trials and returns their tally.
type batchFunc func(ctx context.Context, n int) (tally, error)

// Adaptive refines an estimate in batches until the relative confidence
// interval width (Upper − Lower)/p̂ falls below targetPrecision. It starts
// with InitialBatch trials, adds at most MaxBatch per iteration and never
// exceeds maxTrials.
func (e *Estimator) Adaptive(ctx context.Context, target Target, targetPrecision float64, maxTrials int) (AdaptiveResult, error) {
	start := e.cfg.Clock.Now()
	p, err := e.prepare(target)
	if err != nil {
		return AdaptiveResult{}, err
	}
	hd := e.cfg.HitDistance
	run := func(ctx context.Context, n int) (tally, error) { return e.batch(ctx, p, hd, n) }

	res, err := adapt(ctx, run, e.z, e.cfg.ConfidenceLevel, targetPrecision, maxTrials)
	if err != nil {
		return AdaptiveResult{}, err
	}
	res.HitDistance = hd
	res.FragmentsUsed = p.used
	res.Subsampled = p.subsampled
	res.Elapsed = e.cfg.Clock.Since(start)
	return res, nil
}

// adapt is the adaptive state machine over an arbitrary batch runner.
func adapt(ctx context.Context, run batchFunc, z, confidence, targetPrecision float64, maxTrials int) (AdaptiveResult, error) {
	if !(targetPrecision > 0) || math.IsInf(targetPrecision, 0) {
		return AdaptiveResult{}, fmt.Errorf("%w: target precision must be positive, got %g", breakup.ErrInvalidParameter, targetPrecision)
	}
	if maxTrials <= 0 {
		return AdaptiveResult{}, fmt.Errorf("%w: max trials must be positive, got %d", breakup.ErrInvalidParameter, maxTrials)
	}

	res := AdaptiveResult{State: Initial}
	var total tally
	next := min(InitialBatch, maxTrials)

	for {
		t, err := run(ctx, next)
		if err != nil {
			return AdaptiveResult{}, err
		}
		total.add(t)
		res.Batches++
		res.State = Sampling

		res.Estimate = summarize(total.hits, total.trials, confidence, z)
		res.Fallbacks = total.fallbacks
		res.RelativeWidth = res.Estimate.RelativeWidth()

		if res.RelativeWidth < targetPrecision {
			res.State = Converged
			break
		}
		if total.trials >= maxTrials {
			res.State = Exhausted
			break
		}

		remaining := maxTrials - total.trials
		if res.Probability == 0 {
			// Nothing hit yet, so the Wald size is unbounded: keep going.
			res.Required = 0
			monitoring.Logf("adaptive: no hits after %d trials, continuing", total.trials)
			next = min(MaxBatch, remaining)
			continue
		}

		res.Required = required(res.Probability, z, targetPrecision)
		if res.Required <= total.trials {
			res.State = Exhausted
			break
		}
		next = min(MaxBatch, res.Required-total.trials, remaining)
	}

	monitoring.Logf("adaptive: %s after %d trials in %d batches, p=%.6f relative width %.4f",
		res.State, res.Trials, res.Batches, res.Probability, res.RelativeWidth)
	return res, nil
}

// required is the Wald sample size n = z²(1−p)/(p·ε²), truncated and capped
// at MaxInt.
func required(p, z, precision float64) int {
	n := z * z * (1 - p) / (p * precision * precision)
	if n >= math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}
