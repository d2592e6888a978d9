package estimator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/breakup"
	"github.com/banshee-data/debris-cloud/internal/geometry"
	"github.com/banshee-data/debris-cloud/internal/monitoring"
	"github.com/banshee-data/debris-cloud/internal/timeutil"
)

// Target is anything trajectories can be fired through: a bounding sphere
// centred on the origin and the fragment positions inside it. *cloud.Cloud
// satisfies it.
type Target interface {
	Radius() float64
	Points() []r3.Vec
}

// subsampleStream is the PCG stream reserved for fragment subsampling.
// Worker streams count up from zero.
const subsampleStream = ^uint64(0)

// cancelCheck is how many trials a worker runs between context checks.
const cancelCheck = 64

// Estimator runs Monte Carlo collision estimates. It is safe for concurrent
// use; every batch draws fresh random streams.
type Estimator struct {
	cfg     Config
	z       float64
	streams atomic.Uint64
}

// New validates cfg and returns an Estimator.
func New(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	z, err := ZScore(cfg.ConfidenceLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64() | 1
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Estimator{cfg: cfg, z: z}, nil
}

// Config returns the effective configuration.
func (e *Estimator) Config() Config { return e.cfg }

// Seed returns the seed of the random streams.
func (e *Estimator) Seed() uint64 { return e.cfg.Seed }

// Z returns the normal quantile of the configured confidence level.
func (e *Estimator) Z() float64 { return e.z }

// prepared is a target readied for repeated batches.
type prepared struct {
	radius     float64
	points     *geometry.PointMatrix
	used       int
	subsampled bool
}

func (e *Estimator) prepare(t Target) (prepared, error) {
	if t == nil {
		return prepared{}, fmt.Errorf("%w: nil target", breakup.ErrInvalidParameter)
	}
	r := t.Radius()
	if !(r > 0) {
		return prepared{}, fmt.Errorf("%w: target radius must be positive, got %g", breakup.ErrInvalidParameter, r)
	}
	pts := t.Points()
	p := prepared{radius: r}
	if limit := e.cfg.SubsampleThreshold; limit > 0 && len(pts) > limit {
		pts = subsample(rand.New(rand.NewPCG(e.cfg.Seed, subsampleStream)), pts, limit)
		p.subsampled = true
		monitoring.Logf("estimator: subsampling %d of %d fragments; probability is against the subset", limit, len(t.Points()))
	}
	p.points = geometry.NewPointMatrix(pts)
	p.used = len(pts)
	return p, nil
}

// subsample returns k points chosen uniformly without replacement. The
// input is not modified.
func subsample(rng *rand.Rand, pts []r3.Vec, k int) []r3.Vec {
	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}
	out := make([]r3.Vec, k)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = pts[idx[i]]
	}
	return out
}

// tally is the commutative per-worker reduction.
type tally struct {
	hits      int
	trials    int
	fallbacks int
}

func (t *tally) add(o tally) {
	t.hits += o.hits
	t.trials += o.trials
	t.fallbacks += o.fallbacks
}

func (e *Estimator) workers(trials int) int {
	w := e.cfg.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return max(1, min(w, trials))
}

// batch runs trials trajectories against p at hit distance hd. Trials are
// split statically across workers, each seeded with its own PCG stream, so
// a fixed seed gives the same tally regardless of scheduling.
func (e *Estimator) batch(ctx context.Context, p prepared, hd float64, trials int) (tally, error) {
	if trials <= 0 {
		return tally{}, nil
	}
	start := e.cfg.Clock.Now()
	nw := e.workers(trials)
	base := e.streams.Add(uint64(nw)) - uint64(nw)

	results := make([]tally, nw)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < nw; w++ {
		share := trials / nw
		if w < trials%nw {
			share++
		}
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(e.cfg.Seed, base+uint64(w)))
			sampler := geometry.NewChordSampler(rng, p.radius, r3.Vec{}, e.cfg.Chord)
			counter := geometry.NewBatchCounter(p.points)
			var t tally
			for i := 0; i < share; i++ {
				if i%cancelCheck == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if counter.Count(sampler.Next(e.cfg.Mode), hd) > 0 {
					t.hits++
				}
				t.trials++
			}
			t.fallbacks = sampler.Fallbacks()
			results[w] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tally{}, err
	}

	var total tally
	for _, r := range results {
		total.add(r)
	}
	monitoring.TrialsTotal.Add(float64(total.trials))
	monitoring.HitsTotal.Add(float64(total.hits))
	monitoring.BatchDuration.Observe(e.cfg.Clock.Since(start).Seconds())
	return total, nil
}

func (e *Estimator) finish(t tally, p prepared, hd float64) Estimate {
	est := summarize(t.hits, t.trials, e.cfg.ConfidenceLevel, e.z)
	est.HitDistance = hd
	est.FragmentsUsed = p.used
	est.Subsampled = p.subsampled
	est.Fallbacks = t.fallbacks
	return est
}

// Run fires trials trajectories through target and returns the hit
// probability with its Wilson interval.
func (e *Estimator) Run(ctx context.Context, target Target, trials int) (Estimate, error) {
	if trials <= 0 {
		return Estimate{}, fmt.Errorf("%w: trials must be positive, got %d", breakup.ErrInvalidParameter, trials)
	}
	start := e.cfg.Clock.Now()
	p, err := e.prepare(target)
	if err != nil {
		return Estimate{}, err
	}
	t, err := e.batch(ctx, p, e.cfg.HitDistance, trials)
	if err != nil {
		return Estimate{}, err
	}
	est := e.finish(t, p, e.cfg.HitDistance)
	est.Elapsed = e.cfg.Clock.Since(start)
	return est, nil
}

// Sweep runs one estimate per hit distance. The target is prepared once and
// shared by every distance.
func (e *Estimator) Sweep(ctx context.Context, target Target, distances []float64, trials int) ([]Estimate, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", breakup.ErrInvalidParameter, trials)
	}
	for _, d := range distances {
		if !(d > 0) {
			return nil, fmt.Errorf("%w: hit distance must be positive, got %g", breakup.ErrInvalidParameter, d)
		}
	}
	p, err := e.prepare(target)
	if err != nil {
		return nil, err
	}
	out := make([]Estimate, 0, len(distances))
	for _, d := range distances {
		start := e.cfg.Clock.Now()
		t, err := e.batch(ctx, p, d, trials)
		if err != nil {
			return nil, fmt.Errorf("hit distance %g m: %w", d, err)
		}
		est := e.finish(t, p, d)
		est.Elapsed = e.cfg.Clock.Since(start)
		out = append(out, est)
	}
	return out, nil
}
