package estimator

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/breakup"
	"github.com/banshee-data/debris-cloud/internal/cloud"
	"github.com/banshee-data/debris-cloud/internal/geometry"
	"github.com/banshee-data/debris-cloud/internal/monitoring"
	"github.com/banshee-data/debris-cloud/internal/testutil"
	"github.com/banshee-data/debris-cloud/internal/timeutil"
)

type staticTarget struct {
	radius float64
	points []r3.Vec
}

func (s staticTarget) Radius() float64  { return s.radius }
func (s staticTarget) Points() []r3.Vec { return s.points }

func newEstimator(t *testing.T, mutate func(*Config)) *Estimator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Workers = 4
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestZScore(t *testing.T) {
	z, err := ZScore(0.95)
	require.NoError(t, err)
	assert.InDelta(t, 1.959964, z, 1e-6)

	z, err = ZScore(0.99)
	require.NoError(t, err)
	assert.InDelta(t, 2.575829, z, 1e-6)

	for _, c := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		_, err := ZScore(c)
		assert.ErrorIs(t, err, breakup.ErrInvalidParameter, "confidence %g", c)
	}
}

func TestWilsonKnownValue(t *testing.T) {
	lo, hi := Wilson(50, 100, 1.96)
	assert.InDelta(t, 0.4038, lo, 1e-4)
	assert.InDelta(t, 0.5962, hi, 1e-4)

	lo, hi = Wilson(0, 0, 1.96)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestWilsonBracketsAndMirrors(t *testing.T) {
	const z = 1.959963984540054
	for _, n := range []int{1, 7, 100, 10000} {
		for hits := 0; hits <= n; hits += max(1, n/13) {
			p := float64(hits) / float64(n)
			lo, hi := Wilson(hits, n, z)
			if lo < 0 || hi > 1 || lo > p || hi < p {
				t.Fatalf("Wilson(%d, %d) = [%g, %g] does not bracket %g within [0,1]", hits, n, lo, hi, p)
			}
			mlo, mhi := Wilson(n-hits, n, z)
			assert.InDelta(t, lo, 1-mhi, 1e-12)
			assert.InDelta(t, hi, 1-mlo, 1e-12)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	mutators := map[string]func(*Config){
		"zero_hit_distance":  func(c *Config) { c.HitDistance = 0 },
		"confidence_one":     func(c *Config) { c.ConfidenceLevel = 1 },
		"confidence_zero":    func(c *Config) { c.ConfidenceLevel = 0 },
		"negative_workers":   func(c *Config) { c.Workers = -1 },
		"negative_threshold": func(c *Config) { c.SubsampleThreshold = -5 },
		"bad_mode":           func(c *Config) { c.Mode = geometry.Mode(7) },
	}
	for name, mutate := range mutators {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := New(cfg)
			if !errors.Is(err, breakup.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
	require.NoError(t, DefaultConfig().Validate())
}

func TestNewDrawsSeed(t *testing.T) {
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotZero(t, e.Seed())
	assert.NotNil(t, e.Config().Clock)
}

func TestRunMatchesChordGeometry(t *testing.T) {
	// A single fragment at the centre is within ℓ of a uniform chord exactly
	// when the endpoints' dot product is at most 2(ℓ/R)² − 1.
	testutil.QuietLogs(t)
	e := newEstimator(t, func(c *Config) {
		c.HitDistance = 3
		c.Mode = geometry.Uniform
		c.Chord = geometry.ChordOptions{}
	})
	est, err := e.Run(context.Background(), staticTarget{radius: 10, points: []r3.Vec{{}}}, 20000)
	require.NoError(t, err)

	assert.Equal(t, 20000, est.Trials)
	assert.InDelta(t, 0.09, est.Probability, 0.015)
	assert.Equal(t, 1, est.FragmentsUsed)
	assert.False(t, est.Subsampled)
	assert.Equal(t, 3.0, est.HitDistance)
	assert.Equal(t, 0.95, est.ConfidenceLevel)
}

func TestAvoidDiameterExcludesCentralChords(t *testing.T) {
	testutil.QuietLogs(t)
	e := newEstimator(t, func(c *Config) {
		c.HitDistance = 0.99
		c.Mode = geometry.Uniform
	})
	est, err := e.Run(context.Background(), staticTarget{radius: 10, points: []r3.Vec{{}}}, 5000)
	require.NoError(t, err)
	assert.Equal(t, 0, est.Hits)
	assert.Equal(t, 0.0, est.Lower)
	assert.Greater(t, est.Upper, 0.0)
}

func TestRunDeterministicForSeed(t *testing.T) {
	testutil.QuietLogs(t)
	target := staticTarget{radius: 10, points: []r3.Vec{{X: 6}, {Y: -6}, {Z: 5, X: 2}}}
	run := func() Estimate {
		e := newEstimator(t, func(c *Config) { c.HitDistance = 2 })
		est, err := e.Run(context.Background(), target, 3000)
		require.NoError(t, err)
		return est
	}
	a, b := run(), run()
	assert.Equal(t, a.Hits, b.Hits)
	assert.Greater(t, a.Hits, 0)
}

func TestRunRecordsMetricsAndElapsed(t *testing.T) {
	testutil.QuietLogs(t)
	trials := promtest.ToFloat64(monitoring.TrialsTotal)
	hits := promtest.ToFloat64(monitoring.HitsTotal)

	clock := timeutil.NewSteppingClock(time.Unix(0, 0), time.Second)
	e := newEstimator(t, func(c *Config) { c.Clock = clock })
	est, err := e.Run(context.Background(), staticTarget{radius: 5, points: []r3.Vec{{X: 1}}}, 500)
	require.NoError(t, err)

	assert.Equal(t, trials+500, promtest.ToFloat64(monitoring.TrialsTotal))
	assert.Equal(t, hits+float64(est.Hits), promtest.ToFloat64(monitoring.HitsTotal))
	assert.Positive(t, est.Elapsed)
}

func TestRunRejectsBadInput(t *testing.T) {
	e := newEstimator(t, nil)
	ctx := context.Background()

	_, err := e.Run(ctx, staticTarget{radius: 10}, 0)
	assert.ErrorIs(t, err, breakup.ErrInvalidParameter)

	_, err = e.Run(ctx, staticTarget{radius: 0}, 10)
	assert.ErrorIs(t, err, breakup.ErrInvalidParameter)

	_, err = e.Run(ctx, nil, 10)
	assert.ErrorIs(t, err, breakup.ErrInvalidParameter)
}

func TestRunHonoursCancellation(t *testing.T) {
	e := newEstimator(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx, staticTarget{radius: 10, points: []r3.Vec{{}}}, 1000)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubsampling(t *testing.T) {
	testutil.QuietLogs(t)
	pts := make([]r3.Vec, 1000)
	for i := range pts {
		pts[i] = r3.Vec{X: float64(i) / 200}
	}
	e := newEstimator(t, func(c *Config) { c.SubsampleThreshold = 100 })
	est, err := e.Run(context.Background(), staticTarget{radius: 10, points: pts}, 200)
	require.NoError(t, err)
	assert.True(t, est.Subsampled)
	assert.Equal(t, 100, est.FragmentsUsed)

	unlimited := newEstimator(t, func(c *Config) { c.SubsampleThreshold = 0 })
	est, err = unlimited.Run(context.Background(), staticTarget{radius: 10, points: pts}, 10)
	require.NoError(t, err)
	assert.False(t, est.Subsampled)
	assert.Equal(t, 1000, est.FragmentsUsed)
}

func TestSubsampleWithoutReplacement(t *testing.T) {
	pts := make([]r3.Vec, 500)
	for i := range pts {
		pts[i] = r3.Vec{X: float64(i)}
	}
	e := newEstimator(t, nil)
	p, err := e.prepare(staticTarget{radius: 1, points: pts})
	require.NoError(t, err)
	assert.False(t, p.subsampled)

	got := subsample(testutil.NewRand(7), pts, 200)
	require.Len(t, got, 200)
	seen := map[float64]bool{}
	for _, v := range got {
		require.False(t, seen[v.X], "point %v drawn twice", v)
		seen[v.X] = true
	}
	assert.Equal(t, float64(0), pts[0].X, "input reordered")
}

func TestSweep(t *testing.T) {
	testutil.QuietLogs(t)
	e := newEstimator(t, func(c *Config) { c.Mode = geometry.Uniform })
	target := staticTarget{radius: 10, points: []r3.Vec{{}}}
	out, err := e.Sweep(context.Background(), target, []float64{2, 5, 9}, 4000)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, est := range out {
		assert.Equal(t, 4000, est.Trials)
		if i > 0 {
			assert.Greater(t, est.Probability, out[i-1].Probability)
			assert.Greater(t, est.HitDistance, out[i-1].HitDistance)
		}
	}

	_, err = e.Sweep(context.Background(), target, []float64{1, -1}, 10)
	assert.ErrorIs(t, err, breakup.ErrInvalidParameter)
}

func TestEndToEndEstimate(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a full cloud")
	}
	testutil.QuietLogs(t)
	p := cloud.DefaultParams()
	p.ParentMass = 1e5
	p.ParentRadius = 10
	p.MinLength = 0.1
	p.MaxLength = 0.3
	c, err := cloud.Build(p, testutil.NewRand(7))
	require.NoError(t, err)

	e := newEstimator(t, func(c *Config) {
		c.HitDistance = 1.0
		c.ConfidenceLevel = 0.95
	})
	est, err := e.Run(context.Background(), c, 10000)
	require.NoError(t, err)

	assert.Equal(t, 10000, est.Trials)
	assert.GreaterOrEqual(t, est.Probability, 0.0)
	assert.LessOrEqual(t, est.Probability, 1.0)
	assert.LessOrEqual(t, est.Lower, est.Probability)
	assert.GreaterOrEqual(t, est.Upper, est.Probability)
	want := math.Sqrt(est.Probability * (1 - est.Probability) / 10000)
	assert.InDelta(t, want, est.StdError, 1e-9)
	assert.Equal(t, len(c.Points()), est.FragmentsUsed)
}
