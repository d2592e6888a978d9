package geometry

import (
	"math"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/monitoring"
	"github.com/banshee-data/debris-cloud/internal/testutil"
)

func TestLineEndpointsExact(t *testing.T) {
	rng := testutil.NewRand(1)
	for i := 0; i < 1000; i++ {
		p1 := r3.Vec{X: rng.NormFloat64() * 1e3, Y: rng.NormFloat64(), Z: rng.NormFloat64() * 1e-3}
		p2 := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64() * 1e4, Z: rng.NormFloat64()}
		l := NewLine(p1, p2)
		if l.At(0) != p1 || l.At(1) != p2 {
			t.Fatalf("endpoints not exact for %v %v: got %v %v", p1, p2, l.At(0), l.At(1))
		}
	}
}

func TestLineEvaluation(t *testing.T) {
	l := NewLine(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 3, Y: 2, Z: 1})
	assert.Equal(t, r3.Vec{X: 2, Y: 2, Z: 2}, l.At(0.5))
	assert.Equal(t, r3.Vec{X: 5, Y: 2, Z: -1}, l.At(2))
	assert.Equal(t, r3.Vec{X: 2, Y: 0, Z: -2}, l.Direction())
	assert.InDelta(t, math.Sqrt(8), l.Length(), 1e-15)
	assert.False(t, l.Degenerate())

	assert.InDelta(t, 0.5, l.Project(r3.Vec{X: 2, Y: 7, Z: 2}), 1e-15)
	assert.InDelta(t, 5, l.Distance(r3.Vec{X: 2, Y: 7, Z: 2}), 1e-12)
}

func TestEndpointsLieOnTheirChord(t *testing.T) {
	s := NewChordSampler(testutil.NewRand(2), 10, r3.Vec{X: 1, Y: -2, Z: 3}, DefaultChordOptions())
	for i := 0; i < 2000; i++ {
		l := s.Uniform()
		require.LessOrEqual(t, l.Distance(l.P1), 1e-12)
		require.LessOrEqual(t, l.Distance(l.P2), 1e-12)
	}
}

func TestDegenerateLine(t *testing.T) {
	p := r3.Vec{X: 1, Y: 1, Z: 1}
	l := NewLine(p, p)
	assert.True(t, l.Degenerate())
	assert.Equal(t, 0.0, l.Project(r3.Vec{X: 5}))
	assert.InDelta(t, math.Sqrt(3), l.Distance(r3.Vec{}), 1e-15)

	pts := []r3.Vec{{}, {X: 1, Y: 1, Z: 1.5}, {X: 4}}
	assert.Equal(t, 1, CountWithin(l, pts, 1))
	assert.Equal(t, 1, CountWithinBatch(l, pts, 1))
}

func TestScalarAndBatchAgree(t *testing.T) {
	rng := testutil.NewRand(3)
	points := testutil.RandomPoints(rng, 5000, 10)
	bc := NewBatchCounter(NewPointMatrix(points))
	s := NewChordSampler(rng, 10, r3.Vec{}, DefaultChordOptions())

	for i := 0; i < 50; i++ {
		l := s.Uniform()
		dists := bc.Distances(l)
		require.Len(t, dists, len(points))
		for j, p := range points {
			if math.Abs(dists[j]-l.Distance(p)) > 1e-9 {
				t.Fatalf("point %d: batch %g scalar %g", j, dists[j], l.Distance(p))
			}
		}
		for _, threshold := range []float64{0.1, 1, 3} {
			assert.Equal(t, CountWithin(l, points, threshold), bc.Count(l, threshold))
		}
	}
}

func TestBatchEmpty(t *testing.T) {
	bc := NewBatchCounter(NewPointMatrix(nil))
	l := NewLine(r3.Vec{}, r3.Vec{X: 1})
	assert.Equal(t, 0, bc.Count(l, 5))
	assert.Nil(t, bc.Distances(l))
	assert.Equal(t, 0, NewPointMatrix(nil).Len())
	assert.False(t, AnyWithin(l, nil, 1))
}

func TestAnyWithin(t *testing.T) {
	l := NewLine(r3.Vec{}, r3.Vec{Z: 1})
	pts := []r3.Vec{{X: 3}, {X: 0.5, Z: 40}}
	assert.True(t, AnyWithin(l, pts, 0.5))
	assert.False(t, AnyWithin(l, pts, 0.4))
}

func TestUniformRejectsNearDiameters(t *testing.T) {
	center := r3.Vec{X: 5, Y: 5, Z: -5}
	const radius = 3.0
	s := NewChordSampler(testutil.NewRand(4), radius, center, ChordOptions{AvoidDiameter: true})
	for i := 0; i < 20000; i++ {
		l := s.Uniform()
		u1 := r3.Scale(1/radius, r3.Sub(l.P1, center))
		u2 := r3.Scale(1/radius, r3.Sub(l.P2, center))
		require.InDelta(t, 1, r3.Norm(u1), 1e-12)
		require.InDelta(t, 1, r3.Norm(u2), 1e-12)
		if d := r3.Dot(u1, u2); d <= AntipodalDot {
			t.Fatalf("accepted near-antipodal pair with dot %g", d)
		}
	}
}

func TestUniformDiameter(t *testing.T) {
	center := r3.Vec{X: 1}
	s := NewChordSampler(testutil.NewRand(5), 2, center, ChordOptions{Diameter: true})
	for i := 0; i < 100; i++ {
		l := s.Uniform()
		mid := l.At(0.5)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(mid, center)), 1e-12)
		assert.InDelta(t, 4, l.Length(), 1e-12)
	}
}

func TestImportanceFavoursPeakShell(t *testing.T) {
	const radius = 10.0
	near := func(mode Mode) int {
		s := NewChordSampler(testutil.NewRand(6), radius, r3.Vec{}, DefaultChordOptions())
		n := 0
		for i := 0; i < 4000; i++ {
			d := s.Next(mode).Distance(r3.Vec{})
			if math.Abs(d-0.6*radius) < 0.1*radius {
				n++
			}
		}
		return n
	}
	assert.Greater(t, near(Importance), near(Uniform))
}

func TestImportanceFallsBackToUniform(t *testing.T) {
	testutil.QuietLogs(t)
	monitoring.ResetDegradations()
	before := promtest.ToFloat64(monitoring.ChordFallbacksTotal)

	opts := ChordOptions{PeakFraction: 50, SigmaFraction: 1e-9, AvoidDiameter: true, MaxAttempts: 5}
	s := NewChordSampler(testutil.NewRand(7), 10, r3.Vec{}, opts)
	for i := 0; i < 3; i++ {
		l := s.Importance()
		assert.InDelta(t, 10, r3.Norm(l.P1), 1e-12)
		assert.InDelta(t, 10, r3.Norm(l.P2), 1e-12)
	}

	assert.Equal(t, 3, s.Fallbacks())
	assert.Equal(t, 3, monitoring.DegradationCount(monitoring.SamplingExhausted))
	assert.Equal(t, before+3, promtest.ToFloat64(monitoring.ChordFallbacksTotal))
}

func TestUniformExhaustionStaysOffDiameter(t *testing.T) {
	testutil.QuietLogs(t)
	s := NewChordSampler(testutil.NewRand(8), 1, r3.Vec{}, ChordOptions{AvoidDiameter: true, MaxAttempts: 1})
	for i := 0; i < 5000; i++ {
		l := s.Uniform()
		require.Greater(t, r3.Dot(l.P1, l.P2), AntipodalDot)
	}
}

func TestOptionsDefaults(t *testing.T) {
	s := NewChordSampler(testutil.NewRand(9), 1, r3.Vec{}, ChordOptions{})
	o := s.Options()
	assert.Equal(t, 0.6, o.PeakFraction)
	assert.Equal(t, 0.2, o.SigmaFraction)
	assert.Equal(t, 10000, o.MaxAttempts)
	assert.False(t, o.AvoidDiameter)
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Importance, false},
		{"importance", Importance, false},
		{"uniform", Uniform, false},
		{"sobol", 0, true},
	}
	for _, tc := range testCases {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.want, mustParse(t, got.String()))
	}
}

func mustParse(t *testing.T, s string) Mode {
	t.Helper()
	m, err := ParseMode(s)
	require.NoError(t, err)
	return m
}
