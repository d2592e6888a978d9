package geometry

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

// AntipodalDot is the dot product of unit entry and exit vectors at or below
// which a chord counts as a diameter.
const AntipodalDot = -0.98

// Mode selects how ChordSampler.Next draws a trajectory.
type Mode int

const (
	Importance Mode = iota
	Uniform
)

func (m Mode) String() string {
	switch m {
	case Importance:
		return "importance"
	case Uniform:
		return "uniform"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a configuration string onto a Mode. An empty string selects
// Importance.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "importance":
		return Importance, nil
	case "uniform":
		return Uniform, nil
	}
	return 0, fmt.Errorf("unknown sampling mode %q", s)
}

// ChordOptions tunes a ChordSampler. Zero numeric fields select the defaults.
type ChordOptions struct {
	// PeakFraction places the importance peak shell at PeakFraction·R.
	PeakFraction float64 `json:"peak_fraction,omitempty"`

	// SigmaFraction sets the importance width σ = SigmaFraction·R.
	SigmaFraction float64 `json:"sigma_fraction,omitempty"`

	// Diameter forces every uniform chord through the centre.
	Diameter bool `json:"diameter,omitempty"`

	// AvoidDiameter rejects near-antipodal endpoint pairs.
	AvoidDiameter bool `json:"avoid_diameter,omitempty"`

	MaxAttempts int `json:"max_attempts,omitempty"`
}

// DefaultChordOptions returns the standard sampler settings.
func DefaultChordOptions() ChordOptions {
	return ChordOptions{
		PeakFraction:  0.6,
		SigmaFraction: 0.2,
		AvoidDiameter: true,
		MaxAttempts:   10000,
	}
}

func (o ChordOptions) withDefaults() ChordOptions {
	d := DefaultChordOptions()
	if o.PeakFraction <= 0 {
		o.PeakFraction = d.PeakFraction
	}
	if o.SigmaFraction <= 0 {
		o.SigmaFraction = d.SigmaFraction
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	return o
}

// ChordSampler draws trajectories between two points on a sphere. It holds
// its own random source and is not safe for concurrent use.
type ChordSampler struct {
	rng    *rand.Rand
	radius float64
	center r3.Vec
	opts   ChordOptions

	fallbacks int
}

// NewChordSampler returns a sampler for the sphere of the given radius and
// centre.
func NewChordSampler(rng *rand.Rand, radius float64, center r3.Vec, opts ChordOptions) *ChordSampler {
	return &ChordSampler{rng: rng, radius: radius, center: center, opts: opts.withDefaults()}
}

// Options returns the effective options, defaults applied.
func (s *ChordSampler) Options() ChordOptions { return s.opts }

// Fallbacks returns how many importance draws exhausted their attempts and
// fell back to a uniform chord.
func (s *ChordSampler) Fallbacks() int { return s.fallbacks }

// Next draws one chord using mode.
func (s *ChordSampler) Next(mode Mode) Line {
	if mode == Uniform {
		return s.Uniform()
	}
	return s.Importance()
}

// unitVector draws a direction uniformly on the sphere by normalizing a
// vector of three standard normals.
func (s *ChordSampler) unitVector() r3.Vec {
	for {
		v := r3.Vec{X: s.rng.NormFloat64(), Y: s.rng.NormFloat64(), Z: s.rng.NormFloat64()}
		if n := r3.Norm(v); n > 0 {
			return r3.Scale(1/n, v)
		}
	}
}

func (s *ChordSampler) surface(u r3.Vec) r3.Vec {
	return r3.Add(s.center, r3.Scale(s.radius, u))
}

// Uniform draws two independent uniform points on the sphere. With Diameter
// set the exit is the antipode of the entry. With AvoidDiameter set, pairs
// whose unit vectors have a dot product at or below AntipodalDot are redrawn.
func (s *ChordSampler) Uniform() Line {
	u1 := s.unitVector()
	if s.opts.Diameter {
		return NewLine(s.surface(u1), s.surface(r3.Scale(-1, u1)))
	}
	if !s.opts.AvoidDiameter {
		return NewLine(s.surface(u1), s.surface(s.unitVector()))
	}
	for range s.opts.MaxAttempts {
		u2 := s.unitVector()
		if r3.Dot(u1, u2) > AntipodalDot {
			return NewLine(s.surface(u1), s.surface(u2))
		}
	}
	// Only reachable with a tiny MaxAttempts: take a quarter turn from u1.
	monitoring.Degradef(monitoring.SamplingExhausted,
		"uniform chord gave up after %d attempts, using an orthogonal exit", s.opts.MaxAttempts)
	return NewLine(s.surface(u1), s.surface(orthogonal(u1)))
}

// Importance rejection-samples uniform chords, accepting each with weight
// exp(−l²/(2σ²)) where l is the distance between the chord's closest approach
// to the centre and the peak shell at PeakFraction·R. After MaxAttempts
// rejections it falls back to Uniform and records the degradation.
func (s *ChordSampler) Importance() Line {
	peak := s.opts.PeakFraction * s.radius
	sigma := s.opts.SigmaFraction * s.radius
	for range s.opts.MaxAttempts {
		l := s.Uniform()
		lmin := math.Abs(l.Distance(s.center) - peak)
		if s.rng.Float64() < math.Exp(-lmin*lmin/(2*sigma*sigma)) {
			return l
		}
	}
	s.fallbacks++
	monitoring.ChordFallbacksTotal.Inc()
	monitoring.Degradef(monitoring.SamplingExhausted,
		"importance sampling failed after %d attempts, using a uniform chord", s.opts.MaxAttempts)
	return s.Uniform()
}

// orthogonal returns a unit vector perpendicular to the unit vector u.
func orthogonal(u r3.Vec) r3.Vec {
	axis := r3.Vec{X: 1}
	if math.Abs(u.X) > 0.9 {
		axis = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Cross(u, axis))
}
