package cloud

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/breakup"
)

// Fragment is one piece of debris. It is immutable once created.
type Fragment struct {
	Length   float64 // characteristic length (m)
	Position r3.Vec  // position relative to the parent's centre at impact (m)
	Mass     float64 // kg
	Speed    float64 // parent velocity plus ejection speed (m/s)
}

// Radial returns the fragment's distance from the cloud centre.
func (f Fragment) Radial() float64 { return r3.Norm(f.Position) }

// Area returns the fragment's average cross-sectional area (m²).
func (f Fragment) Area() float64 { return breakup.AreaFromLength(f.Length) }

// Regime returns the size regime of the fragment.
func (f Fragment) Regime() Regime { return RegimeOf(f.Length) }

// Shape returns the density-profile parameters of the fragment's regime.
func (f Fragment) Shape() ShapeParams { return f.Regime().Shape() }

// SubCloud is the population of fragments sharing one characteristic length.
type SubCloud struct {
	Length     float64
	Regime     Regime
	Count      int
	BaseRadius float64 // radius at t=0 (m)

	// ExpansionVelocity is the radial growth rate of the sub-cloud (m/s).
	ExpansionVelocity float64

	// MeanMass is the mean mass of the owned fragments, 0 when empty.
	MeanMass float64

	Fragments []Fragment
}

func newSubCloud(lc float64, count int, p Params, expansion float64, rng *rand.Rand) *SubCloud {
	regime := RegimeOf(lc)
	sc := &SubCloud{
		Length:            lc,
		Regime:            regime,
		Count:             count,
		BaseRadius:        p.ParentRadius * math.Pow(regime.PackingDensity(), -1.0/3.0),
		ExpansionVelocity: expansion,
	}

	positions := sc.SamplePositions(rng, count)
	sc.Fragments = make([]Fragment, len(positions))
	var massSum float64
	for i, pos := range positions {
		m := breakup.MassFromLength(rng, lc, p.FragmentType)
		sc.Fragments[i] = Fragment{
			Length:   lc,
			Position: pos,
			Mass:     m,
			Speed:    p.ParentVelocity + breakup.EjectionSpeed(rng, lc, p.BreakupType, p.FragmentType),
		}
		massSum += m
	}
	if len(sc.Fragments) > 0 {
		sc.MeanMass = massSum / float64(len(sc.Fragments))
	}
	return sc
}

// Radius returns the sub-cloud radius t seconds after the breakup.
func (sc *SubCloud) Radius(t float64) float64 {
	return sc.BaseRadius + t*sc.ExpansionVelocity
}

// Dispersion returns the relative radial standard deviation at time t,
// σ(t) = Lc^(-α)·(σ0 + γt).
func (sc *SubCloud) Dispersion(t float64) float64 {
	s := sc.Regime.Shape()
	return math.Pow(sc.Length, -s.Alpha) * (s.Sigma0 + s.Gamma*t)
}

// Density evaluates the radial Gaussian profile
// ρ0·exp(-½((r-μR(t))/(σ(t)R(t)))²) at pos and time t.
func (sc *SubCloud) Density(pos r3.Vec, t float64) float64 {
	s := sc.Regime.Shape()
	rc := sc.Radius(t)
	width := sc.Dispersion(t) * rc
	if width == 0 {
		return 0
	}
	z := (r3.Norm(pos) - s.Mu*rc) / width
	return s.Rho0 * math.Exp(-0.5*z*z)
}

// SamplePositions draws n positions at t=0.
func (sc *SubCloud) SamplePositions(rng *rand.Rand, n int) []r3.Vec {
	return sc.SamplePositionsAt(rng, n, 0)
}

// SamplePositionsAt draws n isotropic positions using the density profile at
// time t.
//
// The radial distance is drawn from a plain Gaussian with mean μR and
// standard deviation σR, clipped at zero. The true profile in spherical
// coordinates carries an extra r² volume factor; that factor is ignored here,
// which slightly over-weights the inner region. The approximation is kept on
// purpose and no caller should assume exact density matching.
func (sc *SubCloud) SamplePositionsAt(rng *rand.Rand, n int, t float64) []r3.Vec {
	if n <= 0 {
		return nil
	}
	s := sc.Regime.Shape()
	rc := sc.Radius(t)
	meanR := s.Mu * rc
	stdR := sc.Dispersion(t) * rc

	out := make([]r3.Vec, n)
	for i := range out {
		r := math.Max(meanR+stdR*rng.NormFloat64(), 0)
		theta := math.Acos(2*rng.Float64() - 1)
		phi := 2 * math.Pi * rng.Float64()
		sinT := math.Sin(theta)
		out[i] = r3.Vec{
			X: r * sinT * math.Cos(phi),
			Y: r * sinT * math.Sin(phi),
			Z: r * math.Cos(theta),
		}
	}
	return out
}

// InsideFraction returns the share of owned fragments that lie within the
// sub-cloud radius at time t. Empty sub-clouds report 0.
func (sc *SubCloud) InsideFraction(t float64) float64 {
	if len(sc.Fragments) == 0 {
		return 0
	}
	rc := sc.Radius(t)
	inside := 0
	for _, f := range sc.Fragments {
		if f.Radial() <= rc {
			inside++
		}
	}
	return float64(inside) / float64(len(sc.Fragments))
}

// inside appends the positions of owned fragments within the t=0 radius.
func (sc *SubCloud) inside(dst []r3.Vec) []r3.Vec {
	rc := sc.BaseRadius
	for _, f := range sc.Fragments {
		if r3.Norm(f.Position) <= rc {
			dst = append(dst, f.Position)
		}
	}
	return dst
}
