package cloud

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/breakup"
	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

// snapTolerance is the fraction of a step within which a generated length is
// snapped onto a regime boundary or the range end.
const snapTolerance = 1e-6

// Entry pairs a discretized characteristic length with its sub-cloud.
type Entry struct {
	Length float64
	Sub    *SubCloud
}

// RegimeCounts holds per-regime fragment totals, indexed by Regime.
type RegimeCounts [numRegimes]int

// Total returns the sum over all regimes.
func (c RegimeCounts) Total() int { return c[Small] + c[Medium] + c[Large] }

// Cloud is the full debris cloud. It exclusively owns its sub-clouds.
type Cloud struct {
	params    Params
	regimes   [numRegimes][]Entry
	all       []Entry
	radius    float64
	expansion float64
	points    []r3.Vec
}

// Build discretizes the configured length range, populates one SubCloud per
// length and collects the fragment positions that fall inside their owning
// sub-cloud.
func Build(p Params, rng *rand.Rand) (*Cloud, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", breakup.ErrInvalidParameter)
	}

	lo, hi := p.expansionBounds()
	c := &Cloud{
		params:    p,
		radius:    p.ParentRadius * math.Pow(RegimeOf(p.MaxLength).PackingDensity(), -1.0/3.0),
		expansion: breakup.ExpansionVelocity(rng, p.ParentMass, lo, hi, p.BreakupType, p.FragmentType),
	}

	grid := discretize(p.MinLength, p.MaxLength, p.Steps)
	for _, r := range Regimes {
		for _, lc := range grid[r] {
			n, err := breakup.CountInBin(lc, p.ParentMass, p.BinWidth, p.BreakupType)
			if err != nil {
				return nil, fmt.Errorf("fragment count at %g m: %w", lc, err)
			}
			e := Entry{Length: lc, Sub: newSubCloud(lc, n, p, c.expansion, rng)}
			c.regimes[r] = append(c.regimes[r], e)
			c.all = append(c.all, e)
		}
	}

	total := 0
	for _, e := range c.all {
		total += len(e.Sub.Fragments)
	}
	c.points = make([]r3.Vec, 0, total)
	for _, e := range c.all {
		c.points = e.Sub.inside(c.points)
	}

	monitoring.Logf("cloud: %d sub-clouds, %d fragments, %d inside, radius %.2f m, expansion %.3f m/s",
		len(c.all), total, len(c.points), c.radius, c.expansion)
	return c, nil
}

// discretize returns the lengths of each regime. Every regime loop is
// clamped to [lmin, lmax]. The medium loop always starts on 0.08 and emits
// 0.11 even when its step would jump past it, so no boundary bin is lost.
func discretize(lmin, lmax float64, s Steps) [numRegimes][]float64 {
	var out [numRegimes][]float64

	if lmin < breakup.SmallUpperBound {
		for i := 0; ; i++ {
			l := snap(lmin+float64(i)*s.Small, s.Small, breakup.SmallUpperBound, lmax)
			if l >= breakup.SmallUpperBound || l > lmax {
				break
			}
			out[Small] = append(out[Small], l)
		}
	}

	start := math.Max(lmin, breakup.SmallUpperBound)
	if start <= breakup.LargeLowerBound && start <= lmax {
		last := math.NaN()
		for i := 0; ; i++ {
			l := snap(start+float64(i)*s.Medium, s.Medium, breakup.LargeLowerBound, lmax)
			if l > breakup.LargeLowerBound || l > lmax {
				break
			}
			out[Medium] = append(out[Medium], l)
			last = l
		}
		if lmax >= breakup.LargeLowerBound && last != breakup.LargeLowerBound {
			out[Medium] = append(out[Medium], breakup.LargeLowerBound)
		}
	}

	start = lmin
	if start <= breakup.LargeLowerBound {
		start = breakup.LargeLowerBound + s.Large
	}
	for i := 0; ; i++ {
		l := snap(start+float64(i)*s.Large, s.Large, lmax)
		if l > lmax {
			break
		}
		out[Large] = append(out[Large], l)
	}
	return out
}

// snap returns the first target within snapTolerance·step of v, or v.
func snap(v, step float64, targets ...float64) float64 {
	for _, t := range targets {
		if math.Abs(v-t) <= step*snapTolerance {
			return t
		}
	}
	return v
}

// Params returns the parameters the cloud was built with.
func (c *Cloud) Params() Params { return c.params }

// Radius is the bounding radius used for trajectory sampling: the parent
// radius scaled by the packing density of the largest fragments.
func (c *Cloud) Radius() float64 { return c.radius }

// ExpansionVelocity is the shared radial expansion rate of the sub-clouds.
func (c *Cloud) ExpansionVelocity() float64 { return c.expansion }

// Points returns every fragment position that lies inside its owning
// sub-cloud's radius at t=0. The slice is shared; callers must not modify it.
func (c *Cloud) Points() []r3.Vec { return c.points }

// SubClouds returns the entries of one regime in ascending length order.
func (c *Cloud) SubClouds(r Regime) []Entry {
	if r < 0 || int(r) >= numRegimes {
		return nil
	}
	return c.regimes[r]
}

// All returns every entry in ascending length order.
func (c *Cloud) All() []Entry { return c.all }

// Lookup finds the sub-cloud whose length is within a millionth of a metre
// of lc.
func (c *Cloud) Lookup(lc float64) (*SubCloud, bool) {
	const tol = 1e-6
	i := sort.Search(len(c.all), func(i int) bool { return c.all[i].Length >= lc-tol })
	if i < len(c.all) && math.Abs(c.all[i].Length-lc) <= tol {
		return c.all[i].Sub, true
	}
	return nil, false
}

// Counts returns the number of fragments generated in each regime.
func (c *Cloud) Counts() RegimeCounts {
	var out RegimeCounts
	for _, r := range Regimes {
		for _, e := range c.regimes[r] {
			out[r] += len(e.Sub.Fragments)
		}
	}
	return out
}

// PointsAt resamples every sub-cloud at time t and returns the positions
// inside each sub-cloud's radius at that time. The owned fragments are not
// modified.
func (c *Cloud) PointsAt(rng *rand.Rand, t float64) []r3.Vec {
	var out []r3.Vec
	for _, e := range c.all {
		rc := e.Sub.Radius(t)
		for _, p := range e.Sub.SamplePositionsAt(rng, e.Sub.Count, t) {
			if r3.Norm(p) <= rc {
				out = append(out, p)
			}
		}
	}
	return out
}

// NumberDensity returns the fragment number density (per m³ per unit
// profile density) at pos summed over all sub-clouds:
//
//	ρN = Σ ρ(r, Lc) / m̄(Lc) · n(Lc)
//
// where m̄ is the mean fragment mass of the sub-cloud and n = -dN/dLc.
func (c *Cloud) NumberDensity(pos r3.Vec, t float64) float64 {
	var sum float64
	for _, e := range c.all {
		if e.Sub.MeanMass <= 0 {
			continue
		}
		n, err := breakup.DifferentialCount(e.Length, c.params.ParentMass, c.params.BreakupType)
		if err != nil {
			continue
		}
		sum += e.Sub.Density(pos, t) / e.Sub.MeanMass * n
	}
	return sum
}
