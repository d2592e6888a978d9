package cloud

import (
	"fmt"
	"math"

	"github.com/banshee-data/debris-cloud/internal/breakup"
)

// Params configures Build. All lengths are in metres, mass in kg and
// velocities in m/s.
type Params struct {
	ParentMass     float64
	ParentRadius   float64
	ParentVelocity float64 // added to every fragment's ejection speed
	BreakupType    breakup.BreakupType
	FragmentType   breakup.FragmentType

	MinLength float64
	MaxLength float64
	Steps     Steps

	// BinWidth is the finite-difference width used to turn the cumulative
	// distribution into a per-length fragment count.
	BinWidth float64

	// ExpansionMin and ExpansionMax bound the length range over which the
	// cloud's expansion velocity is averaged. Zero values default to
	// MinLength and MaxLength.
	ExpansionMin float64
	ExpansionMax float64
}

// DefaultParams returns the reference configuration: a 100 t parent of 10 m
// radius broken up by a collision, fragments from 1 mm to 1 m.
func DefaultParams() Params {
	return Params{
		ParentMass:   1e5,
		ParentRadius: 10,
		BreakupType:  breakup.Collision,
		FragmentType: breakup.UpperStage,
		MinLength:    0.001,
		MaxLength:    1.0,
		Steps:        Steps{Small: 0.0001, Medium: 0.0005, Large: 0.001},
		BinWidth:     1e-5,
	}
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be positive, got %g", breakup.ErrInvalidParameter, name, v)
	}
	return nil
}

// Validate reports the first invalid field.
func (p Params) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"parent mass", p.ParentMass},
		{"parent radius", p.ParentRadius},
		{"min length", p.MinLength},
		{"max length", p.MaxLength},
		{"small step", p.Steps.Small},
		{"medium step", p.Steps.Medium},
		{"large step", p.Steps.Large},
		{"bin width", p.BinWidth},
	}
	for _, c := range checks {
		if err := positive(c.name, c.v); err != nil {
			return err
		}
	}
	if p.MinLength > p.MaxLength {
		return fmt.Errorf("%w: min length %g exceeds max length %g", breakup.ErrInvalidParameter, p.MinLength, p.MaxLength)
	}
	if p.ParentVelocity < 0 || math.IsNaN(p.ParentVelocity) {
		return fmt.Errorf("%w: parent velocity must be non-negative, got %g", breakup.ErrInvalidParameter, p.ParentVelocity)
	}
	if p.ExpansionMin < 0 || p.ExpansionMax < 0 {
		return fmt.Errorf("%w: expansion bounds must be non-negative", breakup.ErrInvalidParameter)
	}
	return nil
}

func (p Params) expansionBounds() (float64, float64) {
	lo, hi := p.ExpansionMin, p.ExpansionMax
	if lo == 0 {
		lo = p.MinLength
	}
	if hi == 0 {
		hi = p.MaxLength
	}
	return lo, hi
}
