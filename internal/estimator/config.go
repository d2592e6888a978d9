package estimator

import (
	"fmt"
	"math"

	"github.com/banshee-data/debris-cloud/internal/breakup"
	"github.com/banshee-data/debris-cloud/internal/geometry"
	"github.com/banshee-data/debris-cloud/internal/timeutil"
)

// DefaultSubsampleThreshold is the fragment count above which trajectories
// are tested against a uniform subset of the cloud.
const DefaultSubsampleThreshold = 250000

// Adaptive schedule.
const (
	InitialBatch = 1000
	MaxBatch     = 5000
)

// Config controls an Estimator.
type Config struct {
	HitDistance     float64 // m
	ConfidenceLevel float64
	Mode            geometry.Mode
	Chord           geometry.ChordOptions

	// Workers is the number of concurrent trial workers. Zero uses
	// GOMAXPROCS.
	Workers int

	// SubsampleThreshold caps the fragments tested per trajectory. Zero
	// disables subsampling.
	SubsampleThreshold int

	// Seed fixes the random streams. Zero draws a seed at construction;
	// Estimator.Seed reports it.
	Seed uint64

	Clock timeutil.Clock
}

// DefaultConfig returns a 1 m hit distance at 95% confidence with importance
// sampled chords.
func DefaultConfig() Config {
	return Config{
		HitDistance:        1.0,
		ConfidenceLevel:    0.95,
		Mode:               geometry.Importance,
		Chord:              geometry.DefaultChordOptions(),
		SubsampleThreshold: DefaultSubsampleThreshold,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if !(c.HitDistance > 0) || math.IsInf(c.HitDistance, 0) {
		return fmt.Errorf("%w: hit distance must be positive, got %g", breakup.ErrInvalidParameter, c.HitDistance)
	}
	if !(c.ConfidenceLevel > 0 && c.ConfidenceLevel < 1) {
		return fmt.Errorf("%w: confidence level must be in (0,1), got %g", breakup.ErrInvalidParameter, c.ConfidenceLevel)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", breakup.ErrInvalidParameter, c.Workers)
	}
	if c.SubsampleThreshold < 0 {
		return fmt.Errorf("%w: subsample threshold must be non-negative, got %d", breakup.ErrInvalidParameter, c.SubsampleThreshold)
	}
	if c.Mode != geometry.Importance && c.Mode != geometry.Uniform {
		return fmt.Errorf("%w: unknown sampling mode %v", breakup.ErrInvalidParameter, c.Mode)
	}
	return nil
}
