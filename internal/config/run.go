// Package config loads run configuration for the collision estimator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/debris-cloud/internal/breakup"
	"github.com/banshee-data/debris-cloud/internal/cloud"
	"github.com/banshee-data/debris-cloud/internal/estimator"
	"github.com/banshee-data/debris-cloud/internal/geometry"
)

// DefaultConfigPath is the path to the canonical run defaults file.
const DefaultConfigPath = "config/run.defaults.json"

// RunConfig is the root configuration of an estimator run. Every field is
// optional; the Get* methods supply the default for fields left unset, so a
// partial file is safe.
type RunConfig struct {
	// Parent body and breakup
	ParentMass     *float64 `json:"parent_mass,omitempty" yaml:"parent_mass,omitempty"`
	ParentRadius   *float64 `json:"parent_radius,omitempty" yaml:"parent_radius,omitempty"`
	ParentVelocity *float64 `json:"parent_velocity,omitempty" yaml:"parent_velocity,omitempty"`
	BreakupType    *string  `json:"breakup_type,omitempty" yaml:"breakup_type,omitempty"`   // collision or explosion
	FragmentType   *string  `json:"fragment_type,omitempty" yaml:"fragment_type,omitempty"` // upper_stage or spacecraft

	// Size discretization
	MinLength    *float64 `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength    *float64 `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	SmallStep    *float64 `json:"small_step,omitempty" yaml:"small_step,omitempty"`
	MediumStep   *float64 `json:"medium_step,omitempty" yaml:"medium_step,omitempty"`
	LargeStep    *float64 `json:"large_step,omitempty" yaml:"large_step,omitempty"`
	BinWidth     *float64 `json:"bin_width,omitempty" yaml:"bin_width,omitempty"`
	ExpansionMin *float64 `json:"expansion_min,omitempty" yaml:"expansion_min,omitempty"`
	ExpansionMax *float64 `json:"expansion_max,omitempty" yaml:"expansion_max,omitempty"`

	// Estimator
	HitDistance        *float64 `json:"hit_distance,omitempty" yaml:"hit_distance,omitempty"`
	ConfidenceLevel    *float64 `json:"confidence_level,omitempty" yaml:"confidence_level,omitempty"`
	SamplingMode       *string  `json:"sampling_mode,omitempty" yaml:"sampling_mode,omitempty"` // importance or uniform
	Workers            *int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	SubsampleThreshold *int     `json:"subsample_threshold,omitempty" yaml:"subsample_threshold,omitempty"`
	Seed               *uint64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	Timeout            *string  `json:"timeout,omitempty" yaml:"timeout,omitempty"` // duration string like "5m", empty disables

	// Chord sampler
	PeakFraction  *float64 `json:"peak_fraction,omitempty" yaml:"peak_fraction,omitempty"`
	SigmaFraction *float64 `json:"sigma_fraction,omitempty" yaml:"sigma_fraction,omitempty"`
	AvoidDiameter *bool    `json:"avoid_diameter,omitempty" yaml:"avoid_diameter,omitempty"`
	Diameter      *bool    `json:"diameter,omitempty" yaml:"diameter,omitempty"`
	MaxAttempts   *int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`

	// Run sizes
	Trials          *int      `json:"trials,omitempty" yaml:"trials,omitempty"`
	TargetPrecision *float64  `json:"target_precision,omitempty" yaml:"target_precision,omitempty"`
	MaxTrials       *int      `json:"max_trials,omitempty" yaml:"max_trials,omitempty"`
	SweepDistances  []float64 `json:"sweep_distances,omitempty" yaml:"sweep_distances,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// LoadRunConfig loads a RunConfig from a JSON or YAML file. The extension
// selects the format and the file must be under 1MB.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical run defaults from
// DefaultConfigPath, searching the current directory and its parents up to
// the repository root. Panics if the file cannot be loaded, intended for
// test setup.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set. Cross-field checks use the
// effective values.
func (c *RunConfig) Validate() error {
	positives := []struct {
		name string
		v    *float64
	}{
		{"parent_mass", c.ParentMass},
		{"parent_radius", c.ParentRadius},
		{"min_length", c.MinLength},
		{"max_length", c.MaxLength},
		{"small_step", c.SmallStep},
		{"medium_step", c.MediumStep},
		{"large_step", c.LargeStep},
		{"bin_width", c.BinWidth},
		{"hit_distance", c.HitDistance},
		{"target_precision", c.TargetPrecision},
	}
	for _, p := range positives {
		if p.v != nil && !(*p.v > 0) {
			return fmt.Errorf("%s must be positive, got %g", p.name, *p.v)
		}
	}

	if c.ParentVelocity != nil && *c.ParentVelocity < 0 {
		return fmt.Errorf("parent_velocity must be non-negative, got %g", *c.ParentVelocity)
	}
	if c.ConfidenceLevel != nil && !(*c.ConfidenceLevel > 0 && *c.ConfidenceLevel < 1) {
		return fmt.Errorf("confidence_level must be between 0 and 1, got %g", *c.ConfidenceLevel)
	}
	if c.BreakupType != nil {
		if _, err := breakup.ParseBreakupType(*c.BreakupType); err != nil {
			return err
		}
	}
	if c.FragmentType != nil {
		if _, err := breakup.ParseFragmentType(*c.FragmentType); err != nil {
			return err
		}
	}
	if c.SamplingMode != nil {
		if _, err := geometry.ParseMode(*c.SamplingMode); err != nil {
			return err
		}
	}
	if c.Timeout != nil && *c.Timeout != "" {
		if _, err := time.ParseDuration(*c.Timeout); err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
	}

	nonNegative := []struct {
		name string
		v    *int
	}{
		{"workers", c.Workers},
		{"subsample_threshold", c.SubsampleThreshold},
		{"max_attempts", c.MaxAttempts},
	}
	for _, n := range nonNegative {
		if n.v != nil && *n.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", n.name, *n.v)
		}
	}
	if c.Trials != nil && *c.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", *c.Trials)
	}
	if c.MaxTrials != nil && *c.MaxTrials <= 0 {
		return fmt.Errorf("max_trials must be positive, got %d", *c.MaxTrials)
	}
	for _, d := range c.SweepDistances {
		if !(d > 0) {
			return fmt.Errorf("sweep_distances must be positive, got %g", d)
		}
	}

	if c.GetMinLength() > c.GetMaxLength() {
		return fmt.Errorf("min_length %g exceeds max_length %g", c.GetMinLength(), c.GetMaxLength())
	}
	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// GetParentMass returns the parent mass in kg or the default.
func (c *RunConfig) GetParentMass() float64 { return getFloat(c.ParentMass, 1e5) }

// GetParentRadius returns the parent radius in m or the default.
func (c *RunConfig) GetParentRadius() float64 { return getFloat(c.ParentRadius, 10) }

// GetParentVelocity returns the parent velocity in m/s or the default.
func (c *RunConfig) GetParentVelocity() float64 { return getFloat(c.ParentVelocity, 0) }

// GetBreakupType returns the breakup type or the default.
func (c *RunConfig) GetBreakupType() string {
	if c.BreakupType == nil || *c.BreakupType == "" {
		return breakup.Collision.String()
	}
	return *c.BreakupType
}

// GetFragmentType returns the fragment type or the default.
func (c *RunConfig) GetFragmentType() string {
	if c.FragmentType == nil || *c.FragmentType == "" {
		return breakup.UpperStage.String()
	}
	return *c.FragmentType
}

func (c *RunConfig) GetMinLength() float64    { return getFloat(c.MinLength, 0.001) }
func (c *RunConfig) GetMaxLength() float64    { return getFloat(c.MaxLength, 1.0) }
func (c *RunConfig) GetSmallStep() float64    { return getFloat(c.SmallStep, 0.0001) }
func (c *RunConfig) GetMediumStep() float64   { return getFloat(c.MediumStep, 0.0005) }
func (c *RunConfig) GetLargeStep() float64    { return getFloat(c.LargeStep, 0.001) }
func (c *RunConfig) GetBinWidth() float64     { return getFloat(c.BinWidth, 1e-5) }
func (c *RunConfig) GetExpansionMin() float64 { return getFloat(c.ExpansionMin, 0) }
func (c *RunConfig) GetExpansionMax() float64 { return getFloat(c.ExpansionMax, 0) }

// GetHitDistance returns the hit distance in m or the default.
func (c *RunConfig) GetHitDistance() float64 { return getFloat(c.HitDistance, 1.0) }

// GetConfidenceLevel returns the confidence level or the default.
func (c *RunConfig) GetConfidenceLevel() float64 { return getFloat(c.ConfidenceLevel, 0.95) }

// GetSamplingMode returns the sampling mode or the default.
func (c *RunConfig) GetSamplingMode() string {
	if c.SamplingMode == nil || *c.SamplingMode == "" {
		return geometry.Importance.String()
	}
	return *c.SamplingMode
}

func (c *RunConfig) GetWorkers() int { return getInt(c.Workers, 0) }

func (c *RunConfig) GetSubsampleThreshold() int {
	return getInt(c.SubsampleThreshold, estimator.DefaultSubsampleThreshold)
}

// GetSeed returns the random seed, 0 meaning a fresh seed per run.
func (c *RunConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetTimeout parses and returns the Timeout as a time.Duration. Zero means
// no limit.
func (c *RunConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

func (c *RunConfig) GetPeakFraction() float64  { return getFloat(c.PeakFraction, 0.6) }
func (c *RunConfig) GetSigmaFraction() float64 { return getFloat(c.SigmaFraction, 0.2) }
func (c *RunConfig) GetMaxAttempts() int       { return getInt(c.MaxAttempts, 10000) }

// GetAvoidDiameter returns the avoid_diameter value or the default.
func (c *RunConfig) GetAvoidDiameter() bool {
	if c.AvoidDiameter == nil {
		return true // default
	}
	return *c.AvoidDiameter
}

// GetDiameter returns the diameter value or the default.
func (c *RunConfig) GetDiameter() bool {
	if c.Diameter == nil {
		return false // default
	}
	return *c.Diameter
}

func (c *RunConfig) GetTrials() int              { return getInt(c.Trials, 10000) }
func (c *RunConfig) GetTargetPrecision() float64 { return getFloat(c.TargetPrecision, 0.05) }
func (c *RunConfig) GetMaxTrials() int           { return getInt(c.MaxTrials, 100000) }

// GetSweepDistances returns the hit distances of a sweep run or the
// default 0.5, 1, 2, 5 and 10 m.
func (c *RunConfig) GetSweepDistances() []float64 {
	if len(c.SweepDistances) == 0 {
		return []float64{0.5, 1.0, 2.0, 5.0, 10.0}
	}
	return c.SweepDistances
}

// CloudParams converts the configuration into cloud construction
// parameters.
func (c *RunConfig) CloudParams() (cloud.Params, error) {
	bt, err := breakup.ParseBreakupType(c.GetBreakupType())
	if err != nil {
		return cloud.Params{}, err
	}
	ft, err := breakup.ParseFragmentType(c.GetFragmentType())
	if err != nil {
		return cloud.Params{}, err
	}
	p := cloud.Params{
		ParentMass:     c.GetParentMass(),
		ParentRadius:   c.GetParentRadius(),
		ParentVelocity: c.GetParentVelocity(),
		BreakupType:    bt,
		FragmentType:   ft,
		MinLength:      c.GetMinLength(),
		MaxLength:      c.GetMaxLength(),
		Steps: cloud.Steps{
			Small:  c.GetSmallStep(),
			Medium: c.GetMediumStep(),
			Large:  c.GetLargeStep(),
		},
		BinWidth:     c.GetBinWidth(),
		ExpansionMin: c.GetExpansionMin(),
		ExpansionMax: c.GetExpansionMax(),
	}
	return p, p.Validate()
}

// EstimatorConfig converts the configuration into estimator settings. The
// clock is left nil for the estimator to default.
func (c *RunConfig) EstimatorConfig() (estimator.Config, error) {
	mode, err := geometry.ParseMode(c.GetSamplingMode())
	if err != nil {
		return estimator.Config{}, err
	}
	cfg := estimator.Config{
		HitDistance:     c.GetHitDistance(),
		ConfidenceLevel: c.GetConfidenceLevel(),
		Mode:            mode,
		Chord: geometry.ChordOptions{
			PeakFraction:  c.GetPeakFraction(),
			SigmaFraction: c.GetSigmaFraction(),
			Diameter:      c.GetDiameter(),
			AvoidDiameter: c.GetAvoidDiameter(),
			MaxAttempts:   c.GetMaxAttempts(),
		},
		Workers:            c.GetWorkers(),
		SubsampleThreshold: c.GetSubsampleThreshold(),
		Seed:               c.GetSeed(),
	}
	return cfg, cfg.Validate()
}
