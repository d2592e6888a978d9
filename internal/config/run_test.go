package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/debris-cloud/internal/breakup"
	"github.com/banshee-data/debris-cloud/internal/cloud"
	"github.com/banshee-data/debris-cloud/internal/estimator"
	"github.com/banshee-data/debris-cloud/internal/geometry"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyRunConfigDefaults(t *testing.T) {
	cfg := EmptyRunConfig()

	p, err := cfg.CloudParams()
	if err != nil {
		t.Fatalf("CloudParams() error: %v", err)
	}
	if diff := cmp.Diff(cloud.DefaultParams(), p); diff != "" {
		t.Errorf("empty config cloud params differ from defaults (-want +got):\n%s", diff)
	}

	ec, err := cfg.EstimatorConfig()
	if err != nil {
		t.Fatalf("EstimatorConfig() error: %v", err)
	}
	if diff := cmp.Diff(estimator.DefaultConfig(), ec); diff != "" {
		t.Errorf("empty config estimator settings differ from defaults (-want +got):\n%s", diff)
	}

	if cfg.GetTrials() != 10000 {
		t.Errorf("GetTrials() = %d, want 10000", cfg.GetTrials())
	}
	if cfg.GetMaxTrials() != 100000 {
		t.Errorf("GetMaxTrials() = %d, want 100000", cfg.GetMaxTrials())
	}
	if cfg.GetTargetPrecision() != 0.05 {
		t.Errorf("GetTargetPrecision() = %g, want 0.05", cfg.GetTargetPrecision())
	}
	if cfg.GetTimeout() != 0 {
		t.Errorf("GetTimeout() = %v, want 0", cfg.GetTimeout())
	}
	if len(cfg.GetSweepDistances()) != 5 {
		t.Errorf("GetSweepDistances() = %v, want five distances", cfg.GetSweepDistances())
	}
}

func TestLoadRunConfigJSON(t *testing.T) {
	path := writeConfig(t, "run.json", `{
  "parent_mass": 2500,
  "breakup_type": "explosion",
  "fragment_type": "spacecraft",
  "min_length": 0.05,
  "hit_distance": 0.5,
  "sampling_mode": "uniform",
  "avoid_diameter": false,
  "seed": 7,
  "timeout": "90s"
}`)

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	p, err := cfg.CloudParams()
	if err != nil {
		t.Fatalf("CloudParams() error: %v", err)
	}
	if p.ParentMass != 2500 {
		t.Errorf("ParentMass = %g, want 2500", p.ParentMass)
	}
	if p.BreakupType != breakup.Explosion || p.FragmentType != breakup.Spacecraft {
		t.Errorf("types = %v/%v, want explosion/spacecraft", p.BreakupType, p.FragmentType)
	}
	if p.MinLength != 0.05 || p.MaxLength != 1.0 {
		t.Errorf("length range = [%g, %g], want [0.05, 1]", p.MinLength, p.MaxLength)
	}

	ec, err := cfg.EstimatorConfig()
	if err != nil {
		t.Fatalf("EstimatorConfig() error: %v", err)
	}
	if ec.Mode != geometry.Uniform {
		t.Errorf("Mode = %v, want uniform", ec.Mode)
	}
	if ec.Chord.AvoidDiameter {
		t.Error("AvoidDiameter = true, want false")
	}
	if ec.Seed != 7 || ec.HitDistance != 0.5 {
		t.Errorf("Seed/HitDistance = %d/%g, want 7/0.5", ec.Seed, ec.HitDistance)
	}
	if cfg.GetTimeout() != 90*time.Second {
		t.Errorf("GetTimeout() = %v, want 90s", cfg.GetTimeout())
	}
}

func TestLoadRunConfigYAML(t *testing.T) {
	path := writeConfig(t, "run.yaml", `
parent_radius: 4.5
confidence_level: 0.99
workers: 3
trials: 2500
sweep_distances: [0.25, 0.75]
`)
	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetParentRadius() != 4.5 {
		t.Errorf("GetParentRadius() = %g, want 4.5", cfg.GetParentRadius())
	}
	if cfg.GetConfidenceLevel() != 0.99 {
		t.Errorf("GetConfidenceLevel() = %g, want 0.99", cfg.GetConfidenceLevel())
	}
	if cfg.GetWorkers() != 3 || cfg.GetTrials() != 2500 {
		t.Errorf("workers/trials = %d/%d, want 3/2500", cfg.GetWorkers(), cfg.GetTrials())
	}
	if diff := cmp.Diff([]float64{0.25, 0.75}, cfg.GetSweepDistances()); diff != "" {
		t.Errorf("sweep distances (-want +got):\n%s", diff)
	}

	yml := writeConfig(t, "run.yml", "hit_distance: 2\n")
	cfg, err = LoadRunConfig(yml)
	if err != nil {
		t.Fatalf("Failed to load .yml config: %v", err)
	}
	if cfg.GetHitDistance() != 2 {
		t.Errorf("GetHitDistance() = %g, want 2", cfg.GetHitDistance())
	}
}

func TestLoadRunConfigRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"extension", "run.toml", `parent_mass = 1`, "extension"},
		{"bad_json", "run.json", `{"parent_mass": `, "parse config JSON"},
		{"bad_yaml", "run.yaml", "parent_mass: [1", "parse config YAML"},
		{"negative_mass", "run.json", `{"parent_mass": -1}`, "parent_mass must be positive"},
		{"confidence", "run.json", `{"confidence_level": 1.5}`, "confidence_level"},
		{"breakup", "run.json", `{"breakup_type": "implosion"}`, "implosion"},
		{"mode", "run.json", `{"sampling_mode": "sobol"}`, "sobol"},
		{"timeout", "run.json", `{"timeout": "soon"}`, "invalid timeout"},
		{"range", "run.json", `{"min_length": 0.5, "max_length": 0.1}`, "exceeds max_length"},
		{"workers", "run.yaml", "workers: -2", "workers must be non-negative"},
		{"trials", "run.json", `{"trials": 0}`, "trials must be positive"},
		{"sweep", "run.json", `{"sweep_distances": [1, 0]}`, "sweep_distances"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.file, tc.body)
			_, err := LoadRunConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadRunConfigMissingAndLarge(t *testing.T) {
	if _, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}

	big := writeConfig(t, "big.json", `{"parent_mass": 1, "pad": "`+strings.Repeat("x", 1<<20)+`"}`)
	_, err := LoadRunConfig(big)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults file invalid: %v", err)
	}
	if cfg.ParentMass == nil || *cfg.ParentMass != 1e5 {
		t.Errorf("Expected ParentMass 1e5, got %v", cfg.ParentMass)
	}
	if cfg.GetSamplingMode() != "importance" {
		t.Errorf("GetSamplingMode() = %q, want importance", cfg.GetSamplingMode())
	}
	if _, err := cfg.CloudParams(); err != nil {
		t.Errorf("CloudParams() error: %v", err)
	}
	if _, err := cfg.EstimatorConfig(); err != nil {
		t.Errorf("EstimatorConfig() error: %v", err)
	}
}

func TestPointerHelpers(t *testing.T) {
	cfg := &RunConfig{
		ParentMass:    ptrFloat64(5),
		AvoidDiameter: ptrBool(false),
		Diameter:      ptrBool(true),
		SamplingMode:  ptrString("uniform"),
		MaxAttempts:   ptrInt(12),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	ec, err := cfg.EstimatorConfig()
	if err != nil {
		t.Fatalf("EstimatorConfig() error: %v", err)
	}
	want := geometry.ChordOptions{PeakFraction: 0.6, SigmaFraction: 0.2, Diameter: true, MaxAttempts: 12}
	if diff := cmp.Diff(want, ec.Chord); diff != "" {
		t.Errorf("chord options (-want +got):\n%s", diff)
	}
}
