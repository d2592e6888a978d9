// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the seeded random sources, point fixtures and log
// muting used by the simulation test files.
package testutil

import (
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

// NewRand returns a PCG-backed source for seed. Equal seeds give equal
// streams.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// QuietLogs mutes monitoring.Logf for the duration of the test.
func QuietLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

// CaptureLogs redirects monitoring.Logf into the returned slice for the
// duration of the test.
func CaptureLogs(t *testing.T) *[]string {
	t.Helper()
	original := monitoring.Logf
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.Logf = original })
	return &lines
}

// RandomPoints returns n points drawn uniformly from the cube [-scale, scale]³.
func RandomPoints(rng *rand.Rand, n int, scale float64) []r3.Vec {
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Vec{
			X: scale * (2*rng.Float64() - 1),
			Y: scale * (2*rng.Float64() - 1),
			Z: scale * (2*rng.Float64() - 1),
		}
	}
	return out
}
