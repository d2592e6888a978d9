package testutil

import (
	"testing"

	"github.com/banshee-data/debris-cloud/internal/monitoring"
)

func TestNewRandDeterministic(t *testing.T) {
	a, b := NewRand(11), NewRand(11)
	for i := 0; i < 100; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d differs: %d != %d", i, x, y)
		}
	}
}

func TestCaptureLogs(t *testing.T) {
	lines := CaptureLogs(t)
	monitoring.Logf("first %d", 1)
	monitoring.Logf("second")
	if len(*lines) != 2 || (*lines)[1] != "second" {
		t.Errorf("captured %q", *lines)
	}
}

func TestRandomPointsInCube(t *testing.T) {
	pts := RandomPoints(NewRand(3), 500, 2)
	if len(pts) != 500 {
		t.Fatalf("got %d points", len(pts))
	}
	for _, p := range pts {
		if p.X < -2 || p.X > 2 || p.Y < -2 || p.Y > 2 || p.Z < -2 || p.Z > 2 {
			t.Fatalf("point %v outside cube", p)
		}
	}
}
