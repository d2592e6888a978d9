// Package geometry provides the trajectory primitives of the collision
// estimator: parametric lines through the cloud's bounding sphere, point to
// line distances and the chord samplers that generate trajectories.
package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Line is the parametric line P1 + λ(P2 - P1). λ in [0,1] spans the chord
// from entry to exit; other values extend the line.
type Line struct {
	P1, P2 r3.Vec
}

// NewLine returns the line through p1 and p2.
func NewLine(p1, p2 r3.Vec) Line { return Line{P1: p1, P2: p2} }

// Direction returns P2 - P1.
func (l Line) Direction() r3.Vec { return r3.Sub(l.P2, l.P1) }

// Degenerate reports whether both endpoints coincide.
func (l Line) Degenerate() bool { return r3.Norm2(l.Direction()) == 0 }

// Length is the chord length |P2 - P1|.
func (l Line) Length() float64 { return r3.Norm(l.Direction()) }

// At evaluates the line at λ. The endpoints are returned exactly for λ = 0
// and λ = 1.
func (l Line) At(lambda float64) r3.Vec {
	switch lambda {
	case 0:
		return l.P1
	case 1:
		return l.P2
	}
	return r3.Add(l.P1, r3.Scale(lambda, l.Direction()))
}

// Project returns the λ of the point on the infinite line closest to p,
// λ = ((p - P1)·k)/|k|² with k = P2 - P1. A degenerate line projects
// everything onto P1.
func (l Line) Project(p r3.Vec) float64 {
	k := l.Direction()
	kk := r3.Norm2(k)
	if kk == 0 {
		return 0
	}
	return r3.Dot(r3.Sub(p, l.P1), k) / kk
}

// Distance returns the perpendicular distance from p to the infinite line.
func (l Line) Distance(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, l.At(l.Project(p))))
}

// CountWithin counts the points whose distance to the line is at most
// threshold, one point at a time.
func CountWithin(l Line, points []r3.Vec, threshold float64) int {
	n := 0
	for _, p := range points {
		if l.Distance(p) <= threshold {
			n++
		}
	}
	return n
}

// AnyWithin reports whether at least one point lies within threshold of the
// line, stopping at the first hit.
func AnyWithin(l Line, points []r3.Vec, threshold float64) bool {
	for _, p := range points {
		if l.Distance(p) <= threshold {
			return true
		}
	}
	return false
}
