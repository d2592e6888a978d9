package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// PointMatrix is an N×3 matrix of fragment positions, one point per row.
// It is read-only once built and may be shared by any number of
// BatchCounters.
type PointMatrix struct {
	m *mat.Dense
	n int
}

// NewPointMatrix copies points into a dense matrix.
func NewPointMatrix(points []r3.Vec) *PointMatrix {
	if len(points) == 0 {
		return &PointMatrix{}
	}
	data := make([]float64, 0, 3*len(points))
	for _, p := range points {
		data = append(data, p.X, p.Y, p.Z)
	}
	return &PointMatrix{m: mat.NewDense(len(points), 3, data), n: len(points)}
}

// Len returns the number of points.
func (pm *PointMatrix) Len() int { return pm.n }

// BatchCounter evaluates point-to-line distances for every point of a
// PointMatrix in one pass of matrix operations. It owns its scratch space
// and is not safe for concurrent use; give each worker its own.
type BatchCounter struct {
	points *PointMatrix
	ones   *mat.VecDense // N ones
	unit3  *mat.VecDense // 3 ones
	lambda *mat.VecDense
	d2     *mat.VecDense
	resid  *mat.Dense
	sq     *mat.Dense
}

// NewBatchCounter allocates scratch sized for pm.
func NewBatchCounter(pm *PointMatrix) *BatchCounter {
	b := &BatchCounter{points: pm}
	if pm.n == 0 {
		return b
	}
	ones := make([]float64, pm.n)
	for i := range ones {
		ones[i] = 1
	}
	b.ones = mat.NewVecDense(pm.n, ones)
	b.unit3 = mat.NewVecDense(3, []float64{1, 1, 1})
	b.lambda = mat.NewVecDense(pm.n, nil)
	b.d2 = mat.NewVecDense(pm.n, nil)
	b.resid = mat.NewDense(pm.n, 3, nil)
	b.sq = mat.NewDense(pm.n, 3, nil)
	return b
}

// squaredDistances fills b.d2 with the squared perpendicular distance of
// every point to l:
//
//	Q = P − 1·p1ᵀ
//	λ = Q·k / |k|²
//	D = Q − λ·kᵀ
//
// A degenerate line leaves λ at zero, giving plain distances to P1.
func (b *BatchCounter) squaredDistances(l Line) {
	p1 := mat.NewVecDense(3, []float64{l.P1.X, l.P1.Y, l.P1.Z})
	b.resid.RankOne(b.points.m, -1, b.ones, p1)

	dir := l.Direction()
	if kk := r3.Norm2(dir); kk > 0 {
		k := mat.NewVecDense(3, []float64{dir.X, dir.Y, dir.Z})
		b.lambda.MulVec(b.resid, k)
		b.lambda.ScaleVec(1/kk, b.lambda)
		b.resid.RankOne(b.resid, -1, b.lambda, k)
	}

	b.sq.MulElem(b.resid, b.resid)
	b.d2.MulVec(b.sq, b.unit3)
}

// Distances returns the perpendicular distance of every point to l, in
// row order. The result is freshly allocated.
func (b *BatchCounter) Distances(l Line) []float64 {
	if b.points.n == 0 {
		return nil
	}
	b.squaredDistances(l)
	out := make([]float64, b.points.n)
	for i := range out {
		out[i] = math.Sqrt(b.d2.AtVec(i))
	}
	return out
}

// Count returns the number of points within threshold of l. It agrees with
// CountWithin up to floating point rounding.
func (b *BatchCounter) Count(l Line, threshold float64) int {
	if b.points.n == 0 {
		return 0
	}
	b.squaredDistances(l)
	raw := b.d2.RawVector()
	n := 0
	for i := 0; i < b.points.n; i++ {
		if math.Sqrt(raw.Data[i*raw.Inc]) <= threshold {
			n++
		}
	}
	return n
}

// CountWithinBatch is the batched form of CountWithin for one-off calls. Hot
// loops should keep a BatchCounter instead of rebuilding the matrix.
func CountWithinBatch(l Line, points []r3.Vec, threshold float64) int {
	return NewBatchCounter(NewPointMatrix(points)).Count(l, threshold)
}
