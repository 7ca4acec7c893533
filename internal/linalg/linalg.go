// Package linalg provides the dense vector and matrix primitives used by the
// network: allocation, Gaussian initialization, elementwise transforms and
// the handful of BLAS level 1 and 2 kernels needed for forward and backward
// propagation.
//
// Storage is gonum's mat.VecDense and mat.Dense. Kernels go straight to
// blas64 so that no temporaries are allocated on the hot path.
//
// All operations require operands of matching dimensions. A mismatch is a
// programming error and panics.
package linalg

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxElements bounds the number of float64 entries a single vector or matrix
// may hold (8 GiB of storage).
const MaxElements = 1 << 30

// ErrAllocation is returned when a vector or matrix cannot be allocated.
var ErrAllocation = errors.New("linalg: allocation failed")

// NewVector allocates a zeroed vector of length n.
func NewVector(n int) (*mat.VecDense, error) {
	if n <= 0 || n > MaxElements {
		return nil, fmt.Errorf("%w: vector length %d", ErrAllocation, n)
	}
	return mat.NewVecDense(n, nil), nil
}

// NewMatrix allocates a zeroed rows×cols matrix.
func NewMatrix(rows, cols int) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 || rows > MaxElements/cols {
		return nil, fmt.Errorf("%w: matrix shape %dx%d", ErrAllocation, rows, cols)
	}
	return mat.NewDense(rows, cols, nil), nil
}

// normal returns a zero-mean Gaussian with the given variance drawing from src.
func normal(src rand.Source, variance float64) distuv.Normal {
	if variance < 0 || math.IsNaN(variance) {
		panic(fmt.Sprintf("linalg: invalid variance %v", variance))
	}
	return distuv.Normal{Mu: 0, Sigma: math.Sqrt(variance), Src: src}
}

// RandomizeVector overwrites v with independent draws from N(0, variance).
func RandomizeVector(v *mat.VecDense, src rand.Source, variance float64) {
	dist := normal(src, variance)
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, dist.Rand())
	}
}

// RandomizeMatrix overwrites m with independent draws from N(0, variance),
// filling row by row.
func RandomizeMatrix(m *mat.Dense, src rand.Source, variance float64) {
	dist := normal(src, variance)
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, dist.Rand())
		}
	}
}

// Apply replaces every entry of v with f applied to it.
func Apply(v *mat.VecDense, f func(float64) float64) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, f(v.AtVec(i)))
	}
}

// Copy copies src into dst.
func Copy(dst, src *mat.VecDense) {
	mustMatch("Copy", dst.Len(), src.Len())
	dst.CopyVec(src)
}

// Axpy computes y ← y + αx.
func Axpy(alpha float64, x, y *mat.VecDense) {
	mustMatch("Axpy", x.Len(), y.Len())
	blas64.Axpy(alpha, x.RawVector(), y.RawVector())
}

// Scale computes y ← αy.
func Scale(alpha float64, y *mat.VecDense) {
	blas64.Scal(alpha, y.RawVector())
}

// Sub computes y ← y − x.
func Sub(y, x *mat.VecDense) {
	mustMatch("Sub", y.Len(), x.Len())
	y.SubVec(y, x)
}

// MulElem computes y ← y ⊙ x.
func MulElem(y, x *mat.VecDense) {
	mustMatch("MulElem", y.Len(), x.Len())
	y.MulElemVec(y, x)
}

// ScaleMatrix computes A ← αA.
func ScaleMatrix(alpha float64, a *mat.Dense) {
	a.Scale(alpha, a)
}

// SubMatrix computes A ← A − B.
func SubMatrix(a, b *mat.Dense) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	mustMatch("SubMatrix rows", ar, br)
	mustMatch("SubMatrix cols", ac, bc)
	a.Sub(a, b)
}

// AddMatrix computes A ← A + B.
func AddMatrix(a, b *mat.Dense) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	mustMatch("AddMatrix rows", ar, br)
	mustMatch("AddMatrix cols", ac, bc)
	a.Add(a, b)
}

// Ger accumulates the scaled outer product A ← A + α·u·vᵗ.
//
// A must be u.Len()×v.Len(). Existing entries of A are added to, never
// overwritten.
func Ger(alpha float64, u, v *mat.VecDense, a *mat.Dense) {
	rows, cols := a.Dims()
	mustMatch("Ger rows", rows, u.Len())
	mustMatch("Ger cols", cols, v.Len())
	blas64.Ger(alpha, u.RawVector(), v.RawVector(), a.RawMatrix())
}

// Gemv computes y ← αAx + βy, or y ← αAᵗx + βy when trans is set.
func Gemv(trans bool, alpha float64, a *mat.Dense, x *mat.VecDense, beta float64, y *mat.VecDense) {
	rows, cols := a.Dims()
	t := blas.NoTrans
	if trans {
		t = blas.Trans
		rows, cols = cols, rows
	}
	mustMatch("Gemv rows", rows, y.Len())
	mustMatch("Gemv cols", cols, x.Len())
	blas64.Gemv(t, alpha, a.RawMatrix(), x.RawVector(), beta, y.RawVector())
}

// MaxIndex returns the index of the largest entry of v. When the maximum
// occurs more than once the lowest index wins.
func MaxIndex(v mat.Vector) int {
	if raw, ok := v.(mat.RawVectorer); ok {
		rv := raw.RawVector()
		if rv.Inc == 1 {
			return floats.MaxIdx(rv.Data[:rv.N])
		}
	}
	n := v.Len()
	if n == 0 {
		panic("linalg: MaxIndex of empty vector")
	}
	best := 0
	for i := 1; i < n; i++ {
		if v.AtVec(i) > v.AtVec(best) {
			best = i
		}
	}
	return best
}

func mustMatch(op string, a, b int) {
	if a != b {
		panic(fmt.Sprintf("linalg: %s dimension mismatch: %d != %d", op, a, b))
	}
}
