package linalg

import "gonum.org/v1/gonum/mat"

// View is a borrowed vector over storage owned by someone else, typically a
// dataset sample. A View never owns its data: holders must not write
// through it and must not keep it past the owner's lifetime.
//
// The zero View is unbound.
type View struct {
	vec *mat.VecDense
}

// ViewOf wraps data without copying it.
func ViewOf(data []float64) View {
	if len(data) == 0 {
		panic("linalg: ViewOf empty slice")
	}
	return View{vec: mat.NewVecDense(len(data), data)}
}

// Len returns the length of the viewed vector, or 0 for an unbound View.
func (v View) Len() int {
	if v.vec == nil {
		return 0
	}
	return v.vec.Len()
}

// Bound reports whether v refers to any storage.
func (v View) Bound() bool {
	return v.vec != nil
}

// AtVec returns entry i.
func (v View) AtVec(i int) float64 {
	return v.vec.AtVec(i)
}

// Vec exposes the underlying vector to read-only kernels.
func (v View) Vec() *mat.VecDense {
	return v.vec
}
