// Package layers holds the per-layer parameter and activation arrays of a
// fully-connected network.
//
// A network with layer sizes [n0, n1, ..., nL-1] keeps one vector per
// non-input layer (sizes n1..nL-1) for activations, pre-activations, biases,
// bias gradients and error terms, and one matrix per non-input layer for
// weights and weight gradients, where matrix i maps layer i activations to
// layer i+1 pre-activations and has shape n(i+1)×n(i).
//
// The input sample is addressed as the virtual layer InputIndex (-1) of an
// activation array so that layer 0 can read "the previous activation" the
// same way every other layer does. That slot is a borrowed linalg.View and
// never owned by the array.
package layers

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/nnet/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// InputIndex addresses the borrowed input slot of an activation array.
const InputIndex = -1

// Vectors is an ordered array of owned vectors, optionally preceded by a
// borrowed input slot.
type Vectors struct {
	data     []*mat.VecDense
	input    linalg.View
	hasInput bool
}

// NewVectors allocates one zeroed vector per entry of dims. When withInput
// is set the array also reserves the input slot at InputIndex.
func NewVectors(dims []int, withInput bool) (*Vectors, error) {
	data := make([]*mat.VecDense, len(dims))
	for i, d := range dims {
		v, err := linalg.NewVector(d)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		data[i] = v
	}
	return &Vectors{data: data, hasInput: withInput}, nil
}

// Len returns the number of owned vectors, not counting the input slot.
func (a *Vectors) Len() int {
	return len(a.data)
}

// At returns vector i. At(InputIndex) returns the currently bound input and
// panics if the array has no input slot or nothing is bound.
func (a *Vectors) At(i int) *mat.VecDense {
	if i == InputIndex {
		if !a.hasInput {
			panic("layers: array has no input slot")
		}
		if !a.input.Bound() {
			panic("layers: input slot is unbound")
		}
		return a.input.Vec()
	}
	return a.data[i]
}

// Bind points the input slot at v. The array does not take ownership.
func (a *Vectors) Bind(v linalg.View) {
	if !a.hasInput {
		panic("layers: array has no input slot")
	}
	a.input = v
}

// Input returns the bound input view.
func (a *Vectors) Input() linalg.View {
	return a.input
}

// Zero clears every owned vector. The input slot is left untouched.
func (a *Vectors) Zero() {
	for _, v := range a.data {
		v.Zero()
	}
}

// Randomize fills every owned vector with N(0, variance) draws.
func (a *Vectors) Randomize(src rand.Source, variance float64) {
	for _, v := range a.data {
		linalg.RandomizeVector(v, src, variance)
	}
}

// Release drops all owned storage and unbinds the input slot.
func (a *Vectors) Release() {
	a.data = nil
	a.input = linalg.View{}
}

// Matrices is an ordered array of owned weight-shaped matrices.
type Matrices struct {
	data []*mat.Dense
}

// NewMatrices allocates len(sizes)-1 zeroed matrices, matrix i having shape
// sizes[i+1]×sizes[i].
func NewMatrices(sizes []int) (*Matrices, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("layers: need at least 2 layer sizes, got %d", len(sizes))
	}
	data := make([]*mat.Dense, len(sizes)-1)
	for i := range data {
		m, err := linalg.NewMatrix(sizes[i+1], sizes[i])
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		data[i] = m
	}
	return &Matrices{data: data}, nil
}

// Len returns the number of matrices.
func (a *Matrices) Len() int {
	return len(a.data)
}

// At returns matrix i.
func (a *Matrices) At(i int) *mat.Dense {
	return a.data[i]
}

// Zero clears every matrix.
func (a *Matrices) Zero() {
	for _, m := range a.data {
		m.Zero()
	}
}

// Randomize fills every matrix with N(0, variance) draws.
func (a *Matrices) Randomize(src rand.Source, variance float64) {
	for _, m := range a.data {
		linalg.RandomizeMatrix(m, src, variance)
	}
}

// Release drops all owned storage.
func (a *Matrices) Release() {
	a.data = nil
}
