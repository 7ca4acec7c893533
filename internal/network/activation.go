package network

import (
	"fmt"
	"math"

	"github.com/born-ml/nnet/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// Sigmoid computes σ(z) = 1 / (1 + exp(-z)).
//
// The exponent is always taken of a non-positive value so large |z|
// saturates to 0 or 1 without overflow.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// SigmoidPrime computes σ'(z) = σ(z)(1 - σ(z)).
func SigmoidPrime(z float64) float64 {
	s := Sigmoid(z)
	return s * (1 - s)
}

// CostDerivative writes ∂C/∂a for the quadratic cost into dst: the output
// activations with 1 subtracted at the true label.
func CostDerivative(output *mat.VecDense, label int, dst *mat.VecDense) {
	if label < 0 || label >= output.Len() {
		panic(fmt.Sprintf("network: label %d out of range [0, %d)", label, output.Len()))
	}
	linalg.Copy(dst, output)
	dst.SetVec(label, dst.AtVec(label)-1)
}
