package network

import (
	"github.com/born-ml/nnet/internal/linalg"
)

// Backpropagate runs a cached forward pass for sample and adds its
// cost-function gradients to the accumulators:
//
//	δ[last] = σ'(z[last]) ⊙ (a[last] - y)
//	δ[l]    = σ'(z[l]) ⊙ (W[l+1]ᵗ·δ[l+1])
//	∇b[l]  += δ[l]
//	∇w[l]  += δ[l] ⊗ a[l-1]
//
// Accumulators are never reset here; the caller zeroes them per batch.
func (n *Network) Backpropagate(sample linalg.View, label int) {
	n.Bind(sample)
	n.FeedForward(true)
	n.OutputError(label)

	last := n.Layers() - 1
	n.AccumulateGradients(last)

	for l := last - 1; l >= 0; l-- {
		sp := n.scratch.At(l)
		linalg.Copy(sp, n.zs.At(l))
		linalg.Apply(sp, SigmoidPrime)

		delta := n.deltas.At(l)
		linalg.Gemv(true, 1, n.weights.At(l+1), n.deltas.At(l+1), 0, delta)
		linalg.MulElem(delta, sp)

		n.AccumulateGradients(l)
	}
}

// OutputError computes the output layer error δ[last] from the cached
// pre-activations and activations of the last forward pass.
func (n *Network) OutputError(label int) {
	last := n.Layers() - 1

	delta := n.deltas.At(last)
	CostDerivative(n.outputs.At(last), label, delta)

	sp := n.scratch.At(last)
	linalg.Copy(sp, n.zs.At(last))
	linalg.Apply(sp, SigmoidPrime)

	linalg.MulElem(delta, sp)
}

// AccumulateGradients adds layer l's error term to the bias gradient and
// its outer product with the previous activation to the weight gradient.
func (n *Network) AccumulateGradients(l int) {
	linalg.Axpy(1, n.deltas.At(l), n.nablaB.At(l))
	linalg.Ger(1, n.deltas.At(l), n.outputs.At(l-1), n.nablaW.At(l))
}
