package network

import (
	"fmt"

	"github.com/born-ml/nnet/internal/linalg"
)

// Bind points the input slot at sample. The network borrows the storage
// until the next Bind.
func (n *Network) Bind(sample linalg.View) {
	if sample.Len() != n.sizes[0] {
		panic(fmt.Sprintf("network: sample has %d features, input layer has %d", sample.Len(), n.sizes[0]))
	}
	n.outputs.Bind(sample)
}

// FeedForward propagates the bound input through every layer:
//
//	z[i] = W[i]·a[i-1] + b[i]
//	a[i] = σ(z[i])
//
// When storeZ is set z[i] is kept for backpropagation. Results overwrite
// the network's own arrays; nothing is allocated.
func (n *Network) FeedForward(storeZ bool) {
	for i := 0; i < n.Layers(); i++ {
		a := n.outputs.At(i)
		linalg.Gemv(false, 1, n.weights.At(i), n.outputs.At(i-1), 0, a)
		linalg.Axpy(1, n.biases.At(i), a)

		if storeZ {
			linalg.Copy(n.zs.At(i), a)
		}

		linalg.Apply(a, Sigmoid)
	}
}

// Output returns the index of the most activated output neuron after a
// forward pass, the lowest index on ties.
func (n *Network) Output() int {
	return linalg.MaxIndex(n.outputs.At(n.Layers() - 1))
}

// Predict classifies a single sample.
func (n *Network) Predict(sample linalg.View) int {
	n.Bind(sample)
	n.FeedForward(false)
	return n.Output()
}

// Evaluate returns how many samples of ds are classified correctly.
//
// Parameters are not modified; the activation arrays and input slot are.
func (n *Network) Evaluate(ds Samples) int {
	correct := 0
	for i := 0; i < ds.Len(); i++ {
		if n.Predict(ds.Sample(i)) == ds.Label(i) {
			correct++
		}
	}
	return correct
}

