// Package optim implements the parameter update rule applied after each
// mini-batch.
//
// Example usage:
//
//	optimizer := optim.NewSGD(optim.Params{
//	    Weights: weights, NablaW: nablaW,
//	    Biases:  biases, NablaB: nablaB,
//	}, optim.SGDConfig{LR: 3.0})
//
//	for _, batch := range batches {
//	    optimizer.ZeroGrad()
//	    for _, i := range batch {
//	        backpropagate(i) // accumulates into NablaW/NablaB
//	    }
//	    optimizer.Step(len(batch))
//	}
package optim

import (
	"fmt"

	"github.com/born-ml/nnet/internal/layers"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies the gradients accumulated over batchSize samples to the
	// parameters. Gradients are averaged by batchSize.
	Step(batchSize int)

	// ZeroGrad clears the gradient accumulators.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64
}

// Params pairs the parameter arrays of a network with their gradient
// accumulators. Entry i of each array belongs to layer i.
type Params struct {
	Weights *layers.Matrices
	NablaW  *layers.Matrices
	Biases  *layers.Vectors
	NablaB  *layers.Vectors
}

func (p Params) validate() error {
	if p.Weights == nil || p.NablaW == nil || p.Biases == nil || p.NablaB == nil {
		return fmt.Errorf("optim: incomplete parameter set")
	}
	n := p.Weights.Len()
	if p.NablaW.Len() != n || p.Biases.Len() != n || p.NablaB.Len() != n {
		return fmt.Errorf("optim: layer count mismatch: weights=%d nabla_w=%d biases=%d nabla_b=%d",
			n, p.NablaW.Len(), p.Biases.Len(), p.NablaB.Len())
	}
	return nil
}
