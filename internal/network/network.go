// Package network implements a fully-connected feed-forward network with
// sigmoid activations trained by mini-batch stochastic gradient descent and
// backpropagation of a quadratic cost.
//
// A Network owns its parameter arrays (weights and biases), the
// per-sample working arrays filled by forward and backward passes
// (activations, pre-activations and error terms) and the gradient
// accumulators for the current mini-batch. The sample being processed is
// bound into the activation array's input slot as a borrowed view and is
// addressed as layer layers.InputIndex.
//
// Example:
//
//	net, err := network.New(network.Config{
//	    Sizes:         []int{784, 30, 10},
//	    Eta:           3.0,
//	    Epochs:        10,
//	    MiniBatchSize: 10,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	net.RandomInit(1.0)
//	net.SGD(train, test, network.NewLogReporter(nil))
package network

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/born-ml/nnet/internal/layers"
	"github.com/born-ml/nnet/internal/linalg"
	"github.com/born-ml/nnet/internal/optim"
	"github.com/born-ml/nnet/internal/parallel"
)

// ErrInvalidConfig is returned by New for unusable hyperparameters or layer
// sizes.
var ErrInvalidConfig = errors.New("network: invalid config")

// Random streams derived from Config.Seed.
const (
	initStream    = 0
	shuffleStream = 1
)

// Samples is the read-only dataset view consumed by training and
// evaluation.
type Samples interface {
	// Len returns the number of samples.
	Len() int
	// Sample returns sample i as a borrowed view.
	Sample(i int) linalg.View
	// Label returns the class label of sample i.
	Label(i int) int
}

// Config holds the hyperparameters and architecture of a Network.
type Config struct {
	Sizes         []int   // Layer sizes; Sizes[0] is the input dimension, the last entry the class count.
	Eta           float64 // Learning rate.
	Epochs        int     // Number of passes over the training set.
	MiniBatchSize int     // Samples per parameter update.
	Momentum      float64 // SGD momentum, 0 for plain SGD.
	Seed          uint64  // Seed for initialization and shuffling.
	Workers       int     // Goroutines accumulating gradients per batch; <= 1 is sequential.
	Logger        *slog.Logger
}

func (c Config) validate() error {
	if len(c.Sizes) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidConfig, len(c.Sizes))
	}
	for i, s := range c.Sizes {
		if s <= 0 {
			return fmt.Errorf("%w: layer %d has size %d", ErrInvalidConfig, i, s)
		}
	}
	if c.Eta <= 0 {
		return fmt.Errorf("%w: eta must be > 0 (got %v)", ErrInvalidConfig, c.Eta)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("%w: epochs must be >= 0 (got %d)", ErrInvalidConfig, c.Epochs)
	}
	if c.MiniBatchSize <= 0 {
		return fmt.Errorf("%w: mini batch size must be > 0 (got %d)", ErrInvalidConfig, c.MiniBatchSize)
	}
	return nil
}

// Network is a fully-connected sigmoid network.
type Network struct {
	eta           float64
	epochs        int
	miniBatchSize int
	seed          uint64
	sizes         []int

	outputs *layers.Vectors // activations, input bound at layers.InputIndex
	zs      *layers.Vectors // pre-activations
	deltas  *layers.Vectors // backpropagated error terms
	scratch *layers.Vectors // σ'(z) per layer
	biases  *layers.Vectors
	nablaB  *layers.Vectors
	weights *layers.Matrices
	nablaW  *layers.Matrices

	optimizer *optim.SGD
	par       parallel.Config
	replicas  []*Network // replicas[0] is the network itself
	logger    *slog.Logger
}

// New allocates a network for cfg. Weights and biases start at zero; call
// RandomInit before training.
func New(cfg Config) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	n := &Network{
		eta:           cfg.Eta,
		epochs:        cfg.Epochs,
		miniBatchSize: cfg.MiniBatchSize,
		seed:          cfg.Seed,
		sizes:         append([]int(nil), cfg.Sizes...),
		logger:        logger,
	}

	var err error
	if n.weights, err = layers.NewMatrices(n.sizes); err != nil {
		return nil, fmt.Errorf("allocate weights: %w", err)
	}
	if n.biases, err = layers.NewVectors(n.sizes[1:], false); err != nil {
		return nil, fmt.Errorf("allocate biases: %w", err)
	}
	if err := n.allocateWork(); err != nil {
		return nil, err
	}

	n.optimizer, err = optim.NewSGD(optim.Params{
		Weights: n.weights,
		NablaW:  n.nablaW,
		Biases:  n.biases,
		NablaB:  n.nablaB,
	}, optim.SGDConfig{LR: cfg.Eta, Momentum: cfg.Momentum})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	n.par = parallel.Sequential()
	n.replicas = []*Network{n}
	if cfg.Workers > 1 {
		n.par = parallel.Config{Enabled: true, NumWorkers: cfg.Workers, MinChunkSize: 1}
		for w := 1; w < cfg.Workers; w++ {
			r, err := n.newReplica()
			if err != nil {
				return nil, fmt.Errorf("allocate worker %d: %w", w, err)
			}
			n.replicas = append(n.replicas, r)
		}
	}

	return n, nil
}

// allocateWork allocates the per-sample working arrays and gradient
// accumulators.
func (n *Network) allocateWork() error {
	dims := n.sizes[1:]
	var err error
	if n.nablaW, err = layers.NewMatrices(n.sizes); err != nil {
		return fmt.Errorf("allocate weight gradients: %w", err)
	}
	if n.nablaB, err = layers.NewVectors(dims, false); err != nil {
		return fmt.Errorf("allocate bias gradients: %w", err)
	}
	if n.zs, err = layers.NewVectors(dims, false); err != nil {
		return fmt.Errorf("allocate pre-activations: %w", err)
	}
	if n.deltas, err = layers.NewVectors(dims, false); err != nil {
		return fmt.Errorf("allocate error terms: %w", err)
	}
	if n.scratch, err = layers.NewVectors(dims, false); err != nil {
		return fmt.Errorf("allocate scratch: %w", err)
	}
	if n.outputs, err = layers.NewVectors(dims, true); err != nil {
		return fmt.Errorf("allocate activations: %w", err)
	}
	return nil
}

// newReplica returns a worker copy sharing n's weights and biases with its
// own working arrays and accumulators.
func (n *Network) newReplica() (*Network, error) {
	r := &Network{
		eta:     n.eta,
		sizes:   n.sizes,
		weights: n.weights,
		biases:  n.biases,
		logger:  n.logger,
	}
	if err := r.allocateWork(); err != nil {
		return nil, err
	}
	return r, nil
}

// RandomInit draws every weight and bias from N(0, variance) using a source
// seeded from the configured seed, so repeated runs start identically.
func (n *Network) RandomInit(variance float64) {
	src := rand.NewPCG(n.seed, initStream)
	n.biases.Randomize(src, variance)
	n.weights.Randomize(src, variance)
}

// Release drops all storage owned by the network. A released network must
// not be used again.
func (n *Network) Release() {
	for _, r := range n.replicas {
		r.releaseWork()
	}
	n.weights.Release()
	n.biases.Release()
	n.replicas = nil
}

func (n *Network) releaseWork() {
	n.outputs.Release()
	n.zs.Release()
	n.deltas.Release()
	n.scratch.Release()
	n.nablaB.Release()
	n.nablaW.Release()
}

// Sizes returns a copy of the layer sizes.
func (n *Network) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// Layers returns the number of non-input layers.
func (n *Network) Layers() int {
	return len(n.sizes) - 1
}

// Eta returns the learning rate.
func (n *Network) Eta() float64 { return n.eta }

// Epochs returns the configured epoch count.
func (n *Network) Epochs() int { return n.epochs }

// MiniBatchSize returns the configured mini-batch size.
func (n *Network) MiniBatchSize() int { return n.miniBatchSize }

// Workers returns the number of gradient accumulation workers.
func (n *Network) Workers() int { return len(n.replicas) }

// Weights returns the weight matrices.
func (n *Network) Weights() *layers.Matrices { return n.weights }

// Biases returns the bias vectors.
func (n *Network) Biases() *layers.Vectors { return n.biases }

// Outputs returns the activation vectors, input slot included.
func (n *Network) Outputs() *layers.Vectors { return n.outputs }

// Zs returns the cached pre-activation vectors.
func (n *Network) Zs() *layers.Vectors { return n.zs }

// Deltas returns the backpropagated error terms.
func (n *Network) Deltas() *layers.Vectors { return n.deltas }

// NablaW returns the weight gradient accumulators.
func (n *Network) NablaW() *layers.Matrices { return n.nablaW }

// NablaB returns the bias gradient accumulators.
func (n *Network) NablaB() *layers.Vectors { return n.nablaB }
