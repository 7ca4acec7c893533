package optim

import (
	"fmt"

	"github.com/born-ml/nnet/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// SGD implements mini-batch Stochastic Gradient Descent with optional
// momentum.
//
// Update rule without momentum, for a batch of n samples:
//
//	param = param - (lr / n) * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient / n
//	param = param - lr * velocity
//
// The gradient accumulators are used as scratch space by Step and must be
// zeroed (ZeroGrad) before the next batch is accumulated.
type SGD struct {
	params    Params
	lr        float64
	momentum  float64
	velocityW []*mat.Dense
	velocityB []*mat.VecDense
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (eta).
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1)).
}

// NewSGD creates a new SGD optimizer over params.
func NewSGD(params Params, config SGDConfig) (*SGD, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if config.LR <= 0 {
		return nil, fmt.Errorf("optim: learning rate must be > 0 (got %v)", config.LR)
	}
	if config.Momentum < 0 || config.Momentum >= 1 {
		return nil, fmt.Errorf("optim: momentum must be in [0, 1) (got %v)", config.Momentum)
	}
	return &SGD{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
	}, nil
}

// Step applies the update for a batch of batchSize samples to every layer.
//
// The scale uses the actual batch size so a short trailing batch is
// averaged correctly.
func (s *SGD) Step(batchSize int) {
	if batchSize <= 0 {
		panic(fmt.Sprintf("optim: Step with batch size %d", batchSize))
	}
	if s.momentum == 0 {
		s.step(s.lr / float64(batchSize))
		return
	}
	s.stepWithMomentum(1 / float64(batchSize))
}

// step performs the plain SGD update.
func (s *SGD) step(scale float64) {
	p := s.params
	for i := 0; i < p.Weights.Len(); i++ {
		linalg.ScaleMatrix(scale, p.NablaW.At(i))
		linalg.SubMatrix(p.Weights.At(i), p.NablaW.At(i))

		linalg.Scale(scale, p.NablaB.At(i))
		linalg.Sub(p.Biases.At(i), p.NablaB.At(i))
	}
}

// stepWithMomentum performs the SGD update with momentum.
func (s *SGD) stepWithMomentum(scale float64) {
	p := s.params
	if s.velocityW == nil {
		s.initVelocities()
	}
	for i := 0; i < p.Weights.Len(); i++ {
		vw, gw := s.velocityW[i], p.NablaW.At(i)
		linalg.ScaleMatrix(s.momentum, vw)
		linalg.ScaleMatrix(scale, gw)
		linalg.AddMatrix(vw, gw)
		// gw is scratch from here on.
		gw.Scale(s.lr, vw)
		linalg.SubMatrix(p.Weights.At(i), gw)

		vb, gb := s.velocityB[i], p.NablaB.At(i)
		linalg.Scale(s.momentum, vb)
		linalg.Axpy(scale, gb, vb)
		linalg.Axpy(-s.lr, vb, p.Biases.At(i))
	}
}

func (s *SGD) initVelocities() {
	p := s.params
	s.velocityW = make([]*mat.Dense, p.Weights.Len())
	s.velocityB = make([]*mat.VecDense, p.Biases.Len())
	for i := range s.velocityW {
		r, c := p.Weights.At(i).Dims()
		s.velocityW[i] = mat.NewDense(r, c, nil)
		s.velocityB[i] = mat.NewVecDense(p.Biases.At(i).Len(), nil)
	}
}

// ZeroGrad clears the gradient accumulators of every layer.
func (s *SGD) ZeroGrad() {
	s.params.NablaW.Zero()
	s.params.NablaB.Zero()
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// Momentum returns the momentum factor.
func (s *SGD) Momentum() float64 {
	return s.momentum
}
