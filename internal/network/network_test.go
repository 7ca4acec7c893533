package network

import (
	"testing"

	"github.com/born-ml/nnet/internal/layers"
	"github.com/born-ml/nnet/internal/linalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

var _ Samples = (*sliceSamples)(nil)

// sliceSamples is an in-memory Samples implementation for tests.
type sliceSamples struct {
	views  []linalg.View
	labels []int
}

func newSliceSamples(images [][]float64, labels []int) *sliceSamples {
	s := &sliceSamples{labels: labels}
	for _, img := range images {
		s.views = append(s.views, linalg.ViewOf(img))
	}
	return s
}

func (s *sliceSamples) Len() int                 { return len(s.views) }
func (s *sliceSamples) Sample(i int) linalg.View { return s.views[i] }
func (s *sliceSamples) Label(i int) int          { return s.labels[i] }

// twoClusters returns n samples alternating between two separable
// prototypes.
func twoClusters(n int) *sliceSamples {
	images := make([][]float64, n)
	labels := make([]int, n)
	for i := range images {
		if i%2 == 0 {
			images[i] = []float64{0.9, 0.1}
		} else {
			images[i] = []float64{0.1, 0.9}
			labels[i] = 1
		}
	}
	return newSliceSamples(images, labels)
}

func newTestNetwork(t testing.TB, cfg Config) *Network {
	t.Helper()
	if cfg.Eta == 0 {
		cfg.Eta = 3.0
	}
	if cfg.MiniBatchSize == 0 {
		cfg.MiniBatchSize = 2
	}
	n, err := New(cfg)
	require.NoError(t, err)
	return n
}

func fillMatrix(m *mat.Dense, v float64) {
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = v
	}
}

func fillVector(v *mat.VecDense, x float64) {
	for i := 0; i < v.Len(); i++ {
		v.SetVec(i, x)
	}
}

func TestNew_Shapes(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 3, 2}})

	require.Equal(t, 2, n.Layers())
	for _, arr := range []*layers.Vectors{n.outputs, n.zs, n.deltas, n.biases, n.nablaB} {
		require.Equal(t, 2, arr.Len())
		assert.Equal(t, 3, arr.At(0).Len())
		assert.Equal(t, 2, arr.At(1).Len())
	}
	for _, arr := range []*layers.Matrices{n.weights, n.nablaW} {
		r, c := arr.At(0).Dims()
		assert.Equal(t, [2]int{3, 2}, [2]int{r, c})
		r, c = arr.At(1).Dims()
		assert.Equal(t, [2]int{2, 3}, [2]int{r, c})
	}
	assert.Equal(t, []int{2, 3, 2}, n.Sizes())
	assert.Equal(t, 1, n.Workers())
}

func TestNew_Invalid(t *testing.T) {
	cases := map[string]Config{
		"single layer": {Sizes: []int{4}, Eta: 1, MiniBatchSize: 1},
		"zero size":    {Sizes: []int{4, 0, 2}, Eta: 1, MiniBatchSize: 1},
		"zero eta":     {Sizes: []int{4, 2}, Eta: 0, MiniBatchSize: 1},
		"zero batch":   {Sizes: []int{4, 2}, Eta: 1, MiniBatchSize: 0},
		"neg epochs":   {Sizes: []int{4, 2}, Eta: 1, MiniBatchSize: 1, Epochs: -1},
		"momentum":     {Sizes: []int{4, 2}, Eta: 1, MiniBatchSize: 1, Momentum: 1.5},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNew_AllocationFailure(t *testing.T) {
	_, err := New(Config{Sizes: []int{linalg.MaxElements, 4}, Eta: 1, MiniBatchSize: 1})
	require.ErrorIs(t, err, linalg.ErrAllocation)
}

// TestFeedForward uses a 2→3→2 network whose biases cancel the weighted
// input so every pre-activation is exactly zero.
func TestFeedForward(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 3, 2}})

	input := []float64{1, 1}
	n.Bind(linalg.ViewOf(input))

	fillMatrix(n.weights.At(0), 1.0)
	fillMatrix(n.weights.At(1), 1.0)
	fillVector(n.biases.At(0), -2.0)
	fillVector(n.biases.At(1), -1.5)

	n.FeedForward(true)

	// Inputs are untouched.
	assert.Equal(t, []float64{1, 1}, input)
	assert.Equal(t, 1.0, n.outputs.At(layers.InputIndex).AtVec(0))

	for l := 0; l < n.Layers(); l++ {
		for i := 0; i < n.sizes[l+1]; i++ {
			assert.Equal(t, 0.0, n.zs.At(l).AtVec(i), "z[%d][%d]", l, i)
			assert.Equal(t, 0.5, n.outputs.At(l).AtVec(i), "a[%d][%d]", l, i)
		}
	}
}

func TestFeedForward_NoCache(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 3, 2}})
	n.zs.At(0).SetVec(0, 7)

	n.Bind(linalg.ViewOf([]float64{1, 1}))
	n.FeedForward(false)

	assert.Equal(t, 7.0, n.zs.At(0).AtVec(0))
	assert.Equal(t, 0.5, n.outputs.At(1).AtVec(0))
}

func TestOutputError(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 3, 2}})
	last := n.Layers() - 1

	n.outputs.At(last).SetVec(0, 0.2)
	n.outputs.At(last).SetVec(1, 0.9)
	n.zs.At(last).SetVec(0, 0.5)
	n.zs.At(last).SetVec(1, 0.1)

	n.OutputError(1)

	assert.InDelta(t, 0.047, n.deltas.At(last).AtVec(0), 1e-4)
	assert.InDelta(t, -0.02494, n.deltas.At(last).AtVec(1), 1e-5)
}

func TestAccumulateGradients(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 3, 2}})
	last := n.Layers() - 1

	n.deltas.At(last).SetVec(0, 0.5)
	n.deltas.At(last).SetVec(1, 0.1)

	// Non-zero accumulators check that contributions are added.
	n.nablaB.At(last).SetVec(0, 1.0)
	n.nablaB.At(last).SetVec(1, 2.0)
	n.nablaW.At(last).SetRow(0, []float64{1, 2, 3})
	n.nablaW.At(last).SetRow(1, []float64{4, 5, 6})

	n.outputs.At(last - 1).SetVec(0, 1.0)
	n.outputs.At(last - 1).SetVec(1, 2.0)
	n.outputs.At(last - 1).SetVec(2, 3.0)

	n.AccumulateGradients(last)

	wantW := [][]float64{{1.5, 3.0, 4.5}, {4.1, 5.2, 6.3}}
	for i, row := range wantW {
		for j, w := range row {
			assert.InDelta(t, w, n.nablaW.At(last).At(i, j), 1e-12, "nabla_w[%d][%d]", i, j)
		}
	}
	assert.InDelta(t, 1.5, n.nablaB.At(last).AtVec(0), 1e-12)
	assert.InDelta(t, 2.1, n.nablaB.At(last).AtVec(1), 1e-12)
}

func TestAccumulateGradients_FirstLayerUsesInput(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 1, 1}})

	n.Bind(linalg.ViewOf([]float64{2, 4}))
	n.deltas.At(0).SetVec(0, 0.5)

	n.AccumulateGradients(0)

	assert.InDelta(t, 1.0, n.nablaW.At(0).At(0, 0), 1e-12)
	assert.InDelta(t, 2.0, n.nablaW.At(0).At(0, 1), 1e-12)
}

// quadraticCost evaluates ½‖a - y‖² for one sample.
func quadraticCost(n *Network, sample linalg.View, label int) float64 {
	n.Bind(sample)
	n.FeedForward(false)
	out := n.outputs.At(n.Layers() - 1)
	var c float64
	for i := 0; i < out.Len(); i++ {
		d := out.AtVec(i)
		if i == label {
			d -= 1
		}
		c += 0.5 * d * d
	}
	return c
}

// TestBackpropagate_MatchesFiniteDifferences checks the accumulated
// gradients against numerical derivatives of the quadratic cost.
func TestBackpropagate_MatchesFiniteDifferences(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{3, 4, 3, 2}, Seed: 11})
	n.RandomInit(1.0)

	sample := linalg.ViewOf([]float64{0.2, 0.7, 0.4})
	label := 1

	n.Backpropagate(sample, label)

	settings := &fd.Settings{Formula: fd.Central, Step: 1e-6}
	for l := 0; l < n.Layers(); l++ {
		w := n.weights.At(l).RawMatrix().Data
		orig := append([]float64(nil), w...)
		grad := fd.Gradient(nil, func(x []float64) float64 {
			copy(w, x)
			return quadraticCost(n, sample, label)
		}, orig, settings)
		copy(w, orig)

		got := n.nablaW.At(l).RawMatrix().Data
		for i := range grad {
			assert.InDelta(t, grad[i], got[i], 1e-6, "nabla_w[%d] entry %d", l, i)
		}

		b := n.biases.At(l).RawVector().Data
		origB := append([]float64(nil), b...)
		gradB := fd.Gradient(nil, func(x []float64) float64 {
			copy(b, x)
			return quadraticCost(n, sample, label)
		}, origB, settings)
		copy(b, origB)

		for i := range gradB {
			assert.InDelta(t, gradB[i], n.nablaB.At(l).AtVec(i), 1e-6, "nabla_b[%d] entry %d", l, i)
		}
	}
}

func TestBackpropagate_Accumulates(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 3, 2}, Seed: 5})
	n.RandomInit(1.0)
	sample := linalg.ViewOf([]float64{0.3, 0.6})

	n.Backpropagate(sample, 0)
	once := mat.DenseCopyOf(n.nablaW.At(0))
	onceB := mat.VecDenseCopyOf(n.nablaB.At(1))

	n.Backpropagate(sample, 0)

	var twice mat.Dense
	twice.Scale(2, once)
	assert.True(t, mat.EqualApprox(&twice, n.nablaW.At(0), 1e-12))

	var twiceB mat.VecDense
	twiceB.ScaleVec(2, onceB)
	assert.True(t, mat.EqualApprox(&twiceB, n.nablaB.At(1), 1e-12))
}

func TestBind_WrongSize(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 3, 2}})
	assert.Panics(t, func() { n.Bind(linalg.ViewOf([]float64{1, 2, 3})) })
}

func TestPredictAndEvaluate(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 2}})

	// Identity weights: the larger input wins.
	n.weights.At(0).Set(0, 0, 10)
	n.weights.At(0).Set(1, 1, 10)

	assert.Equal(t, 1, n.Predict(linalg.ViewOf([]float64{0.2, 0.9})))
	assert.Equal(t, 0, n.Predict(linalg.ViewOf([]float64{0.9, 0.2})))
	assert.Equal(t, 0, n.Predict(linalg.ViewOf([]float64{0.5, 0.5})), "ties go to the lowest index")

	before := mat.DenseCopyOf(n.weights.At(0))
	ds := newSliceSamples(
		[][]float64{{0.9, 0.1}, {0.1, 0.9}, {0.8, 0.3}},
		[]int{0, 1, 1},
	)
	assert.Equal(t, 2, n.Evaluate(ds))
	assert.True(t, mat.Equal(before, n.weights.At(0)), "evaluation must not touch parameters")
}

func TestRelease(t *testing.T) {
	n := newTestNetwork(t, Config{Sizes: []int{2, 3, 2}, Workers: 2})
	n.Release()

	assert.Panics(t, func() { n.FeedForward(false) })
	assert.NotPanics(t, n.Release)
}

func BenchmarkBackpropagate(b *testing.B) {
	n := newTestNetwork(b, Config{Sizes: []int{784, 30, 10}})
	n.RandomInit(1.0)

	img := make([]float64, 784)
	for i := range img {
		img[i] = float64(i%255) / 255
	}
	sample := linalg.ViewOf(img)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Backpropagate(sample, i%10)
	}
}

func BenchmarkFeedForward(b *testing.B) {
	n := newTestNetwork(b, Config{Sizes: []int{784, 30, 10}})
	n.RandomInit(1.0)
	n.Bind(linalg.ViewOf(make([]float64, 784)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.FeedForward(false)
	}
}
