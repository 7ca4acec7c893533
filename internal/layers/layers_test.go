package layers

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/nnet/internal/linalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVectors(t *testing.T) {
	a, err := NewVectors([]int{3, 2}, false)
	require.NoError(t, err)
	require.Equal(t, 2, a.Len())
	assert.Equal(t, 3, a.At(0).Len())
	assert.Equal(t, 2, a.At(1).Len())

	assert.Panics(t, func() { a.At(InputIndex) })
	assert.Panics(t, func() { a.Bind(linalg.ViewOf([]float64{1})) })
}

func TestNewVectors_BadDims(t *testing.T) {
	_, err := NewVectors([]int{3, 0}, true)
	require.ErrorIs(t, err, linalg.ErrAllocation)
}

func TestVectors_InputSlot(t *testing.T) {
	a, err := NewVectors([]int{3, 2}, true)
	require.NoError(t, err)

	assert.Panics(t, func() { a.At(InputIndex) }, "unbound slot")

	sample := []float64{0.25, 0.75}
	a.Bind(linalg.ViewOf(sample))
	in := a.At(InputIndex)
	assert.Equal(t, 2, in.Len())
	assert.Equal(t, 0.75, in.AtVec(1))

	// Zero must not reach through the borrowed slot.
	a.At(0).SetVec(0, 5)
	a.Zero()
	assert.Zero(t, a.At(0).AtVec(0))
	assert.Equal(t, []float64{0.25, 0.75}, sample)

	// Rebinding swaps the alias without copying.
	other := []float64{1, 2}
	a.Bind(linalg.ViewOf(other))
	other[0] = 9
	assert.Equal(t, 9.0, a.At(InputIndex).AtVec(0))

	a.Release()
	assert.Zero(t, a.Len())
	assert.False(t, a.Input().Bound())
}

func TestNewMatrices(t *testing.T) {
	m, err := NewMatrices([]int{2, 3, 2})
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	r, c := m.At(0).Dims()
	assert.Equal(t, [2]int{3, 2}, [2]int{r, c})
	r, c = m.At(1).Dims()
	assert.Equal(t, [2]int{2, 3}, [2]int{r, c})

	_, err = NewMatrices([]int{2})
	require.Error(t, err)

	_, err = NewMatrices([]int{2, -3})
	require.ErrorIs(t, err, linalg.ErrAllocation)
}

func TestZeroAndRandomize(t *testing.T) {
	v, err := NewVectors([]int{4, 4}, false)
	require.NoError(t, err)
	m, err := NewMatrices([]int{4, 4, 4})
	require.NoError(t, err)

	src := rand.NewPCG(3, 3)
	v.Randomize(src, 1.0)
	m.Randomize(src, 1.0)

	nonZero := 0
	for i := 0; i < v.Len(); i++ {
		for j := 0; j < v.At(i).Len(); j++ {
			if v.At(i).AtVec(j) != 0 {
				nonZero++
			}
		}
	}
	assert.Positive(t, nonZero)

	v.Zero()
	m.Zero()
	for i := 0; i < m.Len(); i++ {
		for _, x := range m.At(i).RawMatrix().Data {
			assert.Zero(t, x)
		}
		for j := 0; j < v.At(i).Len(); j++ {
			assert.Zero(t, v.At(i).AtVec(j))
		}
	}
}
