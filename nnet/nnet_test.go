// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nnet_test

import (
	"testing"

	"github.com/born-ml/nnet/nnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusters(n int) *nnet.Dataset {
	images := make([][]float64, n)
	labels := make([]uint8, n)
	for i := range images {
		if i%2 == 0 {
			images[i] = []float64{0.9, 0.1}
		} else {
			images[i] = []float64{0.1, 0.9}
			labels[i] = 1
		}
	}
	ds, err := nnet.NewDataset(images, labels)
	if err != nil {
		panic(err)
	}
	return ds
}

func TestTrainAndPredict(t *testing.T) {
	train, test, err := clusters(60).Partition(20)
	require.NoError(t, err)

	net, err := nnet.New(nnet.Config{
		Sizes:         []int{2, 3, 2},
		Eta:           3.0,
		Epochs:        30,
		MiniBatchSize: 4,
		Seed:          7,
	})
	require.NoError(t, err)
	defer net.Release()
	net.RandomInit(1.0)

	var epochs int
	results := net.SGD(train, test, nnet.ReporterFunc(func(epoch, correct, total int) {
		epochs++
		assert.Equal(t, 20, total)
	}))

	assert.Equal(t, 30, epochs)
	assert.GreaterOrEqual(t, results[len(results)-1], 18)
	assert.Equal(t, 0, net.Predict(test.Sample(0)))
	assert.Equal(t, 1, net.Predict(test.Sample(1)))
}

func TestNew_Invalid(t *testing.T) {
	_, err := nnet.New(nnet.Config{Sizes: []int{2}, Eta: 1, MiniBatchSize: 1})
	assert.ErrorIs(t, err, nnet.ErrInvalidConfig)
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, nnet.Sigmoid(0))
	assert.Equal(t, 0.25, nnet.SigmoidPrime(0))
}

func TestDatasetErrors(t *testing.T) {
	_, err := nnet.NewDataset([][]float64{{1}}, nil)
	assert.ErrorIs(t, err, nnet.ErrCountMismatch)

	_, _, err = clusters(2).Partition(2)
	assert.ErrorIs(t, err, nnet.ErrPartition)

	assert.ErrorIs(t, clusters(2).ValidateLabels(1), nnet.ErrLabelRange)
}
