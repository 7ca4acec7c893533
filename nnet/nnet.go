// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nnet

import (
	"log/slog"

	"github.com/born-ml/nnet/internal/dataset"
	"github.com/born-ml/nnet/internal/network"
)

// Network

// Network is a fully-connected sigmoid network.
type Network = network.Network

// Config holds the hyperparameters and architecture of a Network.
type Config = network.Config

// Samples is the dataset view consumed by training and evaluation.
type Samples = network.Samples

// ErrInvalidConfig is returned by New for unusable hyperparameters.
var ErrInvalidConfig = network.ErrInvalidConfig

// New allocates a network. Call RandomInit before training.
//
// Example:
//
//	net, err := nnet.New(nnet.Config{
//	    Sizes:         []int{784, 30, 10},
//	    Eta:           3.0,
//	    Epochs:        10,
//	    MiniBatchSize: 10,
//	    Seed:          42,
//	})
func New(cfg Config) (*Network, error) {
	return network.New(cfg)
}

// Sigmoid returns 1/(1+e^-z).
func Sigmoid(z float64) float64 {
	return network.Sigmoid(z)
}

// SigmoidPrime returns the derivative of Sigmoid at z.
func SigmoidPrime(z float64) float64 {
	return network.SigmoidPrime(z)
}

// Progress reporting

// Reporter receives the held-out result of each epoch.
type Reporter = network.Reporter

// ReporterFunc adapts a function to Reporter.
type ReporterFunc = network.ReporterFunc

// LogReporter logs epoch results with slog.
type LogReporter = network.LogReporter

// NewLogReporter returns a Reporter logging to logger (slog.Default when nil).
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return network.NewLogReporter(logger)
}

// Datasets

// Dataset is a set of equally sized samples with one class label each.
type Dataset = dataset.Dataset

// Dataset errors.
var (
	ErrCountMismatch = dataset.ErrCountMismatch
	ErrBadMagic      = dataset.ErrBadMagic
	ErrPartition     = dataset.ErrPartition
	ErrLabelRange    = dataset.ErrLabelRange
)

// NewDataset builds a dataset over images and labels without copying them.
func NewDataset(images [][]float64, labels []uint8) (*Dataset, error) {
	return dataset.New(images, labels)
}

// LoadIDX loads MNIST IDX image and label files, optionally gzip
// compressed, scaling pixels to [0, 1].
func LoadIDX(imagesPath, labelsPath string, logger *slog.Logger) (*Dataset, error) {
	return dataset.LoadIDX(imagesPath, labelsPath, logger)
}

// LoadCSV loads a Kaggle-style CSV file (label first, then pixels).
func LoadCSV(filename string) (*Dataset, error) {
	return dataset.LoadCSV(filename)
}
