// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nnet trains fully-connected sigmoid networks with mini-batch
// stochastic gradient descent and backpropagation.
//
// # Overview
//
// This package contains:
//   - Network: layer arrays, forward pass, backpropagation and SGD training
//   - Dataset: labelled samples loaded from MNIST IDX or CSV files
//   - Reporter: per-epoch progress callbacks
//
// # Basic Usage
//
//	import "github.com/born-ml/nnet/nnet"
//
//	func main() {
//	    ds, err := nnet.LoadIDX("train-images.idx3-ubyte", "train-labels.idx1-ubyte", nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    train, test, err := ds.Partition(10000)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    net, err := nnet.New(nnet.Config{
//	        Sizes:         []int{784, 30, 10},
//	        Eta:           3.0,
//	        Epochs:        30,
//	        MiniBatchSize: 10,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer net.Release()
//
//	    net.RandomInit(1.0)
//	    net.SGD(train, test, nnet.NewLogReporter(nil))
//	}
//
// Training is deterministic for a given Config.Seed and Config.Workers.
package nnet
