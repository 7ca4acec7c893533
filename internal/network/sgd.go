package network

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/born-ml/nnet/internal/linalg"
	"github.com/born-ml/nnet/internal/parallel"
)

// BatchProcessor consumes one mini-batch of sample indices.
type BatchProcessor interface {
	ProcessBatch(batch []int)
}

// BatchProcessorFunc adapts a function to BatchProcessor.
type BatchProcessorFunc func(batch []int)

// ProcessBatch calls f(batch).
func (f BatchProcessorFunc) ProcessBatch(batch []int) { f(batch) }

// BatchCount returns how many batches ProcessMiniBatches produces for items
// samples.
func BatchCount(items, batchSize int) int {
	if batchSize <= 0 {
		panic(fmt.Sprintf("network: batch size %d", batchSize))
	}
	return (items + batchSize - 1) / batchSize
}

// ProcessMiniBatches hands index[:items] to p in consecutive windows of
// batchSize. A trailing remainder becomes one smaller batch; nothing is
// dropped or padded. Each window is capped so p cannot grow it into the
// next one. Returns the number of batches processed.
//
// Zero items or a zero batch size are programming errors and panic.
func ProcessMiniBatches(items, batchSize int, index []int, p BatchProcessor) int {
	if items <= 0 {
		panic(fmt.Sprintf("network: ProcessMiniBatches with %d items", items))
	}
	if batchSize <= 0 {
		panic(fmt.Sprintf("network: ProcessMiniBatches with batch size %d", batchSize))
	}
	if len(index) < items {
		panic(fmt.Sprintf("network: index has %d entries, need %d", len(index), items))
	}

	full := items / batchSize
	for i := 0; i < full; i++ {
		lo, hi := i*batchSize, (i+1)*batchSize
		p.ProcessBatch(index[lo:hi:hi])
	}

	if items%batchSize != 0 {
		lo := full * batchSize
		p.ProcessBatch(index[lo:items:items])
		return full + 1
	}
	return full
}

// UpdateMiniBatch applies one SGD step for the samples of ds listed in
// batch: gradients are zeroed, accumulated over every sample, then applied
// scaled by eta/len(batch).
func (n *Network) UpdateMiniBatch(ds Samples, batch []int) {
	if len(batch) == 0 {
		panic("network: UpdateMiniBatch with empty batch")
	}

	n.optimizer.ZeroGrad()
	if len(n.replicas) > 1 {
		n.accumulateParallel(ds, batch)
	} else {
		for _, i := range batch {
			n.Backpropagate(ds.Sample(i), ds.Label(i))
		}
	}
	n.optimizer.Step(len(batch))
}

// accumulateParallel splits batch into contiguous chunks, one per replica,
// and sums the replica accumulators into n's in replica order. The result
// depends only on the batch and the worker count.
func (n *Network) accumulateParallel(ds Samples, batch []int) {
	for _, r := range n.replicas[1:] {
		r.nablaW.Zero()
		r.nablaB.Zero()
	}

	parallel.ForChunks(len(batch), n.par, func(w, start, end int) {
		r := n.replicas[w]
		for _, i := range batch[start:end] {
			r.Backpropagate(ds.Sample(i), ds.Label(i))
		}
	})

	for _, r := range n.replicas[1:] {
		for l := 0; l < n.Layers(); l++ {
			linalg.AddMatrix(n.nablaW.At(l), r.nablaW.At(l))
			linalg.Axpy(1, r.nablaB.At(l), n.nablaB.At(l))
		}
	}
}

// SGD trains for the configured number of epochs. Each epoch shuffles the
// training indices, runs UpdateMiniBatch over consecutive mini-batches and
// evaluates the network on test. Per-epoch correct counts are reported to r
// (which may be nil) and returned.
//
// The shuffle source is seeded from the configured seed, so a fixed seed,
// dataset and configuration reproduce the same trajectory.
func (n *Network) SGD(train, test Samples, r Reporter) []int {
	items := train.Len()
	if items == 0 {
		panic("network: SGD with empty training set")
	}

	rng := rand.New(rand.NewPCG(n.seed, shuffleStream))
	index := make([]int, items)
	for i := range index {
		index[i] = i
	}

	update := BatchProcessorFunc(func(batch []int) {
		n.UpdateMiniBatch(train, batch)
	})

	results := make([]int, 0, n.epochs)
	for epoch := 0; epoch < n.epochs; epoch++ {
		rng.Shuffle(len(index), func(i, j int) {
			index[i], index[j] = index[j], index[i]
		})

		n.logger.Debug("iterating over batches",
			"epoch", epoch,
			"batches", BatchCount(items, n.miniBatchSize),
			"batch_size", n.miniBatchSize)
		ProcessMiniBatches(items, n.miniBatchSize, index, update)

		correct := n.Evaluate(test)
		results = append(results, correct)
		if r != nil {
			r.EpochComplete(epoch, correct, test.Len())
		}
	}
	return results
}

// Reporter receives per-epoch progress from SGD.
type Reporter interface {
	EpochComplete(epoch, correct, total int)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(epoch, correct, total int)

// EpochComplete calls f.
func (f ReporterFunc) EpochComplete(epoch, correct, total int) { f(epoch, correct, total) }

// LogReporter reports progress through a slog.Logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a reporter logging to logger, or to slog.Default
// when logger is nil.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// EpochComplete logs the held-out accuracy of an epoch.
func (l *LogReporter) EpochComplete(epoch, correct, total int) {
	var accuracy float64
	if total > 0 {
		accuracy = float64(correct) / float64(total)
	}
	l.logger.Info("epoch complete",
		"epoch", epoch,
		"correct", correct,
		"total", total,
		"accuracy", accuracy)
}
