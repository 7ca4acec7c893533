// Package dataset holds labelled image samples for training and
// evaluation, and loads them from MNIST IDX or CSV files.
//
// A Dataset exposes per-sample borrowed views (linalg.View) over storage it
// owns. Partition splits a dataset into training and held-out views without
// copying.
package dataset

import (
	"errors"
	"fmt"

	"github.com/born-ml/nnet/internal/linalg"
)

var (
	// ErrCountMismatch is returned when image and label counts differ.
	ErrCountMismatch = errors.New("dataset: image count != label count")
	// ErrEmpty is returned for datasets without samples or features.
	ErrEmpty = errors.New("dataset: empty")
	// ErrFeatureSize is returned when samples differ in length.
	ErrFeatureSize = errors.New("dataset: inconsistent sample size")
	// ErrPartition is returned for a held-out size the dataset cannot satisfy.
	ErrPartition = errors.New("dataset: invalid partition")
	// ErrLabelRange is returned when a label does not name an output class.
	ErrLabelRange = errors.New("dataset: label out of range")
)

// Dataset is a set of equally sized samples with one class label each.
type Dataset struct {
	images [][]float64
	labels []uint8
	views  []linalg.View
}

// New builds a dataset over images and labels without copying them.
// Every image must have the same, non-zero length.
func New(images [][]float64, labels []uint8) (*Dataset, error) {
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%w: %d images, %d labels", ErrCountMismatch, len(images), len(labels))
	}
	if len(images) == 0 {
		return nil, ErrEmpty
	}

	features := len(images[0])
	if features == 0 {
		return nil, fmt.Errorf("%w: zero-length samples", ErrEmpty)
	}

	views := make([]linalg.View, len(images))
	for i, img := range images {
		if len(img) != features {
			return nil, fmt.Errorf("%w: sample %d has %d values, want %d", ErrFeatureSize, i, len(img), features)
		}
		views[i] = linalg.ViewOf(img)
	}

	return &Dataset{images: images, labels: labels, views: views}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.views)
}

// Features returns the length of every sample, 0 for an empty dataset.
func (d *Dataset) Features() int {
	if len(d.images) == 0 {
		return 0
	}
	return len(d.images[0])
}

// Sample returns a borrowed view of sample i.
func (d *Dataset) Sample(i int) linalg.View {
	return d.views[i]
}

// Image returns the raw values of sample i.
func (d *Dataset) Image(i int) []float64 {
	return d.images[i]
}

// Label returns the class label of sample i.
func (d *Dataset) Label(i int) int {
	return int(d.labels[i])
}

// Partition splits off the last heldOut samples as a held-out set and
// returns the remaining prefix as the training set. Both share storage with
// d. heldOut must be smaller than Len.
func (d *Dataset) Partition(heldOut int) (train, test *Dataset, err error) {
	n := d.Len()
	if heldOut < 0 || heldOut >= n {
		return nil, nil, fmt.Errorf("%w: held-out size %d with %d samples", ErrPartition, heldOut, n)
	}
	split := n - heldOut
	train = &Dataset{
		images: d.images[:split:split],
		labels: d.labels[:split:split],
		views:  d.views[:split:split],
	}
	test = &Dataset{
		images: d.images[split:],
		labels: d.labels[split:],
		views:  d.views[split:],
	}
	return train, test, nil
}

// ValidateLabels checks every label is in [0, classes).
func (d *Dataset) ValidateLabels(classes int) error {
	for i, l := range d.labels {
		if int(l) >= classes {
			return fmt.Errorf("%w: sample %d has label %d, network has %d classes", ErrLabelRange, i, l, classes)
		}
	}
	return nil
}

// Histogram returns how many samples carry each label value.
func (d *Dataset) Histogram() map[int]int {
	h := make(map[int]int)
	for _, l := range d.labels {
		h[int(l)]++
	}
	return h
}
