package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadCSV loads labelled samples from a CSV file.
//
// CSV Format (Kaggle-style):
//
//	label,pixel0,pixel1,...,pixelN
//	5,0,0,12,...,0
//	0,0,0,0,...,0
//
// The header row is skipped. Pixels are scaled from [0, 255] to [0, 1].
func LoadCSV(filename string) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV decodes CSV samples from r. See LoadCSV for the format.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: CSV file is empty or missing header", ErrEmpty)
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var (
		images [][]float64
		labels []uint8
	)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("%w: row %d has no pixels", ErrFeatureSize, row)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("invalid label at row %d: %w", row, err)
		}
		if label < 0 || label > 255 {
			return nil, fmt.Errorf("%w: row %d has label %d", ErrLabelRange, row, label)
		}

		img := make([]float64, len(record)-1)
		for j := range img {
			pixel, err := strconv.ParseUint(record[j+1], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid pixel at row %d, column %d: %w", row, j+1, err)
			}
			img[j] = float64(pixel) / 255.0
		}

		images = append(images, img)
		labels = append(labels, uint8(label))
	}

	return New(images, labels)
}
