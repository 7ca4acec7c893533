package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/born-ml/nnet/internal/linalg"
)

// IDX magic numbers.
const (
	ImagesMagic = 2051 // 0x00000803: unsigned byte, 3 dimensions
	LabelsMagic = 2049 // 0x00000801: unsigned byte, 1 dimension
)

// ErrBadMagic is returned when an IDX header carries an unexpected magic
// number.
var ErrBadMagic = errors.New("dataset: invalid IDX magic number")

// Images is the decoded content of an IDX image file.
type Images struct {
	Magic  uint32
	Count  int
	Rows   int
	Cols   int
	Pixels [][]byte // Count entries of Rows*Cols bytes each.
}

// Labels is the decoded content of an IDX label file.
type Labels struct {
	Magic  uint32
	Count  int
	Labels []byte
}

// ReadImages decodes an MNIST image file in IDX format.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
//
// All header fields are big-endian.
func ReadImages(r io.Reader) (*Images, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if header[0] != ImagesMagic {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadMagic, header[0], ImagesMagic)
	}

	img := &Images{
		Magic: header[0],
		Count: int(header[1]),
		Rows:  int(header[2]),
		Cols:  int(header[3]),
	}

	pixels := img.Rows * img.Cols
	if pixels == 0 {
		return nil, fmt.Errorf("%w: %dx%d images", ErrEmpty, img.Rows, img.Cols)
	}
	if img.Count > linalg.MaxElements/pixels {
		return nil, fmt.Errorf("%w: %d images of %d pixels", linalg.ErrAllocation, img.Count, pixels)
	}

	data := make([]byte, img.Count*pixels)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read pixels: %w", err)
	}
	img.Pixels = make([][]byte, img.Count)
	for i := range img.Pixels {
		img.Pixels[i] = data[i*pixels : (i+1)*pixels : (i+1)*pixels]
	}

	return img, nil
}

// ReadLabels decodes an MNIST label file in IDX format.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadLabels(r io.Reader) (*Labels, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read label header: %w", err)
	}
	if header[0] != LabelsMagic {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadMagic, header[0], LabelsMagic)
	}
	if header[1] > linalg.MaxElements {
		return nil, fmt.Errorf("%w: %d labels", linalg.ErrAllocation, header[1])
	}

	lbl := &Labels{
		Magic:  header[0],
		Count:  int(header[1]),
		Labels: make([]byte, header[1]),
	}
	if _, err := io.ReadFull(r, lbl.Labels); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return lbl, nil
}

// openIDX opens path, transparently decompressing gzip content.
func openIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	head, err := br.Peek(2)
	if err == nil && head[0] == 0x1f && head[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		return &gzipFile{Reader: zr, file: f}, nil
	}
	return &bufferedFile{Reader: br, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

type bufferedFile struct {
	*bufio.Reader
	file *os.File
}

func (b *bufferedFile) Close() error {
	return b.file.Close()
}

// ReadImagesFile reads an IDX image file, optionally gzip compressed.
func ReadImagesFile(path string) (*Images, error) {
	f, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadImages(f)
}

// ReadLabelsFile reads an IDX label file, optionally gzip compressed.
func ReadLabelsFile(path string) (*Labels, error) {
	f, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLabels(f)
}

// LoadIDX loads an image file and its label file into a Dataset, scaling
// pixels from [0, 255] to [0, 1] so the sigmoid does not saturate.
// Header statistics are logged to logger (slog.Default when nil).
func LoadIDX(imagesPath, labelsPath string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	images, err := ReadImagesFile(imagesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	logger.Info("images loaded",
		"path", imagesPath,
		"magic", images.Magic,
		"images", images.Count,
		"rows", images.Rows,
		"cols", images.Cols)

	labels, err := ReadLabelsFile(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	logger.Info("labels loaded",
		"path", labelsPath,
		"magic", labels.Magic,
		"labels", labels.Count)

	if images.Count != labels.Count {
		return nil, fmt.Errorf("%w: %d images, %d labels", ErrCountMismatch, images.Count, labels.Count)
	}

	return New(Normalize(images.Pixels), labels.Labels)
}

// Normalize converts raw greyscale pixels to float64 values in [0, 1].
// All samples share one contiguous backing array.
func Normalize(pixels [][]byte) [][]float64 {
	if len(pixels) == 0 {
		return nil
	}
	size := len(pixels[0])
	data := make([]float64, len(pixels)*size)
	out := make([][]float64, len(pixels))
	for i, px := range pixels {
		row := data[i*size : (i+1)*size : (i+1)*size]
		for j, p := range px {
			row[j] = float64(p) / 255.0
		}
		out[i] = row
	}
	return out
}
