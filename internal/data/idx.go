package data

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/convnet/internal/tensor"
)

// IDX magic numbers of the MNIST image and label files.
const (
	idxImagesMagic = 2051 // 0x00000803: unsigned bytes, 3 dimensions
	idxLabelsMagic = 2049 // 0x00000801: unsigned bytes, 1 dimension
)

// maxIDXItems bounds the item count read from an IDX header.
const maxIDXItems = 1 << 24

// IDXConfig describes an IDX image/label pair.
type IDXConfig struct {
	Classes int // Number of label classes.
	Limit   int // Maximum samples to load (0 = all).
}

// LoadIDXFiles opens an IDX image file and its label file and calls LoadIDX.
func LoadIDXFiles(imagesPath, labelsPath string, cfg IDXConfig) ([]Sample, error) {
	//nolint:gosec // G304: dataset path comes from the run configuration
	images, err := os.Open(imagesPath)
	if err != nil {
		return nil, fmt.Errorf("data: failed to open %s: %w", imagesPath, err)
	}
	defer func() { _ = images.Close() }()

	//nolint:gosec // G304: dataset path comes from the run configuration
	labels, err := os.Open(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("data: failed to open %s: %w", labelsPath, err)
	}
	defer func() { _ = labels.Close() }()

	return LoadIDX(images, labels, cfg)
}

// LoadIDX reads single-channel images and their labels in the IDX format
// used by the MNIST distribution. Pixels are scaled from 0-255 to [0, 1].
//
// IDX image file:
//
//	magic number: 0x00000803 (2051)
//	number of images, rows, cols: 4 bytes each, big endian
//	pixel data: unsigned bytes, row-major per image
//
// IDX label file:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes, big endian
//	label data: unsigned bytes
func LoadIDX(images, labels io.Reader, cfg IDXConfig) ([]Sample, error) {
	if cfg.Classes <= 0 {
		return nil, fmt.Errorf("data: %w: classes must be positive", tensor.ErrInvalidArgument)
	}
	n, rows, cols, err := readIDXImageHeader(images)
	if err != nil {
		return nil, err
	}
	classes, err := readIDXLabels(labels)
	if err != nil {
		return nil, err
	}
	if len(classes) != n {
		return nil, fmt.Errorf("data: %w: %d images but %d labels", tensor.ErrDimensionMismatch, n, len(classes))
	}
	if cfg.Limit > 0 && n > cfg.Limit {
		n = cfg.Limit
	}

	plane := rows * cols
	raw := make([]byte, plane)
	samples := make([]Sample, n)
	for i := range samples {
		if _, err := io.ReadFull(images, raw); err != nil {
			return nil, fmt.Errorf("data: failed to read image %d: %w", i, err)
		}
		pixels := make([]float32, plane)
		for j, b := range raw {
			pixels[j] = float32(b) / 255
		}
		if samples[i], err = NewSample(pixels, int(classes[i]), cfg.Classes, 1, rows, cols); err != nil {
			return nil, fmt.Errorf("data: image %d: %w", i, err)
		}
	}
	return samples, nil
}

func readIDXImageHeader(r io.Reader) (n, rows, cols int, err error) {
	var hdr struct{ Magic, Count, Rows, Cols uint32 }
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return 0, 0, 0, fmt.Errorf("data: failed to read idx image header: %w", err)
	}
	if hdr.Magic != idxImagesMagic {
		return 0, 0, 0, fmt.Errorf("data: %w: image magic %d, want %d",
			tensor.ErrInvalidArgument, hdr.Magic, idxImagesMagic)
	}
	if hdr.Count > maxIDXItems || hdr.Rows == 0 || hdr.Cols == 0 || hdr.Rows*hdr.Cols > maxIDXItems {
		return 0, 0, 0, fmt.Errorf("data: %w: idx header %dx%dx%d out of range",
			tensor.ErrInvalidArgument, hdr.Count, hdr.Rows, hdr.Cols)
	}
	return int(hdr.Count), int(hdr.Rows), int(hdr.Cols), nil
}

func readIDXLabels(r io.Reader) ([]byte, error) {
	var hdr struct{ Magic, Count uint32 }
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("data: failed to read idx label header: %w", err)
	}
	if hdr.Magic != idxLabelsMagic {
		return nil, fmt.Errorf("data: %w: label magic %d, want %d",
			tensor.ErrInvalidArgument, hdr.Magic, idxLabelsMagic)
	}
	if hdr.Count > maxIDXItems {
		return nil, fmt.Errorf("data: %w: %d labels out of range", tensor.ErrInvalidArgument, hdr.Count)
	}
	labels := make([]byte, hdr.Count)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("data: failed to read labels: %w", err)
	}
	return labels, nil
}
