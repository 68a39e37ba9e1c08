package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/born-ml/convnet/internal/tensor"
)

// CSVConfig describes a labeled pixel CSV, one sample per row with the class
// index in the first column (the layout of the MNIST CSV exports).
type CSVConfig struct {
	Classes   int // Number of label classes.
	Channels  int // Image shape; all zero loads vector-only samples.
	Height    int
	Width     int
	HasHeader bool // Skip the first row.
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path string, cfg CSVConfig) ([]Sample, error) {
	//nolint:gosec // G304: dataset path comes from the run configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return LoadCSV(f, cfg)
}

// LoadCSV reads samples from r. Each row's pixels are min-max normalized
// before the sample is built.
func LoadCSV(r io.Reader, cfg CSVConfig) ([]Sample, error) {
	if cfg.Classes <= 0 {
		return nil, fmt.Errorf("data: %w: classes must be positive", tensor.ErrInvalidArgument)
	}
	pixelsPerRow := cfg.Channels * cfg.Height * cfg.Width

	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	var samples []Sample
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("data: failed to read csv: %w", err)
		}
		if line == 1 && cfg.HasHeader {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("data: line %d: %w: need a label and at least one pixel",
				line, tensor.ErrInvalidArgument)
		}
		if pixelsPerRow > 0 && len(record)-1 != pixelsPerRow {
			return nil, fmt.Errorf("data: line %d: %w: %d pixels, want %d",
				line, tensor.ErrDimensionMismatch, len(record)-1, pixelsPerRow)
		}

		class, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("data: line %d: bad label %q: %w", line, record[0], err)
		}
		pixels := make([]float32, len(record)-1)
		for j, cell := range record[1:] {
			v, err := strconv.ParseFloat(cell, 32)
			if err != nil {
				return nil, fmt.Errorf("data: line %d, col %d: %w", line, j+1, err)
			}
			pixels[j] = float32(v)
		}
		normalizeSlice(pixels)

		s, err := NewSample(pixels, class, cfg.Classes, cfg.Channels, cfg.Height, cfg.Width)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("data: %w: csv has no data rows", tensor.ErrInvalidArgument)
	}
	return samples, nil
}
