package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/born-ml/convnet/internal/tensor"
)

// ImageFolderConfig describes a directory of image files labeled by a
// separate "filename,class" CSV (the layout of the CIFAR-10 PNG export).
type ImageFolderConfig struct {
	Classes  int // Number of label classes.
	Channels int // 1 decodes to gray, 3 to RGB.
	Height   int // Every image must be Height x Width.
	Width    int
	Limit    int // Maximum samples to load (0 = all).
}

// ReadLabelIndex parses "filename,class" rows into a lookup table.
func ReadLabelIndex(r io.Reader) (map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	index := make(map[string]int)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return index, nil
		}
		if err != nil {
			return nil, fmt.Errorf("data: failed to read label index: %w", err)
		}
		class, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("data: label index line %d: bad class %q: %w", line, record[1], err)
		}
		index[strings.TrimSpace(record[0])] = class
	}
}

// LoadImageFolder decodes every PNG or JPEG file in dir in name order and
// labels it through the index at labelsPath. Pixels are min-max normalized
// per image. A file missing from the index is an error.
func LoadImageFolder(dir, labelsPath string, cfg ImageFolderConfig) ([]Sample, error) {
	if cfg.Classes <= 0 {
		return nil, fmt.Errorf("data: %w: classes must be positive", tensor.ErrInvalidArgument)
	}
	if cfg.Channels != 1 && cfg.Channels != 3 {
		return nil, fmt.Errorf("data: %w: image folders hold 1 or 3 channels, got %d",
			tensor.ErrInvalidArgument, cfg.Channels)
	}

	//nolint:gosec // G304: dataset path comes from the run configuration
	lf, err := os.Open(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("data: failed to open %s: %w", labelsPath, err)
	}
	index, err := ReadLabelIndex(lf)
	_ = lf.Close()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("data: failed to list %s: %w", dir, err)
	}

	var samples []Sample
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		if cfg.Limit > 0 && len(samples) == cfg.Limit {
			break
		}
		class, ok := index[e.Name()]
		if !ok {
			return nil, fmt.Errorf("data: %w: %s has no entry in %s", tensor.ErrInvalidArgument, e.Name(), labelsPath)
		}
		pixels, err := decodeImageFile(filepath.Join(dir, e.Name()), cfg)
		if err != nil {
			return nil, err
		}
		s, err := NewSample(pixels, class, cfg.Classes, cfg.Channels, cfg.Height, cfg.Width)
		if err != nil {
			return nil, fmt.Errorf("data: %s: %w", e.Name(), err)
		}
		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("data: %w: no images in %s", tensor.ErrInvalidArgument, dir)
	}
	return samples, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// decodeImageFile returns the CHW pixels of one image file.
func decodeImageFile(path string, cfg ImageFolderConfig) ([]float32, error) {
	//nolint:gosec // G304: dataset path comes from the run configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("data: failed to decode %s: %w", path, err)
	}
	b := img.Bounds()
	if b.Dy() != cfg.Height || b.Dx() != cfg.Width {
		return nil, fmt.Errorf("data: %s: %w: %dx%d image, want %dx%d",
			path, tensor.ErrDimensionMismatch, b.Dy(), b.Dx(), cfg.Height, cfg.Width)
	}

	plane := cfg.Height * cfg.Width
	pixels := make([]float32, cfg.Channels*plane)
	for y := range cfg.Height {
		for x := range cfg.Width {
			at := img.At(b.Min.X+x, b.Min.Y+y)
			p := y*cfg.Width + x
			if cfg.Channels == 1 {
				pixels[p] = float32(color.GrayModel.Convert(at).(color.Gray).Y)
				continue
			}
			r, g, bl, _ := at.RGBA()
			pixels[p] = float32(r >> 8)
			pixels[plane+p] = float32(g >> 8)
			pixels[2*plane+p] = float32(bl >> 8)
		}
	}
	normalizeSlice(pixels)
	return pixels, nil
}
