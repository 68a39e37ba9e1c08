package data

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/tensor"
)

// writePNG stores a w x h black image with one lit pixel at (x, y).
func writePNG(t *testing.T, path string, w, h, x, y int, lit color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	img.Set(x, y, lit)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// imageFolder lays out two labeled 3x2 images plus a stray text file.
func imageFolder(t *testing.T) (dir, labels string) {
	t.Helper()
	root := t.TempDir()
	dir = filepath.Join(root, "train")
	require.NoError(t, os.Mkdir(dir, 0o700))
	writePNG(t, filepath.Join(dir, "cat_01.png"), 3, 2, 0, 0, color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(dir, "dog_07.png"), 3, 2, 2, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	writeFile(t, filepath.Join(dir, "README.txt"), "not an image")
	labels = filepath.Join(root, "labels_img.csv")
	writeFile(t, labels, "dog_07.png,5\ncat_01.png,3\n")
	return dir, labels
}

func TestReadLabelIndex(t *testing.T) {
	index, err := ReadLabelIndex(strings.NewReader("a.png,0\n b.png , 9\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.png": 0, "b.png": 9}, index)

	_, err = ReadLabelIndex(strings.NewReader("a.png,x\n"))
	assert.Error(t, err)
	_, err = ReadLabelIndex(strings.NewReader("a.png,1,2\n"))
	assert.Error(t, err)
}

func TestLoadImageFolder_RGB(t *testing.T) {
	dir, labels := imageFolder(t)
	samples, err := LoadImageFolder(dir, labels, ImageFolderConfig{Classes: 10, Channels: 3, Height: 2, Width: 3})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	cat := samples[0]
	require.NoError(t, cat.Validate(10))
	assert.Equal(t, 3, cat.Class())
	assert.Equal(t, "3x2x3", cat.Image.ShapeString())
	assert.InDelta(t, 1.0, cat.Image.At(0, 0, 0), 1e-6) // red plane
	assert.InDelta(t, 0.0, cat.Image.At(1, 0, 0), 1e-6) // green plane
	assert.InDelta(t, 0.0, cat.Image.At(0, 1, 2), 1e-6)

	dog := samples[1]
	assert.Equal(t, 5, dog.Class())
	for c := range 3 {
		assert.InDelta(t, 1.0, dog.Image.At(c, 1, 2), 1e-6)
	}
}

func TestLoadImageFolder_GrayAndLimit(t *testing.T) {
	dir, labels := imageFolder(t)
	samples, err := LoadImageFolder(dir, labels, ImageFolderConfig{Classes: 10, Channels: 1, Height: 2, Width: 3, Limit: 1})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "1x2x3", samples[0].Image.ShapeString())
	assert.InDelta(t, 1.0, samples[0].Image.At(0, 0, 0), 1e-6)
	assert.InDelta(t, 0.0, samples[0].Image.At(0, 1, 1), 1e-6)
}

func TestLoadImageFolder_Errors(t *testing.T) {
	dir, labels := imageFolder(t)
	cfg := ImageFolderConfig{Classes: 10, Channels: 3, Height: 2, Width: 3}

	_, err := LoadImageFolder(dir, labels, ImageFolderConfig{Classes: 10, Channels: 2, Height: 2, Width: 3})
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	_, err = LoadImageFolder(dir, labels, ImageFolderConfig{Classes: 10, Channels: 3, Height: 3, Width: 3})
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)

	partial := filepath.Join(t.TempDir(), "partial.csv")
	writeFile(t, partial, "cat_01.png,3\n")
	_, err = LoadImageFolder(dir, partial, cfg)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	_, err = LoadImageFolder(t.TempDir(), labels, cfg)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	_, err = LoadImageFolder(dir, filepath.Join(dir, "missing.csv"), cfg)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Class 5 is out of range for a 4-class dataset.
	_, err = LoadImageFolder(dir, labels, ImageFolderConfig{Classes: 4, Channels: 3, Height: 2, Width: 3})
	assert.Error(t, err)
}
