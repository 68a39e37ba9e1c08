package tensor

import "fmt"

// Image is a multi-channel 2-D image stored channel-major (CHW): element
// (c, h, w) lives at data[(c*H+h)*W+w].
type Image struct {
	channels int
	height   int
	width    int
	data     []float32
}

// NewImage creates a zero-filled image. Panics on negative dimensions.
func NewImage(channels, height, width int) *Image {
	if channels < 0 || height < 0 || width < 0 {
		panic(fmt.Sprintf("tensor.NewImage: negative dimensions %dx%dx%d", channels, height, width))
	}
	return &Image{
		channels: channels,
		height:   height,
		width:    width,
		data:     make([]float32, channels*height*width),
	}
}

// ImageFromSlice creates an image from CHW-ordered data. The slice is copied.
func ImageFromSlice(channels, height, width int, data []float32) (*Image, error) {
	if channels < 0 || height < 0 || width < 0 {
		return nil, invalid("ImageFromSlice", "negative dimensions %dx%dx%d", channels, height, width)
	}
	if n := channels * height * width; n != len(data) {
		return nil, fmt.Errorf("ImageFromSlice: %w: %dx%dx%d requires %d elements, got %d",
			ErrDimensionMismatch, channels, height, width, n, len(data))
	}
	img := NewImage(channels, height, width)
	copy(img.data, data)
	return img, nil
}

// ImageFromMatrix reshapes a channels x (height*width) matrix into an image.
// It is the inverse of ToMatrix.
func ImageFromMatrix(m *Tensor, channels, height, width int) (*Image, error) {
	if m.rows != channels || m.cols != height*width {
		return nil, fmt.Errorf("ImageFromMatrix: %w: %dx%d matrix cannot hold %dx%dx%d image",
			ErrDimensionMismatch, m.rows, m.cols, channels, height, width)
	}
	return ImageFromSlice(channels, height, width, m.data)
}

// ImageFromVector reshapes a (channels*height*width) x 1 column vector into an
// image using the same index order as Flatten.
func ImageFromVector(v *Tensor, channels, height, width int) (*Image, error) {
	if v.cols != 1 || v.rows != channels*height*width {
		return nil, fmt.Errorf("ImageFromVector: %w: %dx%d vector cannot hold %dx%dx%d image",
			ErrDimensionMismatch, v.rows, v.cols, channels, height, width)
	}
	return ImageFromSlice(channels, height, width, v.data)
}

// Channels returns the number of channels.
func (im *Image) Channels() int { return im.channels }

// Height returns the image height.
func (im *Image) Height() int { return im.height }

// Width returns the image width.
func (im *Image) Width() int { return im.width }

// Len returns channels*height*width.
func (im *Image) Len() int { return len(im.data) }

// Data returns the underlying CHW buffer.
func (im *Image) Data() []float32 { return im.data }

// SameShape reports whether im and other have identical dimensions.
func (im *Image) SameShape(other *Image) bool {
	return im.channels == other.channels && im.height == other.height && im.width == other.width
}

// ShapeString formats the dimensions as CxHxW.
func (im *Image) ShapeString() string {
	return fmt.Sprintf("%dx%dx%d", im.channels, im.height, im.width)
}

// At returns the element at (c, h, w).
func (im *Image) At(c, h, w int) float32 {
	return im.data[(c*im.height+h)*im.width+w]
}

// Set stores v at (c, h, w).
func (im *Image) Set(c, h, w int, v float32) {
	im.data[(c*im.height+h)*im.width+w] = v
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	c := NewImage(im.channels, im.height, im.width)
	copy(c.data, im.data)
	return c
}

// Channel returns a height x width copy of channel c.
func (im *Image) Channel(c int) *Tensor {
	plane := im.height * im.width
	t := New(im.height, im.width)
	copy(t.data, im.data[c*plane:(c+1)*plane])
	return t
}

// ToMatrix returns a channels x (height*width) matrix, one channel per row.
func (im *Image) ToMatrix() *Tensor {
	t := New(im.channels, im.height*im.width)
	copy(t.data, im.data)
	return t
}

// Flatten returns a (channels*height*width) x 1 column vector in CHW order.
func (im *Image) Flatten() *Tensor {
	t := New(len(im.data), 1)
	copy(t.data, im.data)
	return t
}

// AddInPlace performs im += other.
func (im *Image) AddInPlace(other *Image) error {
	if !im.SameShape(other) {
		return fmt.Errorf("Image.AddInPlace: %w: %s vs %s",
			ErrDimensionMismatch, im.ShapeString(), other.ShapeString())
	}
	for i, v := range other.data {
		im.data[i] += v
	}
	return nil
}

// AllClose reports whether shapes match and every element is within tol.
func (im *Image) AllClose(other *Image, tol float64) bool {
	if !im.SameShape(other) {
		return false
	}
	a := &Tensor{rows: 1, cols: len(im.data), data: im.data}
	b := &Tensor{rows: 1, cols: len(other.data), data: other.data}
	return a.AllClose(b, tol)
}
