// Package models provides reference architectures assembled from nn layers.
//
// Every constructor returns a plain *nn.Module; the architectures differ only
// in the sequence of layers added. A builder tracks the running image shape
// so the first Linear after Flatten gets its input size computed instead of
// hard-coded.
package models

import (
	"fmt"

	"github.com/born-ml/convnet/internal/conv"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// builder appends layers to a module and remembers the first error.
// Once err is set every later call is a no-op.
type builder struct {
	name    string
	m       *nn.Module
	rng     *tensor.RNG
	c, h, w int // current image shape
	n       int // current vector length after flatten
	err     error
}

func newBuilder(name string, channels, height, width int, rng *tensor.RNG) *builder {
	b := &builder{name: name, m: nn.NewModule(), rng: rng, c: channels, h: height, w: width}
	if rng == nil {
		b.err = fmt.Errorf("%s: %w: nil random context", name, tensor.ErrInvalidArgument)
	}
	return b
}

func newVectorBuilder(name string, in int, rng *tensor.RNG) *builder {
	b := newBuilder(name, 0, 0, 0, rng)
	b.n = in
	return b
}

func (b *builder) add(l nn.Layer, err error) {
	if b.err != nil {
		return
	}
	if err == nil {
		_, err = b.m.Add(l)
	}
	if err != nil {
		b.err = fmt.Errorf("%s: layer %d: %w", b.name, b.m.Len(), err)
	}
}

// resize moves the tracked image shape through a window operation.
func (b *builder) resize(p conv.Params) error {
	h, w, err := p.OutputSize(b.h, b.w)
	if err != nil {
		return err
	}
	b.h, b.w = h, w
	return nil
}

func (b *builder) conv(out, kernel, stride, pad int) {
	if b.err != nil {
		return
	}
	p := conv.Square(kernel, stride, pad)
	l, err := nn.NewConv2D(b.c, out, p, true, b.rng.Split())
	if err == nil {
		err = b.resize(p)
	}
	b.add(l, err)
	b.c = out
}

func (b *builder) maxPool(kernel, stride int) {
	if b.err != nil {
		return
	}
	p := conv.Square(kernel, stride, 0)
	l, err := nn.NewMaxPool2D(p)
	if err == nil {
		err = b.resize(p)
	}
	b.add(l, err)
}

func (b *builder) relu() { b.add(nn.NewReLU(), nil) }

func (b *builder) lrn() { b.add(nn.DefaultLocalResponseNorm(), nil) }

func (b *builder) flatten() {
	b.add(nn.NewFlatten(), nil)
	b.n = b.c * b.h * b.w
}

func (b *builder) dropout(p float32) {
	if b.err != nil || p == 0 {
		return
	}
	l, err := nn.NewDropout(p, b.rng.Split())
	b.add(l, err)
}

func (b *builder) linear(out int) {
	if b.err != nil {
		return
	}
	l, err := nn.NewLinear(b.n, out, true, b.rng.Split())
	b.add(l, err)
	b.n = out
}

func (b *builder) build() (*nn.Module, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.m, nil
}
