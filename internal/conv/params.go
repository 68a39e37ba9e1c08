// Package conv implements the im2col/col2im transform that maps sliding-window
// convolution and pooling onto matrix multiplication.
//
// Layout convention: for an image with C channels and a KH x KW window, the
// column matrix has C*KH*KW rows and HOut*WOut columns. Row (c*KH+ki)*KW+kj
// holds input pixel (c, oh*SH+ki-PH, ow*SW+kj-PW) for every output position
// (oh, ow), with out-of-bounds (padding) positions read as zero.
package conv

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// Params describes a sliding window: kernel size, zero padding and stride,
// each per spatial dimension.
type Params struct {
	KernelH, KernelW int
	PadH, PadW       int
	StrideH, StrideW int
}

// Square returns Params with the same kernel, stride and padding on both axes.
func Square(kernel, stride, pad int) Params {
	return Params{
		KernelH: kernel, KernelW: kernel,
		PadH: pad, PadW: pad,
		StrideH: stride, StrideW: stride,
	}
}

// Validate rejects non-positive kernels or strides and negative padding.
func (p Params) Validate() error {
	if p.KernelH <= 0 || p.KernelW <= 0 {
		return fmt.Errorf("conv: %w: kernel %dx%d must be positive", tensor.ErrInvalidArgument, p.KernelH, p.KernelW)
	}
	if p.StrideH <= 0 || p.StrideW <= 0 {
		return fmt.Errorf("conv: %w: stride %dx%d must be positive", tensor.ErrInvalidArgument, p.StrideH, p.StrideW)
	}
	if p.PadH < 0 || p.PadW < 0 {
		return fmt.Errorf("conv: %w: padding %dx%d must be non-negative", tensor.ErrInvalidArgument, p.PadH, p.PadW)
	}
	return nil
}

// OutputSize returns the spatial output size for an h x w input:
//
//	HOut = (H + 2*PH - KH) / SH + 1
//	WOut = (W + 2*PW - KW) / SW + 1
//
// Fails with ErrInvalidArgument when either dimension would be < 1.
func (p Params) OutputSize(h, w int) (int, int, error) {
	if err := p.Validate(); err != nil {
		return 0, 0, err
	}
	hIn, wIn := h+2*p.PadH-p.KernelH, w+2*p.PadW-p.KernelW
	if hIn < 0 || wIn < 0 {
		return 0, 0, fmt.Errorf("conv: %w: %dx%d window does not fit %dx%d input with padding %dx%d",
			tensor.ErrInvalidArgument, p.KernelH, p.KernelW, h, w, p.PadH, p.PadW)
	}
	return hIn/p.StrideH + 1, wIn/p.StrideW + 1, nil
}

// String formats the parameters as k=KHxKW s=SHxSW p=PHxPW.
func (p Params) String() string {
	return fmt.Sprintf("k=%dx%d s=%dx%d p=%dx%d", p.KernelH, p.KernelW, p.StrideH, p.StrideW, p.PadH, p.PadW)
}
