package conv

import (
	"fmt"

	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/tensor"
)

// Im2Col unfolds every receptive field of img into a column.
//
// Output: [C*KH*KW, HOut*WOut]. Rows are independent and filled in parallel.
//
// Reference: "High Performance Convolutional Neural Networks for Document Processing"
// (Chellapilla et al., 2006)
func Im2Col(img *tensor.Image, p Params) (*tensor.Tensor, error) {
	hOut, wOut, err := p.OutputSize(img.Height(), img.Width())
	if err != nil {
		return nil, err
	}

	C, H, W := img.Channels(), img.Height(), img.Width()
	KH, KW := p.KernelH, p.KernelW
	nCols := hOut * wOut
	cols := tensor.New(C*KH*KW, nCols)
	src, dst := img.Data(), cols.Data()

	parallel.ForBatch(C, KH*KW, func(c, k int) {
		ki, kj := k/KW, k%KW
		r := c*KH*KW + k
		row := dst[r*nCols : (r+1)*nCols]
		plane := src[c*H*W : (c+1)*H*W]
		for oh := 0; oh < hOut; oh++ {
			h := oh*p.StrideH + ki - p.PadH
			for ow := 0; ow < wOut; ow++ {
				w := ow*p.StrideW + kj - p.PadW
				// Out of bounds stays zero (padding).
				if h >= 0 && h < H && w >= 0 && w < W {
					row[oh*wOut+ow] = plane[h*W+w]
				}
			}
		}
	}, planeConfig())

	return cols, nil
}

// Col2Im scatters a column matrix back into a zeroed channels x h x w image.
//
// It is the adjoint of Im2Col, not its inverse: every input pixel receives the
// sum of all column entries that were read from it, so
// Col2Im(Im2Col(x))[p] == x[p] * (number of windows covering p).
// Contributions from padded positions are dropped.
func Col2Im(cols *tensor.Tensor, channels, h, w int, p Params) (*tensor.Image, error) {
	img := tensor.NewImage(channels, h, w)
	if err := Col2ImAdd(img, cols, p); err != nil {
		return nil, err
	}
	return img, nil
}

// Col2ImAdd accumulates the scatter of cols into dst.
//
// Work is split by channel, so each worker owns a disjoint plane of dst and
// no synchronization is needed for the overlapping-window additions.
func Col2ImAdd(dst *tensor.Image, cols *tensor.Tensor, p Params) error {
	C, H, W := dst.Channels(), dst.Height(), dst.Width()
	hOut, wOut, err := p.OutputSize(H, W)
	if err != nil {
		return err
	}
	KH, KW := p.KernelH, p.KernelW
	if cols.Rows() != C*KH*KW || cols.Cols() != hOut*wOut {
		return fmt.Errorf("conv: Col2Im: %w: columns %dx%d, want %dx%d for %s image with %s",
			tensor.ErrDimensionMismatch, cols.Rows(), cols.Cols(), C*KH*KW, hOut*wOut, dst.ShapeString(), p)
	}

	nCols := hOut * wOut
	src, out := cols.Data(), dst.Data()

	parallel.For(C, func(c int) {
		plane := out[c*H*W : (c+1)*H*W]
		for ki := 0; ki < KH; ki++ {
			for kj := 0; kj < KW; kj++ {
				r := (c*KH+ki)*KW + kj
				row := src[r*nCols : (r+1)*nCols]
				for oh := 0; oh < hOut; oh++ {
					h := oh*p.StrideH + ki - p.PadH
					if h < 0 || h >= H {
						continue
					}
					for ow := 0; ow < wOut; ow++ {
						w := ow*p.StrideW + kj - p.PadW
						if w >= 0 && w < W {
							plane[h*W+w] += row[oh*wOut+ow]
						}
					}
				}
			}
		}
	}, planeConfig())

	return nil
}

// planeConfig allows one item per chunk: each item is a whole row or plane.
func planeConfig() parallel.Config {
	cfg := tensor.ParallelConfig()
	cfg.MinChunkSize = 1
	return cfg
}
