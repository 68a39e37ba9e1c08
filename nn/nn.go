// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convnet/internal/conv"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// Layer is the capability every layer shares.
type Layer = nn.Layer

// VectorLayer operates on column vectors.
type VectorLayer = nn.VectorLayer

// ImageLayer operates on multi-channel images.
type ImageLayer = nn.ImageLayer

// Visitor is implemented by optimizers.
type Visitor = nn.Visitor

// Parameterized is implemented by layers that own trainable parameters.
type Parameterized = nn.Parameterized

// Parameter is a trainable value with its accumulated gradient.
type Parameter = nn.Parameter

// Module is a sequential network of layers.
type Module = nn.Module

// Loss scores a model output against a label and starts backpropagation.
type Loss = nn.Loss

// WindowParams describes a convolution or pooling window.
type WindowParams = conv.Params

// Square returns a window with equal kernel, stride and padding on both axes.
func Square(kernel, stride, pad int) WindowParams { return conv.Square(kernel, stride, pad) }

// NewModule creates an empty Module in training mode.
func NewModule() *Module { return nn.NewModule() }

// Layers

// Linear is a fully connected layer.
type Linear = nn.Linear

// NewLinear creates a Linear layer with He-normal weights. A nil rng leaves
// the weights zero.
func NewLinear(inFeatures, outFeatures int, bias bool, rng *tensor.RNG) (*Linear, error) {
	return nn.NewLinear(inFeatures, outFeatures, bias, rng)
}

// Conv2D is a 2-D convolution computed through im2col and GEMM.
type Conv2D = nn.Conv2D

// NewConv2D creates a Conv2D layer.
//
// Example:
//
//	conv, err := nn.NewConv2D(3, 16, nn.Square(3, 1, 1), true, rng) // same padding
func NewConv2D(inChannels, outChannels int, p WindowParams, bias bool, rng *tensor.RNG) (*Conv2D, error) {
	return nn.NewConv2D(inChannels, outChannels, p, bias, rng)
}

// MaxPool2D is 2-D max pooling.
type MaxPool2D = nn.MaxPool2D

// NewMaxPool2D creates a MaxPool2D layer.
func NewMaxPool2D(p WindowParams) (*MaxPool2D, error) { return nn.NewMaxPool2D(p) }

// AvgPool2D is 2-D average pooling.
type AvgPool2D = nn.AvgPool2D

// NewAvgPool2D creates an AvgPool2D layer.
func NewAvgPool2D(p WindowParams) (*AvgPool2D, error) { return nn.NewAvgPool2D(p) }

// LocalResponseNorm normalizes each activation by its channel neighborhood.
type LocalResponseNorm = nn.LocalResponseNorm

// NewLocalResponseNorm creates a LocalResponseNorm layer.
func NewLocalResponseNorm(size int, alpha, beta, k float32) (*LocalResponseNorm, error) {
	return nn.NewLocalResponseNorm(size, alpha, beta, k)
}

// DefaultLocalResponseNorm uses the AlexNet constants.
func DefaultLocalResponseNorm() *LocalResponseNorm { return nn.DefaultLocalResponseNorm() }

// Dropout zeroes activations with probability p during training.
type Dropout = nn.Dropout

// NewDropout creates a Dropout layer.
func NewDropout(p float32, rng *tensor.RNG) (*Dropout, error) { return nn.NewDropout(p, rng) }

// Flatten marks the boundary between the image and vector stages.
type Flatten = nn.Flatten

// NewFlatten creates a Flatten layer.
func NewFlatten() *Flatten { return nn.NewFlatten() }

// Activations

// ReLU is max(0, x).
type ReLU = nn.ReLU

// NewReLU creates a ReLU layer.
func NewReLU() *ReLU { return nn.NewReLU() }

// LeakyReLU passes negative inputs scaled by slope.
type LeakyReLU = nn.LeakyReLU

// NewLeakyReLU creates a LeakyReLU layer.
func NewLeakyReLU(slope float32) *LeakyReLU { return nn.NewLeakyReLU(slope) }

// Softmax normalizes every column into a probability distribution.
type Softmax = nn.Softmax

// NewSoftmax creates a Softmax layer.
func NewSoftmax() *Softmax { return nn.NewSoftmax() }

// Losses

// CrossEntropyLoss applies softmax to the logits and scores them against a
// one-hot label.
type CrossEntropyLoss = nn.CrossEntropyLoss

// NewCrossEntropyLoss creates a cross-entropy loss bound to model.
func NewCrossEntropyLoss(model *Module) *CrossEntropyLoss { return nn.NewCrossEntropyLoss(model) }

// MSELoss is the squared error averaged over the output.
type MSELoss = nn.MSELoss

// NewMSELoss creates a mean squared error loss bound to model.
func NewMSELoss(model *Module) *MSELoss { return nn.NewMSELoss(model) }

// Initialization

// HeNormal draws rows x cols weights from N(0, 2/fanIn) with a clamped
// standard deviation.
func HeNormal(rows, cols, fanIn int, rng *tensor.RNG) (*tensor.Tensor, error) {
	return nn.HeNormal(rows, cols, fanIn, rng)
}

// XavierNormal draws rows x cols weights from N(0, 2/(fanIn+fanOut)).
func XavierNormal(rows, cols, fanIn, fanOut int, rng *tensor.RNG) (*tensor.Tensor, error) {
	return nn.XavierNormal(rows, cols, fanIn, fanOut, rng)
}
