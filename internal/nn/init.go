package nn

import (
	"math"

	"github.com/born-ml/convnet/internal/tensor"
)

// Standard deviation bounds applied by the normal initializers so very wide
// or very narrow layers neither start frozen nor explode.
const (
	minInitStd = 1e-4
	maxInitStd = 1e-1
)

// HeNormal draws a rows x cols weight matrix from N(0, 2/fanIn), the He/Kaiming
// scheme for ReLU networks. The standard deviation is clamped to [1e-4, 1e-1].
//
// Reference: https://cs231n.github.io/neural-networks-2/#init
func HeNormal(rows, cols, fanIn int, rng *tensor.RNG) (*tensor.Tensor, error) {
	return tensor.Normal(rows, cols, 0, clampStd(math.Sqrt(2/float64(fanIn))), rng)
}

// XavierNormal draws a rows x cols weight matrix from N(0, 2/(fanIn+fanOut)),
// the Xavier/Glorot scheme. The standard deviation is clamped to [1e-4, 1e-1].
func XavierNormal(rows, cols, fanIn, fanOut int, rng *tensor.RNG) (*tensor.Tensor, error) {
	return tensor.Normal(rows, cols, 0, clampStd(math.Sqrt(2/float64(fanIn+fanOut))), rng)
}

func clampStd(std float64) float32 {
	return float32(min(max(std, minInitStd), maxInitStd))
}
