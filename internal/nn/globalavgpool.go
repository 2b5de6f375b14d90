package nn

import (
	"fmt"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// GlobalAvgPool2D averages each feature map down to a single value,
// collapsing a convolutional stack into a feature vector for the head.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels]
type GlobalAvgPool2D[B tensor.Backend] struct{}

// NewGlobalAvgPool2D creates a new global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend]() *GlobalAvgPool2D[B] {
	return &GlobalAvgPool2D[B]{}
}

// Forward averages over the spatial dimensions.
func (g *GlobalAvgPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("global_avg_pool2d: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	return input.MeanDim(-1, false).MeanDim(-1, false) // [N, C]
}

// Parameters returns an empty slice (no trainable parameters).
func (g *GlobalAvgPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a string representation of the layer.
func (g *GlobalAvgPool2D[B]) String() string {
	return "GlobalAvgPool2D()"
}
