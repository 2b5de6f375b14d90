package nn

import (
	"fmt"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// BatchNorm2D applies Batch Normalization over a 4D input [N, C, H, W],
// normalizing each channel with statistics computed over batch and spatial
// dimensions.
//
// Formula: Y = gamma * (X - mean) / sqrt(var + eps) + beta
//
// In training mode the batch statistics are used and folded into running
// estimates with the configured momentum; in inference mode the running
// estimates are used.
type BatchNorm2D[B tensor.Backend] struct {
	Gamma    *Parameter[B] // learnable scale [C]
	Beta     *Parameter[B] // learnable shift [C]
	Epsilon  float32
	Momentum float32

	runningMean *tensor.Tensor[float32, B] // [C]
	runningVar  *tensor.Tensor[float32, B] // [C]

	numFeatures int
	training    bool
	backend     B
}

// NewBatchNorm2D creates a BatchNorm2D layer for the given channel count.
// Gamma starts at ones, beta at zeros, running variance at ones. Typical
// epsilon is 1e-5 and momentum 0.1. The layer starts in training mode.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, epsilon, momentum float32, backend B) *BatchNorm2D[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid feature count %d", numFeatures))
	}
	return &BatchNorm2D[B]{
		Gamma:       NewParameter("gamma", Ones(tensor.Shape{numFeatures}, backend)),
		Beta:        NewParameter("beta", Zeros(tensor.Shape{numFeatures}, backend)),
		Epsilon:     epsilon,
		Momentum:    momentum,
		runningMean: tensor.Zeros[float32](tensor.Shape{numFeatures}, backend),
		runningVar:  tensor.Ones[float32](tensor.Shape{numFeatures}, backend),
		numFeatures: numFeatures,
		training:    true,
		backend:     backend,
	}
}

// Train switches between batch statistics (training) and running statistics
// (inference).
func (bn *BatchNorm2D[B]) Train(training bool) {
	bn.training = training
}

// Forward normalizes the input per channel.
//
// Input: [batch, C, H, W]
// Output: [batch, C, H, W].
func (bn *BatchNorm2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("batchnorm2d: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: input channels %d != expected %d", shape[1], bn.numFeatures))
	}

	var mean, variance *tensor.Tensor[float32, B]
	if bn.training {
		// Per-channel mean over batch and spatial dims: reduce N, then H, W.
		mean = input.MeanDim(0, false).MeanDim(-1, false).MeanDim(-1, false) // [C]
		centered := input.Sub(mean.Reshape(1, bn.numFeatures, 1, 1))
		variance = centered.Mul(centered).MeanDim(0, false).MeanDim(-1, false).MeanDim(-1, false) // [C]

		bn.updateRunning(mean, variance)
	} else {
		mean = bn.runningMean
		variance = bn.runningVar
	}

	meanB := mean.Reshape(1, bn.numFeatures, 1, 1)
	stdB := variance.AddScalar(bn.Epsilon).Sqrt().Reshape(1, bn.numFeatures, 1, 1)
	gammaB := bn.Gamma.Tensor().Reshape(1, bn.numFeatures, 1, 1)
	betaB := bn.Beta.Tensor().Reshape(1, bn.numFeatures, 1, 1)

	return input.Sub(meanB).Div(stdB).Mul(gammaB).Add(betaB)
}

// updateRunning folds the current batch statistics into the running
// estimates: running = (1-momentum)*running + momentum*batch.
func (bn *BatchNorm2D[B]) updateRunning(mean, variance *tensor.Tensor[float32, B]) {
	bn.runningMean = bn.runningMean.MulScalar(1 - bn.Momentum).Add(mean.MulScalar(bn.Momentum))
	bn.runningVar = bn.runningVar.MulScalar(1 - bn.Momentum).Add(variance.MulScalar(bn.Momentum))
}

// Parameters returns the learnable parameters (gamma and beta).
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.Gamma, bn.Beta}
}

// String returns a string representation of the layer.
func (bn *BatchNorm2D[B]) String() string {
	return fmt.Sprintf("BatchNorm2D(num_features=%d, eps=%g, momentum=%g)",
		bn.numFeatures, bn.Epsilon, bn.Momentum)
}
