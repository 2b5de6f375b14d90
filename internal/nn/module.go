// Package nn implements neural network modules for the BlockNet framework.
//
// This package provides the building blocks residual architectures are
// assembled from:
//   - Module interface: base interface for all NN components
//   - Parameter: trainable parameters
//   - Conv2D (grouped), BatchNorm2D, MaxPool2D, GlobalAvgPool2D, Linear
//   - ReLU activation
//   - Dropout and DropBlock regularization
//   - Sequential: container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewConv2D(3, 64, 3, 3, 1, 1, 1, false, backend),
//	    nn.NewBatchNorm2D(64, 1e-5, 0.1, backend),
//	    nn.NewReLU[Backend](),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including nested module parameters. Modules without trainable
	// parameters return an empty slice.
	Parameters() []*Parameter[B]
}

// TrainableModule is implemented by modules whose Forward behavior differs
// between training and inference (BatchNorm2D, Dropout, DropBlock).
type TrainableModule interface {
	// Train switches the module between training (true) and inference
	// (false) behavior.
	Train(training bool)
}
