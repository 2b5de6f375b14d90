// Copyright 2025 BlockNet ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for neural network modules in the
// BlockNet framework: the layers residual architectures are assembled
// from, plus Dropout and DropBlock regularization.
package nn

import (
	"github.com/blocknet-ml/blocknet/internal/nn"
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Module is the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// TrainableModule is implemented by modules whose behavior differs
// between training and inference.
type TrainableModule = nn.TrainableModule

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(512, 10, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Conv2D represents a 2D convolutional layer with grouped-convolution
// support.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a new 2D convolutional layer.
//
// Example:
//
//	// 64 -> 128 channels, 3x3 kernel, stride 1, same padding, 32 groups
//	conv := nn.NewConv2D(64, 128, 3, 3, 1, 1, 32, false, backend)
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernelH, kernelW int,
	stride, padding, groups int,
	useBias bool,
	backend B,
) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelH, kernelW, stride, padding, groups, useBias, backend)
}

// BatchNorm2D represents 2D batch normalization.
type BatchNorm2D[B tensor.Backend] = nn.BatchNorm2D[B]

// NewBatchNorm2D creates a batch normalization layer over the channel
// dimension of [N, C, H, W] inputs.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, epsilon, momentum float32, backend B) *BatchNorm2D[B] {
	return nn.NewBatchNorm2D(numFeatures, epsilon, momentum, backend)
}

// MaxPool2D represents 2D max pooling.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride, padding int, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernelSize, stride, padding, backend)
}

// GlobalAvgPool2D averages each feature map to a single value,
// flattening [N, C, H, W] to [N, C].
type GlobalAvgPool2D[B tensor.Backend] = nn.GlobalAvgPool2D[B]

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend]() *GlobalAvgPool2D[B] {
	return nn.NewGlobalAvgPool2D[B]()
}

// ReLU represents the rectified linear activation.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation layer.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Regularization

// Dropout represents element-wise dropout with inverse scaling.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer. The layer starts in training mode.
func NewDropout[B tensor.Backend](rate float64, backend B) *Dropout[B] {
	return nn.NewDropout(rate, backend)
}

// DataFormat selects which axis of an activation tensor carries channels.
type DataFormat = nn.DataFormat

// Data format constants.
const (
	ChannelsFirst DataFormat = nn.ChannelsFirst
	ChannelsLast  DataFormat = nn.ChannelsLast
)

// DropBlock represents structured dropout: contiguous spatial blocks of
// a feature map are zeroed together instead of independent elements.
type DropBlock[B tensor.Backend] = nn.DropBlock[B]

// NewDropBlock creates a DropBlock layer. A single block size is
// broadcast to every spatial dimension; otherwise one entry per spatial
// dimension is required. The layer starts in training mode.
//
// Example:
//
//	db := nn.NewDropBlock(0.1, []int{5}, nn.ChannelsFirst, backend)
func NewDropBlock[B tensor.Backend](rate float64, blockSize []int, format DataFormat, backend B) *DropBlock[B] {
	return nn.NewDropBlock(rate, blockSize, format, backend)
}

// Containers

// Sequential chains modules and propagates train/eval switches.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a sequential container from the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}
