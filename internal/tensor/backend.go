package tensor

// Backend defines the interface compute backends must implement. Backends
// operate on RawTensors; the generic Tensor wrapper adds type safety on top.
//
// Implementations:
//   - CPU: pure Go (internal/backend/cpu)
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations.
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor
	DivScalar(x *RawTensor, scalar any) *RawTensor

	// Element-wise math.
	Sqrt(x *RawTensor) *RawTensor

	// Matrix multiplication for 2D tensors: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Conv2D performs grouped 2D convolution.
	// Input [N, C_in, H, W], kernel [C_out, C_in/groups, K_h, K_w].
	Conv2D(input, kernel *RawTensor, stride, padding, groups int) *RawTensor

	// MaxPool2D performs 2D max pooling with symmetric padding.
	MaxPool2D(input *RawTensor, kernelSize, stride, padding int) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor

	// Manipulation.
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
