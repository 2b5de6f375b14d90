package cpu

import (
	"fmt"
	"math"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Add performs element-wise addition with broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// Sqrt computes the element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	out := x.Clone()
	switch x.DType() {
	case tensor.Float32:
		data := out.AsFloat32()
		for i, v := range data {
			data[i] = float32(math.Sqrt(float64(v)))
		}
	case tensor.Float64:
		data := out.AsFloat64()
		for i, v := range data {
			data[i] = math.Sqrt(v)
		}
	default:
		panic(fmt.Sprintf("sqrt: unsupported dtype %s", x.DType()))
	}
	return out
}

// binaryOp applies a binary operation with NumPy-style broadcasting.
func (cpu *CPUBackend) binaryOp(name string, a, b *tensor.RawTensor,
	opF32 func(x, y float32) float32, opF64 func(x, y float64) float64,
) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	out, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch a.DType() {
	case tensor.Float32:
		broadcastApply(a.AsFloat32(), b.AsFloat32(), out.AsFloat32(),
			a.Shape(), b.Shape(), outShape, opF32)
	case tensor.Float64:
		broadcastApply(a.AsFloat64(), b.AsFloat64(), out.AsFloat64(),
			a.Shape(), b.Shape(), outShape, opF64)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return out
}

// broadcastApply evaluates op over the broadcast output shape. Operand
// strides are zeroed on size-1 dimensions so the same element is reused.
func broadcastApply[T float32 | float64](a, b, out []T, aShape, bShape, outShape tensor.Shape, op func(x, y T) T) {
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	coords := make([]int, len(outShape))
	for flat := range out {
		aIdx, bIdx := 0, 0
		for d := range coords {
			aIdx += coords[d] * aStrides[d]
			bIdx += coords[d] * bStrides[d]
		}
		out[flat] = op(a[aIdx], b[bIdx])

		for d := len(coords) - 1; d >= 0; d-- {
			coords[d]++
			if coords[d] < outShape[d] {
				break
			}
			coords[d] = 0
		}
	}
}

// broadcastStrides returns strides for indexing an operand of shape `shape`
// as if it had the broadcast shape `outShape`.
func broadcastStrides(shape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	realStrides := shape.ComputeStrides()
	offset := len(outShape) - len(shape)
	for i := range outShape {
		src := i - offset
		if src < 0 || shape[src] == 1 {
			strides[i] = 0
		} else {
			strides[i] = realStrides[src]
		}
	}
	return strides
}
