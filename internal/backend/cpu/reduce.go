package cpu

import (
	"fmt"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Sum reduces the tensor to a single-element tensor holding the total sum.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(tensor.Shape{1}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var sum float32
		for _, v := range x.AsFloat32() {
			sum += v
		}
		out.AsFloat32()[0] = sum
	case tensor.Float64:
		var sum float64
		for _, v := range x.AsFloat64() {
			sum += v
		}
		out.AsFloat64()[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return out
}

// MeanDim computes the mean along one dimension. Negative dims count from
// the end. With keepDim the reduced dimension is retained with size 1.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("mean_dim: dim out of range for shape %v", shape))
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	out, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mean_dim: %v", err))
	}

	// View the tensor as [outer, n, inner] around the reduced dimension.
	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	n := shape[dim]

	switch x.DType() {
	case tensor.Float32:
		meanDim(out.AsFloat32(), x.AsFloat32(), outer, n, inner)
	case tensor.Float64:
		meanDim(out.AsFloat64(), x.AsFloat64(), outer, n, inner)
	default:
		panic(fmt.Sprintf("mean_dim: unsupported dtype %s", x.DType()))
	}
	return out
}

func meanDim[T float32 | float64](out, in []T, outer, n, inner int) {
	scale := T(1) / T(n)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			var sum T
			base := o * n * inner
			for j := 0; j < n; j++ {
				sum += in[base+j*inner+i]
			}
			out[o*inner+i] = sum * scale
		}
	}
}
