package cpu

import (
	"fmt"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Reshape returns a tensor with the same data and a new shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}
	out, err := tensor.NewRaw(newShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	copy(out.Data(), t.Data())
	return out
}

// Transpose permutes tensor dimensions. Without explicit axes the last two
// dimensions are swapped.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	rank := len(shape)

	if len(axes) == 0 {
		if rank < 2 {
			panic(fmt.Sprintf("transpose: need at least 2 dimensions, got shape %v", shape))
		}
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = i
		}
		axes[rank-2], axes[rank-1] = axes[rank-1], axes[rank-2]
	}
	if len(axes) != rank {
		panic(fmt.Sprintf("transpose: got %d axes for rank %d", len(axes), rank))
	}

	seen := make([]bool, rank)
	outShape := make(tensor.Shape, rank)
	for i, a := range axes {
		if a < 0 || a >= rank || seen[a] {
			panic(fmt.Sprintf("transpose: invalid axes %v for rank %d", axes, rank))
		}
		seen[a] = true
		outShape[i] = shape[a]
	}

	out, err := tensor.NewRaw(outShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	inStrides := shape.ComputeStrides()
	coords := make([]int, rank)

	switch t.DType() {
	case tensor.Float32:
		in, dst := t.AsFloat32(), out.AsFloat32()
		for flat := range dst {
			srcIdx := 0
			for d := range coords {
				srcIdx += coords[d] * inStrides[axes[d]]
			}
			dst[flat] = in[srcIdx]
			advance(coords, outShape)
		}
	case tensor.Float64:
		in, dst := t.AsFloat64(), out.AsFloat64()
		for flat := range dst {
			srcIdx := 0
			for d := range coords {
				srcIdx += coords[d] * inStrides[axes[d]]
			}
			dst[flat] = in[srcIdx]
			advance(coords, outShape)
		}
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
	return out
}

// Expand broadcasts a tensor to a larger shape. Size-1 dimensions are
// repeated; all other dimensions must match exactly.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	srcShape := x.Shape()
	if len(shape) < len(srcShape) {
		panic(fmt.Sprintf("expand: target rank %d below source rank %d", len(shape), len(srcShape)))
	}
	offset := len(shape) - len(srcShape)
	for i, d := range srcShape {
		if d != 1 && d != shape[i+offset] {
			panic(fmt.Sprintf("expand: cannot expand %v to %v (dimension %d)", srcShape, shape, i))
		}
	}

	out, err := tensor.NewRaw(shape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}

	strides := broadcastStrides(srcShape, shape)
	coords := make([]int, len(shape))

	switch x.DType() {
	case tensor.Float32:
		in, dst := x.AsFloat32(), out.AsFloat32()
		for flat := range dst {
			srcIdx := 0
			for d := range coords {
				srcIdx += coords[d] * strides[d]
			}
			dst[flat] = in[srcIdx]
			advance(coords, shape)
		}
	case tensor.Float64:
		in, dst := x.AsFloat64(), out.AsFloat64()
		for flat := range dst {
			srcIdx := 0
			for d := range coords {
				srcIdx += coords[d] * strides[d]
			}
			dst[flat] = in[srcIdx]
			advance(coords, shape)
		}
	default:
		panic(fmt.Sprintf("expand: unsupported dtype %s", x.DType()))
	}
	return out
}

// Cat concatenates tensors along one dimension. All other dimensions must
// match across operands.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: empty tensor list")
	}
	first := tensors[0].Shape()
	if dim < 0 {
		dim += len(first)
	}
	if dim < 0 || dim >= len(first) {
		panic(fmt.Sprintf("cat: dim out of range for shape %v", first))
	}

	outShape := first.Clone()
	for _, t := range tensors[1:] {
		s := t.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("cat: rank mismatch %v vs %v", first, s))
		}
		for i := range s {
			if i == dim {
				continue
			}
			if s[i] != first[i] {
				panic(fmt.Sprintf("cat: shape mismatch at dimension %d: %v vs %v", i, first, s))
			}
		}
		outShape[dim] += s[dim]
	}

	out, err := tensor.NewRaw(outShape, tensors[0].DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// Copy operand-by-operand: each contributes contiguous [outer, size*inner]
	// chunks interleaved along the concat dimension.
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= first[i]
	}
	inner := 1
	for i := dim + 1; i < len(first); i++ {
		inner *= first[i]
	}

	elemSize := tensors[0].DType().Size()
	outRow := outShape[dim] * inner * elemSize
	offset := 0
	for _, t := range tensors {
		if t.DType() != tensors[0].DType() {
			panic(fmt.Sprintf("cat: dtype mismatch %s vs %s", tensors[0].DType(), t.DType()))
		}
		chunk := t.Shape()[dim] * inner * elemSize
		src := t.Data()
		dst := out.Data()
		for o := 0; o < outer; o++ {
			copy(dst[o*outRow+offset:o*outRow+offset+chunk], src[o*chunk:(o+1)*chunk])
		}
		offset += chunk
	}
	return out
}

// advance increments multi-dimensional coordinates in row-major order.
func advance(coords []int, shape tensor.Shape) {
	for d := len(coords) - 1; d >= 0; d-- {
		coords[d]++
		if coords[d] < shape[d] {
			return
		}
		coords[d] = 0
	}
}
