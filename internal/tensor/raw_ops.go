package tensor

import (
	"fmt"
)

// Free raw-tensor operations that are independent of any backend. These are
// rank-generic building blocks used by structured dropout: padding a seed
// mask back to full resolution and dilating seed points along one spatial
// axis at a time.

// Pad pads a tensor with a constant value. before and after give the number
// of elements to add on each side of every dimension and must match the
// tensor rank.
func Pad(x *RawTensor, before, after []int, value float64) (*RawTensor, error) {
	shape := x.Shape()
	if len(before) != len(shape) || len(after) != len(shape) {
		return nil, fmt.Errorf("pad: before/after length (%d/%d) must match tensor rank %d",
			len(before), len(after), len(shape))
	}

	outShape := make(Shape, len(shape))
	for i := range shape {
		if before[i] < 0 || after[i] < 0 {
			return nil, fmt.Errorf("pad: negative padding at dimension %d", i)
		}
		outShape[i] = shape[i] + before[i] + after[i]
	}

	out, err := NewRaw(outShape, x.DType(), x.Device())
	if err != nil {
		return nil, fmt.Errorf("pad: %w", err)
	}

	switch x.DType() {
	case Float32:
		padFill(x.AsFloat32(), out.AsFloat32(), shape, outShape, before, float32(value))
	case Float64:
		padFill(x.AsFloat64(), out.AsFloat64(), shape, outShape, before, value)
	default:
		return nil, fmt.Errorf("pad: unsupported dtype %s", x.DType())
	}
	return out, nil
}

func padFill[T float32 | float64](in, out []T, inShape, outShape Shape, before []int, value T) {
	if value != 0 {
		for i := range out {
			out[i] = value
		}
	}

	outStrides := outShape.ComputeStrides()
	coords := make([]int, len(inShape))

	for flat := range in {
		outFlat := 0
		for d := range coords {
			outFlat += (coords[d] + before[d]) * outStrides[d]
		}
		out[outFlat] = in[flat]

		for d := len(coords) - 1; d >= 0; d-- {
			coords[d]++
			if coords[d] < inShape[d] {
				break
			}
			coords[d] = 0
		}
	}
}

// SlidingMax computes a stride-1 sliding-window maximum along one axis.
// The axis shrinks from n to n-window+1 (valid region); other dimensions are
// unchanged. Applying SlidingMax once per spatial axis dilates isolated seed
// points into full blocks, since the windowed maximum is separable.
func SlidingMax(x *RawTensor, axis, window int) (*RawTensor, error) {
	shape := x.Shape()
	if axis < 0 || axis >= len(shape) {
		return nil, fmt.Errorf("sliding max: axis %d out of range for rank %d", axis, len(shape))
	}
	if window <= 0 {
		return nil, fmt.Errorf("sliding max: window must be positive, got %d", window)
	}
	if window > shape[axis] {
		return nil, fmt.Errorf("sliding max: window %d exceeds dimension %d (size %d)",
			window, axis, shape[axis])
	}

	outShape := shape.Clone()
	outShape[axis] = shape[axis] - window + 1

	out, err := NewRaw(outShape, x.DType(), x.Device())
	if err != nil {
		return nil, fmt.Errorf("sliding max: %w", err)
	}

	// View the tensor as [outer, n, inner] around the axis.
	outer, inner := 1, 1
	for i := 0; i < axis; i++ {
		outer *= shape[i]
	}
	for i := axis + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	n := shape[axis]
	nOut := outShape[axis]

	switch x.DType() {
	case Float32:
		slidingMaxAxis(x.AsFloat32(), out.AsFloat32(), outer, n, nOut, inner, window)
	case Float64:
		slidingMaxAxis(x.AsFloat64(), out.AsFloat64(), outer, n, nOut, inner, window)
	default:
		return nil, fmt.Errorf("sliding max: unsupported dtype %s", x.DType())
	}
	return out, nil
}

func slidingMaxAxis[T float32 | float64](in, out []T, outer, n, nOut, inner, window int) {
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o * n * inner
			outBase := o * nOut * inner
			for j := 0; j < nOut; j++ {
				maxVal := in[base+j*inner+i]
				for w := 1; w < window; w++ {
					if v := in[base+(j+w)*inner+i]; v > maxVal {
						maxVal = v
					}
				}
				out[outBase+j*inner+i] = maxVal
			}
		}
	}
}
