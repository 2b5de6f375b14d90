package cpu

import (
	"fmt"
	"math"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// MaxPool2D performs 2D max pooling with symmetric padding. Padded cells
// hold -inf, so they never win the max.
//
// Input shape:  [N, C, H, W]
// Output shape: [N, C, H_out, W_out]
//
// Where:
//
//	H_out = (H + 2*padding - kernelSize) / stride + 1
//	W_out = (W + 2*padding - kernelSize) / stride + 1
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("maxpool2d: invalid padding %d", padding))
	}

	n := inputShape[0]
	c := inputShape[1]
	h := inputShape[2]
	w := inputShape[3]

	hOut := (h+2*padding-kernelSize)/stride + 1
	wOut := (w+2*padding-kernelSize)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid output dimensions %dx%d (kernel=%d, stride=%d, input=%dx%d)",
			hOut, wOut, kernelSize, stride, h, w))
	}

	out, err := tensor.NewRaw(tensor.Shape{n, c, hOut, wOut}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("maxpool2d: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		maxpool2d(out.AsFloat32(), input.AsFloat32(), n, c, h, w, hOut, wOut, kernelSize, stride, padding, float32(math.Inf(-1)))
	case tensor.Float64:
		maxpool2d(out.AsFloat64(), input.AsFloat64(), n, c, h, w, hOut, wOut, kernelSize, stride, padding, math.Inf(-1))
	default:
		panic(fmt.Sprintf("maxpool2d: unsupported dtype %s", input.DType()))
	}
	return out
}

func maxpool2d[T float32 | float64](out, in []T, n, c, h, w, hOut, wOut, kernelSize, stride, padding int, negInf T) {
	for b := 0; b < n; b++ {
		for ch := 0; ch < c; ch++ {
			inBase := (b*c + ch) * h * w
			outBase := (b*c + ch) * hOut * wOut

			for oh := 0; oh < hOut; oh++ {
				ihBase := oh*stride - padding
				for ow := 0; ow < wOut; ow++ {
					iwBase := ow*stride - padding
					maxVal := negInf
					for kh := 0; kh < kernelSize; kh++ {
						ih := ihBase + kh
						if ih < 0 || ih >= h {
							continue
						}
						rowBase := inBase + ih*w
						for kw := 0; kw < kernelSize; kw++ {
							iw := iwBase + kw
							if iw < 0 || iw >= w {
								continue
							}
							if v := in[rowBase+iw]; v > maxVal {
								maxVal = v
							}
						}
					}
					out[outBase+oh*wOut+ow] = maxVal
				}
			}
		}
	}
}
