package cpu

import (
	"fmt"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Conv2D performs grouped 2D convolution.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in/groups, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out]
//
// With groups > 1 the input channels are split into `groups` contiguous
// slices and each group of output channels only sees its own slice — the
// aggregated-transform convolution ResNeXt is built from. groups=1 is a
// standard dense convolution.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding, groups int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in/groups,K_h,K_w], got %dD", len(kernelShape)))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}
	if groups <= 0 {
		panic(fmt.Sprintf("conv2d: invalid groups %d", groups))
	}

	n := inputShape[0]
	cIn := inputShape[1]
	h := inputShape[2]
	w := inputShape[3]
	cOut := kernelShape[0]
	kH := kernelShape[2]
	kW := kernelShape[3]

	if cIn%groups != 0 || cOut%groups != 0 {
		panic(fmt.Sprintf("conv2d: channels (in=%d, out=%d) must be divisible by groups=%d", cIn, cOut, groups))
	}
	if kernelShape[1] != cIn/groups {
		panic(fmt.Sprintf("conv2d: kernel expects %d input channels per group, input has %d", kernelShape[1], cIn/groups))
	}

	hOut := (h+2*padding-kH)/stride + 1
	wOut := (w+2*padding-kW)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions %dx%d (check stride/padding)", hOut, wOut))
	}

	out, err := tensor.NewRaw(tensor.Shape{n, cOut, hOut, wOut}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		conv2dGrouped(out.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(),
			n, cIn, h, w, cOut, kH, kW, hOut, wOut, stride, padding, groups)
	case tensor.Float64:
		conv2dGrouped(out.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(),
			n, cIn, h, w, cOut, kH, kW, hOut, wOut, stride, padding, groups)
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}
	return out
}

func conv2dGrouped[T float32 | float64](out, in, kernel []T,
	n, cIn, h, w, cOut, kH, kW, hOut, wOut, stride, padding, groups int,
) {
	cInGroup := cIn / groups
	cOutGroup := cOut / groups

	for b := 0; b < n; b++ {
		for oc := 0; oc < cOut; oc++ {
			g := oc / cOutGroup
			icBase := g * cInGroup
			kernelBase := oc * cInGroup * kH * kW
			outBase := (b*cOut + oc) * hOut * wOut

			for oh := 0; oh < hOut; oh++ {
				ihBase := oh*stride - padding
				for ow := 0; ow < wOut; ow++ {
					iwBase := ow*stride - padding
					var sum T
					for ic := 0; ic < cInGroup; ic++ {
						inBase := (b*cIn + icBase + ic) * h * w
						kBase := kernelBase + ic*kH*kW
						for kh := 0; kh < kH; kh++ {
							ih := ihBase + kh
							if ih < 0 || ih >= h {
								continue
							}
							rowBase := inBase + ih*w
							kRowBase := kBase + kh*kW
							for kw := 0; kw < kW; kw++ {
								iw := iwBase + kw
								if iw < 0 || iw >= w {
									continue
								}
								sum += in[rowBase+iw] * kernel[kRowBase+kw]
							}
						}
					}
					out[outBase+oh*wOut+ow] = sum
				}
			}
		}
	}
}
