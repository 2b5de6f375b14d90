package cpu

import (
	"fmt"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return scalarOp("mul_scalar", x, scalar,
		func(v, s float32) float32 { return v * s },
		func(v, s float64) float64 { return v * s })
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return scalarOp("add_scalar", x, scalar,
		func(v, s float32) float32 { return v + s },
		func(v, s float64) float64 { return v + s })
}

// DivScalar divides every element by a scalar.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return scalarOp("div_scalar", x, scalar,
		func(v, s float32) float32 { return v / s },
		func(v, s float64) float64 { return v / s })
}

func scalarOp(name string, x *tensor.RawTensor, scalar any,
	opF32 func(v, s float32) float32, opF64 func(v, s float64) float64,
) *tensor.RawTensor {
	s := toFloat64(name, scalar)
	out := x.Clone()
	switch x.DType() {
	case tensor.Float32:
		data := out.AsFloat32()
		sf := float32(s)
		for i, v := range data {
			data[i] = opF32(v, sf)
		}
	case tensor.Float64:
		data := out.AsFloat64()
		for i, v := range data {
			data[i] = opF64(v, s)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return out
}

func toFloat64(name string, scalar any) float64 {
	switch s := scalar.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int:
		return float64(s)
	case int32:
		return float64(s)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", name, scalar))
	}
}
