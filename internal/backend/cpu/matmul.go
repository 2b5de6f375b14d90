package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
//
// The heavy lifting is delegated to gonum's mat.Dense, which carries a tuned
// BLAS-style implementation. float32 tensors are widened to float64 for the
// multiply and narrowed back.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D operands, got %v @ %v", aShape, bShape))
	}
	m, k := aShape[0], aShape[1]
	k2, n := bShape[0], bShape[1]
	if k != k2 {
		panic(fmt.Sprintf("matmul: inner dimensions do not match: %v @ %v", aShape, bShape))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s vs %s", a.DType(), b.DType()))
	}

	out, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}

	switch a.DType() {
	case tensor.Float64:
		dense := mat.NewDense(m, n, out.AsFloat64())
		dense.Mul(mat.NewDense(m, k, a.AsFloat64()), mat.NewDense(k, n, b.AsFloat64()))
	case tensor.Float32:
		aF64 := widen(a.AsFloat32())
		bF64 := widen(b.AsFloat32())
		cF64 := make([]float64, m*n)
		dense := mat.NewDense(m, n, cF64)
		dense.Mul(mat.NewDense(m, k, aF64), mat.NewDense(k, n, bF64))
		outData := out.AsFloat32()
		for i, v := range cF64 {
			outData[i] = float32(v)
		}
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}
	return out
}

func widen(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
