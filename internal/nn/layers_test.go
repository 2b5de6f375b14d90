package nn

import (
	"math"
	"testing"

	"github.com/blocknet-ml/blocknet/internal/backend/cpu"
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

func TestConv2D_ForwardShape(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(3, 8, 3, 3, 2, 1, 1, false, backend)

	x := tensor.Rand[float32](tensor.Shape{2, 3, 8, 8}, backend)
	y := conv.Forward(x)
	if !y.Shape().Equal(tensor.Shape{2, 8, 4, 4}) {
		t.Errorf("Expected shape [2 8 4 4], got %v", y.Shape())
	}
}

func TestConv2D_GroupedWeightShape(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(8, 8, 3, 3, 1, 1, 4, false, backend)

	// Grouped kernels hold in_channels/groups input planes each.
	shape := conv.weight.Tensor().Shape()
	if !shape.Equal(tensor.Shape{8, 2, 3, 3}) {
		t.Errorf("Expected weight shape [8 2 3 3], got %v", shape)
	}

	x := tensor.Rand[float32](tensor.Shape{1, 8, 6, 6}, backend)
	y := conv.Forward(x)
	if !y.Shape().Equal(tensor.Shape{1, 8, 6, 6}) {
		t.Errorf("Expected shape [1 8 6 6], got %v", y.Shape())
	}
}

func TestConv2D_ChannelMismatchPanics(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D(3, 8, 3, 3, 1, 1, 1, false, backend)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for channel mismatch")
		}
	}()
	conv.Forward(tensor.Rand[float32](tensor.Shape{1, 4, 8, 8}, backend))
}

func TestBatchNorm2D_NormalizesBatch(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2D(2, 1e-5, 0.1, backend)

	x := tensor.Rand[float32](tensor.Shape{4, 2, 6, 6}, backend)
	y := bn.Forward(x)

	// Per-channel mean ~0 after normalization with default gamma/beta.
	data := y.Data()
	per := 6 * 6
	for c := 0; c < 2; c++ {
		sum := 0.0
		for n := 0; n < 4; n++ {
			base := n*2*per + c*per
			for i := 0; i < per; i++ {
				sum += float64(data[base+i])
			}
		}
		mean := sum / float64(4*per)
		if math.Abs(mean) > 1e-4 {
			t.Errorf("Channel %d mean after norm: expected ~0, got %g", c, mean)
		}
	}
}

func TestBatchNorm2D_EvalUsesRunningStats(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2D(2, 1e-5, 0.1, backend)
	bn.Train(false)

	// Fresh running stats are mean 0, var 1, so eval is near-identity.
	x := tensor.Rand[float32](tensor.Shape{1, 2, 4, 4}, backend)
	y := bn.Forward(x)
	xd, yd := x.Data(), y.Data()
	for i := range xd {
		if math.Abs(float64(yd[i]-xd[i])) > 1e-3 {
			t.Fatalf("Eval with fresh stats: expected ~identity, got %g vs %g", yd[i], xd[i])
		}
	}
}

func TestMaxPool2D_ForwardShape(t *testing.T) {
	backend := cpu.New()
	pool := NewMaxPool2D(3, 2, 1, backend)

	x := tensor.Rand[float32](tensor.Shape{1, 4, 16, 16}, backend)
	y := pool.Forward(x)
	if !y.Shape().Equal(tensor.Shape{1, 4, 8, 8}) {
		t.Errorf("Expected shape [1 4 8 8], got %v", y.Shape())
	}
}

func TestGlobalAvgPool2D_Flattens(t *testing.T) {
	backend := cpu.New()
	pool := NewGlobalAvgPool2D[*cpu.CPUBackend]()

	x, err := tensor.FromSlice([]float32{
		1, 2, 3, 4,
		10, 20, 30, 40,
	}, tensor.Shape{1, 2, 2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	y := pool.Forward(x)
	if !y.Shape().Equal(tensor.Shape{1, 2}) {
		t.Fatalf("Expected shape [1 2], got %v", y.Shape())
	}
	data := y.Data()
	if data[0] != 2.5 || data[1] != 25 {
		t.Errorf("Expected [2.5 25], got %v", data)
	}
}

func TestLinear_ForwardShape(t *testing.T) {
	backend := cpu.New()
	lin := NewLinear(16, 10, backend)

	x := tensor.Rand[float32](tensor.Shape{4, 16}, backend)
	y := lin.Forward(x)
	if !y.Shape().Equal(tensor.Shape{4, 10}) {
		t.Errorf("Expected shape [4 10], got %v", y.Shape())
	}
	if len(lin.Parameters()) != 2 {
		t.Errorf("Expected 2 parameters, got %d", len(lin.Parameters()))
	}
}

func TestSequential_TrainPropagates(t *testing.T) {
	backend := cpu.New()
	seq := NewSequential[*cpu.CPUBackend](
		NewConv2D(2, 4, 3, 3, 1, 1, 1, false, backend),
		NewBatchNorm2D(4, 1e-5, 0.1, backend),
		NewReLU[*cpu.CPUBackend](),
		NewDropout[*cpu.CPUBackend](0.5, backend),
	)
	seq.Train(false)

	x := tensor.Rand[float32](tensor.Shape{1, 2, 6, 6}, backend)
	y1 := seq.Forward(x).Data()
	y2 := seq.Forward(x).Data()
	for i := range y1 {
		if y1[i] != y2[i] {
			t.Fatal("Expected deterministic eval forward after Train(false)")
		}
	}
}

func TestReLU_ClampsNegatives(t *testing.T) {
	backend := cpu.New()
	relu := NewReLU[*cpu.CPUBackend]()

	x, err := tensor.FromSlice([]float32{-2, -0.5, 0, 1.5}, tensor.Shape{4}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	y := relu.Forward(x).Data()
	expected := []float32{0, 0, 0, 1.5}
	for i := range expected {
		if y[i] != expected[i] {
			t.Errorf("ReLU: expected %v, got %v", expected, y)
			break
		}
	}
}
