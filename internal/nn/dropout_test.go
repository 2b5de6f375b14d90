package nn

import (
	"testing"

	"github.com/blocknet-ml/blocknet/internal/backend/cpu"
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

func TestDropout_EvalIsIdentity(t *testing.T) {
	backend := cpu.New()
	d := NewDropout(0.5, backend)
	d.Train(false)

	x := tensor.Rand[float32](tensor.Shape{4, 8}, backend)
	if y := d.Forward(x); y != x {
		t.Error("Expected eval forward to return the input unchanged")
	}
}

func TestDropout_RateZeroIsIdentity(t *testing.T) {
	backend := cpu.New()
	d := NewDropout(0, backend)

	x := tensor.Rand[float32](tensor.Shape{4, 8}, backend)
	if y := d.Forward(x); y != x {
		t.Error("Expected rate=0 forward to return the input unchanged")
	}
}

func TestDropout_ScalesKeptElements(t *testing.T) {
	backend := cpu.New()
	d := NewDropout(0.5, backend)
	d.Seed(21)

	x := tensor.Ones[float32](tensor.Shape{16, 16}, backend)
	y := d.Forward(x)

	zeros := 0
	for _, v := range y.Data() {
		switch v {
		case 0:
			zeros++
		case 2:
			// kept, scaled by 1/(1-rate)
		default:
			t.Fatalf("Expected elements in {0, 2}, got %g", v)
		}
	}
	if zeros == 0 || zeros == x.NumElements() {
		t.Errorf("Expected a mix of dropped and kept elements, got %d/%d zeros", zeros, x.NumElements())
	}
}

func TestDropout_SeededDeterminism(t *testing.T) {
	backend := cpu.New()
	x := tensor.Rand[float32](tensor.Shape{8, 8}, backend)

	d1 := NewDropout(0.3, backend)
	d1.Seed(42)
	d2 := NewDropout(0.3, backend)
	d2.Seed(42)

	y1 := d1.Forward(x).Data()
	y2 := d2.Forward(x).Data()
	for i := range y1 {
		if y1[i] != y2[i] {
			t.Fatal("Expected identical outputs for identical seeds")
		}
	}
}
