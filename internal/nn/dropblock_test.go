package nn

import (
	"math"
	"testing"

	"github.com/blocknet-ml/blocknet/internal/backend/cpu"
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// TestDropBlock_RateZeroIsIdentity checks the exact no-op contract.
func TestDropBlock_RateZeroIsIdentity(t *testing.T) {
	backend := cpu.New()
	db := NewDropBlock(0, []int{3}, ChannelsFirst, backend)

	x := tensor.Rand[float32](tensor.Shape{2, 4, 8, 8}, backend)
	y := db.Forward(x)
	if y != x {
		t.Error("Expected rate=0 forward to return the input unchanged")
	}
}

// TestDropBlock_EvalIsIdentity checks inference mode passes through.
func TestDropBlock_EvalIsIdentity(t *testing.T) {
	backend := cpu.New()
	db := NewDropBlock(0.5, []int{3}, ChannelsFirst, backend)
	db.Train(false)

	x := tensor.Rand[float32](tensor.Shape{2, 4, 8, 8}, backend)
	y := db.Forward(x)
	if y != x {
		t.Error("Expected eval forward to return the input unchanged")
	}
}

// TestDropBlock_SeededDeterminism checks that the same seed reproduces
// the same mask.
func TestDropBlock_SeededDeterminism(t *testing.T) {
	backend := cpu.New()
	x := tensor.Rand[float32](tensor.Shape{1, 4, 12, 12}, backend)

	db1 := NewDropBlock(0.3, []int{3}, ChannelsFirst, backend)
	db1.Seed(42)
	db2 := NewDropBlock(0.3, []int{3}, ChannelsFirst, backend)
	db2.Seed(42)

	y1 := db1.Forward(x).Data()
	y2 := db2.Forward(x).Data()
	for i := range y1 {
		if y1[i] != y2[i] {
			t.Fatal("Expected identical outputs for identical seeds")
		}
	}
}

// TestDropBlock_RescalePreservesSum checks the total/kept rescale: with
// an all-ones input the output sums back to the element count.
func TestDropBlock_RescalePreservesSum(t *testing.T) {
	backend := cpu.New()
	db := NewDropBlock(0.4, []int{3}, ChannelsFirst, backend)
	db.Seed(7)

	x := tensor.Ones[float32](tensor.Shape{2, 4, 10, 10}, backend)
	y := db.Forward(x)

	sum := float64(y.Sum().Item())
	total := float64(x.NumElements())
	if math.Abs(sum-total) > 1e-2*total {
		t.Errorf("Expected rescaled sum ~%g, got %g", total, sum)
	}

	// Every element is either zero or the shared rescale factor.
	var scale float32
	for _, v := range y.Data() {
		if v != 0 {
			scale = v
			break
		}
	}
	zeros := 0
	for _, v := range y.Data() {
		if v == 0 {
			zeros++
			continue
		}
		if v != scale {
			t.Fatalf("Expected kept elements to share one scale, got %g and %g", scale, v)
		}
	}
	if zeros == 0 {
		t.Error("Expected some elements to be dropped at rate 0.4")
	}
}

// TestDropBlock_MaskSharedAcrossBatch checks that both examples in a
// batch see the same mask.
func TestDropBlock_MaskSharedAcrossBatch(t *testing.T) {
	backend := cpu.New()
	db := NewDropBlock(0.4, []int{3}, ChannelsFirst, backend)
	db.Seed(11)

	x := tensor.Ones[float32](tensor.Shape{2, 2, 8, 8}, backend)
	y := db.Forward(x)

	data := y.Data()
	per := len(data) / 2
	for i := 0; i < per; i++ {
		if data[i] != data[per+i] {
			t.Fatal("Expected the mask to be shared across the batch")
		}
	}
}

// TestDropBlock_BlockSizeClamped checks oversized blocks are clamped to
// the spatial extent instead of failing.
func TestDropBlock_BlockSizeClamped(t *testing.T) {
	backend := cpu.New()
	db := NewDropBlock(0.5, []int{100}, ChannelsFirst, backend)
	db.Seed(3)

	x := tensor.Ones[float32](tensor.Shape{1, 2, 4, 4}, backend)
	// With the block clamped to the full 4x4 extent, each feature map is
	// either fully kept or fully dropped.
	y := db.Forward(x)
	data := y.Data()
	per := 16
	for c := 0; c < 2; c++ {
		dropped := data[c*per] == 0
		for i := 1; i < per; i++ {
			if (data[c*per+i] == 0) != dropped {
				t.Fatal("Expected a full-extent block to cover the whole feature map")
			}
		}
	}
}

// TestDropBlock_ChannelsLast checks the [N, spatial..., C] layout.
func TestDropBlock_ChannelsLast(t *testing.T) {
	backend := cpu.New()
	db := NewDropBlock(0.3, []int{3}, ChannelsLast, backend)
	db.Seed(5)

	x := tensor.Ones[float32](tensor.Shape{1, 10, 10, 4}, backend)
	y := db.Forward(x)
	if !y.Shape().Equal(x.Shape()) {
		t.Errorf("Expected shape %v, got %v", x.Shape(), y.Shape())
	}
}

// TestDropBlock_RankGeneric checks 1D and 3D spatial inputs.
func TestDropBlock_RankGeneric(t *testing.T) {
	backend := cpu.New()

	db := NewDropBlock(0.3, []int{3}, ChannelsFirst, backend)
	db.Seed(9)
	y := db.Forward(tensor.Ones[float32](tensor.Shape{1, 2, 16}, backend))
	if !y.Shape().Equal(tensor.Shape{1, 2, 16}) {
		t.Errorf("1D spatial: unexpected shape %v", y.Shape())
	}

	db3 := NewDropBlock(0.3, []int{2, 3, 2}, ChannelsFirst, backend)
	db3.Seed(9)
	y3 := db3.Forward(tensor.Ones[float32](tensor.Shape{1, 2, 6, 6, 6}, backend))
	if !y3.Shape().Equal(tensor.Shape{1, 2, 6, 6, 6}) {
		t.Errorf("3D spatial: unexpected shape %v", y3.Shape())
	}
}

// TestDropBlock_BlockSizeLengthMismatch checks the per-dim length rule.
func TestDropBlock_BlockSizeLengthMismatch(t *testing.T) {
	backend := cpu.New()
	db := NewDropBlock(0.3, []int{3, 3, 3}, ChannelsFirst, backend)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for block size length mismatch")
		}
	}()
	db.Forward(tensor.Ones[float32](tensor.Shape{1, 2, 8, 8}, backend))
}

// TestDropBlock_ConstructorValidation checks the constructor panics.
func TestDropBlock_ConstructorValidation(t *testing.T) {
	backend := cpu.New()

	assertPanics(t, "rate above 1", func() {
		NewDropBlock(1.5, []int{3}, ChannelsFirst, backend)
	})
	assertPanics(t, "negative rate", func() {
		NewDropBlock(-0.1, []int{3}, ChannelsFirst, backend)
	})
	assertPanics(t, "empty block size", func() {
		NewDropBlock(0.3, nil, ChannelsFirst, backend)
	})
	assertPanics(t, "non-positive block size", func() {
		NewDropBlock(0.3, []int{0}, ChannelsFirst, backend)
	})
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic: %s", name)
		}
	}()
	fn()
}
