package tensor

import (
	"testing"
)

func TestShape_NumElements(t *testing.T) {
	if n := (Shape{2, 3, 4}).NumElements(); n != 24 {
		t.Errorf("Expected 24 elements, got %d", n)
	}
	if n := (Shape{}).NumElements(); n != 1 {
		t.Errorf("Expected 1 element for scalar shape, got %d", n)
	}
}

func TestShape_ComputeStrides(t *testing.T) {
	strides := (Shape{2, 3, 4}).ComputeStrides()
	expected := []int{12, 4, 1}
	for i := range expected {
		if strides[i] != expected[i] {
			t.Errorf("Strides: expected %v, got %v", expected, strides)
			break
		}
	}
}

func TestShape_Validate(t *testing.T) {
	if err := (Shape{2, 3}).Validate(); err != nil {
		t.Errorf("Valid shape rejected: %v", err)
	}
	if err := (Shape{2, 0}).Validate(); err == nil {
		t.Error("Expected error for zero dimension")
	}
	if err := (Shape{2, -1}).Validate(); err == nil {
		t.Error("Expected error for negative dimension")
	}
}

func TestBroadcastShapes(t *testing.T) {
	out, needs, err := BroadcastShapes(Shape{2, 1, 4}, Shape{3, 1})
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if !out.Equal(Shape{2, 3, 4}) {
		t.Errorf("Expected [2 3 4], got %v", out)
	}
	if !needs {
		t.Error("Expected broadcasting to be required")
	}

	out, needs, err = BroadcastShapes(Shape{2, 3}, Shape{2, 3})
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if needs {
		t.Error("Equal shapes should not require broadcasting")
	}
	if !out.Equal(Shape{2, 3}) {
		t.Errorf("Expected [2 3], got %v", out)
	}

	if _, _, err := BroadcastShapes(Shape{2, 3}, Shape{4}); err == nil {
		t.Error("Expected error for incompatible shapes")
	}
}

func TestPad(t *testing.T) {
	raw, err := NewRaw(Shape{2, 2}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat32(), []float32{1, 2, 3, 4})

	out, err := Pad(raw, []int{1, 0}, []int{0, 1}, 0)
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	if !out.Shape().Equal(Shape{3, 3}) {
		t.Fatalf("Expected shape [3 3], got %v", out.Shape())
	}
	expected := []float32{0, 0, 0, 1, 2, 0, 3, 4, 0}
	got := out.AsFloat32()
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Padded data: expected %v, got %v", expected, got)
			break
		}
	}
}

func TestPad_RankMismatch(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 2}, Float32, CPU)
	if _, err := Pad(raw, []int{1}, []int{1, 1}, 0); err == nil {
		t.Error("Expected error for rank mismatch")
	}
}

func TestSlidingMax(t *testing.T) {
	raw, err := NewRaw(Shape{1, 5}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat32(), []float32{0, 1, 0, 0, 2})

	out, err := SlidingMax(raw, 1, 3)
	if err != nil {
		t.Fatalf("SlidingMax failed: %v", err)
	}
	if !out.Shape().Equal(Shape{1, 3}) {
		t.Fatalf("Expected shape [1 3], got %v", out.Shape())
	}
	expected := []float32{1, 1, 2}
	got := out.AsFloat32()
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Sliding max: expected %v, got %v", expected, got)
			break
		}
	}
}

func TestSlidingMax_WindowTooLarge(t *testing.T) {
	raw, _ := NewRaw(Shape{1, 3}, Float32, CPU)
	if _, err := SlidingMax(raw, 1, 4); err == nil {
		t.Error("Expected error for window larger than axis")
	}
}
