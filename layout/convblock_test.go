package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocknet-ml/blocknet/internal/backend/cpu"
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

func TestConvBlock_ForwardShape(t *testing.T) {
	backend := cpu.New()
	blk, err := NewConvBlock(MustParse("cnacna"), 4, Options{
		Filters: []int{8},
		Strides: []int{2, 1},
	}, backend)
	require.NoError(t, err)
	assert.Equal(t, 8, blk.OutChannels())

	x := tensor.Rand[float32](tensor.Shape{1, 4, 8, 8}, backend)
	y := blk.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{1, 8, 4, 4}), "got %v", y.Shape())
}

func TestConvBlock_ResidualAdd(t *testing.T) {
	backend := cpu.New()
	blk, err := NewConvBlock(MustParse("Bcnacna+"), 4, Options{
		Filters:     []int{8},
		Strides:     []int{2, 1},
		SideFilters: 8,
		SideStride:  2,
	}, backend)
	require.NoError(t, err)

	x := tensor.Rand[float32](tensor.Shape{2, 4, 8, 8}, backend)
	y := blk.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{2, 8, 4, 4}), "got %v", y.Shape())
}

func TestConvBlock_IdentityShortcut(t *testing.T) {
	backend := cpu.New()
	blk, err := NewConvBlock(MustParse("Bcnacna+"), 8, Options{
		Filters: []int{8},
	}, backend)
	require.NoError(t, err)

	x := tensor.Rand[float32](tensor.Shape{1, 8, 6, 6}, backend)
	y := blk.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{1, 8, 6, 6}), "got %v", y.Shape())
}

func TestConvBlock_ConcatMerge(t *testing.T) {
	backend := cpu.New()
	blk, err := NewConvBlock(MustParse("Bcna."), 4, Options{
		Filters: []int{8},
	}, backend)
	require.NoError(t, err)
	// Trunk keeps 8 channels, identity branch adds 4 more.
	assert.Equal(t, 12, blk.OutChannels())

	x := tensor.Rand[float32](tensor.Shape{1, 4, 6, 6}, backend)
	y := blk.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{1, 12, 6, 6}), "got %v", y.Shape())
}

func TestConvBlock_Head(t *testing.T) {
	backend := cpu.New()
	blk, err := NewConvBlock(MustParse("Vdf"), 16, Options{
		DropoutRate: 0.4,
		Units:       10,
	}, backend)
	require.NoError(t, err)
	assert.Equal(t, 10, blk.OutChannels())

	blk.Train(false)
	x := tensor.Rand[float32](tensor.Shape{2, 16, 4, 4}, backend)
	y := blk.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{2, 10}), "got %v", y.Shape())
}

func TestConvBlock_InitialBlock(t *testing.T) {
	backend := cpu.New()
	blk, err := NewConvBlock(MustParse("cnap"), 3, Options{
		Filters:     []int{64},
		KernelSize:  []int{7},
		Strides:     []int{2},
		PoolSize:    3,
		PoolStride:  2,
		PoolPadding: 1,
	}, backend)
	require.NoError(t, err)

	x := tensor.Rand[float32](tensor.Shape{1, 3, 32, 32}, backend)
	y := blk.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{1, 64, 8, 8}), "got %v", y.Shape())
}

func TestConvBlock_BuildErrors(t *testing.T) {
	backend := cpu.New()

	_, err := NewConvBlock(MustParse("tna"), 4, Options{Filters: []int{8}}, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")

	_, err = NewConvBlock(MustParse("cf"), 4, Options{Filters: []int{8}, Units: 10}, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flattened")

	_, err = NewConvBlock(MustParse("cna+"), 4, Options{Filters: []int{8}}, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge without open branch")

	_, err = NewConvBlock(MustParse("Bcna"), 4, Options{Filters: []int{8}}, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "branch without merge")

	// Identity shortcut cannot add mismatched widths.
	_, err = NewConvBlock(MustParse("Bcna+"), 4, Options{Filters: []int{8}}, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot add")

	_, err = NewConvBlock(MustParse("cna"), 4, Options{}, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no filters")
}

func TestResBlock_ChainsRepetitions(t *testing.T) {
	backend := cpu.New()
	blk, err := NewResBlock(BlockSpec{
		Layout:     "cnacna",
		Filters:    Literals(8),
		Downsample: 2,
		NReps:      2,
	}, 4, backend)
	require.NoError(t, err)
	assert.Equal(t, 2, blk.NumReps())
	assert.Equal(t, 8, blk.OutChannels())

	x := tensor.Rand[float32](tensor.Shape{1, 4, 8, 8}, backend)
	y := blk.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{1, 8, 4, 4}), "got %v", y.Shape())
}

func TestResBlock_BottleneckOutput(t *testing.T) {
	backend := cpu.New()
	blk, err := NewResBlock(BlockSpec{
		Layout:     "cna",
		Filters:    Literals(8),
		Bottleneck: 4,
		NReps:      2,
	}, 8, backend)
	require.NoError(t, err)
	assert.Equal(t, 32, blk.OutChannels())

	x := tensor.Rand[float32](tensor.Shape{1, 8, 4, 4}, backend)
	y := blk.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{1, 32, 4, 4}), "got %v", y.Shape())
}

func TestResBlock_TrainPropagates(t *testing.T) {
	backend := cpu.New()
	blk, err := NewResBlock(BlockSpec{
		Layout:  "cnacnad",
		Filters: Literals(8),
		NReps:   1,
	}, 8, backend)
	require.NoError(t, err)

	blk.Train(false)
	x := tensor.Rand[float32](tensor.Shape{1, 8, 4, 4}, backend)
	// Inference mode uses running statistics and skips dropout.
	y1 := blk.Forward(x)
	y2 := blk.Forward(x)
	assert.Equal(t, y1.Data(), y2.Data())
}
