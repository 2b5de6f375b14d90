package nn

import (
	"fmt"

	exprand "golang.org/x/exp/rand"

	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// DataFormat selects which axis of an activation tensor carries channels.
type DataFormat int

// Supported data formats.
const (
	// ChannelsFirst is the [N, C, spatial...] layout used by the conv stack.
	ChannelsFirst DataFormat = iota
	// ChannelsLast is the [N, spatial..., C] layout.
	ChannelsLast
)

// String returns a human-readable format name.
func (f DataFormat) String() string {
	if f == ChannelsFirst {
		return "channels_first"
	}
	return "channels_last"
}

// DropBlock is a structured form of dropout for convolutional activations:
// instead of independent elements, contiguous spatial blocks are zeroed.
// Nearby activations in a feature map are strongly correlated, so dropping
// single elements barely removes information; dropping blocks does.
//
// Reference: Ghiasi et al., "DropBlock: A regularization method for
// convolutional networks" (https://arxiv.org/pdf/1810.12890.pdf).
//
// The layer works on tensors of any spatial rank ([N, C, spatial...] or
// [N, spatial..., C]). One mask is sampled per feature map and shared by
// every example in the batch. In inference mode, or with rate 0, Forward
// returns its input untouched.
type DropBlock[B tensor.Backend] struct {
	rate      float64
	blockSize []int // scalar broadcast (len 1) or one entry per spatial dim
	format    DataFormat
	training  bool
	src       exprand.Source // nil uses the process-global source
	backend   B
}

// NewDropBlock creates a DropBlock layer.
//
// blockSize is the spatial block edge length: a single value is broadcast
// to every spatial dimension, otherwise the slice length must match the
// input's spatial rank (checked at Forward, when the rank is known).
// The layer starts in training mode.
func NewDropBlock[B tensor.Backend](rate float64, blockSize []int, format DataFormat, backend B) *DropBlock[B] {
	if rate < 0 || rate > 1 {
		panic(fmt.Sprintf("dropblock: rate must be in [0, 1], got %g", rate))
	}
	if len(blockSize) == 0 {
		panic("dropblock: blockSize must not be empty")
	}
	for _, b := range blockSize {
		if b <= 0 {
			panic(fmt.Sprintf("dropblock: block size must be positive, got %d", b))
		}
	}
	bs := make([]int, len(blockSize))
	copy(bs, blockSize)
	return &DropBlock[B]{
		rate:      rate,
		blockSize: bs,
		format:    format,
		training:  true,
		backend:   backend,
	}
}

// Train switches the layer between training and inference behavior.
func (d *DropBlock[B]) Train(training bool) {
	d.training = training
}

// Seed makes the layer sample from a deterministic source.
func (d *DropBlock[B]) Seed(seed uint64) {
	d.src = exprand.NewSource(seed)
}

// Forward applies block-structured dropout.
//
// Algorithm:
//  1. Split the shape into spatial extents and channel count per the
//     configured data format.
//  2. Resolve the block size per spatial dimension and clamp each entry to
//     [1, extent].
//  3. Sample Bernoulli seed points at the "inner area" resolution
//     (extent - block + 1 per dim: positions where a block fits) with
//     probability gamma chosen so the expected dropped fraction matches
//     rate.
//  4. Zero-pad the seeds back to full resolution and dilate each seed into
//     a full block with a stride-1 sliding maximum per spatial axis.
//  5. Invert the mask, multiply, and rescale by total/kept so the expected
//     activation magnitude is preserved.
//
// The rescale divides by the kept-element count with no epsilon guard: a
// mask that drops everything divides by zero, as in the reference
// implementation.
func (d *DropBlock[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.rate == 0 {
		return input
	}

	shape := input.Shape()
	if len(shape) < 3 {
		panic(fmt.Sprintf("dropblock: input must have batch, channel and spatial dimensions, got shape %v", shape))
	}

	var spatial []int
	var channels int
	if d.format == ChannelsFirst {
		channels = shape[1]
		spatial = shape[2:]
	} else {
		channels = shape[len(shape)-1]
		spatial = shape[1 : len(shape)-1]
	}

	blocks, err := resolveBlockSize(d.blockSize, spatial)
	if err != nil {
		panic(fmt.Sprintf("dropblock: %v", err))
	}

	// Inner area: positions where a block's origin fits inside the map.
	inner := make([]int, len(spatial))
	spatialSize, blockSizeProd, innerProd := 1.0, 1.0, 1.0
	for i, extent := range spatial {
		inner[i] = extent - blocks[i] + 1
		spatialSize *= float64(extent)
		blockSizeProd *= float64(blocks[i])
		innerProd *= float64(inner[i])
	}

	// Seed probability that makes the expected dropped-element count equal
	// rate * spatialSize, correcting for block area and boundary effects.
	gamma := d.rate * spatialSize / blockSizeProd / innerProd

	// One mask per feature map, shared across the batch.
	maskShape := make(tensor.Shape, 0, len(shape))
	maskShape = append(maskShape, 1)
	if d.format == ChannelsFirst {
		maskShape = append(maskShape, channels)
		maskShape = append(maskShape, inner...)
	} else {
		maskShape = append(maskShape, inner...)
		maskShape = append(maskShape, channels)
	}
	seeds := tensor.Bernoulli[float32](maskShape, gamma, d.src, d.backend)

	// Pad the seed mask back to full spatial resolution.
	rank := len(shape)
	before := make([]int, rank)
	after := make([]int, rank)
	for i := range spatial {
		axis := d.spatialAxis(i)
		left := (blocks[i] - 1) / 2
		before[axis] = left
		after[axis] = blocks[i] - 1 - left
	}
	padded, err := tensor.Pad(seeds.Raw(), before, after, 0)
	if err != nil {
		panic(fmt.Sprintf("dropblock: %v", err))
	}

	// Dilate seeds into blocks: per-axis sliding max is separable, so
	// applying it once per spatial axis grows each seed to the full block.
	// Same-padding keeps the spatial extents unchanged.
	mask := padded
	for i := range spatial {
		axis := d.spatialAxis(i)
		if blocks[i] == 1 {
			continue
		}
		left := (blocks[i] - 1) / 2
		right := blocks[i] - 1 - left
		b := make([]int, rank)
		a := make([]int, rank)
		b[axis], a[axis] = left, right
		mask, err = tensor.Pad(mask, b, a, 0)
		if err != nil {
			panic(fmt.Sprintf("dropblock: %v", err))
		}
		mask, err = tensor.SlidingMax(mask, axis, blocks[i])
		if err != nil {
			panic(fmt.Sprintf("dropblock: %v", err))
		}
	}

	// Kept region = 1 where no block landed.
	dilated := tensor.New[float32, B](mask, d.backend)
	keep := tensor.Ones[float32](dilated.Shape(), d.backend).Sub(dilated)

	output := input.Mul(keep)

	total := float32(keep.NumElements())
	kept := keep.Sum().Item()
	return output.MulScalar(total / kept)
}

// spatialAxis maps a spatial dimension index to its axis in the full tensor.
func (d *DropBlock[B]) spatialAxis(i int) int {
	if d.format == ChannelsFirst {
		return 2 + i
	}
	return 1 + i
}

// resolveBlockSize broadcasts or validates the configured block size
// against the spatial extents and clamps each entry to [1, extent].
func resolveBlockSize(blockSize, spatial []int) ([]int, error) {
	resolved := make([]int, len(spatial))
	switch len(blockSize) {
	case 1:
		for i := range resolved {
			resolved[i] = blockSize[0]
		}
	case len(spatial):
		copy(resolved, blockSize)
	default:
		return nil, fmt.Errorf("block size has %d entries, input has %d spatial dimensions",
			len(blockSize), len(spatial))
	}
	for i, extent := range spatial {
		if resolved[i] > extent {
			resolved[i] = extent
		}
		if resolved[i] < 1 {
			resolved[i] = 1
		}
	}
	return resolved, nil
}

// Parameters returns an empty slice (DropBlock has no trainable parameters).
func (d *DropBlock[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a string representation of the layer.
func (d *DropBlock[B]) String() string {
	return fmt.Sprintf("DropBlock(rate=%g, block_size=%v, data_format=%s)", d.rate, d.blockSize, d.format)
}
