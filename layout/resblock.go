package layout

import (
	"github.com/blocknet-ml/blocknet/internal/nn"
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// ResBlock is a chain of residual repetitions compiled from one
// BlockSpec. The first repetition may downsample; the rest preserve
// resolution and channel count.
type ResBlock[B tensor.Backend] struct {
	blocks []*ConvBlock[B]
	out    int
}

// NewResBlock compiles the spec and builds every repetition.
func NewResBlock[B tensor.Backend](spec BlockSpec, inChannels int, backend B) (*ResBlock[B], error) {
	plans, err := spec.Compile(inChannels)
	if err != nil {
		return nil, err
	}
	r := &ResBlock[B]{blocks: make([]*ConvBlock[B], 0, len(plans))}
	for _, p := range plans {
		blk, err := NewConvBlockPlan(p, backend)
		if err != nil {
			return nil, err
		}
		r.blocks = append(r.blocks, blk)
		r.out = blk.OutChannels()
	}
	return r, nil
}

// OutChannels reports the channel count the final repetition produces.
func (r *ResBlock[B]) OutChannels() int {
	return r.out
}

// NumReps reports the number of repetitions.
func (r *ResBlock[B]) NumReps() int {
	return len(r.blocks)
}

// Forward runs the input through every repetition in order.
func (r *ResBlock[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x := input
	for _, blk := range r.blocks {
		x = blk.Forward(x)
	}
	return x
}

// Parameters returns the parameters of every repetition.
func (r *ResBlock[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, blk := range r.blocks {
		params = append(params, blk.Parameters()...)
	}
	return params
}

// Train switches every repetition between training and inference.
func (r *ResBlock[B]) Train(training bool) {
	for _, blk := range r.blocks {
		blk.Train(training)
	}
}
