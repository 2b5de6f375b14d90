package resnet

import (
	"fmt"

	"github.com/blocknet-ml/blocknet/config"
	"github.com/blocknet-ml/blocknet/internal/nn"
	"github.com/blocknet-ml/blocknet/internal/tensor"
	"github.com/blocknet-ml/blocknet/layout"
)

// Network is a built ResNet-style classifier: an initial block, a chain
// of residual stages, and a head producing class logits.
type Network[B tensor.Backend] struct {
	name    string
	cfg     *config.Config
	initial *layout.ConvBlock[B]
	stages  []*layout.ResBlock[B]
	head    *layout.ConvBlock[B]
	classes int
}

// New builds a named architecture for the given class count.
func New[B tensor.Backend](name string, classes int, backend B) (*Network[B], error) {
	cfg, err := DefaultConfig(name)
	if err != nil {
		return nil, err
	}
	net, err := FromConfig(cfg, classes, backend)
	if err != nil {
		return nil, fmt.Errorf("resnet: building %s: %w", name, err)
	}
	net.name = name
	return net, nil
}

// FromConfig builds a network from an explicit configuration. The head
// dense width defaults to the class count when head/units is absent.
func FromConfig[B tensor.Backend](cfg *config.Config, classes int, backend B) (*Network[B], error) {
	if classes <= 0 {
		return nil, fmt.Errorf("resnet: class count must be positive, got %d", classes)
	}
	convBias := cfg.BoolOr("common/conv_bias", false)

	initial, err := buildInitialBlock(cfg, convBias, backend)
	if err != nil {
		return nil, err
	}

	stages, outCh, err := buildBody(cfg, initial.OutChannels(), convBias, backend)
	if err != nil {
		return nil, err
	}

	head, err := buildHead(cfg, outCh, classes, backend)
	if err != nil {
		return nil, err
	}

	return &Network[B]{
		cfg:     cfg.Clone(),
		initial: initial,
		stages:  stages,
		head:    head,
		classes: classes,
	}, nil
}

func buildInitialBlock[B tensor.Backend](cfg *config.Config, convBias bool, backend B) (*layout.ConvBlock[B], error) {
	l, err := layout.Parse(cfg.StringOr("initial_block/layout", "cnap"))
	if err != nil {
		return nil, err
	}
	inCh := cfg.IntOr("inputs/channels", 3)
	blk, err := layout.NewConvBlock(l, inCh, layout.Options{
		Filters:     []int{cfg.IntOr("initial_block/filters", 64)},
		KernelSize:  []int{cfg.IntOr("initial_block/kernel_size", 7)},
		Strides:     []int{cfg.IntOr("initial_block/strides", 2)},
		ConvBias:    convBias,
		PoolSize:    cfg.IntOr("initial_block/pool_size", 3),
		PoolStride:  cfg.IntOr("initial_block/pool_strides", 2),
		PoolPadding: cfg.IntOr("initial_block/pool_padding", 1),
	}, backend)
	if err != nil {
		return nil, fmt.Errorf("resnet: initial block: %w", err)
	}
	return blk, nil
}

func buildBody[B tensor.Backend](cfg *config.Config, inCh int, convBias bool, backend B) ([]*layout.ResBlock[B], int, error) {
	numBlocks, err := cfg.Ints("body/num_blocks")
	if err != nil {
		return nil, 0, err
	}
	filters, err := cfg.Ints("body/filters")
	if err != nil {
		return nil, 0, err
	}
	downsample, err := cfg.Bools("body/downsample")
	if err != nil {
		return nil, 0, err
	}
	nStages := len(numBlocks)
	if filters, err = broadcastToStages("body/filters", filters, nStages); err != nil {
		return nil, 0, err
	}
	if downsample, err = broadcastBools("body/downsample", downsample, nStages); err != nil {
		return nil, 0, err
	}

	bottleneck := 0
	if cfg.BoolOr("body/block/bottleneck", false) {
		bottleneck = cfg.IntOr("body/block/bottleneck_factor", layout.DefaultBottleneck)
	}
	var kernel, groups []int
	if cfg.Has("body/block/kernel_size") {
		if kernel, err = cfg.Ints("body/block/kernel_size"); err != nil {
			return nil, 0, err
		}
	}
	if cfg.Has("body/block/groups") {
		if groups, err = cfg.Ints("body/block/groups"); err != nil {
			return nil, 0, err
		}
	}

	spec := layout.BlockSpec{
		Layout:      cfg.StringOr("body/block/layout", "cnacna"),
		KernelSize:  kernel,
		Groups:      groups,
		Bottleneck:  bottleneck,
		ConvBias:    convBias,
		DropoutRate: cfg.FloatOr("body/block/dropout_rate", 0),
	}
	if cfg.Has("body/block/dropblock_size") {
		if spec.DropBlockSize, err = cfg.Ints("body/block/dropblock_size"); err != nil {
			return nil, 0, err
		}
	}

	stages := make([]*layout.ResBlock[B], 0, nStages)
	ch := inCh
	for i := 0; i < nStages; i++ {
		s := spec
		s.Filters = layout.Literals(filters[i])
		s.NReps = numBlocks[i]
		if downsample[i] {
			s.Downsample = cfg.IntOr("body/downsample_factor", layout.DefaultDownsample)
		}
		blk, err := layout.NewResBlock(s, ch, backend)
		if err != nil {
			return nil, 0, fmt.Errorf("resnet: stage %d: %w", i, err)
		}
		stages = append(stages, blk)
		ch = blk.OutChannels()
	}
	return stages, ch, nil
}

func buildHead[B tensor.Backend](cfg *config.Config, inCh, classes int, backend B) (*layout.ConvBlock[B], error) {
	l, err := layout.Parse(cfg.StringOr("head/layout", "Vdf"))
	if err != nil {
		return nil, err
	}
	opts := layout.Options{
		DropoutRate: cfg.FloatOr("head/dropout_rate", 0),
		Units:       cfg.IntOr("head/units", classes),
	}
	blk, err := layout.NewConvBlock(l, inCh, opts, backend)
	if err != nil {
		return nil, fmt.Errorf("resnet: head: %w", err)
	}
	return blk, nil
}

func broadcastToStages(key string, vals []int, n int) ([]int, error) {
	if len(vals) == 1 && n > 1 {
		out := make([]int, n)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	}
	if len(vals) != n {
		return nil, fmt.Errorf("resnet: %s has %d entries for %d stages", key, len(vals), n)
	}
	return vals, nil
}

func broadcastBools(key string, vals []bool, n int) ([]bool, error) {
	if len(vals) == 1 && n > 1 {
		out := make([]bool, n)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	}
	if len(vals) != n {
		return nil, fmt.Errorf("resnet: %s has %d entries for %d stages", key, len(vals), n)
	}
	return vals, nil
}

// Name returns the architecture name, or "" for custom configurations.
func (n *Network[B]) Name() string {
	return n.name
}

// NumClasses returns the logit width of the head.
func (n *Network[B]) NumClasses() int {
	return n.classes
}

// Config returns a copy of the configuration the network was built from.
func (n *Network[B]) Config() *config.Config {
	return n.cfg.Clone()
}

// NumStages returns the number of residual stages in the body.
func (n *Network[B]) NumStages() int {
	return len(n.stages)
}

// Forward runs an input batch through the whole network and returns the
// class logits.
func (n *Network[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x := n.initial.Forward(input)
	for _, stage := range n.stages {
		x = stage.Forward(x)
	}
	return n.head.Forward(x)
}

// Parameters returns every trainable parameter of the network.
func (n *Network[B]) Parameters() []*nn.Parameter[B] {
	params := n.initial.Parameters()
	for _, stage := range n.stages {
		params = append(params, stage.Parameters()...)
	}
	return append(params, n.head.Parameters()...)
}

// Train switches the whole network between training and inference.
func (n *Network[B]) Train(training bool) {
	n.initial.Train(training)
	for _, stage := range n.stages {
		stage.Train(training)
	}
	n.head.Train(training)
}
