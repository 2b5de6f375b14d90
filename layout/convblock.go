package layout

import (
	"fmt"

	"github.com/blocknet-ml/blocknet/internal/nn"
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

// Options configures how NewConvBlock turns layout tags into modules.
// Per-conv lists may hold a single value, broadcast to every convolution.
type Options struct {
	Filters    []int
	KernelSize []int
	Strides    []int
	Groups     []int
	ConvBias   bool

	// Pooling parameters for 'p' tags.
	PoolSize    int
	PoolStride  int
	PoolPadding int

	// DropoutRate is used by 'd' tags. When DropBlockSize is set the
	// tag builds a DropBlock layer instead of element-wise dropout.
	DropoutRate   float64
	DropBlockSize []int

	// Units is the output width of 'f' tags.
	Units int

	// SideFilters > 0 builds a 1x1 convolution on the side branch;
	// otherwise the branch is an identity shortcut.
	SideFilters int
	SideStride  int

	// Batch normalization parameters, defaulting to 1e-5 and 0.1.
	BNEpsilon  float32
	BNMomentum float32
}

type stepKind int

const (
	stepModule stepKind = iota
	stepBranch
	stepMerge
)

type step[B tensor.Backend] struct {
	kind  stepKind
	mod   nn.Module[B]
	merge MergeOp
}

// ConvBlock is a layout interpreted into a module chain, with optional
// branch capture and merge. It implements nn.Module.
type ConvBlock[B tensor.Backend] struct {
	layout  Layout
	steps   []step[B]
	side    nn.Module[B]
	out     int
	backend B
}

// NewConvBlock builds the modules a layout describes, starting from the
// given input channel count.
func NewConvBlock[B tensor.Backend](l Layout, inChannels int, opts Options, backend B) (*ConvBlock[B], error) {
	if inChannels <= 0 {
		return nil, fmt.Errorf("layout: block needs a positive input channel count, got %d", inChannels)
	}
	numConvs := l.NumConvs()
	var filters, kernel, strides, groups []int
	if numConvs > 0 {
		if len(opts.Filters) == 0 {
			return nil, fmt.Errorf("layout: layout %q has %d convolutions but no filters", l, numConvs)
		}
		var err error
		if filters, err = broadcastInts("filters", opts.Filters, numConvs, 0); err != nil {
			return nil, err
		}
		if kernel, err = broadcastInts("kernel_size", opts.KernelSize, numConvs, 3); err != nil {
			return nil, err
		}
		if strides, err = broadcastInts("strides", opts.Strides, numConvs, 1); err != nil {
			return nil, err
		}
		if groups, err = broadcastInts("groups", opts.Groups, numConvs, 1); err != nil {
			return nil, err
		}
	}
	eps := opts.BNEpsilon
	if eps == 0 {
		eps = 1e-5
	}
	momentum := opts.BNMomentum
	if momentum == 0 {
		momentum = 0.1
	}

	b := &ConvBlock[B]{layout: l, backend: backend}
	ch := inChannels
	branchCh := 0
	convIdx := 0
	seenBranch := false
	merged := false
	flat := false

	for _, op := range l {
		switch op.Kind {
		case KindConv:
			if op.Conv != ConvStandard {
				return nil, fmt.Errorf("layout: convolution variant %q is not supported", string(convToTag[op.Conv]))
			}
			if flat {
				return nil, fmt.Errorf("layout: convolution after global pooling in %q", l)
			}
			k := kernel[convIdx]
			conv := nn.NewConv2D(ch, filters[convIdx], k, k, strides[convIdx], k/2, groups[convIdx], opts.ConvBias, backend)
			b.steps = append(b.steps, step[B]{kind: stepModule, mod: conv})
			ch = filters[convIdx]
			convIdx++
		case KindNorm:
			b.steps = append(b.steps, step[B]{kind: stepModule, mod: nn.NewBatchNorm2D(ch, eps, momentum, backend)})
		case KindActivation:
			b.steps = append(b.steps, step[B]{kind: stepModule, mod: nn.NewReLU[B]()})
		case KindPool:
			size, stride, pad := opts.PoolSize, opts.PoolStride, opts.PoolPadding
			if size == 0 {
				size = 2
			}
			if stride == 0 {
				stride = size
			}
			b.steps = append(b.steps, step[B]{kind: stepModule, mod: nn.NewMaxPool2D(size, stride, pad, backend)})
		case KindDropout:
			var mod nn.Module[B]
			if len(opts.DropBlockSize) > 0 {
				mod = nn.NewDropBlock(opts.DropoutRate, opts.DropBlockSize, nn.ChannelsFirst, backend)
			} else {
				mod = nn.NewDropout(opts.DropoutRate, backend)
			}
			b.steps = append(b.steps, step[B]{kind: stepModule, mod: mod})
		case KindGlobalPool:
			b.steps = append(b.steps, step[B]{kind: stepModule, mod: nn.NewGlobalAvgPool2D[B]()})
			flat = true
		case KindDense:
			if !flat {
				return nil, fmt.Errorf("layout: dense layer needs flattened input, add 'V' before 'f' in %q", l)
			}
			if opts.Units <= 0 {
				return nil, fmt.Errorf("layout: dense layer in %q needs a positive unit count", l)
			}
			b.steps = append(b.steps, step[B]{kind: stepModule, mod: nn.NewLinear(ch, opts.Units, backend)})
			ch = opts.Units
		case KindBranch:
			if seenBranch {
				return nil, fmt.Errorf("layout: more than one branch point in %q", l)
			}
			seenBranch = true
			branchCh = ch
			b.steps = append(b.steps, step[B]{kind: stepBranch})
		case KindMerge:
			if !seenBranch || merged {
				return nil, fmt.Errorf("layout: merge without open branch in %q", l)
			}
			merged = true
			sideCh := branchCh
			if opts.SideFilters > 0 {
				stride := opts.SideStride
				if stride == 0 {
					stride = 1
				}
				b.side = nn.NewConv2D(branchCh, opts.SideFilters, 1, 1, stride, 0, 1, opts.ConvBias, backend)
				sideCh = opts.SideFilters
			}
			switch op.Merge {
			case MergeAdd:
				if sideCh != ch {
					return nil, fmt.Errorf("layout: cannot add branches with %d and %d channels in %q", sideCh, ch, l)
				}
			case MergeConcat:
				ch += sideCh
			}
			b.steps = append(b.steps, step[B]{kind: stepMerge, merge: op.Merge})
		}
	}
	if seenBranch && !merged {
		return nil, fmt.Errorf("layout: branch without merge in %q", l)
	}
	if convIdx != numConvs {
		return nil, fmt.Errorf("layout: built %d of %d convolutions in %q", convIdx, numConvs, l)
	}
	b.out = ch
	return b, nil
}

// NewConvBlockPlan builds the block a compiled plan describes.
func NewConvBlockPlan[B tensor.Backend](p Plan, backend B) (*ConvBlock[B], error) {
	return NewConvBlock(p.Layout, p.InChannels, Options{
		Filters:       p.Filters,
		KernelSize:    p.KernelSize,
		Strides:       p.Strides,
		Groups:        p.Groups,
		ConvBias:      p.ConvBias,
		SideFilters:   p.SideFilters,
		SideStride:    p.SideStride,
		DropoutRate:   p.DropoutRate,
		DropBlockSize: p.DropBlockSize,
	}, backend)
}

// OutChannels reports the channel (or feature) count the block produces.
func (b *ConvBlock[B]) OutChannels() int {
	return b.out
}

// Layout returns the layout the block was built from.
func (b *ConvBlock[B]) Layout() Layout {
	return b.layout
}

// Forward runs the input through the block's module chain, capturing the
// branch input and merging the side branch where the layout says so.
func (b *ConvBlock[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x := input
	var saved *tensor.Tensor[float32, B]
	for _, s := range b.steps {
		switch s.kind {
		case stepModule:
			x = s.mod.Forward(x)
		case stepBranch:
			saved = x
		case stepMerge:
			side := saved
			if b.side != nil {
				side = b.side.Forward(saved)
			}
			if s.merge == MergeConcat {
				x = tensor.Cat([]*tensor.Tensor[float32, B]{x, side}, 1)
			} else {
				x = x.Add(side)
			}
		}
	}
	return x
}

// Parameters returns the trainable parameters of every module in the
// block, side branch included.
func (b *ConvBlock[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, s := range b.steps {
		if s.mod != nil {
			params = append(params, s.mod.Parameters()...)
		}
	}
	if b.side != nil {
		params = append(params, b.side.Parameters()...)
	}
	return params
}

// Train switches every mode-dependent module in the block.
func (b *ConvBlock[B]) Train(training bool) {
	for _, s := range b.steps {
		if t, ok := s.mod.(nn.TrainableModule); ok {
			t.Train(training)
		}
	}
	if t, ok := b.side.(nn.TrainableModule); ok {
		t.Train(training)
	}
}
