package layout

import (
	"fmt"
)

// DefaultDownsample is the stride factor applied by a downsampling block.
const DefaultDownsample = 2

// DefaultBottleneck is the channel expansion of a bottleneck block.
const DefaultBottleneck = 4

// BlockSpec describes a residual block before compilation. Per-conv
// lists (Filters, KernelSize, Strides, Groups) may hold a single value,
// which is broadcast to every convolution in the layout.
type BlockSpec struct {
	// Layout is the body layout, e.g. "cnacna". The side branch and
	// merge are added by Compile.
	Layout string

	Filters    []FilterSpec
	KernelSize []int
	Strides    []int
	Groups     []int

	// Downsample is the extra stride factor of the block's first
	// repetition, or 0 for none.
	Downsample int

	// Bottleneck wraps the body in 1x1 convolutions and multiplies
	// the final channel count by this expansion, or 0 for none.
	Bottleneck int

	// Merge selects how the side branch rejoins the trunk.
	Merge MergeOp

	// NReps is the number of chained repetitions, at least 1.
	NReps int

	// ConvBias enables bias terms on the block's convolutions.
	ConvBias bool

	// DropoutRate and DropBlockSize configure 'd' tags in the layout.
	DropoutRate   float64
	DropBlockSize []int
}

// Plan is one fully resolved repetition of a residual block. Its layout
// is the body wrapped in a branch marker and a merge, and every per-conv
// list has exactly one entry per convolution.
type Plan struct {
	Layout     Layout
	InChannels int
	Filters    []int
	KernelSize []int
	Strides    []int
	Groups     []int

	// SideFilters and SideStride configure the 1x1 side-branch
	// convolution.
	SideFilters int
	SideStride  int

	ConvBias      bool
	DropoutRate   float64
	DropBlockSize []int
}

// OutChannels reports the channel count the plan's trunk produces.
func (p *Plan) OutChannels() int {
	return p.SideFilters
}

// Compile resolves the spec against a known input channel count and
// returns one plan per repetition. The first repetition carries the
// downsampling strides; later ones chain at the block's own output
// width.
func (s *BlockSpec) Compile(inChannels int) ([]Plan, error) {
	if inChannels <= 0 {
		return nil, fmt.Errorf("layout: block needs a positive input channel count, got %d", inChannels)
	}
	nreps := s.NReps
	if nreps == 0 {
		nreps = 1
	}
	if nreps < 1 {
		return nil, fmt.Errorf("layout: n_reps must be at least 1, got %d", s.NReps)
	}

	body, err := Parse(s.Layout)
	if err != nil {
		return nil, err
	}
	numConvs := body.NumConvs()
	if numConvs == 0 {
		return nil, fmt.Errorf("layout: block layout %q has no convolutions", s.Layout)
	}

	filters, err := resolveFilters(s.Filters, numConvs, inChannels)
	if err != nil {
		return nil, err
	}
	kernel, err := broadcastInts("kernel_size", s.KernelSize, numConvs, 3)
	if err != nil {
		return nil, err
	}
	strides, err := broadcastInts("strides", s.Strides, numConvs, 1)
	if err != nil {
		return nil, err
	}
	groups, err := broadcastInts("groups", s.Groups, numConvs, 1)
	if err != nil {
		return nil, err
	}

	sideStride := 1
	for _, st := range strides {
		sideStride *= st
	}
	stridesDown := append([]int(nil), strides...)
	sideStrideDown := sideStride
	if s.Downsample > 0 {
		stridesDown[0] *= s.Downsample
		sideStrideDown = sideStride * s.Downsample
	}

	if s.Bottleneck > 0 {
		body = append(append(MustParse("cna"), body...), MustParse("cna")...)
		kernel = wrapInts(kernel, 1, 1)
		strides = wrapInts(strides, 1, 1)
		stridesDown = wrapInts(stridesDown, 1, 1)
		groups = wrapInts(groups, 1, 1)
		filters = wrapInts(filters, filters[0], filters[len(filters)-1]*s.Bottleneck)
	}

	wrapped := make(Layout, 0, len(body)+2)
	wrapped = append(wrapped, Op{Kind: KindBranch})
	wrapped = append(wrapped, body...)
	wrapped = append(wrapped, Op{Kind: KindMerge, Merge: s.Merge})

	out := filters[len(filters)-1]
	plans := make([]Plan, nreps)
	for i := range plans {
		p := Plan{
			Layout:        wrapped,
			Filters:       filters,
			KernelSize:    kernel,
			Groups:        groups,
			SideFilters:   out,
			ConvBias:      s.ConvBias,
			DropoutRate:   s.DropoutRate,
			DropBlockSize: s.DropBlockSize,
		}
		if i == 0 {
			p.InChannels = inChannels
			p.Strides = stridesDown
			p.SideStride = sideStrideDown
		} else {
			p.InChannels = out
			p.Strides = strides
			p.SideStride = sideStride
		}
		plans[i] = p
	}
	return plans, nil
}

func resolveFilters(specs []FilterSpec, numConvs, inChannels int) ([]int, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("layout: block has %d convolutions but no filters", numConvs)
	}
	if len(specs) == 1 && numConvs > 1 {
		one := specs[0]
		specs = make([]FilterSpec, numConvs)
		for i := range specs {
			specs[i] = one
		}
	}
	if len(specs) != numConvs {
		return nil, fmt.Errorf("layout: %d filters for %d convolutions", len(specs), numConvs)
	}
	out := make([]int, numConvs)
	for i, f := range specs {
		n, err := f.Resolve(inChannels)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func broadcastInts(name string, vals []int, numConvs, def int) ([]int, error) {
	switch len(vals) {
	case 0:
		vals = []int{def}
		fallthrough
	case 1:
		out := make([]int, numConvs)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	case numConvs:
		return append([]int(nil), vals...), nil
	default:
		return nil, fmt.Errorf("layout: %d %s values for %d convolutions", len(vals), name, numConvs)
	}
}

func wrapInts(vals []int, front, back int) []int {
	out := make([]int, 0, len(vals)+2)
	out = append(out, front)
	out = append(out, vals...)
	out = append(out, back)
	return out
}
