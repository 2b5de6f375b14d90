// Package resnet builds ResNet and ResNeXt networks from layered
// configuration. A base configuration describes the common skeleton
// (initial block, four residual stages, classification head); each
// named architecture is an ordered list of patches on top of it.
package resnet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blocknet-ml/blocknet/config"
)

// BaseConfig returns the skeleton every named architecture patches:
// a 7x7 stride-2 stem with 3x3/2 max pooling, four stages of plain
// "cnacna" residual blocks at 64/128/256/512 filters with downsampling
// from the second stage on, and a pool-dropout-dense head.
func BaseConfig() *config.Config {
	c := config.New()
	c.MustSet("inputs/channels", 3)

	c.MustSet("initial_block/layout", "cnap")
	c.MustSet("initial_block/filters", 64)
	c.MustSet("initial_block/kernel_size", 7)
	c.MustSet("initial_block/strides", 2)
	c.MustSet("initial_block/pool_size", 3)
	c.MustSet("initial_block/pool_strides", 2)
	c.MustSet("initial_block/pool_padding", 1)

	c.MustSet("body/num_blocks", []int{1, 1, 1, 1})
	c.MustSet("body/filters", []int{64, 128, 256, 512})
	c.MustSet("body/downsample", []bool{false, true, true, true})
	c.MustSet("body/block/layout", "cnacna")
	c.MustSet("body/block/kernel_size", 3)
	c.MustSet("body/block/groups", 1)
	c.MustSet("body/block/bottleneck", false)
	c.MustSet("body/block/bottleneck_factor", 4)

	c.MustSet("head/layout", "Vdf")
	c.MustSet("head/dropout_rate", 0.4)

	c.MustSet("common/conv_bias", false)
	return c
}

var (
	patch18 = config.NewPatch().
		Set("body/num_blocks", []int{2, 2, 2, 2})

	patch34 = config.NewPatch().
		Set("body/num_blocks", []int{3, 4, 6, 3})

	patchBottleneck = config.NewPatch().
			Set("body/block/layout", "cna").
			Set("body/block/bottleneck", true)

	patch101 = config.NewPatch().
			Set("body/num_blocks", []int{3, 4, 23, 3})

	patch152 = config.NewPatch().
			Set("body/num_blocks", []int{3, 8, 36, 3})

	patchGroups32 = config.NewPatch().
			Set("body/block/groups", 32)
)

// architectures maps a name to the ordered patches that produce it.
var architectures = map[string][]*config.Patch{
	"resnet18":   {patch18},
	"resnet34":   {patch34},
	"resnet50":   {patch34, patchBottleneck},
	"resnet101":  {patch34, patchBottleneck, patch101},
	"resnet152":  {patch34, patchBottleneck, patch152},
	"resnext18":  {patch18, patchGroups32},
	"resnext34":  {patch34, patchGroups32},
	"resnext50":  {patch34, patchBottleneck, patchGroups32},
	"resnext101": {patch34, patchBottleneck, patch101, patchGroups32},
	"resnext152": {patch34, patchBottleneck, patch152, patchGroups32},
}

// Architectures lists the registered architecture names, sorted.
func Architectures() []string {
	names := make([]string, 0, len(architectures))
	for name := range architectures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultConfig returns the configuration of a named architecture.
// Names are case-insensitive.
func DefaultConfig(name string) (*config.Config, error) {
	patches, ok := architectures[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("resnet: unknown architecture %q (have %s)",
			name, strings.Join(Architectures(), ", "))
	}
	return config.Apply(BaseConfig(), patches...)
}
