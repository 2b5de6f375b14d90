package resnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocknet-ml/blocknet/internal/backend/cpu"
	"github.com/blocknet-ml/blocknet/internal/tensor"
)

func TestArchitectures(t *testing.T) {
	names := Architectures()
	assert.Contains(t, names, "resnet18")
	assert.Contains(t, names, "resnet152")
	assert.Contains(t, names, "resnext50")
	assert.True(t, sortedStrings(names))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

func TestDefaultConfig_DepthTable(t *testing.T) {
	cases := []struct {
		name       string
		numBlocks  []int
		layout     string
		bottleneck bool
		groups     int
	}{
		{"resnet18", []int{2, 2, 2, 2}, "cnacna", false, 1},
		{"resnet34", []int{3, 4, 6, 3}, "cnacna", false, 1},
		{"resnet50", []int{3, 4, 6, 3}, "cna", true, 1},
		{"resnet101", []int{3, 4, 23, 3}, "cna", true, 1},
		{"resnet152", []int{3, 8, 36, 3}, "cna", true, 1},
		{"resnext18", []int{2, 2, 2, 2}, "cnacna", false, 32},
		{"resnext50", []int{3, 4, 6, 3}, "cna", true, 32},
		{"resnext101", []int{3, 4, 23, 3}, "cna", true, 32},
	}
	for _, c := range cases {
		cfg, err := DefaultConfig(c.name)
		require.NoError(t, err, c.name)

		nb, err := cfg.Ints("body/num_blocks")
		require.NoError(t, err)
		assert.Equal(t, c.numBlocks, nb, c.name)
		assert.Equal(t, c.layout, cfg.StringOr("body/block/layout", ""), c.name)
		assert.Equal(t, c.bottleneck, cfg.BoolOr("body/block/bottleneck", false), c.name)
		assert.Equal(t, c.groups, cfg.IntOr("body/block/groups", 0), c.name)
	}
}

func TestDefaultConfig_CaseInsensitive(t *testing.T) {
	cfg, err := DefaultConfig("ResNet50")
	require.NoError(t, err)
	assert.True(t, cfg.BoolOr("body/block/bottleneck", false))
}

func TestDefaultConfig_Unknown(t *testing.T) {
	_, err := DefaultConfig("resnet19")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown architecture")
}

func TestResNeXtDiffersOnlyInGroups(t *testing.T) {
	plain, err := DefaultConfig("resnet50")
	require.NoError(t, err)
	grouped, err := DefaultConfig("resnext50")
	require.NoError(t, err)

	assert.Equal(t, 1, plain.IntOr("body/block/groups", 0))
	assert.Equal(t, 32, grouped.IntOr("body/block/groups", 0))

	grouped.MustSet("body/block/groups", 1)
	assert.Equal(t, plain.Map(), grouped.Map())
}

func TestDefaultConfig_BaseUnchanged(t *testing.T) {
	_, err := DefaultConfig("resnet50")
	require.NoError(t, err)
	base := BaseConfig()
	nb, err := base.Ints("body/num_blocks")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 1}, nb)
	assert.False(t, base.BoolOr("body/block/bottleneck", true))
	assert.Equal(t, "cnacna", base.StringOr("body/block/layout", ""))
}

func TestFromConfig_MalformedKeysFail(t *testing.T) {
	backend := cpu.New()

	cfg := BaseConfig()
	cfg.MustSet("body/block/kernel_size", "three")
	_, err := FromConfig(cfg, 10, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kernel_size")

	cfg = BaseConfig()
	cfg.MustSet("body/block/groups", "many")
	_, err = FromConfig(cfg, 10, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "groups")

	cfg = BaseConfig()
	cfg.MustSet("body/block/dropblock_size", "big")
	_, err = FromConfig(cfg, 10, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dropblock_size")
}

func TestFromConfig_SmallNetworkForward(t *testing.T) {
	backend := cpu.New()
	cfg := BaseConfig()
	cfg.MustSet("initial_block/filters", 8)
	cfg.MustSet("body/num_blocks", []int{1, 1})
	cfg.MustSet("body/filters", []int{8, 16})
	cfg.MustSet("body/downsample", []bool{false, true})

	net, err := FromConfig(cfg, 10, backend)
	require.NoError(t, err)
	assert.Equal(t, 2, net.NumStages())
	assert.Equal(t, 10, net.NumClasses())

	net.Train(false)
	x := tensor.Rand[float32](tensor.Shape{2, 3, 32, 32}, backend)
	y := net.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{2, 10}), "got %v", y.Shape())
}

func TestFromConfig_BottleneckNetworkForward(t *testing.T) {
	backend := cpu.New()
	cfg := BaseConfig()
	cfg.MustSet("initial_block/filters", 8)
	cfg.MustSet("body/num_blocks", []int{1, 1})
	cfg.MustSet("body/filters", []int{4, 8})
	cfg.MustSet("body/downsample", []bool{false, true})
	cfg.MustSet("body/block/layout", "cna")
	cfg.MustSet("body/block/bottleneck", true)

	net, err := FromConfig(cfg, 5, backend)
	require.NoError(t, err)

	net.Train(false)
	x := tensor.Rand[float32](tensor.Shape{1, 3, 32, 32}, backend)
	y := net.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{1, 5}), "got %v", y.Shape())
}

func TestFromConfig_HeadUnitsOverride(t *testing.T) {
	backend := cpu.New()
	cfg := BaseConfig()
	cfg.MustSet("initial_block/filters", 8)
	cfg.MustSet("body/num_blocks", []int{1})
	cfg.MustSet("body/filters", []int{8})
	cfg.MustSet("body/downsample", []bool{false})
	cfg.MustSet("head/units", 17)

	net, err := FromConfig(cfg, 10, backend)
	require.NoError(t, err)

	net.Train(false)
	x := tensor.Rand[float32](tensor.Shape{1, 3, 16, 16}, backend)
	y := net.Forward(x)
	assert.True(t, y.Shape().Equal(tensor.Shape{1, 17}), "got %v", y.Shape())
}

func TestFromConfig_Errors(t *testing.T) {
	backend := cpu.New()

	_, err := FromConfig(BaseConfig(), 0, backend)
	require.Error(t, err)

	cfg := BaseConfig()
	cfg.MustSet("body/filters", []int{64, 128})
	_, err = FromConfig(cfg, 10, backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stages")
}

func TestNew_SetsName(t *testing.T) {
	backend := cpu.New()
	net, err := New("resnet18", 10, backend)
	require.NoError(t, err)
	assert.Equal(t, "resnet18", net.Name())
	assert.Equal(t, 4, net.NumStages())
	assert.NotEmpty(t, net.Parameters())
}

func TestNew_Unknown(t *testing.T) {
	backend := cpu.New()
	_, err := New("vgg16", 10, backend)
	require.Error(t, err)
}
