package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockStateTypes(t *testing.T) {
	p := BlockStateProvider[string](testIDs(5000)) // 13 bit global ids
	assert.Equal(t, 4096, p.Size())
	assert.Equal(t, 13, p.GlobalBits())

	for bits, want := range map[int]PaletteType{
		0:  Static(Singular, 0),
		1:  Dynamic(4, 1),
		2:  Dynamic(4, 2),
		4:  Dynamic(4, 4),
		5:  Dynamic(5, 5),
		8:  Dynamic(8, 8),
		9:  Dynamic(13, 9),
		13: Dynamic(13, 13),
	} {
		assert.Equal(t, want, p.CreateType(bits), "bits=%d", bits)
	}

	assert.Equal(t, Dynamic(4, 2), p.CreateTypeFromSize(3))
	assert.Equal(t, Static(Singular, 0), p.CreateTypeFromSize(1))
	assert.Equal(t, Dynamic(5, 5), p.CreateTypeFromSize(17))

	assert.Equal(t, BiMap, p.paletteKind(4))
	assert.Equal(t, Direct, p.paletteKind(13))
}

func TestBiomeTypes(t *testing.T) {
	p := BiomeProvider[string](testIDs(64))
	assert.Equal(t, 64, p.Size())

	for bits, want := range map[int]PaletteType{
		0: Static(Singular, 0),
		1: Static(BiMap, 1),
		3: Static(BiMap, 3),
		4: Dynamic(6, 4),
		6: Dynamic(6, 6),
	} {
		assert.Equal(t, want, p.CreateType(bits), "bits=%d", bits)
	}
	assert.False(t, p.CreateType(2).ShouldRepack())
	assert.True(t, p.CreateType(4).ShouldRepack())
}

func TestSmallRegistryGoesDirect(t *testing.T) {
	p := BlockStateProvider[string](testIDs(8))
	assert.Equal(t, Dynamic(3, 1), p.CreateType(1))
	assert.Equal(t, Direct, p.paletteKind(3))
}

func TestComputeIndex(t *testing.T) {
	blocks := BlockStateProvider[string](testIDs(2))
	assert.Equal(t, 0, blocks.ComputeIndex(0, 0, 0))
	assert.Equal(t, 1, blocks.ComputeIndex(1, 0, 0))
	assert.Equal(t, 16, blocks.ComputeIndex(0, 0, 1))
	assert.Equal(t, 256, blocks.ComputeIndex(0, 1, 0))
	assert.Equal(t, 4095, blocks.ComputeIndex(15, 15, 15))

	biomes := BiomeProvider[string](testIDs(2))
	assert.Equal(t, 4, biomes.ComputeIndex(0, 0, 1))
	assert.Equal(t, 16, biomes.ComputeIndex(0, 1, 0))
	assert.Equal(t, 63, biomes.ComputeIndex(3, 3, 3))
}
