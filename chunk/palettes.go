package chunk

import (
	"github.com/Tnze/go-mc/level/biome"
	"github.com/Tnze/go-mc/level/block"

	"github.com/dynamitemc/chunkstore/level"
)

// PalettesFactory creates the block state and biome containers of sections
// and the codecs that store them.
type PalettesFactory struct {
	BlockStates  *level.PaletteProvider[block.StateID]
	Biomes       *level.PaletteProvider[biome.Type]
	DefaultBlock block.StateID
	DefaultBiome biome.Type

	BlockStatesCodec level.ContainerCodec[block.StateID]
	BiomesCodec      level.ContainerCodec[biome.Type]
}

// NewPalettesFactory uses go-mc's block state and biome tables. Sections
// default to air and the given biome.
func NewPalettesFactory(defaultBiome biome.Type) *PalettesFactory {
	f := &PalettesFactory{
		BlockStates:  level.BlockStateProvider[block.StateID](level.BlockStates{}),
		Biomes:       level.BiomeProvider[biome.Type](level.Biomes{}),
		DefaultBlock: airState,
		DefaultBiome: defaultBiome,
	}
	f.BlockStatesCodec = level.ContainerCodec[block.StateID]{
		Entry:    level.BlockStateCodec{},
		Provider: f.BlockStates,
		Default:  f.DefaultBlock,
	}
	f.BiomesCodec = level.ContainerCodec[biome.Type]{
		Entry:    level.BiomeCodec{},
		Provider: f.Biomes,
		Default:  f.DefaultBiome,
	}
	return f
}

// ParseBiome reads a biome id, falling back to plains and then to the
// first biome of the table.
func ParseBiome(id string) biome.Type {
	var b biome.Type
	if b.UnmarshalText([]byte(namespaced(id))) == nil {
		return b
	}
	if b.UnmarshalText([]byte("minecraft:plains")) == nil {
		return b
	}
	return 0
}

func (f *PalettesFactory) BlockStateContainer() *level.PalettedContainer[block.StateID] {
	return level.NewPalettedContainer(f.DefaultBlock, f.BlockStates)
}

func (f *PalettesFactory) BiomeContainer() *level.PalettedContainer[biome.Type] {
	return level.NewPalettedContainer(f.DefaultBiome, f.Biomes)
}
