package chunk

import (
	"io"

	"github.com/Tnze/go-mc/level/biome"
	"github.com/Tnze/go-mc/level/block"
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/dynamitemc/chunkstore/level"
)

// ChunkSection is a 16x16x16 slice of a chunk column.
type ChunkSection struct {
	States *level.PalettedContainer[block.StateID]
	Biomes level.ReadableContainer[biome.Type]

	nonEmptyBlocks int16
}

func NewChunkSection(states *level.PalettedContainer[block.StateID], biomes level.ReadableContainer[biome.Type]) *ChunkSection {
	s := &ChunkSection{States: states, Biomes: biomes}
	s.CalculateCounts()
	return s
}

// EmptySection is a section of the factory's default values.
func EmptySection(f *PalettesFactory) *ChunkSection {
	return &ChunkSection{States: f.BlockStateContainer(), Biomes: f.BiomeContainer()}
}

func (s *ChunkSection) BlockState(x, y, z int) block.StateID {
	return s.States.Get(x, y, z)
}

// SetBlockState replaces a block and returns the previous one.
func (s *ChunkSection) SetBlockState(x, y, z int, v block.StateID) block.StateID {
	old := s.States.Swap(x, y, z, v)
	if !block.IsAir(old) {
		s.nonEmptyBlocks--
	}
	if !block.IsAir(v) {
		s.nonEmptyBlocks++
	}
	return old
}

// Biome takes quarter resolution coordinates.
func (s *ChunkSection) Biome(x, y, z int) biome.Type {
	return s.Biomes.Get(x, y, z)
}

func (s *ChunkSection) NonEmptyBlocks() int16 { return s.nonEmptyBlocks }

func (s *ChunkSection) IsEmpty() bool { return s.nonEmptyBlocks == 0 }

func (s *ChunkSection) CalculateCounts() {
	s.nonEmptyBlocks = 0
	s.States.Count(func(v block.StateID, n int) {
		if !block.IsAir(v) {
			s.nonEmptyBlocks += int16(n)
		}
	})
}

func (s *ChunkSection) Copy() *ChunkSection {
	return &ChunkSection{
		States:         s.States.Copy(),
		Biomes:         s.Biomes.Copy(),
		nonEmptyBlocks: s.nonEmptyBlocks,
	}
}

func (s *ChunkSection) WriteTo(w io.Writer) (int64, error) {
	return pk.Tuple{
		pk.Short(s.nonEmptyBlocks),
		s.States,
		s.Biomes,
	}.WriteTo(w)
}

func (s *ChunkSection) PacketSize() int {
	return 2 + s.States.PacketSize() + s.Biomes.PacketSize()
}
