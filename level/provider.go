package level

// PaletteProvider describes one kind of paletted content: how many voxels a
// container holds, how they are indexed and which PaletteType serves a
// given index width.
type PaletteProvider[T comparable] struct {
	ids        IndexedIterable[T]
	edgeBits   int
	globalBits int
	biomes     bool
}

// BlockStateProvider serves 16x16x16 block state containers. Widths up to 4
// share a 4 bit table, up to 8 bits get an exact table and anything wider
// falls back to global ids.
func BlockStateProvider[T comparable](ids IndexedIterable[T]) *PaletteProvider[T] {
	return &PaletteProvider[T]{ids: ids, edgeBits: 4, globalBits: ceilLog2(ids.Size())}
}

// BiomeProvider serves 4x4x4 biome containers. Widths up to 3 use a static
// table, anything wider falls back to global ids.
func BiomeProvider[T comparable](ids IndexedIterable[T]) *PaletteProvider[T] {
	return &PaletteProvider[T]{ids: ids, edgeBits: 2, globalBits: ceilLog2(ids.Size()), biomes: true}
}

// Size is the number of voxels in a container.
func (p *PaletteProvider[T]) Size() int { return 1 << (p.edgeBits * 3) }

func (p *PaletteProvider[T]) IDList() IndexedIterable[T] { return p.ids }

// GlobalBits is the width of a raw registry id.
func (p *PaletteProvider[T]) GlobalBits() int { return p.globalBits }

// ComputeIndex maps local voxel coordinates to a storage index, x varying
// fastest.
func (p *PaletteProvider[T]) ComputeIndex(x, y, z int) int {
	return (y<<p.edgeBits|z)<<p.edgeBits | x
}

func (p *PaletteProvider[T]) CreateType(bits int) PaletteType {
	if bits == 0 {
		return Static(Singular, 0)
	}
	if p.biomes {
		if bits <= 3 && bits < p.globalBits {
			return Static(BiMap, bits)
		}
		return Dynamic(p.globalBits, bits)
	}
	mem := max(bits, 4)
	if mem > 8 || mem >= p.globalBits {
		return Dynamic(p.globalBits, bits)
	}
	return Dynamic(mem, bits)
}

// CreateTypeFromSize picks the type for a palette of n distinct values.
func (p *PaletteProvider[T]) CreateTypeFromSize(n int) PaletteType {
	return p.CreateType(ceilLog2(n))
}

func (p *PaletteProvider[T]) paletteKind(memoryBits int) PaletteKind {
	switch {
	case memoryBits == 0:
		return Singular
	case memoryBits >= p.globalBits:
		return Direct
	default:
		return BiMap
	}
}
