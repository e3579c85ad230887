package level

import (
	"math/bits"

	"github.com/Tnze/go-mc/level/biome"
	"github.com/Tnze/go-mc/level/block"
)

// IndexedIterable is a global registry giving every value a dense raw id.
type IndexedIterable[T comparable] interface {
	RawID(v T) (int, bool)
	Get(id int) (T, bool)
	Size() int
}

// IDList is an IndexedIterable over an explicit list of values, ids
// assigned in list order.
type IDList[T comparable] struct {
	values []T
	ids    map[T]int
}

func NewIDList[T comparable](values ...T) *IDList[T] {
	l := &IDList[T]{ids: make(map[T]int, len(values))}
	for _, v := range values {
		l.Add(v)
	}
	return l
}

// Add registers v under the next free id unless it is already known.
func (l *IDList[T]) Add(v T) int {
	if id, ok := l.ids[v]; ok {
		return id
	}
	l.ids[v] = len(l.values)
	l.values = append(l.values, v)
	return len(l.values) - 1
}

func (l *IDList[T]) RawID(v T) (int, bool) {
	id, ok := l.ids[v]
	return id, ok
}

func (l *IDList[T]) Get(id int) (v T, ok bool) {
	if id < 0 || id >= len(l.values) {
		return v, false
	}
	return l.values[id], true
}

func (l *IDList[T]) Size() int { return len(l.values) }

// BlockStates is the global block state table generated into go-mc. A
// state's raw id is the StateID itself.
type BlockStates struct{}

func (BlockStates) RawID(v block.StateID) (int, bool) {
	return int(v), v >= 0 && int(v) < len(block.StateList)
}

func (BlockStates) Get(id int) (block.StateID, bool) {
	return block.StateID(id), id >= 0 && id < len(block.StateList)
}

func (BlockStates) Size() int { return len(block.StateList) }

// Biomes is the global biome table of go-mc, sized by the width the
// protocol reserves for a direct biome id.
type Biomes struct{}

func (Biomes) RawID(v biome.Type) (int, bool) {
	return int(v), v >= 0 && int(v) < 1<<biome.BitsPerBiome
}

func (Biomes) Get(id int) (biome.Type, bool) {
	return biome.Type(id), id >= 0 && id < 1<<biome.BitsPerBiome
}

func (Biomes) Size() int { return 1 << biome.BitsPerBiome }

// ceilLog2 is the number of bits needed to tell n values apart.
func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
