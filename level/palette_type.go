package level

import "fmt"

// PaletteType decides which palette a container uses and how wide its
// indices are in memory and in the stored tag form.
//
// A dynamic type may store fewer bits than it keeps in memory and is
// repacked on load. A static type stores exactly what it keeps in memory.
type PaletteType struct {
	static      bool
	kind        PaletteKind
	memoryBits  int
	storageBits int
}

func Static(kind PaletteKind, bits int) PaletteType {
	return PaletteType{static: true, kind: kind, memoryBits: bits, storageBits: bits}
}

func Dynamic(memoryBits, storageBits int) PaletteType {
	return PaletteType{memoryBits: memoryBits, storageBits: storageBits}
}

func (t PaletteType) ShouldRepack() bool { return !t.static }
func (t PaletteType) BitsInMemory() int  { return t.memoryBits }
func (t PaletteType) BitsInStorage() int { return t.storageBits }

func (t PaletteType) String() string {
	if t.static {
		return fmt.Sprintf("Static(%v, %d)", t.kind, t.memoryBits)
	}
	return fmt.Sprintf("Dynamic(%d, %d)", t.memoryBits, t.storageBits)
}

// CreatePalette builds the palette for t, seeded with values where the
// palette keeps a local table.
func CreatePalette[T comparable](t PaletteType, p *PaletteProvider[T], values []T) *Palette[T] {
	kind := t.kind
	if !t.static {
		kind = p.paletteKind(t.memoryBits)
	}
	switch kind {
	case Singular:
		return NewSingularPalette(p.ids, values)
	case BiMap:
		return NewBiMapPalette(p.ids, t.memoryBits, values)
	default:
		return NewDirectPalette(p.ids)
	}
}

func (t PaletteType) createStorage(length int) PaletteStorage {
	if t.memoryBits == 0 {
		return NewEmptyStorage(length)
	}
	return MustBitStorage(t.memoryBits, length, nil)
}
