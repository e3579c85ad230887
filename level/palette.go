package level

import (
	"errors"
	"fmt"
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

type PaletteKind uint8

const (
	// Singular holds at most one value.
	Singular PaletteKind = iota
	// BiMap is an insertion ordered table of up to 2^bits values.
	BiMap
	// Direct stores global registry ids and has no local table.
	Direct
)

func (k PaletteKind) String() string {
	switch k {
	case Singular:
		return "singular"
	case BiMap:
		return "bimap"
	case Direct:
		return "direct"
	}
	return fmt.Sprintf("PaletteKind(%d)", uint8(k))
}

// ErrUninitialized is the panic value of operations that need the value of
// a singular palette which has not been given one yet.
var ErrUninitialized = errors.New("use of an uninitialized palette")

// MissingEntryError is the panic value of Get for an index the palette
// never assigned.
type MissingEntryError struct {
	Index int
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("missing palette entry for index %d", e.Index)
}

// ResizeError is returned by TryIndex when the palette is full and needs
// Bits wide indices to take the value.
type ResizeError struct {
	Bits int
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("palette needs %d bit indices", e.Bits)
}

// Palette maps values to small indices. Index assignment is first come,
// first served and indices are never reused.
type Palette[T comparable] struct {
	kind PaletteKind
	bits int
	ids  IndexedIterable[T]

	values []T
	index  map[T]int
}

// NewSingularPalette creates a singular palette. Only the first of values,
// if any, is taken.
func NewSingularPalette[T comparable](ids IndexedIterable[T], values []T) *Palette[T] {
	p := &Palette[T]{kind: Singular, ids: ids}
	if len(values) > 0 {
		p.values = []T{values[0]}
	}
	return p
}

// NewBiMapPalette creates a table of capacity 2^bits seeded with values.
// values[i] keeps index i even when it repeats an earlier value; lookups
// by value find the first occurrence.
func NewBiMapPalette[T comparable](ids IndexedIterable[T], bits int, values []T) *Palette[T] {
	p := &Palette[T]{
		kind:   BiMap,
		bits:   bits,
		ids:    ids,
		values: make([]T, 0, len(values)),
		index:  make(map[T]int, len(values)),
	}
	for _, v := range values {
		p.add(v)
	}
	return p
}

func NewDirectPalette[T comparable](ids IndexedIterable[T]) *Palette[T] {
	return &Palette[T]{kind: Direct, ids: ids}
}

func (p *Palette[T]) Kind() PaletteKind { return p.kind }

func (p *Palette[T]) add(v T) int {
	i := len(p.values)
	p.values = append(p.values, v)
	if _, ok := p.index[v]; !ok {
		p.index[v] = i
	}
	return i
}

// TryIndex returns the index of v, assigning the next free index if v is
// new. A full palette returns a *ResizeError and is left unchanged.
func (p *Palette[T]) TryIndex(v T) (int, error) {
	switch p.kind {
	case Singular:
		if len(p.values) == 0 {
			p.values = []T{v}
			return 0, nil
		}
		if p.values[0] == v {
			return 0, nil
		}
		return 0, &ResizeError{Bits: 1}
	case BiMap:
		if i, ok := p.index[v]; ok {
			return i, nil
		}
		if len(p.values) >= 1<<p.bits {
			return 0, &ResizeError{Bits: p.bits + 1}
		}
		return p.add(v), nil
	default:
		id, ok := p.ids.RawID(v)
		if !ok {
			return 0, fmt.Errorf("value %v is not in the global registry", v)
		}
		return id, nil
	}
}

// Index is TryIndex with resizing delegated to onResize, whose result is
// returned in place of the index.
func (p *Palette[T]) Index(v T, onResize func(bits int, v T) int) int {
	i, err := p.TryIndex(v)
	if err == nil {
		return i
	}
	var re *ResizeError
	if errors.As(err, &re) {
		return onResize(re.Bits, v)
	}
	panic(err)
}

func (p *Palette[T]) Get(i int) T {
	if p.kind == Direct {
		v, ok := p.ids.Get(i)
		if !ok {
			panic(&MissingEntryError{Index: i})
		}
		return v
	}
	if i < 0 || i >= len(p.values) {
		panic(&MissingEntryError{Index: i})
	}
	return p.values[i]
}

// HasAny reports whether any value in the palette satisfies pred. A direct
// palette tests every value of the registry.
func (p *Palette[T]) HasAny(pred func(T) bool) bool {
	switch p.kind {
	case Singular:
		if len(p.values) == 0 {
			panic(ErrUninitialized)
		}
	case Direct:
		return true
	}
	for _, v := range p.values {
		if pred(v) {
			return true
		}
	}
	return false
}

// Size is the number of assigned indices; for a direct palette it is the
// size of the registry.
func (p *Palette[T]) Size() int {
	if p.kind == Direct {
		return p.ids.Size()
	}
	return len(p.values)
}

// Elements returns the local table in index order. Direct palettes have none.
func (p *Palette[T]) Elements() []T {
	return append([]T(nil), p.values...)
}

// Copy returns a palette that can be mutated independently. An initialized
// singular palette can never change again, so it is returned as is.
func (p *Palette[T]) Copy() *Palette[T] {
	switch p.kind {
	case Singular:
		if len(p.values) > 0 {
			return p
		}
		return NewSingularPalette[T](p.ids, nil)
	case BiMap:
		c := &Palette[T]{
			kind:   BiMap,
			bits:   p.bits,
			ids:    p.ids,
			values: append([]T(nil), p.values...),
			index:  make(map[T]int, len(p.index)),
		}
		for k, v := range p.index {
			c.index[k] = v
		}
		return c
	default:
		return p
	}
}

func (p *Palette[T]) rawID(v T) int {
	id, ok := p.ids.RawID(v)
	if !ok {
		panic(fmt.Errorf("value %v is not in the global registry", v))
	}
	return id
}

func (p *Palette[T]) fromRawID(id pk.VarInt) (T, error) {
	v, ok := p.ids.Get(int(id))
	if !ok {
		return v, fmt.Errorf("unknown global id %d", id)
	}
	return v, nil
}

// ReadPacket replaces the palette content with the one encoded in r.
func (p *Palette[T]) ReadPacket(r io.Reader) (n int64, err error) {
	switch p.kind {
	case Singular:
		var id pk.VarInt
		if n, err = id.ReadFrom(r); err != nil {
			return
		}
		v, err := p.fromRawID(id)
		if err != nil {
			return n, err
		}
		p.values = []T{v}
		return n, nil
	case BiMap:
		var size pk.VarInt
		if n, err = size.ReadFrom(r); err != nil {
			return
		}
		if size < 0 || int(size) > 1<<p.bits {
			return n, fmt.Errorf("palette size %d exceeds %d bit indices", size, p.bits)
		}
		p.values = make([]T, 0, size)
		p.index = make(map[T]int, size)
		for i := 0; i < int(size); i++ {
			var id pk.VarInt
			nn, err := id.ReadFrom(r)
			n += nn
			if err != nil {
				return n, err
			}
			v, err := p.fromRawID(id)
			if err != nil {
				return n, err
			}
			p.add(v)
		}
		return n, nil
	default:
		return 0, nil
	}
}

func (p *Palette[T]) WritePacket(w io.Writer) (n int64, err error) {
	switch p.kind {
	case Singular:
		if len(p.values) == 0 {
			panic(ErrUninitialized)
		}
		return pk.VarInt(p.rawID(p.values[0])).WriteTo(w)
	case BiMap:
		if n, err = pk.VarInt(len(p.values)).WriteTo(w); err != nil {
			return
		}
		for _, v := range p.values {
			nn, err := pk.VarInt(p.rawID(v)).WriteTo(w)
			n += nn
			if err != nil {
				return n, err
			}
		}
		return n, nil
	default:
		return 0, nil
	}
}

// PacketSize is the number of bytes WritePacket produces.
func (p *Palette[T]) PacketSize() int {
	switch p.kind {
	case Singular:
		if len(p.values) == 0 {
			panic(ErrUninitialized)
		}
		return pk.VarInt(p.rawID(p.values[0])).Len()
	case BiMap:
		size := pk.VarInt(len(p.values)).Len()
		for _, v := range p.values {
			size += pk.VarInt(p.rawID(v)).Len()
		}
		return size
	default:
		return 0
	}
}
