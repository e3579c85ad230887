package level

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	pk "github.com/Tnze/go-mc/net/packet"
)

// ReadableContainer is the read side of a PalettedContainer.
type ReadableContainer[T comparable] interface {
	Get(x, y, z int) T
	GetIndex(i int) T
	ForEachValue(f func(v T))
	Count(f func(v T, n int))
	HasAny(pred func(T) bool) bool
	ElementBits() int
	PacketSize() int
	WriteTo(w io.Writer) (int64, error)
	Serialize() Serialized[T]
	Copy() *PalettedContainer[T]
	Slice() *PalettedContainer[T]
}

// Serialized is the palette and packed index array of a container as it
// appears in the tag tree.
type Serialized[T any] struct {
	Palette []T
	// Data is nil when every entry is index 0.
	Data []uint64
	// BitsPerEntry is the declared index width, -1 when the source does not
	// declare one.
	BitsPerEntry int
}

// BitCountError reports a static container whose declared width disagrees
// with the width its palette size calls for.
type BitCountError struct {
	Calculated, Declared int
}

func (e *BitCountError) Error() string {
	return fmt.Sprintf("Invalid bit count, calculated %d, but container declared %d", e.Calculated, e.Declared)
}

var ErrMissingData = errors.New("missing values for non-zero storage")

type containerData[T comparable] struct {
	typ     PaletteType
	storage PaletteStorage
	palette *Palette[T]
}

func (d *containerData[T]) get(i int) T {
	return d.palette.Get(d.storage.Get(i))
}

func (d *containerData[T]) copy() *containerData[T] {
	return &containerData[T]{typ: d.typ, storage: d.storage.Copy(), palette: d.palette.Copy()}
}

// PalettedContainer stores one value per voxel as a bit packed index into
// a palette, widening indices when a new value does not fit.
//
// Writers hold the container lock. Readers load the current data through
// an atomic pointer and always see a consistent palette and storage pair.
type PalettedContainer[T comparable] struct {
	provider *PaletteProvider[T]

	mu   sync.Mutex
	data atomic.Pointer[containerData[T]]
}

// NewPalettedContainer creates a container filled with defaultValue.
func NewPalettedContainer[T comparable](defaultValue T, p *PaletteProvider[T]) *PalettedContainer[T] {
	c := &PalettedContainer[T]{provider: p}
	d := c.compatibleData(nil, 0)
	if _, err := d.palette.TryIndex(defaultValue); err != nil {
		panic(err)
	}
	c.data.Store(d)
	return c
}

func newContainerWith[T comparable](p *PaletteProvider[T], d *containerData[T]) *PalettedContainer[T] {
	c := &PalettedContainer[T]{provider: p}
	c.data.Store(d)
	return c
}

func (c *PalettedContainer[T]) Provider() *PaletteProvider[T] { return c.provider }

func (c *PalettedContainer[T]) Lock()   { c.mu.Lock() }
func (c *PalettedContainer[T]) Unlock() { c.mu.Unlock() }

// compatibleData returns prev when it already has the type bits calls for.
func (c *PalettedContainer[T]) compatibleData(prev *containerData[T], bits int) *containerData[T] {
	t := c.provider.CreateType(bits)
	if prev != nil && prev.typ == t {
		return prev
	}
	return &containerData[T]{
		typ:     t,
		storage: t.createStorage(c.provider.Size()),
		palette: CreatePalette(t, c.provider, nil),
	}
}

func (c *PalettedContainer[T]) onResize(bits int, v T) int {
	old := c.data.Load()
	d := c.compatibleData(old, bits)
	if d != old {
		indices := make([]int, c.provider.Size())
		old.storage.WritePaletteIndices(indices)
		if err := repack(indices, old.palette, d.palette); err != nil {
			panic(err)
		}
		for i, idx := range indices {
			d.storage.Set(i, idx)
		}
		c.data.Store(d)
	}
	i, err := d.palette.TryIndex(v)
	if err != nil {
		panic(fmt.Errorf("resize to %v did not make room: %w", d.typ, err))
	}
	return i
}

func (c *PalettedContainer[T]) index(v T) int {
	return c.data.Load().palette.Index(v, c.onResize)
}

// Set stores v at x, y, z.
func (c *PalettedContainer[T]) Set(x, y, z int, v T) {
	c.Lock()
	defer c.Unlock()
	c.SetUnsafe(x, y, z, v)
}

// SetUnsafe is Set for callers already holding the lock.
func (c *PalettedContainer[T]) SetUnsafe(x, y, z int, v T) {
	c.SetIndexUnsafe(c.provider.ComputeIndex(x, y, z), v)
}

func (c *PalettedContainer[T]) SetIndexUnsafe(i int, v T) {
	idx := c.index(v)
	c.data.Load().storage.Set(i, idx)
}

// Swap stores v at x, y, z and returns the value it replaced.
func (c *PalettedContainer[T]) Swap(x, y, z int, v T) T {
	c.Lock()
	defer c.Unlock()
	return c.SwapUnsafe(x, y, z, v)
}

// SwapUnsafe is Swap for callers already holding the lock.
func (c *PalettedContainer[T]) SwapUnsafe(x, y, z int, v T) T {
	i := c.provider.ComputeIndex(x, y, z)
	idx := c.index(v)
	d := c.data.Load()
	return d.palette.Get(d.storage.Swap(i, idx))
}

func (c *PalettedContainer[T]) Get(x, y, z int) T {
	return c.GetIndex(c.provider.ComputeIndex(x, y, z))
}

// GetIndex reads the value at a flat storage index.
func (c *PalettedContainer[T]) GetIndex(i int) T {
	return c.data.Load().get(i)
}

// ElementBits is the index width currently held in memory.
func (c *PalettedContainer[T]) ElementBits() int {
	return c.data.Load().storage.Bits()
}

// Type is the palette type currently in use.
func (c *PalettedContainer[T]) Type() PaletteType {
	return c.data.Load().typ
}

// Palette exposes the current palette. Callers must not mutate it.
func (c *PalettedContainer[T]) Palette() *Palette[T] {
	return c.data.Load().palette
}

func (c *PalettedContainer[T]) HasAny(pred func(T) bool) bool {
	return c.data.Load().palette.HasAny(pred)
}

// ForEachValue calls f once for every distinct value present in storage.
func (c *PalettedContainer[T]) ForEachValue(f func(v T)) {
	d := c.data.Load()
	seen := make(map[int]struct{})
	d.storage.ForEach(func(idx int) {
		if _, ok := seen[idx]; ok {
			return
		}
		seen[idx] = struct{}{}
		f(d.palette.Get(idx))
	})
}

// Count reports how many voxels hold each distinct value, in order of
// first appearance.
func (c *PalettedContainer[T]) Count(f func(v T, n int)) {
	d := c.data.Load()
	if d.palette.Kind() != Direct && d.palette.Size() == 1 {
		f(d.palette.Get(0), d.storage.Len())
		return
	}
	counts := make(map[int]int)
	var order []int
	d.storage.ForEach(func(idx int) {
		if _, ok := counts[idx]; !ok {
			order = append(order, idx)
		}
		counts[idx]++
	})
	for _, idx := range order {
		f(d.palette.Get(idx), counts[idx])
	}
}

// Copy returns an independent container with the same content.
func (c *PalettedContainer[T]) Copy() *PalettedContainer[T] {
	return newContainerWith(c.provider, c.data.Load().copy())
}

// Slice returns a fresh container filled with the value at palette index 0.
func (c *PalettedContainer[T]) Slice() *PalettedContainer[T] {
	return NewPalettedContainer(c.data.Load().palette.Get(0), c.provider)
}

// WriteTo encodes the container for the network: the index width as a
// byte, the palette, then the packed longs without a length prefix.
func (c *PalettedContainer[T]) WriteTo(w io.Writer) (n int64, err error) {
	c.Lock()
	defer c.Unlock()
	d := c.data.Load()

	if n, err = pk.UnsignedByte(d.storage.Bits()).WriteTo(w); err != nil {
		return
	}
	nn, err := d.palette.WritePacket(w)
	n += nn
	if err != nil {
		return n, err
	}
	for _, v := range d.storage.Raw() {
		nn, err = pk.Long(v).WriteTo(w)
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadFrom replaces the content of the container with one encoded by
// WriteTo. Data of the same type is reused with a copied palette, and the
// result is published only once it is complete, so a failed read leaves the
// container untouched.
func (c *PalettedContainer[T]) ReadFrom(r io.Reader) (n int64, err error) {
	c.Lock()
	defer c.Unlock()

	var bits pk.UnsignedByte
	if n, err = bits.ReadFrom(r); err != nil {
		return
	}
	t := c.provider.CreateType(int(bits))
	if t.BitsInMemory() != int(bits) {
		return n, fmt.Errorf("unsupported index width %d", bits)
	}
	prev := c.data.Load()
	d := c.compatibleData(prev, int(bits))
	if d == prev {
		d = &containerData[T]{typ: prev.typ, storage: prev.storage, palette: prev.palette.Copy()}
	}

	nn, err := d.palette.ReadPacket(r)
	n += nn
	if err != nil {
		return n, err
	}

	if bits > 0 {
		size := c.provider.Size()
		raw := make([]uint64, calcBitStorageSize(int(bits), size))
		for i := range raw {
			var v pk.Long
			nn, err = v.ReadFrom(r)
			n += nn
			if err != nil {
				return n, err
			}
			raw[i] = uint64(v)
		}
		storage, err := NewBitStorage(int(bits), size, raw)
		if err != nil {
			return n, err
		}
		if err := checkIndices(storage, d.palette); err != nil {
			return n, err
		}
		d.storage = storage
	}
	c.data.Store(d)
	return n, nil
}

// PacketSize is the number of bytes WriteTo produces.
func (c *PalettedContainer[T]) PacketSize() int {
	d := c.data.Load()
	return 1 + d.palette.PacketSize() + 8*len(d.storage.Raw())
}

// Serialize repacks the content into a compact palette holding only the
// values in use.
func (c *PalettedContainer[T]) Serialize() Serialized[T] {
	c.Lock()
	defer c.Unlock()
	d := c.data.Load()

	size := c.provider.Size()
	compact := NewBiMapPalette[T](c.provider.ids, d.storage.Bits(), nil)
	indices := make([]int, size)
	d.storage.WritePaletteIndices(indices)
	if err := repack(indices, d.palette, compact); err != nil {
		panic(err)
	}

	bits := c.provider.CreateTypeFromSize(compact.Size()).BitsInStorage()
	var data []uint64
	if bits != 0 {
		data = NewBitStorageFromIndices(bits, size, indices).Raw()
	}
	return Serialized[T]{Palette: compact.Elements(), Data: data, BitsPerEntry: bits}
}

// ReadContainer builds a container from its serialized form.
//
// Static types must find the data at exactly their width. Dynamic types
// accept data at any width (declared, or told by the array length) and
// repack it to their in-memory width.
func ReadContainer[T comparable](p *PaletteProvider[T], s Serialized[T]) (*PalettedContainer[T], error) {
	size := p.Size()
	if len(s.Palette) == 0 {
		return nil, errors.New("empty palette")
	}
	t := p.CreateTypeFromSize(len(s.Palette))
	calculated := t.BitsInStorage()
	stored := calculated
	switch {
	case s.BitsPerEntry >= 0 && s.BitsPerEntry != calculated:
		if !t.ShouldRepack() {
			return nil, &BitCountError{Calculated: calculated, Declared: s.BitsPerEntry}
		}
		stored = s.BitsPerEntry
	case s.BitsPerEntry < 0 && t.ShouldRepack() && s.Data != nil:
		stored = inferStoredBits(size, len(s.Data), calculated)
	}

	mem := t.BitsInMemory()
	palette := CreatePalette(t, p, s.Palette)
	if mem == 0 {
		return newContainerWith(p, &containerData[T]{typ: t, storage: NewEmptyStorage(size), palette: palette}), nil
	}
	if s.Data == nil {
		return nil, ErrMissingData
	}

	data := append([]uint64(nil), s.Data...)
	if !t.ShouldRepack() && mem == stored {
		storage, err := NewBitStorage(mem, size, data)
		if err != nil {
			return nil, err
		}
		if err := checkIndices(storage, palette); err != nil {
			return nil, err
		}
		return newContainerWith(p, &containerData[T]{typ: t, storage: storage, palette: palette}), nil
	}

	staged, err := NewBitStorage(stored, size, data)
	if err != nil {
		return nil, err
	}
	indices := make([]int, size)
	staged.WritePaletteIndices(indices)
	if err := repack(indices, NewBiMapPalette(p.ids, stored, s.Palette), palette); err != nil {
		return nil, err
	}
	storage := NewBitStorageFromIndices(mem, size, indices)
	return newContainerWith(p, &containerData[T]{typ: t, storage: storage, palette: palette}), nil
}

// inferStoredBits finds the width of an undeclared packed array from its
// length, preferring the smallest width not below least.
func inferStoredBits(size, longs, least int) int {
	if calcBitStorageSize(least, size) == longs {
		return least
	}
	for bits := least + 1; bits <= 32; bits++ {
		if calcBitStorageSize(bits, size) == longs {
			return bits
		}
	}
	return least
}

// repack rewrites indices of from as indices of to. Runs of equal indices
// are translated once.
func repack[T comparable](indices []int, from, to *Palette[T]) error {
	prev, prevOut := -1, 0
	for i, idx := range indices {
		if idx != prev {
			if idx >= from.Size() {
				return &MissingEntryError{Index: idx}
			}
			out, err := to.TryIndex(from.Get(idx))
			if err != nil {
				return err
			}
			prev, prevOut = idx, out
		}
		indices[i] = prevOut
	}
	return nil
}

func checkIndices[T comparable](s PaletteStorage, p *Palette[T]) (err error) {
	size := p.Size()
	s.ForEach(func(idx int) {
		if err == nil && idx >= size {
			err = &MissingEntryError{Index: idx}
		}
	})
	return
}
