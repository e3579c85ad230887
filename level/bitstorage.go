package level

import (
	"fmt"
	"math"
)

const (
	indexOutOfBounds = "index out of bounds"
	valueOutOfBounds = "value out of bounds"
)

// PaletteStorage is a fixed-length array of small unsigned integers, each an
// index into the palette the storage is paired with.
type PaletteStorage interface {
	Get(i int) int
	Set(i, v int)
	Swap(i, v int) (old int)
	Len() int
	// Bits is the width of one element. Zero means every element is 0.
	Bits() int
	ForEach(f func(v int))
	// WritePaletteIndices copies every element into out, which must hold Len values.
	WritePaletteIndices(out []int)
	Copy() PaletteStorage
	// Raw is the packed backing array.
	Raw() []uint64
}

// BitStorage implement the compacted data array used in chunk storage and heightmaps.
// You can think of this as a []intN whose N is indicated by "bits".
// Values never straddle two longs, so every long holds 64/bits values.
type BitStorage struct {
	data []uint64
	mask uint64

	bits, length  int
	valuesPerLong int
}

// NewBitStorage create a new BitStorage.
//
// The "data" is optional for initializing. When given, its length must be
// exactly calcBitStorageSize(bits, length) or an *InvalidLengthError is returned.
func NewBitStorage(bits, length int, data []uint64) (*BitStorage, error) {
	if bits <= 0 || bits > 32 {
		return nil, fmt.Errorf("level: bit storage width %d out of range [1, 32]", bits)
	}
	b := &BitStorage{
		mask:          1<<bits - 1,
		bits:          bits,
		length:        length,
		valuesPerLong: 64 / bits,
	}
	dataLen := calcBitStorageSize(bits, length)
	if data == nil {
		b.data = make([]uint64, dataLen)
		return b, nil
	}
	if len(data) != dataLen {
		return nil, &InvalidLengthError{Got: len(data), Want: dataLen}
	}
	b.data = data
	return b, nil
}

// MustBitStorage is NewBitStorage for widths and lengths known to be valid.
func MustBitStorage(bits, length int, data []uint64) *BitStorage {
	b, err := NewBitStorage(bits, length, data)
	if err != nil {
		panic(err)
	}
	return b
}

// NewBitStorageFromIndices packs indices at the given width.
func NewBitStorageFromIndices(bits, length int, indices []int) *BitStorage {
	b := MustBitStorage(bits, length, nil)
	for i, v := range indices[:length] {
		b.Set(i, v)
	}
	return b
}

// calcBitStorageSize calculate how many uint64 is needed for given bits and length.
func calcBitStorageSize(bits, length int) (size int) {
	if bits == 0 {
		return 0
	}
	valuesPerLong := 64 / bits
	return (length + valuesPerLong - 1) / valuesPerLong
}

// InvalidLengthError is returned when a packed array does not have the
// length its width and element count require.
type InvalidLengthError struct {
	Got  int
	Want int
}

func (i *InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid length given for storage, got: %d but expected: %d", i.Got, i.Want)
}

func (b *BitStorage) calcIndex(n int) (c, o int) {
	c = n / b.valuesPerLong
	o = (n - c*b.valuesPerLong) * b.bits
	return
}

// Swap sets v into [i], and return the previous [i] value.
func (b *BitStorage) Swap(i, v int) (old int) {
	if v < 0 || uint64(v) > b.mask {
		panic(valueOutOfBounds)
	}
	if i < 0 || i > b.length-1 {
		panic(indexOutOfBounds)
	}
	c, offset := b.calcIndex(i)
	l := b.data[c]
	old = int(l >> offset & b.mask)
	b.data[c] = l&(b.mask<<offset^math.MaxUint64) | (uint64(v)&b.mask)<<offset
	return
}

// Set sets v into [i].
func (b *BitStorage) Set(i, v int) {
	if v < 0 || uint64(v) > b.mask {
		panic(valueOutOfBounds)
	}
	if i < 0 || i > b.length-1 {
		panic(indexOutOfBounds)
	}

	c, offset := b.calcIndex(i)
	l := b.data[c]
	b.data[c] = l&(b.mask<<offset^math.MaxUint64) | (uint64(v)&b.mask)<<offset
}

// Get gets [i] value.
func (b *BitStorage) Get(i int) int {
	if i < 0 || i > b.length-1 {
		panic(indexOutOfBounds)
	}

	c, offset := b.calcIndex(i)
	l := b.data[c]
	return int(l >> offset & b.mask)
}

// Len is the number of stored values.
func (b *BitStorage) Len() int { return b.length }

func (b *BitStorage) Bits() int { return b.bits }

// ForEach walks the values in index order, one long at a time.
func (b *BitStorage) ForEach(f func(v int)) {
	n := 0
	for _, l := range b.data {
		for j := 0; j < b.valuesPerLong && n < b.length; j++ {
			f(int(l & b.mask))
			l >>= b.bits
			n++
		}
	}
}

func (b *BitStorage) WritePaletteIndices(out []int) {
	n := 0
	b.ForEach(func(v int) {
		out[n] = v
		n++
	})
}

func (b *BitStorage) Copy() PaletteStorage {
	c := *b
	c.data = append([]uint64(nil), b.data...)
	return &c
}

// Raw return the underling array of uint64 for encoding/decoding.
func (b *BitStorage) Raw() []uint64 {
	if b == nil {
		return []uint64{}
	}
	return b.data
}

// EmptyStorage is the storage of a container holding a single value. It has
// no backing array and every element reads as 0.
type EmptyStorage struct {
	length int
}

func NewEmptyStorage(length int) *EmptyStorage {
	return &EmptyStorage{length: length}
}

func (e *EmptyStorage) Get(i int) int {
	if i < 0 || i >= e.length {
		panic(indexOutOfBounds)
	}
	return 0
}

func (e *EmptyStorage) Set(i, v int) {
	if i < 0 || i >= e.length {
		panic(indexOutOfBounds)
	}
	if v != 0 {
		panic(valueOutOfBounds)
	}
}

func (e *EmptyStorage) Swap(i, v int) int {
	e.Set(i, v)
	return 0
}

func (e *EmptyStorage) Len() int  { return e.length }
func (e *EmptyStorage) Bits() int { return 0 }

func (e *EmptyStorage) ForEach(f func(v int)) {
	for i := 0; i < e.length; i++ {
		f(0)
	}
}

func (e *EmptyStorage) WritePaletteIndices(out []int) {
	clear(out[:e.length])
}

func (e *EmptyStorage) Copy() PaletteStorage { return e }
func (e *EmptyStorage) Raw() []uint64        { return []uint64{} }
