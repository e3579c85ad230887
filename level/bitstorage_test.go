package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitStorageSize(t *testing.T) {
	for _, tt := range []struct {
		bits, length, want int
	}{
		{0, 4096, 0},
		{1, 4096, 64},
		{2, 4096, 128},
		{4, 4096, 256},
		{5, 4096, 342},
		{15, 4096, 1024},
		{1, 64, 1},
		{3, 64, 4},
		{9, 256, 37},
	} {
		assert.Equal(t, tt.want, calcBitStorageSize(tt.bits, tt.length), "bits=%d length=%d", tt.bits, tt.length)
	}
}

func TestBitStorageSetGet(t *testing.T) {
	for bits := 1; bits <= 32; bits++ {
		s := MustBitStorage(bits, 300, nil)
		mask := 1<<bits - 1
		for i := 0; i < s.Len(); i++ {
			s.Set(i, (i*7919)&mask)
		}
		for i := 0; i < s.Len(); i++ {
			require.Equal(t, (i*7919)&mask, s.Get(i), "bits=%d i=%d", bits, i)
		}
		assert.Equal(t, (5*7919)&mask, s.Swap(5, 0))
		assert.Equal(t, 0, s.Get(5))
	}
}

func TestBitStorageNoStraddle(t *testing.T) {
	s := MustBitStorage(5, 13, nil)
	for i := 0; i < 13; i++ {
		s.Set(i, 31)
	}
	raw := s.Raw()
	require.Len(t, raw, 2)
	// 12 values of 5 bits fill 60 bits of the first long, the top 4 stay clear.
	assert.Equal(t, uint64(1<<60-1), raw[0])
	assert.Equal(t, uint64(31), raw[1])
}

func TestBitStorageInvalidLength(t *testing.T) {
	_, err := NewBitStorage(4, 4096, make([]uint64, 255))
	var lerr *InvalidLengthError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 255, lerr.Got)
	assert.Equal(t, 256, lerr.Want)
	assert.EqualError(t, err, "invalid length given for storage, got: 255 but expected: 256")
}

func TestBitStorageBounds(t *testing.T) {
	s := MustBitStorage(2, 10, nil)
	assert.Panics(t, func() { s.Set(0, 4) })
	assert.Panics(t, func() { s.Get(10) })
	assert.Panics(t, func() { s.Set(-1, 0) })
}

func TestBitStorageForEach(t *testing.T) {
	idx := []int{3, 0, 1, 2, 2, 1, 0, 3, 3}
	s := NewBitStorageFromIndices(2, len(idx), idx)
	out := make([]int, len(idx))
	s.WritePaletteIndices(out)
	assert.Equal(t, idx, out)

	c := s.Copy()
	c.Set(0, 0)
	assert.Equal(t, 3, s.Get(0))
}

func TestEmptyStorage(t *testing.T) {
	e := NewEmptyStorage(64)
	assert.Equal(t, 0, e.Bits())
	assert.Equal(t, 0, e.Get(63))
	assert.NotPanics(t, func() { e.Set(1, 0) })
	assert.Panics(t, func() { e.Set(1, 1) })
	assert.Empty(t, e.Raw())

	n := 0
	e.ForEach(func(v int) { n += v + 1 })
	assert.Equal(t, 64, n)
}
