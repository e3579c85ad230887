package chunk

import "fmt"

const nibbleArraySize = 2048

// NibbleArray holds one 4 bit light level per block of a section. A nil
// backing array reads as all zero and counts as uninitialized.
type NibbleArray struct {
	data []byte
}

func NewNibbleArray() *NibbleArray {
	return &NibbleArray{}
}

// NibbleArrayFrom wraps a 2048 byte array.
func NibbleArrayFrom(data []byte) (*NibbleArray, error) {
	if len(data) != nibbleArraySize {
		return nil, fmt.Errorf("nibble array must be %d bytes, got %d", nibbleArraySize, len(data))
	}
	return &NibbleArray{data: data}, nil
}

func nibbleIndex(x, y, z int) int {
	return y<<8 | z<<4 | x
}

func (n *NibbleArray) Get(x, y, z int) int {
	if n.data == nil {
		return 0
	}
	i := nibbleIndex(x, y, z)
	return int(n.data[i>>1]>>(4*(i&1))) & 0xF
}

func (n *NibbleArray) Set(x, y, z, v int) {
	if n.data == nil {
		n.data = make([]byte, nibbleArraySize)
	}
	i := nibbleIndex(x, y, z)
	shift := 4 * (i & 1)
	n.data[i>>1] = n.data[i>>1]&^(0xF<<shift) | byte(v&0xF)<<shift
}

func (n *NibbleArray) IsUninitialized() bool { return n == nil || n.data == nil }

// Bytes returns the backing array, allocating it if needed.
func (n *NibbleArray) Bytes() []byte {
	if n.data == nil {
		n.data = make([]byte, nibbleArraySize)
	}
	return n.data
}

func (n *NibbleArray) Copy() *NibbleArray {
	if n.data == nil {
		return &NibbleArray{}
	}
	return &NibbleArray{data: append([]byte(nil), n.data...)}
}
