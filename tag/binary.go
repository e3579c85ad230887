package tag

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/Tnze/go-mc/nbt"
	"github.com/cespare/xxhash/v2"
)

// maxDepth bounds compound and list nesting while reading.
const maxDepth = 512

var (
	_ nbt.Marshaler   = (*Compound)(nil)
	_ nbt.Unmarshaler = (*Compound)(nil)
	_ nbt.Marshaler   = (*List)(nil)
	_ nbt.Unmarshaler = (*List)(nil)
)

// Marshal encodes c as an unnamed root compound.
func Marshal(c *Compound) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, c, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a root compound.
func Unmarshal(data []byte) (*Compound, error) {
	c, _, err := Read(bytes.NewReader(data))
	return c, err
}

// Write encodes c as a root compound named name. Keys are written in the
// compound's order.
func Write(w io.Writer, c *Compound, name string) error {
	return nbt.NewEncoder(w).Encode(c, name)
}

// Read decodes one named root compound and returns it with its name.
func Read(r io.Reader) (*Compound, string, error) {
	c := NewCompound()
	name, err := nbt.NewDecoder(r).Decode(c)
	if err != nil {
		return nil, "", fmt.Errorf("tag: decode: %w", err)
	}
	return c, name, nil
}

func (*Compound) TagType() byte { return byte(TagCompound) }
func (*List) TagType() byte     { return byte(TagList) }

func (c *Compound) MarshalNBT(w io.Writer) error { return writePayload(w, c) }
func (l *List) MarshalNBT(w io.Writer) error     { return writePayload(w, l) }

func (c *Compound) UnmarshalNBT(tagType byte, r nbt.DecoderReader) error {
	if Type(tagType) != TagCompound {
		return &TypeError{Want: TagCompound, Got: Type(tagType)}
	}
	t, err := readPayload(r, TagCompound, 0)
	if err != nil {
		return err
	}
	*c = *t.(*Compound)
	return nil
}

func (l *List) UnmarshalNBT(tagType byte, r nbt.DecoderReader) error {
	if Type(tagType) != TagList {
		return &TypeError{Want: TagList, Got: Type(tagType)}
	}
	t, err := readPayload(r, TagList, 0)
	if err != nil {
		return err
	}
	*l = *t.(*List)
	return nil
}

func writePayload(w io.Writer, t Tag) error {
	var err error
	switch t := t.(type) {
	case Byte:
		_, err = w.Write([]byte{byte(t)})
	case Short:
		err = binary.Write(w, binary.BigEndian, int16(t))
	case Int:
		err = binary.Write(w, binary.BigEndian, int32(t))
	case Long:
		err = binary.Write(w, binary.BigEndian, int64(t))
	case Float:
		err = binary.Write(w, binary.BigEndian, math.Float32bits(float32(t)))
	case Double:
		err = binary.Write(w, binary.BigEndian, math.Float64bits(float64(t)))
	case String:
		err = writeString(w, string(t))
	case ByteArray:
		if err = binary.Write(w, binary.BigEndian, int32(len(t))); err == nil {
			_, err = w.Write(t)
		}
	case IntArray:
		if err = binary.Write(w, binary.BigEndian, int32(len(t))); err == nil {
			err = binary.Write(w, binary.BigEndian, []int32(t))
		}
	case LongArray:
		if err = binary.Write(w, binary.BigEndian, int32(len(t))); err == nil {
			err = binary.Write(w, binary.BigEndian, []int64(t))
		}
	case *List:
		if _, err = w.Write([]byte{byte(t.Elem())}); err != nil {
			return err
		}
		if err = binary.Write(w, binary.BigEndian, int32(t.Len())); err != nil {
			return err
		}
		for i, v := range t.items {
			if err := writePayload(w, v); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	case *Compound:
		t.Each(func(k string, v Tag) {
			if err != nil {
				return
			}
			if _, err = w.Write([]byte{byte(v.Type())}); err != nil {
				return
			}
			if err = writeString(w, k); err != nil {
				return
			}
			if err = writePayload(w, v); err != nil {
				err = fmt.Errorf("%s: %w", k, err)
			}
		})
		if err == nil {
			_, err = w.Write([]byte{byte(TagEnd)})
		}
	default:
		err = fmt.Errorf("tag: unsupported tag %T", t)
	}
	return err
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("tag: string of %d bytes is too long", len(s))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

var errNegativeLength = errors.New("tag: negative length")

func readPayload(r io.Reader, typ Type, depth int) (Tag, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("tag: nesting deeper than %d", maxDepth)
	}
	switch typ {
	case TagByte:
		var v int8
		err := binary.Read(r, binary.BigEndian, &v)
		return Byte(v), err
	case TagShort:
		var v int16
		err := binary.Read(r, binary.BigEndian, &v)
		return Short(v), err
	case TagInt:
		var v int32
		err := binary.Read(r, binary.BigEndian, &v)
		return Int(v), err
	case TagLong:
		var v int64
		err := binary.Read(r, binary.BigEndian, &v)
		return Long(v), err
	case TagFloat:
		var v uint32
		err := binary.Read(r, binary.BigEndian, &v)
		return Float(math.Float32frombits(v)), err
	case TagDouble:
		var v uint64
		err := binary.Read(r, binary.BigEndian, &v)
		return Double(math.Float64frombits(v)), err
	case TagString:
		s, err := readString(r)
		return String(s), err
	case TagByteArray:
		data, err := readArray(r, 1)
		return ByteArray(data), err
	case TagIntArray:
		data, err := readArray(r, 4)
		if err != nil {
			return nil, err
		}
		out := make(IntArray, len(data)/4)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(data[i*4:]))
		}
		return out, nil
	case TagLongArray:
		data, err := readArray(r, 8)
		if err != nil {
			return nil, err
		}
		out := make(LongArray, len(data)/8)
		for i := range out {
			out[i] = int64(binary.BigEndian.Uint64(data[i*8:]))
		}
		return out, nil
	case TagList:
		var head [5]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return nil, err
		}
		elem, n := Type(head[0]), int32(binary.BigEndian.Uint32(head[1:]))
		if n < 0 {
			return nil, errNegativeLength
		}
		if n > 0 && (elem == TagEnd || elem > TagLongArray) {
			return nil, fmt.Errorf("tag: list of %v", elem)
		}
		l := &List{elem: elem, items: make([]Tag, 0, min(int(n), 1024))}
		for i := 0; i < int(n); i++ {
			v, err := readPayload(r, elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l.items = append(l.items, v)
		}
		return l, nil
	case TagCompound:
		c := NewCompound()
		for {
			var b [1]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, err
			}
			t := Type(b[0])
			if t == TagEnd {
				return c, nil
			}
			if t > TagLongArray {
				return nil, fmt.Errorf("tag: unknown tag type %d", b[0])
			}
			k, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := readPayload(r, t, depth+1)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			c.Put(k, v)
		}
	}
	return nil, fmt.Errorf("tag: unknown tag type %d", byte(typ))
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// readArray reads a length prefixed array of size byte elements without
// trusting the length for the allocation.
func readArray(r io.Reader, size int) ([]byte, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errNegativeLength
	}
	want := int64(n) * int64(size)
	data, err := io.ReadAll(io.LimitReader(r, want))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != want {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}

// Hash fingerprints a tag tree independently of compound key order.
func Hash(t Tag) uint64 {
	d := xxhash.New()
	hashTag(d, t)
	return d.Sum64()
}

func hashTag(d *xxhash.Digest, t Tag) {
	d.Write([]byte{byte(t.Type())})
	switch t := t.(type) {
	case *Compound:
		keys := t.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			d.WriteString(k)
			v, _ := t.Get(k)
			hashTag(d, v)
		}
		d.Write([]byte{byte(TagEnd)})
	case *List:
		// empty lists hash alike whatever their element type
		if t.Len() == 0 {
			d.WriteString("0:0")
			break
		}
		fmt.Fprintf(d, "%d:%d", t.Elem(), t.Len())
		for _, v := range t.items {
			hashTag(d, v)
		}
	case ByteArray:
		fmt.Fprintf(d, "%d:", len(t))
		d.Write(t)
	default:
		fmt.Fprintf(d, "%v;", t)
	}
}
