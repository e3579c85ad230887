// Package tag is an in-memory model of the named binary tag tree used by
// chunk and level files. Compound and List implement go-mc's nbt.Marshaler and
// nbt.Unmarshaler, so trees go through nbt encoders and decoders in order.
package tag

import (
	"bytes"
	"fmt"
)

type Type byte

const (
	TagEnd Type = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var typeNames = [...]string{
	"TAG_End", "TAG_Byte", "TAG_Short", "TAG_Int", "TAG_Long", "TAG_Float", "TAG_Double",
	"TAG_Byte_Array", "TAG_String", "TAG_List", "TAG_Compound", "TAG_Int_Array", "TAG_Long_Array",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("TAG_Unknown(%d)", byte(t))
}

// Tag is one of Byte, Short, Int, Long, Float, Double, ByteArray, String,
// *List, *Compound, IntArray or LongArray.
type Tag interface {
	Type() Type
	Copy() Tag
	isTag()
}

type (
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	String    string
	ByteArray []byte
	IntArray  []int32
	LongArray []int64
)

func (Byte) Type() Type      { return TagByte }
func (Short) Type() Type     { return TagShort }
func (Int) Type() Type       { return TagInt }
func (Long) Type() Type      { return TagLong }
func (Float) Type() Type     { return TagFloat }
func (Double) Type() Type    { return TagDouble }
func (String) Type() Type    { return TagString }
func (ByteArray) Type() Type { return TagByteArray }
func (IntArray) Type() Type  { return TagIntArray }
func (LongArray) Type() Type { return TagLongArray }

func (t Byte) Copy() Tag   { return t }
func (t Short) Copy() Tag  { return t }
func (t Int) Copy() Tag    { return t }
func (t Long) Copy() Tag   { return t }
func (t Float) Copy() Tag  { return t }
func (t Double) Copy() Tag { return t }
func (t String) Copy() Tag { return t }

func (t ByteArray) Copy() Tag { return append(ByteArray(nil), t...) }
func (t IntArray) Copy() Tag  { return append(IntArray(nil), t...) }
func (t LongArray) Copy() Tag { return append(LongArray(nil), t...) }

func (Byte) isTag()      {}
func (Short) isTag()     {}
func (Int) isTag()       {}
func (Long) isTag()      {}
func (Float) isTag()     {}
func (Double) isTag()    {}
func (String) isTag()    {}
func (ByteArray) isTag() {}
func (IntArray) isTag()  {}
func (LongArray) isTag() {}

func Bool(b bool) Byte {
	if b {
		return 1
	}
	return 0
}

// Equal reports whether two tags hold the same value. Compounds compare
// equal regardless of key order.
func Equal(a, b Tag) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a := a.(type) {
	case ByteArray:
		return bytes.Equal(a, b.(ByteArray))
	case IntArray:
		b := b.(IntArray)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	case LongArray:
		b := b.(LongArray)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	case *List:
		return a.equal(b.(*List))
	case *Compound:
		return a.equal(b.(*Compound))
	default:
		return a == b
	}
}
