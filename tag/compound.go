package tag

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Compound maps names to tags and remembers insertion order, so a compound
// built by a writer is encoded in the same order it was filled.
type Compound struct {
	m *orderedmap.OrderedMap[string, Tag]
}

func NewCompound() *Compound {
	return &Compound{m: orderedmap.New[string, Tag]()}
}

func (*Compound) Type() Type { return TagCompound }
func (*Compound) isTag()     {}

func (c *Compound) Len() int {
	if c == nil || c.m == nil {
		return 0
	}
	return c.m.Len()
}

func (c *Compound) IsEmpty() bool { return c.Len() == 0 }

func (c *Compound) Keys() []string {
	keys := make([]string, 0, c.Len())
	c.Each(func(k string, _ Tag) { keys = append(keys, k) })
	return keys
}

func (c *Compound) Each(f func(key string, t Tag)) {
	if c == nil || c.m == nil {
		return
	}
	for p := c.m.Oldest(); p != nil; p = p.Next() {
		f(p.Key, p.Value)
	}
}

func (c *Compound) Get(key string) (Tag, bool) {
	if c == nil || c.m == nil {
		return nil, false
	}
	return c.m.Get(key)
}

func (c *Compound) Contains(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// ContainsType reports whether key is present and holds a tag of type t.
func (c *Compound) ContainsType(key string, t Type) bool {
	v, ok := c.Get(key)
	return ok && v.Type() == t
}

func (c *Compound) Put(key string, t Tag) {
	if c.m == nil {
		c.m = orderedmap.New[string, Tag]()
	}
	c.m.Set(key, t)
}

func (c *Compound) Remove(key string) {
	if c == nil || c.m == nil {
		return
	}
	c.m.Delete(key)
}

func (c *Compound) PutByte(key string, v int8)      { c.Put(key, Byte(v)) }
func (c *Compound) PutBool(key string, v bool)      { c.Put(key, Bool(v)) }
func (c *Compound) PutShort(key string, v int16)    { c.Put(key, Short(v)) }
func (c *Compound) PutInt(key string, v int32)      { c.Put(key, Int(v)) }
func (c *Compound) PutLong(key string, v int64)     { c.Put(key, Long(v)) }
func (c *Compound) PutFloat(key string, v float32)  { c.Put(key, Float(v)) }
func (c *Compound) PutDouble(key string, v float64) { c.Put(key, Double(v)) }
func (c *Compound) PutString(key string, v string)  { c.Put(key, String(v)) }

func (c *Compound) PutByteArray(key string, v []byte) { c.Put(key, ByteArray(v)) }
func (c *Compound) PutIntArray(key string, v []int32) { c.Put(key, IntArray(v)) }
func (c *Compound) PutLongArray(key string, v []int64) {
	c.Put(key, LongArray(v))
}

// The numeric getters return 0 when the key is absent or holds a
// non-numeric tag, and convert between numeric types otherwise.

func (c *Compound) GetByte(key string) int8   { return int8(c.number(key)) }
func (c *Compound) GetBool(key string) bool   { return c.GetByte(key) != 0 }
func (c *Compound) GetShort(key string) int16 { return int16(c.number(key)) }
func (c *Compound) GetInt(key string) int32   { return int32(c.number(key)) }
func (c *Compound) GetLong(key string) int64  { return c.number(key) }

func (c *Compound) number(key string) int64 {
	t, _ := c.Get(key)
	switch v := t.(type) {
	case Byte:
		return int64(v)
	case Short:
		return int64(v)
	case Int:
		return int64(v)
	case Long:
		return int64(v)
	case Float:
		return int64(v)
	case Double:
		return int64(v)
	}
	return 0
}

func (c *Compound) GetString(key string) string {
	t, _ := c.Get(key)
	s, _ := t.(String)
	return string(s)
}

func (c *Compound) GetByteArray(key string) ([]byte, bool) {
	t, _ := c.Get(key)
	v, ok := t.(ByteArray)
	return v, ok
}

func (c *Compound) GetIntArray(key string) ([]int32, bool) {
	t, _ := c.Get(key)
	v, ok := t.(IntArray)
	return v, ok
}

func (c *Compound) GetLongArray(key string) ([]int64, bool) {
	t, _ := c.Get(key)
	v, ok := t.(LongArray)
	return v, ok
}

func (c *Compound) GetCompound(key string) (*Compound, bool) {
	t, _ := c.Get(key)
	v, ok := t.(*Compound)
	return v, ok
}

// GetList returns the list under key when its elements are of type elem.
// Empty lists match any element type.
func (c *Compound) GetList(key string, elem Type) (*List, bool) {
	t, _ := c.Get(key)
	v, ok := t.(*List)
	if !ok {
		return nil, false
	}
	if v.Len() > 0 && v.Elem() != elem {
		return nil, false
	}
	return v, true
}

func (c *Compound) Copy() Tag {
	if c == nil {
		return (*Compound)(nil)
	}
	out := NewCompound()
	c.Each(func(k string, t Tag) { out.Put(k, t.Copy()) })
	return out
}

// CopyCompound is Copy without the interface conversion.
func (c *Compound) CopyCompound() *Compound {
	out, _ := c.Copy().(*Compound)
	return out
}

func (c *Compound) equal(o *Compound) bool {
	if c.Len() != o.Len() {
		return false
	}
	eq := true
	c.Each(func(k string, t Tag) {
		if !eq {
			return
		}
		ot, ok := o.Get(k)
		eq = ok && Equal(t, ot)
	})
	return eq
}
