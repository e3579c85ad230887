package tag

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Compound {
	c := NewCompound()
	c.PutInt("DataVersion", 3465)
	c.PutString("Status", "minecraft:full")
	c.PutLongArray("data", []int64{1, 2, -3})
	c.PutByteArray("SkyLight", []byte{0xF0, 0x0F})
	c.PutBool("isLightOn", true)

	palette, err := ListOf(String("minecraft:plains"), String("minecraft:desert"))
	require.NoError(t, err)
	c.Put("palette", palette)

	inner := NewCompound()
	inner.PutShort("s", 7)
	inner.PutDouble("d", 0.5)
	c.Put("inner", inner)

	post := NewList(TagList)
	row, err := ListOf(Short(1), Short(2))
	require.NoError(t, err)
	require.NoError(t, post.Add(row))
	require.NoError(t, post.Add(NewList(TagShort)))
	c.Put("PostProcessing", post)
	c.Put("empty", NewList(TagEnd))
	return c
}

func TestCompoundOrder(t *testing.T) {
	c := sample(t)
	assert.Equal(t, []string{"DataVersion", "Status", "data", "SkyLight", "isLightOn", "palette", "inner", "PostProcessing", "empty"}, c.Keys())

	c.Remove("Status")
	c.PutString("Status", "minecraft:empty")
	assert.Equal(t, "Status", c.Keys()[c.Len()-1])
}

func TestGetters(t *testing.T) {
	c := sample(t)
	assert.Equal(t, int32(3465), c.GetInt("DataVersion"))
	assert.Equal(t, int64(3465), c.GetLong("DataVersion"))
	assert.Equal(t, int32(0), c.GetInt("missing"))
	assert.True(t, c.GetBool("isLightOn"))
	assert.Equal(t, "", c.GetString("DataVersion"))

	l, ok := c.GetList("palette", TagString)
	require.True(t, ok)
	assert.Equal(t, 2, l.Len())
	_, ok = c.GetList("palette", TagCompound)
	assert.False(t, ok)
	_, ok = c.GetList("empty", TagCompound)
	assert.True(t, ok)

	arr, ok := c.GetLongArray("data")
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, -3}, arr)
}

func TestCopyIsDeep(t *testing.T) {
	c := sample(t)
	cp := c.CopyCompound()
	require.True(t, Equal(c, cp))

	inner, _ := cp.GetCompound("inner")
	inner.PutShort("s", 8)
	assert.False(t, Equal(c, cp))

	orig, _ := c.GetCompound("inner")
	assert.Equal(t, int16(7), orig.GetShort("s"))
}

func TestEqualIgnoresOrder(t *testing.T) {
	a := NewCompound()
	a.PutInt("x", 1)
	a.PutInt("z", 2)
	b := NewCompound()
	b.PutInt("z", 2)
	b.PutInt("x", 1)
	assert.True(t, Equal(a, b))
	assert.Equal(t, Hash(a), Hash(b))

	b.PutInt("x", 3)
	assert.False(t, Equal(a, b))
	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestMarshalRoundTrip(t *testing.T) {
	c := sample(t)
	data, err := Marshal(c)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, Equal(c, back), "decoded tree differs")
}

func TestNumericListsRoundTrip(t *testing.T) {
	bytesList, err := ListOf(Byte(1), Byte(-2))
	require.NoError(t, err)
	ints, err := ListOf(Int(1), Int(2), Int(-3))
	require.NoError(t, err)
	longs, err := ListOf(Long(1<<40), Long(-7))
	require.NoError(t, err)

	c := NewCompound()
	c.Put("bytes", bytesList)
	c.Put("ints", ints)
	c.Put("longs", longs)
	c.Put("empty", NewList(TagInt))

	data, err := Marshal(c)
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, Equal(c, back), "decoded tree differs")

	l, ok := back.Get("ints")
	require.True(t, ok)
	assert.Equal(t, TagInt, l.(*List).Elem())
	assert.Equal(t, Int(-3), l.(*List).At(2))
	l, _ = back.Get("empty")
	assert.Equal(t, TagInt, l.(*List).Elem())
	assert.Equal(t, 0, l.(*List).Len())
}

func TestMarshalDeterministic(t *testing.T) {
	c := sample(t)
	first, err := Marshal(c)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Marshal(c)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestReadWriteKeepsBytes(t *testing.T) {
	var in bytes.Buffer
	named := func(typ Type, name string) {
		in.WriteByte(byte(typ))
		binary.Write(&in, binary.BigEndian, uint16(len(name)))
		in.WriteString(name)
	}
	named(TagCompound, "root")
	named(TagString, "zeta")
	binary.Write(&in, binary.BigEndian, uint16(1))
	in.WriteString("z")
	named(TagList, "empty")
	in.WriteByte(byte(TagInt))
	binary.Write(&in, binary.BigEndian, int32(0))
	named(TagList, "longs")
	in.WriteByte(byte(TagLong))
	binary.Write(&in, binary.BigEndian, []int32{2})
	binary.Write(&in, binary.BigEndian, []int64{5, -1})
	named(TagIntArray, "alpha")
	binary.Write(&in, binary.BigEndian, []int32{3, 1, 2, 3})
	in.WriteByte(byte(TagEnd))
	in.WriteByte(byte(TagEnd))

	c, name, err := Read(bytes.NewReader(in.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "root", name)
	assert.Equal(t, []string{"zeta", "empty", "longs", "alpha"}, c.Keys())

	var out bytes.Buffer
	require.NoError(t, Write(&out, c, name))
	assert.Equal(t, in.Bytes(), out.Bytes())
}

func TestReadRejectsNegativeLength(t *testing.T) {
	var in bytes.Buffer
	in.Write([]byte{byte(TagCompound), 0, 0, byte(TagIntArray), 0, 1, 'a'})
	binary.Write(&in, binary.BigEndian, int32(-1))
	_, err := Unmarshal(in.Bytes())
	assert.Error(t, err)
}

func TestListTypeMismatch(t *testing.T) {
	_, err := ListOf(Int(1), String("a"))
	assert.Error(t, err)
}

func TestDecodeListPartial(t *testing.T) {
	l, err := ListOf(String("a"), String("b"))
	require.NoError(t, err)
	out, err := DecodeList[string](StringCodec{}, l)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)

	mixed := &List{elem: TagString, items: []Tag{String("a"), Int(3)}}
	out, err = DecodeList[string](StringCodec{}, mixed)
	assert.Error(t, err)
	assert.Equal(t, []string{"a"}, out)
}

func TestStringCodecTypeError(t *testing.T) {
	_, err := StringCodec{}.Decode(Int(3))
	var te *TypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, TypeError{Want: TagString, Got: TagInt}, *te)

	_, err = StringCodec{}.Decode(nil)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, TagEnd, te.Got)
	assert.Equal(t, TagEnd, TypeOf(nil))
}

func TestHashEmptyListsIgnoreElement(t *testing.T) {
	a := NewCompound()
	a.Put("l", NewList(TagShort))
	b := NewCompound()
	b.Put("l", &List{})
	assert.Equal(t, Hash(a), Hash(b))
}
