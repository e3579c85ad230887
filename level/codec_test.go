package level

import (
	"errors"
	"testing"

	"github.com/Tnze/go-mc/level/biome"
	"github.com/Tnze/go-mc/level/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamitemc/chunkstore/tag"
)

// strictCodec refuses the entry "corrupt".
type strictCodec struct{ tag.StringCodec }

func (c strictCodec) Decode(t tag.Tag) (string, error) {
	s, err := c.StringCodec.Decode(t)
	if err == nil && s == "corrupt" {
		return "", errors.New("corrupt entry")
	}
	return s, err
}

func stringCodec() ContainerCodec[string] {
	return ContainerCodec[string]{
		Entry:    strictCodec{},
		Provider: BlockStateProvider[string](blockIDs()),
		Default:  "air",
	}
}

func TestContainerCodecRoundTrip(t *testing.T) {
	codec := stringCodec()
	c := NewPalettedContainer("air", codec.Provider)
	c.Set(1, 1, 1, "stone")
	c.Set(2, 1, 1, "water")

	comp, err := codec.Encode(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"palette", "data"}, comp.Keys())
	palette, ok := comp.GetList("palette", tag.TagString)
	require.True(t, ok)
	assert.Equal(t, 3, palette.Len())
	data, _ := comp.GetLongArray("data")
	assert.Len(t, data, 128)

	back, err := codec.Decode(comp)
	require.NoError(t, err)
	assert.Equal(t, values(c, 4096), values(back, 4096))
}

func TestContainerCodecSingularHasNoData(t *testing.T) {
	codec := stringCodec()
	comp, err := codec.Encode(NewPalettedContainer("stone", codec.Provider))
	require.NoError(t, err)
	assert.False(t, comp.Contains("data"))

	back, err := codec.Decode(comp)
	require.NoError(t, err)
	assert.Equal(t, "stone", back.Get(0, 0, 0))
}

func TestContainerCodecPartial(t *testing.T) {
	codec := stringCodec()
	src := NewBitStorageFromIndices(2, 4096, make([]int, 4096))
	src.Set(10, 1)
	src.Set(11, 2)

	palette, err := tag.ListOf(tag.String("air"), tag.String("corrupt"), tag.String("stone"))
	require.NoError(t, err)
	comp := tag.NewCompound()
	comp.Put("palette", palette)
	raw := make([]int64, len(src.Raw()))
	for i, v := range src.Raw() {
		raw[i] = int64(v)
	}
	comp.PutLongArray("data", raw)

	c, err := codec.Decode(comp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "palette[1]: corrupt entry")
	require.NotNil(t, c, "a partial result is kept")
	assert.Equal(t, "air", c.GetIndex(10))
	assert.Equal(t, "stone", c.GetIndex(11))
}

func TestContainerCodecFailures(t *testing.T) {
	codec := stringCodec()

	c, err := codec.Decode(tag.NewCompound())
	assert.Nil(t, c)
	assert.EqualError(t, err, "missing palette")

	c, err = codec.Decode(tag.String("nope"))
	assert.Nil(t, c)
	var te *tag.TypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tag.TagString, te.Got)

	_, err = codec.Decode(nil)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, tag.TagEnd, te.Got)

	palette, _ := tag.ListOf(tag.String("air"), tag.String("stone"), tag.String("water"))
	comp := tag.NewCompound()
	comp.Put("palette", palette)
	comp.PutLongArray("data", make([]int64, 5))
	c, err = codec.Decode(comp)
	assert.Nil(t, c)
	var lerr *InvalidLengthError
	assert.ErrorAs(t, err, &lerr)
}

func TestBlockStateCodec(t *testing.T) {
	stone := block.ToStateID[block.Stone{}]

	enc, err := BlockStateCodec{}.Encode(stone)
	require.NoError(t, err)
	comp := enc.(*tag.Compound)
	assert.Equal(t, "minecraft:stone", comp.GetString("Name"))
	assert.False(t, comp.Contains("Properties"))

	dec, err := BlockStateCodec{}.Decode(comp)
	require.NoError(t, err)
	assert.Equal(t, stone, dec)

	short := tag.NewCompound()
	short.PutString("Name", "stone")
	dec, err = BlockStateCodec{}.Decode(short)
	require.NoError(t, err)
	assert.Equal(t, stone, dec)

	unknown := tag.NewCompound()
	unknown.PutString("Name", "minecraft:not_a_block")
	_, err = BlockStateCodec{}.Decode(unknown)
	assert.Error(t, err)
}

func TestBiomeCodec(t *testing.T) {
	v := biome.Type(1)
	enc, err := BiomeCodec{}.Encode(v)
	require.NoError(t, err)
	assert.Equal(t, tag.TagString, enc.Type())

	dec, err := BiomeCodec{}.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, v, dec)

	_, err = BiomeCodec{}.Decode(tag.Int(1))
	assert.Error(t, err)
}

func TestGoMcRegistries(t *testing.T) {
	blocks := BlockStateProvider[block.StateID](BlockStates{})

	c := NewPalettedContainer(block.ToStateID[block.Air{}], blocks)
	c.Set(0, 0, 0, block.ToStateID[block.Stone{}])
	codec := ContainerCodec[block.StateID]{Entry: BlockStateCodec{}, Provider: blocks, Default: block.ToStateID[block.Air{}]}
	comp, err := codec.Encode(c)
	require.NoError(t, err)
	back, err := codec.Decode(comp)
	require.NoError(t, err)
	assert.Equal(t, block.ToStateID[block.Stone{}], back.Get(0, 0, 0))
	assert.Equal(t, block.ToStateID[block.Air{}], back.Get(1, 0, 0))
}
