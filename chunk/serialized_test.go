package chunk

import (
	"testing"

	"github.com/Tnze/go-mc/level/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamitemc/chunkstore/tag"
)

var stone = block.ToStateID[block.Stone{}]

func TestFromNbtWithoutStatus(t *testing.T) {
	w := newTestWorld()
	nbt := tag.NewCompound()
	nbt.PutInt("xPos", 1)
	nbt.PutInt("zPos", 1)
	assert.Nil(t, FromNbt(w, w.palettes, nbt))
}

func TestChunkRoundTrip(t *testing.T) {
	w := newTestWorld()
	pos := ChunkPos{3, -2}
	c := NewWorldChunk(w, pos, nil, TickSchedulers{}, 42, nil, nil)
	c.SetBlockState(1, 5, 2, stone)
	c.SetBlockState(0, -10, 0, stone)
	c.SetLightOn(true)
	PopulateHeightmaps(c, StatusFull.HeightmapTypes())

	lit := NewNibbleArray()
	lit.Set(0, 0, 0, 15)
	w.lighting.EnqueueSectionData(BlockLight, SectionPosOf(pos, 0), lit)

	nbt, err := FromChunk(w, c).Serialize()
	require.NoError(t, err)
	assert.Equal(t, []string{"DataVersion", "xPos", "yPos", "zPos", "LastUpdate", "InhabitedTime", "Status"}, nbt.Keys()[:7])
	assert.Equal(t, "minecraft:full", nbt.GetString("Status"))
	assert.EqualValues(t, testBottom, nbt.GetInt("yPos"))
	assert.True(t, nbt.GetBool("isLightOn"))
	assert.False(t, nbt.Contains("entities"))
	assert.False(t, nbt.Contains("UpgradeData"))
	sections, ok := nbt.GetList("sections", tag.TagCompound)
	require.True(t, ok)
	assert.Equal(t, testSections, sections.Len())

	back := FromNbt(w, w.palettes, nbt)
	require.NotNil(t, back)
	loaded := back.Convert(w, NewPoiIndex(), StorageKey{}, pos)
	wc, ok := loaded.(*WorldChunk)
	require.True(t, ok)

	assert.Equal(t, stone, wc.BlockState(1, 5, 2))
	assert.Equal(t, stone, wc.BlockState(0, -10, 0))
	assert.Equal(t, airState, wc.BlockState(2, 5, 2))
	assert.EqualValues(t, 1, wc.Sections()[1].NonEmptyBlocks())
	assert.EqualValues(t, 42, wc.InhabitedTime())
	assert.True(t, wc.LightOn())

	h, ok := wc.Heightmap(WorldSurface)
	require.True(t, ok)
	assert.EqualValues(t, 6, h.Get(1, 2))
	assert.EqualValues(t, -9, h.Get(0, 0))
	assert.EqualValues(t, -16, h.Get(5, 5))

	assert.True(t, w.lighting.Retained(pos))
	assert.Equal(t, 15, w.lighting.LightSection(BlockLight, SectionPosOf(pos, 0)).Get(0, 0, 0))
	assert.Empty(t, w.misplaced)
}

func TestChunkBinaryRoundTrip(t *testing.T) {
	w := newTestWorld()
	pos := ChunkPos{0, 0}
	c := NewWorldChunk(w, pos, nil, TickSchedulers{}, 0, nil, nil)
	c.SetBlockState(7, 20, 7, stone)

	nbt, err := FromChunk(w, c).Serialize()
	require.NoError(t, err)
	data, err := tag.Marshal(nbt)
	require.NoError(t, err)
	decoded, err := tag.Unmarshal(data)
	require.NoError(t, err)

	back := FromNbt(w, w.palettes, decoded)
	require.NotNil(t, back)
	loaded := back.Convert(w, nil, StorageKey{}, pos)
	assert.Equal(t, stone, loaded.base().BlockState(7, 20, 7))
	assert.NotContains(t, w.logs.String(), "Recoverable")
}

func TestCorruptSectionIsReplaced(t *testing.T) {
	w := newTestWorld()
	pos := ChunkPos{0, 0}
	c := NewWorldChunk(w, pos, nil, TickSchedulers{}, 0, nil, nil)
	for y := int32(-16); y < 48; y += 16 {
		c.SetBlockState(3, y, 3, stone)
	}
	nbt, err := FromChunk(w, c).Serialize()
	require.NoError(t, err)

	sections, ok := nbt.GetList("sections", tag.TagCompound)
	require.True(t, ok)
	for _, sec := range sections.Compounds() {
		if sec.GetByte("Y") == 1 {
			states, ok := sec.GetCompound("block_states")
			require.True(t, ok)
			states.PutLongArray("data", []int64{1, 2, 3})
		}
	}

	back := FromNbt(w, w.palettes, nbt)
	require.NotNil(t, back)
	loaded := back.Convert(w, nil, StorageKey{}, pos).base()
	for y := int32(-16); y < 48; y += 16 {
		if y>>4 == 1 {
			assert.Equal(t, airState, loaded.BlockState(3, y, 3))
			continue
		}
		assert.Equal(t, stone, loaded.BlockState(3, y, 3), "y=%d", y)
	}
	assert.Contains(t, w.logs.String(), "Recoverable errors when loading section [0, 1, 0]")
}

func TestMisplacedChunkIsRelocated(t *testing.T) {
	w := newTestWorld()
	c := NewWorldChunk(w, ChunkPos{5, 5}, nil, TickSchedulers{}, 0, nil, nil)
	nbt, err := FromChunk(w, c).Serialize()
	require.NoError(t, err)

	key := StorageKey{Level: "world", Dimension: "overworld", Type: "chunk"}
	loaded := FromNbt(w, w.palettes, nbt).Convert(w, nil, key, ChunkPos{1, 1})
	assert.Equal(t, ChunkPos{1, 1}, loaded.Pos())
	assert.Equal(t, []misplacement{{actual: ChunkPos{5, 5}, expected: ChunkPos{1, 1}}}, w.misplaced)
	assert.Contains(t, w.logs.String(), "Chunk file at [1, 1] is in the wrong location; relocating. (Expected [1, 1], got [5, 5])")
}

func protoNbt(status ChunkStatus) *tag.Compound {
	nbt := tag.NewCompound()
	nbt.PutInt("xPos", 0)
	nbt.PutInt("zPos", 0)
	nbt.PutString("Status", string(status))
	return nbt
}

func TestStructures(t *testing.T) {
	w := newTestWorld()
	nbt := protoNbt(StatusStructureStarts)

	village := tag.NewCompound()
	village.PutString("id", "minecraft:village_plains")
	village.PutInt("ChunkX", 0)
	invalid := tag.NewCompound()
	invalid.PutString("id", "INVALID")
	starts := tag.NewCompound()
	starts.Put("minecraft:village_plains", village)
	starts.Put("minecraft:nope", tag.NewCompound())
	starts.Put("igloo", invalid)

	near, far := ChunkPos{1, 1}.Pack(), ChunkPos{20, 0}.Pack()
	refs := tag.NewCompound()
	refs.PutLongArray("minecraft:village_plains", []int64{near, far})
	refs.PutLongArray("unknown:thing", []int64{near})

	structures := tag.NewCompound()
	structures.Put("starts", starts)
	structures.Put("References", refs)
	nbt.Put("structures", structures)

	c := FromNbt(w, w.palettes, nbt).Convert(w, nil, StorageKey{}, ChunkPos{0, 0})
	pc, ok := c.(*ProtoChunk)
	require.True(t, ok)
	assert.Equal(t, StatusStructureStarts, pc.Status())

	assert.Equal(t, 1, pc.StructureStarts().Len())
	start, ok := pc.StructureStarts().Get("minecraft:village_plains")
	require.True(t, ok)
	assert.EqualValues(t, 0, start.Data.GetInt("ChunkX"))

	assert.Equal(t, 1, pc.StructureReferences().Len())
	kept, _ := pc.StructureReferences().Get("minecraft:village_plains")
	assert.Equal(t, []int64{near}, kept)

	logs := w.logs.String()
	assert.Contains(t, logs, "Unknown structure start: minecraft:nope")
	assert.Contains(t, logs, "Found reference to unknown structure 'unknown:thing' in chunk [0, 0], discarding")
	assert.Contains(t, logs, "Found invalid structure reference [ minecraft:village_plains @ [20, 0] ] for chunk [0, 0].")

	written := writeStructures(pc.base())
	ws, _ := written.GetCompound("starts")
	assert.Equal(t, []string{"minecraft:village_plains"}, ws.Keys())
}

func TestTicksAreFilteredAndRescheduled(t *testing.T) {
	w := newTestWorld()
	nbt := protoNbt(StatusFull)
	inside, _ := TickCodec{}.Encode(Tick{Type: "minecraft:stone", Pos: BlockPos{1, 2, 3}, Delay: 5})
	outside, _ := TickCodec{}.Encode(Tick{Type: "minecraft:stone", Pos: BlockPos{100, 2, 3}, Delay: 5})
	ticks, err := tag.ListOf(inside, outside)
	require.NoError(t, err)
	nbt.Put("block_ticks", ticks)

	sc := FromNbt(w, w.palettes, nbt)
	require.Len(t, sc.Ticks.Blocks, 1)
	c := sc.Convert(w, nil, StorageKey{}, ChunkPos{0, 0})
	pending := c.Ticks(1003)
	require.Len(t, pending.Blocks, 1)
	assert.EqualValues(t, 2, pending.Blocks[0].Delay)
	assert.Equal(t, BlockPos{1, 2, 3}, pending.Blocks[0].Pos)
}

func TestSkyLightNeedsSkyDimension(t *testing.T) {
	w := newTestWorld()
	w.sky = false
	nbt := protoNbt(StatusFull)
	sec := tag.NewCompound()
	sec.PutByte("Y", 0)
	sec.PutByteArray("SkyLight", make([]byte, 2048))
	sections, err := tag.ListOf(sec)
	require.NoError(t, err)
	nbt.Put("sections", sections)

	FromNbt(w, w.palettes, nbt).Convert(w, nil, StorageKey{}, ChunkPos{0, 0})
	assert.Nil(t, w.lighting.LightSection(SkyLight, SectionPos{0, 0, 0}))
	assert.False(t, w.lighting.Retained(ChunkPos{0, 0}))
}

func TestWorldChunkLoadsEntities(t *testing.T) {
	w := newTestWorld()
	nbt := protoNbt(StatusFull)
	pig := tag.NewCompound()
	pig.PutString("id", "minecraft:pig")
	chest := tag.NewCompound()
	chest.PutString("id", "minecraft:chest")
	chest.PutInt("x", 2)
	chest.PutInt("y", 64)
	chest.PutInt("z", 3)
	nbt.Put("entities", compoundList([]*tag.Compound{pig}))
	nbt.Put("block_entities", compoundList([]*tag.Compound{chest}))

	c := FromNbt(w, w.palettes, nbt).Convert(w, nil, StorageKey{}, ChunkPos{0, 0})
	wc := c.(*WorldChunk)
	assert.Empty(t, w.entities)
	wc.RunPostLoad()
	assert.Len(t, w.entities, 1)
	assert.Equal(t, []BlockPos{{2, 64, 3}}, wc.BlockEntityPositions())
	wc.RunPostLoad()
	assert.Len(t, w.entities, 1)
}

func TestProtoChunkRoundTrip(t *testing.T) {
	w := newTestWorld()
	pos := ChunkPos{0, 0}
	p := NewProtoChunk(w, pos, nil, nil, TickSchedulers{}, nil)
	p.SetStatus(StatusCarvers)

	first := tag.NewCompound()
	first.PutIntArray("UUID", []int32{1, 2, 3, 4})
	first.PutString("tag", "a")
	second := tag.NewCompound()
	second.PutIntArray("UUID", []int32{1, 2, 3, 4})
	second.PutString("tag", "b")
	p.AddEntity(first)
	p.AddEntity(second)
	require.Len(t, p.Entities(), 1)

	mask := NewCarvingMask(testSections*16, testBottom*16)
	mask.Set(1, -16, 1)
	p.SetCarvingMask(mask)
	p.MarkForPostProcessing([]int16{7}, 2)
	p.SetBelowZeroRetrogen(&BelowZeroRetrogen{TargetStatus: StatusFeatures})

	nbt, err := FromChunk(w, p).Serialize()
	require.NoError(t, err)
	assert.True(t, nbt.Contains("entities"))
	raw, ok := nbt.GetLongArray("carving_mask")
	require.True(t, ok)
	assert.Equal(t, []int64{1 << 17}, raw)

	c := FromNbt(w, w.palettes, nbt).Convert(w, nil, StorageKey{}, pos)
	back, ok := c.(*ProtoChunk)
	require.True(t, ok)
	assert.Equal(t, StatusCarvers, back.Status())
	require.Len(t, back.Entities(), 1)
	assert.Equal(t, "b", back.Entities()[0].GetString("tag"))
	require.NotNil(t, back.CarvingMask())
	assert.True(t, back.CarvingMask().Get(1, -16, 1))
	assert.False(t, back.CarvingMask().Get(2, -16, 1))
	assert.Equal(t, []int16{7}, back.PostProcessing()[2])
	require.NotNil(t, back.BelowZeroRetrogen())
	assert.Equal(t, StatusFeatures, back.BelowZeroRetrogen().TargetStatus)
	assert.Nil(t, back.Lighting())

	_, ok = back.Heightmap(OceanFloorWG)
	assert.True(t, ok)
	_, ok = back.Heightmap(MotionBlocking)
	assert.False(t, ok)
}

func TestUnserializableChunkPanics(t *testing.T) {
	w := newTestWorld()
	assert.Panics(t, func() { FromChunk(w, NewEmptyChunk(w, ChunkPos{0, 0})) })
}

func TestUpgradeData(t *testing.T) {
	u := NoUpgradeData()
	assert.True(t, u.IsDone())
	u.Indices[2] = []int32{5, 6}
	u.Sides = 3
	assert.False(t, u.IsDone())

	back := ReadUpgradeData(u.Nbt(), testSections)
	assert.Equal(t, u.Indices, back.Indices)
	assert.EqualValues(t, 3, back.Sides)
}

func TestEntityUUID(t *testing.T) {
	nbt := tag.NewCompound()
	nbt.PutIntArray("UUID", []int32{-1, 0x12345678, 0, 1})
	id, ok := entityUUID(nbt)
	require.True(t, ok)
	assert.Equal(t, "ffffffff-1234-5678-0000-000000000001", id.String())

	nbt.PutIntArray("UUID", []int32{1, 2, 3})
	_, ok = entityUUID(nbt)
	assert.False(t, ok)
}
