package chunk

import (
	"bytes"
	"io"
	"strings"

	"github.com/Tnze/go-mc/data/packetid"
	"github.com/Tnze/go-mc/level/block"
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/dynamitemc/chunkstore/tag"
)

// ChunkPacket builds the level chunk with light packet of c.
func ChunkPacket(c Chunk, lighting LightingProvider) (pk.Packet, error) {
	data, err := SectionsData(c)
	if err != nil {
		return pk.Packet{}, err
	}
	var heightmaps struct {
		MotionBlocking []int64 `nbt:"MOTION_BLOCKING"`
		WorldSurface   []int64 `nbt:"WORLD_SURFACE"`
	}
	b := c.base()
	if h, ok := b.Heightmap(MotionBlocking); ok {
		heightmaps.MotionBlocking = h.Longs()
	}
	if h, ok := b.Heightmap(WorldSurface); ok {
		heightmaps.WorldSurface = h.Longs()
	}

	var entities []blockEntity
	for _, p := range c.BlockEntityPositions() {
		nbt := c.PackedBlockEntity(p)
		if nbt == nil {
			continue
		}
		be := blockEntity{Y: int16(p.Y), Type: entityType(nbt.GetString("id"))}
		if !be.PackXZ(int(p.X&15), int(p.Z&15)) {
			continue
		}
		be.Data = nbt
		entities = append(entities, be)
	}

	return pk.Marshal(
		packetid.ClientboundLevelChunkWithLight,
		c.Pos(),
		pk.NBT(heightmaps),
		pk.ByteArray(data),
		pk.Array(entities),
		newLightData(c.Pos(), lighting),
	), nil
}

// SectionsData is the concatenated wire form of all sections.
func SectionsData(c Chunk) ([]byte, error) {
	var size int
	for _, s := range c.Sections() {
		size += s.PacketSize()
	}
	var buff bytes.Buffer
	buff.Grow(size)
	for _, s := range c.Sections() {
		if _, err := s.WriteTo(&buff); err != nil {
			return nil, err
		}
	}
	return buff.Bytes(), nil
}

func entityType(id string) block.EntityType {
	if t, ok := block.EntityTypes[id]; ok {
		return t
	}
	return block.EntityTypes[strings.TrimPrefix(id, "minecraft:")]
}

type blockEntity struct {
	XZ   int8
	Y    int16
	Type block.EntityType
	Data *tag.Compound
}

func (b *blockEntity) PackXZ(x, z int) bool {
	if x > 0xF || z > 0xF || x < 0 || z < 0 {
		return false
	}
	b.XZ = int8(x<<4 | z)
	return true
}

func (b blockEntity) WriteTo(w io.Writer) (n int64, err error) {
	return pk.Tuple{
		pk.Byte(b.XZ),
		pk.Short(b.Y),
		pk.VarInt(b.Type),
		pk.NBT(b.Data),
	}.WriteTo(w)
}

// lightData bit i stands for section lighting.BottomY()+i.
type lightData struct {
	SkyLightMask        pk.BitSet
	BlockLightMask      pk.BitSet
	EmptySkyLightMask   pk.BitSet
	EmptyBlockLightMask pk.BitSet
	SkyLight            []pk.ByteArray
	BlockLight          []pk.ByteArray
}

func newLightData(pos ChunkPos, lighting LightingProvider) *lightData {
	n := int(lighting.TopY() - lighting.BottomY())
	words := (n-1)>>6 + 1
	l := &lightData{
		SkyLightMask:        make(pk.BitSet, words),
		BlockLightMask:      make(pk.BitSet, words),
		EmptySkyLightMask:   make(pk.BitSet, words),
		EmptyBlockLightMask: make(pk.BitSet, words),
		SkyLight:            []pk.ByteArray{},
		BlockLight:          []pk.ByteArray{},
	}
	for i := 0; i < n; i++ {
		spos := SectionPosOf(pos, lighting.BottomY()+int32(i))
		if sky := lighting.LightSection(SkyLight, spos); sky != nil {
			if sky.IsUninitialized() {
				l.EmptySkyLightMask.Set(i, true)
			} else {
				l.SkyLightMask.Set(i, true)
				l.SkyLight = append(l.SkyLight, sky.Copy().Bytes())
			}
		}
		if bl := lighting.LightSection(BlockLight, spos); bl != nil {
			if bl.IsUninitialized() {
				l.EmptyBlockLightMask.Set(i, true)
			} else {
				l.BlockLightMask.Set(i, true)
				l.BlockLight = append(l.BlockLight, bl.Copy().Bytes())
			}
		}
	}
	return l
}

func (l *lightData) WriteTo(w io.Writer) (int64, error) {
	return pk.Tuple{
		pk.Boolean(true), // trust edges
		l.SkyLightMask,
		l.BlockLightMask,
		l.EmptySkyLightMask,
		l.EmptyBlockLightMask,
		pk.Array(l.SkyLight),
		pk.Array(l.BlockLight),
	}.WriteTo(w)
}
