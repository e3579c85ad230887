package chunk

import (
	"encoding/binary"
	"errors"
	"sort"
	"strconv"

	"github.com/Tnze/go-mc/level/block"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dynamitemc/chunkstore/logger"
	"github.com/dynamitemc/chunkstore/tag"
)

// ErrUnserializable is the panic value of FromChunk for placeholder chunks.
var ErrUnserializable = errors.New("chunk can't be serialized")

var airState = block.ToStateID[block.Air{}]

// Chunk is a loaded chunk column, either a WorldChunk or a ProtoChunk.
type Chunk interface {
	Pos() ChunkPos
	Status() ChunkStatus
	Serializable() bool
	Sections() []*ChunkSection
	// Ticks returns the pending ticks with delays relative to now.
	Ticks(now int64) TickSchedulers
	BlockEntityPositions() []BlockPos
	PackedBlockEntity(pos BlockPos) *tag.Compound
	base() *chunkBase
}

// chunkBase holds the state shared by both chunk kinds.
type chunkBase struct {
	pos           ChunkPos
	bottomSection int32
	sections      []*ChunkSection
	heightmaps    map[HeightmapType]*Heightmap

	upgrade        *UpgradeData
	blending       *tag.Compound
	inhabitedTime  int64
	lightOn        bool
	postProcessing [][]int16

	starts        *orderedmap.OrderedMap[string, StructureStart]
	references    *orderedmap.OrderedMap[string, []int64]
	blockEntities *orderedmap.OrderedMap[BlockPos, *tag.Compound]

	log *logger.Logger
}

func newChunkBase(w World, pos ChunkPos, upgrade *UpgradeData, sections []*ChunkSection, blending *tag.Compound) chunkBase {
	n := w.SectionCount()
	secs := make([]*ChunkSection, n)
	copy(secs, sections)
	for i := range secs {
		if secs[i] == nil {
			secs[i] = EmptySection(w.Palettes())
		}
	}
	if upgrade == nil {
		upgrade = NoUpgradeData()
	}
	return chunkBase{
		pos:            pos,
		bottomSection:  w.BottomSectionY(),
		sections:       secs,
		heightmaps:     make(map[HeightmapType]*Heightmap),
		upgrade:        upgrade,
		blending:       blending,
		postProcessing: make([][]int16, n),
		starts:         orderedmap.New[string, StructureStart](),
		references:     orderedmap.New[string, []int64](),
		blockEntities:  orderedmap.New[BlockPos, *tag.Compound](),
		log:            w.Logger(),
	}
}

func (c *chunkBase) base() *chunkBase { return c }

func (c *chunkBase) Pos() ChunkPos { return c.pos }

func (c *chunkBase) Sections() []*ChunkSection { return c.sections }

func (c *chunkBase) BottomSectionY() int32 { return c.bottomSection }

func (c *chunkBase) bottomY() int32 { return c.bottomSection << 4 }

func (c *chunkBase) height() int { return len(c.sections) << 4 }

// SectionIndex maps a section Y to an index into Sections.
func (c *chunkBase) SectionIndex(y int32) int { return int(y - c.bottomSection) }

// BlockState takes x and z local to the chunk and a world y.
func (c *chunkBase) BlockState(x int, y int32, z int) block.StateID {
	i := c.SectionIndex(y >> 4)
	if i < 0 || i >= len(c.sections) {
		return airState
	}
	return c.sections[i].BlockState(x, int(y&15), z)
}

func (c *chunkBase) SetBlockState(x int, y int32, z int, v block.StateID) block.StateID {
	i := c.SectionIndex(y >> 4)
	if i < 0 || i >= len(c.sections) {
		return airState
	}
	return c.sections[i].SetBlockState(x, int(y&15), z, v)
}

func (c *chunkBase) Heightmap(t HeightmapType) (*Heightmap, bool) {
	h, ok := c.heightmaps[t]
	return h, ok
}

// Heightmaps are returned in type order.
func (c *chunkBase) Heightmaps() []*Heightmap {
	out := make([]*Heightmap, 0, len(c.heightmaps))
	for t := WorldSurfaceWG; t <= MotionBlockingNoLeaves; t++ {
		if h, ok := c.heightmaps[t]; ok {
			out = append(out, h)
		}
	}
	return out
}

func (c *chunkBase) heightmapOrNew(t HeightmapType) *Heightmap {
	h, ok := c.heightmaps[t]
	if !ok {
		h = NewHeightmap(t, c.bottomY(), c.height())
		c.heightmaps[t] = h
	}
	return h
}

func (c *chunkBase) InhabitedTime() int64     { return c.inhabitedTime }
func (c *chunkBase) SetInhabitedTime(t int64) { c.inhabitedTime = t }
func (c *chunkBase) LightOn() bool            { return c.lightOn }
func (c *chunkBase) SetLightOn(on bool)       { c.lightOn = on }
func (c *chunkBase) UpgradeData() *UpgradeData {
	return c.upgrade
}

// BlendingData is kept as stored.
func (c *chunkBase) BlendingData() *tag.Compound { return c.blending }

func (c *chunkBase) StructureStarts() *orderedmap.OrderedMap[string, StructureStart] {
	return c.starts
}

func (c *chunkBase) SetStructureStarts(m *orderedmap.OrderedMap[string, StructureStart]) {
	c.starts = m
}

func (c *chunkBase) StructureReferences() *orderedmap.OrderedMap[string, []int64] {
	return c.references
}

func (c *chunkBase) SetStructureReferences(m *orderedmap.OrderedMap[string, []int64]) {
	c.references = m
}

// MarkForPostProcessing queues packed local positions of one section.
func (c *chunkBase) MarkForPostProcessing(packed []int16, section int) {
	if section < 0 || section >= len(c.postProcessing) {
		return
	}
	c.postProcessing[section] = append(c.postProcessing[section], packed...)
}

func (c *chunkBase) PostProcessing() [][]int16 { return c.postProcessing }

func (c *chunkBase) SetBlockEntity(pos BlockPos, nbt *tag.Compound) {
	c.blockEntities.Set(pos, nbt)
}

func (c *chunkBase) BlockEntity(pos BlockPos) (*tag.Compound, bool) {
	return c.blockEntities.Get(pos)
}

// BlockEntityPositions lists positions in insertion order.
func (c *chunkBase) BlockEntityPositions() []BlockPos {
	out := make([]BlockPos, 0, c.blockEntities.Len())
	for p := c.blockEntities.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// PackedBlockEntity returns the stored compound of a block entity with its
// position written into it.
func (c *chunkBase) PackedBlockEntity(pos BlockPos) *tag.Compound {
	nbt, ok := c.blockEntities.Get(pos)
	if !ok {
		return nil
	}
	out := nbt.CopyCompound()
	out.PutInt("x", pos.X)
	out.PutInt("y", pos.Y)
	out.PutInt("z", pos.Z)
	return out
}

// SetHeightmap loads stored heightmap longs. Data of the wrong length is
// dropped and the heightmap recomputed.
func (c *chunkBase) SetHeightmap(t HeightmapType, raw []int64) {
	h := c.heightmapOrNew(t)
	if want := len(h.storage.Raw()); want != len(raw) {
		c.log.Warn("Ignoring invalid heightmap data for chunk %v, size does not match; expected: %d, got: %d", c.pos, want, len(raw))
		c.populateHeightmaps([]HeightmapType{t})
		return
	}
	if err := h.SetTo(raw); err != nil {
		c.log.Warn("Ignoring invalid heightmap data for chunk %v: %v", c.pos, err)
		c.populateHeightmaps([]HeightmapType{t})
	}
}

func blockEntityPos(nbt *tag.Compound) BlockPos {
	return BlockPos{X: nbt.GetInt("x"), Y: nbt.GetInt("y"), Z: nbt.GetInt("z")}
}

// WorldChunk is a fully generated chunk.
type WorldChunk struct {
	chunkBase

	blockTicks []scheduledTick
	fluidTicks []scheduledTick

	loader         func(c *WorldChunk)
	unserializable bool
}

func NewWorldChunk(w World, pos ChunkPos, upgrade *UpgradeData, ticks TickSchedulers, inhabitedTime int64, sections []*ChunkSection, blending *tag.Compound) *WorldChunk {
	c := &WorldChunk{chunkBase: newChunkBase(w, pos, upgrade, sections, blending)}
	c.inhabitedTime = inhabitedTime
	now := w.Time()
	c.blockTicks = schedule(ticks.Blocks, now)
	c.fluidTicks = schedule(ticks.Fluids, now)
	return c
}

// NewEmptyChunk is an unserializable placeholder.
func NewEmptyChunk(w World, pos ChunkPos) *WorldChunk {
	c := NewWorldChunk(w, pos, nil, TickSchedulers{}, 0, nil, nil)
	c.unserializable = true
	return c
}

func (c *WorldChunk) Status() ChunkStatus { return StatusFull }

func (c *WorldChunk) Serializable() bool { return !c.unserializable }

func (c *WorldChunk) Ticks(now int64) TickSchedulers {
	return TickSchedulers{Blocks: collect(c.blockTicks, now), Fluids: collect(c.fluidTicks, now)}
}

// RunPostLoad runs the entity loader once.
func (c *WorldChunk) RunPostLoad() {
	if c.loader != nil {
		c.loader(c)
		c.loader = nil
	}
}

// ProtoChunk is a chunk still going through generation.
type ProtoChunk struct {
	chunkBase

	status      ChunkStatus
	ticks       TickSchedulers
	entities    []*tag.Compound
	entityIDs   map[uuid.UUID]int
	pending     *orderedmap.OrderedMap[BlockPos, *tag.Compound]
	carvingMask *CarvingMask
	retrogen    *BelowZeroRetrogen
	lighting    LightingProvider
}

func NewProtoChunk(w World, pos ChunkPos, upgrade *UpgradeData, sections []*ChunkSection, ticks TickSchedulers, blending *tag.Compound) *ProtoChunk {
	return &ProtoChunk{
		chunkBase: newChunkBase(w, pos, upgrade, sections, blending),
		status:    StatusEmpty,
		ticks:     ticks,
		entityIDs: make(map[uuid.UUID]int),
		pending:   orderedmap.New[BlockPos, *tag.Compound](),
	}
}

func (c *ProtoChunk) Status() ChunkStatus        { return c.status }
func (c *ProtoChunk) SetStatus(s ChunkStatus)    { c.status = s }
func (c *ProtoChunk) Serializable() bool         { return true }
func (c *ProtoChunk) Ticks(int64) TickSchedulers { return c.ticks }
func (c *ProtoChunk) Lighting() LightingProvider { return c.lighting }

func (c *ProtoChunk) SetLighting(l LightingProvider) { c.lighting = l }

func (c *ProtoChunk) BelowZeroRetrogen() *BelowZeroRetrogen { return c.retrogen }
func (c *ProtoChunk) SetBelowZeroRetrogen(r *BelowZeroRetrogen) {
	c.retrogen = r
}

// AddEntity stores an entity compound. An entity with the UUID of one
// already present replaces it.
func (c *ProtoChunk) AddEntity(nbt *tag.Compound) {
	if id, ok := entityUUID(nbt); ok {
		if i, dup := c.entityIDs[id]; dup {
			c.entities[i] = nbt
			return
		}
		c.entityIDs[id] = len(c.entities)
	}
	c.entities = append(c.entities, nbt)
}

func (c *ProtoChunk) Entities() []*tag.Compound { return c.entities }

func entityUUID(nbt *tag.Compound) (uuid.UUID, bool) {
	ints, ok := nbt.GetIntArray("UUID")
	if !ok || len(ints) != 4 {
		return uuid.UUID{}, false
	}
	var b [16]byte
	for i, v := range ints {
		binary.BigEndian.PutUint32(b[i*4:], uint32(v))
	}
	id, err := uuid.FromBytes(b[:])
	return id, err == nil
}

// AddPendingBlockEntity stores a block entity that is not yet attached to
// a block.
func (c *ProtoChunk) AddPendingBlockEntity(nbt *tag.Compound) {
	c.pending.Set(blockEntityPos(nbt), nbt)
}

// BlockEntityPositions includes pending block entities.
func (c *ProtoChunk) BlockEntityPositions() []BlockPos {
	out := c.chunkBase.BlockEntityPositions()
	for p := c.pending.Oldest(); p != nil; p = p.Next() {
		if _, ok := c.blockEntities.Get(p.Key); !ok {
			out = append(out, p.Key)
		}
	}
	return out
}

func (c *ProtoChunk) PackedBlockEntity(pos BlockPos) *tag.Compound {
	if nbt, ok := c.pending.Get(pos); ok {
		if _, live := c.blockEntities.Get(pos); !live {
			return nbt
		}
	}
	return c.chunkBase.PackedBlockEntity(pos)
}

func (c *ProtoChunk) CarvingMask() *CarvingMask     { return c.carvingMask }
func (c *ProtoChunk) SetCarvingMask(m *CarvingMask) { c.carvingMask = m }

// CarvingMask marks the blocks a carver removed. Bit index is
// x | z<<4 | (y-bottomY)<<8.
type CarvingMask struct {
	words   []uint64
	bottomY int32
}

func NewCarvingMask(height int, bottomY int32) *CarvingMask {
	return &CarvingMask{words: make([]uint64, (height*256+63)/64), bottomY: bottomY}
}

func CarvingMaskFrom(mask []int64, bottomY int32) *CarvingMask {
	words := make([]uint64, len(mask))
	for i, v := range mask {
		words[i] = uint64(v)
	}
	return &CarvingMask{words: words, bottomY: bottomY}
}

func (m *CarvingMask) index(x int, y int32, z int) int {
	return x&15 | (z&15)<<4 | int(y-m.bottomY)<<8
}

func (m *CarvingMask) Set(x int, y int32, z int) {
	i := m.index(x, y, z)
	for i>>6 >= len(m.words) {
		m.words = append(m.words, 0)
	}
	m.words[i>>6] |= 1 << (i & 63)
}

func (m *CarvingMask) Get(x int, y int32, z int) bool {
	i := m.index(x, y, z)
	if i < 0 || i>>6 >= len(m.words) {
		return false
	}
	return m.words[i>>6]&(1<<(i&63)) != 0
}

// Mask returns the bits as longs without trailing zero words.
func (m *CarvingMask) Mask() []int64 {
	n := len(m.words)
	for n > 0 && m.words[n-1] == 0 {
		n--
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(m.words[i])
	}
	return out
}

// BelowZeroRetrogen marks chunks generated before the world was extended
// below y=0.
type BelowZeroRetrogen struct {
	TargetStatus   ChunkStatus
	MissingBedrock []int64
}

func (r *BelowZeroRetrogen) Nbt() *tag.Compound {
	c := tag.NewCompound()
	c.PutString("target_status", string(r.TargetStatus))
	if len(r.MissingBedrock) > 0 {
		c.PutLongArray("missing_bedrock", r.MissingBedrock)
	}
	return c
}

func ReadBelowZeroRetrogen(c *tag.Compound) (*BelowZeroRetrogen, error) {
	s := c.GetString("target_status")
	if s == "" {
		return nil, errors.New("below_zero_retrogen: missing target_status")
	}
	r := &BelowZeroRetrogen{TargetStatus: ParseStatus(s)}
	r.MissingBedrock, _ = c.GetLongArray("missing_bedrock")
	return r, nil
}

// UpgradeData holds block positions still to be fixed after a format
// upgrade.
type UpgradeData struct {
	Indices            map[int][]int32
	Sides              int8
	NeighborBlockTicks []string
	NeighborFluidTicks []string
}

func NoUpgradeData() *UpgradeData {
	return &UpgradeData{Indices: map[int][]int32{}}
}

func ReadUpgradeData(c *tag.Compound, sectionCount int) *UpgradeData {
	u := NoUpgradeData()
	if idx, ok := c.GetCompound("Indices"); ok {
		for i := 0; i < sectionCount; i++ {
			if v, ok := idx.GetIntArray(strconv.Itoa(i)); ok {
				u.Indices[i] = v
			}
		}
	}
	u.Sides = int8(c.GetInt("Sides"))
	if l, ok := c.GetList("neighbor_block_ticks", tag.TagString); ok {
		u.NeighborBlockTicks, _ = tag.DecodeList[string](tag.StringCodec{}, l)
	}
	if l, ok := c.GetList("neighbor_fluid_ticks", tag.TagString); ok {
		u.NeighborFluidTicks, _ = tag.DecodeList[string](tag.StringCodec{}, l)
	}
	return u
}

func (u *UpgradeData) IsDone() bool {
	for _, v := range u.Indices {
		if len(v) > 0 {
			return false
		}
	}
	return u.Sides == 0 && len(u.NeighborBlockTicks) == 0 && len(u.NeighborFluidTicks) == 0
}

func (u *UpgradeData) Copy() *UpgradeData {
	c := &UpgradeData{
		Indices:            make(map[int][]int32, len(u.Indices)),
		Sides:              u.Sides,
		NeighborBlockTicks: append([]string(nil), u.NeighborBlockTicks...),
		NeighborFluidTicks: append([]string(nil), u.NeighborFluidTicks...),
	}
	for k, v := range u.Indices {
		c.Indices[k] = append([]int32(nil), v...)
	}
	return c
}

func (u *UpgradeData) Nbt() *tag.Compound {
	c := tag.NewCompound()
	idx := tag.NewCompound()
	keys := make([]int, 0, len(u.Indices))
	for k := range u.Indices {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if v := u.Indices[k]; len(v) > 0 {
			idx.PutIntArray(strconv.Itoa(k), v)
		}
	}
	if !idx.IsEmpty() {
		c.Put("Indices", idx)
	}
	c.PutByte("Sides", u.Sides)
	putIDs(c, "neighbor_block_ticks", u.NeighborBlockTicks)
	putIDs(c, "neighbor_fluid_ticks", u.NeighborFluidTicks)
	return c
}

func putIDs(c *tag.Compound, key string, ids []string) {
	if len(ids) == 0 {
		return
	}
	if l, err := tag.EncodeList[string](tag.StringCodec{}, ids); err == nil {
		c.Put(key, l)
	}
}

// StructureStart is the stored start of one structure. Its pieces are
// kept as stored.
type StructureStart struct {
	ID   string
	Data *tag.Compound
}

const invalidStart = "INVALID"

func (s StructureStart) Nbt() *tag.Compound {
	if s.Data == nil {
		c := tag.NewCompound()
		c.PutString("id", invalidStart)
		return c
	}
	return s.Data
}
