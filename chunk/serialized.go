package chunk

import (
	"fmt"

	"github.com/Tnze/go-mc/level/biome"
	"github.com/Tnze/go-mc/level/block"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dynamitemc/chunkstore/level"
	"github.com/dynamitemc/chunkstore/logger"
	"github.com/dynamitemc/chunkstore/tag"
)

// SectionData is one stored section. Section is nil for sections outside
// the world height that only carry light.
type SectionData struct {
	Y          int32
	Section    *ChunkSection
	BlockLight *NibbleArray
	SkyLight   *NibbleArray
}

// SerializedChunk is the stored form of a chunk, between the tag tree and
// a live Chunk.
type SerializedChunk struct {
	Palettes          *PalettesFactory
	Pos               ChunkPos
	MinSectionY       int32
	LastUpdate        int64
	InhabitedTime     int64
	Status            ChunkStatus
	BlendingData      *tag.Compound
	BelowZeroRetrogen *BelowZeroRetrogen
	UpgradeData       *UpgradeData
	CarvingMask       []int64
	Heightmaps        map[HeightmapType][]int64
	Ticks             TickSchedulers
	PostProcessing    [][]int16
	LightCorrect      bool
	Sections          []SectionData
	Entities          []*tag.Compound
	BlockEntities     []*tag.Compound
	Structures        *tag.Compound
	DataVersion       int32
}

// FromNbt reads a stored chunk. It returns nil when the data has no status,
// meaning no chunk was ever saved there. Broken sections are logged and
// replaced so the rest of the chunk still loads.
func FromNbt(w World, f *PalettesFactory, nbt *tag.Compound) *SerializedChunk {
	if nbt.GetString("Status") == "" {
		return nil
	}
	log := w.Logger()
	pos := ChunkPos{nbt.GetInt("xPos"), nbt.GetInt("zPos")}
	status := ParseStatus(nbt.GetString("Status"))

	sc := &SerializedChunk{
		Palettes:      f,
		Pos:           pos,
		MinSectionY:   w.BottomSectionY(),
		LastUpdate:    nbt.GetLong("LastUpdate"),
		InhabitedTime: nbt.GetLong("InhabitedTime"),
		Status:        status,
		UpgradeData:   NoUpgradeData(),
		Heightmaps:    make(map[HeightmapType][]int64),
		LightCorrect:  nbt.GetBool("isLightOn"),
		Structures:    tag.NewCompound(),
		DataVersion:   nbt.GetInt("DataVersion"),
	}
	if u, ok := nbt.GetCompound("UpgradeData"); ok {
		sc.UpgradeData = ReadUpgradeData(u, w.SectionCount())
	}
	if b, ok := nbt.GetCompound("blending_data"); ok {
		sc.BlendingData = b.CopyCompound()
	}
	if r, ok := nbt.GetCompound("below_zero_retrogen"); ok {
		if retrogen, err := ReadBelowZeroRetrogen(r); err == nil {
			sc.BelowZeroRetrogen = retrogen
		}
	}
	if mask, ok := nbt.GetLongArray("carving_mask"); ok {
		sc.CarvingMask = mask
	}
	if hm, ok := nbt.GetCompound("Heightmaps"); ok {
		for _, t := range status.HeightmapTypes() {
			if raw, ok := hm.GetLongArray(t.String()); ok {
				sc.Heightmaps[t] = raw
			}
		}
	}
	sc.Ticks = TickSchedulers{
		Blocks: filterTicks(readTicks(log, nbt, "block_ticks"), pos),
		Fluids: filterTicks(readTicks(log, nbt, "fluid_ticks"), pos),
	}
	if pp, ok := nbt.GetList("PostProcessing", tag.TagList); ok {
		sc.PostProcessing = make([][]int16, pp.Len())
		pp.Each(func(i int, t tag.Tag) {
			l := t.(*tag.List)
			if l.Len() == 0 || l.Elem() != tag.TagShort {
				return
			}
			packed := make([]int16, l.Len())
			l.Each(func(j int, v tag.Tag) { packed[j] = int16(v.(tag.Short)) })
			sc.PostProcessing[i] = packed
		})
	}
	sc.Entities = compounds(nbt, "entities")
	sc.BlockEntities = compounds(nbt, "block_entities")
	if s, ok := nbt.GetCompound("structures"); ok {
		sc.Structures = s
	}

	bottom := w.BottomSectionY()
	top := bottom + int32(w.SectionCount()) - 1
	if sections, ok := nbt.GetList("sections", tag.TagCompound); ok {
		for _, sec := range sections.Compounds() {
			y := int32(sec.GetByte("Y"))
			data := SectionData{Y: y}
			if y >= bottom && y <= top {
				data.Section = readSection(log, f, pos, y, sec)
			}
			data.BlockLight = readLight(log, sec, "BlockLight", pos, y)
			data.SkyLight = readLight(log, sec, "SkyLight", pos, y)
			sc.Sections = append(sc.Sections, data)
		}
	}
	return sc
}

func readSection(log *logger.Logger, f *PalettesFactory, pos ChunkPos, y int32, sec *tag.Compound) *ChunkSection {
	var states *level.PalettedContainer[block.StateID]
	if t, ok := sec.Get("block_states"); ok {
		c, err := f.BlockStatesCodec.Decode(t)
		if err != nil {
			logRecoverableError(log, pos, y, err)
		}
		states = c
	}
	if states == nil {
		states = f.BlockStateContainer()
	}

	var biomes level.ReadableContainer[biome.Type]
	if t, ok := sec.Get("biomes"); ok {
		c, err := f.BiomesCodec.Decode(t)
		if err != nil {
			logRecoverableError(log, pos, y, err)
		}
		if c != nil {
			biomes = c
		}
	}
	if biomes == nil {
		biomes = f.BiomeContainer()
	}
	return NewChunkSection(states, biomes)
}

func logRecoverableError(log *logger.Logger, pos ChunkPos, y int32, err error) {
	log.Error("Recoverable errors when loading section [%d, %d, %d]: %v", pos.X(), y, pos.Z(), err)
}

func readLight(log *logger.Logger, sec *tag.Compound, key string, pos ChunkPos, y int32) *NibbleArray {
	data, ok := sec.GetByteArray(key)
	if !ok {
		return nil
	}
	n, err := NibbleArrayFrom(data)
	if err != nil {
		log.Warn("Dropping %s of section [%d, %d, %d]: %v", key, pos.X(), y, pos.Z(), err)
		return nil
	}
	return n
}

func readTicks(log *logger.Logger, nbt *tag.Compound, key string) []Tick {
	l, ok := nbt.GetList(key, tag.TagCompound)
	if !ok {
		return nil
	}
	ticks, err := tag.DecodeList[Tick](TickCodec{}, l)
	if err != nil {
		log.Debug("Skipping malformed %s: %v", key, err)
	}
	return ticks
}

func compounds(nbt *tag.Compound, key string) []*tag.Compound {
	l, ok := nbt.GetList(key, tag.TagCompound)
	if !ok {
		return nil
	}
	return l.Compounds()
}

// Convert builds the live chunk. A chunk whose data names another position
// is still loaded at expected, after the world is told about it.
func (sc *SerializedChunk) Convert(w World, poi PointOfInterestStorage, key StorageKey, expected ChunkPos) Chunk {
	log := w.Logger()
	if expected != sc.Pos {
		log.Error("Chunk file at %v is in the wrong location; relocating. (Expected %v, got %v)", expected, expected, sc.Pos)
		w.OnChunkMisplacement(sc.Pos, expected, key)
	}

	sections := make([]*ChunkSection, w.SectionCount())
	skyLight := w.HasSkyLight()
	lighting := w.Lighting()
	retained := false
	for _, data := range sc.Sections {
		spos := SectionPosOf(expected, data.Y)
		if i := int(data.Y - w.BottomSectionY()); data.Section != nil && i >= 0 && i < len(sections) {
			sections[i] = data.Section
			if poi != nil {
				poi.InitForPalette(spos, data.Section)
			}
		}
		hasBlock := data.BlockLight != nil
		hasSky := skyLight && data.SkyLight != nil
		if !hasBlock && !hasSky {
			continue
		}
		if !retained {
			lighting.SetRetainData(expected, true)
			retained = true
		}
		if hasBlock {
			lighting.EnqueueSectionData(BlockLight, spos, data.BlockLight)
		}
		if hasSky {
			lighting.EnqueueSectionData(SkyLight, spos, data.SkyLight)
		}
	}

	var c Chunk
	if sc.Status.ChunkType() == LevelChunkType {
		wc := NewWorldChunk(w, expected, sc.UpgradeData, sc.Ticks, sc.InhabitedTime, sections, sc.BlendingData)
		wc.loader = entityLoader(w, sc.Entities, sc.BlockEntities)
		c = wc
	} else {
		pc := NewProtoChunk(w, expected, sc.UpgradeData, sections, sc.Ticks, sc.BlendingData)
		pc.SetInhabitedTime(sc.InhabitedTime)
		if sc.BelowZeroRetrogen != nil {
			pc.SetBelowZeroRetrogen(sc.BelowZeroRetrogen)
		}
		pc.SetStatus(sc.Status)
		if sc.Status.IsAtLeast(StatusInitializeLight) {
			pc.SetLighting(lighting)
		}
		c = pc
	}
	b := c.base()
	b.SetLightOn(sc.LightCorrect)

	var missing []HeightmapType
	for _, t := range c.Status().HeightmapTypes() {
		if raw, ok := sc.Heightmaps[t]; ok {
			b.SetHeightmap(t, raw)
		} else {
			missing = append(missing, t)
		}
	}
	b.populateHeightmaps(missing)

	b.SetStructureStarts(readStructureStarts(log, w.Structures(), sc.Structures))
	b.SetStructureReferences(readStructureReferences(log, w.Structures(), expected, sc.Structures))

	for i, packed := range sc.PostProcessing {
		if packed != nil {
			b.MarkForPostProcessing(packed, i)
		}
	}

	if pc, ok := c.(*ProtoChunk); ok {
		for _, e := range sc.Entities {
			pc.AddEntity(e)
		}
		for _, be := range sc.BlockEntities {
			pc.AddPendingBlockEntity(be)
		}
		if sc.CarvingMask != nil {
			pc.SetCarvingMask(CarvingMaskFrom(sc.CarvingMask, b.bottomY()))
		}
	}
	return c
}

// entityLoader hands entities to the world and attaches block entities
// once the chunk is live.
func entityLoader(w World, entities, blockEntities []*tag.Compound) func(*WorldChunk) {
	if len(entities) == 0 && len(blockEntities) == 0 {
		return nil
	}
	return func(c *WorldChunk) {
		if len(entities) > 0 {
			w.LoadEntities(entities)
		}
		for _, be := range blockEntities {
			pos := blockEntityPos(be)
			pos.X = c.pos.X()<<4 | pos.X&15
			pos.Z = c.pos.Z()<<4 | pos.Z&15
			c.SetBlockEntity(pos, be)
		}
	}
}

func readStructureStarts(log *logger.Logger, reg StructureRegistry, structures *tag.Compound) *orderedmap.OrderedMap[string, StructureStart] {
	out := orderedmap.New[string, StructureStart]()
	starts, ok := structures.GetCompound("starts")
	if !ok {
		return out
	}
	starts.Each(func(id string, t tag.Tag) {
		id = namespaced(id)
		if !reg.Contains(id) {
			log.Error("Unknown structure start: %s", id)
			return
		}
		data, ok := t.(*tag.Compound)
		if !ok || data.GetString("id") == invalidStart {
			return
		}
		out.Set(id, StructureStart{ID: id, Data: data})
	})
	return out
}

func readStructureReferences(log *logger.Logger, reg StructureRegistry, pos ChunkPos, structures *tag.Compound) *orderedmap.OrderedMap[string, []int64] {
	out := orderedmap.New[string, []int64]()
	refs, ok := structures.GetCompound("References")
	if !ok {
		return out
	}
	refs.Each(func(id string, t tag.Tag) {
		id = namespaced(id)
		if !reg.Contains(id) {
			log.Warn("Found reference to unknown structure '%s' in chunk %v, discarding", id, pos)
			return
		}
		packed, ok := t.(tag.LongArray)
		if !ok {
			return
		}
		kept := make([]int64, 0, len(packed))
		for _, l := range packed {
			ref := UnpackChunkPos(l)
			if ref.ChebyshevDistance(pos) > 8 {
				log.Warn("Found invalid structure reference [ %s @ %v ] for chunk %v.", id, ref, pos)
				continue
			}
			kept = append(kept, l)
		}
		out.Set(id, kept)
	})
	return out
}

// FromChunk captures a live chunk for saving. It panics with
// ErrUnserializable when c is a placeholder.
func FromChunk(w World, c Chunk) *SerializedChunk {
	if !c.Serializable() {
		panic(fmt.Errorf("%w: %v", ErrUnserializable, c.Pos()))
	}
	b := c.base()
	pos := c.Pos()
	sections := c.Sections()
	lighting := w.Lighting()

	var data []SectionData
	for y := lighting.BottomY(); y < lighting.TopY(); y++ {
		i := b.SectionIndex(y)
		inWorld := i >= 0 && i < len(sections)
		spos := SectionPosOf(pos, y)
		blockLight := initializedCopy(lighting.LightSection(BlockLight, spos))
		skyLight := initializedCopy(lighting.LightSection(SkyLight, spos))
		if !inWorld && blockLight == nil && skyLight == nil {
			continue
		}
		sd := SectionData{Y: y, BlockLight: blockLight, SkyLight: skyLight}
		if inWorld {
			sd.Section = sections[i].Copy()
		}
		data = append(data, sd)
	}

	var blockEntities []*tag.Compound
	for _, p := range c.BlockEntityPositions() {
		if nbt := c.PackedBlockEntity(p); nbt != nil {
			blockEntities = append(blockEntities, nbt)
		}
	}

	var (
		entities    []*tag.Compound
		carvingMask []int64
		retrogen    *BelowZeroRetrogen
	)
	if pc, ok := c.(*ProtoChunk); ok {
		entities = append(entities, pc.Entities()...)
		if pc.CarvingMask() != nil {
			carvingMask = pc.CarvingMask().Mask()
		}
		retrogen = pc.BelowZeroRetrogen()
	}

	heightmaps := make(map[HeightmapType][]int64)
	for _, h := range b.Heightmaps() {
		if c.Status().hasHeightmap(h.Type()) {
			heightmaps[h.Type()] = h.Longs()
		}
	}

	post := make([][]int16, len(b.postProcessing))
	for i, l := range b.postProcessing {
		if len(l) > 0 {
			post[i] = append([]int16(nil), l...)
		}
	}

	return &SerializedChunk{
		Palettes:          w.Palettes(),
		Pos:               pos,
		MinSectionY:       b.BottomSectionY(),
		LastUpdate:        w.Time(),
		InhabitedTime:     b.InhabitedTime(),
		Status:            c.Status(),
		BlendingData:      b.BlendingData(),
		BelowZeroRetrogen: retrogen,
		UpgradeData:       b.UpgradeData().Copy(),
		CarvingMask:       carvingMask,
		Heightmaps:        heightmaps,
		Ticks:             c.Ticks(w.Time()),
		PostProcessing:    post,
		LightCorrect:      b.LightOn(),
		Sections:          data,
		Entities:          entities,
		BlockEntities:     blockEntities,
		Structures:        writeStructures(b),
		DataVersion:       w.DataVersion(),
	}
}

func initializedCopy(n *NibbleArray) *NibbleArray {
	if n.IsUninitialized() {
		return nil
	}
	return n.Copy()
}

func writeStructures(b *chunkBase) *tag.Compound {
	out := tag.NewCompound()
	starts := tag.NewCompound()
	for p := b.starts.Oldest(); p != nil; p = p.Next() {
		starts.Put(p.Key, p.Value.Nbt())
	}
	out.Put("starts", starts)
	refs := tag.NewCompound()
	for p := b.references.Oldest(); p != nil; p = p.Next() {
		if len(p.Value) > 0 {
			refs.PutLongArray(p.Key, p.Value)
		}
	}
	out.Put("References", refs)
	return out
}

// Serialize writes the chunk tag tree.
func (sc *SerializedChunk) Serialize() (*tag.Compound, error) {
	out := tag.NewCompound()
	out.PutInt("DataVersion", sc.DataVersion)
	out.PutInt("xPos", sc.Pos.X())
	out.PutInt("yPos", sc.MinSectionY)
	out.PutInt("zPos", sc.Pos.Z())
	out.PutLong("LastUpdate", sc.LastUpdate)
	out.PutLong("InhabitedTime", sc.InhabitedTime)
	out.PutString("Status", string(sc.Status))
	if sc.BlendingData != nil {
		out.Put("blending_data", sc.BlendingData)
	}
	if sc.BelowZeroRetrogen != nil {
		out.Put("below_zero_retrogen", sc.BelowZeroRetrogen.Nbt())
	}
	if sc.UpgradeData != nil && !sc.UpgradeData.IsDone() {
		out.Put("UpgradeData", sc.UpgradeData.Nbt())
	}

	sections := tag.NewList(tag.TagCompound)
	for _, data := range sc.Sections {
		sec := tag.NewCompound()
		if data.Section != nil {
			states, err := sc.Palettes.BlockStatesCodec.Encode(data.Section.States)
			if err != nil {
				return nil, fmt.Errorf("section %d block_states: %w", data.Y, err)
			}
			biomes, err := sc.Palettes.BiomesCodec.Encode(data.Section.Biomes)
			if err != nil {
				return nil, fmt.Errorf("section %d biomes: %w", data.Y, err)
			}
			sec.Put("block_states", states)
			sec.Put("biomes", biomes)
		}
		if data.BlockLight != nil {
			sec.PutByteArray("BlockLight", data.BlockLight.Bytes())
		}
		if data.SkyLight != nil {
			sec.PutByteArray("SkyLight", data.SkyLight.Bytes())
		}
		if !sec.IsEmpty() {
			sec.PutByte("Y", int8(data.Y))
			sections.Add(sec)
		}
	}
	out.Put("sections", sections)
	if sc.LightCorrect {
		out.PutBool("isLightOn", true)
	}

	out.Put("block_entities", compoundList(sc.BlockEntities))
	if sc.Status.ChunkType() == ProtoChunkType {
		out.Put("entities", compoundList(sc.Entities))
		if sc.CarvingMask != nil {
			out.PutLongArray("carving_mask", sc.CarvingMask)
		}
	}

	for _, t := range []struct {
		key   string
		ticks []Tick
	}{{"block_ticks", sc.Ticks.Blocks}, {"fluid_ticks", sc.Ticks.Fluids}} {
		l, err := tag.EncodeList[Tick](TickCodec{}, t.ticks)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.key, err)
		}
		out.Put(t.key, l)
	}

	post := tag.NewList(tag.TagList)
	for _, packed := range sc.PostProcessing {
		l := tag.NewList(tag.TagShort)
		for _, v := range packed {
			l.Add(tag.Short(v))
		}
		post.Add(l)
	}
	out.Put("PostProcessing", post)

	heightmaps := tag.NewCompound()
	for t := WorldSurfaceWG; t <= MotionBlockingNoLeaves; t++ {
		if raw, ok := sc.Heightmaps[t]; ok {
			heightmaps.PutLongArray(t.String(), raw)
		}
	}
	out.Put("Heightmaps", heightmaps)
	if sc.Structures != nil {
		out.Put("structures", sc.Structures)
	} else {
		out.Put("structures", tag.NewCompound())
	}
	return out, nil
}

func compoundList(cs []*tag.Compound) *tag.List {
	l := tag.NewList(tag.TagCompound)
	for _, c := range cs {
		l.Add(c)
	}
	return l
}
