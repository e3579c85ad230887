package chunk

import (
	"strings"
	"sync"

	"github.com/Tnze/go-mc/level/block"

	"github.com/dynamitemc/chunkstore/logger"
	"github.com/dynamitemc/chunkstore/tag"
)

// World is the level a chunk is loaded into.
type World interface {
	BottomSectionY() int32
	SectionCount() int
	HasSkyLight() bool
	// Time is the current game time in ticks.
	Time() int64
	DataVersion() int32
	Palettes() *PalettesFactory
	Lighting() LightingProvider
	Structures() StructureRegistry
	// LoadEntities receives the entities of a chunk once it is live.
	LoadEntities(entities []*tag.Compound)
	// OnChunkMisplacement is called when a chunk is read from a slot other
	// than the one its data names.
	OnChunkMisplacement(actual, expected ChunkPos, key StorageKey)
	Logger() *logger.Logger
}

// StorageKey names the storage a chunk was read from.
type StorageKey struct {
	Level     string
	Dimension string
	Type      string
}

func (k StorageKey) String() string {
	return k.Level + "/" + k.Dimension + "/" + k.Type
}

type LightType int

const (
	BlockLight LightType = iota
	SkyLight
)

// LightingProvider receives the light arrays of loaded sections.
type LightingProvider interface {
	SetRetainData(pos ChunkPos, retain bool)
	EnqueueSectionData(t LightType, pos SectionPos, data *NibbleArray)
	LightSection(t LightType, pos SectionPos) *NibbleArray
	// BottomY and TopY bound the light sections in section coordinates,
	// TopY exclusive.
	BottomY() int32
	TopY() int32
}

// MemoryLighting keeps light arrays in maps. Its range is one section
// wider than the world on each side.
type MemoryLighting struct {
	bottom, top int32

	mu     sync.Mutex
	retain map[ChunkPos]bool
	light  [2]map[SectionPos]*NibbleArray
}

func NewMemoryLighting(bottomSection int32, sectionCount int) *MemoryLighting {
	return &MemoryLighting{
		bottom: bottomSection - 1,
		top:    bottomSection + int32(sectionCount) + 1,
		retain: make(map[ChunkPos]bool),
		light:  [2]map[SectionPos]*NibbleArray{{}, {}},
	}
}

func (m *MemoryLighting) BottomY() int32 { return m.bottom }
func (m *MemoryLighting) TopY() int32    { return m.top }

func (m *MemoryLighting) SetRetainData(pos ChunkPos, retain bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if retain {
		m.retain[pos] = true
	} else {
		delete(m.retain, pos)
	}
}

func (m *MemoryLighting) Retained(pos ChunkPos) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retain[pos]
}

// Unload forgets a chunk column, including its retained light.
func (m *MemoryLighting) Unload(pos ChunkPos) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.retain, pos)
	for y := m.bottom; y < m.top; y++ {
		delete(m.light[BlockLight], SectionPosOf(pos, y))
		delete(m.light[SkyLight], SectionPosOf(pos, y))
	}
}

func (m *MemoryLighting) EnqueueSectionData(t LightType, pos SectionPos, data *NibbleArray) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data == nil {
		delete(m.light[t], pos)
		return
	}
	m.light[t][pos] = data
}

func (m *MemoryLighting) LightSection(t LightType, pos SectionPos) *NibbleArray {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.light[t][pos]
}

// PointOfInterestStorage is told about every section loaded from disk.
type PointOfInterestStorage interface {
	InitForPalette(pos SectionPos, s *ChunkSection)
}

// PoiIndex records the sections holding any point of interest block.
type PoiIndex struct {
	mu       sync.Mutex
	sections map[SectionPos]bool
}

func NewPoiIndex() *PoiIndex {
	return &PoiIndex{sections: make(map[SectionPos]bool)}
}

var poiSuffixes = []string{
	"_bed", "barrel", "blast_furnace", "brewing_stand", "cartography_table",
	"cauldron", "composter", "fletching_table", "grindstone", "lectern", "loom",
	"smithing_table", "smoker", "stonecutter", "bell", "beehive", "bee_nest",
	"nether_portal", "lodestone", "lightning_rod",
}

func isPoi(s block.StateID) bool {
	if s < 0 || int(s) >= len(block.StateList) {
		return false
	}
	id := block.StateList[s].ID()
	for _, suf := range poiSuffixes {
		if strings.HasSuffix(id, suf) {
			return true
		}
	}
	return false
}

func (p *PoiIndex) InitForPalette(pos SectionPos, s *ChunkSection) {
	if !s.States.HasAny(isPoi) {
		return
	}
	p.mu.Lock()
	p.sections[pos] = true
	p.mu.Unlock()
}

func (p *PoiIndex) Has(pos SectionPos) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sections[pos]
}

// StructureRegistry resolves structure ids.
type StructureRegistry interface {
	Contains(id string) bool
}

// StructureSet is a fixed set of namespaced structure ids.
type StructureSet map[string]struct{}

func NewStructureSet(ids ...string) StructureSet {
	s := make(StructureSet, len(ids))
	for _, id := range ids {
		s[namespaced(id)] = struct{}{}
	}
	return s
}

func (s StructureSet) Contains(id string) bool {
	_, ok := s[namespaced(id)]
	return ok
}

func namespaced(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return "minecraft:" + id
}

// VanillaStructures are the structures of an unmodified game.
var VanillaStructures = NewStructureSet(
	"pillager_outpost", "mineshaft", "mineshaft_mesa", "mansion", "jungle_pyramid",
	"desert_pyramid", "igloo", "shipwreck", "shipwreck_beached", "swamp_hut",
	"stronghold", "monument", "ocean_ruin_cold", "ocean_ruin_warm", "fortress",
	"nether_fossil", "end_city", "buried_treasure", "bastion_remnant", "village_plains",
	"village_desert", "village_savanna", "village_snowy", "village_taiga",
	"ruined_portal", "ruined_portal_desert", "ruined_portal_jungle",
	"ruined_portal_swamp", "ruined_portal_mountain", "ruined_portal_ocean",
	"ruined_portal_nether", "ancient_city", "trail_ruins", "trial_chambers",
)
