package chunk

import "strings"

type ChunkStatus string

const (
	StatusEmpty               ChunkStatus = "minecraft:empty"
	StatusStructureStarts     ChunkStatus = "minecraft:structure_starts"
	StatusStructureReferences ChunkStatus = "minecraft:structure_references"
	StatusBiomes              ChunkStatus = "minecraft:biomes"
	StatusNoise               ChunkStatus = "minecraft:noise"
	StatusSurface             ChunkStatus = "minecraft:surface"
	StatusCarvers             ChunkStatus = "minecraft:carvers"
	StatusFeatures            ChunkStatus = "minecraft:features"
	StatusInitializeLight     ChunkStatus = "minecraft:initialize_light"
	StatusLight               ChunkStatus = "minecraft:light"
	StatusSpawn               ChunkStatus = "minecraft:spawn"
	StatusFull                ChunkStatus = "minecraft:full"
)

var statusOrder = []ChunkStatus{
	StatusEmpty,
	StatusStructureStarts,
	StatusStructureReferences,
	StatusBiomes,
	StatusNoise,
	StatusSurface,
	StatusCarvers,
	StatusFeatures,
	StatusInitializeLight,
	StatusLight,
	StatusSpawn,
	StatusFull,
}

// ParseStatus reads a status id, with or without namespace. Unknown ids
// read as StatusEmpty.
func ParseStatus(s string) ChunkStatus {
	if !strings.Contains(s, ":") {
		s = "minecraft:" + s
	}
	st := ChunkStatus(s)
	if st.index() < 0 {
		return StatusEmpty
	}
	return st
}

func (s ChunkStatus) index() int {
	for i, v := range statusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

func (s ChunkStatus) IsAtLeast(o ChunkStatus) bool {
	return s.index() >= o.index()
}

// ChunkType tells whether chunks of this status are live level chunks or
// still in generation.
type ChunkType int

const (
	ProtoChunkType ChunkType = iota
	LevelChunkType
)

func (s ChunkStatus) ChunkType() ChunkType {
	if s == StatusFull {
		return LevelChunkType
	}
	return ProtoChunkType
}

var (
	worldgenHeightmaps = []HeightmapType{OceanFloorWG, WorldSurfaceWG}
	normalHeightmaps   = []HeightmapType{WorldSurface, OceanFloor, MotionBlocking, MotionBlockingNoLeaves}
)

// HeightmapTypes are the heightmaps a chunk of this status keeps.
func (s ChunkStatus) HeightmapTypes() []HeightmapType {
	if s.IsAtLeast(StatusFeatures) {
		return normalHeightmaps
	}
	return worldgenHeightmaps
}

func (s ChunkStatus) hasHeightmap(t HeightmapType) bool {
	for _, v := range s.HeightmapTypes() {
		if v == t {
			return true
		}
	}
	return false
}
