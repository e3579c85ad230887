package chunk

import (
	"math/bits"
	"reflect"
	"strings"
	"sync"

	"github.com/Tnze/go-mc/level/block"

	"github.com/dynamitemc/chunkstore/level"
)

type HeightmapType int

const (
	WorldSurfaceWG HeightmapType = iota
	WorldSurface
	OceanFloorWG
	OceanFloor
	MotionBlocking
	MotionBlockingNoLeaves
)

var heightmapNames = [...]string{
	"WORLD_SURFACE_WG",
	"WORLD_SURFACE",
	"OCEAN_FLOOR_WG",
	"OCEAN_FLOOR",
	"MOTION_BLOCKING",
	"MOTION_BLOCKING_NO_LEAVES",
}

// String is the key of the heightmap in the chunk format.
func (t HeightmapType) String() string { return heightmapNames[t] }

// Opaque reports whether a block state ends the column for this heightmap.
func (t HeightmapType) Opaque(s block.StateID) bool {
	tr := traitsOf(s)
	switch t {
	case WorldSurfaceWG, WorldSurface:
		return !tr.air
	case OceanFloorWG, OceanFloor:
		return tr.solid
	case MotionBlocking:
		return tr.solid || tr.fluid
	default:
		return (tr.solid || tr.fluid) && !tr.leaves
	}
}

type blockTraits struct {
	air, fluid, solid, leaves bool
}

var (
	traitsOnce  sync.Once
	traitsTable []blockTraits
)

// blocks that do not stop motion
var passable = map[string]bool{
	"air": true, "cave_air": true, "void_air": true, "light": true, "structure_void": true,
	"grass": true, "short_grass": true, "tall_grass": true, "fern": true, "large_fern": true,
	"dead_bush": true, "seagrass": true, "tall_seagrass": true, "kelp": true, "kelp_plant": true,
	"vine": true, "cobweb": true, "fire": true, "soul_fire": true, "snow": true, "sugar_cane": true,
	"wheat": true, "carrots": true, "potatoes": true, "beetroots": true, "lever": true,
	"ladder": true, "redstone_wire": true, "tripwire": true, "tripwire_hook": true, "rail": true,
	"powered_rail": true, "detector_rail": true, "activator_rail": true, "torch": true,
	"sweet_berry_bush": true, "nether_portal": true, "end_portal": true, "end_gateway": true,
	"glow_lichen": true, "sculk_vein": true, "spore_blossom": true, "hanging_roots": true,
	"frogspawn": true, "pink_petals": true, "dandelion": true, "poppy": true, "blue_orchid": true,
	"allium": true, "azure_bluet": true, "oxeye_daisy": true, "cornflower": true,
	"lily_of_the_valley": true, "wither_rose": true, "sunflower": true, "lilac": true,
	"rose_bush": true, "peony": true, "torchflower": true, "brown_mushroom": true,
	"red_mushroom": true, "crimson_roots": true, "warped_roots": true, "nether_sprouts": true,
	"twisting_vines": true, "weeping_vines": true, "cave_vines": true, "repeater": true,
	"comparator": true,
}

var passableSuffixes = []string{
	"_sapling", "_torch", "_sign", "_button", "_pressure_plate", "_carpet", "_tulip",
	"_banner", "_coral_fan", "_coral_wall_fan", "_coral", "_vines_plant",
}

func traitsOf(s block.StateID) blockTraits {
	traitsOnce.Do(func() {
		traitsTable = make([]blockTraits, len(block.StateList))
		for i, b := range block.StateList {
			traitsTable[i] = computeTraits(block.StateID(i), b)
		}
	})
	if s < 0 || int(s) >= len(traitsTable) {
		return blockTraits{air: true}
	}
	return traitsTable[s]
}

func computeTraits(s block.StateID, b block.Block) (t blockTraits) {
	id := strings.TrimPrefix(b.ID(), "minecraft:")
	t.air = block.IsAir(s)
	t.leaves = strings.HasSuffix(id, "_leaves")
	t.fluid = id == "water" || id == "lava" || id == "bubble_column" || waterlogged(b)
	if t.air || id == "water" || id == "lava" || id == "bubble_column" {
		return
	}
	t.solid = !passable[id]
	for _, suf := range passableSuffixes {
		if strings.HasSuffix(id, suf) {
			t.solid = false
			break
		}
	}
	return
}

func waterlogged(b block.Block) bool {
	v := reflect.ValueOf(b)
	if v.Kind() != reflect.Struct {
		return false
	}
	f := v.FieldByName("Waterlogged")
	return f.IsValid() && f.Kind() == reflect.Bool && f.Bool()
}

// Heightmap stores, per column, one above the highest block the heightmap
// type considers opaque, counted from the bottom of the world.
type Heightmap struct {
	typ     HeightmapType
	storage *level.BitStorage
	bottomY int32
}

func heightmapBits(height int) int {
	return bits.Len(uint(height))
}

func NewHeightmap(t HeightmapType, bottomY int32, height int) *Heightmap {
	return &Heightmap{
		typ:     t,
		storage: level.MustBitStorage(heightmapBits(height), 256, nil),
		bottomY: bottomY,
	}
}

func (h *Heightmap) Type() HeightmapType { return h.typ }

// Get returns the world Y just above the top opaque block of a column, or
// the world bottom when the column is empty.
func (h *Heightmap) Get(x, z int) int32 {
	return int32(h.storage.Get(x+z*16)) + h.bottomY
}

func (h *Heightmap) set(x, z int, y int32) {
	h.storage.Set(x+z*16, int(y-h.bottomY))
}

// SetTo replaces the content with a stored long array.
func (h *Heightmap) SetTo(raw []int64) error {
	data := make([]uint64, len(raw))
	for i, v := range raw {
		data[i] = uint64(v)
	}
	s, err := level.NewBitStorage(h.storage.Bits(), 256, data)
	if err != nil {
		return err
	}
	h.storage = s
	return nil
}

func (h *Heightmap) Longs() []int64 {
	raw := h.storage.Raw()
	out := make([]int64, len(raw))
	for i, v := range raw {
		out[i] = int64(v)
	}
	return out
}

// PopulateHeightmaps computes the given heightmaps of c from its blocks.
func PopulateHeightmaps(c Chunk, types []HeightmapType) {
	c.base().populateHeightmaps(types)
}

func (b *chunkBase) populateHeightmaps(types []HeightmapType) {
	if len(types) == 0 {
		return
	}
	maps := make([]*Heightmap, len(types))
	for i, t := range types {
		maps[i] = b.heightmapOrNew(t)
	}
	top := b.bottomY() + int32(b.height()) - 1
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			pending := len(maps)
			done := make([]bool, len(maps))
			for y := top; y >= b.bottomY() && pending > 0; y-- {
				s := b.BlockState(x, y, z)
				if block.IsAir(s) {
					continue
				}
				for i, h := range maps {
					if !done[i] && h.typ.Opaque(s) {
						h.set(x, z, y+1)
						done[i] = true
						pending--
					}
				}
			}
			for i, h := range maps {
				if !done[i] {
					h.set(x, z, b.bottomY())
				}
			}
		}
	}
}
