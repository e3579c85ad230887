package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Tnze/go-mc/nbt"
	"github.com/Tnze/go-mc/save"
	"github.com/klauspost/compress/gzip"

	"github.com/dynamitemc/chunkstore/chunk"
	"github.com/dynamitemc/chunkstore/logger"
	"github.com/dynamitemc/chunkstore/region"
	"github.com/dynamitemc/chunkstore/tag"
)

// Store ties a world directory to the chunk storage commands run against.
type Store struct {
	Config   *Config
	Logger   *logger.Logger
	Events   *Events
	Counters *Counters
	World    *World
	Storage  *region.Storage
}

func NewStore(config *Config, log *logger.Logger) (*Store, error) {
	store := &Store{
		Config:   config,
		Logger:   log,
		Events:   NewEvents(),
		Counters: &Counters{},
	}
	store.CreateEvents()

	store.World = NewWorld(config, store.Events, log)
	if err := store.World.ParseWorldData(filepath.Join(config.World, "level.dat")); err != nil {
		return nil, err
	}
	storage, err := region.NewStorage(store.RegionDir(), config.RegionCompression(), log)
	if err != nil {
		return nil, err
	}
	store.Storage = storage
	return store, nil
}

func (store *Store) RegionDir() string {
	return filepath.Join(store.Config.World, "region")
}

func (store *Store) Key() chunk.StorageKey {
	return chunk.StorageKey{Level: store.World.Level.Data.LevelName, Dimension: "minecraft:overworld", Type: "chunk"}
}

// LoadChunk reads and converts the chunk at pos, reporting it to the events.
func (store *Store) LoadChunk(pos chunk.ChunkPos) (chunk.Chunk, error) {
	c, err := region.LoadChunk(store.Storage, store.World, store.World.Poi, store.Key(), pos)
	if err != nil {
		store.Events.Emit("ChunkFailed", pos, err)
		return nil, err
	}
	if c != nil {
		if wc, ok := c.(*chunk.WorldChunk); ok {
			wc.RunPostLoad()
		}
		store.Events.Emit("ChunkLoaded", c)
	}
	return c, nil
}

func (store *Store) Close() error {
	return store.Storage.Close()
}

// World is the overworld of a save, as seen by the chunk serializer.
type World struct {
	Name   string
	Level  save.Level
	Config *Config
	Poi    *chunk.PoiIndex

	palettes *chunk.PalettesFactory
	lighting *chunk.MemoryLighting
	events   *Events
	log      *logger.Logger

	entityMu sync.Mutex
	entities []*tag.Compound
}

func NewWorld(config *Config, events *Events, log *logger.Logger) *World {
	dim := config.Dimension
	return &World{
		Name:     config.World,
		Config:   config,
		Poi:      chunk.NewPoiIndex(),
		palettes: chunk.NewPalettesFactory(chunk.ParseBiome(config.DefaultBiome)),
		lighting: chunk.NewMemoryLighting(dim.MinSectionY, dim.SectionCount),
		events:   events,
		log:      log.With("[" + config.World + "]"),
	}
}

// ParseWorldData reads level.dat. A world without one keeps zero time and
// the configured data version.
func (world *World) ParseWorldData(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		world.log.Warn("No level.dat found at %s, using configured defaults", path)
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to parse world data: %w", err)
	}
	if _, err := nbt.NewDecoder(data).Decode(&world.Level); err != nil {
		return fmt.Errorf("failed to parse world data: %w", err)
	}
	world.log.Debug("Parsed world data of %q", world.Level.Data.LevelName)
	return nil
}

func (world *World) BottomSectionY() int32               { return world.Config.Dimension.MinSectionY }
func (world *World) SectionCount() int                   { return world.Config.Dimension.SectionCount }
func (world *World) HasSkyLight() bool                   { return world.Config.Dimension.HasSkyLight }
func (world *World) Time() int64                         { return world.Level.Data.Time }
func (world *World) Palettes() *chunk.PalettesFactory    { return world.palettes }
func (world *World) Lighting() chunk.LightingProvider    { return world.lighting }
func (world *World) Structures() chunk.StructureRegistry { return chunk.VanillaStructures }
func (world *World) Logger() *logger.Logger              { return world.log }

func (world *World) DataVersion() int32 {
	if world.Level.Data.DataVersion != 0 {
		return world.Level.Data.DataVersion
	}
	return world.Config.DataVersion
}

func (world *World) LoadEntities(entities []*tag.Compound) {
	world.entityMu.Lock()
	world.entities = append(world.entities, entities...)
	world.entityMu.Unlock()
	world.events.Emit("EntitiesLoaded", len(entities))
}

// Entities drains the entities loaded so far.
func (world *World) Entities() []*tag.Compound {
	world.entityMu.Lock()
	defer world.entityMu.Unlock()
	out := world.entities
	world.entities = nil
	return out
}

func (world *World) OnChunkMisplacement(actual, expected chunk.ChunkPos, key chunk.StorageKey) {
	world.events.Emit("ChunkMisplaced", actual, expected, key)
}
