package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tnze/go-mc/level/block"
	"github.com/Tnze/go-mc/nbt"
	"github.com/fatih/color"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamitemc/chunkstore/chunk"
	"github.com/dynamitemc/chunkstore/logger"
	"github.com/dynamitemc/chunkstore/region"
	"github.com/dynamitemc/chunkstore/tag"
)

func init() {
	color.NoColor = true
}

type levelData struct {
	Data struct {
		LevelName   string
		Time        int64
		DataVersion int32
	}
}

func writeLevel(t *testing.T, dir string) {
	var level levelData
	level.Data.LevelName = "Test World"
	level.Data.Time = 500
	level.Data.DataVersion = 3465

	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(dir, "level.dat"))
	require.NoError(t, err)
	defer f.Close()
	w := gzip.NewWriter(f)
	require.NoError(t, nbt.NewEncoder(w).Encode(level, ""))
	require.NoError(t, w.Close())
}

var testPos = chunk.ChunkPos{1, -2}

func newTestStore(t *testing.T) (*Store, *bytes.Buffer) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.World = filepath.Join(dir, "world")
	writeLevel(t, config.World)

	var out bytes.Buffer
	store, err := NewStore(config, logger.New(&out, false))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := chunk.NewWorldChunk(store.World, testPos, nil, chunk.TickSchedulers{}, 7, nil, nil)
	c.SetBlockState(3, 70, 4, block.ToStateID[block.Stone{}])
	chest := tag.NewCompound()
	chest.PutString("id", "minecraft:chest")
	c.SetBlockEntity(chunk.BlockPos{X: 19, Y: 71, Z: -28}, chest)
	chunk.PopulateHeightmaps(c, chunk.StatusFull.HeightmapTypes())
	_, err = region.SaveChunk(store.Storage, store.World, c)
	require.NoError(t, err)
	return store, &out
}

func TestParseWorldData(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Equal(t, "Test World", store.World.Level.Data.LevelName)
	assert.EqualValues(t, 500, store.World.Time())
	assert.EqualValues(t, 3465, store.World.DataVersion())
	assert.Equal(t, "Test World", store.Key().Level)
}

func TestMissingLevelUsesConfig(t *testing.T) {
	config := DefaultConfig()
	config.World = t.TempDir()
	var out bytes.Buffer
	store, err := NewStore(config, logger.New(&out, false))
	require.NoError(t, err)
	defer store.Close()
	assert.EqualValues(t, config.DataVersion, store.World.DataVersion())
	assert.Contains(t, out.String(), "No level.dat found")
}

func TestInspect(t *testing.T) {
	store, out := newTestStore(t)
	require.NoError(t, store.Command("inspect 1 -2"))
	assert.Contains(t, out.String(), "Chunk [1, -2]: minecraft:full, inhabited for 7 ticks")
	assert.Contains(t, out.String(), "section 4: 1 non-air blocks")
	assert.Contains(t, out.String(), "heightmap MOTION_BLOCKING: highest 71")
	assert.Contains(t, out.String(), "block entity minecraft:chest at 19 71 -28")
	assert.EqualValues(t, 1, store.Counters.Loaded.Load())
}

func TestInspectErrors(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.Command("inspect 1")
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "usage: inspect x z")

	assert.Error(t, store.Command("inspect 5 5"))
	assert.Error(t, store.Command("explode"))
}

func TestPacket(t *testing.T) {
	store, out := newTestStore(t)
	require.NoError(t, store.Command("packet 1 -2"))
	assert.Contains(t, out.String(), "Packet 0x")
	assert.Contains(t, out.String(), "for chunk [1, -2]")
}

func TestStats(t *testing.T) {
	store, out := newTestStore(t)
	require.NoError(t, store.Command("stats"))
	assert.Contains(t, out.String(), "1 chunks loaded, 0 failed, 0 misplaced, 0 entities")
	assert.Contains(t, out.String(), "minecraft:full: 1")
}

func TestRepack(t *testing.T) {
	store, _ := newTestStore(t)
	dir := filepath.Join(t.TempDir(), "region")
	require.NoError(t, store.Command("repack "+dir+" lz4"))
	assert.EqualValues(t, 1, store.Counters.Saved.Load())
	assert.FileExists(t, filepath.Join(dir, "r.0.-1.mca"))

	out, err := region.NewStorage(dir, region.LZ4, nil)
	require.NoError(t, err)
	defer out.Close()
	c, err := region.LoadChunk(out, store.World, nil, store.Key(), testPos)
	require.NoError(t, err)
	require.NotNil(t, c)
	wc := c.(*chunk.WorldChunk)
	assert.Equal(t, block.ToStateID[block.Stone{}], wc.BlockState(3, 70, 4))
	wc.RunPostLoad()
	assert.Len(t, wc.BlockEntityPositions(), 1)

	assert.ErrorIs(t, store.Command("repack"), ErrUsage)
}

func TestHelp(t *testing.T) {
	store, out := newTestStore(t)
	require.NoError(t, store.Command(""))
	for name := range Commands {
		assert.Contains(t, out.String(), name)
	}
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, []string{"inspect", "-3", "4"}, commandLine([]string{"chunkstore", "-debug", "inspect", "-3", "4"}))
	assert.Empty(t, commandLine([]string{"chunkstore"}))
}
