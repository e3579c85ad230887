package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateHeightmaps(t *testing.T) {
	w := newTestWorld()
	water := stateOf("minecraft:water")
	leaves := stateOf("minecraft:oak_leaves")

	c := NewWorldChunk(w, ChunkPos{0, 0}, nil, TickSchedulers{}, 0, nil, nil)
	c.SetBlockState(0, 1, 0, stone)
	c.SetBlockState(0, 3, 0, water)
	c.SetBlockState(1, 2, 1, stone)
	c.SetBlockState(1, 6, 1, leaves)
	PopulateHeightmaps(c, StatusFull.HeightmapTypes())

	for _, tt := range []struct {
		typ  HeightmapType
		x, z int
		want int32
	}{
		{WorldSurface, 0, 0, 4},
		{OceanFloor, 0, 0, 2},
		{MotionBlocking, 0, 0, 4},
		{WorldSurface, 1, 1, 7},
		{MotionBlocking, 1, 1, 7},
		{MotionBlockingNoLeaves, 1, 1, 3},
		{WorldSurface, 9, 9, -16},
	} {
		h, ok := c.Heightmap(tt.typ)
		require.True(t, ok)
		assert.Equal(t, tt.want, h.Get(tt.x, tt.z), "%v at %d,%d", tt.typ, tt.x, tt.z)
	}
	_, ok := c.Heightmap(OceanFloorWG)
	assert.False(t, ok)
}

func TestInvalidHeightmapDataIsRecomputed(t *testing.T) {
	w := newTestWorld()
	c := NewWorldChunk(w, ChunkPos{0, 0}, nil, TickSchedulers{}, 0, nil, nil)
	c.SetBlockState(4, 10, 4, stone)
	c.SetHeightmap(WorldSurface, []int64{1, 2})

	h, ok := c.Heightmap(WorldSurface)
	require.True(t, ok)
	assert.EqualValues(t, 11, h.Get(4, 4))
	assert.Contains(t, w.logs.String(), "Ignoring invalid heightmap data for chunk [0, 0], size does not match")
}

func TestHeightmapBits(t *testing.T) {
	assert.Equal(t, 9, heightmapBits(384))
	assert.Equal(t, 9, heightmapBits(256))
	assert.Equal(t, 7, heightmapBits(64))
}
