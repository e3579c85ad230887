package chunk

import (
	"fmt"
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

// ChunkPos is the x and z coordinate of a chunk column.
type ChunkPos [2]int32

func (c ChunkPos) X() int32 { return c[0] }
func (c ChunkPos) Z() int32 { return c[1] }

// Pack folds the position into one long, x in the low half.
func (c ChunkPos) Pack() int64 {
	return int64(uint32(c[0])) | int64(uint32(c[1]))<<32
}

func UnpackChunkPos(l int64) ChunkPos {
	return ChunkPos{int32(l), int32(l >> 32)}
}

// ChunkPosOf returns the chunk holding the block at x, z.
func ChunkPosOf(x, z int32) ChunkPos {
	return ChunkPos{x >> 4, z >> 4}
}

// ChebyshevDistance is the larger of the x and z distances.
func (c ChunkPos) ChebyshevDistance(o ChunkPos) int32 {
	return max(abs(c[0]-o[0]), abs(c[1]-o[1]))
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (c ChunkPos) String() string {
	return fmt.Sprintf("[%d, %d]", c[0], c[1])
}

func (c ChunkPos) WriteTo(w io.Writer) (n int64, err error) {
	n, err = pk.Int(c[0]).WriteTo(w)
	if err != nil {
		return
	}
	n1, err := pk.Int(c[1]).WriteTo(w)
	return n + n1, err
}

func (c *ChunkPos) ReadFrom(r io.Reader) (n int64, err error) {
	var x, z pk.Int
	if n, err = x.ReadFrom(r); err != nil {
		return n, err
	}
	var n1 int64
	if n1, err = z.ReadFrom(r); err != nil {
		return n + n1, err
	}
	*c = ChunkPos{int32(x), int32(z)}
	return n + n1, nil
}

// SectionPos addresses one 16x16x16 section in section coordinates.
type SectionPos struct {
	X, Y, Z int32
}

func SectionPosOf(c ChunkPos, y int32) SectionPos {
	return SectionPos{X: c[0], Y: y, Z: c[1]}
}

func (s SectionPos) String() string {
	return fmt.Sprintf("[%d, %d, %d]", s.X, s.Y, s.Z)
}

// BlockPos is a block position in world coordinates.
type BlockPos struct {
	X, Y, Z int32
}

func (b BlockPos) Chunk() ChunkPos { return ChunkPosOf(b.X, b.Z) }
