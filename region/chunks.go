package region

import (
	"fmt"

	"github.com/dynamitemc/chunkstore/chunk"
)

// LoadChunk reads pos from s and converts it into a live chunk of w. It returns
// nil when the chunk is missing or has no status.
func LoadChunk(s *Storage, w chunk.World, poi chunk.PointOfInterestStorage, key chunk.StorageKey, pos chunk.ChunkPos) (chunk.Chunk, error) {
	nbt, err := s.Read(pos)
	if err != nil || nbt == nil {
		return nil, err
	}
	sc := chunk.FromNbt(w, w.Palettes(), nbt)
	if sc == nil {
		return nil, nil
	}
	return sc.Convert(w, poi, key, pos), nil
}

// SaveChunk serializes c and writes it to s, reporting whether anything was
// written.
func SaveChunk(s *Storage, w chunk.World, c chunk.Chunk) (bool, error) {
	if !c.Serializable() {
		return false, fmt.Errorf("%w: %v", chunk.ErrUnserializable, c.Pos())
	}
	nbt, err := chunk.FromChunk(w, c).Serialize()
	if err != nil {
		return false, fmt.Errorf("serialize chunk %v: %w", c.Pos(), err)
	}
	return s.Write(c.Pos(), nbt)
}
