package region

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Tnze/go-mc/save/region"
	"golang.org/x/exp/slices"

	"github.com/dynamitemc/chunkstore/chunk"
	"github.com/dynamitemc/chunkstore/logger"
	"github.com/dynamitemc/chunkstore/tag"
)

const (
	sectorSize = 4096
	// chunks needing this many sectors go to an external .mcc file
	maxSectors = 256
)

// Storage reads and writes chunk compounds in a directory of .mca region files.
// It is safe for concurrent use; access to a single region file is serialized.
type Storage struct {
	dir         string
	compression Compression
	log         *logger.Logger

	mu      sync.Mutex
	regions map[[2]int]*regionFile
}

type regionFile struct {
	mu     sync.Mutex
	r      *region.Region
	hashes map[[2]int]uint64
}

func NewStorage(dir string, compression Compression, log *logger.Logger) (*Storage, error) {
	if _, err := GetCodec(compression); err != nil {
		return nil, err
	}
	return &Storage{
		dir:         dir,
		compression: compression,
		log:         log.With("[region]"),
		regions:     make(map[[2]int]*regionFile),
	}, nil
}

func (s *Storage) Dir() string { return s.dir }

func regionName(rx, rz int) string {
	return fmt.Sprintf("r.%d.%d.mca", rx, rz)
}

func externalName(pos chunk.ChunkPos) string {
	return fmt.Sprintf("c.%d.%d.mcc", pos.X(), pos.Z())
}

// region returns the open region file holding pos. A missing file is created
// only when create is set, otherwise nil is returned.
func (s *Storage) region(pos chunk.ChunkPos, create bool) (*regionFile, error) {
	rx, rz := region.At(int(pos.X()), int(pos.Z()))
	key := [2]int{rx, rz}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rf, ok := s.regions[key]; ok {
		return rf, nil
	}

	path := filepath.Join(s.dir, regionName(rx, rz))
	r, err := region.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		if !create {
			return nil, nil
		}
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return nil, err
		}
		s.log.Debug("Creating region file %s", path)
		r, err = region.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open region %s: %w", path, err)
	}
	rf := &regionFile{r: r, hashes: make(map[[2]int]uint64)}
	s.regions[key] = rf
	return rf, nil
}

// Read loads the compound stored for pos. It returns nil without error when
// the chunk has never been written.
func (s *Storage) Read(pos chunk.ChunkPos) (*tag.Compound, error) {
	rf, err := s.region(pos, false)
	if err != nil || rf == nil {
		return nil, err
	}
	x, z := region.In(int(pos.X()), int(pos.Z()))

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if !rf.r.ExistSector(x, z) {
		return nil, nil
	}
	data, err := rf.r.ReadSector(x, z)
	if err != nil {
		return nil, fmt.Errorf("read chunk %v: %w", pos, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read chunk %v: empty sector", pos)
	}

	compression, payload := Compression(data[0]), data[1:]
	if compression&externalFlag != 0 {
		compression &^= externalFlag
		payload, err = os.ReadFile(filepath.Join(s.dir, externalName(pos)))
		if err != nil {
			return nil, fmt.Errorf("read external chunk %v: %w", pos, err)
		}
	}
	codec, err := GetCodec(compression)
	if err != nil {
		return nil, fmt.Errorf("read chunk %v: %w", pos, err)
	}
	raw, err := codec.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("decompress chunk %v (%v): %w", pos, compression, err)
	}
	nbt, _, err := tag.Read(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read chunk %v: %w", pos, err)
	}
	rf.hashes[[2]int{x, z}] = tag.Hash(nbt)
	return nbt, nil
}

// Write stores nbt for pos. Writes of a compound equal to the one last read
// or written are skipped, in which case false is returned.
func (s *Storage) Write(pos chunk.ChunkPos, nbt *tag.Compound) (bool, error) {
	rf, err := s.region(pos, true)
	if err != nil {
		return false, err
	}
	x, z := region.In(int(pos.X()), int(pos.Z()))
	sum := tag.Hash(nbt)

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if h, ok := rf.hashes[[2]int{x, z}]; ok && h == sum {
		s.log.Debug("Chunk %v is unchanged, skipping", pos)
		return false, nil
	}

	raw, err := tag.Marshal(nbt)
	if err != nil {
		return false, fmt.Errorf("encode chunk %v: %w", pos, err)
	}
	codec, _ := GetCodec(s.compression)
	payload, err := codec.Compress(raw)
	if err != nil {
		return false, fmt.Errorf("compress chunk %v: %w", pos, err)
	}

	external := filepath.Join(s.dir, externalName(pos))
	if (len(payload)+5+sectorSize-1)/sectorSize >= maxSectors {
		s.log.Debug("Chunk %v is %d bytes, storing it in %s", pos, len(payload), externalName(pos))
		if err := os.WriteFile(external, payload, 0o644); err != nil {
			return false, fmt.Errorf("write external chunk %v: %w", pos, err)
		}
		err = rf.r.WriteSector(x, z, []byte{byte(s.compression | externalFlag)})
	} else {
		err = rf.r.WriteSector(x, z, append([]byte{byte(s.compression)}, payload...))
		if err == nil {
			if rmErr := os.Remove(external); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				s.log.Warn("Failed to remove stale external chunk %s: %v", external, rmErr)
			}
		}
	}
	if err != nil {
		return false, fmt.Errorf("write chunk %v: %w", pos, err)
	}
	rf.hashes[[2]int{x, z}] = sum
	return true, nil
}

// Chunks lists the chunks present in the region file (rx, rz).
func (s *Storage) Chunks(rx, rz int) ([]chunk.ChunkPos, error) {
	base := chunk.ChunkPos{int32(rx) << 5, int32(rz) << 5}
	rf, err := s.region(base, false)
	if err != nil || rf == nil {
		return nil, err
	}
	rf.mu.Lock()
	defer rf.mu.Unlock()
	var out []chunk.ChunkPos
	for z := 0; z < 32; z++ {
		for x := 0; x < 32; x++ {
			if rf.r.ExistSector(x, z) {
				out = append(out, chunk.ChunkPos{base.X() + int32(x), base.Z() + int32(z)})
			}
		}
	}
	return out, nil
}

// Regions lists the coordinates of every region file in the directory.
func (s *Storage) Regions() ([][2]int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out [][2]int
	for _, e := range entries {
		var rx, rz int
		if e.IsDir() {
			continue
		}
		if n, _ := fmt.Sscanf(e.Name(), "r.%d.%d.mca", &rx, &rz); n == 2 && e.Name() == regionName(rx, rz) {
			out = append(out, [2]int{rx, rz})
		}
	}
	slices.SortFunc(out, func(a, b [2]int) bool {
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	return out, nil
}

// Close closes every open region file.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for key, rf := range s.regions {
		rf.mu.Lock()
		if err := rf.r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", regionName(key[0], key[1]), err))
		}
		rf.mu.Unlock()
		delete(s.regions, key)
	}
	return errors.Join(errs...)
}
