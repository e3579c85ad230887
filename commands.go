package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/dynamitemc/chunkstore/chunk"
	"github.com/dynamitemc/chunkstore/region"
)

type Command struct {
	Name        string
	Arguments   []string
	Description string
	Run         func(store *Store, args []string) error
}

var ErrUsage = errors.New("invalid arguments")

var Commands map[string]Command

func init() {
	Commands = map[string]Command{
		"inspect": {
			Name:        "inspect",
			Arguments:   []string{"x", "z"},
			Description: "print what is stored for a chunk",
			Run:         Inspect,
		},
		"packet": {
			Name:        "packet",
			Arguments:   []string{"x", "z"},
			Description: "encode a chunk as the clientbound chunk packet",
			Run:         Packet,
		},
		"stats": {
			Name:        "stats",
			Description: "load every chunk and count them by status",
			Run:         Stats,
		},
		"repack": {
			Name:        "repack",
			Arguments:   []string{"output", "[compression]"},
			Description: "rewrite every chunk into another region directory",
			Run:         Repack,
		},
		"help": {
			Name:        "help",
			Description: "list the commands",
			Run:         Help,
		},
	}
}

func GetArgument(args []string, index int) string {
	if len(args) <= index {
		return ""
	}
	return args[index]
}

func (command Command) Usage() string {
	return strings.TrimSpace(command.Name + " " + strings.Join(command.Arguments, " "))
}

func (store *Store) Command(content string) error {
	args := strings.Fields(content)
	if len(args) == 0 {
		args = []string{"help"}
	}
	command, exists := Commands[args[0]]
	if !exists {
		return fmt.Errorf("unknown command %q", args[0])
	}
	err := command.Run(store, args[1:])
	if errors.Is(err, ErrUsage) {
		return fmt.Errorf("%w, usage: %s", err, command.Usage())
	}
	return err
}

func parseChunkPos(args []string) (chunk.ChunkPos, error) {
	x, err := strconv.ParseInt(GetArgument(args, 0), 10, 32)
	if err != nil {
		return chunk.ChunkPos{}, ErrUsage
	}
	z, err := strconv.ParseInt(GetArgument(args, 1), 10, 32)
	if err != nil {
		return chunk.ChunkPos{}, ErrUsage
	}
	return chunk.ChunkPos{int32(x), int32(z)}, nil
}

func (store *Store) loadExisting(args []string) (chunk.Chunk, error) {
	pos, err := parseChunkPos(args)
	if err != nil {
		return nil, err
	}
	c, err := store.LoadChunk(pos)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("chunk %v is not stored", pos)
	}
	return c, nil
}

type chunkDetails interface {
	chunk.Chunk
	InhabitedTime() int64
	LightOn() bool
	Heightmaps() []*chunk.Heightmap
}

func Inspect(store *Store, args []string) error {
	c, err := store.loadExisting(args)
	if err != nil {
		return err
	}
	out := store.Logger
	d := c.(chunkDetails)
	out.Print("Chunk %v: %s, inhabited for %d ticks, light on: %v", c.Pos(), c.Status(), d.InhabitedTime(), d.LightOn())

	bottom := store.World.BottomSectionY()
	for i, s := range c.Sections() {
		if s.IsEmpty() {
			continue
		}
		out.Print("  section %d: %d non-air blocks", bottom+int32(i), s.NonEmptyBlocks())
	}
	for _, h := range d.Heightmaps() {
		top := int32(math.MinInt32)
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				top = max(top, h.Get(x, z))
			}
		}
		out.Print("  heightmap %v: highest %d", h.Type(), top)
	}
	for _, pos := range c.BlockEntityPositions() {
		be := c.PackedBlockEntity(pos)
		out.Print("  block entity %s at %d %d %d", be.GetString("id"), pos.X, pos.Y, pos.Z)
	}
	if n := len(store.World.Entities()); n > 0 {
		out.Print("  %d entities", n)
	}
	return nil
}

func Packet(store *Store, args []string) error {
	c, err := store.loadExisting(args)
	if err != nil {
		return err
	}
	p, err := chunk.ChunkPacket(c, store.World.Lighting())
	if err != nil {
		return err
	}
	store.Logger.Print("Packet 0x%02X for chunk %v: %d bytes", p.ID, c.Pos(), len(p.Data))
	return nil
}

// forEachChunk runs f over every stored chunk, one region per worker.
func (store *Store) forEachChunk(f func(c chunk.Chunk) error) error {
	regions, err := store.Storage.Regions()
	if err != nil {
		return err
	}
	var g errgroup.Group
	g.SetLimit(store.Config.Workers)
	for _, r := range regions {
		g.Go(func() error {
			chunks, err := store.Storage.Chunks(r[0], r[1])
			if err != nil {
				return err
			}
			store.Logger.Debug("Region %d %d holds %d chunks", r[0], r[1], len(chunks))
			for _, pos := range chunks {
				c, err := store.LoadChunk(pos)
				if err != nil || c == nil {
					continue
				}
				err = f(c)
				store.World.lighting.Unload(pos)
				store.World.Entities()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func Stats(store *Store, args []string) error {
	if err := store.forEachChunk(func(chunk.Chunk) error { return nil }); err != nil {
		return err
	}
	counts := make(map[chunk.ChunkStatus]int64)
	store.Counters.ByStatus.Range(func(k, v any) bool {
		counts[k.(chunk.ChunkStatus)] = v.(*atomic.Int64).Load()
		return true
	})
	statuses := maps.Keys(counts)
	slices.SortFunc(statuses, func(a, b chunk.ChunkStatus) bool {
		return !a.IsAtLeast(b)
	})

	out := store.Logger
	out.Print("%d chunks loaded, %d failed, %d misplaced, %d entities",
		store.Counters.Loaded.Load(), store.Counters.Failed.Load(), store.Counters.Misplaced.Load(), store.Counters.Entities.Load())
	for _, s := range statuses {
		out.Print("  %s: %d", s, counts[s])
	}
	return nil
}

func Repack(store *Store, args []string) error {
	dir := GetArgument(args, 0)
	if dir == "" {
		return ErrUsage
	}
	compression := store.Config.RegionCompression()
	if name := GetArgument(args, 1); name != "" {
		var err error
		if compression, err = region.ParseCompression(name); err != nil {
			return err
		}
	}
	out, err := region.NewStorage(dir, compression, store.Logger)
	if err != nil {
		return err
	}
	defer out.Close()

	err = store.forEachChunk(func(c chunk.Chunk) error {
		if !c.Serializable() {
			return nil
		}
		written, err := region.SaveChunk(out, store.World, c)
		if err != nil {
			store.Events.Emit("ChunkFailed", c.Pos(), err)
			return nil
		}
		store.Events.Emit("ChunkSaved", c.Pos(), written)
		return nil
	})
	if err != nil {
		return err
	}
	store.Logger.Info("Repacked %d chunks into %s (%v), %d failed",
		store.Counters.Saved.Load(), dir, compression, store.Counters.Failed.Load())
	return nil
}

func Help(store *Store, args []string) error {
	names := maps.Keys(Commands)
	slices.Sort(names)
	for _, name := range names {
		command := Commands[name]
		store.Logger.Print("%-28s %s", command.Usage(), command.Description)
	}
	return nil
}
