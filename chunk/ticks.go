package chunk

import (
	"errors"

	"github.com/dynamitemc/chunkstore/tag"
)

// Tick is a scheduled block or fluid update. Delay counts game ticks from
// the moment the tick was saved.
type Tick struct {
	Type     string
	Pos      BlockPos
	Delay    int32
	Priority int32
}

// TickCodec encodes ticks as {i, x, y, z, t, p}.
type TickCodec struct{}

func (TickCodec) Encode(t Tick) (tag.Tag, error) {
	c := tag.NewCompound()
	c.PutString("i", t.Type)
	c.PutInt("x", t.Pos.X)
	c.PutInt("y", t.Pos.Y)
	c.PutInt("z", t.Pos.Z)
	c.PutInt("t", t.Delay)
	c.PutInt("p", t.Priority)
	return c, nil
}

func (TickCodec) Decode(t tag.Tag) (Tick, error) {
	c, ok := t.(*tag.Compound)
	if !ok {
		return Tick{}, errors.New("tick is not a compound")
	}
	id := c.GetString("i")
	if id == "" {
		return Tick{}, errors.New("tick has no type")
	}
	return Tick{
		Type:     id,
		Pos:      BlockPos{X: c.GetInt("x"), Y: c.GetInt("y"), Z: c.GetInt("z")},
		Delay:    c.GetInt("t"),
		Priority: c.GetInt("p"),
	}, nil
}

// TickSchedulers are the pending block and fluid ticks of a chunk.
type TickSchedulers struct {
	Blocks []Tick
	Fluids []Tick
}

// filterTicks keeps the ticks positioned inside pos.
func filterTicks(ticks []Tick, pos ChunkPos) []Tick {
	out := ticks[:0:0]
	for _, t := range ticks {
		if t.Pos.Chunk() == pos {
			out = append(out, t)
		}
	}
	return out
}

// scheduledTick is a tick pinned to an absolute game time.
type scheduledTick struct {
	Tick
	trigger int64
}

func schedule(ticks []Tick, now int64) []scheduledTick {
	out := make([]scheduledTick, len(ticks))
	for i, t := range ticks {
		out[i] = scheduledTick{Tick: t, trigger: now + int64(t.Delay)}
	}
	return out
}

func collect(ticks []scheduledTick, now int64) []Tick {
	out := make([]Tick, len(ticks))
	for i, t := range ticks {
		out[i] = t.Tick
		out[i].Delay = int32(t.trigger - now)
	}
	return out
}
